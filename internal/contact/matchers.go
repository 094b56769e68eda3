package contact

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// matcher is one pattern in an ordered per-field list. group selects the
// capture to use; 0 is the whole match.
type matcher struct {
	name  string
	re    *regexp.Regexp
	group int
}

func (m matcher) findAll(text string) []string {
	var out []string
	for _, sm := range m.re.FindAllStringSubmatch(text, -1) {
		if m.group < len(sm) {
			out = append(out, sm[m.group])
		}
	}
	return out
}

func (m matcher) findFirst(text string) (string, bool) {
	sm := m.re.FindStringSubmatch(text)
	if sm == nil || m.group >= len(sm) {
		return "", false
	}
	return sm[m.group], true
}

const emailTail = `[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`

// Emails: every matcher contributes, results are unioned then deduplicated.
var emailMatchers = []matcher{
	{name: "plain", re: regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@` + emailTail)},
	{name: "spaced-at", re: regexp.MustCompile(`\b[A-Za-z0-9._%+-]+\s*@\s*` + emailTail)},
	{name: "bracket-at", re: regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+\s*\[\s*at\s*\]\s*` + emailTail)},
	{name: "paren-at", re: regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+\s*\(\s*at\s*\)\s*` + emailTail)},
}

// Phones: union then dedupe on the normalised digits.
var phoneMatchers = []matcher{
	{name: "nanp-optional-country", re: regexp.MustCompile(`\b(?:\+?1[-.\s]?)?(?:\(?[0-9]{3}\)?[-.\s]?)?[0-9]{3}[-.\s]?[0-9]{4}\b`)},
	{name: "ten-digit", re: regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`)},
	{name: "parens", re: regexp.MustCompile(`\(?\b[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}\b`)},
	{name: "country-code", re: regexp.MustCompile(`\b1[-.\s]?[0-9]{3}[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}\b`)},
}

const urlTail = `(?::[0-9]+)?(?:/[\w/_.-]*(?:\?[\w&=%.-]*)?(?:#[\w.-]*)?)?`

// Websites: union then dedupe on the normalised URL.
var websiteMatchers = []matcher{
	{name: "scheme", re: regexp.MustCompile(`(?i)https?://[-\w.]+` + urlTail)},
	{name: "www", re: regexp.MustCompile(`(?i)\bwww\.[-\w.]+` + urlTail)},
	{name: "bare-domain", re: regexp.MustCompile(`(?:^|\s)((?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,})(?:\s|$)`), group: 1},
}

// Company name: first accepted candidate wins, in this order.
var companyMatchers = []matcher{
	{name: "label", re: regexp.MustCompile(`(?i)\b(?:company|business|agency|firm|corporation|employer)\s*:\s*([A-Za-z0-9 &.-]{2,30})`), group: 1},
	{name: "first-person", re: regexp.MustCompile(`(?i)\b(?:we are|i am from|working for|employed by)\s+([A-Za-z0-9 &.-]{2,30})`), group: 1},
	{name: "legal-suffix", re: regexp.MustCompile(`\b((?:[A-Z0-9][A-Za-z0-9&.-]*[ \t]+){1,4})(?:Inc\b|LLC\b|Corp\b|Corporation\b|Ltd\b|Co\.)`), group: 1},
}

var (
	obfuscatedAtRe  = regexp.MustCompile(`(?i)\s*[\[(]\s*at\s*[\])]\s*`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
	binaryExtRe     = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|pdf|doc|docx)$`)
	nonDigitRe      = regexp.MustCompile(`\D`)
	domainSuffixRe  = regexp.MustCompile(`(?i)\.[a-z]{2,4}$`)
	companyStripRe  = regexp.MustCompile(`[^\w\s&.-]`)
	commonTLDTokens = []string{".com", ".org", ".net", ".co", ".io"}
)

func normalizeEmail(raw string) string {
	s := obfuscatedAtRe.ReplaceAllString(raw, "@")
	s = whitespaceRe.ReplaceAllString(s, "")
	s = strings.NewReplacer("[", "", "]", "", "(", "", ")", "").Replace(s)
	local, domain, ok := strings.Cut(s, "@")
	if !ok {
		return s
	}
	return local + "@" + strings.ToLower(domain)
}

func validEmail(s string) bool {
	if strings.Count(s, "@") != 1 || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	local, domain, _ := strings.Cut(s, "@")
	if local == "" || domain == "" {
		return false
	}
	return !binaryExtRe.MatchString(s)
}

func normalizePhone(raw string) string {
	digits := nonDigitRe.ReplaceAllString(raw, "")
	return strings.TrimPrefix(digits, "1")
}

func validPhone(s string) bool {
	return len(s) >= 10 && len(s) <= 15
}

func normalizeWebsite(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimRight(s, ".,;:!?)")
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "http://" + s
	}
	return s
}

func validWebsite(s string) bool {
	if len(s) <= 5 {
		return false
	}
	for _, tld := range commonTLDTokens {
		if strings.Contains(s, tld) {
			return true
		}
	}
	return domainSuffixRe.MatchString(s)
}

func cleanCompany(raw string) (string, bool) {
	s := companyStripRe.ReplaceAllString(strings.TrimSpace(raw), "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	// The capture can run into the next sentence.
	if i := strings.Index(s, ". "); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	return s, len(s) >= 3 && len(s) <= 49
}

// collect runs every matcher over text and returns the normalised, valid,
// first-seen-ordered union.
func collect(text string, ms []matcher, normalize func(string) string, valid func(string) bool) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, m := range ms {
		for _, raw := range m.findAll(text) {
			v := normalize(raw)
			if seen[v] || !valid(v) {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// firstCompany returns the first candidate that survives cleaning.
func firstCompany(text string) string {
	for _, m := range companyMatchers {
		raw, ok := m.findFirst(text)
		if !ok {
			continue
		}
		if name, ok := cleanCompany(raw); ok {
			zap.L().Debug("company name matched", zap.String("matcher", m.name), zap.String("company", name))
			return name
		}
	}
	return ""
}
