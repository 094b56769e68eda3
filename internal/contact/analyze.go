// Package contact extracts emails, phones, websites and a company name from
// a lead's own text and uses them as the heuristic viability signal.
package contact

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/alwayscodedfresh/lead-cli/internal/model"
)

const (
	SummaryNoDescription = "No job description available to analyze"
	SummaryNoContact     = "No contact information found"
)

// Result is the outcome of analysing one lead.
type Result struct {
	Emails      []string `json:"emails"`
	Phones      []string `json:"phones"`
	Websites    []string `json:"websites"`
	CompanyName string   `json:"company_name,omitempty"`
	Viable      bool     `json:"viable"`
	Summary     string   `json:"summary"`
}

// Analyze extracts contact signals from the lead's title and description.
// It never fails; unmatched fields are empty.
func Analyze(lead *model.Lead) Result {
	if strings.TrimSpace(lead.Description) == "" {
		return Result{
			Emails:   []string{},
			Phones:   []string{},
			Websites: []string{},
			Summary:  SummaryNoDescription,
		}
	}
	return AnalyzeText(lead.Text())
}

// AnalyzeText runs the extractors over arbitrary text.
func AnalyzeText(text string) Result {
	text = norm.NFKC.String(text)

	r := Result{
		Emails:      collect(text, emailMatchers, normalizeEmail, validEmail),
		Phones:      collect(text, phoneMatchers, normalizePhone, validPhone),
		Websites:    collect(text, websiteMatchers, normalizeWebsite, validWebsite),
		CompanyName: firstCompany(text),
	}
	r.Viable = len(r.Emails) > 0 || len(r.Phones) > 0 || len(r.Websites) > 0
	r.Summary = summarize(r)
	return r
}

func summarize(r Result) string {
	var parts []string
	if n := len(r.Emails); n > 0 {
		parts = append(parts, fmt.Sprintf("%d email(s)", n))
	}
	if n := len(r.Phones); n > 0 {
		parts = append(parts, fmt.Sprintf("%d phone(s)", n))
	}
	if n := len(r.Websites); n > 0 {
		parts = append(parts, fmt.Sprintf("%d website(s)", n))
	}
	if r.CompanyName != "" {
		parts = append(parts, "company: "+r.CompanyName)
	}
	if len(parts) == 0 {
		return SummaryNoContact
	}
	return strings.Join(parts, "; ")
}

// Apply writes the fields owned by the contact stage onto lead and marks its
// company details as scanned.
func Apply(lead *model.Lead, r Result) {
	lead.Emails = model.CleanList(r.Emails)
	lead.Phones = model.CleanList(r.Phones)
	lead.WebsiteURL = ""
	if len(r.Websites) > 0 {
		lead.WebsiteURL = r.Websites[0]
	}
	lead.CompanyName = r.CompanyName
	lead.ViablePost = model.FromBool(r.Viable)
	lead.ClassificationSnippet = r.Summary
	lead.MarkCompanyResearchComplete("")
}
