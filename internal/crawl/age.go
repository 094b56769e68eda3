package crawl

import (
	"regexp"
	"strconv"
	"strings"
)

var leadingCount = regexp.MustCompile(`^\s*(\d+|an?)\b`)

// AgeHours converts a listing tile's relative date label ("3 hours ago",
// "yesterday", "2 weeks ago") to an approximate age in hours. Unrecognised
// labels are treated as brand new.
func AgeHours(label string) float64 {
	s := strings.ToLower(strings.TrimSpace(label))
	if strings.Contains(s, "just now") || strings.Contains(s, "second") {
		return 0
	}

	n := count(s)
	switch {
	case strings.Contains(s, "minute"):
		return n / 60
	case strings.Contains(s, "hour"):
		return n
	case strings.Contains(s, "yesterday"):
		return 24
	case strings.Contains(s, "day"):
		return n * 24
	case strings.Contains(s, "week"):
		return n * 24 * 7
	case strings.Contains(s, "month"):
		return n * 24 * 30
	}
	return 0
}

func count(s string) float64 {
	m := leadingCount.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	if m[1] == "a" || m[1] == "an" {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return float64(n)
}
