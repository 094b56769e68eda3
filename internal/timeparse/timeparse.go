// Package timeparse turns scraped "posted" labels such as "2 minutes ago" or
// "yesterday at 3pm" into absolute timestamps.
package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	prefixRe   = regexp.MustCompile(`(?i)^posted(?:\s+on)?\s*`)
	relativeRe = regexp.MustCompile(`^(an?|\d+)\s+([a-z]+)\s+ago$`)
)

type unit int

const (
	seconds unit = iota
	minutes
	hours
	days
	weeks
	months
	years
)

var unitAliases = map[string]unit{
	"second": seconds, "seconds": seconds, "sec": seconds, "secs": seconds,
	"minute": minutes, "minutes": minutes, "min": minutes, "mins": minutes,
	"hour": hours, "hours": hours, "hr": hours, "hrs": hours,
	"day": days, "days": days,
	"week": weeks, "weeks": weeks,
	"month": months, "months": months,
	"year": years, "years": years,
}

var clockLayouts = []string{"3pm", "3:04pm", "3 pm", "3:04 pm", "15:04", "15:04:05"}

var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
}

// Parse resolves raw relative to ref. The boolean is false when the label
// is blank or unrecognised.
func Parse(raw string, ref time.Time) (time.Time, bool) {
	s := Clean(raw)
	if s == "" {
		return time.Time{}, false
	}
	lower := strings.ToLower(s)

	switch lower {
	case "now", "just now", "just-now":
		return ref, true
	case "today":
		return startOfDay(ref), true
	case "yesterday":
		return ref.AddDate(0, 0, -1), true
	}
	if strings.HasPrefix(lower, "yesterday at ") {
		return yesterdayAt(strings.TrimSpace(lower[len("yesterday at "):]), ref), true
	}
	if t, ok := relative(lower, ref); ok {
		return t, true
	}
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, s, ref.Location()); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Clean strips the "posted"/"posted on" prefix and any trailing metadata after
// a bullet or pipe.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)
	s = prefixRe.ReplaceAllString(s, "")
	if i := strings.IndexAny(s, "•|"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func relative(lower string, ref time.Time) (time.Time, bool) {
	m := relativeRe.FindStringSubmatch(lower)
	if m == nil {
		return time.Time{}, false
	}
	u, ok := unitAliases[m[2]]
	if !ok {
		return time.Time{}, false
	}
	n := 1
	if m[1] != "a" && m[1] != "an" {
		v, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		n = v
	}

	switch u {
	case seconds:
		return ref.Add(-time.Duration(n) * time.Second), true
	case minutes:
		return ref.Add(-time.Duration(n) * time.Minute), true
	case hours:
		return ref.Add(-time.Duration(n) * time.Hour), true
	case days:
		return ref.AddDate(0, 0, -n), true
	case weeks:
		return ref.AddDate(0, 0, -7*n), true
	case months:
		return ref.AddDate(0, -n, 0), true
	default:
		return ref.AddDate(-n, 0, 0), true
	}
}

func yesterdayAt(fragment string, ref time.Time) time.Time {
	base := ref.AddDate(0, 0, -1)
	day := startOfDay(base)
	if fragment == "" {
		return base
	}
	for _, layout := range clockLayouts {
		c, err := time.Parse(layout, fragment)
		if err != nil {
			continue
		}
		return day.Add(time.Duration(c.Hour())*time.Hour +
			time.Duration(c.Minute())*time.Minute +
			time.Duration(c.Second())*time.Second)
	}
	return day
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
