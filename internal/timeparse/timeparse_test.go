package timeparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ref = time.Date(2026, 4, 15, 10, 30, 0, 0, time.UTC)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"now", "now", ref},
		{"just now", "Just now", ref},
		{"just-now", "just-now", ref},
		{"today", "today", time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)},
		{"yesterday", "Yesterday", ref.AddDate(0, 0, -1)},
		{"yesterday at 3pm", "yesterday at 3pm", time.Date(2026, 4, 14, 15, 0, 0, 0, time.UTC)},
		{"yesterday at 4:45 pm", "Yesterday at 4:45 pm", time.Date(2026, 4, 14, 16, 45, 0, 0, time.UTC)},
		{"yesterday at 24h clock", "yesterday at 09:15", time.Date(2026, 4, 14, 9, 15, 0, 0, time.UTC)},
		{"yesterday at garbage", "yesterday at teatime", time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC)},
		{"2 minutes ago", "2 minutes ago", ref.Add(-2 * time.Minute)},
		{"a day ago", "a day ago", ref.AddDate(0, 0, -1)},
		{"an hour ago", "An hour ago", ref.Add(-time.Hour)},
		{"30 secs ago", "30 secs ago", ref.Add(-30 * time.Second)},
		{"3 hrs ago", "3 hrs ago", ref.Add(-3 * time.Hour)},
		{"2 weeks ago", "2 weeks ago", ref.AddDate(0, 0, -14)},
		{"1 month ago", "1 month ago", time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"2 years ago", "2 years ago", time.Date(2024, 4, 15, 10, 30, 0, 0, time.UTC)},
		{"posted prefix", "Posted 5 minutes ago", ref.Add(-5 * time.Minute)},
		{"posted on prefix", "Posted on 2026-01-02", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"bullet metadata", "15 minutes ago • Worldwide", ref.Add(-15 * time.Minute)},
		{"pipe metadata", "1 hour ago | Fixed price", ref.Add(-time.Hour)},
		{"long date", "March 3, 2026", time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)},
		{"rfc3339", "2026-02-01T08:00:00Z", time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Parse(tt.raw, ref)
			require.True(t, ok)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}
}

func TestParse_Unrecognised(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "gibberish", "5 fortnights ago", "posted"} {
		_, ok := Parse(raw, ref)
		assert.False(t, ok, raw)
	}
}

func TestParse_UsesReferenceLocation(t *testing.T) {
	t.Parallel()

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	r := time.Date(2026, 4, 15, 1, 0, 0, 0, ny)
	got, ok := Parse("today", r)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 4, 15, 0, 0, 0, 0, ny), got)
}

func TestClean(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2 hours ago", Clean("  Posted 2 hours ago • Hourly "))
	assert.Equal(t, "", Clean(""))
}
