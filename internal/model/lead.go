package model

import (
	"strings"
	"time"

	"github.com/alwayscodedfresh/lead-cli/internal/timeparse"
)

const (
	DefaultSource      = "upwork"
	DefaultListingType = "job"
)

// Social holds social-media profile handles or URLs for a lead's company.
type Social struct {
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	YouTube   string `json:"youtube,omitempty"`
	TikTok    string `json:"tiktok,omitempty"`
}

// Lead is a candidate job or contract posting. URL is the natural key.
type Lead struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	PostedTime  string `json:"posted_time"`
	PostDate    string `json:"post_date"`
	JobLink     string `json:"job_link"`
	Source      string `json:"source"`
	ListingType string `json:"listing_type"`
	Fresh       bool   `json:"fresh"`

	// Contact signals.
	Emails       []string `json:"emails"`
	Phones       []string `json:"phones"`
	WebsiteURL   string   `json:"website_url"`
	Social       Social   `json:"social"`
	ContactName  string   `json:"contact_name"`
	ContactEmail string   `json:"contact_email"`
	ContactPhone string   `json:"contact_phone"`
	ContactRole  string   `json:"contact_role"`

	// Company signals.
	CompanyName string `json:"company_name"`
	Industry    string `json:"industry"`
	City        string `json:"city"`
	State       string `json:"state"`
	Country     string `json:"country"`

	// Classification.
	ScannedForRelevance      bool               `json:"scanned_for_relevance"`
	ViablePost               TriState           `json:"viable_post"`
	AIRelevanceScore         *float64           `json:"ai_relevance_score,omitempty"`
	AIRelevanceReasoning     string             `json:"ai_relevance_reasoning"`
	ScannedForCompanyDetails bool               `json:"scanned_for_company_details"`
	CompanyResearchNotes     string             `json:"company_research_notes"`
	ClassificationSnippet    string             `json:"classification_snippet"`
	ViablePostHuman          TriState           `json:"viable_post_human"`
	HumanReviewedAt          *time.Time         `json:"human_reviewed_at,omitempty"`
	AIScannedAt              *time.Time         `json:"ai_scanned_at,omitempty"`
	ViabilityAnalysis        *ViabilityAnalysis `json:"viability_analysis,omitempty"`

	// Outreach.
	Status     Status     `json:"status"`
	EmailPitch string     `json:"email_pitch"`
	SMSPitch   string     `json:"sms_pitch"`
	PitchedAt  *time.Time `json:"pitched_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewLead returns an unsaved lead keyed by url with source defaults applied.
func NewLead(url string) *Lead {
	return &Lead{
		URL:         strings.TrimSpace(url),
		Source:      DefaultSource,
		ListingType: DefaultListingType,
		Fresh:       true,
		Status:      StatusNewLead,
		Emails:      []string{},
		Phones:      []string{},
	}
}

// IsNew reports whether the lead has not been persisted yet.
func (l *Lead) IsNew() bool { return l.ID == "" }

// Text is the locally available text used for heuristic extraction.
func (l *Lead) Text() string {
	return strings.TrimSpace(l.Title + " " + l.Description)
}

// ContactsPresent reports whether any contact channel is known.
func (l *Lead) ContactsPresent() bool {
	return len(l.Emails) > 0 || len(l.Phones) > 0 ||
		l.ContactEmail != "" || l.ContactPhone != "" || l.ContactName != ""
}

// PostedAt resolves the best posted timestamp available. It prefers the
// detail-page label, then the listing tile label, then the creation time.
func (l *Lead) PostedAt(ref time.Time) time.Time {
	if !l.CreatedAt.IsZero() {
		ref = l.CreatedAt
	}
	if t, ok := timeparse.Parse(l.PostedTime, ref); ok {
		return t
	}
	if t, ok := timeparse.Parse(l.PostDate, ref); ok {
		return t
	}
	return ref
}

// Normalize enforces the list invariants before a write.
func (l *Lead) Normalize() {
	l.URL = strings.TrimSpace(l.URL)
	l.Emails = CleanList(l.Emails)
	l.Phones = CleanList(l.Phones)
	if l.Source == "" {
		l.Source = DefaultSource
	}
	if l.ListingType == "" {
		l.ListingType = DefaultListingType
	}
	if l.Status == "" {
		l.Status = StatusNewLead
	}
}

// CleanList trims values and drops blanks and duplicates, keeping first-seen order.
func CleanList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
