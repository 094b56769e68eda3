package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/alwayscodedfresh/lead-cli/internal/model"
)

// ErrNotFound is returned by GetByID when no lead has the given id.
var ErrNotFound = eris.New("store: lead not found")

// DefaultLimit caps Query when the filter sets no limit.
const DefaultLimit = 100

// LeadFilter specifies criteria for selecting leads. Boolean fields are
// conjunctive; zero values disable a criterion.
type LeadFilter struct {
	UnscannedCompanyDetails bool   `json:"unscanned_company_details,omitempty"`
	PendingViability        bool   `json:"pending_viability,omitempty"`
	PendingHumanReview      bool   `json:"pending_human_review,omitempty"`
	HumanReviewed           bool   `json:"human_reviewed,omitempty"`
	Viable                  *bool  `json:"viable,omitempty"`
	Agreement               bool   `json:"agreement,omitempty"`
	Disagreement            bool   `json:"disagreement,omitempty"`
	HasContacts             bool   `json:"has_contacts,omitempty"`
	Unpitched               bool   `json:"unpitched,omitempty"`
	Status                  string `json:"status,omitempty"`
	Source                  string `json:"source,omitempty"`
	Limit                   int    `json:"limit,omitempty"`
	Offset                  int    `json:"offset,omitempty"`
}

// Stats holds aggregate lead counts.
type Stats struct {
	Total                   int `json:"total"`
	PendingViability        int `json:"pending_viability"`
	Viable                  int `json:"viable"`
	NotViable               int `json:"not_viable"`
	UnscannedCompanyDetails int `json:"unscanned_company_details"`
	PendingHumanReview      int `json:"pending_human_review"`
	HumanReviewed           int `json:"human_reviewed"`
	Agreement               int `json:"agreement"`
	Disagreement            int `json:"disagreement"`
}

// Store is the lead repository. Leads are keyed by URL.
type Store interface {
	// FindOrCreateByURL returns the stored lead for url, or an unsaved new
	// lead with created=true.
	FindOrCreateByURL(ctx context.Context, url string) (*model.Lead, bool, error)
	// Save inserts new leads and updates existing ones in a single statement.
	// Missing or duplicate URLs yield a *model.ValidationError. Updates never
	// touch the human review columns.
	Save(ctx context.Context, lead *model.Lead) error
	// Update writes only the named columns of a stored lead, plus updated_at.
	Update(ctx context.Context, lead *model.Lead, columns ...string) error
	// Review records the human verdict for id unless one is already stored,
	// in which case a *model.ValidationError is returned.
	Review(ctx context.Context, id string, viable bool, at time.Time) (*model.Lead, error)
	GetByID(ctx context.Context, id string) (*model.Lead, error)
	Query(ctx context.Context, filter LeadFilter) ([]model.Lead, error)
	Stats(ctx context.Context) (Stats, error)

	Migrate(ctx context.Context) error
	Close() error
}

// leadColumns is the column order shared by inserts, selects and scanLead.
var leadColumns = []string{
	"id", "url", "title", "description", "location", "posted_time", "post_date",
	"job_link", "source", "listing_type", "fresh",
	"emails", "phones", "website_url",
	"facebook", "instagram", "linkedin", "twitter", "youtube", "tiktok",
	"contact_name", "contact_email", "contact_phone", "contact_role",
	"company_name", "industry", "city", "state", "country",
	"scanned_for_relevance", "viable_post", "ai_relevance_score", "ai_relevance_reasoning",
	"scanned_for_company_details", "company_research_notes", "classification_snippet",
	"viable_post_human", "human_reviewed_at", "ai_scanned_at", "viability_analysis",
	"status", "email_pitch", "sms_pitch", "pitched_at",
	"created_at", "updated_at",
}

// immutableColumns are never rewritten by an update.
var immutableColumns = map[string]bool{"id": true, "url": true, "created_at": true}

// reviewColumns are only written by Review.
var reviewColumns = map[string]bool{"viable_post_human": true, "human_reviewed_at": true}

// Column sets owned by each processing stage.
var (
	ContactColumns = []string{
		"emails", "phones", "website_url", "company_name", "viable_post",
		"classification_snippet", "scanned_for_company_details", "company_research_notes",
	}
	ViabilityColumns = []string{
		"scanned_for_relevance", "viable_post", "ai_relevance_score", "ai_relevance_reasoning",
		"classification_snippet", "ai_scanned_at", "viability_analysis",
	}
	PitchColumns  = []string{"email_pitch", "sms_pitch", "pitched_at"}
	StatusColumns = []string{"status"}
)

var columnIndex = func() map[string]int {
	m := make(map[string]int, len(leadColumns))
	for i, c := range leadColumns {
		m[c] = i
	}
	return m
}()

// jsonColumns hold JSON documents. Postgres selects them as ::text so the
// same scanLead works for both drivers.
var jsonColumns = map[string]bool{"emails": true, "phones": true, "viability_analysis": true}

func selectList(jsonCast string) string {
	cols := make([]string, len(leadColumns))
	for i, c := range leadColumns {
		cols[i] = c
		if jsonColumns[c] {
			cols[i] = c + jsonCast
		}
	}
	return strings.Join(cols, ", ")
}

// leadArgs returns the values for leadColumns in order.
func leadArgs(l *model.Lead) ([]any, error) {
	emails, err := json.Marshal(model.CleanList(l.Emails))
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal emails")
	}
	phones, err := json.Marshal(model.CleanList(l.Phones))
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal phones")
	}
	var score any
	if l.AIRelevanceScore != nil {
		score = *l.AIRelevanceScore
	}
	var reviewedAt, scannedAt, pitchedAt any
	if l.HumanReviewedAt != nil {
		reviewedAt = l.HumanReviewedAt.UTC()
	}
	if l.AIScannedAt != nil {
		scannedAt = l.AIScannedAt.UTC()
	}
	if l.PitchedAt != nil {
		pitchedAt = l.PitchedAt.UTC()
	}
	return []any{
		l.ID, l.URL, l.Title, l.Description, l.Location, l.PostedTime, l.PostDate,
		l.JobLink, l.Source, l.ListingType, l.Fresh,
		string(emails), string(phones), l.WebsiteURL,
		l.Social.Facebook, l.Social.Instagram, l.Social.LinkedIn, l.Social.Twitter, l.Social.YouTube, l.Social.TikTok,
		l.ContactName, l.ContactEmail, l.ContactPhone, l.ContactRole,
		l.CompanyName, l.Industry, l.City, l.State, l.Country,
		l.ScannedForRelevance, l.ViablePost, score, l.AIRelevanceReasoning,
		l.ScannedForCompanyDetails, l.CompanyResearchNotes, l.ClassificationSnippet,
		l.ViablePostHuman, reviewedAt, scannedAt, l.ViabilityAnalysis,
		string(l.Status), l.EmailPitch, l.SMSPitch, pitchedAt,
		l.CreatedAt, l.UpdatedAt,
	}, nil
}

// updateArgs returns the columns an update writes and their values. A nil
// columns selects every mutable column outside the review set. updated_at is
// always written.
func updateArgs(l *model.Lead, columns []string) ([]string, []any, error) {
	all, err := leadArgs(l)
	if err != nil {
		return nil, nil, err
	}
	if columns == nil {
		for _, c := range leadColumns {
			if !immutableColumns[c] && !reviewColumns[c] {
				columns = append(columns, c)
			}
		}
	}

	want := make([]string, 0, len(columns)+1)
	want = append(want, columns...)
	want = append(want, "updated_at")

	cols := make([]string, 0, len(want))
	args := make([]any, 0, len(want))
	seen := make(map[string]bool, len(want))
	for _, c := range want {
		if seen[c] {
			continue
		}
		i, ok := columnIndex[c]
		if !ok || immutableColumns[c] || reviewColumns[c] {
			return nil, nil, eris.Errorf("store: column %q cannot be updated", c)
		}
		seen[c] = true
		cols = append(cols, c)
		args = append(args, all[i])
	}
	return cols, args, nil
}

// updateStatement renders an UPDATE of cols keyed by id, the last argument.
func updateStatement(cols []string, ph func(n int) string) string {
	set := make([]string, len(cols))
	for i, c := range cols {
		set[i] = c + " = " + ph(i+1)
	}
	return "UPDATE leads SET " + strings.Join(set, ", ") + " WHERE id = " + ph(len(cols)+1)
}

// reviewStatement records a verdict only while none is stored, so concurrent
// reviews cannot both succeed.
func reviewStatement(ph func(n int) string) string {
	return "UPDATE leads SET viable_post_human = " + ph(1) + ", human_reviewed_at = " + ph(2) +
		", updated_at = " + ph(3) + " WHERE id = " + ph(4) + " AND viable_post_human IS NULL"
}

// countByIDQuery counts the leads with id; ph renders the placeholder.
func countByIDQuery(ph func(n int) string) string {
	return "SELECT COUNT(*) FROM leads WHERE id = " + ph(1)
}

// reviewConflict explains a review that changed no row, given how many leads
// carry id: the lead is missing or already has a verdict.
func reviewConflict(id string, n int, err error) error {
	switch {
	case err != nil:
		return eris.Wrapf(err, "store: check lead %s", id)
	case n == 0:
		return eris.Wrapf(ErrNotFound, "store: review lead %s", id)
	default:
		return &model.ValidationError{Field: "viable_post_human", Reason: "already reviewed"}
	}
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLead(row scannable) (*model.Lead, error) {
	var (
		l                     model.Lead
		emails, phones        string
		score                 sql.NullFloat64
		reviewedAt, scannedAt sql.NullTime
		pitchedAt             sql.NullTime
		status                string
	)
	err := row.Scan(
		&l.ID, &l.URL, &l.Title, &l.Description, &l.Location, &l.PostedTime, &l.PostDate,
		&l.JobLink, &l.Source, &l.ListingType, &l.Fresh,
		&emails, &phones, &l.WebsiteURL,
		&l.Social.Facebook, &l.Social.Instagram, &l.Social.LinkedIn, &l.Social.Twitter, &l.Social.YouTube, &l.Social.TikTok,
		&l.ContactName, &l.ContactEmail, &l.ContactPhone, &l.ContactRole,
		&l.CompanyName, &l.Industry, &l.City, &l.State, &l.Country,
		&l.ScannedForRelevance, &l.ViablePost, &score, &l.AIRelevanceReasoning,
		&l.ScannedForCompanyDetails, &l.CompanyResearchNotes, &l.ClassificationSnippet,
		&l.ViablePostHuman, &reviewedAt, &scannedAt, &l.ViabilityAnalysis,
		&status, &l.EmailPitch, &l.SMSPitch, &pitchedAt,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := decodeList(emails, &l.Emails); err != nil {
		return nil, eris.Wrap(err, "store: decode emails")
	}
	if err := decodeList(phones, &l.Phones); err != nil {
		return nil, eris.Wrap(err, "store: decode phones")
	}
	if score.Valid {
		v := score.Float64
		l.AIRelevanceScore = &v
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		l.HumanReviewedAt = &t
	}
	if scannedAt.Valid {
		t := scannedAt.Time
		l.AIScannedAt = &t
	}
	if pitchedAt.Valid {
		t := pitchedAt.Time
		l.PitchedAt = &t
	}
	l.Status = model.Status(status)
	return &l, nil
}

func decodeList(raw string, dst *[]string) error {
	*dst = []string{}
	if raw == "" || raw == "null" {
		return nil
	}
	var v []string
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return err
	}
	*dst = model.CleanList(v)
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}

func validateURL(l *model.Lead) error {
	if l == nil || strings.TrimSpace(l.URL) == "" {
		return &model.ValidationError{Field: "url", Reason: "is required"}
	}
	return nil
}

func duplicateURL() error {
	return &model.ValidationError{Field: "url", Reason: "has already been taken"}
}

// whereClause renders filter as a WHERE clause. ph returns the placeholder
// for the n-th (1-based) argument.
func whereClause(f LeadFilter, ph func(n int) string) (string, []any) {
	conds := []string{"1=1"}
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.Replace(cond, "?", ph(len(args)), 1))
	}

	if f.UnscannedCompanyDetails {
		conds = append(conds, "(scanned_for_company_details IS NULL OR scanned_for_company_details = FALSE)")
	}
	if f.PendingViability {
		conds = append(conds, "viable_post IS NULL")
	}
	if f.PendingHumanReview {
		conds = append(conds, "viable_post_human IS NULL")
	}
	if f.HumanReviewed {
		conds = append(conds, "viable_post_human IS NOT NULL")
	}
	if f.Viable != nil {
		add("viable_post = ?", *f.Viable)
	}
	if f.Agreement {
		conds = append(conds, "(viable_post IS NOT NULL AND viable_post_human IS NOT NULL AND viable_post = viable_post_human)")
	}
	if f.Disagreement {
		conds = append(conds, "(viable_post IS NOT NULL AND viable_post_human IS NOT NULL AND viable_post <> viable_post_human)")
	}
	if f.HasContacts {
		conds = append(conds, "(emails <> '[]' OR phones <> '[]' OR contact_email <> '' OR contact_phone <> '')")
	}
	if f.Unpitched {
		conds = append(conds, "email_pitch = '' AND sms_pitch = ''")
	}
	if f.Status != "" {
		add("status = ?", f.Status)
	}
	if f.Source != "" {
		add("source = ?", f.Source)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// listQuery renders the full select for filter, newest first.
func listQuery(cols string, f LeadFilter, ph func(n int) string) (string, []any) {
	where, args := whereClause(f, ph)
	q := "SELECT " + cols + " FROM leads" + where + " ORDER BY created_at DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	args = append(args, limit)
	q += " LIMIT " + ph(len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		q += " OFFSET " + ph(len(args))
	}
	return q, args
}

const statsQuery = `SELECT
	COUNT(*),
	COALESCE(SUM(CASE WHEN viable_post IS NULL THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN viable_post = TRUE THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN viable_post = FALSE THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN scanned_for_company_details = FALSE THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN viable_post_human IS NULL THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN viable_post_human IS NOT NULL THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN viable_post IS NOT NULL AND viable_post_human IS NOT NULL AND viable_post = viable_post_human THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN viable_post IS NOT NULL AND viable_post_human IS NOT NULL AND viable_post <> viable_post_human THEN 1 ELSE 0 END), 0)
FROM leads`

func scanStats(row scannable) (Stats, error) {
	var s Stats
	err := row.Scan(&s.Total, &s.PendingViability, &s.Viable, &s.NotViable,
		&s.UnscannedCompanyDetails, &s.PendingHumanReview, &s.HumanReviewed,
		&s.Agreement, &s.Disagreement)
	return s, err
}
