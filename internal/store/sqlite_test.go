package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alwayscodedfresh/lead-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func saveLead(t *testing.T, st Store, url string, mutate func(*model.Lead)) *model.Lead {
	t.Helper()
	l, created, err := st.FindOrCreateByURL(context.Background(), url)
	require.NoError(t, err)
	require.True(t, created)
	if mutate != nil {
		mutate(l)
	}
	require.NoError(t, st.Save(context.Background(), l))
	return l
}

func TestSQLite_FindOrCreateByURL(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	l, created, err := st.FindOrCreateByURL(ctx, "https://www.upwork.com/jobs/~01")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, l.IsNew())

	require.NoError(t, st.Save(ctx, l))
	assert.NotEmpty(t, l.ID)

	again, created, err := st.FindOrCreateByURL(ctx, " https://www.upwork.com/jobs/~01 ")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, l.ID, again.ID)

	_, _, err = st.FindOrCreateByURL(ctx, "  ")
	var ve *model.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestSQLite_UpsertIsIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	url := "https://www.upwork.com/jobs/~02"

	saveLead(t, st, url, func(l *model.Lead) { l.Title = "First" })

	l, created, err := st.FindOrCreateByURL(ctx, url)
	require.NoError(t, err)
	require.False(t, created)
	l.Title = "Second"
	require.NoError(t, st.Save(ctx, l))

	leads, err := st.Query(ctx, LeadFilter{})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Second", leads[0].Title)
}

func TestSQLite_SaveValidation(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	var ve *model.ValidationError
	err := st.Save(ctx, &model.Lead{})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "url", ve.Field)

	saveLead(t, st, "https://example.com/dup", nil)
	dup := model.NewLead("https://example.com/dup")
	err = st.Save(ctx, dup)
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "has already been taken", ve.Reason)
	assert.True(t, dup.IsNew())
}

func TestSQLite_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	score := 0.75

	saved := saveLead(t, st, "https://example.com/full", func(l *model.Lead) {
		l.Title = "Need a Shopify site"
		l.Emails = []string{"a@x.com", "a@x.com", ""}
		l.Phones = []string{"5551234567"}
		l.Social.Instagram = "@acme"
		l.MarkScannedForRelevance(false, &score, "no contact", now)
		l.ViabilityAnalysis = &model.ViabilityAnalysis{Viable: false, Reasoning: model.TextOf("no contact")}
	})

	got, err := st.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Need a Shopify site", got.Title)
	assert.Equal(t, []string{"a@x.com"}, got.Emails)
	assert.Equal(t, []string{"5551234567"}, got.Phones)
	assert.Equal(t, "@acme", got.Social.Instagram)
	assert.Equal(t, model.False, got.ViablePost)
	assert.Equal(t, model.Pending, got.ViablePostHuman)
	require.NotNil(t, got.AIRelevanceScore)
	assert.InDelta(t, 0.75, *got.AIRelevanceScore, 1e-9)
	require.NotNil(t, got.AIScannedAt)
	assert.True(t, now.Equal(*got.AIScannedAt))
	assert.Nil(t, got.HumanReviewedAt)
	require.NotNil(t, got.ViabilityAnalysis)
	assert.Equal(t, model.Text("no contact"), *got.ViabilityAnalysis.Reasoning)
}

func TestSQLite_GetByID_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_QueryFilters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	base := now.Add(-time.Hour)

	// pending on both axes
	saveLead(t, st, "https://example.com/1", func(l *model.Lead) { l.CreatedAt = base })
	// AI viable, human agrees
	saveLead(t, st, "https://example.com/2", func(l *model.Lead) {
		l.CreatedAt = base.Add(time.Minute)
		l.MarkScannedForRelevance(true, nil, "", now)
		require.NoError(t, l.MarkHumanReview(true, now))
	})
	// AI not viable, human disagrees, company scanned
	saveLead(t, st, "https://example.com/3", func(l *model.Lead) {
		l.CreatedAt = base.Add(2 * time.Minute)
		l.MarkScannedForRelevance(false, nil, "", now)
		l.MarkCompanyResearchComplete("")
		require.NoError(t, l.MarkHumanReview(true, now))
	})

	urls := func(leads []model.Lead) []string {
		out := make([]string, len(leads))
		for i, l := range leads {
			out[i] = l.URL
		}
		return out
	}
	yes := true

	tests := []struct {
		name   string
		filter LeadFilter
		want   []string
	}{
		{"all newest first", LeadFilter{}, []string{"https://example.com/3", "https://example.com/2", "https://example.com/1"}},
		{"pending viability", LeadFilter{PendingViability: true}, []string{"https://example.com/1"}},
		{"unscanned company details", LeadFilter{UnscannedCompanyDetails: true}, []string{"https://example.com/2", "https://example.com/1"}},
		{"pending human review", LeadFilter{PendingHumanReview: true}, []string{"https://example.com/1"}},
		{"human reviewed", LeadFilter{HumanReviewed: true}, []string{"https://example.com/3", "https://example.com/2"}},
		{"viable", LeadFilter{Viable: &yes}, []string{"https://example.com/2"}},
		{"agreement", LeadFilter{Agreement: true}, []string{"https://example.com/2"}},
		{"disagreement", LeadFilter{Disagreement: true}, []string{"https://example.com/3"}},
		{"limit", LeadFilter{Limit: 1}, []string{"https://example.com/3"}},
		{"offset", LeadFilter{Limit: 1, Offset: 1}, []string{"https://example.com/2"}},
		{"source", LeadFilter{Source: "other"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leads, err := st.Query(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, urls(leads))
		})
	}
}

func TestSQLite_Stats(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	saveLead(t, st, "https://example.com/a", nil)
	saveLead(t, st, "https://example.com/b", func(l *model.Lead) {
		l.MarkScannedForRelevance(true, nil, "", now)
		require.NoError(t, l.MarkHumanReview(false, now))
	})

	s, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.PendingViability)
	assert.Equal(t, 1, s.Viable)
	assert.Equal(t, 0, s.NotViable)
	assert.Equal(t, 2, s.UnscannedCompanyDetails)
	assert.Equal(t, 1, s.PendingHumanReview)
	assert.Equal(t, 1, s.HumanReviewed)
	assert.Equal(t, 0, s.Agreement)
	assert.Equal(t, 1, s.Disagreement)
}

func TestSQLite_StaleWritesKeepReview(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	saved := saveLead(t, st, "https://example.com/stale", func(l *model.Lead) { l.Title = "Listing" })

	// Two batch stages load the lead before the reviewer acts.
	leads, err := st.Query(ctx, LeadFilter{})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	forContacts := leads[0]
	forSave := leads[0]

	reviewedAt := time.Date(2026, 6, 3, 9, 0, 0, 0, time.UTC)
	reviewed, err := st.Review(ctx, saved.ID, true, reviewedAt)
	require.NoError(t, err)
	assert.Equal(t, model.True, reviewed.ViablePostHuman)

	forContacts.Emails = []string{"owner@acme.example"}
	forContacts.ScannedForCompanyDetails = true
	require.NoError(t, st.Update(ctx, &forContacts, ContactColumns...))

	forSave.Title = "Listing (edited)"
	require.NoError(t, st.Save(ctx, &forSave))

	got, err := st.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, model.True, got.ViablePostHuman)
	require.NotNil(t, got.HumanReviewedAt)
	assert.True(t, reviewedAt.Equal(*got.HumanReviewedAt))
	assert.Equal(t, "Listing (edited)", got.Title)
}

func TestSQLite_StageUpdatesDoNotOverlap(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 3, 10, 0, 0, 0, time.UTC)
	saved := saveLead(t, st, "https://example.com/stages", nil)

	contactsCopy, err := st.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	viabilityCopy, err := st.GetByID(ctx, saved.ID)
	require.NoError(t, err)

	viabilityCopy.MarkScannedForRelevance(true, nil, "fits", now)
	viabilityCopy.ClassificationSnippet = "Viable: web build"
	require.NoError(t, st.Update(ctx, viabilityCopy, ViabilityColumns...))

	contactsCopy.Phones = []string{"5551234567"}
	contactsCopy.MarkCompanyResearchComplete("")
	require.NoError(t, st.Update(ctx, contactsCopy, "phones", "scanned_for_company_details"))

	got, err := st.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, model.True, got.ViablePost)
	assert.True(t, got.ScannedForRelevance)
	assert.Equal(t, "Viable: web build", got.ClassificationSnippet)
	assert.Equal(t, []string{"5551234567"}, got.Phones)
	assert.True(t, got.ScannedForCompanyDetails)
}

func TestSQLite_Review(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	saved := saveLead(t, st, "https://example.com/review", nil)

	_, err := st.Review(ctx, saved.ID, false, time.Now())
	require.NoError(t, err)

	_, err = st.Review(ctx, saved.ID, true, time.Now())
	var ve *model.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "viable_post_human", ve.Field)

	got, err := st.GetByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, model.False, got.ViablePostHuman)

	_, err = st.Review(ctx, "missing", true, time.Now())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_UpdateRejectsColumns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	saved := saveLead(t, st, "https://example.com/cols", nil)

	for _, col := range []string{"viable_post_human", "human_reviewed_at", "url", "id", "created_at", "nope"} {
		t.Run(col, func(t *testing.T) {
			err := st.Update(ctx, saved, col)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "cannot be updated")
		})
	}

	assert.Error(t, st.Update(ctx, model.NewLead("https://example.com/unsaved"), "title"))

	gone := *saved
	gone.ID = "gone"
	assert.True(t, errors.Is(st.Update(ctx, &gone, "title"), ErrNotFound))
}

func TestSQLite_StatusAndPitch(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 4, 8, 0, 0, 0, time.UTC)

	bare := saveLead(t, st, "https://example.com/bare", nil)
	withEmail := saveLead(t, st, "https://example.com/email", func(l *model.Lead) { l.Emails = []string{"a@x.com"} })
	pitched := saveLead(t, st, "https://example.com/pitched", func(l *model.Lead) { l.ContactPhone = "5550100" })

	assert.Equal(t, model.StatusNewLead, bare.Status)

	pitched.MarkPitched("Hello", "Hi", now)
	require.NoError(t, st.Update(ctx, pitched, PitchColumns...))
	withEmail.Status = model.StatusContacted
	require.NoError(t, st.Update(ctx, withEmail, StatusColumns...))

	got, err := st.GetByID(ctx, pitched.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello", got.EmailPitch)
	assert.Equal(t, "Hi", got.SMSPitch)
	require.NotNil(t, got.PitchedAt)
	assert.True(t, now.Equal(*got.PitchedAt))
	assert.Equal(t, model.StatusNewLead, got.Status)

	ids := func(f LeadFilter) []string {
		leads, err := st.Query(ctx, f)
		require.NoError(t, err)
		out := []string{}
		for _, l := range leads {
			out = append(out, l.ID)
		}
		return out
	}
	assert.ElementsMatch(t, []string{withEmail.ID, pitched.ID}, ids(LeadFilter{HasContacts: true}))
	assert.Equal(t, []string{withEmail.ID}, ids(LeadFilter{HasContacts: true, Unpitched: true}))
	assert.Equal(t, []string{withEmail.ID}, ids(LeadFilter{Status: string(model.StatusContacted)}))
	assert.ElementsMatch(t, []string{bare.ID, pitched.ID}, ids(LeadFilter{Status: string(model.StatusNewLead)}))
}

func TestSQLite_MigrateAddsColumns(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "old.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	added := make(map[string]bool)
	for _, c := range sqliteAddedColumns {
		added[c.name] = true
	}
	var old []string
	for _, line := range strings.Split(sqliteMigration, "\n") {
		if f := strings.Fields(line); len(f) > 0 && added[f[0]] {
			continue
		}
		old = append(old, line)
	}
	_, err = st.db.ExecContext(ctx, strings.Join(old, "\n"))
	require.NoError(t, err)
	now := time.Now().UTC()
	_, err = st.db.ExecContext(ctx,
		"INSERT INTO leads (id, url, created_at, updated_at) VALUES (?, ?, ?, ?)",
		"old-1", "https://example.com/old", now, now)
	require.NoError(t, err)

	before, err := st.columnNames(ctx)
	require.NoError(t, err)
	require.False(t, before["status"])

	require.NoError(t, st.Migrate(ctx))
	require.NoError(t, st.Migrate(ctx))

	got, err := st.GetByID(ctx, "old-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusNewLead, got.Status)
	assert.Empty(t, got.EmailPitch)
	assert.Nil(t, got.PitchedAt)
}
