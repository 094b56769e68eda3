package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/alwayscodedfresh/lead-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id                          TEXT PRIMARY KEY,
	url                         TEXT NOT NULL UNIQUE,
	title                       TEXT NOT NULL DEFAULT '',
	description                 TEXT NOT NULL DEFAULT '',
	location                    TEXT NOT NULL DEFAULT '',
	posted_time                 TEXT NOT NULL DEFAULT '',
	post_date                   TEXT NOT NULL DEFAULT '',
	job_link                    TEXT NOT NULL DEFAULT '',
	source                      TEXT NOT NULL DEFAULT 'upwork',
	listing_type                TEXT NOT NULL DEFAULT 'job',
	fresh                       BOOLEAN NOT NULL DEFAULT 1,
	emails                      TEXT NOT NULL DEFAULT '[]',
	phones                      TEXT NOT NULL DEFAULT '[]',
	website_url                 TEXT NOT NULL DEFAULT '',
	facebook                    TEXT NOT NULL DEFAULT '',
	instagram                   TEXT NOT NULL DEFAULT '',
	linkedin                    TEXT NOT NULL DEFAULT '',
	twitter                     TEXT NOT NULL DEFAULT '',
	youtube                     TEXT NOT NULL DEFAULT '',
	tiktok                      TEXT NOT NULL DEFAULT '',
	contact_name                TEXT NOT NULL DEFAULT '',
	contact_email               TEXT NOT NULL DEFAULT '',
	contact_phone               TEXT NOT NULL DEFAULT '',
	contact_role                TEXT NOT NULL DEFAULT '',
	company_name                TEXT NOT NULL DEFAULT '',
	industry                    TEXT NOT NULL DEFAULT '',
	city                        TEXT NOT NULL DEFAULT '',
	state                       TEXT NOT NULL DEFAULT '',
	country                     TEXT NOT NULL DEFAULT '',
	scanned_for_relevance       BOOLEAN NOT NULL DEFAULT 0,
	viable_post                 BOOLEAN,
	ai_relevance_score          REAL,
	ai_relevance_reasoning      TEXT NOT NULL DEFAULT '',
	scanned_for_company_details BOOLEAN NOT NULL DEFAULT 0,
	company_research_notes      TEXT NOT NULL DEFAULT '',
	classification_snippet      TEXT NOT NULL DEFAULT '',
	viable_post_human           BOOLEAN,
	human_reviewed_at           DATETIME,
	ai_scanned_at               DATETIME,
	viability_analysis          TEXT,
	status                      TEXT NOT NULL DEFAULT 'new_lead',
	email_pitch                 TEXT NOT NULL DEFAULT '',
	sms_pitch                   TEXT NOT NULL DEFAULT '',
	pitched_at                  DATETIME,
	created_at                  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at                  DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// sqliteAddedColumns were added after the first schema. SQLite has no
// ADD COLUMN IF NOT EXISTS, so Migrate checks table_info first.
var sqliteAddedColumns = []struct{ name, ddl string }{
	{"status", "status TEXT NOT NULL DEFAULT 'new_lead'"},
	{"email_pitch", "email_pitch TEXT NOT NULL DEFAULT ''"},
	{"sms_pitch", "sms_pitch TEXT NOT NULL DEFAULT ''"},
	{"pitched_at", "pitched_at DATETIME"},
}

const sqliteIndexes = `
CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at);
CREATE INDEX IF NOT EXISTS idx_leads_viable_post ON leads(viable_post);
CREATE INDEX IF NOT EXISTS idx_leads_scanned_company ON leads(scanned_for_company_details);
CREATE INDEX IF NOT EXISTS idx_leads_viable_post_human ON leads(viable_post_human);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	existing, err := s.columnNames(ctx)
	if err != nil {
		return err
	}
	for _, c := range sqliteAddedColumns {
		if existing[c.name] {
			continue
		}
		if _, err := s.db.ExecContext(ctx, "ALTER TABLE leads ADD COLUMN "+c.ddl); err != nil {
			return eris.Wrapf(err, "sqlite: add column %s", c.name)
		}
	}
	_, err = s.db.ExecContext(ctx, sqliteIndexes)
	return eris.Wrap(err, "sqlite: migrate indexes")
}

func (s *SQLiteStore) columnNames(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info('leads')")
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: table info")
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan table info")
		}
		names[name] = true
	}
	return names, eris.Wrap(rows.Err(), "sqlite: table info iterate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func sqlitePlaceholder(int) string { return "?" }

func (s *SQLiteStore) FindOrCreateByURL(ctx context.Context, url string) (*model.Lead, bool, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, false, &model.ValidationError{Field: "url", Reason: "is required"}
	}
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectList("")+" FROM leads WHERE url = ?", url)
	l, err := scanLead(row)
	if isNoRows(err) {
		return model.NewLead(url), true, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "sqlite: find lead %s", url)
	}
	return l, false, nil
}

func (s *SQLiteStore) Save(ctx context.Context, lead *model.Lead) error {
	if err := validateURL(lead); err != nil {
		return err
	}
	lead.Normalize()
	if lead.IsNew() {
		return s.insert(ctx, lead)
	}
	return s.update(ctx, lead, nil)
}

func (s *SQLiteStore) Update(ctx context.Context, lead *model.Lead, columns ...string) error {
	if lead == nil || lead.IsNew() {
		return eris.New("sqlite: update requires a saved lead")
	}
	lead.Normalize()
	if columns == nil {
		columns = []string{}
	}
	return s.update(ctx, lead, columns)
}

func (s *SQLiteStore) insert(ctx context.Context, lead *model.Lead) error {
	now := time.Now().UTC()
	lead.ID = uuid.New().String()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	lead.UpdatedAt = now

	args, err := leadArgs(lead)
	if err != nil {
		lead.ID = ""
		return err
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO leads ("+strings.Join(leadColumns, ", ")+") VALUES ("+
			placeholders(len(leadColumns), sqlitePlaceholder)+") ON CONFLICT (url) DO NOTHING",
		args...,
	)
	if err != nil {
		lead.ID = ""
		if isUniqueViolation(err) {
			return duplicateURL()
		}
		return eris.Wrapf(err, "sqlite: insert lead %s", lead.URL)
	}
	n, err := res.RowsAffected()
	if err != nil {
		lead.ID = ""
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		lead.ID = ""
		return duplicateURL()
	}
	return nil
}

func (s *SQLiteStore) update(ctx context.Context, lead *model.Lead, columns []string) error {
	lead.UpdatedAt = time.Now().UTC()
	cols, args, err := updateArgs(lead, columns)
	if err != nil {
		return err
	}
	args = append(args, lead.ID)
	res, err := s.db.ExecContext(ctx, updateStatement(cols, sqlitePlaceholder), args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead %s", lead.ID)
	}
	return checkRowsAffected(res, "lead", lead.ID)
}

func (s *SQLiteStore) Review(ctx context.Context, id string, viable bool, at time.Time) (*model.Lead, error) {
	at = at.UTC()
	res, err := s.db.ExecContext(ctx, reviewStatement(sqlitePlaceholder), viable, at, time.Now().UTC(), id)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: review lead %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		var count int
		err := s.db.QueryRowContext(ctx, countByIDQuery(sqlitePlaceholder), id).Scan(&count)
		return nil, reviewConflict(id, count, err)
	}
	return s.GetByID(ctx, id)
}

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectList("")+" FROM leads WHERE id = ?", id)
	l, err := scanLead(row)
	if isNoRows(err) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get lead %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get lead %s", id)
	}
	return l, nil
}

func (s *SQLiteStore) Query(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	q, args := listQuery(selectList(""), filter, sqlitePlaceholder)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: query leads iterate")
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	st, err := scanStats(s.db.QueryRowContext(ctx, statsQuery))
	return st, eris.Wrap(err, "sqlite: stats")
}

// helpers

func placeholders(n int, ph func(int) string) string {
	out := make([]string, n)
	for i := range out {
		out[i] = ph(i + 1)
	}
	return strings.Join(out, ", ")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s not found: %s", entity, id)
	}
	return nil
}
