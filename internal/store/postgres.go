package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/alwayscodedfresh/lead-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id                          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	url                         TEXT NOT NULL UNIQUE,
	title                       TEXT NOT NULL DEFAULT '',
	description                 TEXT NOT NULL DEFAULT '',
	location                    TEXT NOT NULL DEFAULT '',
	posted_time                 TEXT NOT NULL DEFAULT '',
	post_date                   TEXT NOT NULL DEFAULT '',
	job_link                    TEXT NOT NULL DEFAULT '',
	source                      TEXT NOT NULL DEFAULT 'upwork',
	listing_type                TEXT NOT NULL DEFAULT 'job',
	fresh                       BOOLEAN NOT NULL DEFAULT TRUE,
	emails                      JSONB NOT NULL DEFAULT '[]',
	phones                      JSONB NOT NULL DEFAULT '[]',
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
	scanned_for_relevance       BOOLEAN NOT NULL DEFAULT FALSE,
	viable_post                 BOOLEAN,
	ai_relevance_score          DOUBLE PRECISION,
	ai_relevance_reasoning      TEXT NOT NULL DEFAULT '',
	scanned_for_company_details BOOLEAN NOT NULL DEFAULT FALSE,
	company_research_notes      TEXT NOT NULL DEFAULT '',
	classification_snippet      TEXT NOT NULL DEFAULT '',
	viable_post_human           BOOLEAN,
	human_reviewed_at           TIMESTAMPTZ,
	ai_scanned_at               TIMESTAMPTZ,
	viability_analysis          JSONB,
	status                      TEXT NOT NULL DEFAULT 'new_lead',
	email_pitch                 TEXT NOT NULL DEFAULT '',
	sms_pitch                   TEXT NOT NULL DEFAULT '',
	pitched_at                  TIMESTAMPTZ,
	created_at                  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at                  TIMESTAMPTZ NOT NULL DEFAULT now()
);

ALTER TABLE leads ADD COLUMN IF NOT EXISTS status TEXT NOT NULL DEFAULT 'new_lead';
ALTER TABLE leads ADD COLUMN IF NOT EXISTS email_pitch TEXT NOT NULL DEFAULT '';
ALTER TABLE leads ADD COLUMN IF NOT EXISTS sms_pitch TEXT NOT NULL DEFAULT '';
ALTER TABLE leads ADD COLUMN IF NOT EXISTS pitched_at TIMESTAMPTZ;

CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_leads_viable_post ON leads(viable_post);
CREATE INDEX IF NOT EXISTS idx_leads_scanned_company ON leads(scanned_for_company_details);
CREATE INDEX IF NOT EXISTS idx_leads_viable_post_human ON leads(viable_post_human);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func pgPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

func (s *PostgresStore) FindOrCreateByURL(ctx context.Context, url string) (*model.Lead, bool, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, false, &model.ValidationError{Field: "url", Reason: "is required"}
	}
	l, err := scanLead(s.pool.QueryRow(ctx,
		"SELECT "+selectList("::text")+" FROM leads WHERE url = $1", url))
	if isNoRows(err) {
		return model.NewLead(url), true, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "postgres: find lead %s", url)
	}
	return l, false, nil
}

func (s *PostgresStore) Save(ctx context.Context, lead *model.Lead) error {
	if err := validateURL(lead); err != nil {
		return err
	}
	lead.Normalize()
	if lead.IsNew() {
		return s.insert(ctx, lead)
	}
	return s.update(ctx, lead, nil)
}

func (s *PostgresStore) Update(ctx context.Context, lead *model.Lead, columns ...string) error {
	if lead == nil || lead.IsNew() {
		return eris.New("postgres: update requires a saved lead")
	}
	lead.Normalize()
	if columns == nil {
		columns = []string{}
	}
	return s.update(ctx, lead, columns)
}

func (s *PostgresStore) insert(ctx context.Context, lead *model.Lead) error {
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
	tag, err := s.pool.Exec(ctx,
		"INSERT INTO leads ("+strings.Join(leadColumns, ", ")+") VALUES ("+
			placeholders(len(leadColumns), pgPlaceholder)+") ON CONFLICT (url) DO NOTHING",
		args...,
	)
	if err != nil {
		lead.ID = ""
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return duplicateURL()
		}
		return eris.Wrapf(err, "postgres: insert lead %s", lead.URL)
	}
	if tag.RowsAffected() == 0 {
		lead.ID = ""
		return duplicateURL()
	}
	return nil
}

func (s *PostgresStore) update(ctx context.Context, lead *model.Lead, columns []string) error {
	lead.UpdatedAt = time.Now().UTC()
	cols, args, err := updateArgs(lead, columns)
	if err != nil {
		return err
	}
	args = append(args, lead.ID)
	tag, err := s.pool.Exec(ctx, updateStatement(cols, pgPlaceholder), args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead %s", lead.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "lead not found: %s", lead.ID)
	}
	return nil
}

func (s *PostgresStore) Review(ctx context.Context, id string, viable bool, at time.Time) (*model.Lead, error) {
	tag, err := s.pool.Exec(ctx, reviewStatement(pgPlaceholder), viable, at.UTC(), time.Now().UTC(), id)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: review lead %s", id)
	}
	if tag.RowsAffected() == 0 {
		var count int
		err := s.pool.QueryRow(ctx, countByIDQuery(pgPlaceholder), id).Scan(&count)
		return nil, reviewConflict(id, count, err)
	}
	return s.GetByID(ctx, id)
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (*model.Lead, error) {
	l, err := scanLead(s.pool.QueryRow(ctx,
		"SELECT "+selectList("::text")+" FROM leads WHERE id = $1", id))
	if isNoRows(err) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get lead %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead %s", id)
	}
	return l, nil
}

func (s *PostgresStore) Query(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	q, args := listQuery(selectList("::text"), filter, pgPlaceholder)
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: query leads iterate")
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	st, err := scanStats(s.pool.QueryRow(ctx, statsQuery))
	return st, eris.Wrap(err, "postgres: stats")
}
