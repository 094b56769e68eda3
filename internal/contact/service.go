package contact

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/alwayscodedfresh/lead-cli/internal/batch"
	"github.com/alwayscodedfresh/lead-cli/internal/metrics"
	"github.com/alwayscodedfresh/lead-cli/internal/model"
	"github.com/alwayscodedfresh/lead-cli/internal/store"
)

// DefaultBatchLimit is used when AnalyzeBatch gets a non-positive limit.
const DefaultBatchLimit = 50

// LeadStore is the repository subset the contact stage needs.
type LeadStore interface {
	Query(ctx context.Context, filter store.LeadFilter) ([]model.Lead, error)
	Update(ctx context.Context, lead *model.Lead, columns ...string) error
}

// Service runs contact extraction against stored leads.
type Service struct {
	store       LeadStore
	concurrency int
}

// NewService creates a Service. concurrency below 2 processes leads one at a time.
func NewService(st LeadStore, concurrency int) *Service {
	return &Service{store: st, concurrency: concurrency}
}

// AnalyzeLead extracts, applies and saves the contact signals for one lead.
// Only the columns this stage owns are written.
func (s *Service) AnalyzeLead(ctx context.Context, lead *model.Lead) (Result, error) {
	r := Analyze(lead)
	Apply(lead, r)
	if err := s.store.Update(ctx, lead, store.ContactColumns...); err != nil {
		return r, eris.Wrapf(err, "contact: save lead %s", lead.ID)
	}
	zap.L().Debug("contact analysis saved",
		zap.String("lead_id", lead.ID),
		zap.Bool("viable", r.Viable),
		zap.String("summary", r.Summary),
	)
	return r, nil
}

// AnalyzeBatch processes leads whose company details have not been scanned,
// newest first.
func (s *Service) AnalyzeBatch(ctx context.Context, limit int) (batch.Result, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	leads, err := s.store.Query(ctx, store.LeadFilter{UnscannedCompanyDetails: true, Limit: limit})
	if err != nil {
		return batch.Result{Errors: []string{}}, eris.Wrap(err, "contact: select batch")
	}

	return batch.Run(ctx, leads, batch.Options{
		Stage:       metrics.StageContacts,
		Concurrency: s.concurrency,
	}, func(ctx context.Context, lead *model.Lead) (bool, error) {
		r, err := s.AnalyzeLead(ctx, lead)
		return r.Viable, err
	}), nil
}
