// Package ingest validates raw listings and upserts them as leads keyed by URL.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/alwayscodedfresh/lead-cli/internal/metrics"
	"github.com/alwayscodedfresh/lead-cli/internal/model"
)

// LeadStore is the repository subset ingestion needs.
type LeadStore interface {
	FindOrCreateByURL(ctx context.Context, url string) (*model.Lead, bool, error)
	Save(ctx context.Context, lead *model.Lead) error
	Update(ctx context.Context, lead *model.Lead, columns ...string) error
}

// Result describes one ingested listing.
type Result struct {
	Lead    *model.Lead `json:"lead"`
	Created bool        `json:"created"`
}

// BatchResult aggregates IngestBatch.
type BatchResult struct {
	Total   int      `json:"total"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// Ingester upserts raw listings.
type Ingester struct {
	store LeadStore
}

func New(st LeadStore) *Ingester {
	return &Ingester{store: st}
}

// Ingest finds or creates the lead for raw.URL, copies the provided fields
// and saves it. Re-ingesting the same listing leaves one lead and writes only
// the fields the listing provides.
func (in *Ingester) Ingest(ctx context.Context, raw model.RawListing) (Result, error) {
	url := strings.TrimSpace(raw.URL)
	if url == "" {
		metrics.BatchItems.WithLabelValues(metrics.StageIngest, metrics.OutcomeFailed).Inc()
		return Result{}, &model.ValidationError{Field: "url", Reason: "is required"}
	}

	lead, created, err := in.store.FindOrCreateByURL(ctx, url)
	if err != nil {
		metrics.BatchItems.WithLabelValues(metrics.StageIngest, metrics.OutcomeFailed).Inc()
		return Result{}, eris.Wrapf(err, "ingest: find lead %s", url)
	}

	applied := raw.ApplyTo(lead)
	if created {
		err = in.store.Save(ctx, lead)
	} else {
		err = in.store.Update(ctx, lead, applied...)
	}
	if err != nil {
		metrics.BatchItems.WithLabelValues(metrics.StageIngest, metrics.OutcomeFailed).Inc()
		return Result{}, eris.Wrapf(err, "ingest: save lead %s", url)
	}

	metrics.BatchItems.WithLabelValues(metrics.StageIngest, metrics.OutcomeUpserted).Inc()
	zap.L().Debug("listing ingested",
		zap.String("lead_id", lead.ID),
		zap.String("url", url),
		zap.Bool("created", created),
	)
	return Result{Lead: lead, Created: created}, nil
}

// IngestBatch ingests each listing in order. A failing listing is recorded
// and skipped.
func (in *Ingester) IngestBatch(ctx context.Context, raws []model.RawListing) BatchResult {
	res := BatchResult{Total: len(raws), Errors: []string{}}
	for i, raw := range raws {
		if ctx.Err() != nil {
			res.Failed += len(raws) - i
			res.Errors = append(res.Errors, fmt.Sprintf("batch cancelled: %v", ctx.Err()))
			break
		}
		r, err := in.Ingest(ctx, raw)
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("listing %d (%s): %v", i, raw.URL, err))
			zap.L().Warn("listing ingest failed", zap.Int("index", i), zap.String("url", raw.URL), zap.Error(err))
			continue
		}
		if r.Created {
			res.Created++
		} else {
			res.Updated++
		}
	}
	return res
}
