// Package viability classifies leads against the agency's services with an
// AI model and merges the extracted company details into the lead.
package viability

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/alwayscodedfresh/lead-cli/internal/batch"
	"github.com/alwayscodedfresh/lead-cli/internal/metrics"
	"github.com/alwayscodedfresh/lead-cli/internal/model"
	"github.com/alwayscodedfresh/lead-cli/internal/store"
)

const (
	DefaultBatchLimit  = 50
	DefaultMinInterval = 500 * time.Millisecond
)

// Prompt is a model request. System is the same for every lead in a run so
// providers can cache it; User carries the listing.
type Prompt struct {
	System string
	User   string
}

// Sender sends a prompt to an AI model and returns the raw text reply.
type Sender interface {
	Send(ctx context.Context, p Prompt) (string, error)
}

// LeadStore is the repository subset the classifier needs.
type LeadStore interface {
	Query(ctx context.Context, filter store.LeadFilter) ([]model.Lead, error)
	Update(ctx context.Context, lead *model.Lead, columns ...string) error
}

// Outcome is the result of classifying one lead. Err holds a contained
// classification failure; the lead is still saved in that case.
type Outcome struct {
	Viable   bool
	Analysis model.ViabilityAnalysis
	Err      error
}

// Classifier runs the AI viability stage.
type Classifier struct {
	sender      Sender
	store       LeadStore
	profile     string
	minInterval time.Duration
	concurrency int
	now         func() time.Time
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithAgencyProfile replaces the default agency description in the prompt.
func WithAgencyProfile(profile string) Option {
	return func(c *Classifier) { c.profile = profile }
}

// WithMinInterval spaces AI calls in batch mode. Zero disables spacing.
func WithMinInterval(d time.Duration) Option {
	return func(c *Classifier) { c.minInterval = d }
}

// WithConcurrency caps in-flight AI calls in batch mode.
func WithConcurrency(n int) Option {
	return func(c *Classifier) { c.concurrency = n }
}

// NewClassifier creates a Classifier.
func NewClassifier(sender Sender, st LeadStore, opts ...Option) *Classifier {
	c := &Classifier{
		sender:      sender,
		store:       st,
		profile:     DefaultAgencyProfile,
		minInterval: DefaultMinInterval,
		concurrency: 1,
		now:         time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Analyze classifies lead, merges the result and saves the columns the
// classifier owns. Classification failures are recorded on the lead and
// reported in Outcome.Err; the returned error is only set when the lead
// could not be saved or ctx ended.
func (c *Classifier) Analyze(ctx context.Context, lead *model.Lead) (Outcome, error) {
	log := zap.L().With(zap.String("lead_id", lead.ID), zap.String("url", lead.URL))

	analysis, clsErr := c.classify(ctx, lead)
	if clsErr != nil && ctx.Err() != nil {
		return Outcome{Err: clsErr}, ctx.Err()
	}

	now := c.now().UTC()
	columns := append([]string{}, store.ViabilityColumns...)
	if clsErr != nil {
		log.Warn("viability classification failed", zap.Error(clsErr))
		analysis = MarkFailed(lead, clsErr, now)
	} else {
		columns = append(columns, Merge(lead, analysis, now)...)
		log.Info("viability classified",
			zap.Bool("viable", analysis.Viable),
			zap.String("snippet", lead.ClassificationSnippet),
		)
	}

	out := Outcome{Viable: analysis.Viable, Analysis: *analysis, Err: clsErr}
	if err := c.store.Update(ctx, lead, columns...); err != nil {
		return out, eris.Wrapf(err, "viability: save lead %s", lead.ID)
	}
	return out, nil
}

func (c *Classifier) classify(ctx context.Context, lead *model.Lead) (*model.ViabilityAnalysis, error) {
	raw, err := c.sender.Send(ctx, BuildPrompt(c.profile, lead))
	if err != nil {
		return nil, &model.ClassificationServiceError{Err: err}
	}
	zap.L().Debug("viability response", zap.String("lead_id", lead.ID), zap.String("raw", raw))
	return ParseResponse(raw)
}

// AnalyzeBatch classifies leads whose AI verdict is pending, newest first.
// Calls are spaced by the configured minimum interval.
func (c *Classifier) AnalyzeBatch(ctx context.Context, limit int) (batch.Result, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	leads, err := c.store.Query(ctx, store.LeadFilter{PendingViability: true, Limit: limit})
	if err != nil {
		return batch.Result{Errors: []string{}}, eris.Wrap(err, "viability: select batch")
	}

	var limiter *rate.Limiter
	if c.minInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(c.minInterval), 1)
	}

	return batch.Run(ctx, leads, batch.Options{
		Stage:       metrics.StageViability,
		Concurrency: c.concurrency,
		Limiter:     limiter,
	}, func(ctx context.Context, lead *model.Lead) (bool, error) {
		out, err := c.Analyze(ctx, lead)
		if err != nil {
			return false, err
		}
		if out.Err != nil {
			return false, out.Err
		}
		return out.Viable, nil
	}), nil
}
