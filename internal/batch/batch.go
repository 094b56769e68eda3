// Package batch runs a per-lead stage over a selection of leads with
// contained failures, an optional concurrency cap and optional call spacing.
package batch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/alwayscodedfresh/lead-cli/internal/metrics"
	"github.com/alwayscodedfresh/lead-cli/internal/model"
)

// Result aggregates a batch run. Analyzed counts every attempted lead,
// including failed ones; Errors lists the failures.
type Result struct {
	Analyzed int      `json:"analyzed"`
	Viable   int      `json:"viable"`
	Errors   []string `json:"errors"`
}

// Options tune a run. The zero value processes leads sequentially.
type Options struct {
	Stage       string
	Concurrency int
	// Limiter spaces item starts. Nil means no spacing.
	Limiter *rate.Limiter
}

// ItemFunc processes one lead and reports whether it was judged viable.
type ItemFunc func(ctx context.Context, lead *model.Lead) (bool, error)

// Run applies fn to each lead in order. A failing item never stops its
// siblings; cancelling ctx stops new items from starting.
func Run(ctx context.Context, leads []model.Lead, opts Options, fn ItemFunc) Result {
	log := zap.L().With(zap.String("stage", opts.Stage))

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var g errgroup.Group
	g.SetLimit(concurrency)

	var (
		analyzed, viable atomic.Int64
		mu               sync.Mutex
		errs             = []string{}
	)

	for i := range leads {
		if ctx.Err() != nil {
			break
		}
		if opts.Limiter != nil {
			if err := opts.Limiter.Wait(ctx); err != nil {
				break
			}
		}
		lead := &leads[i]
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			ok, err := fn(ctx, lead)
			analyzed.Add(1)
			metrics.ObserveBatchItem(opts.Stage, ok, err)
			if err != nil {
				log.Error("batch item failed", zap.String("lead_id", lead.ID), zap.String("url", lead.URL), zap.Error(err))
				mu.Lock()
				errs = append(errs, fmt.Sprintf("lead %s: %v", lead.ID, err))
				mu.Unlock()
				return nil
			}
			if ok {
				viable.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	res := Result{
		Analyzed: int(analyzed.Load()),
		Viable:   int(viable.Load()),
		Errors:   errs,
	}
	log.Info("batch complete",
		zap.Int("selected", len(leads)),
		zap.Int("analyzed", res.Analyzed),
		zap.Int("viable", res.Viable),
		zap.Int("failed", len(res.Errors)),
	)
	return res
}
