// Package metrics exposes prometheus counters for crawl and batch outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeUpserted  = "upserted"
	OutcomeFailed    = "failed"
	OutcomeStale     = "stale"
	OutcomeViable    = "viable"
	OutcomeNotViable = "not_viable"
	OutcomeError     = "error"
)

// Stage labels.
const (
	StageContacts  = "contacts"
	StageViability = "viability"
	StageIngest    = "ingest"
	StagePitch     = "pitch"
)

// Registry holds every collector served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	CrawlListings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lead_crawl_listings_total",
		Help: "Listings seen by the crawler, by outcome.",
	}, []string{"outcome"})

	BatchItems = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lead_batch_items_total",
		Help: "Leads processed by batch stages, by stage and outcome.",
	}, []string{"stage", "outcome"})
)

func init() {
	Registry.MustRegister(CrawlListings, BatchItems)
}

// Handler serves the registry in the prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveBatchItem counts one processed lead. err takes precedence over viable.
func ObserveBatchItem(stage string, viable bool, err error) {
	outcome := OutcomeNotViable
	switch {
	case err != nil:
		outcome = OutcomeError
	case viable:
		outcome = OutcomeViable
	}
	BatchItems.WithLabelValues(stage, outcome).Inc()
}
