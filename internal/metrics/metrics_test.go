package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveBatchItem(t *testing.T) {
	before := testutil.ToFloat64(BatchItems.WithLabelValues(StageContacts, OutcomeError))
	ObserveBatchItem(StageContacts, true, errors.New("boom"))
	after := testutil.ToFloat64(BatchItems.WithLabelValues(StageContacts, OutcomeError))
	assert.Equal(t, before+1, after)

	before = testutil.ToFloat64(BatchItems.WithLabelValues(StageViability, OutcomeViable))
	ObserveBatchItem(StageViability, true, nil)
	assert.Equal(t, before+1, testutil.ToFloat64(BatchItems.WithLabelValues(StageViability, OutcomeViable)))
}

func TestHandler(t *testing.T) {
	CrawlListings.WithLabelValues(OutcomeUpserted).Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "lead_crawl_listings_total")
}
