package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveHTTP("POST", "/v1/runs", 201, 0.2)
	m.ObserveHTTP("POST", "/v1/runs", 502, 0.1)
	m.ObserveHTTP("GET", "/v1/corpus", 404, 0.01)
	m.ObserveRun("incremental", "ok", 1.5)
	m.IncIngest("created")
	m.IncIngest("created")
	m.IncIngest("reinforced")
	m.IncRetry("compare")
	m.IncTension("high")
	m.SetCorpusGauges(4, 0.25)
	m.IncPublishFailure()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/v1/runs", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/v1/runs", "5xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/v1/corpus", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("incremental", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.IngestOutcomes.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestOutcomes.WithLabelValues("reinforced")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackendRetries.WithLabelValues("compare")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Tensions.WithLabelValues("high")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.PromotableAxioms))
	assert.Equal(t, 0.25, testutil.ToFloat64(m.OrphanRate))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishFailures))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("GET", "/", 200, 0)
	m.ObserveRun("initial", "ok", 0)
	m.IncIngest("created")
	m.IncRetry("compare")
	m.IncTension("low")
	m.SetCorpusGauges(1, 0)
	m.IncPublishFailure()
}
