package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryMetrics_TagOrderDoesNotMatter(t *testing.T) {
	m := NewInMemoryMetrics()

	m.Counter(MetricCalendarRequests, 1, T("operation", "get_busy"), T("outcome", "ok"))
	m.Counter(MetricCalendarRequests, 2, T("outcome", "ok"), T("operation", "get_busy"))
	m.Timing(MetricHTTPRequestDuration, time.Second, T("route", "/health"))

	assert.Equal(t, int64(3), m.GetCounter(MetricCalendarRequests, T("operation", "get_busy"), T("outcome", "ok")))
	assert.Zero(t, m.GetCounter(MetricCalendarRequests, T("operation", "create_event"), T("outcome", "ok")))
	assert.Equal(t, []time.Duration{time.Second}, m.GetTimings(MetricHTTPRequestDuration, T("route", "/health")))
}

func TestPrometheusMetrics_CountersAndHandler(t *testing.T) {
	m := NewPrometheusMetrics()

	m.Counter(MetricOAuthRefresh, 1, T("outcome", "success"))
	m.Counter(MetricOAuthRefresh, 1, T("outcome", "success"))
	m.Counter(MetricOAuthRefresh, 1, T("outcome", "failure"))
	m.Timing(MetricHTTPRequestDuration, 250*time.Millisecond, T("route", "GET /health"))

	families, err := m.Gatherer().Gather()
	require.NoError(t, err)
	series := 0
	for _, f := range families {
		if f.GetName() == MetricOAuthRefresh {
			series = len(f.GetMetric())
		}
	}
	assert.Equal(t, 2, series, "one series per outcome")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `tempo_oauth_refresh_total{outcome="success"} 2`)
	assert.Contains(t, string(body), `tempo_http_request_duration_seconds_count{route="GET /health"} 1`)
}

func TestNoopMetrics(t *testing.T) {
	var m Metrics = NoopMetrics{}
	assert.NotPanics(t, func() {
		m.Counter("x", 1)
		m.Timing("y", time.Second)
	})
}
