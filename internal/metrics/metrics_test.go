package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformanceMonitor_Adapters(t *testing.T) {
	m := NewPerformanceMonitor(nil)

	m.RecordAdapterFetch("espn", 120*time.Millisecond, nil)
	m.RecordAdapterFetch("espn", 80*time.Millisecond, errors.New("timeout"))
	m.SetSourceHealth("espn", 0.8, 100)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdapterFetches.WithLabelValues("espn", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdapterFetches.WithLabelValues("espn", "error")))
	assert.Equal(t, 0.8, testutil.ToFloat64(m.SourceReliability.WithLabelValues("espn")))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.SourceLatency.WithLabelValues("espn")))
}

func TestPerformanceMonitor_SyncStatus(t *testing.T) {
	tests := []struct {
		name    string
		sources int
		failed  int
		want    string
	}{
		{name: "clean", sources: 3, failed: 0, want: "success"},
		{name: "partial", sources: 3, failed: 1, want: "partial"},
		{name: "all failed", sources: 2, failed: 2, want: "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewPerformanceMonitor(nil)
			m.RecordSync(time.Second, tt.sources, tt.failed)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncsTotal.WithLabelValues(tt.want)))
		})
	}
}

func TestPerformanceMonitor_Strategy(t *testing.T) {
	m := NewPerformanceMonitor(nil)

	m.SetSnapshotCounts(map[string]int{"players": 42, "odds_lines": 310})
	m.RecordOpportunities("moderate", map[string]int{"prop": 7, "value": 2})
	m.RecordRecommendation("moderate", map[string]int{"low": 2, "medium": 1}, 87.5)
	m.RecordAlert(nil)

	assert.Equal(t, 42.0, testutil.ToFloat64(m.SnapshotCounts.WithLabelValues("players")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.OpportunitiesTotal.WithLabelValues("moderate", "prop")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecommendedBets.WithLabelValues("moderate", "medium")))
	assert.Equal(t, 87.5, testutil.ToFloat64(m.RecommendedStake.WithLabelValues("moderate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsSent.WithLabelValues("sent")))
}

func TestPerformanceMonitor_Handler(t *testing.T) {
	m := NewPerformanceMonitor(nil)
	m.ObserveHTTP("GET", "/api/v1/snapshot", 200, 15*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bet_analytics_http_request_duration_seconds_count{method="GET",route="/api/v1/snapshot",status="200"} 1`)
}
