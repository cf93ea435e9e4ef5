package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/skintwin-backend/internal/platform/logger"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ObserveAggregateOperation("op", "success", time.Millisecond)
	m.IncAggregateConflict("op")
	m.IncAggregateRetry("op")
	m.ObserveSnapshotBuild("created", time.Millisecond)
	m.IncIngestWarning("ingest", "defaulted")
	m.IncCorrelation("environment", true)
	m.ObserveTimeline(3)
	m.ObserveSimulation("ok", 30)
	m.IncCacheLookup("hit")
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsRecordAggregateAndEngineSignals(t *testing.T) {
	m := NewMetrics()

	m.ObserveAggregateOperation("Twin.Snapshot.Create", "success", 3*time.Millisecond)
	m.ObserveAggregateOperation("Twin.Snapshot.Create", "conflict", 2*time.Millisecond)
	m.IncAggregateConflict("Twin.Snapshot.Create")
	m.ObserveSnapshotBuild("duplicate", time.Millisecond)
	m.IncCorrelation("routine", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.aggregateOps.WithLabelValues("Twin.Snapshot.Create", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.aggregateConflicts.WithLabelValues("Twin.Snapshot.Create")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.snapshotsBuilt.WithLabelValues("duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.correlations.WithLabelValues("routine", "none")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "skintwin_aggregate_conflicts_total"))
}

func TestReportIngestWarningsCountsByKind(t *testing.T) {
	m := NewMetrics()
	counts := ReportIngestWarnings(context.Background(), logger.Nop(), m, "ingest", []string{
		"defaulted:oiliness_level",
		"defaulted:barrier_risk",
		"unknown_region:scalp",
		"free text",
		" ",
	}, nil)

	assert.Equal(t, map[string]int{"defaulted": 2, "unknown_region": 1, "other": 1}, counts)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ingestWarnings.WithLabelValues("ingest", "defaulted")))
	assert.Nil(t, ReportIngestWarnings(context.Background(), nil, m, "ingest", nil, nil))
}
