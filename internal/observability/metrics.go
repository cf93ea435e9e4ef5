package observability

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/skintwin-backend/internal/platform/logger"
)

const namespace = "skintwin"

// Metrics owns a private registry. Every method is safe on a nil receiver so
// callers can run with metrics disabled.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	aggregateOps       *prometheus.CounterVec
	aggregateLatency   *prometheus.HistogramVec
	aggregateConflicts *prometheus.CounterVec
	aggregateRetries   *prometheus.CounterVec

	snapshotsBuilt  *prometheus.CounterVec
	buildLatency    *prometheus.HistogramVec
	ingestWarnings  *prometheus.CounterVec
	correlations    *prometheus.CounterVec
	timelinePoints  prometheus.Histogram
	simulations     *prometheus.CounterVec
	simulationHoriz prometheus.Histogram
	cacheLookups    *prometheus.CounterVec

	pgStats   *prometheus.GaugeVec
	redisUp   prometheus.Gauge
	redisPing prometheus.Gauge
}

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

// Init returns nil when METRICS_ENABLED is off.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	m := NewMetrics()
	if log != nil {
		log.Info("Observability metrics enabled")
	}
	return m
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "api", Name: "requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "api", Name: "request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "api", Name: "inflight_requests",
			Help: "In-flight API requests.",
		}),
		aggregateOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "aggregate", Name: "operations_total",
			Help: "Aggregate write operations by name/status.",
		}, []string{"name", "status"}),
		aggregateLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "aggregate", Name: "operation_duration_seconds",
			Help:    "Aggregate write latency in seconds by name.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"name"}),
		aggregateConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "aggregate", Name: "conflicts_total",
			Help: "Aggregate writes rejected by a uniqueness or concurrency conflict.",
		}, []string{"name"}),
		aggregateRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "aggregate", Name: "retryable_total",
			Help: "Aggregate writes that failed with a retryable error.",
		}, []string{"name"}),
		snapshotsBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "twin", Name: "snapshot_builds_total",
			Help: "Snapshot builds by outcome (created, duplicate, malformed, error).",
		}, []string{"outcome"}),
		buildLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "twin", Name: "snapshot_build_duration_seconds",
			Help:    "Snapshot build latency in seconds by outcome.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		}, []string{"outcome"}),
		ingestWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "twin", Name: "ingest_warnings_total",
			Help: "Recoverable ingest issues by stage/kind.",
		}, []string{"stage", "kind"}),
		correlations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "twin", Name: "context_correlations_total",
			Help: "Context correlation lookups by kind/result.",
		}, []string{"kind", "result"}),
		timelinePoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "twin", Name: "timeline_points",
			Help:    "Points returned per timeline request.",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 200, 500, 1000},
		}),
		simulations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "twin", Name: "simulations_total",
			Help: "Scenario simulations by status.",
		}, []string{"status"}),
		simulationHoriz: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "twin", Name: "simulation_horizon_days",
			Help:    "Requested simulation horizons in days.",
			Buckets: []float64{1, 7, 14, 30, 60, 90, 180, 365},
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "lookups_total",
			Help: "Snapshot cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
		pgStats: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "db", Name: "pool_stats",
			Help: "Database connection pool stats.",
		}, []string{"metric"}),
		redisUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "redis", Name: "up",
			Help: "Redis connectivity (1=up, 0=down).",
		}),
		redisPing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "redis", Name: "ping_seconds",
			Help: "Redis ping latency in seconds.",
		}),
	}
	m.registry.MustRegister(
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.aggregateOps, m.aggregateLatency, m.aggregateConflicts, m.aggregateRetries,
		m.snapshotsBuilt, m.buildLatency, m.ingestWarnings, m.correlations,
		m.timelinePoints, m.simulations, m.simulationHoriz, m.cacheLookups,
		m.pgStats, m.redisUp, m.redisPing,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer exposes /metrics on a dedicated listener until ctx is done.
func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(name, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.aggregateOps.WithLabelValues(name, status).Inc()
	m.aggregateLatency.WithLabelValues(name).Observe(dur.Seconds())
}

func (m *Metrics) IncAggregateConflict(name string) {
	if m == nil {
		return
	}
	m.aggregateConflicts.WithLabelValues(name).Inc()
}

func (m *Metrics) IncAggregateRetry(name string) {
	if m == nil {
		return
	}
	m.aggregateRetries.WithLabelValues(name).Inc()
}

func (m *Metrics) ObserveSnapshotBuild(outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.snapshotsBuilt.WithLabelValues(outcome).Inc()
	m.buildLatency.WithLabelValues(outcome).Observe(dur.Seconds())
}

func (m *Metrics) IncIngestWarning(stage, kind string) {
	if m == nil {
		return
	}
	m.ingestWarnings.WithLabelValues(stage, kind).Inc()
}

func (m *Metrics) IncCorrelation(kind string, found bool) {
	if m == nil {
		return
	}
	result := "none"
	if found {
		result = "linked"
	}
	m.correlations.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveTimeline(points int) {
	if m == nil {
		return
	}
	m.timelinePoints.Observe(float64(points))
}

func (m *Metrics) ObserveSimulation(status string, horizonDays int) {
	if m == nil {
		return
	}
	m.simulations.WithLabelValues(status).Inc()
	if horizonDays > 0 {
		m.simulationHoriz.Observe(float64(horizonDays))
	}
}

func (m *Metrics) IncCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// StartPostgresCollector samples the pool stats of db every interval.
func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		if log != nil {
			log.Warn("db stats collector disabled", "error", err)
		}
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			stats := sqlDB.Stats()
			m.pgStats.WithLabelValues("open").Set(float64(stats.OpenConnections))
			m.pgStats.WithLabelValues("in_use").Set(float64(stats.InUse))
			m.pgStats.WithLabelValues("idle").Set(float64(stats.Idle))
			m.pgStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
			m.pgStats.WithLabelValues("wait_seconds").Set(stats.WaitDuration.Seconds())
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// StartRedisCollector pings rdb every interval and records reachability.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			start := time.Now()
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := rdb.Ping(pingCtx).Err()
			cancel()
			if err != nil {
				m.redisUp.Set(0)
				if log != nil {
					log.Debug("redis ping failed", "error", err)
				}
			} else {
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}
