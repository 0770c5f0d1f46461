// Package telemetry provides application-level observability for the
// warehouse backend.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// served on the side-channel HTTP server started by main.go:
//
//	GET http(s)://<host>:<WMS_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090. The endpoint is NOT served by the Gin router, so it is
// unreachable through the public API ingress and bypasses rate limiting.
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as
// /api/orders/:orderId/pick) rather than the raw URL so user-supplied path
// segments like order numbers cannot explode label cardinality. Audit
// metrics are labelled by the closed ActionType/Category enums.
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics — labelled by method, route template, and status code.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Audit pipeline metrics.
//
// AuditEventsTotal counts persisted audit events by the closed taxonomy.
// AuditWriteFailuresTotal counts swallowed persistence/shipping errors — the
// pipeline never surfaces these to clients, so this counter is the only
// operational signal that the audit trail is losing records. Alert on
// increase(audit_write_failures_total[15m]) > 0.
// AuditEnrichmentDuration observes the description-generation phase of each
// event; its lookups run serially and inline with record construction, so a
// slow lookup store shows up here long before it shows up anywhere else.
var (
	AuditEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_total",
			Help: "Total number of audit events persisted, by action type and category.",
		},
		[]string{"action_type", "category"},
	)

	AuditWriteFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Total number of audit events lost to persistence or shipping failures, by stage.",
		},
		[]string{"stage"},
	)

	AuditEnrichmentDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audit_enrichment_duration_seconds",
			Help:    "Duration of the enrichment lookups behind one audit event's descriptions.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// DBOpenConnections tracks the connection pool, sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid sql.DB.Stats()
// overhead.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a goroutine that samples pool statistics
// every 30 seconds. It exits when the database becomes unreachable, which
// happens naturally at shutdown once db.Close() runs.
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
