package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "highcourt"

var (
	// HTTP front door
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	// Portal queries by workflow and classified outcome
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "portal",
			Name:      "queries_total",
			Help:      "Portal submissions by workflow kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "portal",
			Name:      "step_duration_seconds",
			Help:      "Wizard step duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20},
		},
		[]string{"kind", "step"},
	)

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sessions",
		Name:      "active",
		Help:      "Live browser sessions held by the session manager",
	})

	SessionsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sessions",
		Name:      "evicted_total",
		Help:      "Sessions closed by the idle reaper",
	})

	ArtifactsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "artifacts",
			Name:      "fetch_total",
			Help:      "Artifact fetches by result (downloaded, cached, failed)",
		},
		[]string{"result"},
	)

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Case record cache hits",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Case record cache misses",
	})
)

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records an HTTP request
func RecordRequest(method, route, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, route, status).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(durationSec)
}

// RecordQuery records a classified portal submission
func RecordQuery(kind, outcome string) {
	QueriesTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordStep records how long a wizard step took
func RecordStep(kind, step string, durationSec float64) {
	StepDuration.WithLabelValues(kind, step).Observe(durationSec)
}

// RecordArtifact records an artifact fetch result
func RecordArtifact(result string) {
	ArtifactsTotal.WithLabelValues(result).Inc()
}

func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}
