package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Labels stay low-cardinality: route patterns, never session or job IDs.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "essence_http_requests_total",
		Help: "Total HTTP requests, by route pattern, method and status code.",
	}, []string{"route", "method", "code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "essence_http_request_duration_seconds",
		Help:    "HTTP request latency, by route pattern and method.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"route", "method"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "essence_active_sessions",
		Help: "Sessions currently held in the registry.",
	})

	ActiveVoiceSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "essence_active_voice_sessions",
		Help: "Voice sessions currently open.",
	})

	ReelJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "essence_reel_jobs_total",
		Help: "Reel job transitions observed by the tracker, by status.",
	}, []string{"status"})
)

// ObserveHTTP records one finished request.
func ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	HTTPRequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
