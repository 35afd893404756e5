// internal/app/system/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orghub_http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orghub_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orghub_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	authzDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orghub_authz_denials_total",
			Help: "Requests denied by a page, action or role guard.",
		},
		[]string{"guard", "name"},
	)

	resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orghub_permission_resolutions_total",
			Help: "Permission resolutions by rule and whether they degraded.",
		},
		[]string{"source", "degraded"},
	)

	redemptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orghub_invitation_redemptions_total",
			Help: "Invitation redemption attempts by outcome.",
		},
		[]string{"result"},
	)

	liveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orghub_org_sessions",
		Help: "Organization-context sessions held in memory.",
	})
)

var once sync.Once

// Init registers every collector with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			authzDenials, resolutions, redemptions, liveSessions,
		)
	})
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records in-flight count, totals and latency per chi route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.code)).Inc()
	})
}

// ObserveDenial counts one guard denial.
func ObserveDenial(guard, name string) {
	authzDenials.WithLabelValues(guard, name).Inc()
}

// ObserveResolution counts one permission resolution.
func ObserveResolution(source string, degraded bool) {
	resolutions.WithLabelValues(source, strconv.FormatBool(degraded)).Inc()
}

// ObserveRedemption counts one redemption attempt; result is "ok" or a rejection reason.
func ObserveRedemption(result string) {
	redemptions.WithLabelValues(result).Inc()
}

// SetLiveSessions reports the registry size.
func SetLiveSessions(n int) {
	liveSessions.Set(float64(n))
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
