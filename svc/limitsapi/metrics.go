package limitsapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/featurelimits/pkg/limits"
)

// Decision outcomes reported by Metrics.
const (
	outcomeAllowed = "allowed"
	outcomeDenied  = "denied"
	outcomeError   = "error"
)

// Metrics holds the Prometheus collectors of the API.
type Metrics struct {
	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	decisions *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// It panics if they are already registered there.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "featurelimits",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "status_code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "featurelimits",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "featurelimits",
			Name:      "decisions_total",
			Help:      "Check and consume decisions by feature, outcome and limit source.",
		}, []string{"operation", "feature", "outcome", "source"}),
	}
	reg.MustRegister(m.requests, m.duration, m.decisions)
	return m
}

// WithMetrics records request and decision metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(a *api) {
		a.metrics = m
	}
}

func (m *Metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// observe counts a decision. A nil receiver is a no-op.
func (m *Metrics) observe(operation string, feature limits.FeatureKey, res limits.CheckResult, err error) {
	if m == nil {
		return
	}
	outcome := outcomeDenied
	switch {
	case err != nil:
		outcome = outcomeError
	case res.Allowed:
		outcome = outcomeAllowed
	}
	m.decisions.WithLabelValues(operation, string(feature), outcome, string(res.Source)).Inc()
}
