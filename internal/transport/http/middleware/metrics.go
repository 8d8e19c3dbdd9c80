package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/baechuer/member-portal/internal/domain"
)

const (
	metricsNamespace = "portal"
	unmatchedRoute   = "unmatched"
	outcomeSuccess   = "success"
)

// Verification entry points used as the "source" label.
const (
	SourceEmailLink = "email_link"
	SourceManual    = "manual"
	SourceAdmin     = "admin"
)

var (
	requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route pattern and status.",
	}, []string{"method", "route", "status"})

	latency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route pattern.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2.5, 9),
	}, []string{"method", "route"})

	responseBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "http_response_bytes_total",
		Help:      "Response body bytes written by route pattern.",
	}, []string{"route"})

	inFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "http_requests_in_flight",
		Help:      "HTTP requests currently being served.",
	})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "login_attempts_total",
		Help:      "Login attempts by outcome code.",
	}, []string{"outcome"})

	verificationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "verification_decisions_total",
		Help:      "Verification decisions by entry point and outcome code.",
	}, []string{"source", "outcome"})
)

// Metrics records request count, latency and bytes per chi route pattern.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inFlight.Inc()
		defer inFlight.Dec()

		m := httpsnoop.CaptureMetrics(next, w, r)

		route := routePattern(r)
		requests.WithLabelValues(r.Method, route, strconv.Itoa(m.Code)).Inc()
		latency.WithLabelValues(r.Method, route).Observe(m.Duration.Seconds())
		responseBytes.WithLabelValues(route).Add(float64(m.Written))
	})
}

// RecordLogin counts a login attempt; nil err is a success.
func RecordLogin(err error) {
	loginAttempts.WithLabelValues(outcome(err)).Inc()
}

// RecordVerification counts an approve/reject decision from source.
func RecordVerification(source string, err error) {
	verificationDecisions.WithLabelValues(source, outcome(err)).Inc()
}

// routePattern keeps label cardinality bounded to registered routes.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.RoutePattern() == "" {
		return unmatchedRoute
	}
	return rctx.RoutePattern()
}

func outcome(err error) string {
	if err == nil {
		return outcomeSuccess
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "internal_error"
}
