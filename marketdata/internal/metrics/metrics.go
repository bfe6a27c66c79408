package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quoteline_marketdata_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quoteline_marketdata_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// Auth metrics
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quoteline_marketdata_logins_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	AuthRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quoteline_marketdata_auth_rejections_total",
			Help: "Requests rejected by the access guard, by reason",
		},
		[]string{"reason"},
	)

	TokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quoteline_marketdata_tokens_issued_total",
			Help: "Total number of access tokens issued",
		},
	)

	TokensRevoked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quoteline_marketdata_tokens_revoked_total",
			Help: "Total number of access tokens revoked before expiry",
		},
	)

	LoginRateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quoteline_marketdata_login_rate_limit_hits_total",
			Help: "Login attempts rejected by the rate limiter",
		},
	)

	// Parameter validation
	ParamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quoteline_marketdata_param_errors_total",
			Help: "Rejected requests by parameter and reason",
		},
		[]string{"field", "reason"},
	)

	// Provider metrics
	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quoteline_marketdata_provider_duration_seconds",
			Help:    "Duration of market-data provider calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quoteline_marketdata_provider_errors_total",
			Help: "Failed market-data provider calls",
		},
		[]string{"operation"},
	)
)

// ObserveProvider records the outcome of one provider call started at start.
func ObserveProvider(operation string, start time.Time, err error) {
	ProviderDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		ProviderErrors.WithLabelValues(operation).Inc()
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Instrument wraps h with request count and latency metrics under route.
func Instrument(route string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(sw, r)
		RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()
	})
}
