package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tip_layer",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tip_layer",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tip_layer",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	tipsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tip_layer",
			Subsystem: "tipping",
			Name:      "tips_accepted_total",
			Help:      "Total number of accepted tips.",
		},
		[]string{"token"},
	)

	tipsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tip_layer",
			Subsystem: "tipping",
			Name:      "tips_rejected_total",
			Help:      "Total number of rejected tip attempts.",
		},
		[]string{"reason"},
	)

	withdrawalsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tip_layer",
			Subsystem: "tipping",
			Name:      "withdrawals_completed_total",
			Help:      "Total number of completed withdrawals.",
		},
		[]string{"token"},
	)

	withdrawalsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tip_layer",
			Subsystem: "tipping",
			Name:      "withdrawals_rejected_total",
			Help:      "Total number of rejected withdrawal attempts.",
		},
		[]string{"reason"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		tipsAccepted,
		tipsRejected,
		withdrawalsCompleted,
		withdrawalsRejected,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordTipAccepted counts one accepted tip.
func RecordTipAccepted(token string) {
	tipsAccepted.WithLabelValues(token).Inc()
}

// RecordTipRejected counts one rejected tip attempt.
func RecordTipRejected(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	tipsRejected.WithLabelValues(reason).Inc()
}

// RecordWithdrawalCompleted counts one completed withdrawal.
func RecordWithdrawalCompleted(token string) {
	withdrawalsCompleted.WithLabelValues(token).Inc()
}

// RecordWithdrawalRejected counts one rejected withdrawal attempt.
func RecordWithdrawalRejected(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	withdrawalsRejected.WithLabelValues(reason).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "participants" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/participants"
	}
	if len(parts) == 2 {
		return "/participants/:participant"
	}
	resource := parts[2]
	return "/participants/:participant/" + resource
}
