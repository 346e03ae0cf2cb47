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
			Namespace: "readquest",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "readquest",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "readquest",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	ledgerTransactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "readquest",
			Subsystem: "ledger",
			Name:      "transactions_total",
			Help:      "Total number of committed ledger transactions.",
		},
		[]string{"type", "source"},
	)

	ledgerXP = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "readquest",
			Subsystem: "ledger",
			Name:      "xp_total",
			Help:      "Total XP moved through the ledger, by direction.",
		},
		[]string{"type", "source"},
	)

	ledgerRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "readquest",
			Subsystem: "ledger",
			Name:      "serialization_retries_total",
			Help:      "Total number of balance mutations retried after lock contention.",
		},
	)

	ledgerInsufficient = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "readquest",
			Subsystem: "ledger",
			Name:      "insufficient_spends_total",
			Help:      "Total number of spends refused because the balance was too low.",
		},
	)

	accountFlags = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "readquest",
			Subsystem: "monitor",
			Name:      "account_flags_total",
			Help:      "Total number of flags raised by the monitoring sweeps.",
		},
		[]string{"kind"},
	)

	reconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "readquest",
			Subsystem: "monitor",
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of full reconciliation sweeps over all accounts.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		ledgerTransactions,
		ledgerXP,
		ledgerRetries,
		ledgerInsufficient,
		accountFlags,
		reconcileDuration,
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

// RecordTransaction records a committed ledger entry. The XP counter always
// moves by the absolute amount so earn and spend volumes are comparable.
func RecordTransaction(txType, source string, amount int64) {
	if amount < 0 {
		amount = -amount
	}
	ledgerTransactions.WithLabelValues(txType, source).Inc()
	ledgerXP.WithLabelValues(txType, source).Add(float64(amount))
}

// RecordSerializationRetry records one retry of a balance mutation after
// the database reported lock contention.
func RecordSerializationRetry() {
	ledgerRetries.Inc()
}

// RecordInsufficientSpend records a spend refused for lack of balance.
func RecordInsufficientSpend() {
	ledgerInsufficient.Inc()
}

// RecordAccountFlag records a flag raised by a monitoring sweep.
func RecordAccountFlag(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	accountFlags.WithLabelValues(kind).Inc()
}

// ObserveReconcileSweep records the duration of one full reconciliation
// sweep.
func ObserveReconcileSweep(seconds float64) {
	reconcileDuration.Observe(seconds)
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

// canonicalPath collapses catalog identifiers out of request paths so the
// per-path label set stays bounded.
func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/api"
	}
	switch parts[1] {
	case "features", "bundles":
		if len(parts) >= 3 {
			rest := ""
			if len(parts) > 3 {
				rest = "/" + strings.Join(parts[3:], "/")
			}
			return "/api/" + parts[1] + "/:id" + rest
		}
	}
	return "/" + strings.Join(parts, "/")
}
