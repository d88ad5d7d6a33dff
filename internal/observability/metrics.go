package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by the API and the reminder loop.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal        *prometheus.CounterVec
	httpRequestDuration      *prometheus.HistogramVec
	remindersDeliveredTotal  *prometheus.CounterVec
	remindersFailedTotal     *prometheus.CounterVec
	remindersSuppressedTotal *prometheus.CounterVec
	claimConflictsTotal      prometheus.Counter
	claimAmbiguousTotal      prometheus.Counter
	storeErrorsTotal         *prometheus.CounterVec
	occurrencesMatchedTotal  prometheus.Counter
	deliverySendDuration     *prometheus.HistogramVec
	dispatchInFlight         *prometheus.GaugeVec
	tickDuration             prometheus.Histogram
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dosewatch",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "dosewatch",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		remindersDeliveredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dosewatch",
				Name:      "reminders_delivered_total",
				Help:      "Total number of reminders confirmed delivered, by channel.",
			},
			[]string{"channel"},
		),
		remindersFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dosewatch",
				Name:      "reminders_failed_total",
				Help:      "Total number of reminders that reached a terminal failed outcome.",
			},
			[]string{"channel", "reason"},
		),
		remindersSuppressedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dosewatch",
				Name:      "reminders_suppressed_total",
				Help:      "Total number of reminders suppressed without a delivery attempt.",
			},
			[]string{"reason"},
		),
		claimConflictsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "dosewatch",
				Name:      "claim_conflicts_total",
				Help:      "Total number of occurrence claims rejected as already claimed.",
			},
		),
		claimAmbiguousTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "dosewatch",
				Name:      "claim_ambiguous_total",
				Help:      "Total number of occurrence claims with an ambiguous store result.",
			},
		),
		storeErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dosewatch",
				Name:      "store_errors_total",
				Help:      "Total number of store operations that failed, by operation.",
			},
			[]string{"op"},
		),
		occurrencesMatchedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "dosewatch",
				Name:      "occurrences_matched_total",
				Help:      "Total number of due occurrences produced by the matcher.",
			},
		),
		deliverySendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "dosewatch",
				Name:      "delivery_send_duration_seconds",
				Help:      "Delivery attempt duration in seconds grouped by channel.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"channel"},
		),
		dispatchInFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "dosewatch",
				Name:      "dispatch_inflight",
				Help:      "Current number of in-flight dispatches grouped by channel.",
			},
			[]string{"channel"},
		),
		tickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "dosewatch",
				Name:      "tick_duration_seconds",
				Help:      "Duration of one reminder loop tick in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.remindersDeliveredTotal,
		m.remindersFailedTotal,
		m.remindersSuppressedTotal,
		m.claimConflictsTotal,
		m.claimAmbiguousTotal,
		m.storeErrorsTotal,
		m.occurrencesMatchedTotal,
		m.deliverySendDuration,
		m.dispatchInFlight,
		m.tickDuration,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncReminderDelivered(channel string) {
	if m == nil {
		return
	}
	m.remindersDeliveredTotal.WithLabelValues(normalizeChannel(channel)).Inc()
}

func (m *Metrics) IncReminderFailed(channel string, reason string) {
	if m == nil {
		return
	}
	m.remindersFailedTotal.WithLabelValues(normalizeChannel(channel), normalizeReason(reason)).Inc()
}

func (m *Metrics) IncReminderSuppressed(reason string) {
	if m == nil {
		return
	}
	m.remindersSuppressedTotal.WithLabelValues(normalizeReason(reason)).Inc()
}

func (m *Metrics) IncClaimConflict() {
	if m == nil {
		return
	}
	m.claimConflictsTotal.Inc()
}

func (m *Metrics) IncClaimAmbiguous() {
	if m == nil {
		return
	}
	m.claimAmbiguousTotal.Inc()
}

func (m *Metrics) IncStoreError(op string) {
	if m == nil {
		return
	}
	opLabel := strings.TrimSpace(strings.ToLower(op))
	if opLabel == "" {
		opLabel = "unknown"
	}
	m.storeErrorsTotal.WithLabelValues(opLabel).Inc()
}

func (m *Metrics) AddOccurrencesMatched(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.occurrencesMatchedTotal.Add(float64(n))
}

func (m *Metrics) ObserveDeliverySendDuration(channel string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.deliverySendDuration.WithLabelValues(normalizeChannel(channel)).Observe(seconds)
}

func (m *Metrics) IncDispatchInFlight(channel string) {
	if m == nil {
		return
	}
	m.dispatchInFlight.WithLabelValues(normalizeChannel(channel)).Inc()
}

func (m *Metrics) DecDispatchInFlight(channel string) {
	if m == nil {
		return
	}
	m.dispatchInFlight.WithLabelValues(normalizeChannel(channel)).Dec()
}

func (m *Metrics) ObserveTickDuration(duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.tickDuration.Observe(seconds)
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeChannel(channel string) string {
	normalized := strings.ToLower(strings.TrimSpace(channel))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

func normalizeReason(reason string) string {
	normalized := strings.TrimSpace(strings.ToLower(reason))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
