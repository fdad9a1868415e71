package telemetry

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus observability primitives for quoteshare.
type Metrics struct {
	apiRequests     *prometheus.CounterVec
	apiDuration     *prometheus.HistogramVec
	shareResolves   *prometheus.CounterVec
	offersRecorded  *prometheus.CounterVec
	cascadeDeletes  *prometheus.CounterVec
	rateLimitDenied *prometheus.CounterVec
}

// NewMetrics registers and returns Prometheus metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	apiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quoteshare_http_requests_total",
		Help: "Counts HTTP requests by method, route, and status.",
	}, []string{"method", "route", "status"})

	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quoteshare_http_request_duration_seconds",
		Help:    "HTTP request latency per method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	shareResolves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quoteshare_share_link_resolutions_total",
		Help: "Share link resolutions by kind (view, edit, prefs) and outcome.",
	}, []string{"kind", "outcome"})

	offersRecorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quoteshare_offers_recorded_total",
		Help: "Offers recorded per product line.",
	}, []string{"product_line"})

	cascadeDeletes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quoteshare_cascade_deletes_total",
		Help: "Cascade deletes by entity and outcome.",
	}, []string{"entity", "outcome"})

	rateLimitDenied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quoteshare_rate_limit_denied_total",
		Help: "Requests rejected by the share surface rate limiter.",
	}, []string{"route"})

	reg.MustRegister(
		apiRequests,
		apiDuration,
		shareResolves,
		offersRecorded,
		cascadeDeletes,
		rateLimitDenied,
	)

	return &Metrics{
		apiRequests:     apiRequests,
		apiDuration:     apiDuration,
		shareResolves:   shareResolves,
		offersRecorded:  offersRecorded,
		cascadeDeletes:  cascadeDeletes,
		rateLimitDenied: rateLimitDenied,
	}
}

// ObserveAPIRequest records a served HTTP request.
func (m *Metrics) ObserveAPIRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	route = sanitizeLabel(route)
	m.apiRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.apiDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveShareResolve records a share link access attempt.
func (m *Metrics) ObserveShareResolve(kind, outcome string) {
	if m == nil {
		return
	}
	m.shareResolves.WithLabelValues(kind, sanitizeLabel(outcome)).Inc()
}

func (m *Metrics) ObserveOfferRecorded(productLine string) {
	if m == nil {
		return
	}
	m.offersRecorded.WithLabelValues(sanitizeLabel(productLine)).Inc()
}

func (m *Metrics) ObserveCascadeDelete(entity string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	m.cascadeDeletes.WithLabelValues(entity, outcome).Inc()
}

func (m *Metrics) ObserveRateLimitDenied(route string) {
	if m == nil {
		return
	}
	m.rateLimitDenied.WithLabelValues(sanitizeLabel(route)).Inc()
}

func sanitizeLabel(val string) string {
	val = strings.TrimSpace(val)
	if val == "" {
		return "unknown"
	}
	return val
}
