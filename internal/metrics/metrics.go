package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the Prometheus collectors for the quoting service.
type Registry struct {
	Registry *prometheus.Registry

	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Airport lookups
	AirportLookupsTotal *prometheus.CounterVec
	AirportCacheHits    prometheus.Counter
	AirportCacheMisses  prometheus.Counter

	// Documents
	PDFRenderDuration prometheus.Histogram
	PDFCacheHits      prometheus.Counter

	// Business
	QuotesComputedTotal *prometheus.CounterVec
	QuotesFrozenTotal   prometheus.Counter
	SessionsActive      prometheus.Gauge
}

// NewRegistry registers every collector on a fresh registry so instances
// never collide, in tests or otherwise.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Registry{
		Registry: reg,

		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "charterquote_http_requests_total",
				Help: "Total HTTP requests processed by endpoint, method, and status code",
			},
			[]string{"endpoint", "method", "status_code"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "charterquote_http_request_duration_seconds",
				Help:    "HTTP request latency distribution in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "method"},
		),

		AirportLookupsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "charterquote_airport_lookups_total",
				Help: "Airport coordinate lookups against the upstream API by outcome",
			},
			[]string{"outcome"},
		),
		AirportCacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "charterquote_airport_cache_hits_total",
			Help: "Airport lookups answered from cache",
		}),
		AirportCacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "charterquote_airport_cache_misses_total",
			Help: "Airport lookups that missed the cache",
		}),

		PDFRenderDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "charterquote_pdf_render_duration_seconds",
			Help:    "Headless browser PDF rendering time in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		PDFCacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "charterquote_pdf_cache_hits_total",
			Help: "PDF requests served from the rendered document cache",
		}),

		QuotesComputedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "charterquote_quotes_computed_total",
				Help: "Quote recomputations by pricing method",
			},
			[]string{"method"},
		),
		QuotesFrozenTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "charterquote_quotes_frozen_total",
			Help: "Quotes frozen into snapshots",
		}),
		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "charterquote_sessions_active",
			Help: "Quoting sessions currently held in memory",
		}),
	}
}
