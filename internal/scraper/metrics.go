package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for a scrape run. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Registry        *prometheus.Registry
	PagesTotal      prometheus.Counter
	LinksTotal      prometheus.Counter
	ProductsTotal   *prometheus.CounterVec
	ProductDuration prometheus.Histogram
	SinkErrorsTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	pages := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_listing_pages_total",
			Help: "Total listing pages read during pagination.",
		},
	)
	links := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_listing_links_total",
			Help: "Total product links collected from listing pages.",
		},
	)
	products := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_products_total",
			Help: "Product links processed, by outcome.",
		},
		[]string{"outcome"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_product_duration_seconds",
			Help:    "Time spent navigating to and extracting a product page.",
			Buckets: prometheus.DefBuckets,
		},
	)
	sinkErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_sink_errors_total",
			Help: "Failures while forwarding a finished run to a sink.",
		},
		[]string{"sink"},
	)

	registry.MustRegister(pages, links, products, duration, sinkErrors)

	return &Metrics{
		Registry:        registry,
		PagesTotal:      pages,
		LinksTotal:      links,
		ProductsTotal:   products,
		ProductDuration: duration,
		SinkErrorsTotal: sinkErrors,
	}
}

func (m *Metrics) ObservePage(links int) {
	if m == nil {
		return
	}
	m.PagesTotal.Inc()
	m.LinksTotal.Add(float64(links))
}

// ObserveProduct records a processed link. stage is empty on success.
func (m *Metrics) ObserveProduct(stage Stage, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if stage != "" {
		outcome = string(stage) + "_failed"
	}
	m.ProductsTotal.WithLabelValues(outcome).Inc()
	m.ProductDuration.Observe(d.Seconds())
}

func (m *Metrics) IncSinkError(sink string) {
	if m == nil {
		return
	}
	m.SinkErrorsTotal.WithLabelValues(sink).Inc()
}
