// Package metrics exposes Prometheus instruments for renders, versions,
// exports and HTTP requests on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry        *prometheus.Registry
	renders         *prometheus.CounterVec
	renderedPages   prometheus.Histogram
	versions        *prometheus.CounterVec
	exports         *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		renders: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nexio_renders_total",
			Help: "Documents rendered, by mode.",
		}, []string{"mode"}),
		renderedPages: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "nexio_rendered_pages",
			Help:    "Pages per rendered document.",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		}),
		versions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nexio_versions_created_total",
			Help: "Document versions appended, by kind (create, edit, restore).",
		}, []string{"kind"}),
		exports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nexio_exports_total",
			Help: "Export attempts by format and outcome.",
		}, []string{"format", "outcome"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nexio_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRender(mode string, pages int) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(mode).Inc()
	m.renderedPages.Observe(float64(pages))
}

func (m *Metrics) ObserveVersion(kind string) {
	if m == nil {
		return
	}
	m.versions.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveExport(format string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.exports.WithLabelValues(format, outcome).Inc()
}

func (m *Metrics) ObserveRequest(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
