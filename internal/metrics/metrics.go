package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "addon",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, route and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "addon",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20, 45},
	}, []string{"method", "path"})

	UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "addon",
		Name:      "upstream_requests_total",
		Help:      "Outbound API calls by service, operation and result status.",
	}, []string{"service", "operation", "status"})

	UpstreamRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "addon",
		Name:      "upstream_request_duration_seconds",
		Help:      "Outbound API call duration in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
	}, []string{"service", "operation"})

	ResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "addon",
		Name:      "resolutions_total",
		Help:      "Stream resolution requests by terminal outcome.",
	}, []string{"outcome"})

	LinkResolutionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "addon",
		Name:      "link_resolutions_total",
		Help:      "Per-candidate link resolutions by result.",
	}, []string{"result"})

	UnrestrictTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "addon",
		Name:      "unrestrict_total",
		Help:      "Premium unrestriction attempts by result.",
	}, []string{"result"})

	ProxyActiveStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "addon",
		Name:      "proxy_active_streams",
		Help:      "Number of proxied streams currently being relayed.",
	})

	ProxyBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "addon",
		Name:      "proxy_bytes_total",
		Help:      "Total bytes relayed by the stream proxy.",
	})

	MetadataCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "addon",
		Name:      "metadata_cache_total",
		Help:      "Metadata cache lookups by result (hit, miss, error).",
	}, []string{"result"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		UpstreamRequestsTotal,
		UpstreamRequestDuration,
		ResolutionsTotal,
		LinkResolutionsTotal,
		UnrestrictTotal,
		ProxyActiveStreams,
		ProxyBytesTotal,
		MetadataCacheTotal,
	)
}
