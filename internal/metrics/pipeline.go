package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fitpick",
			Name:      "upstream_requests_total",
			Help:      "Total number of model provider requests",
		},
		[]string{"component", "model", "status"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fitpick",
			Name:      "upstream_request_duration_seconds",
			Help:      "Model provider request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"component", "model"},
	)

	ValidationResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fitpick",
			Name:      "validation_results_total",
			Help:      "Per-candidate validation outcomes",
		},
		[]string{"result"}, // "approved" / "rejected" / "failed"
	)

	RejectedQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fitpick",
			Name:      "rejected_queries_total",
			Help:      "Queries judged out of domain by the expander",
		},
	)

	CatalogProducts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fitpick",
			Name:      "catalog_products",
			Help:      "Number of products loaded into the in-memory catalog",
		},
	)

	CatalogRowsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fitpick",
			Name:      "catalog_rows_dropped_total",
			Help:      "Catalog rows dropped during loading due to mapping failures",
		},
	)
)

// RegisterPipelineMetrics registers pipeline Prometheus metrics. Must be called
// once from main.
func RegisterPipelineMetrics() {
	prometheus.MustRegister(
		UpstreamRequestsTotal,
		UpstreamRequestDuration,
		ValidationResultsTotal,
		RejectedQueriesTotal,
		CatalogProducts,
		CatalogRowsDroppedTotal,
	)
}
