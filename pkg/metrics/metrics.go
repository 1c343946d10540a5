package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Dispatch metrics
	TasksDispatched = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ferret_tasks_dispatched_total",
			Help: "Total number of document tasks dispatched to workers",
		},
	)

	DispatchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferret_dispatch_failures_total",
			Help: "Total number of dispatch failures by reason",
		},
		[]string{"reason"},
	)

	// Merge metrics
	PartialsMerged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ferret_partials_merged_total",
			Help: "Total number of partial index results merged",
		},
	)

	IndexTerms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ferret_index_terms",
			Help: "Number of distinct terms in the global inverted index",
		},
	)

	DocsPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ferret_docs_pending",
			Help: "Documents dispatched but not yet merged",
		},
	)

	// Search metrics
	SearchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ferret_searches_total",
			Help: "Total number of search requests served",
		},
	)

	// Worker metrics
	DocumentsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ferret_documents_processed_total",
			Help: "Total number of documents tokenized by this worker",
		},
	)

	ResultPublishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ferret_result_publish_failures_total",
			Help: "Total number of partial results dropped on publish failure",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(TasksDispatched)
	prometheus.MustRegister(DispatchFailures)
	prometheus.MustRegister(PartialsMerged)
	prometheus.MustRegister(IndexTerms)
	prometheus.MustRegister(DocsPending)
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(DocumentsProcessed)
	prometheus.MustRegister(ResultPublishFailures)
}

// Handler returns the HTTP handler serving the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
