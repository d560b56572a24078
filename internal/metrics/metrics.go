// Package metrics exposes Prometheus collectors for the normalization
// service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	recordsTotal        *prometheus.CounterVec
	entitiesCreated     *prometheus.CounterVec
	linksCreated        *prometheus.CounterVec
	countersIncremented *prometheus.CounterVec
	activeWorkers       prometheus.Gauge
	queueDepth          prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus collectors. It is safe to call this
// function multiple times.
func Init() {
	once.Do(func() {
		recordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storygraph_records_total",
				Help: "Total raw records processed, labeled by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		)

		entitiesCreated = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storygraph_entities_created_total",
				Help: "Total entity documents created, labeled by collection.",
			},
			[]string{"collection"},
		)

		linksCreated = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storygraph_links_created_total",
				Help: "Total association links created, labeled by link collection.",
			},
			[]string{"collection"},
		)

		countersIncremented = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storygraph_counter_increments_total",
				Help: "Total derived-counter increments, labeled by counter field.",
			},
			[]string{"field"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "storygraph_active_workers",
				Help: "Number of ingest workers currently processing a record.",
			},
		)

		queueDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "storygraph_queue_depth",
				Help: "Records waiting in the ingest queue.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRecord increments the processed-record counter.
func ObserveRecord(kind, outcome string) {
	Init()
	recordsTotal.WithLabelValues(kind, outcome).Inc()
}

// ObserveEntityCreated increments the created-entity counter.
func ObserveEntityCreated(collection string) {
	Init()
	entitiesCreated.WithLabelValues(collection).Inc()
}

// ObserveLinkCreated increments the created-link counter.
func ObserveLinkCreated(collection string) {
	Init()
	linksCreated.WithLabelValues(collection).Inc()
}

// ObserveCounterIncrement increments the derived-counter counter.
func ObserveCounterIncrement(field string) {
	Init()
	countersIncremented.WithLabelValues(field).Inc()
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}

// SetQueueDepth records the current ingest queue depth.
func SetQueueDepth(depth int) {
	Init()
	queueDepth.Set(float64(depth))
}
