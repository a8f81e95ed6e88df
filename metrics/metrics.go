// Package metrics instruments the exploration engine for production
// monitoring, grounded on the teacher repository's PrometheusMetrics: one
// namespaced gauge/counter per quantity worth watching, registered against
// a caller-supplied registry so tests and multiple concurrent analyses
// don't collide on the global default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus collector the engine updates while
// exploring a program.
type Metrics struct {
	queueDepth      prometheus.Gauge
	edgesProcessed  prometheus.Counter
	edgesPruned     *prometheus.CounterVec
	boundRefusals   prometheus.Counter
	summaryHits     prometheus.Counter
	summaryMisses   prometheus.Counter
	summariesStored prometheus.Counter

	enabled bool
}

// New creates and registers the engine's metrics with registry. Pass nil to
// use prometheus.DefaultRegisterer.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		enabled: true,

		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "boundwalk",
			Name:      "queue_depth",
			Help:      "Number of pending (depth, edge) entries in the worklist's priority queue",
		}),

		edgesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "boundwalk",
			Name:      "edges_processed_total",
			Help:      "Cumulative count of worklist edges dequeued and transferred",
		}),

		edgesPruned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boundwalk",
			Name:      "edges_pruned_total",
			Help:      "Cumulative count of edges silently dropped for exceeding the depth bound",
		}, []string{"reason"}), // reason: loop-depth today; the label stays open for a future recursion-depth pruning path

		boundRefusals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "boundwalk",
			Name:      "recursion_bound_refusals_total",
			Help:      "Cumulative count of calls refused by the call stack's per-return-site recursion bound",
		}),

		summaryHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "boundwalk",
			Name:      "summary_cache_hits_total",
			Help:      "Cumulative count of calls resolved by applying a cached summary instead of exploring the body",
		}),

		summaryMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "boundwalk",
			Name:      "summary_cache_misses_total",
			Help:      "Cumulative count of calls that fell through to full body exploration in summaries mode",
		}),

		summariesStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "boundwalk",
			Name:      "summaries_created_total",
			Help:      "Cumulative count of summaries appended to the summary table",
		}),
	}
}

// SetQueueDepth records the worklist's current pending-edge count.
func (m *Metrics) SetQueueDepth(depth int) {
	if !m.enabled {
		return
	}
	m.queueDepth.Set(float64(depth))
}

// EdgeProcessed records one successful worklist dequeue-and-transfer.
func (m *Metrics) EdgeProcessed() {
	if !m.enabled {
		return
	}
	m.edgesProcessed.Inc()
}

// EdgePruned records one edge dropped for exceeding the depth bound.
func (m *Metrics) EdgePruned(reason string) {
	if !m.enabled {
		return
	}
	m.edgesPruned.WithLabelValues(reason).Inc()
}

// BoundRefusal records one call refused by the recursion bound.
func (m *Metrics) BoundRefusal() {
	if !m.enabled {
		return
	}
	m.boundRefusals.Inc()
}

// SummaryCacheHit records one call resolved via a cached summary.
func (m *Metrics) SummaryCacheHit() {
	if !m.enabled {
		return
	}
	m.summaryHits.Inc()
}

// SummaryCacheMiss records one call that fell through to body exploration.
func (m *Metrics) SummaryCacheMiss() {
	if !m.enabled {
		return
	}
	m.summaryMisses.Inc()
}

// SummaryCreated records one summary appended to the summary table.
func (m *Metrics) SummaryCreated() {
	if !m.enabled {
		return
	}
	m.summariesStored.Inc()
}

// Noop returns a disabled Metrics value: every recording method becomes a
// no-op, useful for callers that don't want to register collectors at all
// (e.g. unit tests run in parallel against the default registry).
func Noop() *Metrics {
	return &Metrics{enabled: false}
}
