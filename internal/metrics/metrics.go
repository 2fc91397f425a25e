// Package metrics exposes Prometheus instrumentation for the reconciliation
// and bulk-action paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all collectors. Label values are low-cardinality enums only.
type Metrics struct {
	ReconcilePasses    prometheus.Counter
	ReconcileFailures  prometheus.Counter
	ReconcileSkipped   prometheus.Counter
	FetchDuration      prometheus.Histogram
	PushEventsApplied  *prometheus.CounterVec
	PushEventsDropped  prometheus.Counter
	BulkItems          *prometheus.CounterVec
	BulkBatches        *prometheus.CounterVec
	EntitiesTracked    *prometheus.GaugeVec
}

// New registers all collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReconcilePasses: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardview_reconcile_passes_total",
			Help: "Completed full-fetch reconciliation passes.",
		}),
		ReconcileFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardview_reconcile_failures_total",
			Help: "Reconciliation passes that failed before merging.",
		}),
		ReconcileSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardview_reconcile_skipped_total",
			Help: "Poll ticks skipped because a fetch was already in flight.",
		}),
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "guardview_fetch_duration_seconds",
			Help:    "Wall time of the remote fetch phase of a reconciliation pass.",
			Buckets: prometheus.DefBuckets,
		}),
		PushEventsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guardview_push_events_applied_total",
			Help: "Push-channel events merged into the entity store.",
		}, []string{"type"}),
		PushEventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "guardview_push_events_dropped_total",
			Help: "Push-channel payloads dropped as malformed.",
		}),
		BulkItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guardview_bulk_items_total",
			Help: "Per-item bulk action outcomes.",
		}, []string{"action", "status"}),
		BulkBatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guardview_bulk_batches_total",
			Help: "Bulk action batches by final status.",
		}, []string{"action", "status"}),
		EntitiesTracked: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "guardview_entities_tracked",
			Help: "Entities currently held in the canonical store.",
		}, []string{"kind"}),
	}
}
