// Package metrics exposes prometheus counters for the import pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics for the service.
type Metrics struct {
	RowsImported      prometheus.Counter
	MergesRun         prometheus.Counter
	IdentitiesAdopted prometheus.Counter
	UnresolvedRows    prometheus.Counter
	RowSaves          *prometheus.CounterVec
	Exports           prometheus.Counter
	MergeDuration     prometheus.Histogram
}

// New registers and returns the pipeline metrics under the given namespace.
func New(namespace string) *Metrics {
	return &Metrics{
		RowsImported: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_imported_total",
			Help:      "The total number of spreadsheet rows normalized into working tables",
		}),
		MergesRun: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "merges_run_total",
			Help:      "The total number of reconciliation passes against the authoritative roster",
		}),
		IdentitiesAdopted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identities_adopted_total",
			Help:      "The total number of local rows that adopted a server-assigned ID",
		}),
		UnresolvedRows: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_rows_total",
			Help:      "The total number of rows left without a server identity after a merge",
		}),
		RowSaves: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "row_saves_total",
			Help:      "The total number of per-row save submissions by result",
		}, []string{"result"}),
		Exports: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "The total number of workbook exports",
		}),
		MergeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "merge_duration_seconds",
			Help:      "Time taken to reconcile a working table",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
