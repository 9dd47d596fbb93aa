package shed

import (
	"github.com/prometheus/client_golang/prometheus"

	m "github.com/redesblock/stash/core/metrics"
)

type metrics struct {
	PutCounter            prometheus.Counter
	PutFailCounter        prometheus.Counter
	GetCounter            prometheus.Counter
	GetFailCounter        prometheus.Counter
	GetNotFoundCounter    prometheus.Counter
	HasCounter            prometheus.Counter
	HasFailCounter        prometheus.Counter
	DeleteCounter         prometheus.Counter
	DeleteFailCounter     prometheus.Counter
	IteratorCounter       prometheus.Counter
	WriteBatchCounter     prometheus.Counter
	WriteBatchFailCounter prometheus.Counter
}

func newMetrics() metrics {
	subsystem := "shed"

	return metrics{
		PutCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "put_count",
			Help:      "Number of successful DB put operations.",
		}),
		PutFailCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "put_fail_count",
			Help:      "Number of failed DB put operations.",
		}),
		GetCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "get_count",
			Help:      "Number of successful DB get operations.",
		}),
		GetFailCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "get_fail_count",
			Help:      "Number of failed DB get operations.",
		}),
		GetNotFoundCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "get_not_found_count",
			Help:      "Number of DB get operations for missing keys.",
		}),
		HasCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "has_count",
			Help:      "Number of successful DB has operations.",
		}),
		HasFailCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "has_fail_count",
			Help:      "Number of failed DB has operations.",
		}),
		DeleteCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "delete_count",
			Help:      "Number of successful DB delete operations.",
		}),
		DeleteFailCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "delete_fail_count",
			Help:      "Number of failed DB delete operations.",
		}),
		IteratorCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "iterator_count",
			Help:      "Number of created DB iterators.",
		}),
		WriteBatchCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "write_batch_count",
			Help:      "Number of successful DB write batch operations.",
		}),
		WriteBatchFailCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "write_batch_fail_count",
			Help:      "Number of failed DB write batch operations.",
		}),
	}
}

// Metrics returns set of prometheus collectors.
func (db *DB) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(db.metrics)
}
