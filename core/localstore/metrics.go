package localstore

import (
	m "github.com/redesblock/stash/core/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	PutCounter           prometheus.Counter
	PutFailCounter       prometheus.Counter
	GetCounter           prometheus.Counter
	GetNotFoundCounter   prometheus.Counter
	GetByCategoryCounter prometheus.Counter
	ExpiredCounter       prometheus.Counter
	CorruptCounter       prometheus.Counter
	DeleteCounter        prometheus.Counter
	SetSyncedCounter     prometheus.Counter
	GCCounter            prometheus.Counter
	GCErrorCounter       prometheus.Counter
	GCCollectedCounter   prometheus.Counter
	SweptCounter         prometheus.Counter
}

func newMetrics() metrics {
	subsystem := "localstore"

	return metrics{
		PutCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "put_count",
			Help:      "Number of records stored.",
		}),
		PutFailCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "put_fail_count",
			Help:      "Number of failed store operations.",
		}),
		GetCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "get_count",
			Help:      "Number of record retrievals.",
		}),
		GetNotFoundCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "get_not_found_count",
			Help:      "Number of retrievals for missing records.",
		}),
		GetByCategoryCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "get_by_category_count",
			Help:      "Number of category listings.",
		}),
		ExpiredCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "expired_count",
			Help:      "Number of records removed after passing their expiry.",
		}),
		CorruptCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "corrupt_count",
			Help:      "Number of undecodable records removed.",
		}),
		DeleteCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "delete_count",
			Help:      "Number of record deletions.",
		}),
		SetSyncedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "set_synced_count",
			Help:      "Number of records marked as synced.",
		}),
		GCCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "gc_count",
			Help:      "Number of eviction rounds.",
		}),
		GCErrorCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "gc_error_count",
			Help:      "Number of failed eviction rounds.",
		}),
		GCCollectedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "gc_collected_count",
			Help:      "Number of records removed by eviction.",
		}),
		SweptCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "swept_count",
			Help:      "Number of records removed by the age sweep.",
		}),
	}
}

// Metrics returns the prometheus collectors of the store.
func (db *DB) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(db.metrics)
}
