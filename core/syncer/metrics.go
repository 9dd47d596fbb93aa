package syncer

import (
	m "github.com/redesblock/stash/core/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	QueuedCounter         prometheus.Counter
	SyncedCounter         prometheus.Counter
	RetryCounter          prometheus.Counter
	PermanentFailCounter  prometheus.Counter
	PassCounter           prometheus.Counter
	DroppedTriggerCounter prometheus.Counter
}

func newMetrics() metrics {
	subsystem := "syncer"

	return metrics{
		QueuedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "queued_count",
			Help:      "Number of operations appended to the sync queue.",
		}),
		SyncedCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "synced_count",
			Help:      "Number of operations transmitted successfully.",
		}),
		RetryCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "retry_count",
			Help:      "Number of failed attempts rescheduled for retry.",
		}),
		PermanentFailCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "permanent_fail_count",
			Help:      "Number of operations dropped after exhausting retries.",
		}),
		PassCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "pass_count",
			Help:      "Number of queue passes started.",
		}),
		DroppedTriggerCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "dropped_trigger_count",
			Help:      "Number of triggers dropped because a pass was running.",
		}),
	}
}

// Metrics returns the prometheus collectors of the syncer.
func (s *Syncer) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(s.metrics)
}
