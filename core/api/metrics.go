package api

import (
	"net/http"

	m "github.com/redesblock/stash/core/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	RequestCounter prometheus.Counter
	PanicCounter   prometheus.Counter
}

func newMetrics() metrics {
	subsystem := "api"

	return metrics{
		RequestCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "request_count",
			Help:      "Number of API requests.",
		}),
		PanicCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "panic_count",
			Help:      "Number of recovered handler panics.",
		}),
	}
}

func (s *server) pageviewMetricsHandler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.metrics.RequestCounter.Inc()
		h.ServeHTTP(w, r)
	})
}

func (s *server) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(s.metrics)
}
