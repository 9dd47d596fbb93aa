// Package debugapi exposes the debug API used to analyze runtime
// features of the engine: prometheus metrics, pprof profiles, the
// health and readiness probes and the engine status.
package debugapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/redesblock/stash/core/engine"
	"github.com/redesblock/stash/core/logging"
)

// Service is the debug API service interface.
type Service interface {
	http.Handler
	MustRegisterMetrics(cs ...prometheus.Collector)
}

type server struct {
	Engine          *engine.Engine
	Logger          logging.Logger
	metricsRegistry *prometheus.Registry
	http.Handler
}

// New creates and initializes a new debug API service.
func New(e *engine.Engine, logger logging.Logger) Service {
	s := &server{
		Engine:          e,
		Logger:          logger,
		metricsRegistry: newMetricsRegistry(),
	}

	s.setupRouting()

	return s
}
