// Package api exposes the engine operations over HTTP to the
// application layer.
package api

import (
	"net/http"
	"time"

	"github.com/redesblock/stash/core/engine"
	"github.com/redesblock/stash/core/logging"
	m "github.com/redesblock/stash/core/metrics"
	"github.com/redesblock/stash/core/tracing"
)

const (
	// PriorityHeader selects the record priority on store requests.
	PriorityHeader = "Stash-Priority"
	// ExpiresAtHeader sets the record expiry deadline, RFC 3339.
	ExpiresAtHeader = "Stash-Expires-At"
	// VersionHeader sets the record version on store requests.
	VersionHeader = "Stash-Version"
)

// Service is the API service interface.
type Service interface {
	http.Handler
	m.Collector
}

type server struct {
	Engine             *engine.Engine
	CORSAllowedOrigins []string
	Logger             logging.Logger
	Tracer             *tracing.Tracer
	http.Handler
	metrics metrics
}

// New creates and initializes a new API service.
func New(e *engine.Engine, corsAllowedOrigins []string, logger logging.Logger, tracer *tracing.Tracer) Service {
	s := &server{
		Engine:             e,
		CORSAllowedOrigins: corsAllowedOrigins,
		Logger:             logger,
		Tracer:             tracer,
		metrics:            newMetrics(),
	}

	s.setupRouting()

	return s
}

// parseExpiresAt reads the expiry header. An empty header means the
// record never expires.
func parseExpiresAt(r *http.Request) (time.Time, error) {
	h := r.Header.Get(ExpiresAtHeader)
	if h == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, h)
}
