package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/redesblock/stash/core/jsonhttp"
	"github.com/redesblock/stash/core/storage"
	"github.com/redesblock/stash/core/syncer"
	"github.com/redesblock/stash/core/tracing"
)

type syncQueueRequest struct {
	Action     storage.Action  `json:"action"`
	TargetType string          `json:"targetType"`
	Data       json.RawMessage `json:"data"`
	Priority   string          `json:"priority"`
	MaxRetries int             `json:"maxRetries"`
}

func (s *server) syncQueueHandler(w http.ResponseWriter, r *http.Request) {
	logger := tracing.NewLoggerWithTraceID(r.Context(), s.Logger)

	var req syncQueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonhttp.BadRequest(w, "invalid request body")
		return
	}
	o := &syncer.EnqueueOptions{
		Priority:   storage.ParsePriority(req.Priority),
		MaxRetries: req.MaxRetries,
	}
	if err := s.Engine.QueueSync(r.Context(), req.Action, req.TargetType, req.Data, o); err != nil {
		if errors.Is(err, storage.ErrInvalidAction) {
			jsonhttp.BadRequest(w, "invalid action")
			return
		}
		logger.Errorf("sync queue: %v", err)
		jsonhttp.InternalServerError(w, nil)
		return
	}
	jsonhttp.Created(w, nil)
}

func (s *server) syncQueueListHandler(w http.ResponseWriter, r *http.Request) {
	logger := tracing.NewLoggerWithTraceID(r.Context(), s.Logger)

	ops, err := s.Engine.PendingSync()
	if err != nil {
		logger.Errorf("sync queue list: %v", err)
		jsonhttp.InternalServerError(w, nil)
		return
	}
	if ops == nil {
		ops = []storage.SyncOperation{}
	}
	jsonhttp.OK(w, ops)
}

type syncProcessResponse struct {
	Completed int `json:"completed"`
}

func (s *server) syncProcessHandler(w http.ResponseWriter, r *http.Request) {
	span, logger, ctx := s.Tracer.StartSpanFromContext(r.Context(), "sync-process", s.Logger)
	defer span.Finish()

	completed, err := s.Engine.ProcessSyncQueue(ctx)
	if err != nil {
		logger.Errorf("sync process: %v", err)
		jsonhttp.InternalServerError(w, nil)
		return
	}
	jsonhttp.OK(w, syncProcessResponse{Completed: completed})
}

func (s *server) syncStatsHandler(w http.ResponseWriter, r *http.Request) {
	logger := tracing.NewLoggerWithTraceID(r.Context(), s.Logger)

	stats, err := s.Engine.GetSyncStats(r.Context())
	if err != nil {
		logger.Errorf("sync stats: %v", err)
		jsonhttp.InternalServerError(w, nil)
		return
	}
	jsonhttp.OK(w, stats)
}

type onlineRequest struct {
	Online bool `json:"online"`
}

func (s *server) onlineHandler(w http.ResponseWriter, r *http.Request) {
	logger := tracing.NewLoggerWithTraceID(r.Context(), s.Logger)

	var req onlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonhttp.BadRequest(w, "invalid request body")
		return
	}
	if err := s.Engine.SetOnline(r.Context(), req.Online); err != nil {
		logger.Errorf("set online: %v", err)
		jsonhttp.InternalServerError(w, nil)
		return
	}
	jsonhttp.OK(w, onlineRequest{Online: s.Engine.Online()})
}
