package api

import (
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/redesblock/stash/core/engine"
	"github.com/redesblock/stash/core/jsonhttp"
	"github.com/redesblock/stash/core/storage"
	"github.com/redesblock/stash/core/tracing"
)

type recordResponse struct {
	ID        string          `json:"id"`
	Category  string          `json:"category"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"lastUpdated"`
	Synced    bool            `json:"synced"`
	Priority  string          `json:"priority"`
	ExpiresAt *time.Time      `json:"expiresAt,omitempty"`
	Version   uint64          `json:"version"`
}

func newRecordResponse(r storage.Record) recordResponse {
	resp := recordResponse{
		ID:        r.ID,
		Category:  r.Category,
		Data:      json.RawMessage(r.Data),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Synced:    r.Synced,
		Priority:  r.Priority.String(),
		Version:   r.Version,
	}
	if !r.ExpiresAt.IsZero() {
		expiresAt := r.ExpiresAt
		resp.ExpiresAt = &expiresAt
	}
	return resp
}

func (s *server) recordStoreHandler(w http.ResponseWriter, r *http.Request) {
	span, logger, ctx := s.Tracer.StartSpanFromContext(r.Context(), "record-store", s.Logger)
	defer span.Finish()

	vars := mux.Vars(r)
	data, err := ioutil.ReadAll(r.Body)
	if err != nil {
		logger.Debugf("record store: read body: %v", err)
		jsonhttp.BadRequest(w, "cannot read request body")
		return
	}
	if !json.Valid(data) {
		jsonhttp.BadRequest(w, "payload is not valid json")
		return
	}

	o := &engine.StoreOptions{Priority: storage.PriorityNormal}
	if h := r.Header.Get(PriorityHeader); h != "" {
		o.Priority = storage.ParsePriority(h)
	}
	o.ExpiresAt, err = parseExpiresAt(r)
	if err != nil {
		jsonhttp.BadRequest(w, "invalid expiry header")
		return
	}
	if h := r.Header.Get(VersionHeader); h != "" {
		o.Version, err = strconv.ParseUint(h, 10, 64)
		if err != nil {
			jsonhttp.BadRequest(w, "invalid version header")
			return
		}
	}

	stored, err := s.Engine.StoreData(ctx, vars["id"], vars["category"], data, o)
	if err != nil {
		logger.Errorf("record store: %v", err)
		jsonhttp.InternalServerError(w, nil)
		return
	}
	jsonhttp.Created(w, newRecordResponse(stored))
}

func (s *server) recordGetHandler(w http.ResponseWriter, r *http.Request) {
	logger := tracing.NewLoggerWithTraceID(r.Context(), s.Logger)

	id := mux.Vars(r)["id"]
	rec, err := s.Engine.GetData(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonhttp.NotFound(w, nil)
			return
		}
		logger.Errorf("record get %q: %v", id, err)
		jsonhttp.InternalServerError(w, nil)
		return
	}
	jsonhttp.OK(w, newRecordResponse(rec))
}

func (s *server) recordDeleteHandler(w http.ResponseWriter, r *http.Request) {
	logger := tracing.NewLoggerWithTraceID(r.Context(), s.Logger)

	id := mux.Vars(r)["id"]
	existed, err := s.Engine.DeleteData(r.Context(), id)
	if err != nil {
		logger.Errorf("record delete %q: %v", id, err)
		jsonhttp.InternalServerError(w, nil)
		return
	}
	if !existed {
		jsonhttp.NotFound(w, nil)
		return
	}
	jsonhttp.OK(w, nil)
}

func (s *server) recordSetSyncedHandler(w http.ResponseWriter, r *http.Request) {
	logger := tracing.NewLoggerWithTraceID(r.Context(), s.Logger)

	id := mux.Vars(r)["id"]
	if err := s.Engine.MarkAsSynced(r.Context(), id); err != nil {
		logger.Errorf("record mark synced %q: %v", id, err)
		jsonhttp.InternalServerError(w, nil)
		return
	}
	jsonhttp.OK(w, nil)
}

func (s *server) categoryListHandler(w http.ResponseWriter, r *http.Request) {
	logger := tracing.NewLoggerWithTraceID(r.Context(), s.Logger)

	category := mux.Vars(r)["category"]
	records, err := s.Engine.GetDataByType(r.Context(), category)
	if err != nil {
		logger.Errorf("category list %q: %v", category, err)
		jsonhttp.InternalServerError(w, nil)
		return
	}
	resp := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, newRecordResponse(rec))
	}
	jsonhttp.OK(w, resp)
}
