package api

import (
	"encoding/json"
	"net/http"

	"github.com/redesblock/stash/core/jsonhttp"
	"github.com/redesblock/stash/core/storage"
	"github.com/redesblock/stash/core/tracing"
)

func (s *server) settingsGetHandler(w http.ResponseWriter, r *http.Request) {
	jsonhttp.OK(w, s.Engine.Settings())
}

func (s *server) settingsUpdateHandler(w http.ResponseWriter, r *http.Request) {
	logger := tracing.NewLoggerWithTraceID(r.Context(), s.Logger)

	var patch storage.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		jsonhttp.BadRequest(w, "invalid request body")
		return
	}
	updated, err := s.Engine.UpdateSettings(r.Context(), patch)
	if err != nil {
		logger.Errorf("settings update: %v", err)
		jsonhttp.InternalServerError(w, nil)
		return
	}
	jsonhttp.OK(w, updated)
}

func (s *server) metadataGetHandler(w http.ResponseWriter, r *http.Request) {
	jsonhttp.OK(w, s.Engine.Metadata())
}
