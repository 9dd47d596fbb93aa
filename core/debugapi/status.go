package debugapi

import (
	"net/http"

	stash "github.com/redesblock/stash"
	"github.com/redesblock/stash/core/jsonhttp"
	"github.com/redesblock/stash/core/storage"
)

type statusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *server) statusHandler(w http.ResponseWriter, r *http.Request) {
	jsonhttp.OK(w, statusResponse{
		Status:  "ok",
		Version: stash.Version,
	})
}

type engineStatusResponse struct {
	Online   bool              `json:"online"`
	Settings storage.Settings  `json:"settings"`
	Metadata storage.Metadata  `json:"metadata"`
	Stats    storage.SyncStats `json:"stats"`
}

func (s *server) engineStatusHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Engine.GetSyncStats(r.Context())
	if err != nil {
		s.Logger.Errorf("debug api: engine status: %v", err)
		jsonhttp.InternalServerError(w, nil)
		return
	}
	jsonhttp.OK(w, engineStatusResponse{
		Online:   s.Engine.Online(),
		Settings: s.Engine.Settings(),
		Metadata: s.Engine.Metadata(),
		Stats:    stats,
	})
}
