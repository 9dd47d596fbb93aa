package api

import (
	"net/http"

	stash "github.com/redesblock/stash"
	"github.com/redesblock/stash/core/jsonhttp"
)

type statusResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Online  bool   `json:"online"`
}

func (s *server) healthHandler(w http.ResponseWriter, r *http.Request) {
	jsonhttp.OK(w, statusResponse{
		Status:  "ok",
		Version: stash.Version,
		Online:  s.Engine.Online(),
	})
}
