package api

import (
	"net/http"

	"github.com/redesblock/stash/core/jsonhttp"
)

func (s *server) cleanupHandler(w http.ResponseWriter, r *http.Request) {
	span, logger, ctx := s.Tracer.StartSpanFromContext(r.Context(), "cleanup", s.Logger)
	defer span.Finish()

	if err := s.Engine.Cleanup(ctx); err != nil {
		logger.Errorf("cleanup: %v", err)
		jsonhttp.InternalServerError(w, nil)
		return
	}
	jsonhttp.OK(w, nil)
}

func (s *server) exportHandler(w http.ResponseWriter, r *http.Request) {
	span, logger, ctx := s.Tracer.StartSpanFromContext(r.Context(), "export", s.Logger)
	defer span.Finish()

	w.Header().Set("Content-Type", "application/x-tar")
	w.Header().Set("Content-Disposition", `attachment; filename="stash-export.tar"`)
	if err := s.Engine.Export(ctx, w); err != nil {
		// the response is already partly written, all that is left is
		// logging
		logger.Errorf("export: %v", err)
	}
}

func (s *server) importHandler(w http.ResponseWriter, r *http.Request) {
	span, logger, ctx := s.Tracer.StartSpanFromContext(r.Context(), "import", s.Logger)
	defer span.Finish()

	if err := s.Engine.Import(ctx, r.Body); err != nil {
		logger.Debugf("import: %v", err)
		jsonhttp.BadRequest(w, err)
		return
	}
	jsonhttp.OK(w, nil)
}

func (s *server) clearHandler(w http.ResponseWriter, r *http.Request) {
	span, logger, ctx := s.Tracer.StartSpanFromContext(r.Context(), "clear", s.Logger)
	defer span.Finish()

	if err := s.Engine.ClearAll(ctx); err != nil {
		logger.Errorf("clear: %v", err)
		jsonhttp.InternalServerError(w, nil)
		return
	}
	jsonhttp.OK(w, nil)
}
