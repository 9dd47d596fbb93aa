package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"resenje.org/web"

	"github.com/redesblock/stash/core/jsonhttp"
	"github.com/redesblock/stash/core/logging"
)

func (s *server) setupRouting() {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(jsonhttp.NotFoundHandler)

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "stash engine")
	})

	router.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "User-agent: *\nDisallow: /")
	})

	router.Handle("/health", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.healthHandler),
	})

	router.Handle("/records/{id}/synced", jsonhttp.MethodHandler{
		"POST": http.HandlerFunc(s.recordSetSyncedHandler),
	})

	router.Handle("/records/{category}/{id}", jsonhttp.MethodHandler{
		"PUT": http.HandlerFunc(s.recordStoreHandler),
	})

	router.Handle("/records/{id}", jsonhttp.MethodHandler{
		"GET":    http.HandlerFunc(s.recordGetHandler),
		"DELETE": http.HandlerFunc(s.recordDeleteHandler),
	})

	router.Handle("/categories/{category}", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.categoryListHandler),
	})

	router.Handle("/sync", jsonhttp.MethodHandler{
		"POST": http.HandlerFunc(s.syncProcessHandler),
	})

	router.Handle("/sync/queue", jsonhttp.MethodHandler{
		"GET":  http.HandlerFunc(s.syncQueueListHandler),
		"POST": http.HandlerFunc(s.syncQueueHandler),
	})

	router.Handle("/sync/stats", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.syncStatsHandler),
	})

	router.Handle("/settings", jsonhttp.MethodHandler{
		"GET":   http.HandlerFunc(s.settingsGetHandler),
		"PATCH": http.HandlerFunc(s.settingsUpdateHandler),
	})

	router.Handle("/metadata", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.metadataGetHandler),
	})

	router.Handle("/online", jsonhttp.MethodHandler{
		"PUT": http.HandlerFunc(s.onlineHandler),
	})

	router.Handle("/cleanup", jsonhttp.MethodHandler{
		"POST": http.HandlerFunc(s.cleanupHandler),
	})

	router.Handle("/export", jsonhttp.MethodHandler{
		"GET": http.HandlerFunc(s.exportHandler),
	})

	router.Handle("/import", jsonhttp.MethodHandler{
		"POST": http.HandlerFunc(s.importHandler),
	})

	router.Handle("/clear", jsonhttp.MethodHandler{
		"POST": http.HandlerFunc(s.clearHandler),
	})

	s.Handler = web.ChainHandlers(
		logging.NewHTTPAccessLogHandler(s.Logger, logrus.InfoLevel, "api access"),
		handlers.CompressHandler,
		s.corsHandler,
		s.recoveryHandler,
		s.pageviewMetricsHandler,
		web.FinalHandler(router),
	)
}

func (s *server) corsHandler(h http.Handler) http.Handler {
	if len(s.CORSAllowedOrigins) == 0 {
		return h
	}
	return handlers.CORS(
		handlers.AllowedOrigins(s.CORSAllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE"}),
		handlers.AllowedHeaders([]string{"Content-Type", PriorityHeader, ExpiresAtHeader, VersionHeader}),
	)(h)
}

func (s *server) recoveryHandler(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				s.metrics.PanicCounter.Inc()
				s.Logger.Errorf("api: handler panic: %v", p)
				jsonhttp.InternalServerError(w, nil)
			}
		}()
		h.ServeHTTP(w, r)
	})
}
