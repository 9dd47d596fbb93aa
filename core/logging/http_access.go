package logging

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

type accessLogLevelContextKey struct{}

// SetAccessLogLevelHandler overrides the log level access log lines of
// the wrapped handlers are emitted at. Level 0 suppresses them.
func SetAccessLogLevelHandler(level logrus.Level) func(h http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// mutate the request so the outer access log handler,
			// which holds the original request, sees the override
			*r = *r.WithContext(
				context.WithValue(r.Context(), accessLogLevelContextKey{}, level),
			)
			h.ServeHTTP(w, r)
		})
	}
}

type accessLogResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *accessLogResponseWriter) WriteHeader(status int) {
	w.ResponseWriter.WriteHeader(status)
	if w.status == 0 {
		w.status = status
	}
}

func (w *accessLogResponseWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// NewHTTPAccessLogHandler returns a middleware that logs one line
// per served HTTP request at the provided level.
func NewHTTPAccessLogHandler(logger Logger, level logrus.Level, message string) func(h http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			alw := &accessLogResponseWriter{ResponseWriter: w}
			startTime := time.Now()

			h.ServeHTTP(alw, r)

			level := level
			if lev, ok := r.Context().Value(accessLogLevelContextKey{}).(logrus.Level); ok {
				level = lev
			}

			status := alw.status
			if status == 0 {
				status = http.StatusOK
			}
			fields := logrus.Fields{
				"duration": time.Since(startTime).Seconds(),
				"ip":       r.RemoteAddr,
				"method":   r.Method,
				"uri":      r.RequestURI,
				"proto":    r.Proto,
				"status":   status,
				"size":     alw.size,
			}
			if v := r.Referer(); v != "" {
				fields["referrer"] = v
			}
			if v := r.UserAgent(); v != "" {
				fields["user-agent"] = v
			}
			entry := logger.WithFields(fields)
			switch level {
			case logrus.TraceLevel:
				entry.Trace(message)
			case logrus.DebugLevel:
				entry.Debug(message)
			case logrus.InfoLevel:
				entry.Info(message)
			case logrus.WarnLevel:
				entry.Warning(message)
			case logrus.ErrorLevel:
				entry.Error(message)
			}
		})
	}
}
