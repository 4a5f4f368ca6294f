package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// requestLogger is a chi LogFormatter that writes one logrus entry per
// request, so access logs share the application's log stream and format.
type requestLogger struct {
	log *logrus.Logger
}

func (l requestLogger) NewLogEntry(r *http.Request) middleware.LogEntry {
	fields := logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"remote": r.RemoteAddr,
	}
	if id := middleware.GetReqID(r.Context()); id != "" {
		fields["request_id"] = id
	}
	return &requestLogEntry{entry: l.log.WithFields(fields)}
}

type requestLogEntry struct {
	entry *logrus.Entry
}

func (e *requestLogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	entry := e.entry.WithFields(logrus.Fields{
		"status":     status,
		"bytes":      bytes,
		"elapsed_ms": elapsed.Milliseconds(),
	})
	if status >= http.StatusInternalServerError {
		entry.Warn("request completed")
		return
	}
	entry.Info("request completed")
}

func (e *requestLogEntry) Panic(v interface{}, stack []byte) {
	e.entry.WithFields(logrus.Fields{
		"panic": v,
		"stack": string(stack),
	}).Error("request panicked")
}
