package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/speakerid/logger"
)

// opsPaths are polled by orchestrators and never logged.
var opsPaths = map[string]bool{"/health": true, "/ready": true, "/version": true}

// RequestLogger logs one line per request: 5xx at Error, 4xx at Warn and
// the rest at Debug.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opsPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			began := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			fields := logger.Fields(
				"method", r.Method,
				logger.FieldPath, r.URL.Path,
				logger.FieldStatus, sw.status,
				logger.FieldDuration, time.Since(began).Milliseconds(),
				logger.FieldRequestID, r.Header.Get(HeaderRequestID),
			)
			switch {
			case sw.status >= http.StatusInternalServerError:
				log.Error("request", fields)
			case sw.status >= http.StatusBadRequest:
				log.Warn("request", fields)
			default:
				log.Debug("request", fields)
			}
		})
	}
}

// statusWriter remembers the first status written.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.status, w.written = code, true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
