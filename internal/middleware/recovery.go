package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"zotion/internal/httputil"
)

// Recovery middleware recovers from panics and returns a 500 error.
// When the handler already started a response (an SSE stream, say) only the log is written.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &headerRecorder{ResponseWriter: w}
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						"error", err,
						"path", r.URL.Path,
						"method", r.Method,
						"stack", string(debug.Stack()),
					)

					if !rec.wroteHeader {
						httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
					}
				}
			}()

			next.ServeHTTP(rec, r)
		})
	}
}

type headerRecorder struct {
	http.ResponseWriter
	wroteHeader bool
}

func (h *headerRecorder) WriteHeader(status int) {
	h.wroteHeader = true
	h.ResponseWriter.WriteHeader(status)
}

func (h *headerRecorder) Write(b []byte) (int, error) {
	h.wroteHeader = true
	return h.ResponseWriter.Write(b)
}

// Flush keeps SSE handlers working behind the recorder.
func (h *headerRecorder) Flush() {
	if f, ok := h.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (h *headerRecorder) Unwrap() http.ResponseWriter {
	return h.ResponseWriter
}
