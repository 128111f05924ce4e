package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"notetree/internal/httputil"
)

// Recovery turns a handler panic into a 500 problem response carrying the request
// id. http.ErrAbortHandler is re-raised for net/http to abort the connection. A
// panic after the response started, such as mid event stream, is only logged.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}

				// RequestLogger sits inside this middleware; its id is only on the response
				requestID := w.Header().Get("X-Request-ID")
				logger.Error("panic recovered",
					"error", v,
					"request_id", requestID,
					"method", r.Method,
					"path", r.URL.Path,
					"response_started", rec.started,
					"stack", string(debug.Stack()),
				)
				if rec.started {
					return
				}

				var extras map[string]any
				if requestID != "" {
					extras = map[string]any{"request_id": requestID}
				}
				httputil.RespondErrorWithExtras(w, http.StatusInternalServerError, "internal server error", extras)
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
