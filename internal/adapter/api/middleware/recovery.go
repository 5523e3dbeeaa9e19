package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/V4T54L/tenant-gateway/internal/adapter/api/response"
)

// Recovery recovers from panics in downstream handlers and returns a 500.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic recovered",
					"error", rec,
					"path", r.URL.Path,
					"request_id", RequestIDFromContext(r.Context()),
					"stack", string(debug.Stack()),
				)
				response.JSON(w, logger, http.StatusInternalServerError, response.ErrorBody{Error: "Internal server error"})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
