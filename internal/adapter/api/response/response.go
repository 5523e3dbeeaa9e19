// Package response writes the JSON bodies shared by handlers and middleware.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/V4T54L/tenant-gateway/internal/domain"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error    string `json:"error"`
	Message  string `json:"message,omitempty"`
	Details  string `json:"details,omitempty"`
	Solution string `json:"solution,omitempty"`
}

// JSON writes payload with the given status code.
func JSON(w http.ResponseWriter, logger *slog.Logger, code int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		if logger != nil {
			logger.Error("failed to marshal JSON response", "error", err)
		}
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Internal Server Error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindPermissionDenied:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error renders err. A *domain.Error is rendered with its own status and
// fields; anything else becomes a 500 carrying the raw message.
func Error(w http.ResponseWriter, logger *slog.Logger, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		if logger != nil {
			logger.Error("unhandled error", "error", err)
		}
		JSON(w, logger, http.StatusInternalServerError, ErrorBody{Error: err.Error()})
		return
	}

	status := StatusFor(de.Kind)
	if logger != nil {
		if status >= http.StatusInternalServerError {
			logger.Error("request failed", "code", de.Code, "error", err)
		} else {
			logger.Debug("request rejected", "code", de.Code, "status", status, "error", err)
		}
	}
	JSON(w, logger, status, ErrorBody{
		Error:    de.Message,
		Message:  de.Detail,
		Details:  de.Details,
		Solution: de.Solution,
	})
}
