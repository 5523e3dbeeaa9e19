// Package handler contains the HTTP handlers of the public and admin listeners.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/V4T54L/tenant-gateway/internal/adapter/api/response"
	"github.com/V4T54L/tenant-gateway/internal/domain"
)

// DefaultMaxBodyBytes bounds request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

var errInvalidJSON = domain.ErrValidation.WithMessage("Invalid JSON body")

// decodeJSON reads at most maxBytes of r's body into v. An empty body leaves
// v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v interface{}) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	default:
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return maxBytesErr
		}
		return errInvalidJSON.Wrap(err)
	}
}

// respondWithDecodeError renders a decodeJSON failure.
func respondWithDecodeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		response.JSON(w, logger, http.StatusRequestEntityTooLarge, response.ErrorBody{Error: "Request body too large"})
		return
	}
	response.Error(w, logger, err)
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Health returns a handler reporting the named service as healthy.
func Health(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, nil, http.StatusOK, healthResponse{Status: "healthy", Service: service})
	}
}
