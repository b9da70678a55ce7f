package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/ktrack/pricecore/pkg/e"
)

// parseUUID parses a UUID or reports ErrStatusBadRequest for an empty
// or malformed value.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, e.ErrStatusBadRequest
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, e.ErrStatusBadRequest
	}
	return id, nil
}

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{Code: code, Message: message}
}

// ToHTTPResponse translates a domain/persistence error into a status
// code and message, matching the teacher's switch-on-errors.Is shape.
func ToHTTPResponse(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrStatusBadRequest), errors.Is(err, e.ErrMissingFields),
		errors.Is(err, e.ErrInvalidInput), errors.Is(err, e.ErrInvalidAsin), errors.Is(err, e.ErrInvalidPrice):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, e.ErrWatchNotFound), errors.Is(err, e.ErrDealFilterNotFound), errors.Is(err, e.ErrUserNotFound):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
