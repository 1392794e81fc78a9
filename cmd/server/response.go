package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Simplici0/charterquote/internal/airport"
	"github.com/Simplici0/charterquote/internal/catalog"
	"github.com/Simplici0/charterquote/internal/freeze"
	"github.com/Simplici0/charterquote/internal/session"
	"github.com/Simplici0/charterquote/internal/store"
)

type apiResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func respondWithSuccess(w http.ResponseWriter, statusCode int, data any) {
	resp := apiResponse{
		Status:    "success",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	resp := apiResponse{
		Status:    "error",
		Timestamp: time.Now().UTC(),
		Error:     message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// statusFor maps domain errors to HTTP status codes and user-facing messages.
func statusFor(err error) (int, string) {
	var frozen *freeze.FrozenStateError
	switch {
	case errors.As(err, &frozen):
		return http.StatusConflict, err.Error()
	case errors.Is(err, catalog.ErrAircraftNotFound):
		return http.StatusNotFound, err.Error() + "; pick an aircraft from the catalog"
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound, "session not found or expired; start a new quote"
	case errors.Is(err, airport.ErrInvalidCode):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, airport.ErrUnknownAirport), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (s *server) respondWithErr(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		requestLogger(r, s.log).Errorw("request failed", "error", err)
	}
	respondWithError(w, code, msg)
}
