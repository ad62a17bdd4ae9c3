// Package http provides standardized HTTP utilities for txnsync
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/baely/txnsync/internal/common/errors"
)

// ErrorResponse is the body written for failed requests
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON writes a JSON response
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("Failed to encode response", "error", err)
		}
	}
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, err error, statusCode int) {
	JSON(w, statusCode, ErrorResponse{Error: err.Error()})
}

// StatusFor determines the appropriate status code based on error type
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errors.ErrInvalidInput),
		errors.Is(err, errors.ErrNotFound),
		errors.Is(err, errors.ErrEncoding):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrDeltaMismatch),
		errors.Is(err, errors.ErrUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// HandleError writes err with the status code matching its type
func HandleError(w http.ResponseWriter, err error) {
	Error(w, err, StatusFor(err))
}

// NewRouter creates a new Chi router with standard middleware
func NewRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	return r
}
