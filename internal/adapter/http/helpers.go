package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Strob0t/actions-bridge/internal/domain"
	"github.com/Strob0t/actions-bridge/internal/port/forge"
	"github.com/Strob0t/actions-bridge/internal/resilience"
)

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request, bodyLimit int64) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return v, false
	}
	return v, true
}

// requireField writes a 400 error and returns false when value is empty.
func requireField(w http.ResponseWriter, value, fieldName string) bool {
	if value == "" {
		writeError(w, http.StatusBadRequest, fieldName+" is required")
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

// errorResponse is the failure envelope shared by every route.
type errorResponse struct {
	OK         bool    `json:"ok"`
	Detail     string  `json:"detail"`
	OutputTail *string `json:"output_tail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

// writeRaw writes an already-encoded JSON document unchanged.
func writeRaw(w http.ResponseWriter, status int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// writeDomainError maps service errors onto the failure envelope.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		timeout *domain.TimeoutError
		apiErr  *forge.APIError
		de      *domain.Error
	)
	switch {
	case errors.As(err, &timeout):
		tail := timeout.Output
		writeJSON(w, http.StatusRequestTimeout, errorResponse{Detail: timeout.Error(), OutputTail: &tail})
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		writeError(w, status, apiErr.Error())
	case errors.Is(err, resilience.ErrCircuitOpen):
		writeError(w, http.StatusServiceUnavailable, "GitHub API unavailable")
	case errors.As(err, &de):
		writeError(w, statusForKind(de.Kind), de.Detail)
	default:
		writeInternalError(w, r, err)
	}
}

func statusForKind(kind error) int {
	switch {
	case errors.Is(kind, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(kind, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(kind, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, domain.ErrTimeout):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeInternalError logs the actual error server-side and returns a generic message to the client.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
