package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/contactdesk/contactdesk/internal/core"
	"github.com/contactdesk/contactdesk/internal/logging"
)

// errorResponse is the JSON shape of every error the API returns. The
// message and action come from the error code mapping, never from the raw
// technical error, so internals stay out of responses.
type errorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
	Code   string `json:"code,omitempty"`
}

// writeErr logs the technical error and sends its user-facing mapping with
// an appropriate status.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"code", msg.Code,
		"error", err,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{ //nolint:errcheck
		Error:  msg.Message,
		Action: msg.Action,
		Code:   msg.Code,
	})
}

// writeMessage sends a plain error message when there is no underlying
// error to map (request validation).
func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: message}) //nolint:errcheck
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrBatchInProgress):
		return http.StatusConflict
	case strings.Contains(err.Error(), "not found"):
		return http.StatusNotFound
	case strings.Contains(err.Error(), "too large"),
		strings.Contains(err.Error(), "too many rows"):
		return http.StatusRequestEntityTooLarge
	case strings.Contains(err.Error(), "invalid"),
		strings.Contains(err.Error(), "unknown"),
		strings.Contains(err.Error(), "not configured"),
		strings.Contains(err.Error(), "no data rows"),
		strings.Contains(err.Error(), "nothing to export"),
		strings.Contains(err.Error(), "must not be empty"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode", "error", err)
	}
}
