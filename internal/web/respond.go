package web

// respond.go provides unified response handling for the JSON API.
//
// Errors are logged with full technical details server-side and
// returned to clients as user-safe messages with a stable code and the
// request id for correlation. The mapping from technical errors to
// user messages lives in core.MapError.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"covidfeed/internal/core"
)

// errRateLimited maps to the RATE001 user message.
var errRateLimited = errors.New("rate limit exceeded")

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Action    string `json:"action,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// respondJSON encodes v as JSON with the given status code.
// Encoding errors are logged since headers are already sent.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// respondError logs the technical error and writes its user-safe
// mapping as JSON.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	userMsg := core.MapError(err)
	requestID := middleware.GetReqID(r.Context())

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", requestID,
	)

	respondJSON(w, status, ErrorResponse{
		Error:     userMsg.Message,
		Code:      userMsg.Code,
		Action:    userMsg.Action,
		RequestID: requestID,
	})
}
