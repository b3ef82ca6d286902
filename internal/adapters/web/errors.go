package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"uniform-tracker/internal/core"
)

type errorResponse struct {
	Error          string `json:"error"`
	Code           string `json:"code"`
	RequestID      string `json:"request_id,omitempty"`
	Field          string `json:"field,omitempty"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorResponse(w, status, errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	})
}

func writeErrorResponse(w http.ResponseWriter, status int, resp errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeServiceError maps a service error kind to its HTTP status and code.
// Unrecognised errors are logged and reported as 500 without their message.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse{Error: err.Error(), RequestID: requestIDFromContext(r.Context())}
	status := http.StatusInternalServerError

	var verr *core.ValidationError
	var pwerr *core.PartialWriteError
	switch {
	case errors.As(err, &pwerr):
		status, resp.Code = http.StatusServiceUnavailable, "PARTIAL_WRITE"
		resp.IdempotencyKey = pwerr.IdempotencyKey
	case errors.As(err, &verr):
		status, resp.Code = http.StatusBadRequest, "VALIDATION_ERROR"
		resp.Field = verr.Field
	case errors.Is(err, core.ErrNotFound):
		status, resp.Code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, core.ErrInsufficientStock):
		status, resp.Code = http.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, core.ErrConflict):
		status, resp.Code = http.StatusConflict, "CONFLICT"
	default:
		resp.Code = "INTERNAL_ERROR"
		resp.Error = "internal server error"
	}

	if status >= http.StatusInternalServerError {
		h.logger.WithField("request_id", resp.RequestID).
			WithField("path", r.URL.Path).
			WithError(err).
			Error("request failed")
	}
	writeErrorResponse(w, status, resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
