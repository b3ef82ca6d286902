package web

import (
	"net/http"

	"uniform-tracker/internal/app"

	"github.com/go-chi/chi/v5"
)

// studentDeficit handles GET /api/students/{id}/deficit.
func (h *Handler) studentDeficit(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.StudentDeficit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, d)
}

// recordIssue handles POST /api/students/{id}/issues. A replayed idempotency key
// answers 200 with the stored entry instead of 201.
func (h *Handler) recordIssue(w http.ResponseWriter, r *http.Request) {
	var req app.IssueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.StudentID = chi.URLParam(r, "id")
	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)
	res, err := h.svc.RecordIssue(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, writeStatus(res.Replayed), res)
}

// recordSizeRequest handles POST /api/students/{id}/size-requests.
func (h *Handler) recordSizeRequest(w http.ResponseWriter, r *http.Request) {
	var req app.SizeRequestRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.StudentID = chi.URLParam(r, "id")
	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)
	res, err := h.svc.RecordSizeRequest(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, writeStatus(res.Replayed), res)
}

// fulfillSizeRequest handles POST /api/students/{id}/size-requests/{entryId}/fulfill.
func (h *Handler) fulfillSizeRequest(w http.ResponseWriter, r *http.Request) {
	var req app.FulfillRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.StudentID = chi.URLParam(r, "id")
	req.EntryID = chi.URLParam(r, "entryId")
	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)
	res, err := h.svc.FulfillSizeRequest(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// interpretNote handles POST /api/students/{id}/notes. The proposal is returned,
// never stored.
func (h *Handler) interpretNote(w http.ResponseWriter, r *http.Request) {
	var req app.NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.StudentID = chi.URLParam(r, "id")
	res, err := h.svc.InterpretNote(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func writeStatus(replayed bool) int {
	if replayed {
		return http.StatusOK
	}
	return http.StatusCreated
}
