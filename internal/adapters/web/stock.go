package web

import (
	"net/http"
	"strconv"

	"uniform-tracker/internal/app"
	"uniform-tracker/internal/core"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) listBatches(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListBatches(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) getBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := h.svc.GetBatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, batch)
}

// receiveBatch handles POST /api/batches.
func (h *Handler) receiveBatch(w http.ResponseWriter, r *http.Request) {
	var req app.ReceiveBatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	batch, err := h.svc.ReceiveBatch(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, batch)
}

// writeOff handles POST /api/batches/{id}/write-off.
func (h *Handler) writeOff(w http.ResponseWriter, r *http.Request) {
	var req app.WriteOffRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.BatchID = chi.URLParam(r, "id")
	stock, err := h.svc.WriteOff(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, stock)
}

// checkStock handles GET /api/stock/check?variantType=&color=&size=&qty=.
func (h *Handler) checkStock(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	qty, err := strconv.Atoi(q.Get("qty"))
	if err != nil {
		h.writeServiceError(w, r, core.Invalid("qty", "must be an integer"))
		return
	}
	result, err := h.svc.CheckStock(r.Context(), app.StockCheckRequest{
		VariantType: q.Get("variantType"),
		Color:       q.Get("color"),
		Size:        q.Get("size"),
		Quantity:    qty,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) stockLevels(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.StockLevels(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
