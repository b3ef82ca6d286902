package web

import (
	"bytes"
	"fmt"
	"net/http"

	"uniform-tracker/internal/ai"

	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// schoolReport handles GET /api/schools/{id}/deficit-report.
func (h *Handler) schoolReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.SchoolReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, report)
}

// schoolReportXLSX handles GET /api/schools/{id}/deficit-report.xlsx. The workbook
// is built in memory so a failure can still be reported as JSON.
func (h *Handler) schoolReportXLSX(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var buf bytes.Buffer
	if err := h.svc.ExportSchoolReport(r.Context(), id, &buf); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=deficit-report-%s.xlsx", id))
	_, _ = w.Write(buf.Bytes())
}

// schoolSummaries handles GET /api/reports/schools.
func (h *Handler) schoolSummaries(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.SchoolSummaries(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) listSchemas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string][]string{"schemas": ai.SchemaNames()})
}

// getSchema handles GET /api/schema/{name}.
func (h *Handler) getSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := ai.Schema(chi.URLParam(r, "name"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, schema)
}
