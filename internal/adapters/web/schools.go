package web

import (
	"net/http"

	"uniform-tracker/internal/app"

	"github.com/go-chi/chi/v5"
)

// listSchools handles GET /api/schools.
func (h *Handler) listSchools(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListSchools(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// createSchool handles POST /api/schools.
func (h *Handler) createSchool(w http.ResponseWriter, r *http.Request) {
	var req app.CreateSchoolRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	school, err := h.svc.CreateSchool(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, school)
}

func (h *Handler) getSchool(w http.ResponseWriter, r *http.Request) {
	school, err := h.svc.GetSchool(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, school)
}

// ── Policies ──────────────────────────────────────────────────────────────────

func (h *Handler) listPolicies(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListPolicies(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// addPolicy handles POST /api/schools/{id}/policies.
func (h *Handler) addPolicy(w http.ResponseWriter, r *http.Request) {
	var req app.AddPolicyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.SchoolID = chi.URLParam(r, "id")
	school, err := h.svc.AddPolicy(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, school)
}

// removePolicy handles DELETE /api/schools/{id}/policies with a body of either
// {"id": ...} or {"uniformId": ..., "level": ..., "gender": ...}.
func (h *Handler) removePolicy(w http.ResponseWriter, r *http.Request) {
	var req app.RemovePolicyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.SchoolID = chi.URLParam(r, "id")
	result, err := h.svc.RemovePolicy(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// ── Uniforms ──────────────────────────────────────────────────────────────────

func (h *Handler) listUniforms(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListUniforms(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) createUniform(w http.ResponseWriter, r *http.Request) {
	var req app.CreateUniformRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.SchoolID = chi.URLParam(r, "id")
	uniform, err := h.svc.CreateUniform(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, uniform)
}

// ── Students ──────────────────────────────────────────────────────────────────

func (h *Handler) listStudents(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListStudents(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

func (h *Handler) enrollStudent(w http.ResponseWriter, r *http.Request) {
	var req app.EnrollStudentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.SchoolID = chi.URLParam(r, "id")
	student, err := h.svc.EnrollStudent(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, student)
}

func (h *Handler) getStudent(w http.ResponseWriter, r *http.Request) {
	student, err := h.svc.GetStudent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, student)
}
