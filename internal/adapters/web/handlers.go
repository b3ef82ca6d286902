package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"uniform-tracker/internal/app"
	"uniform-tracker/internal/lock"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Handler holds the ApplicationService and the collaborators its routes need.
type Handler struct {
	svc    app.ApplicationService
	logger *logrus.Logger
	locker lock.Locker
}

// NewHandler creates and wires the chi router with all routes. locker may be nil,
// in which case writes are not serialized beyond what the store guarantees.
func NewHandler(svc app.ApplicationService, logger *logrus.Logger, locker lock.Locker, allowedOrigins string) http.Handler {
	if locker == nil {
		locker = lock.Nop{}
	}
	h := &Handler{svc: svc, logger: logger, locker: locker}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(CORS(allowedOrigins))
	r.Use(RequestBodyLimit(1 << 20)) // 1 MB

	// ── Health ────────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Schools, policies, uniforms, students ────────────────────────────────
	r.Get("/api/schools", h.listSchools)
	r.Post("/api/schools", h.createSchool)
	r.Route("/api/schools/{id}", func(r chi.Router) {
		r.Use(LockOn(h.locker, logger, "school", "id"))
		r.Get("/", h.getSchool)
		r.Get("/policies", h.listPolicies)
		r.Post("/policies", h.addPolicy)
		r.Delete("/policies", h.removePolicy)
		r.Get("/uniforms", h.listUniforms)
		r.Post("/uniforms", h.createUniform)
		r.Get("/students", h.listStudents)
		r.Post("/students", h.enrollStudent)
		r.Get("/deficit-report", h.schoolReport)
		r.Get("/deficit-report.xlsx", h.schoolReportXLSX)
	})

	// ── Student ledger ────────────────────────────────────────────────────────
	r.Route("/api/students/{id}", func(r chi.Router) {
		r.Use(LockOn(h.locker, logger, "student", "id"))
		r.Get("/", h.getStudent)
		r.Get("/deficit", h.studentDeficit)
		r.Post("/issues", h.recordIssue)
		r.Post("/size-requests", h.recordSizeRequest)
		r.Post("/size-requests/{entryId}/fulfill", h.fulfillSizeRequest)
		r.Post("/notes", h.interpretNote)
	})

	// ── Reports ───────────────────────────────────────────────────────────────
	r.Get("/api/reports/schools", h.schoolSummaries)

	// ── Stock ─────────────────────────────────────────────────────────────────
	r.Get("/api/batches", h.listBatches)
	r.Post("/api/batches", h.receiveBatch)
	r.Route("/api/batches/{id}", func(r chi.Router) {
		r.Use(LockOn(h.locker, logger, "batch", "id"))
		r.Get("/", h.getBatch)
		r.Post("/write-off", h.writeOff)
	})
	r.Get("/api/stock/check", h.checkStock)
	r.Get("/api/stock/levels", h.stockLevels)

	// ── Schemas ───────────────────────────────────────────────────────────────
	r.Get("/api/schema", h.listSchemas)
	r.Get("/api/schema/{name}", h.getSchema)

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// idempotencyKey prefers the body value and falls back to the Idempotency-Key header.
func idempotencyKey(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return r.Header.Get("Idempotency-Key")
}
