package patients

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dentaflow/clinic-platform/pkg/logging"
)

// Handler handles HTTP requests for patients
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new patients handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Routes returns the patient CRUD routes. Nested registrars, such as the
// per-patient visit routes, attach under /{patientID} so they share the
// param subtree with the detail routes instead of shadowing them.
func (h *Handler) Routes(nested ...func(chi.Router)) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Route("/{patientID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Delete)
		r.Get("/summary", h.Summary)
		for _, register := range nested {
			register(r)
		}
	})
	return r
}

// Create handles POST /patients
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req UpsertPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode patient", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	patient, err := h.repo.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, err, "failed to create patient")
		return
	}

	h.logger.Info("patient created", "id", patient.ID, "name", patient.Name)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(patient)
}

// ListResponse is the response for listing patients
type ListResponse struct {
	Patients []*Patient `json:"patients"`
	Count    int        `json:"count"`
}

// List handles GET /patients?q=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("failed to list patients", "error", err)
		http.Error(w, "failed to list patients", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ListResponse{Patients: list, Count: len(list)})
}

// Get handles GET /patients/{patientID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.patientID(w, r)
	if !ok {
		return
	}

	patient, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "failed to get patient")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(patient)
}

// Update handles PUT /patients/{patientID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.patientID(w, r)
	if !ok {
		return
	}

	var req UpsertPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	patient, err := h.repo.Update(r.Context(), id, &req)
	if err != nil {
		h.writeError(w, err, "failed to update patient")
		return
	}

	h.logger.Info("patient updated", "id", patient.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(patient)
}

// Delete handles DELETE /patients/{patientID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.patientID(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), id); err != nil {
		h.writeError(w, err, "failed to delete patient")
		return
	}

	h.logger.Info("patient deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// Summary handles GET /patients/{patientID}/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	id, ok := h.patientID(w, r)
	if !ok {
		return
	}

	summary, err := h.repo.FinancialSummary(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "failed to compute summary")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

func (h *Handler) patientID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "patientID"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid patient id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrPatientNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrMissingName),
		errors.Is(err, ErrInvalidAge),
		errors.Is(err, ErrInvalidGender):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error(msg, "error", err)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}
