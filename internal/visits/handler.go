package visits

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dentaflow/clinic-platform/internal/observability/metrics"
	"github.com/dentaflow/clinic-platform/pkg/logging"
)

// Handler handles HTTP requests for visits, their line items, and payments
type Handler struct {
	repo    Repository
	logger  *logging.Logger
	metrics *metrics.ClinicMetrics
}

// NewHandler creates a new visit handler. metrics may be nil.
func NewHandler(repo Repository, logger *logging.Logger, m *metrics.ClinicMetrics) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger, metrics: m}
}

// PatientRoutes returns the routes mounted under a patient's visit collection
func (h *Handler) PatientRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.ListByPatient)
	return r
}

// Routes returns the routes for individual visits
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{visitID}", h.Get)
	r.Put("/{visitID}", h.Update)
	r.Delete("/{visitID}", h.Delete)
	r.Post("/{visitID}/services", h.AddService)
	r.Delete("/{visitID}/services/{lineID}", h.RemoveService)
	r.Post("/{visitID}/prescriptions", h.AddPrescription)
	r.Delete("/{visitID}/prescriptions/{lineID}", h.RemovePrescription)
	r.Put("/{visitID}/payment", h.RecordPayment)
	return r
}

// Create handles POST /patients/{patientID}/visits
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	patientID, ok := h.urlID(w, r, "patientID")
	if !ok {
		return
	}

	var req CreateVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	visit, err := h.repo.Create(r.Context(), patientID, &req)
	if err != nil {
		h.writeError(w, err, "failed to create visit")
		return
	}
	h.metrics.VisitCreated()
	h.metrics.ObserveReconcile(time.Since(start))

	h.logger.Info("visit created",
		"visit_id", visit.ID,
		"patient_id", visit.PatientID,
		"total_cents", visit.TotalCents,
		"due_cents", visit.DueCents)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(visit)
}

// ListResponse is the response for listing a patient's visits
type ListResponse struct {
	Visits []*Visit `json:"visits"`
	Count  int      `json:"count"`
}

// ListByPatient handles GET /patients/{patientID}/visits
func (h *Handler) ListByPatient(w http.ResponseWriter, r *http.Request) {
	patientID, ok := h.urlID(w, r, "patientID")
	if !ok {
		return
	}

	visits, err := h.repo.ListByPatient(r.Context(), patientID)
	if err != nil {
		h.logger.Error("failed to list visits", "patient_id", patientID, "error", err)
		http.Error(w, "failed to list visits", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ListResponse{Visits: visits, Count: len(visits)})
}

// Get handles GET /visits/{visitID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	visitID, ok := h.urlID(w, r, "visitID")
	if !ok {
		return
	}

	visit, err := h.repo.GetByID(r.Context(), visitID)
	if err != nil {
		h.writeError(w, err, "failed to get visit")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(visit)
}

// Update handles PUT /visits/{visitID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	visitID, ok := h.urlID(w, r, "visitID")
	if !ok {
		return
	}

	var req UpdateVisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	visit, err := h.repo.Update(r.Context(), visitID, &req)
	if err != nil {
		h.writeError(w, err, "failed to update visit")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(visit)
}

// Delete handles DELETE /visits/{visitID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	visitID, ok := h.urlID(w, r, "visitID")
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), visitID); err != nil {
		h.writeError(w, err, "failed to delete visit")
		return
	}
	h.metrics.VisitDeleted()

	h.logger.Info("visit deleted", "visit_id", visitID)
	w.WriteHeader(http.StatusNoContent)
}

// AddService handles POST /visits/{visitID}/services
func (h *Handler) AddService(w http.ResponseWriter, r *http.Request) {
	visitID, ok := h.urlID(w, r, "visitID")
	if !ok {
		return
	}

	var req AddServiceLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	line, err := h.repo.AddService(r.Context(), visitID, &req)
	if err != nil {
		h.writeError(w, err, "failed to add service")
		return
	}
	h.metrics.LineItemAdded("service")
	h.metrics.ObserveReconcile(time.Since(start))

	h.logger.Info("service added to visit",
		"visit_id", visitID, "service_id", line.ServiceID, "price_cents", line.PriceCents)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(line)
}

// RemoveService handles DELETE /visits/{visitID}/services/{lineID}
func (h *Handler) RemoveService(w http.ResponseWriter, r *http.Request) {
	h.removeLine(w, r, h.repo.RemoveService, "service")
}

// AddPrescription handles POST /visits/{visitID}/prescriptions
func (h *Handler) AddPrescription(w http.ResponseWriter, r *http.Request) {
	visitID, ok := h.urlID(w, r, "visitID")
	if !ok {
		return
	}

	var req AddPrescriptionLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	line, err := h.repo.AddPrescription(r.Context(), visitID, &req)
	if err != nil {
		h.writeError(w, err, "failed to add prescription")
		return
	}
	h.metrics.LineItemAdded("prescription")
	h.metrics.ObserveReconcile(time.Since(start))

	h.logger.Info("prescription added to visit",
		"visit_id", visitID, "medication_id", line.MedicationID, "price_cents", line.PriceCents)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(line)
}

// RemovePrescription handles DELETE /visits/{visitID}/prescriptions/{lineID}
func (h *Handler) RemovePrescription(w http.ResponseWriter, r *http.Request) {
	h.removeLine(w, r, h.repo.RemovePrescription, "prescription")
}

// RecordPayment handles PUT /visits/{visitID}/payment
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	visitID, ok := h.urlID(w, r, "visitID")
	if !ok {
		return
	}

	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	visit, err := h.repo.RecordPayment(r.Context(), visitID, req.PaidCents)
	if err != nil {
		h.writeError(w, err, "failed to record payment")
		return
	}
	h.metrics.PaymentRecorded()

	h.logger.Info("payment recorded",
		"visit_id", visit.ID, "paid_cents", visit.PaidCents, "due_cents", visit.DueCents)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(visit)
}

func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request, remove func(ctx context.Context, visitID, lineID int64) error, kind string) {
	visitID, ok := h.urlID(w, r, "visitID")
	if !ok {
		return
	}
	lineID, ok := h.urlID(w, r, "lineID")
	if !ok {
		return
	}

	start := time.Now()
	if err := remove(r.Context(), visitID, lineID); err != nil {
		h.writeError(w, err, "failed to remove line item")
		return
	}
	h.metrics.LineItemRemoved(kind)
	h.metrics.ObserveReconcile(time.Since(start))

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) urlID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid "+param, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrVisitNotFound), errors.Is(err, ErrPatientNotFound), errors.Is(err, ErrLineNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrUnknownCatalogItem),
		errors.Is(err, ErrInvalidToothNumber),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrNegativePrice),
		errors.Is(err, ErrNegativePayment),
		errors.Is(err, ErrInvalidDate):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error(msg, "error", err)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}
