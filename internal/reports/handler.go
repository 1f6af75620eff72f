package reports

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dentaflow/clinic-platform/pkg/logging"
)

// Handler handles HTTP requests for the reporting endpoints
type Handler struct {
	repo                Repository
	logger              *logging.Logger
	defaultInactiveDays int
}

// NewHandler creates a new reports handler. defaultInactiveDays is the
// cutoff used when the inactive-patients request does not pass one.
func NewHandler(repo Repository, logger *logging.Logger, defaultInactiveDays int) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if defaultInactiveDays <= 0 {
		defaultInactiveDays = 180
	}
	return &Handler{repo: repo, logger: logger, defaultInactiveDays: defaultInactiveDays}
}

// Routes returns the report routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/demographics", h.Demographics)
	r.Get("/visit-frequency", h.VisitFrequency)
	r.Get("/inactive-patients", h.InactivePatients)
	r.Get("/single-visit-patients", h.SingleVisitPatients)
	r.Get("/service-utilization", h.ServiceUtilization)
	r.Get("/medication-utilization", h.MedicationUtilization)
	r.Get("/service-trends", h.ServiceTrends)
	r.Get("/medication-trends", h.MedicationTrends)
	r.Get("/revenue", h.Revenue)
	r.Get("/visit-trends", h.VisitTrends)
	r.Get("/tooth-analysis", h.ToothAnalysis)
	r.Get("/price-deviation", h.PriceDeviation)
	r.Get("/clinic-load", h.ClinicLoad)
	r.Get("/data-quality", h.DataQuality)
	return r
}

// Demographics handles GET /reports/demographics
func (h *Handler) Demographics(w http.ResponseWriter, r *http.Request) {
	d, err := h.repo.Demographics(r.Context())
	h.respond(w, d, err, "failed to build demographics report")
}

// VisitFrequency handles GET /reports/visit-frequency
func (h *Handler) VisitFrequency(w http.ResponseWriter, r *http.Request) {
	rows, err := h.repo.VisitFrequency(r.Context())
	h.respond(w, rows, err, "failed to build visit-frequency report")
}

// InactivePatients handles GET /reports/inactive-patients?days=
func (h *Handler) InactivePatients(w http.ResponseWriter, r *http.Request) {
	days := h.defaultInactiveDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, ErrInvalidCutoff.Error(), http.StatusBadRequest)
			return
		}
		days = parsed
	}

	rows, err := h.repo.InactivePatients(r.Context(), days)
	h.respond(w, rows, err, "failed to build inactive-patients report")
}

// SingleVisitPatients handles GET /reports/single-visit-patients
func (h *Handler) SingleVisitPatients(w http.ResponseWriter, r *http.Request) {
	rows, err := h.repo.SingleVisitPatients(r.Context())
	h.respond(w, rows, err, "failed to build single-visit-patients report")
}

// ServiceUtilization handles GET /reports/service-utilization
func (h *Handler) ServiceUtilization(w http.ResponseWriter, r *http.Request) {
	rows, err := h.repo.ServiceUtilization(r.Context())
	h.respond(w, rows, err, "failed to build service-utilization report")
}

// MedicationUtilization handles GET /reports/medication-utilization
func (h *Handler) MedicationUtilization(w http.ResponseWriter, r *http.Request) {
	rows, err := h.repo.MedicationUtilization(r.Context())
	h.respond(w, rows, err, "failed to build medication-utilization report")
}

// ServiceTrends handles GET /reports/service-trends?period=
func (h *Handler) ServiceTrends(w http.ResponseWriter, r *http.Request) {
	p, ok := h.period(w, r)
	if !ok {
		return
	}
	rows, err := h.repo.ServiceTrends(r.Context(), p)
	h.respond(w, rows, err, "failed to build service-trends report")
}

// MedicationTrends handles GET /reports/medication-trends?period=
func (h *Handler) MedicationTrends(w http.ResponseWriter, r *http.Request) {
	p, ok := h.period(w, r)
	if !ok {
		return
	}
	rows, err := h.repo.MedicationTrends(r.Context(), p)
	h.respond(w, rows, err, "failed to build medication-trends report")
}

// Revenue handles GET /reports/revenue?period=
func (h *Handler) Revenue(w http.ResponseWriter, r *http.Request) {
	p, ok := h.period(w, r)
	if !ok {
		return
	}
	rows, err := h.repo.Revenue(r.Context(), p)
	h.respond(w, rows, err, "failed to build revenue report")
}

// VisitTrends handles GET /reports/visit-trends?period=&start=&end=
// The range defaults to the last twelve months.
func (h *Handler) VisitTrends(w http.ResponseWriter, r *http.Request) {
	p, ok := h.period(w, r)
	if !ok {
		return
	}

	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(-1, 0, 0)
	var err error
	if raw := r.URL.Query().Get("start"); raw != "" {
		if start, err = time.Parse("2006-01-02", raw); err != nil {
			http.Error(w, ErrInvalidRange.Error(), http.StatusBadRequest)
			return
		}
	}
	if raw := r.URL.Query().Get("end"); raw != "" {
		if end, err = time.Parse("2006-01-02", raw); err != nil {
			http.Error(w, ErrInvalidRange.Error(), http.StatusBadRequest)
			return
		}
	}
	if end.Before(start) {
		http.Error(w, ErrInvalidRange.Error(), http.StatusBadRequest)
		return
	}

	rows, err := h.repo.VisitTrends(r.Context(), p, start, end)
	h.respond(w, rows, err, "failed to build visit-trends report")
}

// ToothAnalysis handles GET /reports/tooth-analysis
func (h *Handler) ToothAnalysis(w http.ResponseWriter, r *http.Request) {
	rows, err := h.repo.ToothAnalysis(r.Context())
	h.respond(w, rows, err, "failed to build tooth-analysis report")
}

// PriceDeviation handles GET /reports/price-deviation
func (h *Handler) PriceDeviation(w http.ResponseWriter, r *http.Request) {
	rows, err := h.repo.PriceDeviation(r.Context())
	h.respond(w, rows, err, "failed to build price-deviation report")
}

// ClinicLoad handles GET /reports/clinic-load
func (h *Handler) ClinicLoad(w http.ResponseWriter, r *http.Request) {
	load, err := h.repo.ClinicLoad(r.Context())
	h.respond(w, load, err, "failed to build clinic-load report")
}

// DataQuality handles GET /reports/data-quality
func (h *Handler) DataQuality(w http.ResponseWriter, r *http.Request) {
	q, err := h.repo.DataQuality(r.Context())
	h.respond(w, q, err, "failed to build data-quality report")
}

func (h *Handler) period(w http.ResponseWriter, r *http.Request) (Period, bool) {
	p, err := ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return p, true
}

func (h *Handler) respond(w http.ResponseWriter, payload any, err error, msg string) {
	if err != nil {
		if errors.Is(err, ErrInvalidPeriod) || errors.Is(err, ErrInvalidRange) || errors.Is(err, ErrInvalidCutoff) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error(msg, "error", err)
		http.Error(w, msg, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}
