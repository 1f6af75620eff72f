package billing

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dentaflow/clinic-platform/pkg/logging"
)

// Handler handles HTTP requests for billing aggregates
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new billing handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// Routes returns the billing routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/debtors", h.Debtors)
	r.Get("/outstanding", h.Outstanding)
	return r
}

// DebtorsResponse is the response for the debtors listing
type DebtorsResponse struct {
	Debtors          []*Debtor `json:"debtors"`
	Count            int       `json:"count"`
	OutstandingCents int64     `json:"outstanding_cents"`
}

// Debtors handles GET /billing/debtors
func (h *Handler) Debtors(w http.ResponseWriter, r *http.Request) {
	debtors, err := h.repo.Debtors(r.Context())
	if err != nil {
		h.logger.Error("failed to list debtors", "error", err)
		http.Error(w, "failed to list debtors", http.StatusInternalServerError)
		return
	}

	outstanding, err := h.repo.OutstandingCents(r.Context())
	if err != nil {
		h.logger.Error("failed to sum outstanding balance", "error", err)
		http.Error(w, "failed to sum outstanding balance", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DebtorsResponse{
		Debtors:          debtors,
		Count:            len(debtors),
		OutstandingCents: outstanding,
	})
}

// Outstanding handles GET /billing/outstanding
func (h *Handler) Outstanding(w http.ResponseWriter, r *http.Request) {
	outstanding, err := h.repo.OutstandingCents(r.Context())
	if err != nil {
		h.logger.Error("failed to sum outstanding balance", "error", err)
		http.Error(w, "failed to sum outstanding balance", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{"outstanding_cents": outstanding})
}
