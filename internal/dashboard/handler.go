package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dentaflow/clinic-platform/internal/observability/metrics"
	"github.com/dentaflow/clinic-platform/pkg/logging"
)

// Handler handles HTTP requests for the KPI dashboard
type Handler struct {
	repo    Repository
	cache   *Cache
	logger  *logging.Logger
	metrics *metrics.ClinicMetrics
}

// NewHandler creates a new dashboard handler. cache and metrics may be nil.
func NewHandler(repo Repository, cache *Cache, logger *logging.Logger, m *metrics.ClinicMetrics) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, cache: cache, logger: logger, metrics: m}
}

// Routes returns the dashboard routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Summary)
	return r
}

// Summary handles GET /dashboard
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	if s, ok := h.cache.Get(r.Context()); ok {
		h.metrics.DashboardCache("hit")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(s)
		return
	}
	h.metrics.DashboardCache("miss")

	s, err := h.repo.Summary(r.Context())
	if err != nil {
		h.logger.Error("failed to build dashboard summary", "error", err)
		http.Error(w, "failed to build dashboard summary", http.StatusInternalServerError)
		return
	}
	h.cache.Set(r.Context(), s)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s)
}
