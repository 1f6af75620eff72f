package backup

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dentaflow/clinic-platform/internal/observability/metrics"
	"github.com/dentaflow/clinic-platform/pkg/logging"
)

// Handler handles HTTP requests for backup and restore. These routes are
// mounted behind the admin auth middleware.
type Handler struct {
	svc     *Service
	logger  *logging.Logger
	metrics *metrics.ClinicMetrics
}

// NewHandler creates a new backup handler. metrics may be nil.
func NewHandler(svc *Service, logger *logging.Logger, m *metrics.ClinicMetrics) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger, metrics: m}
}

// Routes returns the backup routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Snapshot)
	r.Get("/", h.List)
	r.Post("/{snapshotID}/restore", h.Restore)
	return r
}

// Snapshot handles POST /admin/backups
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Snapshot(r.Context())
	if err != nil {
		h.writeError(w, err, "failed to take snapshot")
		return
	}
	h.metrics.BackupTaken()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(info)
}

// ListResponse is the response for listing snapshots
type ListResponse struct {
	Snapshots []*SnapshotInfo `json:"snapshots"`
	Count     int             `json:"count"`
}

// List handles GET /admin/backups
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	infos, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, err, "failed to list snapshots")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ListResponse{Snapshots: infos, Count: len(infos)})
}

// Restore handles POST /admin/backups/{snapshotID}/restore
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	snapshotID := chi.URLParam(r, "snapshotID")
	if snapshotID == "" {
		http.Error(w, "missing snapshot id", http.StatusBadRequest)
		return
	}

	result, err := h.svc.Restore(r.Context(), snapshotID)
	if err != nil {
		h.writeError(w, err, "failed to restore snapshot")
		return
	}
	h.metrics.RestorePerformed()

	h.logger.Info("restore requested and completed",
		"snapshot_id", result.SnapshotID,
		"rows", result.TotalRestored)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrSnapshotNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrNotConfigured):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		h.logger.Error(msg, "error", err)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}
