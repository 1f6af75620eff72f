package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dentaflow/clinic-platform/pkg/logging"
)

// Handler handles HTTP requests for one catalog (services or medications)
type Handler struct {
	repo   Repository
	kind   Kind
	logger *logging.Logger
}

// NewHandler creates a handler bound to one catalog kind
func NewHandler(repo Repository, kind Kind, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, kind: kind, logger: logger}
}

// Routes returns the CRUD routes for this catalog
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{itemID}", h.Get)
	r.Put("/{itemID}", h.Update)
	r.Delete("/{itemID}", h.Delete)
	return r
}

// Create handles POST /
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req UpsertItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.repo.Create(r.Context(), h.kind, &req)
	if err != nil {
		h.writeError(w, err, "failed to create catalog item")
		return
	}

	h.logger.Info("catalog item created", "kind", h.kind, "id", item.ID, "name", item.Name)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(item)
}

// ListResponse is the response for listing catalog items
type ListResponse struct {
	Items []*Item `json:"items"`
	Count int     `json:"count"`
}

// List handles GET /?include_inactive=
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))

	items, err := h.repo.List(r.Context(), h.kind, includeInactive)
	if err != nil {
		h.logger.Error("failed to list catalog", "kind", h.kind, "error", err)
		http.Error(w, "failed to list catalog", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ListResponse{Items: items, Count: len(items)})
}

// Get handles GET /{itemID}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	item, err := h.repo.GetByID(r.Context(), h.kind, id)
	if err != nil {
		h.writeError(w, err, "failed to get catalog item")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(item)
}

// Update handles PUT /{itemID}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	var req UpsertItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	item, err := h.repo.Update(r.Context(), h.kind, id, &req)
	if err != nil {
		h.writeError(w, err, "failed to update catalog item")
		return
	}

	h.logger.Info("catalog item updated", "kind", h.kind, "id", item.ID, "active", item.Active)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(item)
}

// Delete handles DELETE /{itemID}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.itemID(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(r.Context(), h.kind, id); err != nil {
		h.writeError(w, err, "failed to delete catalog item")
		return
	}

	h.logger.Info("catalog item deleted", "kind", h.kind, "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrItemNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrDuplicateName), errors.Is(err, ErrItemInUse):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrMissingName), errors.Is(err, ErrNegativePrice):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error(msg, "kind", h.kind, "error", err)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}
