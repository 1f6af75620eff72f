package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Repository defines the interface for catalog storage. Every call is scoped
// to one catalog by Kind.
type Repository interface {
	Create(ctx context.Context, kind Kind, req *UpsertItemRequest) (*Item, error)
	GetByID(ctx context.Context, kind Kind, id int64) (*Item, error)
	List(ctx context.Context, kind Kind, includeInactive bool) ([]*Item, error)
	Update(ctx context.Context, kind Kind, id int64, req *UpsertItemRequest) (*Item, error)
	Delete(ctx context.Context, kind Kind, id int64) error
}

type memKey struct {
	kind Kind
	id   int64
}

// InMemoryRepository is a stub implementation of Repository using in-memory storage
type InMemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	items  map[memKey]*Item

	// InUse marks ids whose delete should fail with ErrItemInUse, standing in
	// for the FK RESTRICT the real database enforces.
	InUse map[int64]bool
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		items: make(map[memKey]*Item),
		InUse: make(map[int64]bool),
	}
}

// Create creates a new catalog item in memory
func (r *InMemoryRepository) Create(ctx context.Context, kind Kind, req *UpsertItemRequest) (*Item, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := strings.TrimSpace(req.Name)
	for k, it := range r.items {
		if k.kind == kind && strings.EqualFold(it.Name, name) {
			return nil, ErrDuplicateName
		}
	}

	r.nextID++
	item := &Item{
		ID:                r.nextID,
		Name:              name,
		Description:       req.Description,
		DefaultPriceCents: req.DefaultPriceCents,
		Active:            req.active(),
		UpdatedAt:         time.Now().UTC(),
	}
	r.items[memKey{kind, item.ID}] = item
	return item, nil
}

// GetByID retrieves a catalog item by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, kind Kind, id int64) (*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[memKey{kind, id}]
	if !ok {
		return nil, ErrItemNotFound
	}
	return item, nil
}

// List returns items ordered by name; inactive ones only when asked for.
func (r *InMemoryRepository) List(ctx context.Context, kind Kind, includeInactive bool) ([]*Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*Item{}
	for k, it := range r.items {
		if k.kind != kind {
			continue
		}
		if !includeInactive && !it.Active {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// Update replaces the mutable fields of a catalog item
func (r *InMemoryRepository) Update(ctx context.Context, kind Kind, id int64, req *UpsertItemRequest) (*Item, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[memKey{kind, id}]
	if !ok {
		return nil, ErrItemNotFound
	}
	item.Name = strings.TrimSpace(req.Name)
	item.Description = req.Description
	item.DefaultPriceCents = req.DefaultPriceCents
	item.Active = req.active()
	item.UpdatedAt = time.Now().UTC()
	return item, nil
}

// Delete removes a catalog item unless it is marked in use
func (r *InMemoryRepository) Delete(ctx context.Context, kind Kind, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[memKey{kind, id}]; !ok {
		return ErrItemNotFound
	}
	if r.InUse[id] {
		return ErrItemInUse
	}
	delete(r.items, memKey{kind, id})
	return nil
}
