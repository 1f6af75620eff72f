package patients

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Repository defines the interface for patient storage
type Repository interface {
	Create(ctx context.Context, req *UpsertPatientRequest) (*Patient, error)
	GetByID(ctx context.Context, id int64) (*Patient, error)
	List(ctx context.Context, search string) ([]*Patient, error)
	Update(ctx context.Context, id int64, req *UpsertPatientRequest) (*Patient, error)
	Delete(ctx context.Context, id int64) error
	FinancialSummary(ctx context.Context, id int64) (*FinancialSummary, error)
}

// InMemoryRepository is a stub implementation of Repository using in-memory storage
type InMemoryRepository struct {
	mu       sync.RWMutex
	nextID   int64
	patients map[int64]*Patient
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{patients: make(map[int64]*Patient)}
}

// Create creates a new patient in memory
func (r *InMemoryRepository) Create(ctx context.Context, req *UpsertPatientRequest) (*Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	n := req.normalized()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := time.Now().UTC()
	p := &Patient{
		ID:             r.nextID,
		Name:           n.Name,
		FatherName:     n.FatherName,
		Gender:         n.Gender,
		Age:            n.Age,
		Address:        n.Address,
		Phone:          n.Phone,
		MedicalHistory: n.MedicalHistory,
		FirstVisitDate: now.Truncate(24 * time.Hour),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.patients[p.ID] = p
	return p, nil
}

// GetByID retrieves a patient by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id int64) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return p, nil
}

// List returns patients ordered by name, optionally filtered by a search term
// matching name, phone or the numeric id.
func (r *InMemoryRepository) List(ctx context.Context, search string) ([]*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	term := strings.ToLower(strings.TrimSpace(search))
	out := []*Patient{}
	for _, p := range r.patients {
		if term != "" &&
			!strings.Contains(strings.ToLower(p.Name), term) &&
			!strings.Contains(p.Phone, term) &&
			!strings.Contains(strconv.FormatInt(p.ID, 10), term) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// Update replaces the mutable fields of a patient
func (r *InMemoryRepository) Update(ctx context.Context, id int64, req *UpsertPatientRequest) (*Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	n := req.normalized()

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	p.Name = n.Name
	p.FatherName = n.FatherName
	p.Gender = n.Gender
	p.Age = n.Age
	p.Address = n.Address
	p.Phone = n.Phone
	p.MedicalHistory = n.MedicalHistory
	p.UpdatedAt = time.Now().UTC()
	return p, nil
}

// Delete removes a patient
func (r *InMemoryRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patients[id]; !ok {
		return ErrPatientNotFound
	}
	delete(r.patients, id)
	return nil
}

// FinancialSummary returns zero totals; the in-memory store does not track visits.
func (r *InMemoryRepository) FinancialSummary(ctx context.Context, id int64) (*FinancialSummary, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return &FinancialSummary{PatientID: id}, nil
}
