package visits

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Repository defines the interface for visit data access. Every mutation of
// line items or payments leaves the visit's total_cents and due_cents
// consistent with its line items.
type Repository interface {
	Create(ctx context.Context, patientID int64, req *CreateVisitRequest) (*VisitDetail, error)
	GetByID(ctx context.Context, visitID int64) (*VisitDetail, error)
	ListByPatient(ctx context.Context, patientID int64) ([]*Visit, error)
	Update(ctx context.Context, visitID int64, req *UpdateVisitRequest) (*Visit, error)
	Delete(ctx context.Context, visitID int64) error

	AddService(ctx context.Context, visitID int64, req *AddServiceLineRequest) (*ServiceLine, error)
	RemoveService(ctx context.Context, visitID, lineID int64) error
	AddPrescription(ctx context.Context, visitID int64, req *AddPrescriptionLineRequest) (*PrescriptionLine, error)
	RemovePrescription(ctx context.Context, visitID, lineID int64) error

	RecordPayment(ctx context.Context, visitID int64, paidCents int64) (*Visit, error)
}

// InMemoryRepository is an in-memory implementation of Repository for testing.
// ServicePrices and MedicationPrices stand in for the catalog tables: a line
// without an explicit price resolves against them, and a missing entry
// behaves like a dangling catalog reference.
type InMemoryRepository struct {
	mu            sync.RWMutex
	visits        map[int64]*Visit
	services      map[int64]*ServiceLine
	prescriptions map[int64]*PrescriptionLine
	nextVisitID   int64
	nextLineID    int64

	ServicePrices    map[int64]int64
	MedicationPrices map[int64]int64
}

// NewInMemoryRepository creates a new in-memory visit repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		visits:           make(map[int64]*Visit),
		services:         make(map[int64]*ServiceLine),
		prescriptions:    make(map[int64]*PrescriptionLine),
		nextVisitID:      1,
		nextLineID:       1,
		ServicePrices:    make(map[int64]int64),
		MedicationPrices: make(map[int64]int64),
	}
}

// Create stores a new visit with its initial line items and payment
func (r *InMemoryRepository) Create(ctx context.Context, patientID int64, req *CreateVisitRequest) (*VisitDetail, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	date, _ := req.date()

	r.mu.Lock()
	defer r.mu.Unlock()

	v := &Visit{
		ID:         r.nextVisitID,
		PatientID:  patientID,
		VisitDate:  date,
		Notes:      req.Notes,
		LabResults: req.LabResults,
		PaidCents:  req.PaidCents,
		UpdatedAt:  time.Now().UTC(),
	}
	r.nextVisitID++
	r.visits[v.ID] = v

	for _, s := range req.Services {
		if _, err := r.addServiceLocked(v.ID, s); err != nil {
			r.deleteLocked(v.ID)
			return nil, err
		}
	}
	for _, p := range req.Prescriptions {
		if _, err := r.addPrescriptionLocked(v.ID, p); err != nil {
			r.deleteLocked(v.ID)
			return nil, err
		}
	}
	r.reconcileLocked(v.ID)

	return r.detailLocked(v.ID)
}

// GetByID retrieves a visit with its line items
func (r *InMemoryRepository) GetByID(ctx context.Context, visitID int64) (*VisitDetail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.detailLocked(visitID)
}

// ListByPatient returns a patient's visits, most recent first
func (r *InMemoryRepository) ListByPatient(ctx context.Context, patientID int64) ([]*Visit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*Visit
	for _, v := range r.visits {
		if v.PatientID == patientID {
			c := *v
			c.VisitNumber = r.visitNumberLocked(v)
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].VisitDate.Equal(result[j].VisitDate) {
			return result[i].VisitDate.After(result[j].VisitDate)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// Update changes the descriptive fields of a visit
func (r *InMemoryRepository) Update(ctx context.Context, visitID int64, req *UpdateVisitRequest) (*Visit, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	date, _ := time.Parse("2006-01-02", req.VisitDate)

	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.visits[visitID]
	if !ok {
		return nil, ErrVisitNotFound
	}
	v.VisitDate = date
	v.Notes = req.Notes
	v.LabResults = req.LabResults
	v.UpdatedAt = time.Now().UTC()

	c := *v
	c.VisitNumber = r.visitNumberLocked(v)
	return &c, nil
}

// Delete removes a visit and all its line items
func (r *InMemoryRepository) Delete(ctx context.Context, visitID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.visits[visitID]; !ok {
		return ErrVisitNotFound
	}
	r.deleteLocked(visitID)
	return nil
}

// AddService adds a billed service to a visit and reconciles its totals
func (r *InMemoryRepository) AddService(ctx context.Context, visitID int64, req *AddServiceLineRequest) (*ServiceLine, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.visits[visitID]; !ok {
		return nil, ErrVisitNotFound
	}
	line, err := r.addServiceLocked(visitID, req)
	if err != nil {
		return nil, err
	}
	r.reconcileLocked(visitID)
	c := *line
	return &c, nil
}

// RemoveService removes a billed service and reconciles the visit's totals
func (r *InMemoryRepository) RemoveService(ctx context.Context, visitID, lineID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	line, ok := r.services[lineID]
	if !ok || line.VisitID != visitID {
		return ErrLineNotFound
	}
	delete(r.services, lineID)
	r.reconcileLocked(visitID)
	return nil
}

// AddPrescription adds a prescription to a visit and reconciles its totals
func (r *InMemoryRepository) AddPrescription(ctx context.Context, visitID int64, req *AddPrescriptionLineRequest) (*PrescriptionLine, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.visits[visitID]; !ok {
		return nil, ErrVisitNotFound
	}
	line, err := r.addPrescriptionLocked(visitID, req)
	if err != nil {
		return nil, err
	}
	r.reconcileLocked(visitID)
	c := *line
	return &c, nil
}

// RemovePrescription removes a prescription and reconciles the visit's totals
func (r *InMemoryRepository) RemovePrescription(ctx context.Context, visitID, lineID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	line, ok := r.prescriptions[lineID]
	if !ok || line.VisitID != visitID {
		return ErrLineNotFound
	}
	delete(r.prescriptions, lineID)
	r.reconcileLocked(visitID)
	return nil
}

// RecordPayment sets the paid amount on a visit and recomputes what is due
func (r *InMemoryRepository) RecordPayment(ctx context.Context, visitID int64, paidCents int64) (*Visit, error) {
	if paidCents < 0 {
		return nil, ErrNegativePayment
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.visits[visitID]
	if !ok {
		return nil, ErrVisitNotFound
	}
	v.PaidCents = paidCents
	r.reconcileLocked(visitID)

	c := *v
	c.VisitNumber = r.visitNumberLocked(v)
	return &c, nil
}

func (r *InMemoryRepository) addServiceLocked(visitID int64, req *AddServiceLineRequest) (*ServiceLine, error) {
	price, ok := r.ServicePrices[req.ServiceID]
	if req.PriceCents != nil {
		price = *req.PriceCents
	} else if !ok {
		return nil, ErrUnknownCatalogItem
	}

	line := &ServiceLine{
		ID:          r.nextLineID,
		VisitID:     visitID,
		ServiceID:   req.ServiceID,
		ToothNumber: req.ToothNumber,
		PriceCents:  price,
		Notes:       req.Notes,
	}
	r.nextLineID++
	r.services[line.ID] = line
	return line, nil
}

func (r *InMemoryRepository) addPrescriptionLocked(visitID int64, req *AddPrescriptionLineRequest) (*PrescriptionLine, error) {
	price, ok := r.MedicationPrices[req.MedicationID]
	if req.PriceCents != nil {
		price = *req.PriceCents
	} else if !ok {
		return nil, ErrUnknownCatalogItem
	}

	line := &PrescriptionLine{
		ID:           r.nextLineID,
		VisitID:      visitID,
		MedicationID: req.MedicationID,
		Quantity:     req.quantity(),
		PriceCents:   price,
		Instructions: req.Instructions,
	}
	r.nextLineID++
	r.prescriptions[line.ID] = line
	return line, nil
}

func (r *InMemoryRepository) reconcileLocked(visitID int64) {
	v, ok := r.visits[visitID]
	if !ok {
		return
	}
	var total int64
	for _, s := range r.services {
		if s.VisitID == visitID {
			total += s.PriceCents
		}
	}
	for _, p := range r.prescriptions {
		if p.VisitID == visitID {
			total += p.PriceCents
		}
	}
	v.TotalCents = total
	v.DueCents = total - v.PaidCents
	if v.DueCents < 0 {
		v.DueCents = 0
	}
	v.UpdatedAt = time.Now().UTC()
}

func (r *InMemoryRepository) visitNumberLocked(v *Visit) int {
	n := 0
	for _, other := range r.visits {
		if other.PatientID == v.PatientID && !other.VisitDate.After(v.VisitDate) {
			n++
		}
	}
	return n
}

func (r *InMemoryRepository) detailLocked(visitID int64) (*VisitDetail, error) {
	v, ok := r.visits[visitID]
	if !ok {
		return nil, ErrVisitNotFound
	}

	d := &VisitDetail{Visit: *v, Services: []*ServiceLine{}, Prescriptions: []*PrescriptionLine{}}
	d.VisitNumber = r.visitNumberLocked(v)
	for _, s := range r.services {
		if s.VisitID == visitID {
			c := *s
			d.Services = append(d.Services, &c)
		}
	}
	for _, p := range r.prescriptions {
		if p.VisitID == visitID {
			c := *p
			d.Prescriptions = append(d.Prescriptions, &c)
		}
	}
	sort.Slice(d.Services, func(i, j int) bool { return d.Services[i].ID < d.Services[j].ID })
	sort.Slice(d.Prescriptions, func(i, j int) bool { return d.Prescriptions[i].ID < d.Prescriptions[j].ID })
	return d, nil
}

func (r *InMemoryRepository) deleteLocked(visitID int64) {
	for id, s := range r.services {
		if s.VisitID == visitID {
			delete(r.services, id)
		}
	}
	for id, p := range r.prescriptions {
		if p.VisitID == visitID {
			delete(r.prescriptions, id)
		}
	}
	delete(r.visits, visitID)
}
