package visits

import "time"

// Visit is one patient encounter. total_cents always equals the sum of its
// line items and due_cents = max(0, total - paid); both are maintained by the
// repository inside the same transaction as any line-item change.
type Visit struct {
	ID          int64     `json:"id"`
	PatientID   int64     `json:"patient_id"`
	VisitDate   time.Time `json:"visit_date"`
	VisitNumber int       `json:"visit_number,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	LabResults  string    `json:"lab_results,omitempty"`
	TotalCents  int64     `json:"total_cents"`
	PaidCents   int64     `json:"paid_cents"`
	DueCents    int64     `json:"due_cents"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ServiceLine is a billed service on a visit, priced at time of service.
type ServiceLine struct {
	ID                 int64  `json:"id"`
	VisitID            int64  `json:"visit_id"`
	ServiceID          int64  `json:"service_id"`
	ServiceName        string `json:"service_name,omitempty"`
	ServiceDescription string `json:"service_description,omitempty"`
	ToothNumber        *int   `json:"tooth_number,omitempty"`
	PriceCents         int64  `json:"price_cents"`
	Notes              string `json:"notes,omitempty"`
}

// PrescriptionLine is a prescribed medication on a visit. PriceCents is the
// line price; quantity is dosage information and does not multiply it.
type PrescriptionLine struct {
	ID                    int64  `json:"id"`
	VisitID               int64  `json:"visit_id"`
	MedicationID          int64  `json:"medication_id"`
	MedicationName        string `json:"medication_name,omitempty"`
	MedicationDescription string `json:"medication_description,omitempty"`
	Quantity              int    `json:"quantity"`
	PriceCents            int64  `json:"price_cents"`
	Instructions          string `json:"instructions,omitempty"`
}

// VisitDetail is a visit together with its line items.
type VisitDetail struct {
	Visit
	Services      []*ServiceLine      `json:"services"`
	Prescriptions []*PrescriptionLine `json:"prescriptions"`
}

// AddServiceLineRequest adds one billed service. A nil PriceCents falls back
// to the catalog default price.
type AddServiceLineRequest struct {
	ServiceID   int64  `json:"service_id"`
	ToothNumber *int   `json:"tooth_number,omitempty"`
	PriceCents  *int64 `json:"price_cents,omitempty"`
	Notes       string `json:"notes"`
}

// Validate validates the service line payload
func (r *AddServiceLineRequest) Validate() error {
	if r.ServiceID <= 0 {
		return ErrUnknownCatalogItem
	}
	if r.ToothNumber != nil && (*r.ToothNumber < 1 || *r.ToothNumber > 32) {
		return ErrInvalidToothNumber
	}
	if r.PriceCents != nil && *r.PriceCents < 0 {
		return ErrNegativePrice
	}
	return nil
}

// AddPrescriptionLineRequest adds one prescription. A nil PriceCents falls
// back to the catalog default price; quantity defaults to 1.
type AddPrescriptionLineRequest struct {
	MedicationID int64  `json:"medication_id"`
	Quantity     int    `json:"quantity"`
	PriceCents   *int64 `json:"price_cents,omitempty"`
	Instructions string `json:"instructions"`
}

// Validate validates the prescription line payload
func (r *AddPrescriptionLineRequest) Validate() error {
	if r.MedicationID <= 0 {
		return ErrUnknownCatalogItem
	}
	if r.Quantity < 0 {
		return ErrInvalidQuantity
	}
	if r.PriceCents != nil && *r.PriceCents < 0 {
		return ErrNegativePrice
	}
	return nil
}

func (r *AddPrescriptionLineRequest) quantity() int {
	if r.Quantity == 0 {
		return 1
	}
	return r.Quantity
}

// CreateVisitRequest opens a visit, optionally with initial line items and an
// initial payment. VisitDate uses YYYY-MM-DD and defaults to today.
type CreateVisitRequest struct {
	VisitDate     string                        `json:"visit_date"`
	Notes         string                        `json:"notes"`
	LabResults    string                        `json:"lab_results"`
	Services      []*AddServiceLineRequest      `json:"services,omitempty"`
	Prescriptions []*AddPrescriptionLineRequest `json:"prescriptions,omitempty"`
	PaidCents     int64                         `json:"paid_cents"`
}

// Validate validates the visit payload and every embedded line item
func (r *CreateVisitRequest) Validate() error {
	if _, err := r.date(); err != nil {
		return ErrInvalidDate
	}
	if r.PaidCents < 0 {
		return ErrNegativePayment
	}
	for _, s := range r.Services {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	for _, p := range r.Prescriptions {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r *CreateVisitRequest) date() (time.Time, error) {
	if r.VisitDate == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	return time.Parse("2006-01-02", r.VisitDate)
}

// UpdateVisitRequest changes the descriptive fields of a visit; billing
// amounts are only ever changed through line items and payments.
type UpdateVisitRequest struct {
	VisitDate  string `json:"visit_date"`
	Notes      string `json:"notes"`
	LabResults string `json:"lab_results"`
}

// Validate validates the update payload
func (r *UpdateVisitRequest) Validate() error {
	if r.VisitDate == "" {
		return ErrInvalidDate
	}
	if _, err := time.Parse("2006-01-02", r.VisitDate); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// PaymentRequest sets the amount paid so far on a visit.
type PaymentRequest struct {
	PaidCents int64 `json:"paid_cents"`
}
