package patients

import (
	"strings"
	"time"
)

// Patient represents a clinic patient record
type Patient struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	FatherName     string    `json:"father_name,omitempty"`
	Gender         string    `json:"gender,omitempty"`
	Age            int       `json:"age"`
	Address        string    `json:"address,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	MedicalHistory string    `json:"medical_history,omitempty"`
	FirstVisitDate time.Time `json:"first_visit_date"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UpsertPatientRequest carries the mutable fields for create and update.
type UpsertPatientRequest struct {
	Name           string `json:"name"`
	FatherName     string `json:"father_name"`
	Gender         string `json:"gender"`
	Age            int    `json:"age"`
	Address        string `json:"address"`
	Phone          string `json:"phone"`
	MedicalHistory string `json:"medical_history"`
}

// Validate validates the patient payload
func (r *UpsertPatientRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}
	if r.Age < 0 {
		return ErrInvalidAge
	}
	switch strings.ToLower(strings.TrimSpace(r.Gender)) {
	case "", "male", "female", "other":
	default:
		return ErrInvalidGender
	}
	return nil
}

// normalized returns the request with name trimmed and gender lowercased.
func (r *UpsertPatientRequest) normalized() UpsertPatientRequest {
	out := *r
	out.Name = strings.TrimSpace(r.Name)
	out.Gender = strings.ToLower(strings.TrimSpace(r.Gender))
	return out
}

// FinancialSummary aggregates lifetime billing for one patient.
type FinancialSummary struct {
	PatientID        int64 `json:"patient_id"`
	TotalBilledCents int64 `json:"total_billed_cents"`
	TotalPaidCents   int64 `json:"total_paid_cents"`
	TotalDueCents    int64 `json:"total_due_cents"`
}
