package backup

import (
	"encoding/json"
	"time"
)

// Table names in parent-first order. Restores insert in this order and
// delete in reverse so foreign keys always hold.
var tableOrder = []string{
	"patients",
	"services",
	"medications",
	"visits",
	"visit_services",
	"visit_prescriptions",
}

// manifest is the first line of every snapshot file.
type manifest struct {
	SnapshotID string         `json:"snapshot_id"`
	CreatedAt  time.Time      `json:"created_at"`
	RowCounts  map[string]int `json:"row_counts"`
}

// tableRow is one data line of a snapshot file.
type tableRow struct {
	Table string          `json:"table"`
	Row   json.RawMessage `json:"row"`
}

// SnapshotInfo describes a snapshot on disk.
type SnapshotInfo struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Filename  string         `json:"filename"`
	SizeBytes int64          `json:"size_bytes"`
	RowCounts map[string]int `json:"row_counts"`
	S3Key     string         `json:"s3_key,omitempty"`
}

// RestoreResult summarizes a completed restore.
type RestoreResult struct {
	SnapshotID    string         `json:"snapshot_id"`
	PreRestoreID  string         `json:"pre_restore_snapshot_id"`
	RowsRestored  map[string]int `json:"rows_restored"`
	TotalRestored int            `json:"total_restored"`
}

// PatientRow mirrors one patients record.
type PatientRow struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	FatherName     string    `json:"father_name"`
	Gender         string    `json:"gender"`
	Age            int       `json:"age"`
	Address        string    `json:"address"`
	Phone          string    `json:"phone"`
	MedicalHistory string    `json:"medical_history"`
	FirstVisitDate time.Time `json:"first_visit_date"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CatalogRow mirrors one services or medications record.
type CatalogRow struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	DefaultPriceCents int64     `json:"default_price_cents"`
	Active            bool      `json:"active"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// VisitRow mirrors one visits record.
type VisitRow struct {
	ID         int64     `json:"id"`
	PatientID  int64     `json:"patient_id"`
	VisitDate  time.Time `json:"visit_date"`
	Notes      string    `json:"notes"`
	LabResults string    `json:"lab_results"`
	TotalCents int64     `json:"total_cents"`
	PaidCents  int64     `json:"paid_cents"`
	DueCents   int64     `json:"due_cents"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// VisitServiceRow mirrors one visit_services record.
type VisitServiceRow struct {
	ID          int64     `json:"id"`
	VisitID     int64     `json:"visit_id"`
	ServiceID   int64     `json:"service_id"`
	ToothNumber *int      `json:"tooth_number"`
	PriceCents  int64     `json:"price_cents"`
	Notes       string    `json:"notes"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// VisitPrescriptionRow mirrors one visit_prescriptions record.
type VisitPrescriptionRow struct {
	ID           int64     `json:"id"`
	VisitID      int64     `json:"visit_id"`
	MedicationID int64     `json:"medication_id"`
	Quantity     int       `json:"quantity"`
	PriceCents   int64     `json:"price_cents"`
	Instructions string    `json:"instructions"`
	UpdatedAt    time.Time `json:"updated_at"`
}
