package billing

import "time"

// Debtor is a patient with unpaid balance across one or more visits.
type Debtor struct {
	PatientID     int64     `json:"patient_id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone,omitempty"`
	VisitCount    int       `json:"visit_count"`
	UnpaidVisits  int       `json:"unpaid_visits"`
	TotalDueCents int64     `json:"total_due_cents"`
	LastVisitDate time.Time `json:"last_visit_date"`
}
