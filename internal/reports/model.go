package reports

import "time"

// Period selects the time bucket for trend reports.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod validates a period query parameter, defaulting to month
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return Period(s), nil
	case "":
		return PeriodMonth, nil
	default:
		return "", ErrInvalidPeriod
	}
}

// bucketExpr returns the SQL expression that formats visit_date into this
// period's bucket label.
func (p Period) bucketExpr(col string) string {
	switch p {
	case PeriodDay:
		return `to_char(` + col + `, 'YYYY-MM-DD')`
	case PeriodWeek:
		return `to_char(` + col + `, 'IYYY-"W"IW')`
	default:
		return `to_char(` + col + `, 'YYYY-MM')`
	}
}

// GenderCount is one slice of the gender breakdown. Gender is empty for
// patients whose record never specified one.
type GenderCount struct {
	Gender string `json:"gender"`
	Count  int64  `json:"count"`
}

// AgeBucket is one slice of the age histogram.
type AgeBucket struct {
	Bucket string `json:"bucket"`
	Count  int64  `json:"count"`
}

// Demographics is the patient population breakdown.
type Demographics struct {
	TotalPatients int64         `json:"total_patients"`
	ByGender      []GenderCount `json:"by_gender"`
	ByAge         []AgeBucket   `json:"by_age"`
}

// VisitFrequencyRow describes how often one patient comes in.
type VisitFrequencyRow struct {
	PatientID       int64     `json:"patient_id"`
	Name            string    `json:"name"`
	VisitCount      int64     `json:"visit_count"`
	FirstVisit      time.Time `json:"first_visit"`
	LastVisit       time.Time `json:"last_visit"`
	AvgDaysBetween  float64   `json:"avg_days_between"`
	DaysSinceLast   int64     `json:"days_since_last"`
	TotalPaidCents  int64     `json:"total_paid_cents"`
	TotalDueCents   int64     `json:"total_due_cents"`
	TotalCentsValue int64     `json:"total_billed_cents"`
}

// InactivePatientRow is a patient whose last visit predates the cutoff.
type InactivePatientRow struct {
	PatientID     int64     `json:"patient_id"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone,omitempty"`
	LastVisit     time.Time `json:"last_visit"`
	DaysSinceLast int64     `json:"days_since_last"`
}

// SingleVisitPatientRow is a patient who came exactly once and never returned.
type SingleVisitPatientRow struct {
	PatientID  int64     `json:"patient_id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone,omitempty"`
	VisitDate  time.Time `json:"visit_date"`
	TotalCents int64     `json:"total_cents"`
	DueCents   int64     `json:"due_cents"`
}

// UtilizationRow aggregates usage and revenue for one catalog item.
// AvgQuantity is only set for medications.
type UtilizationRow struct {
	ItemID        int64    `json:"item_id"`
	Name          string   `json:"name"`
	UseCount      int64    `json:"use_count"`
	AvgPriceCents float64  `json:"avg_price_cents"`
	TotalCents    int64    `json:"total_cents"`
	AvgQuantity   *float64 `json:"avg_quantity,omitempty"`
}

// TrendRow is one time bucket of catalog item usage.
type TrendRow struct {
	Bucket     string `json:"bucket"`
	UseCount   int64  `json:"use_count"`
	TotalCents int64  `json:"total_cents"`
}

// RevenueRow compares what was billed against what was collected in one
// time bucket.
type RevenueRow struct {
	Bucket         string `json:"bucket"`
	BilledCents    int64  `json:"billed_cents"`
	CollectedCents int64  `json:"collected_cents"`
	GapCents       int64  `json:"gap_cents"`
}

// VisitTrendRow is one time bucket of visit volume and money.
type VisitTrendRow struct {
	Bucket         string `json:"bucket"`
	VisitCount     int64  `json:"visit_count"`
	BilledCents    int64  `json:"billed_cents"`
	CollectedCents int64  `json:"collected_cents"`
}

// ToothRow aggregates treatments per tooth (FDI-style 1..32 numbering).
// Services lists the distinct service names applied to the tooth.
type ToothRow struct {
	ToothNumber    int      `json:"tooth_number"`
	TreatmentCount int64    `json:"treatment_count"`
	TotalCents     int64    `json:"total_cents"`
	Services       []string `json:"services"`
}

// PriceDeviationRow compares the average charged price of a catalog item
// with its current default.
type PriceDeviationRow struct {
	Kind              string  `json:"kind"`
	ItemID            int64   `json:"item_id"`
	Name              string  `json:"name"`
	UseCount          int64   `json:"use_count"`
	DefaultPriceCents int64   `json:"default_price_cents"`
	AvgChargedCents   float64 `json:"avg_charged_cents"`
	DeviationCents    float64 `json:"deviation_cents"`
}

// LoadRow is clinic load for one weekday or calendar month.
type LoadRow struct {
	Label          string  `json:"label"`
	VisitCount     int64   `json:"visit_count"`
	AvgBilledCents float64 `json:"avg_billed_cents"`
}

// ClinicLoad is visit volume broken down two ways.
type ClinicLoad struct {
	ByWeekday []LoadRow `json:"by_weekday"`
	ByMonth   []LoadRow `json:"by_month"`
}

// DuplicatePatientGroup is a cluster of patient records sharing name and phone.
type DuplicatePatientGroup struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Count int64  `json:"count"`
}

// EmptyVisit is a visit carrying no line items at all.
type EmptyVisit struct {
	VisitID   int64     `json:"visit_id"`
	PatientID int64     `json:"patient_id"`
	VisitDate time.Time `json:"visit_date"`
}

// InactiveItemUse is a deactivated catalog item that still appears on visits.
type InactiveItemUse struct {
	ItemID   int64  `json:"item_id"`
	Name     string `json:"name"`
	UseCount int64  `json:"use_count"`
}

// DataQuality surfaces records that need attention.
type DataQuality struct {
	DuplicatePatients       []DuplicatePatientGroup `json:"duplicate_patients"`
	EmptyVisits             []EmptyVisit            `json:"empty_visits"`
	InactiveServicesUsed    []InactiveItemUse       `json:"inactive_services_used"`
	InactiveMedicationsUsed []InactiveItemUse       `json:"inactive_medications_used"`
	ZeroPricedLines         int64                   `json:"zero_priced_lines"`
	PatientsMissingPhone    int64                   `json:"patients_missing_phone"`
	PatientsMissingAge      int64                   `json:"patients_missing_age"`
}
