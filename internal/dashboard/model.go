package dashboard

import "time"

// Summary holds the front-desk KPI numbers. Revenue figures count money
// collected (paid_cents), not billed, over each window.
type Summary struct {
	TotalPatients     int64     `json:"total_patients"`
	VisitsToday       int64     `json:"visits_today"`
	RevenueTodayCents int64     `json:"revenue_today_cents"`
	RevenueWeekCents  int64     `json:"revenue_week_cents"`
	RevenueMonthCents int64     `json:"revenue_month_cents"`
	OutstandingCents  int64     `json:"outstanding_cents"`
	GeneratedAt       time.Time `json:"generated_at"`
}
