package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// db is the interface for database operations needed by the repository.
// Satisfied by *pgxpool.Pool and by pgxmock in tests.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository is a PostgreSQL implementation of Repository
type PostgresRepository struct {
	db db
}

// NewPostgresRepository creates a new PostgreSQL reports repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("reports: pool is nil")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB creates a repository with a custom db, used in tests
func NewPostgresRepositoryWithDB(db db) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Demographics breaks the patient population down by gender and age band.
// Patients with age 0 are treated as unrecorded and excluded from the age
// histogram.
func (r *PostgresRepository) Demographics(ctx context.Context) (*Demographics, error) {
	d := &Demographics{ByGender: []GenderCount{}, ByAge: []AgeBucket{}}

	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&d.TotalPatients); err != nil {
		return nil, fmt.Errorf("reports: count patients: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT gender, COUNT(*)
		FROM patients
		GROUP BY gender
		ORDER BY COUNT(*) DESC, gender`)
	if err != nil {
		return nil, fmt.Errorf("reports: query genders: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var g GenderCount
		if err := rows.Scan(&g.Gender, &g.Count); err != nil {
			return nil, fmt.Errorf("reports: scan gender: %w", err)
		}
		d.ByGender = append(d.ByGender, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reports: iterate genders: %w", err)
	}

	rows, err = r.db.Query(ctx, `
		SELECT CASE
			WHEN age < 18 THEN 'under_18'
			WHEN age <= 30 THEN '18_30'
			WHEN age <= 45 THEN '31_45'
			WHEN age <= 60 THEN '46_60'
			ELSE 'over_60'
		END AS bucket, COUNT(*)
		FROM patients
		WHERE age > 0
		GROUP BY bucket
		ORDER BY MIN(age)`)
	if err != nil {
		return nil, fmt.Errorf("reports: query age buckets: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var b AgeBucket
		if err := rows.Scan(&b.Bucket, &b.Count); err != nil {
			return nil, fmt.Errorf("reports: scan age bucket: %w", err)
		}
		d.ByAge = append(d.ByAge, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reports: iterate age buckets: %w", err)
	}

	return d, nil
}

// VisitFrequency reports per-patient visit cadence. AvgDaysBetween is the
// span between first and last visit divided by the gaps, zero for patients
// with a single visit.
func (r *PostgresRepository) VisitFrequency(ctx context.Context) ([]*VisitFrequencyRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.name, COUNT(v.id),
		       MIN(v.visit_date), MAX(v.visit_date),
		       CASE WHEN COUNT(v.id) > 1
		            THEN (MAX(v.visit_date) - MIN(v.visit_date))::float / (COUNT(v.id) - 1)
		            ELSE 0 END,
		       CURRENT_DATE - MAX(v.visit_date),
		       SUM(v.paid_cents), SUM(v.due_cents), SUM(v.total_cents)
		FROM patients p
		JOIN visits v ON v.patient_id = p.id
		GROUP BY p.id, p.name
		ORDER BY COUNT(v.id) DESC, p.name`)
	if err != nil {
		return nil, fmt.Errorf("reports: query visit frequency: %w", err)
	}
	defer rows.Close()

	result := []*VisitFrequencyRow{}
	for rows.Next() {
		row := &VisitFrequencyRow{}
		if err := rows.Scan(&row.PatientID, &row.Name, &row.VisitCount,
			&row.FirstVisit, &row.LastVisit, &row.AvgDaysBetween, &row.DaysSinceLast,
			&row.TotalPaidCents, &row.TotalDueCents, &row.TotalCentsValue); err != nil {
			return nil, fmt.Errorf("reports: scan visit frequency: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reports: iterate visit frequency: %w", err)
	}
	return result, nil
}

// InactivePatients lists patients whose most recent visit is older than the
// cutoff, longest absent first
func (r *PostgresRepository) InactivePatients(ctx context.Context, cutoffDays int) ([]*InactivePatientRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.name, p.phone, MAX(v.visit_date), CURRENT_DATE - MAX(v.visit_date)
		FROM patients p
		JOIN visits v ON v.patient_id = p.id
		GROUP BY p.id, p.name, p.phone
		HAVING MAX(v.visit_date) < CURRENT_DATE - $1::int
		ORDER BY MAX(v.visit_date)`,
		cutoffDays)
	if err != nil {
		return nil, fmt.Errorf("reports: query inactive patients: %w", err)
	}
	defer rows.Close()

	result := []*InactivePatientRow{}
	for rows.Next() {
		row := &InactivePatientRow{}
		if err := rows.Scan(&row.PatientID, &row.Name, &row.Phone, &row.LastVisit, &row.DaysSinceLast); err != nil {
			return nil, fmt.Errorf("reports: scan inactive patient: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reports: iterate inactive patients: %w", err)
	}
	return result, nil
}

// SingleVisitPatients lists patients who came exactly once
func (r *PostgresRepository) SingleVisitPatients(ctx context.Context) ([]*SingleVisitPatientRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.name, p.phone, MAX(v.visit_date), SUM(v.total_cents), SUM(v.due_cents)
		FROM patients p
		JOIN visits v ON v.patient_id = p.id
		GROUP BY p.id, p.name, p.phone
		HAVING COUNT(v.id) = 1
		ORDER BY MAX(v.visit_date) DESC`)
	if err != nil {
		return nil, fmt.Errorf("reports: query single-visit patients: %w", err)
	}
	defer rows.Close()

	result := []*SingleVisitPatientRow{}
	for rows.Next() {
		row := &SingleVisitPatientRow{}
		if err := rows.Scan(&row.PatientID, &row.Name, &row.Phone, &row.VisitDate,
			&row.TotalCents, &row.DueCents); err != nil {
			return nil, fmt.Errorf("reports: scan single-visit patient: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reports: iterate single-visit patients: %w", err)
	}
	return result, nil
}

// ServiceUtilization reports usage and revenue per catalog service,
// including services never used
func (r *PostgresRepository) ServiceUtilization(ctx context.Context) ([]*UtilizationRow, error) {
	return r.utilization(ctx, `
		SELECT s.id, s.name, COUNT(vs.id),
		       COALESCE(AVG(vs.price_cents), 0), COALESCE(SUM(vs.price_cents), 0)
		FROM services s
		LEFT JOIN visit_services vs ON vs.service_id = s.id
		GROUP BY s.id, s.name
		ORDER BY COUNT(vs.id) DESC, s.name`, false)
}

// MedicationUtilization reports usage, revenue, and average prescribed
// quantity per medication
func (r *PostgresRepository) MedicationUtilization(ctx context.Context) ([]*UtilizationRow, error) {
	return r.utilization(ctx, `
		SELECT m.id, m.name, COUNT(vp.id),
		       COALESCE(AVG(vp.price_cents), 0), COALESCE(SUM(vp.price_cents), 0),
		       AVG(vp.quantity)
		FROM medications m
		LEFT JOIN visit_prescriptions vp ON vp.medication_id = m.id
		GROUP BY m.id, m.name
		ORDER BY COUNT(vp.id) DESC, m.name`, true)
}

func (r *PostgresRepository) utilization(ctx context.Context, query string, withQuantity bool) ([]*UtilizationRow, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reports: query utilization: %w", err)
	}
	defer rows.Close()

	result := []*UtilizationRow{}
	for rows.Next() {
		row := &UtilizationRow{}
		var err error
		if withQuantity {
			err = rows.Scan(&row.ItemID, &row.Name, &row.UseCount,
				&row.AvgPriceCents, &row.TotalCents, &row.AvgQuantity)
		} else {
			err = rows.Scan(&row.ItemID, &row.Name, &row.UseCount,
				&row.AvgPriceCents, &row.TotalCents)
		}
		if err != nil {
			return nil, fmt.Errorf("reports: scan utilization: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reports: iterate utilization: %w", err)
	}
	return result, nil
}

// ServiceTrends buckets service usage over time
func (r *PostgresRepository) ServiceTrends(ctx context.Context, p Period) ([]*TrendRow, error) {
	return r.trends(ctx, `
		SELECT `+p.bucketExpr("v.visit_date")+` AS bucket, COUNT(vs.id), SUM(vs.price_cents)
		FROM visit_services vs
		JOIN visits v ON v.id = vs.visit_id
		GROUP BY bucket
		ORDER BY bucket`)
}

// MedicationTrends buckets prescriptions over time
func (r *PostgresRepository) MedicationTrends(ctx context.Context, p Period) ([]*TrendRow, error) {
	return r.trends(ctx, `
		SELECT `+p.bucketExpr("v.visit_date")+` AS bucket, COUNT(vp.id), SUM(vp.price_cents)
		FROM visit_prescriptions vp
		JOIN visits v ON v.id = vp.visit_id
		GROUP BY bucket
		ORDER BY bucket`)
}

func (r *PostgresRepository) trends(ctx context.Context, query string) ([]*TrendRow, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reports: query trends: %w", err)
	}
	defer rows.Close()

	result := []*TrendRow{}
	for rows.Next() {
		row := &TrendRow{}
		if err := rows.Scan(&row.Bucket, &row.UseCount, &row.TotalCents); err != nil {
			return nil, fmt.Errorf("reports: scan trend: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reports: iterate trends: %w", err)
	}
	return result, nil
}

// Revenue compares billed against collected per time bucket
func (r *PostgresRepository) Revenue(ctx context.Context, p Period) ([]*RevenueRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+p.bucketExpr("visit_date")+` AS bucket, SUM(total_cents), SUM(paid_cents)
		FROM visits
		GROUP BY bucket
		ORDER BY bucket`)
	if err != nil {
		return nil, fmt.Errorf("reports: query revenue: %w", err)
	}
	defer rows.Close()

	result := []*RevenueRow{}
	for rows.Next() {
		row := &RevenueRow{}
		if err := rows.Scan(&row.Bucket, &row.BilledCents, &row.CollectedCents); err != nil {
			return nil, fmt.Errorf("reports: scan revenue: %w", err)
		}
		row.GapCents = row.BilledCents - row.CollectedCents
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reports: iterate revenue: %w", err)
	}
	return result, nil
}

// VisitTrends buckets visit volume and money within a date range
func (r *PostgresRepository) VisitTrends(ctx context.Context, p Period, start, end time.Time) ([]*VisitTrendRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+p.bucketExpr("visit_date")+` AS bucket, COUNT(*), SUM(total_cents), SUM(paid_cents)
		FROM visits
		WHERE visit_date >= $1 AND visit_date <= $2
		GROUP BY bucket
		ORDER BY bucket`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("reports: query visit trends: %w", err)
	}
	defer rows.Close()

	result := []*VisitTrendRow{}
	for rows.Next() {
		row := &VisitTrendRow{}
		if err := rows.Scan(&row.Bucket, &row.VisitCount, &row.BilledCents, &row.CollectedCents); err != nil {
			return nil, fmt.Errorf("reports: scan visit trend: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reports: iterate visit trends: %w", err)
	}
	return result, nil
}

// ToothAnalysis aggregates treatments per tooth, listing the distinct
// services applied to each
func (r *PostgresRepository) ToothAnalysis(ctx context.Context) ([]*ToothRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT vs.tooth_number, COUNT(*), SUM(vs.price_cents),
		       array_agg(DISTINCT s.name ORDER BY s.name)
		FROM visit_services vs
		JOIN services s ON s.id = vs.service_id
		WHERE vs.tooth_number IS NOT NULL
		GROUP BY vs.tooth_number
		ORDER BY vs.tooth_number`)
	if err != nil {
		return nil, fmt.Errorf("reports: query tooth analysis: %w", err)
	}
	defer rows.Close()

	result := []*ToothRow{}
	for rows.Next() {
		row := &ToothRow{}
		if err := rows.Scan(&row.ToothNumber, &row.TreatmentCount, &row.TotalCents, &row.Services); err != nil {
			return nil, fmt.Errorf("reports: scan tooth row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reports: iterate tooth analysis: %w", err)
	}
	return result, nil
}

// PriceDeviation compares average charged price to the current catalog
// default for every item actually used
func (r *PostgresRepository) PriceDeviation(ctx context.Context) ([]*PriceDeviationRow, error) {
	rows, err := r.db.Query(ctx, `
		SELECT 'service' AS kind, s.id, s.name, COUNT(vs.id), s.default_price_cents, AVG(vs.price_cents)
		FROM services s
		JOIN visit_services vs ON vs.service_id = s.id
		GROUP BY s.id, s.name, s.default_price_cents
		UNION ALL
		SELECT 'medication', m.id, m.name, COUNT(vp.id), m.default_price_cents, AVG(vp.price_cents)
		FROM medications m
		JOIN visit_prescriptions vp ON vp.medication_id = m.id
		GROUP BY m.id, m.name, m.default_price_cents
		ORDER BY 1, 4 DESC`)
	if err != nil {
		return nil, fmt.Errorf("reports: query price deviation: %w", err)
	}
	defer rows.Close()

	result := []*PriceDeviationRow{}
	for rows.Next() {
		row := &PriceDeviationRow{}
		if err := rows.Scan(&row.Kind, &row.ItemID, &row.Name, &row.UseCount,
			&row.DefaultPriceCents, &row.AvgChargedCents); err != nil {
			return nil, fmt.Errorf("reports: scan price deviation: %w", err)
		}
		row.DeviationCents = row.AvgChargedCents - float64(row.DefaultPriceCents)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reports: iterate price deviation: %w", err)
	}
	return result, nil
}

// ClinicLoad reports visit volume by weekday and by calendar month
func (r *PostgresRepository) ClinicLoad(ctx context.Context) (*ClinicLoad, error) {
	load := &ClinicLoad{ByWeekday: []LoadRow{}, ByMonth: []LoadRow{}}

	byWeekday, err := r.loadRows(ctx, `
		SELECT trim(to_char(visit_date, 'Day')), COUNT(*), COALESCE(AVG(total_cents), 0)
		FROM visits
		GROUP BY 1, EXTRACT(ISODOW FROM visit_date)
		ORDER BY EXTRACT(ISODOW FROM visit_date)`)
	if err != nil {
		return nil, err
	}
	load.ByWeekday = byWeekday

	byMonth, err := r.loadRows(ctx, `
		SELECT trim(to_char(visit_date, 'Month')), COUNT(*), COALESCE(AVG(total_cents), 0)
		FROM visits
		GROUP BY 1, EXTRACT(MONTH FROM visit_date)
		ORDER BY EXTRACT(MONTH FROM visit_date)`)
	if err != nil {
		return nil, err
	}
	load.ByMonth = byMonth

	return load, nil
}

func (r *PostgresRepository) loadRows(ctx context.Context, query string) ([]LoadRow, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reports: query clinic load: %w", err)
	}
	defer rows.Close()

	result := []LoadRow{}
	for rows.Next() {
		var row LoadRow
		if err := rows.Scan(&row.Label, &row.VisitCount, &row.AvgBilledCents); err != nil {
			return nil, fmt.Errorf("reports: scan clinic load: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reports: iterate clinic load: %w", err)
	}
	return result, nil
}

// DataQuality surfaces suspect records: duplicate patients, visits without
// line items, deactivated catalog items still referenced by visits,
// zero-priced lines, and missing contact or age data
func (r *PostgresRepository) DataQuality(ctx context.Context) (*DataQuality, error) {
	q := &DataQuality{
		DuplicatePatients:       []DuplicatePatientGroup{},
		EmptyVisits:             []EmptyVisit{},
		InactiveServicesUsed:    []InactiveItemUse{},
		InactiveMedicationsUsed: []InactiveItemUse{},
	}

	rows, err := r.db.Query(ctx, `
		SELECT name, phone, COUNT(*)
		FROM patients
		WHERE phone <> ''
		GROUP BY name, phone
		HAVING COUNT(*) > 1
		ORDER BY COUNT(*) DESC, name`)
	if err != nil {
		return nil, fmt.Errorf("reports: query duplicate patients: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var g DuplicatePatientGroup
		if err := rows.Scan(&g.Name, &g.Phone, &g.Count); err != nil {
			return nil, fmt.Errorf("reports: scan duplicate patient: %w", err)
		}
		q.DuplicatePatients = append(q.DuplicatePatients, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reports: iterate duplicate patients: %w", err)
	}

	rows, err = r.db.Query(ctx, `
		SELECT v.id, v.patient_id, v.visit_date
		FROM visits v
		WHERE NOT EXISTS (SELECT 1 FROM visit_services vs WHERE vs.visit_id = v.id)
		  AND NOT EXISTS (SELECT 1 FROM visit_prescriptions vp WHERE vp.visit_id = v.id)
		ORDER BY v.visit_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("reports: query empty visits: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v EmptyVisit
		if err := rows.Scan(&v.VisitID, &v.PatientID, &v.VisitDate); err != nil {
			return nil, fmt.Errorf("reports: scan empty visit: %w", err)
		}
		q.EmptyVisits = append(q.EmptyVisits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reports: iterate empty visits: %w", err)
	}

	q.InactiveServicesUsed, err = r.inactiveItemUses(ctx, `
		SELECT s.id, s.name, COUNT(vs.id)
		FROM services s
		JOIN visit_services vs ON vs.service_id = s.id
		WHERE NOT s.active
		GROUP BY s.id, s.name
		ORDER BY COUNT(vs.id) DESC, s.name`)
	if err != nil {
		return nil, err
	}
	q.InactiveMedicationsUsed, err = r.inactiveItemUses(ctx, `
		SELECT m.id, m.name, COUNT(vp.id)
		FROM medications m
		JOIN visit_prescriptions vp ON vp.medication_id = m.id
		WHERE NOT m.active
		GROUP BY m.id, m.name
		ORDER BY COUNT(vp.id) DESC, m.name`)
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM visit_services WHERE price_cents = 0)
			+ (SELECT COUNT(*) FROM visit_prescriptions WHERE price_cents = 0),
			(SELECT COUNT(*) FROM patients WHERE phone = ''),
			(SELECT COUNT(*) FROM patients WHERE age = 0)`,
	).Scan(&q.ZeroPricedLines, &q.PatientsMissingPhone, &q.PatientsMissingAge)
	if err != nil {
		return nil, fmt.Errorf("reports: query data-quality counts: %w", err)
	}

	return q, nil
}

func (r *PostgresRepository) inactiveItemUses(ctx context.Context, query string) ([]InactiveItemUse, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("reports: query inactive item uses: %w", err)
	}
	defer rows.Close()

	result := []InactiveItemUse{}
	for rows.Next() {
		var u InactiveItemUse
		if err := rows.Scan(&u.ItemID, &u.Name, &u.UseCount); err != nil {
			return nil, fmt.Errorf("reports: scan inactive item use: %w", err)
		}
		result = append(result, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reports: iterate inactive item uses: %w", err)
	}
	return result, nil
}
