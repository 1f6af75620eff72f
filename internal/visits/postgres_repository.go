package visits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgForeignKeyViolation = "23503"
	pgNotNullViolation    = "23502"
	pgCheckViolation      = "23514"
)

// db is the interface for database operations needed by the repository.
// Satisfied by *pgxpool.Pool and by pgxmock in tests.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// queryer covers the subset of db used inside a transaction, satisfied by
// both db and pgx.Tx.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository is a PostgreSQL implementation of Repository
type PostgresRepository struct {
	db db
}

// NewPostgresRepository creates a new PostgreSQL visit repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("visits: pool is nil")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB creates a repository with a custom db, used in tests
func NewPostgresRepositoryWithDB(db db) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const visitColumns = `id, patient_id, visit_date, notes, lab_results, total_cents, paid_cents, due_cents, updated_at`

// reconcileSQL recomputes a visit's total from its line items and the due
// amount from the total and what has been paid. It runs in the same
// transaction as the line-item change that made it necessary.
const reconcileSQL = `
	UPDATE visits SET
		total_cents = items.total,
		due_cents   = GREATEST(0, items.total - visits.paid_cents),
		updated_at  = now()
	FROM (
		SELECT COALESCE((SELECT SUM(price_cents) FROM visit_services WHERE visit_id = $1), 0)
		     + COALESCE((SELECT SUM(price_cents) FROM visit_prescriptions WHERE visit_id = $1), 0) AS total
	) AS items
	WHERE visits.id = $1`

// Create inserts a visit, its initial line items, and any initial payment in
// a single transaction, so the stored totals can never drift from the lines.
func (r *PostgresRepository) Create(ctx context.Context, patientID int64, req *CreateVisitRequest) (*VisitDetail, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	date, _ := req.date()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("visits: begin create: %w", err)
	}
	defer tx.Rollback(ctx)

	var visitID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO visits (patient_id, visit_date, notes, lab_results, paid_cents)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		patientID, date, req.Notes, req.LabResults, req.PaidCents,
	).Scan(&visitID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("visits: insert visit: %w", err)
	}

	for _, s := range req.Services {
		if _, err := insertServiceLine(ctx, tx, visitID, s); err != nil {
			return nil, err
		}
	}
	for _, p := range req.Prescriptions {
		if _, err := insertPrescriptionLine(ctx, tx, visitID, p); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx, reconcileSQL, visitID); err != nil {
		return nil, fmt.Errorf("visits: reconcile: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("visits: commit create: %w", err)
	}

	return r.GetByID(ctx, visitID)
}

// GetByID retrieves a visit with its line items and derived visit number
func (r *PostgresRepository) GetByID(ctx context.Context, visitID int64) (*VisitDetail, error) {
	d := &VisitDetail{Services: []*ServiceLine{}, Prescriptions: []*PrescriptionLine{}}
	err := r.db.QueryRow(ctx, `
		SELECT v.id, v.patient_id, v.visit_date,
		       (SELECT COUNT(*) FROM visits v2
		         WHERE v2.patient_id = v.patient_id AND v2.visit_date <= v.visit_date) AS visit_number,
		       v.notes, v.lab_results, v.total_cents, v.paid_cents, v.due_cents, v.updated_at
		FROM visits v
		WHERE v.id = $1`,
		visitID,
	).Scan(&d.ID, &d.PatientID, &d.VisitDate, &d.VisitNumber, &d.Notes, &d.LabResults,
		&d.TotalCents, &d.PaidCents, &d.DueCents, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVisitNotFound
		}
		return nil, fmt.Errorf("visits: get visit: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT vs.id, vs.visit_id, vs.service_id, s.name, s.description, vs.tooth_number, vs.price_cents, vs.notes
		FROM visit_services vs
		JOIN services s ON s.id = vs.service_id
		WHERE vs.visit_id = $1
		ORDER BY vs.id`,
		visitID)
	if err != nil {
		return nil, fmt.Errorf("visits: query service lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		line := &ServiceLine{}
		if err := rows.Scan(&line.ID, &line.VisitID, &line.ServiceID, &line.ServiceName,
			&line.ServiceDescription, &line.ToothNumber, &line.PriceCents, &line.Notes); err != nil {
			return nil, fmt.Errorf("visits: scan service line: %w", err)
		}
		d.Services = append(d.Services, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("visits: iterate service lines: %w", err)
	}

	rows, err = r.db.Query(ctx, `
		SELECT vp.id, vp.visit_id, vp.medication_id, m.name, m.description, vp.quantity, vp.price_cents, vp.instructions
		FROM visit_prescriptions vp
		JOIN medications m ON m.id = vp.medication_id
		WHERE vp.visit_id = $1
		ORDER BY vp.id`,
		visitID)
	if err != nil {
		return nil, fmt.Errorf("visits: query prescription lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		line := &PrescriptionLine{}
		if err := rows.Scan(&line.ID, &line.VisitID, &line.MedicationID, &line.MedicationName,
			&line.MedicationDescription, &line.Quantity, &line.PriceCents, &line.Instructions); err != nil {
			return nil, fmt.Errorf("visits: scan prescription line: %w", err)
		}
		d.Prescriptions = append(d.Prescriptions, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("visits: iterate prescription lines: %w", err)
	}

	return d, nil
}

// ListByPatient returns a patient's visits, most recent first, each with its
// ordinal visit number for that patient
func (r *PostgresRepository) ListByPatient(ctx context.Context, patientID int64) ([]*Visit, error) {
	rows, err := r.db.Query(ctx, `
		SELECT v.id, v.patient_id, v.visit_date,
		       (SELECT COUNT(*) FROM visits v2
		         WHERE v2.patient_id = v.patient_id AND v2.visit_date <= v.visit_date) AS visit_number,
		       v.notes, v.lab_results, v.total_cents, v.paid_cents, v.due_cents, v.updated_at
		FROM visits v
		WHERE v.patient_id = $1
		ORDER BY v.visit_date DESC, v.id DESC`,
		patientID)
	if err != nil {
		return nil, fmt.Errorf("visits: query visits: %w", err)
	}
	defer rows.Close()

	visits := []*Visit{}
	for rows.Next() {
		v := &Visit{}
		if err := rows.Scan(&v.ID, &v.PatientID, &v.VisitDate, &v.VisitNumber, &v.Notes,
			&v.LabResults, &v.TotalCents, &v.PaidCents, &v.DueCents, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("visits: scan visit: %w", err)
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("visits: iterate visits: %w", err)
	}
	return visits, nil
}

// Update changes the descriptive fields of a visit
func (r *PostgresRepository) Update(ctx context.Context, visitID int64, req *UpdateVisitRequest) (*Visit, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	date, _ := time.Parse("2006-01-02", req.VisitDate)

	v := &Visit{}
	err := r.db.QueryRow(ctx, `
		UPDATE visits
		SET visit_date = $2, notes = $3, lab_results = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+visitColumns,
		visitID, date, req.Notes, req.LabResults,
	).Scan(&v.ID, &v.PatientID, &v.VisitDate, &v.Notes, &v.LabResults,
		&v.TotalCents, &v.PaidCents, &v.DueCents, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVisitNotFound
		}
		return nil, fmt.Errorf("visits: update visit: %w", err)
	}
	return v, nil
}

// Delete removes a visit; its line items go with it via cascade
func (r *PostgresRepository) Delete(ctx context.Context, visitID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM visits WHERE id = $1`, visitID)
	if err != nil {
		return fmt.Errorf("visits: delete visit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVisitNotFound
	}
	return nil
}

// AddService inserts a billed service and reconciles the visit's totals in
// one transaction
func (r *PostgresRepository) AddService(ctx context.Context, visitID int64, req *AddServiceLineRequest) (*ServiceLine, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("visits: begin add service: %w", err)
	}
	defer tx.Rollback(ctx)

	line, err := insertServiceLine(ctx, tx, visitID, req)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, reconcileSQL, visitID); err != nil {
		return nil, fmt.Errorf("visits: reconcile: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("visits: commit add service: %w", err)
	}
	return line, nil
}

// RemoveService deletes a billed service and reconciles the visit's totals
// in one transaction
func (r *PostgresRepository) RemoveService(ctx context.Context, visitID, lineID int64) error {
	return r.removeLine(ctx, `DELETE FROM visit_services WHERE id = $1 AND visit_id = $2`, visitID, lineID)
}

// AddPrescription inserts a prescription and reconciles the visit's totals
// in one transaction
func (r *PostgresRepository) AddPrescription(ctx context.Context, visitID int64, req *AddPrescriptionLineRequest) (*PrescriptionLine, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("visits: begin add prescription: %w", err)
	}
	defer tx.Rollback(ctx)

	line, err := insertPrescriptionLine(ctx, tx, visitID, req)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, reconcileSQL, visitID); err != nil {
		return nil, fmt.Errorf("visits: reconcile: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("visits: commit add prescription: %w", err)
	}
	return line, nil
}

// RemovePrescription deletes a prescription and reconciles the visit's
// totals in one transaction
func (r *PostgresRepository) RemovePrescription(ctx context.Context, visitID, lineID int64) error {
	return r.removeLine(ctx, `DELETE FROM visit_prescriptions WHERE id = $1 AND visit_id = $2`, visitID, lineID)
}

// RecordPayment sets the paid amount and recomputes the due amount in the
// same statement
func (r *PostgresRepository) RecordPayment(ctx context.Context, visitID int64, paidCents int64) (*Visit, error) {
	if paidCents < 0 {
		return nil, ErrNegativePayment
	}

	v := &Visit{}
	err := r.db.QueryRow(ctx, `
		UPDATE visits
		SET paid_cents = $2, due_cents = GREATEST(0, total_cents - $2), updated_at = now()
		WHERE id = $1
		RETURNING `+visitColumns,
		visitID, paidCents,
	).Scan(&v.ID, &v.PatientID, &v.VisitDate, &v.Notes, &v.LabResults,
		&v.TotalCents, &v.PaidCents, &v.DueCents, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVisitNotFound
		}
		return nil, fmt.Errorf("visits: record payment: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) removeLine(ctx context.Context, deleteSQL string, visitID, lineID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("visits: begin remove line: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, deleteSQL, lineID, visitID)
	if err != nil {
		return fmt.Errorf("visits: delete line: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	if _, err := tx.Exec(ctx, reconcileSQL, visitID); err != nil {
		return fmt.Errorf("visits: reconcile: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("visits: commit remove line: %w", err)
	}
	return nil
}

// insertServiceLine prices the line from the request or, when no price is
// given, from the service's catalog default.
func insertServiceLine(ctx context.Context, q queryer, visitID int64, req *AddServiceLineRequest) (*ServiceLine, error) {
	line := &ServiceLine{}
	err := q.QueryRow(ctx, `
		INSERT INTO visit_services (visit_id, service_id, tooth_number, price_cents, notes)
		VALUES ($1, $2, $3, COALESCE($4, (SELECT default_price_cents FROM services WHERE id = $2)), $5)
		RETURNING id, visit_id, service_id, tooth_number, price_cents, notes`,
		visitID, req.ServiceID, req.ToothNumber, req.PriceCents, req.Notes,
	).Scan(&line.ID, &line.VisitID, &line.ServiceID, &line.ToothNumber, &line.PriceCents, &line.Notes)
	if err != nil {
		return nil, mapLineError(err, "visit_services")
	}
	return line, nil
}

func insertPrescriptionLine(ctx context.Context, q queryer, visitID int64, req *AddPrescriptionLineRequest) (*PrescriptionLine, error) {
	line := &PrescriptionLine{}
	err := q.QueryRow(ctx, `
		INSERT INTO visit_prescriptions (visit_id, medication_id, quantity, price_cents, instructions)
		VALUES ($1, $2, $3, COALESCE($4, (SELECT default_price_cents FROM medications WHERE id = $2)), $5)
		RETURNING id, visit_id, medication_id, quantity, price_cents, instructions`,
		visitID, req.MedicationID, req.quantity(), req.PriceCents, req.Instructions,
	).Scan(&line.ID, &line.VisitID, &line.MedicationID, &line.Quantity, &line.PriceCents, &line.Instructions)
	if err != nil {
		return nil, mapLineError(err, "visit_prescriptions")
	}
	return line, nil
}

// mapLineError translates constraint violations on a line insert into
// domain errors. A missing catalog item surfaces either as an FK violation
// (explicit price) or as a not-null violation from the COALESCE fallback.
func mapLineError(err error, table string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			if strings.Contains(pgErr.ConstraintName, "visit_id") {
				return ErrVisitNotFound
			}
			return ErrUnknownCatalogItem
		case pgNotNullViolation:
			return ErrUnknownCatalogItem
		case pgCheckViolation:
			if strings.Contains(pgErr.ConstraintName, "tooth") {
				return ErrInvalidToothNumber
			}
			return ErrInvalidQuantity
		}
	}
	return fmt.Errorf("visits: insert into %s: %w", table, err)
}
