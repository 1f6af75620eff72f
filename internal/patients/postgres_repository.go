package patients

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const patientColumns = `id, name, father_name, gender, age, address, phone,
	       medical_history, first_visit_date, created_at, updated_at`

// PostgresRepository stores patients in the relational database.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("patients: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db db) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, req *UpsertPatientRequest) (*Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	n := req.normalized()

	row := r.db.QueryRow(ctx, `
		INSERT INTO patients (name, father_name, gender, age, address, phone, medical_history)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+patientColumns,
		n.Name, n.FatherName, n.Gender, n.Age, n.Address, n.Phone, n.MedicalHistory)

	p, err := scanPatient(row)
	if err != nil {
		return nil, fmt.Errorf("patients: insert failed: %w", err)
	}
	return p, nil
}

// GetByID fetches a single patient.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Patient, error) {
	row := r.db.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	p, err := scanPatient(row)
	if err == pgx.ErrNoRows {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patients: select failed: %w", err)
	}
	return p, nil
}

// List returns patients ordered by name case-insensitively. A non-empty
// search term matches name, phone or the id rendered as text.
func (r *PostgresRepository) List(ctx context.Context, search string) ([]*Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients`
	args := []any{}
	if search != "" {
		query += ` WHERE name ILIKE '%' || $1 || '%'
			OR phone LIKE '%' || $1 || '%'
			OR id::text LIKE '%' || $1 || '%'`
		args = append(args, search)
	}
	query += ` ORDER BY lower(name), id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("patients: list failed: %w", err)
	}
	defer rows.Close()

	out := []*Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("patients: scan failed: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update replaces the mutable fields of a patient.
func (r *PostgresRepository) Update(ctx context.Context, id int64, req *UpsertPatientRequest) (*Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	n := req.normalized()

	row := r.db.QueryRow(ctx, `
		UPDATE patients
		SET name = $2, father_name = $3, gender = $4, age = $5, address = $6,
		    phone = $7, medical_history = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+patientColumns,
		id, n.Name, n.FatherName, n.Gender, n.Age, n.Address, n.Phone, n.MedicalHistory)

	p, err := scanPatient(row)
	if err == pgx.ErrNoRows {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("patients: update failed: %w", err)
	}
	return p, nil
}

// Delete removes a patient; visits and their line items go with it (CASCADE).
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("patients: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

// FinancialSummary sums lifetime billed, paid and due amounts over the
// patient's visits.
func (r *PostgresRepository) FinancialSummary(ctx context.Context, id int64) (*FinancialSummary, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}

	s := &FinancialSummary{PatientID: id}
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_cents), 0),
		       COALESCE(SUM(paid_cents), 0),
		       COALESCE(SUM(due_cents), 0)
		FROM visits
		WHERE patient_id = $1`, id).
		Scan(&s.TotalBilledCents, &s.TotalPaidCents, &s.TotalDueCents)
	if err != nil {
		return nil, fmt.Errorf("patients: financial summary: %w", err)
	}
	return s, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	if err := row.Scan(&p.ID, &p.Name, &p.FatherName, &p.Gender, &p.Age, &p.Address,
		&p.Phone, &p.MedicalHistory, &p.FirstVisitDate, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
