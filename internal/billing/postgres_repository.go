package billing

import (
	"context"
	"fmt"

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

// NewPostgresRepository creates a new PostgreSQL billing repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("billing: pool is nil")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB creates a repository with a custom db, used in tests
func NewPostgresRepositoryWithDB(db db) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Debtors aggregates due amounts per patient across all their visits
func (r *PostgresRepository) Debtors(ctx context.Context) ([]*Debtor, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.name, p.phone,
		       COUNT(v.id) AS visit_count,
		       COUNT(v.id) FILTER (WHERE v.due_cents > 0) AS unpaid_visits,
		       SUM(v.due_cents) AS total_due_cents,
		       MAX(v.visit_date) AS last_visit_date
		FROM patients p
		JOIN visits v ON v.patient_id = p.id
		GROUP BY p.id, p.name, p.phone
		HAVING SUM(v.due_cents) > 0
		ORDER BY SUM(v.due_cents) DESC, p.name`)
	if err != nil {
		return nil, fmt.Errorf("billing: query debtors: %w", err)
	}
	defer rows.Close()

	debtors := []*Debtor{}
	for rows.Next() {
		d := &Debtor{}
		if err := rows.Scan(&d.PatientID, &d.Name, &d.Phone, &d.VisitCount,
			&d.UnpaidVisits, &d.TotalDueCents, &d.LastVisitDate); err != nil {
			return nil, fmt.Errorf("billing: scan debtor: %w", err)
		}
		debtors = append(debtors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("billing: iterate debtors: %w", err)
	}
	return debtors, nil
}

// OutstandingCents sums the unpaid balance over the whole clinic
func (r *PostgresRepository) OutstandingCents(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(due_cents), 0) FROM visits`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("billing: sum outstanding: %w", err)
	}
	return total, nil
}
