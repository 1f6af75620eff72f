package dashboard

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

// NewPostgresRepository creates a new PostgreSQL dashboard repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("dashboard: pool is nil")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB creates a repository with a custom db, used in tests
func NewPostgresRepositoryWithDB(db db) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Summary gathers all KPIs in a single round trip. The weekly revenue
// window starts on Monday, not seven days back.
func (r *PostgresRepository) Summary(ctx context.Context) (*Summary, error) {
	s := &Summary{}
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM patients),
			(SELECT COUNT(*) FROM visits WHERE visit_date = CURRENT_DATE),
			(SELECT COALESCE(SUM(paid_cents), 0) FROM visits WHERE visit_date = CURRENT_DATE),
			(SELECT COALESCE(SUM(paid_cents), 0) FROM visits WHERE visit_date >= date_trunc('week', CURRENT_DATE)),
			(SELECT COALESCE(SUM(paid_cents), 0) FROM visits WHERE visit_date >= date_trunc('month', CURRENT_DATE)),
			(SELECT COALESCE(SUM(due_cents), 0) FROM visits)`,
	).Scan(&s.TotalPatients, &s.VisitsToday, &s.RevenueTodayCents,
		&s.RevenueWeekCents, &s.RevenueMonthCents, &s.OutstandingCents)
	if err != nil {
		return nil, fmt.Errorf("dashboard: query summary: %w", err)
	}
	s.GeneratedAt = time.Now().UTC()
	return s, nil
}
