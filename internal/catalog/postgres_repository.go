package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres error codes surfaced by the catalog constraints.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const itemColumns = `id, name, description, default_price_cents, active, updated_at`

// PostgresRepository stores catalog items in the relational database.
// Services and medications live in separate tables selected by Kind.
type PostgresRepository struct {
	db db
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("catalog: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db db) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new catalog item.
func (r *PostgresRepository) Create(ctx context.Context, kind Kind, req *UpsertItemRequest) (*Item, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO `+kind.table()+` (name, description, default_price_cents, active)
		VALUES ($1, $2, $3, $4)
		RETURNING `+itemColumns,
		strings.TrimSpace(req.Name), req.Description, req.DefaultPriceCents, req.active())

	item, err := scanItem(row)
	if err != nil {
		return nil, mapPgError("insert", err)
	}
	return item, nil
}

// GetByID fetches a single catalog item.
func (r *PostgresRepository) GetByID(ctx context.Context, kind Kind, id int64) (*Item, error) {
	row := r.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM `+kind.table()+` WHERE id = $1`, id)
	item, err := scanItem(row)
	if err == pgx.ErrNoRows {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: select failed: %w", err)
	}
	return item, nil
}

// List returns catalog items ordered by name, active-only by default.
func (r *PostgresRepository) List(ctx context.Context, kind Kind, includeInactive bool) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM ` + kind.table()
	if !includeInactive {
		query += ` WHERE active`
	}
	query += ` ORDER BY lower(name)`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: list failed: %w", err)
	}
	defer rows.Close()

	out := []*Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan failed: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// Update replaces the mutable fields, including the active flag.
func (r *PostgresRepository) Update(ctx context.Context, kind Kind, id int64, req *UpsertItemRequest) (*Item, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	row := r.db.QueryRow(ctx, `
		UPDATE `+kind.table()+`
		SET name = $2, description = $3, default_price_cents = $4, active = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+itemColumns,
		id, strings.TrimSpace(req.Name), req.Description, req.DefaultPriceCents, req.active())

	item, err := scanItem(row)
	if err == pgx.ErrNoRows {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, mapPgError("update", err)
	}
	return item, nil
}

// Delete removes a catalog item. The FK RESTRICT on visit line items rejects
// the delete while the item is still referenced anywhere.
func (r *PostgresRepository) Delete(ctx context.Context, kind Kind, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM `+kind.table()+` WHERE id = $1`, id)
	if err != nil {
		return mapPgError("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func scanItem(row pgx.Row) (*Item, error) {
	var item Item
	if err := row.Scan(&item.ID, &item.Name, &item.Description,
		&item.DefaultPriceCents, &item.Active, &item.UpdatedAt); err != nil {
		return nil, err
	}
	return &item, nil
}

func mapPgError(verb string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrDuplicateName
		case pgForeignKeyViolation:
			return ErrItemInUse
		}
	}
	return fmt.Errorf("catalog: %s failed: %w", verb, err)
}
