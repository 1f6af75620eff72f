package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var itemCols = []string{"id", "name", "description", "default_price_cents", "active", "updated_at"}

func TestPostgresCreateService(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO services").
		WithArgs("Scaling", "full mouth", int64(60_00), true).
		WillReturnRows(mock.NewRows(itemCols).
			AddRow(int64(1), "Scaling", "full mouth", int64(60_00), true, time.Now().UTC()))

	repo := NewPostgresRepositoryWithDB(mock)
	item, err := repo.Create(context.Background(), KindService, &UpsertItemRequest{
		Name:              "Scaling",
		Description:       "full mouth",
		DefaultPriceCents: 60_00,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), item.ID)
	assert.True(t, item.Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateMedication_UsesMedicationsTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO medications").
		WithArgs("Amoxicillin 500mg", "", int64(8_00), true).
		WillReturnRows(mock.NewRows(itemCols).
			AddRow(int64(4), "Amoxicillin 500mg", "", int64(8_00), true, time.Now().UTC()))

	repo := NewPostgresRepositoryWithDB(mock)
	item, err := repo.Create(context.Background(), KindMedication, &UpsertItemRequest{
		Name:              "Amoxicillin 500mg",
		DefaultPriceCents: 8_00,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), item.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreate_DuplicateName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO services").
		WithArgs("Filling", "", int64(40_00), true).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

	repo := NewPostgresRepositoryWithDB(mock)
	_, err = repo.Create(context.Background(), KindService, &UpsertItemRequest{
		Name:              "Filling",
		DefaultPriceCents: 40_00,
	})
	assert.ErrorIs(t, err, ErrDuplicateName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDelete_RestrictedWhileInUse(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM medications").
		WithArgs(int64(2)).
		WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation})

	repo := NewPostgresRepositoryWithDB(mock)
	err = repo.Delete(context.Background(), KindMedication, 2)
	assert.ErrorIs(t, err, ErrItemInUse)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresList_ActiveOnly(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .* FROM services WHERE active ORDER BY").
		WillReturnRows(mock.NewRows(itemCols).
			AddRow(int64(1), "Cleaning", "", int64(30_00), true, time.Now().UTC()))

	repo := NewPostgresRepositoryWithDB(mock)
	items, err := repo.List(context.Background(), KindService, false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Cleaning", items[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}
