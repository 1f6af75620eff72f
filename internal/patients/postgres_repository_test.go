package patients

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var patientCols = []string{"id", "name", "father_name", "gender", "age", "address",
	"phone", "medical_history", "first_visit_date", "created_at", "updated_at"}

func patientRow(mock pgxmock.PgxPoolIface, id int64, name string) *pgxmock.Rows {
	now := time.Now().UTC()
	return mock.NewRows(patientCols).
		AddRow(id, name, "", "male", 30, "", "555-0100", "", now, now, now)
}

func TestPostgresCreatePatient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO patients").
		WithArgs("Bob Builder", "Wendy", "male", 35, "Fixit Town", "555-0100", "none").
		WillReturnRows(patientRow(mock, 1, "Bob Builder"))

	repo := NewPostgresRepositoryWithDB(mock)
	p, err := repo.Create(context.Background(), &UpsertPatientRequest{
		Name:           "Bob Builder",
		FatherName:     "Wendy",
		Gender:         "Male",
		Age:            35,
		Address:        "Fixit Town",
		Phone:          "555-0100",
		MedicalHistory: "none",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "Bob Builder", p.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreatePatient_RejectsBadAge(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepositoryWithDB(mock)
	_, err = repo.Create(context.Background(), &UpsertPatientRequest{Name: "X", Age: -1})
	assert.ErrorIs(t, err, ErrInvalidAge)
	// No SQL must run for an invalid payload.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetPatient_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .* FROM patients WHERE id").
		WithArgs(int64(7)).
		WillReturnRows(mock.NewRows(patientCols))

	repo := NewPostgresRepositoryWithDB(mock)
	_, err = repo.GetByID(context.Background(), 7)
	assert.ErrorIs(t, err, ErrPatientNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListPatients_Search(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	rows := mock.NewRows(patientCols).
		AddRow(int64(1), "Amina", "", "female", 28, "", "555-0101", "", now, now, now).
		AddRow(int64(2), "Aminullah", "", "male", 52, "", "555-0102", "", now, now, now)

	mock.ExpectQuery("SELECT .* FROM patients WHERE name ILIKE").
		WithArgs("Amin").
		WillReturnRows(rows)

	repo := NewPostgresRepositoryWithDB(mock)
	list, err := repo.List(context.Background(), "Amin")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Amina", list[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeletePatient_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM patients").
		WithArgs(int64(9)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := NewPostgresRepositoryWithDB(mock)
	err = repo.Delete(context.Background(), 9)
	assert.ErrorIs(t, err, ErrPatientNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFinancialSummary(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .* FROM patients WHERE id").
		WithArgs(int64(3)).
		WillReturnRows(patientRow(mock, 3, "Sami"))
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(total_cents\\), 0\\)").
		WithArgs(int64(3)).
		WillReturnRows(mock.NewRows([]string{"billed", "paid", "due"}).
			AddRow(int64(120_00), int64(80_00), int64(40_00)))

	repo := NewPostgresRepositoryWithDB(mock)
	s, err := repo.FinancialSummary(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(120_00), s.TotalBilledCents)
	assert.Equal(t, int64(80_00), s.TotalPaidCents)
	assert.Equal(t, int64(40_00), s.TotalDueCents)
	require.NoError(t, mock.ExpectationsWereMet())
}
