package visits

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var visitCols = []string{"id", "patient_id", "visit_date", "notes", "lab_results",
	"total_cents", "paid_cents", "due_cents", "updated_at"}

var serviceLineCols = []string{"id", "visit_id", "service_id", "tooth_number", "price_cents", "notes"}

func TestPostgresAddService_ReconcilesInSameTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO visit_services").
		WithArgs(int64(7), int64(2), pgxmock.AnyArg(), pgxmock.AnyArg(), "").
		WillReturnRows(mock.NewRows(serviceLineCols).
			AddRow(int64(11), int64(7), int64(2), nil, int64(150_00), ""))
	mock.ExpectExec("UPDATE visits SET").
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	repo := NewPostgresRepositoryWithDB(mock)
	line, err := repo.AddService(context.Background(), 7, &AddServiceLineRequest{ServiceID: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(150_00), line.PriceCents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAddService_UnknownService(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// no catalog row means the COALESCE price resolves to NULL
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO visit_services").
		WithArgs(int64(7), int64(99), pgxmock.AnyArg(), pgxmock.AnyArg(), "").
		WillReturnError(&pgconn.PgError{Code: pgNotNullViolation, ColumnName: "price_cents"})
	mock.ExpectRollback()

	repo := NewPostgresRepositoryWithDB(mock)
	_, err = repo.AddService(context.Background(), 7, &AddServiceLineRequest{ServiceID: 99})
	assert.ErrorIs(t, err, ErrUnknownCatalogItem)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAddService_VisitMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO visit_services").
		WithArgs(int64(42), int64(2), pgxmock.AnyArg(), pgxmock.AnyArg(), "").
		WillReturnError(&pgconn.PgError{
			Code:           pgForeignKeyViolation,
			ConstraintName: "visit_services_visit_id_fkey",
		})
	mock.ExpectRollback()

	repo := NewPostgresRepositoryWithDB(mock)
	_, err = repo.AddService(context.Background(), 42, &AddServiceLineRequest{ServiceID: 2})
	assert.ErrorIs(t, err, ErrVisitNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRemoveService_LineNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM visit_services").
		WithArgs(int64(11), int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	repo := NewPostgresRepositoryWithDB(mock)
	err = repo.RemoveService(context.Background(), 7, 11)
	assert.ErrorIs(t, err, ErrLineNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreate_PatientMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO visits").
		WithArgs(int64(42), pgxmock.AnyArg(), "", "", int64(0)).
		WillReturnError(&pgconn.PgError{
			Code:           pgForeignKeyViolation,
			ConstraintName: "visits_patient_id_fkey",
		})
	mock.ExpectRollback()

	repo := NewPostgresRepositoryWithDB(mock)
	_, err = repo.Create(context.Background(), 42, &CreateVisitRequest{VisitDate: "2026-08-20"})
	assert.ErrorIs(t, err, ErrPatientNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordPayment_ClampsDue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("UPDATE visits").
		WithArgs(int64(7), int64(200_00)).
		WillReturnRows(mock.NewRows(visitCols).
			AddRow(int64(7), int64(1), now, "", "", int64(150_00), int64(200_00), int64(0), now))

	repo := NewPostgresRepositoryWithDB(mock)
	visit, err := repo.RecordPayment(context.Background(), 7, 200_00)
	require.NoError(t, err)
	assert.Equal(t, int64(0), visit.DueCents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecordPayment_NegativeRejectedBeforeSQL(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepositoryWithDB(mock)
	_, err = repo.RecordPayment(context.Background(), 7, -1)
	assert.ErrorIs(t, err, ErrNegativePayment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetByID_JoinsLineItems(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	detailCols := []string{"id", "patient_id", "visit_date", "visit_number", "notes", "lab_results",
		"total_cents", "paid_cents", "due_cents", "updated_at"}

	mock.ExpectQuery("SELECT v.id, v.patient_id, v.visit_date").
		WithArgs(int64(7)).
		WillReturnRows(mock.NewRows(detailCols).
			AddRow(int64(7), int64(1), now, 2, "checkup", "", int64(38_00), int64(38_00), int64(0), now))
	mock.ExpectQuery("FROM visit_services").
		WithArgs(int64(7)).
		WillReturnRows(mock.NewRows([]string{"id", "visit_id", "service_id", "name", "description", "tooth_number", "price_cents", "notes"}).
			AddRow(int64(11), int64(7), int64(1), "Cleaning", "full mouth scaling and polish", nil, int64(30_00), ""))
	mock.ExpectQuery("FROM visit_prescriptions").
		WithArgs(int64(7)).
		WillReturnRows(mock.NewRows([]string{"id", "visit_id", "medication_id", "name", "description", "quantity", "price_cents", "instructions"}).
			AddRow(int64(12), int64(7), int64(1), "Amoxicillin 500mg", "antibiotic", 2, int64(8_00), "after meals"))

	repo := NewPostgresRepositoryWithDB(mock)
	visit, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, visit.VisitNumber)
	require.Len(t, visit.Services, 1)
	require.Len(t, visit.Prescriptions, 1)
	assert.Equal(t, "Cleaning", visit.Services[0].ServiceName)
	assert.Equal(t, "full mouth scaling and polish", visit.Services[0].ServiceDescription)
	assert.Equal(t, "antibiotic", visit.Prescriptions[0].MedicationDescription)
	assert.Equal(t, int64(30_00)+int64(8_00), visit.TotalCents)
	require.NoError(t, mock.ExpectationsWereMet())
}
