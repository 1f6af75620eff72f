package reports

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDemographics(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM patients").
		WillReturnRows(mock.NewRows([]string{"count"}).AddRow(int64(10)))
	mock.ExpectQuery("GROUP BY gender").
		WillReturnRows(mock.NewRows([]string{"gender", "count"}).
			AddRow("female", int64(6)).
			AddRow("male", int64(3)).
			AddRow("", int64(1)))
	mock.ExpectQuery("GROUP BY bucket").
		WillReturnRows(mock.NewRows([]string{"bucket", "count"}).
			AddRow("under_18", int64(2)).
			AddRow("18_30", int64(5)).
			AddRow("over_60", int64(2)))

	repo := NewPostgresRepositoryWithDB(mock)
	d, err := repo.Demographics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), d.TotalPatients)
	require.Len(t, d.ByGender, 3)
	assert.Equal(t, "female", d.ByGender[0].Gender)
	require.Len(t, d.ByAge, 3)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRevenue_ComputesGap(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM visits").
		WillReturnRows(mock.NewRows([]string{"bucket", "billed", "collected"}).
			AddRow("2026-07", int64(5000_00), int64(4200_00)).
			AddRow("2026-08", int64(3100_00), int64(3100_00)))

	repo := NewPostgresRepositoryWithDB(mock)
	rows, err := repo.Revenue(context.Background(), PeriodMonth)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(800_00), rows[0].GapCents)
	assert.Equal(t, int64(0), rows[1].GapCents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInactivePatients_PassesCutoff(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	last := time.Now().UTC().AddDate(0, -8, 0)
	mock.ExpectQuery("HAVING MAX\\(v.visit_date\\) < CURRENT_DATE").
		WithArgs(180).
		WillReturnRows(mock.NewRows([]string{"id", "name", "phone", "last_visit", "days"}).
			AddRow(int64(9), "Sami Odeh", "0795555555", last, int64(240)))

	repo := NewPostgresRepositoryWithDB(mock)
	rows, err := repo.InactivePatients(context.Background(), 180)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(240), rows[0].DaysSinceLast)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDataQuality(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("HAVING COUNT\\(\\*\\) > 1").
		WillReturnRows(mock.NewRows([]string{"name", "phone", "count"}).
			AddRow("Rana Saleh", "0790000000", int64(2)))
	mock.ExpectQuery("NOT EXISTS").
		WillReturnRows(mock.NewRows([]string{"id", "patient_id", "visit_date"}).
			AddRow(int64(31), int64(4), time.Now().UTC()))
	mock.ExpectQuery("WHERE NOT s.active").
		WillReturnRows(mock.NewRows([]string{"id", "name", "uses"}).
			AddRow(int64(6), "Amalgam Filling", int64(4)))
	mock.ExpectQuery("WHERE NOT m.active").
		WillReturnRows(mock.NewRows([]string{"id", "name", "uses"}))
	mock.ExpectQuery("price_cents = 0").
		WillReturnRows(mock.NewRows([]string{"zero", "no_phone", "no_age"}).
			AddRow(int64(3), int64(5), int64(2)))

	repo := NewPostgresRepositoryWithDB(mock)
	q, err := repo.DataQuality(context.Background())
	require.NoError(t, err)
	require.Len(t, q.DuplicatePatients, 1)
	require.Len(t, q.EmptyVisits, 1)
	require.Len(t, q.InactiveServicesUsed, 1)
	assert.Equal(t, "Amalgam Filling", q.InactiveServicesUsed[0].Name)
	assert.Equal(t, int64(4), q.InactiveServicesUsed[0].UseCount)
	assert.Empty(t, q.InactiveMedicationsUsed)
	assert.Equal(t, int64(3), q.ZeroPricedLines)
	assert.Equal(t, int64(5), q.PatientsMissingPhone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresToothAnalysis_ListsDistinctServices(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`array_agg\(DISTINCT s.name`).
		WillReturnRows(mock.NewRows([]string{"tooth", "count", "total", "services"}).
			AddRow(14, int64(3), int64(240_00), []string{"Filling", "Root Canal"}).
			AddRow(30, int64(1), int64(40_00), []string{"Extraction"}))

	repo := NewPostgresRepositoryWithDB(mock)
	rows, err := repo.ToothAnalysis(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 14, rows[0].ToothNumber)
	assert.Equal(t, []string{"Filling", "Root Canal"}, rows[0].Services)
	assert.Equal(t, []string{"Extraction"}, rows[1].Services)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMedicationUtilization_ScansQuantity(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	avgQty := 1.5
	mock.ExpectQuery("FROM medications m").
		WillReturnRows(mock.NewRows([]string{"id", "name", "uses", "avg_price", "total", "avg_qty"}).
			AddRow(int64(1), "Amoxicillin 500mg", int64(8), 8_00.0, int64(64_00), &avgQty).
			AddRow(int64(2), "Unused Gel", int64(0), 0.0, int64(0), (*float64)(nil)))

	repo := NewPostgresRepositoryWithDB(mock)
	rows, err := repo.MedicationUtilization(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].AvgQuantity)
	assert.Equal(t, 1.5, *rows[0].AvgQuantity)
	assert.Nil(t, rows[1].AvgQuantity)
	require.NoError(t, mock.ExpectationsWereMet())
}
