package backup

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentaflow/clinic-platform/pkg/logging"
)

type fakeS3 struct {
	bucket string
	key    string
	bytes  int
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.bucket = *params.Bucket
	f.key = *params.Key
	raw, _ := json.Marshal(params.Metadata)
	f.bytes = len(raw)
	return &s3.PutObjectOutput{}, nil
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func expectEmptyDump(mock pgxmock.PgxPoolIface) {
	mock.ExpectBegin()
	mock.ExpectQuery("FROM patients ORDER BY id").
		WillReturnRows(mock.NewRows([]string{"id", "name", "father_name", "gender", "age", "address",
			"phone", "medical_history", "first_visit_date", "created_at", "updated_at"}))
	mock.ExpectQuery("FROM services ORDER BY id").
		WillReturnRows(mock.NewRows([]string{"id", "name", "description", "default_price_cents", "active", "updated_at"}))
	mock.ExpectQuery("FROM medications ORDER BY id").
		WillReturnRows(mock.NewRows([]string{"id", "name", "description", "default_price_cents", "active", "updated_at"}))
	mock.ExpectQuery("FROM visits ORDER BY id").
		WillReturnRows(mock.NewRows([]string{"id", "patient_id", "visit_date", "notes", "lab_results",
			"total_cents", "paid_cents", "due_cents", "updated_at"}))
	mock.ExpectQuery("FROM visit_services").
		WillReturnRows(mock.NewRows([]string{"id", "visit_id", "service_id", "tooth_number", "price_cents", "notes", "updated_at"}))
	mock.ExpectQuery("FROM visit_prescriptions").
		WillReturnRows(mock.NewRows([]string{"id", "visit_id", "medication_id", "quantity", "price_cents", "instructions", "updated_at"}))
	mock.ExpectRollback()
}

func TestSnapshot_WritesManifestAndRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("FROM patients ORDER BY id").
		WillReturnRows(mock.NewRows([]string{"id", "name", "father_name", "gender", "age", "address",
			"phone", "medical_history", "first_visit_date", "created_at", "updated_at"}).
			AddRow(int64(1), "Lina Haddad", "", "female", 29, "", "0791111111", "", now, now, now))
	mock.ExpectQuery("FROM services ORDER BY id").
		WillReturnRows(mock.NewRows([]string{"id", "name", "description", "default_price_cents", "active", "updated_at"}).
			AddRow(int64(1), "Cleaning", "", int64(30_00), true, now))
	mock.ExpectQuery("FROM medications ORDER BY id").
		WillReturnRows(mock.NewRows([]string{"id", "name", "description", "default_price_cents", "active", "updated_at"}))
	mock.ExpectQuery("FROM visits ORDER BY id").
		WillReturnRows(mock.NewRows([]string{"id", "patient_id", "visit_date", "notes", "lab_results",
			"total_cents", "paid_cents", "due_cents", "updated_at"}).
			AddRow(int64(1), int64(1), now, "", "", int64(30_00), int64(30_00), int64(0), now))
	mock.ExpectQuery("FROM visit_services").
		WillReturnRows(mock.NewRows([]string{"id", "visit_id", "service_id", "tooth_number", "price_cents", "notes", "updated_at"}).
			AddRow(int64(1), int64(1), int64(1), nil, int64(30_00), "", now))
	mock.ExpectQuery("FROM visit_prescriptions").
		WillReturnRows(mock.NewRows([]string{"id", "visit_id", "medication_id", "quantity", "price_cents", "instructions", "updated_at"}))
	mock.ExpectRollback()

	dir := t.TempDir()
	svc := NewService(Config{DB: mock, Dir: dir, Logger: logging.Default()})

	info, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, info.RowCounts["patients"])
	assert.Equal(t, 1, info.RowCounts["visit_services"])
	assert.Equal(t, 0, info.RowCounts["medications"])
	require.NoError(t, mock.ExpectationsWereMet())

	raw, err := os.ReadFile(filepath.Join(dir, info.Filename))
	require.NoError(t, err)
	var m manifest
	require.NoError(t, json.Unmarshal(firstLine(raw), &m))
	assert.Equal(t, info.ID, m.SnapshotID)

	infos, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, info.ID, infos[0].ID)
	assert.Equal(t, info.SizeBytes, infos[0].SizeBytes)
}

func firstLine(raw []byte) []byte {
	for i, b := range raw {
		if b == '\n' {
			return raw[:i]
		}
	}
	return raw
}

func TestSnapshot_MirrorsToS3(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectEmptyDump(mock)

	fake := &fakeS3{}
	svc := NewService(Config{DB: mock, Dir: t.TempDir(), S3: fake, Bucket: "clinic-backups", Logger: logging.Default()})

	info, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "clinic-backups", fake.bucket)
	assert.Equal(t, "clinic/backups/"+info.Filename, fake.key)
	assert.Equal(t, fake.key, info.S3Key)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRestore_WipesReloadsAndResyncsSequences(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dir := t.TempDir()
	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	writeSnapshotFixture(t, dir, "11111111-2222-3333-4444-555555555555", created)

	// pre-restore snapshot
	expectEmptyDump(mock)

	mock.ExpectBegin()
	for _, table := range []string{"visit_prescriptions", "visit_services", "visits", "medications", "services", "patients"} {
		mock.ExpectExec("DELETE FROM " + table).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
	}
	mock.ExpectExec("INSERT INTO patients").
		WithArgs(anyArgs(11)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO services").
		WithArgs(anyArgs(6)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	for range tableOrder {
		mock.ExpectExec("setval").
			WillReturnResult(pgxmock.NewResult("SELECT", 1))
	}
	mock.ExpectCommit()

	svc := NewService(Config{DB: mock, Dir: dir, Logger: logging.Default()})
	result, err := svc.Restore(context.Background(), "11111111-2222-3333-4444-555555555555")
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalRestored)
	assert.Equal(t, 1, result.RowsRestored["patients"])
	assert.NotEmpty(t, result.PreRestoreID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRestore_SnapshotNotFound(t *testing.T) {
	svc := NewService(Config{DB: nil, Dir: t.TempDir(), Logger: logging.Default()})
	// db nil is rejected before any file access
	_, err := svc.Restore(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotConfigured)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	svc = NewService(Config{DB: mock, Dir: t.TempDir(), Logger: logging.Default()})
	_, err = svc.Restore(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}

func writeSnapshotFixture(t *testing.T, dir, id string, created time.Time) {
	t.Helper()

	lines := [][]byte{}
	head, _ := json.Marshal(manifest{
		SnapshotID: id,
		CreatedAt:  created,
		RowCounts:  map[string]int{"patients": 1, "services": 1},
	})
	lines = append(lines, head)

	patient, _ := json.Marshal(PatientRow{ID: 1, Name: "Lina Haddad", Gender: "female", Age: 29,
		FirstVisitDate: created, CreatedAt: created, UpdatedAt: created})
	line, _ := json.Marshal(tableRow{Table: "patients", Row: patient})
	lines = append(lines, line)

	service, _ := json.Marshal(CatalogRow{ID: 1, Name: "Cleaning", DefaultPriceCents: 30_00, Active: true, UpdatedAt: created})
	line, _ = json.Marshal(tableRow{Table: "services", Row: service})
	lines = append(lines, line)

	var buf []byte
	for _, l := range lines {
		buf = append(buf, l...)
		buf = append(buf, '\n')
	}
	name := "backup_" + created.Format("20060102T150405Z") + "_" + id[:8] + ".jsonl"
	if err := os.WriteFile(filepath.Join(dir, name), buf, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}
