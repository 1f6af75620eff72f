package backup

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dentaflow/clinic-platform/pkg/logging"
)

// S3Client interface for S3 operations (allows mocking in tests)
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// db is the interface for database operations needed by the service.
// Satisfied by *pgxpool.Pool and by pgxmock in tests.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// rowQuerier is the read subset shared by db and pgx.Tx.
type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Service snapshots the clinic tables to timestamped JSONL files and
// restores them. Snapshots are mirrored to S3 when a bucket is configured.
type Service struct {
	db     db
	dir    string
	s3     S3Client
	bucket string
	logger *logging.Logger
}

// Config holds configuration for the backup Service.
type Config struct {
	DB     db
	Dir    string
	S3     S3Client
	Bucket string
	Logger *logging.Logger
}

// NewService creates a new backup Service.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Service{
		db:     cfg.DB,
		dir:    cfg.Dir,
		s3:     cfg.S3,
		bucket: cfg.Bucket,
		logger: cfg.Logger,
	}
}

// Snapshot dumps all clinic tables into one JSONL file. The first line is a
// manifest with row counts; every following line is a single table row. All
// tables are read in one transaction so the snapshot is internally
// consistent.
func (s *Service) Snapshot(ctx context.Context) (*SnapshotInfo, error) {
	if s == nil || s.db == nil || s.dir == "" {
		return nil, ErrNotConfigured
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("backup: begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	var body bytes.Buffer
	counts := map[string]int{}
	for _, table := range tableOrder {
		n, err := s.dumpTable(ctx, tx, table, &body)
		if err != nil {
			return nil, err
		}
		counts[table] = n
	}

	info := &SnapshotInfo{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		RowCounts: counts,
	}
	info.Filename = fmt.Sprintf("backup_%s_%s.jsonl",
		info.CreatedAt.Format("20060102T150405Z"), info.ID[:8])

	var buf bytes.Buffer
	head, err := json.Marshal(manifest{SnapshotID: info.ID, CreatedAt: info.CreatedAt, RowCounts: counts})
	if err != nil {
		return nil, fmt.Errorf("backup: marshal manifest: %w", err)
	}
	buf.Write(head)
	buf.WriteByte('\n')
	buf.Write(body.Bytes())
	info.SizeBytes = int64(buf.Len())

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create backup dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, info.Filename), buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("backup: write snapshot: %w", err)
	}

	if s.s3 != nil && s.bucket != "" {
		key := "clinic/backups/" + info.Filename
		_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(buf.Bytes()),
			ContentType: aws.String("application/x-ndjson"),
			Metadata: map[string]string{
				"snapshot_id": info.ID,
			},
		})
		if err != nil {
			// The local snapshot is already safe on disk.
			s.logger.Warn("backup: s3 mirror failed", "error", err, "snapshot_id", info.ID)
		} else {
			info.S3Key = key
		}
	}

	s.logger.Info("backup: snapshot written",
		"snapshot_id", info.ID,
		"filename", info.Filename,
		"bytes", info.SizeBytes)
	return info, nil
}

// List returns the snapshots in the backup directory, newest first
func (s *Service) List(ctx context.Context) ([]*SnapshotInfo, error) {
	if s == nil || s.dir == "" {
		return nil, ErrNotConfigured
	}

	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return []*SnapshotInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("backup: read backup dir: %w", err)
	}

	infos := []*SnapshotInfo{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "backup_") || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		info, err := s.readManifest(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.logger.Warn("backup: skipping unreadable snapshot", "filename", e.Name(), "error", err)
			continue
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.After(infos[j].CreatedAt) })
	return infos, nil
}

// Restore replaces the clinic tables with a snapshot's contents. A fresh
// pre-restore snapshot is always taken first, and the wipe plus reload runs
// in a single transaction with sequences resynced at the end.
func (s *Service) Restore(ctx context.Context, snapshotID string) (*RestoreResult, error) {
	if s == nil || s.db == nil || s.dir == "" {
		return nil, ErrNotConfigured
	}

	target, err := s.find(ctx, snapshotID)
	if err != nil {
		return nil, err
	}

	pre, err := s.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("backup: pre-restore snapshot: %w", err)
	}

	f, err := os.Open(filepath.Join(s.dir, target.Filename))
	if err != nil {
		return nil, fmt.Errorf("backup: open snapshot: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !scanner.Scan() {
		return nil, fmt.Errorf("backup: snapshot %s is empty", target.Filename)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("backup: begin restore: %w", err)
	}
	defer tx.Rollback(ctx)

	for i := len(tableOrder) - 1; i >= 0; i-- {
		if _, err := tx.Exec(ctx, `DELETE FROM `+tableOrder[i]); err != nil {
			return nil, fmt.Errorf("backup: clear %s: %w", tableOrder[i], err)
		}
	}

	restored := map[string]int{}
	total := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var row tableRow
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("backup: decode snapshot line: %w", err)
		}
		if err := insertRow(ctx, tx, &row); err != nil {
			return nil, err
		}
		restored[row.Table]++
		total++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("backup: read snapshot: %w", err)
	}

	for _, table := range tableOrder {
		_, err := tx.Exec(ctx, fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)`,
			table, table))
		if err != nil {
			return nil, fmt.Errorf("backup: resync %s sequence: %w", table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("backup: commit restore: %w", err)
	}

	s.logger.Info("backup: restore complete",
		"snapshot_id", target.ID,
		"pre_restore_snapshot_id", pre.ID,
		"rows", total)

	return &RestoreResult{
		SnapshotID:    target.ID,
		PreRestoreID:  pre.ID,
		RowsRestored:  restored,
		TotalRestored: total,
	}, nil
}

func (s *Service) find(ctx context.Context, snapshotID string) (*SnapshotInfo, error) {
	infos, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.ID == snapshotID {
			return info, nil
		}
	}
	return nil, ErrSnapshotNotFound
}

func (s *Service) readManifest(path string) (*SnapshotInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !scanner.Scan() {
		return nil, fmt.Errorf("missing manifest line")
	}
	var m manifest
	if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
		return nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return &SnapshotInfo{
		ID:        m.SnapshotID,
		CreatedAt: m.CreatedAt,
		Filename:  filepath.Base(path),
		SizeBytes: stat.Size(),
		RowCounts: m.RowCounts,
	}, nil
}

func (s *Service) dumpTable(ctx context.Context, q rowQuerier, table string, buf *bytes.Buffer) (int, error) {
	rows, err := q.Query(ctx, selectSQL[table])
	if err != nil {
		return 0, fmt.Errorf("backup: dump %s: %w", table, err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		row, err := scanRow(table, rows)
		if err != nil {
			return 0, fmt.Errorf("backup: scan %s: %w", table, err)
		}
		raw, err := json.Marshal(row)
		if err != nil {
			return 0, fmt.Errorf("backup: marshal %s row: %w", table, err)
		}
		line, err := json.Marshal(tableRow{Table: table, Row: raw})
		if err != nil {
			return 0, fmt.Errorf("backup: marshal %s line: %w", table, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("backup: iterate %s: %w", table, err)
	}
	return n, nil
}

var selectSQL = map[string]string{
	"patients": `SELECT id, name, father_name, gender, age, address, phone, medical_history,
		first_visit_date, created_at, updated_at FROM patients ORDER BY id`,
	"services":    `SELECT id, name, description, default_price_cents, active, updated_at FROM services ORDER BY id`,
	"medications": `SELECT id, name, description, default_price_cents, active, updated_at FROM medications ORDER BY id`,
	"visits":      `SELECT id, patient_id, visit_date, notes, lab_results, total_cents, paid_cents, due_cents, updated_at FROM visits ORDER BY id`,
	"visit_services": `SELECT id, visit_id, service_id, tooth_number, price_cents, notes, updated_at
		FROM visit_services ORDER BY id`,
	"visit_prescriptions": `SELECT id, visit_id, medication_id, quantity, price_cents, instructions, updated_at
		FROM visit_prescriptions ORDER BY id`,
}

func scanRow(table string, rows pgx.Rows) (any, error) {
	switch table {
	case "patients":
		r := PatientRow{}
		err := rows.Scan(&r.ID, &r.Name, &r.FatherName, &r.Gender, &r.Age, &r.Address,
			&r.Phone, &r.MedicalHistory, &r.FirstVisitDate, &r.CreatedAt, &r.UpdatedAt)
		return r, err
	case "services", "medications":
		r := CatalogRow{}
		err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.DefaultPriceCents, &r.Active, &r.UpdatedAt)
		return r, err
	case "visits":
		r := VisitRow{}
		err := rows.Scan(&r.ID, &r.PatientID, &r.VisitDate, &r.Notes, &r.LabResults,
			&r.TotalCents, &r.PaidCents, &r.DueCents, &r.UpdatedAt)
		return r, err
	case "visit_services":
		r := VisitServiceRow{}
		err := rows.Scan(&r.ID, &r.VisitID, &r.ServiceID, &r.ToothNumber, &r.PriceCents, &r.Notes, &r.UpdatedAt)
		return r, err
	case "visit_prescriptions":
		r := VisitPrescriptionRow{}
		err := rows.Scan(&r.ID, &r.VisitID, &r.MedicationID, &r.Quantity, &r.PriceCents, &r.Instructions, &r.UpdatedAt)
		return r, err
	}
	return nil, fmt.Errorf("unknown table %q", table)
}

func insertRow(ctx context.Context, tx pgx.Tx, row *tableRow) error {
	var err error
	switch row.Table {
	case "patients":
		r := PatientRow{}
		if err = json.Unmarshal(row.Row, &r); err == nil {
			_, err = tx.Exec(ctx, `
				INSERT INTO patients (id, name, father_name, gender, age, address, phone,
					medical_history, first_visit_date, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				r.ID, r.Name, r.FatherName, r.Gender, r.Age, r.Address, r.Phone,
				r.MedicalHistory, r.FirstVisitDate, r.CreatedAt, r.UpdatedAt)
		}
	case "services", "medications":
		r := CatalogRow{}
		if err = json.Unmarshal(row.Row, &r); err == nil {
			_, err = tx.Exec(ctx, `
				INSERT INTO `+row.Table+` (id, name, description, default_price_cents, active, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				r.ID, r.Name, r.Description, r.DefaultPriceCents, r.Active, r.UpdatedAt)
		}
	case "visits":
		r := VisitRow{}
		if err = json.Unmarshal(row.Row, &r); err == nil {
			_, err = tx.Exec(ctx, `
				INSERT INTO visits (id, patient_id, visit_date, notes, lab_results,
					total_cents, paid_cents, due_cents, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				r.ID, r.PatientID, r.VisitDate, r.Notes, r.LabResults,
				r.TotalCents, r.PaidCents, r.DueCents, r.UpdatedAt)
		}
	case "visit_services":
		r := VisitServiceRow{}
		if err = json.Unmarshal(row.Row, &r); err == nil {
			_, err = tx.Exec(ctx, `
				INSERT INTO visit_services (id, visit_id, service_id, tooth_number, price_cents, notes, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				r.ID, r.VisitID, r.ServiceID, r.ToothNumber, r.PriceCents, r.Notes, r.UpdatedAt)
		}
	case "visit_prescriptions":
		r := VisitPrescriptionRow{}
		if err = json.Unmarshal(row.Row, &r); err == nil {
			_, err = tx.Exec(ctx, `
				INSERT INTO visit_prescriptions (id, visit_id, medication_id, quantity, price_cents, instructions, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				r.ID, r.VisitID, r.MedicationID, r.Quantity, r.PriceCents, r.Instructions, r.UpdatedAt)
		}
	default:
		return fmt.Errorf("backup: unknown table %q in snapshot", row.Table)
	}
	if err != nil {
		return fmt.Errorf("backup: restore %s row: %w", row.Table, err)
	}
	return nil
}
