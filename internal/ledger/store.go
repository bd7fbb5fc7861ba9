package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"folio/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; users clear the ledger database after schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// JobRecord is one per-job audit row written at the end of a job's lifecycle.
type JobRecord struct {
	RunID        string
	JobID        string
	IdentityKey  string
	Title        string
	Disposition  string
	Backend      string
	QualityScore float64
	Attempts     int
	Reason       string
	RecordedAt   time.Time
}

// RunSummary aggregates the audit rows for a single run.
type RunSummary struct {
	RunID     string
	Total     int
	Succeeded int
	Degraded  int
	Failed    int
	FirstAt   time.Time
	LastAt    time.Time
}

// Store persists per-run, per-job outcomes in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database.
func Open(cfg *config.Config) (*Store, error) {
	dbPath := strings.TrimSpace(cfg.Ledger.Path)
	if dbPath == "" {
		return nil, errors.New("ledger path not configured")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// RecordJob appends one audit row for a completed job.
func (s *Store) RecordJob(ctx context.Context, record JobRecord) error {
	recordedAt := record.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO job_records (
            run_id, job_id, identity_key, title, disposition, backend,
            quality_score, attempts, reason, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.RunID,
		record.JobID,
		record.IdentityKey,
		record.Title,
		record.Disposition,
		record.Backend,
		record.QualityScore,
		record.Attempts,
		record.Reason,
		recordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert job record: %w", err)
	}
	return nil
}

// Summarize aggregates the audit rows for a run.
func (s *Store) Summarize(ctx context.Context, runID string) (RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT disposition, recorded_at FROM job_records WHERE run_id = ? ORDER BY recorded_at",
		runID,
	)
	if err != nil {
		return RunSummary{}, fmt.Errorf("query run %s: %w", runID, err)
	}
	defer rows.Close()

	summary := RunSummary{RunID: runID}
	for rows.Next() {
		var (
			disposition string
			recordedAt  string
		)
		if err := rows.Scan(&disposition, &recordedAt); err != nil {
			return RunSummary{}, fmt.Errorf("scan job record: %w", err)
		}
		summary.Total++
		switch disposition {
		case "success":
			summary.Succeeded++
		case "degraded":
			summary.Degraded++
		default:
			summary.Failed++
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, recordedAt); parseErr == nil {
			if summary.FirstAt.IsZero() || ts.Before(summary.FirstAt) {
				summary.FirstAt = ts
			}
			if ts.After(summary.LastAt) {
				summary.LastAt = ts
			}
		}
	}
	if err := rows.Err(); err != nil {
		return RunSummary{}, fmt.Errorf("iterate job records: %w", err)
	}
	return summary, nil
}

// Recent returns the newest audit rows up to limit, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]JobRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, job_id, identity_key, title, disposition, backend,
                quality_score, attempts, reason, recorded_at
         FROM job_records ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent records: %w", err)
	}
	defer rows.Close()

	var records []JobRecord
	for rows.Next() {
		var (
			record     JobRecord
			recordedAt string
		)
		if err := rows.Scan(
			&record.RunID, &record.JobID, &record.IdentityKey, &record.Title,
			&record.Disposition, &record.Backend, &record.QualityScore,
			&record.Attempts, &record.Reason, &recordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job record: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, recordedAt); parseErr == nil {
			record.RecordedAt = ts
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job records: %w", err)
	}
	return records, nil
}

// Prune deletes audit rows older than the retention window and returns the
// number of rows removed. A non-positive retention disables pruning.
func (s *Store) Prune(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays).Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(ctx, "DELETE FROM job_records WHERE recorded_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune job records: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned rows: %w", err)
	}
	return removed, nil
}
