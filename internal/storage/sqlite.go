package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/radlabel/internal/models"
)

// SQLiteLedger implements Ledger using SQLite.
type SQLiteLedger struct {
	db   *sql.DB
	path string
}

// NewSQLiteLedger opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteLedger{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS window_runs (
		id TEXT PRIMARY KEY,
		input_path TEXT NOT NULL,
		window_index INTEGER NOT NULL,
		row_start INTEGER NOT NULL,
		row_end INTEGER NOT NULL,
		chunk_count INTEGER NOT NULL,
		status TEXT NOT NULL,
		partition_path TEXT NOT NULL DEFAULT '',
		digest TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_input_window ON window_runs(input_path, window_index);
	`
	_, err := db.Exec(schema)
	return err
}

const runColumns = `id, input_path, window_index, row_start, row_end, chunk_count, status,
	partition_path, digest, error, started_at, finished_at`

// BeginRun inserts a run with status running. StartedAt is set when zero.
func (s *SQLiteLedger) BeginRun(ctx context.Context, run *models.WindowRun) error {
	if run.ID == "" {
		return fmt.Errorf("begin run: empty id")
	}
	run.Status = models.RunRunning
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO window_runs (id, input_path, window_index, row_start, row_end, chunk_count, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.InputPath, run.WindowIndex, run.RowStart, run.RowEnd, run.ChunkCount, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// CompleteRun marks a running run completed.
func (s *SQLiteLedger) CompleteRun(ctx context.Context, id, partitionPath, digest string) error {
	return s.finish(ctx, id, models.RunCompleted, partitionPath, digest, "")
}

// FailRun marks a running run failed.
func (s *SQLiteLedger) FailRun(ctx context.Context, id, reason string) error {
	return s.finish(ctx, id, models.RunFailed, "", "", reason)
}

func (s *SQLiteLedger) finish(ctx context.Context, id string, status models.RunStatus, partitionPath, digest, reason string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE window_runs SET status = ?, partition_path = ?, digest = ?, error = ?, finished_at = ?
		 WHERE id = ? AND status = ?`,
		string(status), partitionPath, digest, reason, time.Now().UTC(), id, string(models.RunRunning),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: no running run %s", ErrRunNotFound, id)
	}
	return nil
}

// GetRun returns a run by ID.
func (s *SQLiteLedger) GetRun(ctx context.Context, id string) (*models.WindowRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM window_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// LatestRun returns the last run begun for the window.
func (s *SQLiteLedger) LatestRun(ctx context.Context, inputPath string, windowIndex int) (*models.WindowRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM window_runs
		 WHERE input_path = ? AND window_index = ?
		 ORDER BY rowid DESC LIMIT 1`,
		inputPath, windowIndex,
	)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s window %d", ErrRunNotFound, inputPath, windowIndex)
	}
	return run, err
}

// ListLatestRuns returns the last run of each window of inputPath ordered by window index.
func (s *SQLiteLedger) ListLatestRuns(ctx context.Context, inputPath string) ([]*models.WindowRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM window_runs
		 WHERE rowid IN (
			SELECT MAX(rowid) FROM window_runs WHERE input_path = ? GROUP BY window_index
		 )
		 ORDER BY window_index`,
		inputPath,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.WindowRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*models.WindowRun, error) {
	var run models.WindowRun
	var status string
	var finished sql.NullTime
	err := sc.Scan(&run.ID, &run.InputPath, &run.WindowIndex, &run.RowStart, &run.RowEnd, &run.ChunkCount,
		&status, &run.PartitionPath, &run.Digest, &run.Error, &run.StartedAt, &finished)
	if err != nil {
		return nil, err
	}
	run.Status = models.RunStatus(status)
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}

// SizeBytes returns the on-disk size of the database including its WAL and shared-memory files.
func (s *SQLiteLedger) SizeBytes() (int64, error) {
	var total int64
	for _, p := range []string{s.path, s.path + "-wal", s.path + "-shm"} {
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

// Close closes the database connection.
func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}
