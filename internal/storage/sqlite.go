package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/alienxp03/ideagen/internal/core"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &SQLiteStorage{
		db:   db,
		path: dbPath,
	}, nil
}

// Initialize creates the database schema.
func (s *SQLiteStorage) Initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		query TEXT NOT NULL,
		config_name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		state_path TEXT,
		report_path TEXT,
		dedup_path TEXT,
		ranked_path TEXT,
		error TEXT,
		created_at DATETIME NOT NULL,
		completed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// CreateRun creates a new run record.
func (s *SQLiteStorage) CreateRun(run *core.Run) error {
	query := `
	INSERT INTO runs (id, timestamp, query, config_name, status, state_path, report_path, dedup_path, ranked_path, error, created_at, completed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		run.ID,
		run.Timestamp,
		run.Query,
		run.ConfigName,
		run.Status,
		run.StatePath,
		run.ReportPath,
		run.DedupPath,
		run.RankedPath,
		run.Error,
		run.CreatedAt,
		run.CompletedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStorage) GetRun(id string) (*core.Run, error) {
	query := `
	SELECT id, timestamp, query, config_name, status, state_path, report_path, dedup_path, ranked_path, error, created_at, completed_at
	FROM runs
	WHERE id = ?
	`

	var run core.Run
	var statePath, reportPath, dedupPath, rankedPath, runError sql.NullString
	var completedAt sql.NullTime

	err := s.db.QueryRow(query, id).Scan(
		&run.ID,
		&run.Timestamp,
		&run.Query,
		&run.ConfigName,
		&run.Status,
		&statePath,
		&reportPath,
		&dedupPath,
		&rankedPath,
		&runError,
		&run.CreatedAt,
		&completedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.StatePath = statePath.String
	run.ReportPath = reportPath.String
	run.DedupPath = dedupPath.String
	run.RankedPath = rankedPath.String
	run.Error = runError.String
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	return &run, nil
}

// UpdateRun updates an existing run record.
func (s *SQLiteStorage) UpdateRun(run *core.Run) error {
	query := `
	UPDATE runs
	SET timestamp = ?, query = ?, config_name = ?, status = ?, state_path = ?, report_path = ?, dedup_path = ?, ranked_path = ?, error = ?, completed_at = ?
	WHERE id = ?
	`

	_, err := s.db.Exec(query,
		run.Timestamp,
		run.Query,
		run.ConfigName,
		run.Status,
		run.StatePath,
		run.ReportPath,
		run.DedupPath,
		run.RankedPath,
		run.Error,
		run.CompletedAt,
		run.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	return nil
}

// DeleteRun deletes a run record.
func (s *SQLiteStorage) DeleteRun(id string) error {
	_, err := s.db.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// ListRuns returns a list of run summaries, newest first.
func (s *SQLiteStorage) ListRuns(limit, offset int) ([]*core.RunSummary, error) {
	query := `
	SELECT id, timestamp, query, config_name, status, created_at
	FROM runs
	ORDER BY created_at DESC
	LIMIT ? OFFSET ?
	`

	rows, err := s.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var summaries []*core.RunSummary
	for rows.Next() {
		var summary core.RunSummary
		err := rows.Scan(
			&summary.ID,
			&summary.Timestamp,
			&summary.Query,
			&summary.ConfigName,
			&summary.Status,
			&summary.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		summaries = append(summaries, &summary)
	}

	return summaries, rows.Err()
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "ideagen.db"
	}
	return filepath.Join(home, ".ideagen", "ideagen.db")
}
