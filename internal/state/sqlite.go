package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// memoryPath opens a private in-memory database.
const memoryPath = ":memory:"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite state store instance.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens the database at path, creating it and its directory when
// missing, and applies pending migrations. Use ":memory:" for an
// in-memory database.
func (s *SQLiteStore) Open(path string) error {
	if path != memoryPath {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create state directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// every connection of an in-memory database is a separate database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if err := upgradeSchema(context.Background(), db, s.logger); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	s.path = path
	s.logger.Debug("state database opened", slog.String("path", path))
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// SaveRun stores run and its checks.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run, checks []Check) (err error) {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if run.ID == "" {
		run.ID = generateID()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO verify_runs (id, plan_path, dialect, target, status, total, failed, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.PlanPath, run.Dialect, run.Target, string(run.Status), run.Total, run.Failed,
		run.StartedAt.UTC().UnixMilli(), run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	for i, c := range checks {
		var values sql.NullString
		if c.Values != nil {
			raw, err := json.Marshal(c.Values)
			if err != nil {
				return fmt.Errorf("failed to encode values of %s: %w", c.Name, err)
			}
			values = sql.NullString{String: string(raw), Valid: true}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO verify_checks (run_id, position, name, dtype, sql_text, query, values_json, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, c.Name, c.Dtype, c.SQL, c.Query, values, sql.NullString{String: c.Error, Valid: c.Error != ""},
		)
		if err != nil {
			return fmt.Errorf("failed to save check %s: %w", c.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	s.logger.Debug("run saved", slog.String("id", run.ID), slog.Int("checks", len(checks)))
	return nil
}

const runColumns = `id, plan_path, dialect, target, status, total, failed, started_at, duration_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var status string
	var startedAt, durationMS int64
	if err := row.Scan(&run.ID, &run.PlanPath, &run.Dialect, &run.Target, &status,
		&run.Total, &run.Failed, &startedAt, &durationMS); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.StartedAt = time.UnixMilli(startedAt).UTC()
	run.Duration = time.Duration(durationMS) * time.Millisecond
	return run, nil
}

// ListRuns returns the most recent runs first. A limit below one returns
// every run.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit < 1 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM verify_runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun retrieves a run by ID or unique ID prefix.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if id == "" {
		return nil, fmt.Errorf("%w: empty id", ErrRunNotFound)
	}

	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM verify_runs WHERE id = ?`, id))
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM verify_runs WHERE substr(id, 1, ?) = ? LIMIT 2`, len(id), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return matches[0], nil
	}
	return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
}

// GetChecks returns the checks of a run in plan order.
func (s *SQLiteStore) GetChecks(ctx context.Context, runID string) ([]Check, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, dtype, sql_text, query, values_json, error
		 FROM verify_checks WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get checks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var checks []Check
	for rows.Next() {
		var c Check
		var values, errMsg sql.NullString
		if err := rows.Scan(&c.Name, &c.Dtype, &c.SQL, &c.Query, &values, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan check: %w", err)
		}
		if values.Valid {
			if err := json.Unmarshal([]byte(values.String), &c.Values); err != nil {
				return nil, fmt.Errorf("failed to decode values of %s: %w", c.Name, err)
			}
		}
		c.Error = errMsg.String
		checks = append(checks, c)
	}
	return checks, rows.Err()
}
