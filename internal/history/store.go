// Package history records harness runs in a SQLite database so results can
// be compared across engine builds.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/uciharness/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stored in PRAGMA user_version.
const schemaVersion = 1

// RunMeta describes the engine a run was made against.
type RunMeta struct {
	Backend string
	Target  string
}

// Run is one stored suite run.
type Run struct {
	RunID     string
	Suite     string
	Backend   string
	Target    string
	StartedAt time.Time
	Duration  time.Duration
	Total     int
	Passed    int
	Failed    int
	Findings  int
}

// CaseRecord is one stored case result.
type CaseRecord struct {
	RunID        string
	Position     int
	CaseName     string
	Verdict      models.Verdict
	Passed       bool
	BestMove     string
	Nodes        int64
	Duration     time.Duration
	Missing      []string
	EngineErrors []string
	ErrorMessage string
	StartedAt    time.Time // Start of the run the case belonged to
}

// Store manages the SQLite run history database
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the history database at dbPath.
// ":memory:" opens a private in-memory database.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // Must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// execWithRetry executes a SQL statement with exponential backoff retry on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) initSchema(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, schemaVersion)
	}
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version=%d", schemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

// SaveRun stores a summary and all of its case results in one transaction.
func (s *Store) SaveRun(ctx context.Context, summary *models.Summary, meta RunMeta) error {
	if summary.RunID == "" {
		return fmt.Errorf("summary has no run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(run_id, suite, backend, target, started_at, duration_ms, total, passed, failed, findings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID, summary.Suite, meta.Backend, meta.Target, summary.StartedAt.UTC(),
		summary.Duration.Milliseconds(), summary.Total, summary.Passed, summary.Failed, summary.Findings,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO case_results
		(run_id, position, case_name, verdict, passed, best_move, nodes, duration_ms, missing, engine_errors, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare case insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range summary.Results {
		missing, err := marshalList(r.Missing)
		if err != nil {
			return err
		}
		engineErrors, err := marshalList(r.EngineError)
		if err != nil {
			return err
		}
		var errMsg string
		if r.Error != nil {
			errMsg = r.Error.Error()
		}
		if _, err := stmt.ExecContext(ctx,
			summary.RunID, i, r.Case.Name, string(r.Verdict), r.Passed, r.BestMove, r.Nodes,
			r.Duration.Milliseconds(), missing, engineErrors, errMsg,
		); err != nil {
			return fmt.Errorf("insert case %q: %w", r.Case.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

func marshalList(items []string) (string, error) {
	if len(items) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("marshal list: %w", err)
	}
	return string(data), nil
}

func unmarshalList(data string) []string {
	var items []string
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil
	}
	return items
}

// RecentRuns returns up to limit runs, newest first. An empty suite matches all suites.
func (s *Store) RecentRuns(ctx context.Context, suite string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT run_id, suite, backend, target, started_at, duration_ms, total, passed, failed, findings
		FROM runs`
	args := []interface{}{}
	if suite != "" {
		query += ` WHERE suite = ?`
		args = append(args, suite)
	}
	query += ` ORDER BY started_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var durationMS int64
		if err := rows.Scan(&r.RunID, &r.Suite, &r.Backend, &r.Target, &r.StartedAt, &durationMS,
			&r.Total, &r.Passed, &r.Failed, &r.Findings); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// CaseResults returns the stored results of one run in case order.
func (s *Store) CaseResults(ctx context.Context, runID string) ([]CaseRecord, error) {
	return s.queryCases(ctx, `WHERE c.run_id = ? ORDER BY c.position`, runID)
}

// CaseHistory returns the most recent results of a case across runs, newest first.
func (s *Store) CaseHistory(ctx context.Context, caseName string, limit int) ([]CaseRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryCases(ctx, `WHERE c.case_name = ? ORDER BY r.started_at DESC, c.id DESC LIMIT ?`, caseName, limit)
}

func (s *Store) queryCases(ctx context.Context, where string, args ...interface{}) ([]CaseRecord, error) {
	query := `SELECT c.run_id, c.position, c.case_name, c.verdict, c.passed, c.best_move, c.nodes,
			c.duration_ms, c.missing, c.engine_errors, c.error_message, r.started_at
		FROM case_results c JOIN runs r ON r.run_id = c.run_id ` + where

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query case results: %w", err)
	}
	defer rows.Close()

	var out []CaseRecord
	for rows.Next() {
		var c CaseRecord
		var verdict, missing, engineErrors string
		var durationMS int64
		if err := rows.Scan(&c.RunID, &c.Position, &c.CaseName, &verdict, &c.Passed, &c.BestMove, &c.Nodes,
			&durationMS, &missing, &engineErrors, &c.ErrorMessage, &c.StartedAt); err != nil {
			return nil, fmt.Errorf("scan case result: %w", err)
		}
		c.Verdict = models.Verdict(verdict)
		c.Duration = time.Duration(durationMS) * time.Millisecond
		c.Missing = unmarshalList(missing)
		c.EngineErrors = unmarshalList(engineErrors)
		out = append(out, c)
	}
	return out, rows.Err()
}

// CleanupOldRuns removes runs older than keepDays together with their cases.
// Returns the number of deleted runs. keepDays <= 0 keeps everything.
func (s *Store) CleanupOldRuns(ctx context.Context, keepDays int) (int64, error) {
	if keepDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -keepDays)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// foreign_keys is per connection, so cases are removed explicitly
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM case_results WHERE run_id IN (SELECT run_id FROM runs WHERE started_at < ?)`, cutoff); err != nil {
		return 0, fmt.Errorf("cleanup old case results: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup old runs: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit cleanup: %w", err)
	}
	return deleted, nil
}
