// Package history provides durable storage for past translation runs.
// Uses SQLite with WAL mode so the CLI can list history while a run writes.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/zigbind/zigbind/internal/diag"
)

//go:embed schema.sql
var schemaSQL string

// Store records translation runs and their diagnostics.
type Store struct {
	db *sql.DB
}

// Run is one recorded translation run.
type Run struct {
	ID           string
	CreatedAt    time.Time
	Profile      string
	Modules      int
	Declarations int
	Errors       int
	Warnings     int
}

// Open creates or opens a history database at the given path.
// Applies required pragmas and the schema automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts one run plus its diagnostics and returns the run ID.
// Diagnostics are stored in report order so Diagnostics returns them the
// same way the run printed them.
func (s *Store) Record(ctx context.Context, profile string, modules, declarations int, diags []diag.Diagnostic) (string, error) {
	id := uuid.New().String()

	errCount := 0
	warnCount := 0
	for _, d := range diags {
		switch d.Severity {
		case diag.SeverityError, diag.SeverityFatal:
			errCount++
		case diag.SeverityWarning:
			warnCount++
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("record run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, created_at, profile, modules, declarations, errors, warnings)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		time.Now().UTC().Format(time.RFC3339),
		profile,
		modules,
		declarations,
		errCount,
		warnCount,
	)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}

	for seq, d := range diags {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_diagnostics
			(run_id, seq, severity, code, qualified_name, message, file, line)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			id,
			seq,
			string(d.Severity),
			string(d.Code),
			d.QualifiedName,
			d.Message,
			d.Loc.File,
			d.Loc.Line,
		)
		if err != nil {
			return "", fmt.Errorf("record run: diagnostic %d: %w", seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("record run: commit: %w", err)
	}
	return id, nil
}

// List returns the most recent runs, newest first, up to limit.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, profile, modules, declarations, errors, warnings
		FROM runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var created string
		if err := rows.Scan(&r.ID, &created, &r.Profile, &r.Modules, &r.Declarations, &r.Errors, &r.Warnings); err != nil {
			return nil, fmt.Errorf("list runs: scan: %w", err)
		}
		r.CreatedAt, err = time.Parse(time.RFC3339, created)
		if err != nil {
			return nil, fmt.Errorf("list runs: created_at %q: %w", created, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Diagnostics returns the stored diagnostics for one run, in report order.
func (s *Store) Diagnostics(ctx context.Context, runID string) ([]diag.Diagnostic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT severity, code, qualified_name, message, file, line
		FROM run_diagnostics
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("run diagnostics: %w", err)
	}
	defer rows.Close()

	var diags []diag.Diagnostic
	for rows.Next() {
		var d diag.Diagnostic
		var sev, code string
		if err := rows.Scan(&sev, &code, &d.QualifiedName, &d.Message, &d.Loc.File, &d.Loc.Line); err != nil {
			return nil, fmt.Errorf("run diagnostics: scan: %w", err)
		}
		d.Severity = diag.Severity(sev)
		d.Code = diag.Code(code)
		diags = append(diags, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("run diagnostics: %w", err)
	}
	return diags, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}
