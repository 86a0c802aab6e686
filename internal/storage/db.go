package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"carpivot/internal"
)

// DB is the run ledger: one row per conversion and the reasons each
// derived field fell back to a default.
type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL UNIQUE,
  input TEXT NOT NULL,
  output TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS field_diagnostics (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId INTEGER NOT NULL,
  listingId INTEGER NOT NULL,
  field TEXT NOT NULL,
  reason TEXT NOT NULL,
  FOREIGN KEY(runId) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_field_diagnostics_run ON field_diagnostics(runId);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) InsertRun(traceID, input, output string, timings map[string]float64, counts map[string]int) (int64, error) {
	timingsJSON, err := json.Marshal(timings)
	if err != nil {
		return 0, fmt.Errorf("encode timings: %w", err)
	}
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return 0, fmt.Errorf("encode counts: %w", err)
	}
	res, err := d.conn.Exec(`INSERT INTO runs (traceId, input, output, timingsJson, countsJson) VALUES (?, ?, ?, ?, ?)`,
		traceID, input, output, string(timingsJSON), string(countsJSON))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (d *DB) InsertDiagnostics(runID int64, diags []internal.FieldDiagnostic) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT INTO field_diagnostics (runId, listingId, field, reason) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, diag := range diags {
		if _, err := stmt.Exec(runID, diag.ListingID, diag.Field, string(diag.Reason)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs first.
func (d *DB) ListRuns(limit int) ([]internal.RunRow, error) {
	rows, err := d.conn.Query(`
SELECT id, traceId, input, output, timingsJson, countsJson, createdAt
FROM runs ORDER BY id DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		var row internal.RunRow
		var timingsJSON, countsJSON string
		if err := rows.Scan(&row.ID, &row.TraceID, &row.Input, &row.Output, &timingsJSON, &countsJSON, &row.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(timingsJSON), &row.TimingsMs); err != nil {
			return nil, fmt.Errorf("run %d timings: %w", row.ID, err)
		}
		if err := json.Unmarshal([]byte(countsJSON), &row.Counts); err != nil {
			return nil, fmt.Errorf("run %d counts: %w", row.ID, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) ListDiagnostics(runID int64) ([]internal.FieldDiagnostic, error) {
	rows, err := d.conn.Query(`
SELECT listingId, field, reason FROM field_diagnostics WHERE runId = ? ORDER BY listingId, field
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.FieldDiagnostic
	for rows.Next() {
		var diag internal.FieldDiagnostic
		var reason string
		if err := rows.Scan(&diag.ListingID, &diag.Field, &reason); err != nil {
			return nil, err
		}
		diag.Reason = internal.NullReason(reason)
		out = append(out, diag)
	}
	return out, rows.Err()
}
