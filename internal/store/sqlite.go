// SPDX-License-Identifier: AGPL-3.0-only
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sriram687/adya-mcp-hackathon/internal/model"

	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339Nano

// SQLiteStore implements model.RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure the parent directory exists.
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// SaveRun persists one finished run summary.
func (s *SQLiteStore) SaveRun(run *model.RunRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (run_id, client, servers, input, status, error,
			total_llm_calls, total_tokens, total_input_tokens, total_output_tokens,
			tool_calls, output_type, start_time, end_time, duration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID,
		run.Client,
		run.Servers,
		run.Input,
		boolToInt(run.Status),
		run.Error,
		run.TotalLLMCalls,
		run.TotalTokens,
		run.TotalInputTokens,
		run.TotalOutputTokens,
		run.ToolCalls,
		run.OutputType,
		run.StartTime.Format(timeFormat),
		run.EndTime.Format(timeFormat),
		run.Duration,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRuns returns up to limit run records, ordered by start_time descending
// (most recent first).
func (s *SQLiteStore) GetRuns(limit int) ([]*model.RunRecord, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	rows, err := s.db.Query(`
		SELECT run_id, client, servers, input, status, error,
			total_llm_calls, total_tokens, total_input_tokens, total_output_tokens,
			tool_calls, output_type, start_time, end_time, duration
		FROM runs
		ORDER BY start_time DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.RunRecord
	for rows.Next() {
		var r model.RunRecord
		var status int
		var startStr, endStr string
		if err := rows.Scan(
			&r.RunID, &r.Client, &r.Servers, &r.Input, &status, &r.Error,
			&r.TotalLLMCalls, &r.TotalTokens, &r.TotalInputTokens, &r.TotalOutputTokens,
			&r.ToolCalls, &r.OutputType, &startStr, &endStr, &r.Duration,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		r.Status = status != 0
		r.StartTime, _ = time.Parse(timeFormat, startStr)
		r.EndTime, _ = time.Parse(timeFormat, endStr)
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}

	return runs, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
