package storage

import (
	"database/sql"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("record not found")

// RecordCapture asynchronously records a resolved position
func (s *Store) RecordCapture(record CaptureRecord) {
	s.enqueue("capture", func(tx *sql.Tx) error {
		query := `INSERT INTO captures (
			capture_id, fen, source, recovery_method,
			turn_adjusted, vision_calls, diagnostics, created_at_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

		_, err := tx.Exec(query,
			record.CaptureID, record.FEN, record.Source, record.RecoveryMethod,
			record.TurnAdjusted, record.VisionCalls, record.Diagnostics, record.CreatedAtUTC,
		)
		return err
	})
}

// RecordSelection asynchronously records a move selection for a capture
func (s *Store) RecordSelection(record SelectionRecord) {
	s.enqueue("selection", func(tx *sql.Tx) error {
		query := `INSERT INTO selections (
			capture_id, selected_move, engine_best, temperature,
			target_rating, eval_source, degraded, created_at_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

		_, err := tx.Exec(query,
			record.CaptureID, record.SelectedMove, record.EngineBest, record.Temperature,
			record.TargetRating, record.EvalSource, record.Degraded, record.CreatedAtUTC,
		)
		return err
	})
}

const captureColumns = `capture_id, fen, source, recovery_method,
	turn_adjusted, vision_calls, diagnostics, created_at_utc`

func scanCapture(row interface{ Scan(...any) error }) (CaptureRecord, error) {
	var c CaptureRecord
	err := row.Scan(
		&c.CaptureID, &c.FEN, &c.Source, &c.RecoveryMethod,
		&c.TurnAdjusted, &c.VisionCalls, &c.Diagnostics, &c.CreatedAtUTC,
	)
	return c, err
}

// GetCapture fetches one capture by ID
func (s *Store) GetCapture(captureID string) (*CaptureRecord, error) {
	row := s.db.QueryRow(`SELECT `+captureColumns+` FROM captures WHERE capture_id = ?`, captureID)
	c, err := scanCapture(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	return &c, nil
}

// QueryCaptures retrieves captures with optional filtering, newest first
func (s *Store) QueryCaptures(captureID, source string) ([]CaptureRecord, error) {
	query := `SELECT ` + captureColumns + ` FROM captures WHERE 1=1`

	var args []interface{}

	if captureID != "" && captureID != "*" {
		query += " AND capture_id = ?"
		args = append(args, captureID)
	}

	if source != "" && source != "*" {
		query += " AND source = ?"
		args = append(args, source)
	}

	query += " ORDER BY created_at_utc DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var captures []CaptureRecord
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		captures = append(captures, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return captures, nil
}

// GetSelections lists selections recorded for a capture, oldest first
func (s *Store) GetSelections(captureID string) ([]SelectionRecord, error) {
	rows, err := s.db.Query(`SELECT
		selection_id, capture_id, selected_move, engine_best, temperature,
		target_rating, eval_source, degraded, created_at_utc
	FROM selections WHERE capture_id = ? ORDER BY selection_id`, captureID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []SelectionRecord
	for rows.Next() {
		var r SelectionRecord
		if err := rows.Scan(
			&r.SelectionID, &r.CaptureID, &r.SelectedMove, &r.EngineBest, &r.Temperature,
			&r.TargetRating, &r.EvalSource, &r.Degraded, &r.CreatedAtUTC,
		); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
