package storage

import "time"

// CaptureRecord represents a row in the captures table
type CaptureRecord struct {
	CaptureID      string    `db:"capture_id"`
	FEN            string    `db:"fen"`
	Source         string    `db:"source"`
	RecoveryMethod string    `db:"recovery_method"`
	TurnAdjusted   bool      `db:"turn_adjusted"`
	VisionCalls    int       `db:"vision_calls"`
	Diagnostics    string    `db:"diagnostics"` // newline separated
	CreatedAtUTC   time.Time `db:"created_at_utc"`
}

// SelectionRecord represents a row in the selections table
type SelectionRecord struct {
	SelectionID  int64     `db:"selection_id"`
	CaptureID    string    `db:"capture_id"`
	SelectedMove string    `db:"selected_move"`
	EngineBest   string    `db:"engine_best"`
	Temperature  float64   `db:"temperature"`
	TargetRating int       `db:"target_rating"`
	EvalSource   string    `db:"eval_source"`
	Degraded     bool      `db:"degraded"`
	CreatedAtUTC time.Time `db:"created_at_utc"`
}

// Schema defines the SQLite database structure
const Schema = `
CREATE TABLE IF NOT EXISTS captures (
	capture_id TEXT PRIMARY KEY,
	fen TEXT NOT NULL,
	source TEXT NOT NULL,
	recovery_method TEXT NOT NULL DEFAULT '',
	turn_adjusted INTEGER NOT NULL DEFAULT 0,
	vision_calls INTEGER NOT NULL DEFAULT 0,
	diagnostics TEXT NOT NULL DEFAULT '',
	created_at_utc DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS selections (
	selection_id INTEGER PRIMARY KEY AUTOINCREMENT,
	capture_id TEXT NOT NULL,
	selected_move TEXT NOT NULL,
	engine_best TEXT NOT NULL,
	temperature REAL NOT NULL,
	target_rating INTEGER NOT NULL,
	eval_source TEXT NOT NULL,
	degraded INTEGER NOT NULL DEFAULT 0,
	created_at_utc DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (capture_id) REFERENCES captures(capture_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_captures_source ON captures(source);
CREATE INDEX IF NOT EXISTS idx_captures_created_at ON captures(created_at_utc);
CREATE INDEX IF NOT EXISTS idx_selections_capture_id ON selections(capture_id);
`
