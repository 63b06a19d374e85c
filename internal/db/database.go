// Package db persists which workouts have been seen and which have already
// been uploaded to Strava, so re-runs never upload twice.
package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Record is a workout's bookkeeping state.
type Record struct {
	WorkoutID        string
	StartedAt        time.Time
	DurationSeconds  int
	Notes            string
	TCXPath          string
	Uploaded         bool
	StravaActivityID int64
}

// WorkoutRepository provides methods for workout state persistence.
type WorkoutRepository interface {
	Upsert(rec Record) error
	GetAll() ([]Record, error)
	GetPending() ([]Record, error)
	GetUploaded() ([]Record, error)
	IsUploaded(workoutID string) (bool, error)
	MarkUploaded(workoutID string, stravaActivityID int64) error
}

// SQLiteDatabase implements WorkoutRepository using SQLite
type SQLiteDatabase struct {
	db *sql.DB
}

// NewDatabase creates a new SQLite database connection
func NewDatabase(path string) (*SQLiteDatabase, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteDatabase{db: db}, nil
}

// Close closes the database connection
func (d *SQLiteDatabase) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS workouts (
		workout_id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		duration_seconds INTEGER NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		tcx_path TEXT NOT NULL DEFAULT '',
		uploaded BOOLEAN NOT NULL DEFAULT 0,
		strava_activity_id INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_uploaded ON workouts(uploaded);
	CREATE INDEX IF NOT EXISTS idx_started_at ON workouts(started_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Upsert inserts or refreshes a workout's metadata. Upload state is never
// touched by an upsert, so re-running download cannot resurrect a workout
// for upload.
func (d *SQLiteDatabase) Upsert(rec Record) error {
	_, err := d.db.Exec(`
	INSERT INTO workouts (workout_id, started_at, duration_seconds, notes, tcx_path)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(workout_id) DO UPDATE SET
		started_at = excluded.started_at,
		duration_seconds = excluded.duration_seconds,
		notes = excluded.notes,
		tcx_path = excluded.tcx_path`,
		rec.WorkoutID, rec.StartedAt.UTC().Format(time.RFC3339Nano),
		rec.DurationSeconds, rec.Notes, rec.TCXPath)
	if err != nil {
		return fmt.Errorf("failed to upsert workout %s: %w", rec.WorkoutID, err)
	}

	return nil
}

// GetAll returns all workouts from the database
func (d *SQLiteDatabase) GetAll() ([]Record, error) {
	return d.GetAllPaginated(0, 0) // 0,0 means no pagination
}

// GetPending returns workouts that haven't been uploaded yet
func (d *SQLiteDatabase) GetPending() ([]Record, error) {
	return d.GetPendingPaginated(0, 0)
}

// GetUploaded returns workouts that have been uploaded
func (d *SQLiteDatabase) GetUploaded() ([]Record, error) {
	return d.GetUploadedPaginated(0, 0)
}

// GetAllPaginated returns a paginated list of all workouts
func (d *SQLiteDatabase) GetAllPaginated(page, pageSize int) ([]Record, error) {
	return d.query("", page, pageSize)
}

// GetPendingPaginated returns a paginated list of not-yet-uploaded workouts
func (d *SQLiteDatabase) GetPendingPaginated(page, pageSize int) ([]Record, error) {
	return d.query("WHERE uploaded = 0", page, pageSize)
}

// GetUploadedPaginated returns a paginated list of uploaded workouts
func (d *SQLiteDatabase) GetUploadedPaginated(page, pageSize int) ([]Record, error) {
	return d.query("WHERE uploaded = 1", page, pageSize)
}

func (d *SQLiteDatabase) query(where string, page, pageSize int) ([]Record, error) {
	query := fmt.Sprintf(`
	SELECT workout_id, started_at, duration_seconds, notes, tcx_path, uploaded, strava_activity_id
	FROM workouts %s ORDER BY started_at`, where)
	if pageSize > 0 {
		offset := (page - 1) * pageSize
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, offset)
	}

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get workouts: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// IsUploaded reports whether a workout has already been uploaded
func (d *SQLiteDatabase) IsUploaded(workoutID string) (bool, error) {
	var uploaded int
	err := d.db.QueryRow("SELECT uploaded FROM workouts WHERE workout_id = ?", workoutID).Scan(&uploaded)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check workout %s: %w", workoutID, err)
	}

	return uploaded == 1, nil
}

// MarkUploaded updates the database when a workout is uploaded
func (d *SQLiteDatabase) MarkUploaded(workoutID string, stravaActivityID int64) error {
	_, err := d.db.Exec("UPDATE workouts SET uploaded = 1, strava_activity_id = ? WHERE workout_id = ?",
		stravaActivityID, workoutID)
	if err != nil {
		return fmt.Errorf("failed to mark workout as uploaded: %w", err)
	}

	return nil
}

// scanRecords converts database rows to Record objects
func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record

	for rows.Next() {
		var rec Record
		var uploaded int
		var startedAt string

		if err := rows.Scan(&rec.WorkoutID, &startedAt, &rec.DurationSeconds, &rec.Notes,
			&rec.TCXPath, &uploaded, &rec.StravaActivityID); err != nil {
			return nil, fmt.Errorf("failed to scan workout: %w", err)
		}

		rec.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		rec.Uploaded = uploaded == 1
		records = append(records, rec)
	}

	return records, rows.Err()
}
