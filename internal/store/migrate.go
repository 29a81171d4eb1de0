package store

import (
	"context"
	"fmt"
)

// schema is applied at startup. The UNIQUE constraint on
// (session_id, roll_number) is what makes duplicate check-ins safe under
// concurrency; the admission pre-check is only a fast path.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		professor_name TEXT NOT NULL,
		course_code TEXT NOT NULL,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		radius_m INTEGER NOT NULL DEFAULT 50,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMPTZ,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		student_name TEXT NOT NULL,
		roll_number TEXT NOT NULL,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		device_fingerprint TEXT NOT NULL DEFAULT '',
		marked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (session_id, roll_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_records_session ON attendance_records (session_id)`,
}

// Migrate creates the schema if it does not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.Client.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
