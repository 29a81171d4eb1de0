package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Record is one accepted check-in. Immutable once written.
type Record struct {
	ID                string    `json:"id"`
	SessionID         string    `json:"sessionId"`
	StudentName       string    `json:"studentName"`
	RollNumber        string    `json:"rollNumber"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	DeviceFingerprint string    `json:"deviceFingerprint,omitempty"`
	Timestamp         time.Time `json:"timestamp"`
}

// Order selects the listing order for a session's records.
type Order string

const (
	// OrderByRollAsc orders by roll number ascending, used for exports.
	OrderByRollAsc Order = "roll"
	// OrderByTimeDesc orders newest-first, used for the live view.
	OrderByTimeDesc Order = "time"
)

// Repository persists attendance records. Insert must enforce uniqueness on
// (session_id, roll_number) and report a violation as ErrDuplicate.
type Repository interface {
	Find(ctx context.Context, sessionID, rollNumber string) (*Record, error)
	Insert(ctx context.Context, rec Record) (Record, error)
	List(ctx context.Context, sessionID string, order Order) ([]Record, error)
	Count(ctx context.Context, sessionID string) (int64, error)
}

// PostgresRepository persists attendance records in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Find returns the record for (sessionID, rollNumber), or nil when absent.
func (r *PostgresRepository) Find(ctx context.Context, sessionID, rollNumber string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, session_id, student_name, roll_number, latitude, longitude, device_fingerprint, marked_at
		FROM attendance_records
		WHERE session_id = $1 AND roll_number = $2
	`, sessionID, rollNumber)
	var rec Record
	if err := row.Scan(&rec.ID, &rec.SessionID, &rec.StudentName, &rec.RollNumber, &rec.Latitude, &rec.Longitude, &rec.DeviceFingerprint, &rec.Timestamp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Insert writes a new record. The UNIQUE (session_id, roll_number)
// constraint is the authoritative duplicate guard: a 23505 from a racing
// insert surfaces as ErrDuplicate.
func (r *PostgresRepository) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (id, session_id, student_name, roll_number, latitude, longitude, device_fingerprint, marked_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, rec.ID, rec.SessionID, rec.StudentName, rec.RollNumber, rec.Latitude, rec.Longitude, rec.DeviceFingerprint, rec.Timestamp)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Record{}, ErrDuplicate
		}
		return Record{}, err
	}
	return rec, nil
}

// List returns a session's records in the requested order.
func (r *PostgresRepository) List(ctx context.Context, sessionID string, order Order) ([]Record, error) {
	orderBy := "marked_at DESC"
	if order == OrderByRollAsc {
		orderBy = "roll_number ASC"
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, student_name, roll_number, latitude, longitude, device_fingerprint, marked_at
		FROM attendance_records
		WHERE session_id = $1
		ORDER BY `+orderBy, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.StudentName, &rec.RollNumber, &rec.Latitude, &rec.Longitude, &rec.DeviceFingerprint, &rec.Timestamp); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// Count returns the number of records for a session.
func (r *PostgresRepository) Count(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance_records WHERE session_id = $1`, sessionID).Scan(&n)
	return n, err
}
