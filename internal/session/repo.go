package session

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// PostgresRepository persists sessions in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new session row.
func (r *PostgresRepository) Create(ctx context.Context, s Session) (Session, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, professor_name, course_code, latitude, longitude, radius_m, created_at, expires_at, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, s.ID, s.ProfessorName, s.CourseCode, s.Latitude, s.Longitude, s.RadiusM, s.CreatedAt, s.ExpiresAt, s.IsActive)
	if err != nil {
		return Session{}, err
	}
	return s, nil
}

// Get returns a session by id, or ErrNotFound.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, professor_name, course_code, latitude, longitude, radius_m, created_at, expires_at, is_active
		FROM sessions WHERE id = $1
	`, id)
	var s Session
	if err := row.Scan(&s.ID, &s.ProfessorName, &s.CourseCode, &s.Latitude, &s.Longitude, &s.RadiusM, &s.CreatedAt, &s.ExpiresAt, &s.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return s, nil
}

// SetActive updates only the active flag and returns the updated session.
func (r *PostgresRepository) SetActive(ctx context.Context, id string, active bool) (Session, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return Session{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Session{}, ErrNotFound
	}
	return r.Get(ctx, id)
}
