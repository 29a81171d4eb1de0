package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no session exists for an id.
	ErrNotFound = errors.New("session not found")
	// ErrReopen is returned when a caller tries to flip a session back to
	// active. Closing is one-way.
	ErrReopen = errors.New("session cannot be re-opened")
)

// Repository persists sessions.
type Repository interface {
	Create(ctx context.Context, s Session) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	SetActive(ctx context.Context, id string, active bool) (Session, error)
}

// CreateParams are the professor-supplied inputs for opening a session.
type CreateParams struct {
	ProfessorName   string
	CourseCode      string
	Latitude        *float64
	Longitude       *float64
	RadiusM         int
	DurationMinutes int
}

// Service manages the session lifecycle: creation with expiry computation,
// the one-way close transition, and status derivation for display.
type Service struct {
	repo            Repository
	defaultRadiusM  int
	defaultDuration time.Duration
	now             func() time.Time
}

// NewService creates a lifecycle manager. A nil clock falls back to UTC
// wall-clock time; non-positive defaults fall back to 50m and 1 minute.
func NewService(repo Repository, defaultRadiusM int, defaultDuration time.Duration, clock func() time.Time) *Service {
	if defaultRadiusM <= 0 {
		defaultRadiusM = 50
	}
	if defaultDuration <= 0 {
		defaultDuration = time.Minute
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:            repo,
		defaultRadiusM:  defaultRadiusM,
		defaultDuration: defaultDuration,
		now:             clock,
	}
}

// Create opens a new active session. ExpiresAt is fixed at creation and
// never mutated afterwards.
func (s *Service) Create(ctx context.Context, p CreateParams) (Session, error) {
	radius := p.RadiusM
	if radius <= 0 {
		radius = s.defaultRadiusM
	}
	duration := time.Duration(p.DurationMinutes) * time.Minute
	if duration <= 0 {
		duration = s.defaultDuration
	}

	created := s.now()
	return s.repo.Create(ctx, Session{
		ProfessorName: p.ProfessorName,
		CourseCode:    p.CourseCode,
		Latitude:      p.Latitude,
		Longitude:     p.Longitude,
		RadiusM:       radius,
		CreatedAt:     created,
		ExpiresAt:     created.Add(duration),
		IsActive:      true,
	})
}

// Get returns the session for id, or ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	return s.repo.Get(ctx, id)
}

// SetActive applies the close transition. Only false is accepted; asking
// for true fails with ErrReopen. Only the active flag is touched.
func (s *Service) SetActive(ctx context.Context, id string, active bool) (Session, error) {
	if active {
		return Session{}, ErrReopen
	}
	return s.repo.SetActive(ctx, id, false)
}

// Status derives the current display status of a session.
func (s *Service) Status(sess Session) Status {
	return sess.StatusAt(s.now())
}
