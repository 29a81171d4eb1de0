package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"geoattend/internal/geofence"
	"geoattend/internal/metrics"
	"geoattend/internal/session"
)

// SessionReader is the slice of the session store the admission controller
// consults for state and expiry.
type SessionReader interface {
	Get(ctx context.Context, id string) (session.Session, error)
}

// CheckInRequest is one student's submission. Coordinates are pointers so a
// missing location is distinguishable from (0, 0).
type CheckInRequest struct {
	SessionID         string
	StudentName       string
	RollNumber        string
	Latitude          *float64
	Longitude         *float64
	DeviceFingerprint string
}

// Service is the admission controller. It validates each check-in in strict
// order (existence, active, not expired, in range, not duplicate) and
// commits exactly one record on success, none on rejection.
type Service struct {
	sessions SessionReader
	records  Repository
	now      func() time.Time
}

// NewService creates an admission controller. A nil clock falls back to UTC
// wall-clock time.
func NewService(sessions SessionReader, records Repository, clock func() time.Time) *Service {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &Service{sessions: sessions, records: records, now: clock}
}

// CheckIn runs the admission pipeline. Each stage short-circuits with its
// own rejection reason; later stages never run after a failure.
func (s *Service) CheckIn(ctx context.Context, req CheckInRequest) (Record, error) {
	sess, err := s.sessions.Get(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			metrics.CheckIns.WithLabelValues("not_found").Inc()
			return Record{}, ErrSessionNotFound
		}
		metrics.CheckIns.WithLabelValues("storage_error").Inc()
		return Record{}, fmt.Errorf("load session: %w", err)
	}

	if !sess.IsActive {
		metrics.CheckIns.WithLabelValues("closed").Inc()
		return Record{}, ErrSessionClosed
	}

	if sess.Expired(s.now()) {
		metrics.CheckIns.WithLabelValues("expired").Inc()
		return Record{}, ErrSessionExpired
	}

	if !sess.HasAnchor() || req.Latitude == nil || req.Longitude == nil {
		metrics.CheckIns.WithLabelValues("missing_location").Inc()
		return Record{}, ErrLocationRequired
	}
	dist := geofence.Distance(*sess.Latitude, *sess.Longitude, *req.Latitude, *req.Longitude)
	if dist > float64(sess.RadiusM) {
		metrics.CheckIns.WithLabelValues("out_of_range").Inc()
		return Record{}, &OutOfRangeError{DistanceM: geofence.Meters(dist), LimitM: sess.RadiusM}
	}

	// Advisory pre-check. The storage uniqueness constraint is the true
	// arbiter when two submissions for the same roll number race.
	existing, err := s.records.Find(ctx, req.SessionID, req.RollNumber)
	if err != nil {
		metrics.CheckIns.WithLabelValues("storage_error").Inc()
		return Record{}, fmt.Errorf("duplicate lookup: %w", err)
	}
	if existing != nil {
		metrics.CheckIns.WithLabelValues("duplicate").Inc()
		return Record{}, ErrAlreadyMarked
	}

	rec, err := s.records.Insert(ctx, Record{
		SessionID:         req.SessionID,
		StudentName:       req.StudentName,
		RollNumber:        req.RollNumber,
		Latitude:          *req.Latitude,
		Longitude:         *req.Longitude,
		DeviceFingerprint: req.DeviceFingerprint,
		Timestamp:         s.now(),
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			metrics.CheckIns.WithLabelValues("duplicate").Inc()
			return Record{}, ErrAlreadyMarked
		}
		metrics.CheckIns.WithLabelValues("storage_error").Inc()
		return Record{}, fmt.Errorf("insert record: %w", err)
	}

	metrics.CheckIns.WithLabelValues("admitted").Inc()
	return rec, nil
}

// List returns a session's records in the requested order.
func (s *Service) List(ctx context.Context, sessionID string, order Order) ([]Record, error) {
	return s.records.List(ctx, sessionID, order)
}
