package attendance

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when the check-in names an unknown session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionClosed is returned when the session was explicitly closed.
	ErrSessionClosed = errors.New("session is closed")
	// ErrSessionExpired is returned when the session's time window has passed.
	ErrSessionExpired = errors.New("session has expired")
	// ErrLocationRequired is returned when either the session anchor or the
	// submitted coordinates are missing. Location is mandatory.
	ErrLocationRequired = errors.New("location data is required")
	// ErrAlreadyMarked is returned when the roll number already checked in,
	// whether caught by the pre-check or by the storage uniqueness constraint.
	ErrAlreadyMarked = errors.New("attendance already marked for this roll number")
	// ErrDuplicate is the repository-level signal for a unique-constraint
	// violation on (session_id, roll_number).
	ErrDuplicate = errors.New("duplicate attendance record")
)

// OutOfRangeError rejects a check-in outside the geofence. It carries the
// computed distance and the configured limit for user feedback.
type OutOfRangeError struct {
	DistanceM int
	LimitM    int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("You are too far from the class. Distance: %dm. Max allowed: %dm.", e.DistanceM, e.LimitM)
}
