package session

import "time"

// Status is the three-way display state derived from a session, never stored.
type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusClosed  Status = "closed"
)

// Session is one time-boxed, geofenced attendance window.
type Session struct {
	ID            string    `json:"id"`
	ProfessorName string    `json:"professorName"`
	CourseCode    string    `json:"courseCode"`
	Latitude      *float64  `json:"latitude,omitempty"`
	Longitude     *float64  `json:"longitude,omitempty"`
	RadiusM       int       `json:"radius"`
	CreatedAt     time.Time `json:"createdAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
	IsActive      bool      `json:"isActive"`
}

// Expired reports whether the session's window has passed at the given
// instant. The boundary is strict: a session is still live at exactly
// ExpiresAt. Sessions without an expiry never time out.
func (s Session) Expired(now time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return now.After(s.ExpiresAt)
}

// StatusAt derives the display status. Closed wins over expiry.
func (s Session) StatusAt(now time.Time) Status {
	switch {
	case !s.IsActive:
		return StatusClosed
	case s.Expired(now):
		return StatusExpired
	default:
		return StatusActive
	}
}

// HasAnchor reports whether the session carries a geofence anchor point.
func (s Session) HasAnchor() bool {
	return s.Latitude != nil && s.Longitude != nil
}
