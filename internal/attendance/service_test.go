package attendance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoattend/internal/geofence"
	"geoattend/internal/session"
)

var testNow = time.Date(2026, 3, 5, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func ptr(f float64) *float64 { return &f }

// latOffset60m is the latitude delta that puts a point ~60 meters due north
// of the anchor.
const latOffset60m = 0.00053959

type fixture struct {
	svc      *Service
	sessions *session.MemoryRepository
	records  *MemoryRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sessions := session.NewMemoryRepository()
	records := NewMemoryRepository()
	return &fixture{
		svc:      NewService(sessions, records, fixedClock),
		sessions: sessions,
		records:  records,
	}
}

func (f *fixture) addSession(t *testing.T, s session.Session) session.Session {
	t.Helper()
	created, err := f.sessions.Create(context.Background(), s)
	require.NoError(t, err)
	return created
}

func activeSession() session.Session {
	return session.Session{
		ProfessorName: "Dr. Rao",
		CourseCode:    "CS101",
		Latitude:      ptr(0.0),
		Longitude:     ptr(0.0),
		RadiusM:       50,
		CreatedAt:     testNow.Add(-time.Minute),
		ExpiresAt:     testNow.Add(10 * time.Minute),
		IsActive:      true,
	}
}

func checkIn(sessID string, lat, lon *float64) CheckInRequest {
	return CheckInRequest{
		SessionID:         sessID,
		StudentName:       "Asha",
		RollNumber:        "42",
		Latitude:          lat,
		Longitude:         lon,
		DeviceFingerprint: "fp-1",
	}
}

// TestCheckIn_SessionNotFound rejects submissions for unknown sessions.
func TestCheckIn_SessionNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CheckIn(context.Background(), checkIn("no-such-session", ptr(0.0), ptr(0.0)))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// TestCheckIn_ClosedShortCircuits verifies a closed session rejects before
// the geofence or duplicate stages run: the submission is far out of range
// and the roll number is already taken, yet the error is "closed".
func TestCheckIn_ClosedShortCircuits(t *testing.T) {
	f := newFixture(t)
	s := activeSession()
	s.IsActive = false
	sess := f.addSession(t, s)
	_, err := f.records.Insert(context.Background(), Record{SessionID: sess.ID, RollNumber: "42"})
	require.NoError(t, err)

	_, err = f.svc.CheckIn(context.Background(), checkIn(sess.ID, ptr(45.0), ptr(45.0)))
	assert.ErrorIs(t, err, ErrSessionClosed)
}

// TestCheckIn_Expired rejects once the window has passed, strictly.
func TestCheckIn_Expired(t *testing.T) {
	f := newFixture(t)
	s := activeSession()
	s.ExpiresAt = testNow.Add(-time.Second)
	sess := f.addSession(t, s)

	_, err := f.svc.CheckIn(context.Background(), checkIn(sess.ID, ptr(0.0), ptr(0.0)))
	assert.ErrorIs(t, err, ErrSessionExpired)
}

// TestCheckIn_AtExpiryBoundary admits at exactly expiresAt.
func TestCheckIn_AtExpiryBoundary(t *testing.T) {
	f := newFixture(t)
	s := activeSession()
	s.ExpiresAt = testNow
	sess := f.addSession(t, s)

	_, err := f.svc.CheckIn(context.Background(), checkIn(sess.ID, ptr(0.0), ptr(0.0)))
	assert.NoError(t, err)
}

// TestCheckIn_MissingLocation rejects when the submission carries no
// coordinates or the session has no anchor.
func TestCheckIn_MissingLocation(t *testing.T) {
	f := newFixture(t)
	sess := f.addSession(t, activeSession())

	_, err := f.svc.CheckIn(context.Background(), checkIn(sess.ID, nil, ptr(0.0)))
	assert.ErrorIs(t, err, ErrLocationRequired)

	_, err = f.svc.CheckIn(context.Background(), checkIn(sess.ID, ptr(0.0), nil))
	assert.ErrorIs(t, err, ErrLocationRequired)

	anchorless := activeSession()
	anchorless.Latitude = nil
	sess2 := f.addSession(t, anchorless)
	_, err = f.svc.CheckIn(context.Background(), checkIn(sess2.ID, ptr(0.0), ptr(0.0)))
	assert.ErrorIs(t, err, ErrLocationRequired)
}

// TestCheckIn_OutOfRange rejects a point ~60m from a 50m-radius anchor and
// reports both the computed distance and the limit.
func TestCheckIn_OutOfRange(t *testing.T) {
	f := newFixture(t)
	sess := f.addSession(t, activeSession())

	_, err := f.svc.CheckIn(context.Background(), checkIn(sess.ID, ptr(latOffset60m), ptr(0.0)))

	var oor *OutOfRangeError
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, 60, oor.DistanceM)
	assert.Equal(t, 50, oor.LimitM)
	assert.Contains(t, err.Error(), "Distance: 60m")
	assert.Contains(t, err.Error(), "Max allowed: 50m")
}

// TestCheckIn_InclusiveRadius admits right at the geofence boundary.
func TestCheckIn_InclusiveRadius(t *testing.T) {
	f := newFixture(t)
	s := activeSession()
	s.RadiusM = 60
	sess := f.addSession(t, s)

	rec, err := f.svc.CheckIn(context.Background(), checkIn(sess.ID, ptr(latOffset60m), ptr(0.0)))
	require.NoError(t, err)

	dist := geofence.Distance(*s.Latitude, *s.Longitude, rec.Latitude, rec.Longitude)
	assert.LessOrEqual(t, dist, float64(s.RadiusM))
}

// TestCheckIn_Admits commits exactly one record with a server-assigned
// timestamp and the submitted fields.
func TestCheckIn_Admits(t *testing.T) {
	f := newFixture(t)
	sess := f.addSession(t, activeSession())

	rec, err := f.svc.CheckIn(context.Background(), checkIn(sess.ID, ptr(0.0001), ptr(0.0)))
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, sess.ID, rec.SessionID)
	assert.Equal(t, "Asha", rec.StudentName)
	assert.Equal(t, "42", rec.RollNumber)
	assert.Equal(t, "fp-1", rec.DeviceFingerprint)
	assert.Equal(t, testNow, rec.Timestamp)

	n, err := f.records.Count(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

// TestCheckIn_Duplicate rejects a second submission for the same roll
// number and leaves the store untouched.
func TestCheckIn_Duplicate(t *testing.T) {
	f := newFixture(t)
	sess := f.addSession(t, activeSession())

	_, err := f.svc.CheckIn(context.Background(), checkIn(sess.ID, ptr(0.0), ptr(0.0)))
	require.NoError(t, err)

	_, err = f.svc.CheckIn(context.Background(), checkIn(sess.ID, ptr(0.0), ptr(0.0)))
	assert.ErrorIs(t, err, ErrAlreadyMarked)

	n, err := f.records.Count(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

// blindFindRepo simulates the duplicate pre-check racing: Find never sees
// the other writer, so only the insert constraint can catch the duplicate.
type blindFindRepo struct {
	Repository
}

func (r *blindFindRepo) Find(context.Context, string, string) (*Record, error) {
	return nil, nil
}

// TestCheckIn_DuplicateRace verifies the storage constraint is the
// authoritative guard when the pre-check passes stale.
func TestCheckIn_DuplicateRace(t *testing.T) {
	sessions := session.NewMemoryRepository()
	records := NewMemoryRepository()
	svc := NewService(sessions, &blindFindRepo{records}, fixedClock)

	sess, err := sessions.Create(context.Background(), activeSession())
	require.NoError(t, err)

	_, err = svc.CheckIn(context.Background(), checkIn(sess.ID, ptr(0.0), ptr(0.0)))
	require.NoError(t, err)

	_, err = svc.CheckIn(context.Background(), checkIn(sess.ID, ptr(0.0), ptr(0.0)))
	assert.ErrorIs(t, err, ErrAlreadyMarked)

	n, err := records.Count(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

// TestCheckIn_ConcurrentSamePair hammers one (session, roll) pair and
// expects exactly one admit.
func TestCheckIn_ConcurrentSamePair(t *testing.T) {
	f := newFixture(t)
	sess := f.addSession(t, activeSession())

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CheckIn(context.Background(), checkIn(sess.ID, ptr(0.0), ptr(0.0)))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	admitted := 0
	for err := range results {
		if err == nil {
			admitted++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyMarked)
		}
	}
	assert.Equal(t, 1, admitted)

	n, err := f.records.Count(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

// TestCheckIn_DifferentRolls accepts distinct roll numbers independently.
func TestCheckIn_DifferentRolls(t *testing.T) {
	f := newFixture(t)
	sess := f.addSession(t, activeSession())

	req1 := checkIn(sess.ID, ptr(0.0), ptr(0.0))
	req2 := checkIn(sess.ID, ptr(0.0), ptr(0.0))
	req2.RollNumber = "43"
	req2.StudentName = "Bilal"

	_, err := f.svc.CheckIn(context.Background(), req1)
	require.NoError(t, err)
	_, err = f.svc.CheckIn(context.Background(), req2)
	require.NoError(t, err)

	n, err := f.records.Count(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

// TestList_RollOrder returns export ordering roll-ascending.
func TestList_RollOrder(t *testing.T) {
	f := newFixture(t)
	sess := f.addSession(t, activeSession())

	reqB := checkIn(sess.ID, ptr(0.0), ptr(0.0))
	reqB.RollNumber = "2"
	reqB.StudentName = "B"
	reqA := checkIn(sess.ID, ptr(0.0), ptr(0.0))
	reqA.RollNumber = "1"
	reqA.StudentName = "A"

	_, err := f.svc.CheckIn(context.Background(), reqB)
	require.NoError(t, err)
	_, err = f.svc.CheckIn(context.Background(), reqA)
	require.NoError(t, err)

	records, err := f.svc.List(context.Background(), sess.ID, OrderByRollAsc)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0].RollNumber)
	assert.Equal(t, "2", records[1].RollNumber)
}
