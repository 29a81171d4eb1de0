package attendance

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository is a map-backed repo for dev mode and tests. It enforces
// the same (session_id, roll_number) uniqueness as the Postgres schema, so
// racing inserts resolve to exactly one record here too.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]Record // keyed by sessionID + "\x00" + rollNumber
}

// NewMemoryRepository creates an empty in-memory repo.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]Record)}
}

func key(sessionID, rollNumber string) string {
	return sessionID + "\x00" + rollNumber
}

// Find returns the record for (sessionID, rollNumber), or nil when absent.
func (r *MemoryRepository) Find(_ context.Context, sessionID, rollNumber string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key(sessionID, rollNumber)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Insert writes a record, returning ErrDuplicate if the pair already exists.
func (r *MemoryRepository) Insert(_ context.Context, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(rec.SessionID, rec.RollNumber)
	if _, exists := r.records[k]; exists {
		return Record{}, ErrDuplicate
	}
	r.records[k] = rec
	return rec, nil
}

// List returns a session's records in the requested order.
func (r *MemoryRepository) List(_ context.Context, sessionID string, order Order) ([]Record, error) {
	r.mu.Lock()
	var res []Record
	for _, rec := range r.records {
		if rec.SessionID == sessionID {
			res = append(res, rec)
		}
	}
	r.mu.Unlock()

	if order == OrderByRollAsc {
		sort.Slice(res, func(i, j int) bool { return res[i].RollNumber < res[j].RollNumber })
	} else {
		sort.Slice(res, func(i, j int) bool { return res[i].Timestamp.After(res[j].Timestamp) })
	}
	return res, nil
}

// Count returns the number of records for a session.
func (r *MemoryRepository) Count(_ context.Context, sessionID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.records {
		if rec.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}
