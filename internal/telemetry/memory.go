package telemetry

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps telemetry in process memory.
// Records are lost on restart.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[Address][]Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[Address][]Record)}
}

// Insert appends a record after validating it.
func (s *MemoryStore) Insert(ctx context.Context, addr Address, ts time.Time, payload Payload) error {
	if err := checkInsert(addr, ts, payload); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return unavailable("inserting", addr, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[addr] = append(s.records[addr], Record{Address: addr, Timestamp: ts.UTC(), Payload: payload})
	return nil
}

// FetchAll returns a copy of every record for addr by ascending timestamp.
func (s *MemoryStore) FetchAll(ctx context.Context, addr Address) ([]Record, error) {
	return s.FetchRange(ctx, addr, Range{})
}

// FetchRange returns the records for addr inside q.
func (s *MemoryStore) FetchRange(ctx context.Context, addr Address, q Range) ([]Record, error) {
	if err := checkFetch(addr); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, unavailable("fetching", addr, err)
	}

	out := make([]Record, 0)
	for _, r := range s.sorted(addr) {
		if !q.contains(r.Timestamp) {
			continue
		}
		out = append(out, r)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// FetchLatest returns the newest record for addr, or nil.
func (s *MemoryStore) FetchLatest(ctx context.Context, addr Address) (*Record, error) {
	if err := checkFetch(addr); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, unavailable("fetching", addr, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *Record
	for i, r := range s.records[addr] {
		// >= so later inserts win timestamp ties.
		if latest == nil || !r.Timestamp.Before(latest.Timestamp) {
			latest = &s.records[addr][i]
		}
	}
	if latest == nil {
		return nil, nil
	}
	rec := *latest
	return &rec, nil
}

// sorted returns a copy of addr's records ordered by timestamp.
// The stable sort keeps insertion order for equal timestamps.
func (s *MemoryStore) sorted(addr Address) []Record {
	s.mu.RLock()
	recs := slices.Clone(s.records[addr])
	s.mu.RUnlock()

	slices.SortStableFunc(recs, func(a, b Record) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return recs
}
