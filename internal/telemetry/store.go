package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Timestamps are stored as Unix nanoseconds in an int64, which bounds the
// instants a Store accepts (roughly 1677-09-21 to 2262-04-11).
var (
	MinTimestamp = time.Unix(0, math.MinInt64).UTC()
	MaxTimestamp = time.Unix(0, math.MaxInt64).UTC()
)

// CheckTimestamp fails with ErrInvalidPayload when ts cannot be stored.
func CheckTimestamp(ts time.Time) error {
	if ts.Before(MinTimestamp) || ts.After(MaxTimestamp) {
		return fmt.Errorf("%w: timestamp %s outside %s..%s", ErrInvalidPayload,
			ts.UTC().Format(time.RFC3339), MinTimestamp.Format(time.RFC3339), MaxTimestamp.Format(time.RFC3339))
	}
	return nil
}

// Record is one stored reading. Records are immutable once written.
type Record struct {
	Address   Address
	Timestamp time.Time
	Payload   Payload
}

type recordJSON struct {
	Address   Address   `json:"address"`
	Timestamp time.Time `json:"timestamp"`
	Payload   Payload   `json:"payload"`
}

// MarshalJSON encodes the record as {"address":{...},"timestamp":"...","payload":{...}}.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Address:   r.Address,
		Timestamp: r.Timestamp.UTC(),
		Payload:   r.Payload,
	})
}

// UnmarshalJSON decodes a record, using the address kind to pick the payload type.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		Address   Address         `json:"address"`
		Timestamp time.Time       `json:"timestamp"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p, err := DecodePayload(raw.Address.Kind(), raw.Payload)
	if err != nil {
		return err
	}
	*r = Record{Address: raw.Address, Timestamp: raw.Timestamp, Payload: p}
	return nil
}

// Range bounds a history query. Zero From or To leaves that side open.
// Both bounds are inclusive. Limit <= 0 means no limit.
type Range struct {
	From  time.Time
	To    time.Time
	Limit int
}

func (q Range) contains(ts time.Time) bool {
	if !q.From.IsZero() && ts.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && ts.After(q.To) {
		return false
	}
	return true
}

// Store is append-only telemetry storage keyed by Address.
//
// An address with no records is a valid state: FetchAll returns an empty
// slice and FetchLatest returns nil, neither is an error.
type Store interface {
	// Insert appends a record. It fails with ErrInvalidPayload before touching
	// storage when the payload kind or values are wrong, and with an error
	// wrapping ErrUnavailable when storage fails.
	Insert(ctx context.Context, addr Address, ts time.Time, payload Payload) error

	// FetchAll returns every record for addr by ascending timestamp.
	FetchAll(ctx context.Context, addr Address) ([]Record, error)

	// FetchLatest returns the record with the greatest timestamp, or nil.
	FetchLatest(ctx context.Context, addr Address) (*Record, error)

	// FetchRange returns records for addr inside q, by ascending timestamp.
	FetchRange(ctx context.Context, addr Address, q Range) ([]Record, error)
}

func checkFetch(addr Address) error {
	if !addr.Kind().Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}
	return nil
}

func unavailable(op string, addr Address, err error) error {
	return fmt.Errorf("%s %s: %w: %w", op, addr, ErrUnavailable, err)
}
