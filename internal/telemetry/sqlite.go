package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// kindTable maps one device kind onto its telemetry table.
type kindTable struct {
	name    string
	columns []string
	args    func(Payload) []any
	scan    func(rowScanner) (int64, Payload, error)
}

var kindTables = map[Kind]kindTable{
	KindBike: {
		name:    "bike_data",
		columns: []string{"power_w", "cadence_rpm", "speed_kmh"},
		args: func(p Payload) []any {
			r := p.(BikeReading)
			return []any{r.PowerW, r.CadenceRPM, nullFloat(r.SpeedKmh)}
		},
		scan: func(row rowScanner) (int64, Payload, error) {
			var ts int64
			var r BikeReading
			var speed sql.NullFloat64
			if err := row.Scan(&ts, &r.PowerW, &r.CadenceRPM, &speed); err != nil {
				return 0, nil, err
			}
			r.SpeedKmh = floatPtr(speed)
			return ts, r, nil
		},
	},
	KindOven: {
		name:    "oven_data",
		columns: []string{"temperature_c", "target_c", "door_open"},
		args: func(p Payload) []any {
			r := p.(OvenReading)
			return []any{r.TemperatureC, nullFloat(r.TargetC), r.DoorOpen}
		},
		scan: func(row rowScanner) (int64, Payload, error) {
			var ts int64
			var r OvenReading
			var target sql.NullFloat64
			if err := row.Scan(&ts, &r.TemperatureC, &target, &r.DoorOpen); err != nil {
				return 0, nil, err
			}
			r.TargetC = floatPtr(target)
			return ts, r, nil
		},
	},
	KindMicrogrid: {
		name:    "microgrid_data",
		columns: []string{"solar_w", "load_w", "battery_pct"},
		args: func(p Payload) []any {
			r := p.(MicrogridReading)
			return []any{r.SolarW, r.LoadW, r.BatteryPct}
		},
		scan: func(row rowScanner) (int64, Payload, error) {
			var ts int64
			var r MicrogridReading
			if err := row.Scan(&ts, &r.SolarW, &r.LoadW, &r.BatteryPct); err != nil {
				return 0, nil, err
			}
			return ts, r, nil
		},
	},
}

func (t kindTable) insertSQL() string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (device_id, ts, %s) VALUES (?, ?, %s)",
		t.name, strings.Join(t.columns, ", "), placeholders)
}

func (t kindTable) selectSQL() string {
	return fmt.Sprintf("SELECT ts, %s FROM %s WHERE device_id = ?",
		strings.Join(t.columns, ", "), t.name)
}

// SQLiteStore implements Store over the bike_data, oven_data and
// microgrid_data tables. Timestamps are stored as Unix nanoseconds and the
// autoincrement id orders records with equal timestamps.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed telemetry store.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Insert appends one record in a single statement.
func (s *SQLiteStore) Insert(ctx context.Context, addr Address, ts time.Time, payload Payload) error {
	if err := checkInsert(addr, ts, payload); err != nil {
		return err
	}
	t := kindTables[addr.Kind()]

	args := append([]any{addr.RawID(), ts.UnixNano()}, t.args(payload)...)
	if _, err := s.db.ExecContext(ctx, t.insertSQL(), args...); err != nil {
		return unavailable("inserting", addr, err)
	}
	return nil
}

// FetchAll returns every record for addr by ascending timestamp.
func (s *SQLiteStore) FetchAll(ctx context.Context, addr Address) ([]Record, error) {
	return s.FetchRange(ctx, addr, Range{})
}

// FetchRange returns the records for addr inside q by ascending timestamp.
func (s *SQLiteStore) FetchRange(ctx context.Context, addr Address, q Range) ([]Record, error) {
	if err := checkFetch(addr); err != nil {
		return nil, err
	}
	t := kindTables[addr.Kind()]

	query := t.selectSQL()
	args := []any{addr.RawID()}
	if !q.From.IsZero() {
		query += " AND ts >= ?"
		args = append(args, q.From.UnixNano())
	}
	if !q.To.IsZero() {
		query += " AND ts <= ?"
		args = append(args, q.To.UnixNano())
	}
	query += " ORDER BY ts, id"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("fetching", addr, err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		ts, p, err := t.scan(rows)
		if err != nil {
			return nil, unavailable("scanning", addr, err)
		}
		records = append(records, Record{Address: addr, Timestamp: time.Unix(0, ts).UTC(), Payload: p})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating", addr, err)
	}
	return records, nil
}

// FetchLatest returns the record with the greatest timestamp for addr.
// Equal timestamps are won by the most recent insert.
func (s *SQLiteStore) FetchLatest(ctx context.Context, addr Address) (*Record, error) {
	if err := checkFetch(addr); err != nil {
		return nil, err
	}
	t := kindTables[addr.Kind()]

	row := s.db.QueryRowContext(ctx, t.selectSQL()+" ORDER BY ts DESC, id DESC LIMIT 1", addr.RawID())
	ts, p, err := t.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("fetching latest", addr, err)
	}
	return &Record{Address: addr, Timestamp: time.Unix(0, ts).UTC(), Payload: p}, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
