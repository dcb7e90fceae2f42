package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/armadillo-fleet/armadillo-core/internal/infrastructure/database"
	_ "github.com/armadillo-fleet/armadillo-core/migrations"
)

// setupTestDB creates an in-memory SQLite database with the full schema applied.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db := &database.DB{DB: sqlDB}
	if err := db.Migrate(context.Background()); err != nil {
		sqlDB.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return sqlDB
}

func ts(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func bike(power float64) BikeReading {
	return BikeReading{PowerW: power, CadenceRPM: 60}
}

// storeFactories lets every contract test run against each implementation.
var storeFactories = map[string]func(t *testing.T) Store{
	"sqlite": func(t *testing.T) Store { return NewSQLiteStore(setupTestDB(t)) },
	"memory": func(t *testing.T) Store { return NewMemoryStore() },
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

func TestStore_FetchAllEmpty(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		recs, err := s.FetchAll(context.Background(), Bike(1))
		if err != nil {
			t.Fatalf("FetchAll() error = %v", err)
		}
		if recs == nil || len(recs) != 0 {
			t.Errorf("FetchAll() = %#v, want empty non-nil slice", recs)
		}

		latest, err := s.FetchLatest(context.Background(), Bike(1))
		if err != nil || latest != nil {
			t.Errorf("FetchLatest() = %v, %v; want nil, nil", latest, err)
		}
	})
}

func TestStore_BikeHistory(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		addr := Bike(100)

		if err := s.Insert(ctx, addr, ts(10), bike(100)); err != nil {
			t.Fatalf("Insert(10) error = %v", err)
		}
		if err := s.Insert(ctx, addr, ts(20), bike(200)); err != nil {
			t.Fatalf("Insert(20) error = %v", err)
		}

		latest, err := s.FetchLatest(ctx, addr)
		if err != nil {
			t.Fatalf("FetchLatest() error = %v", err)
		}
		if latest == nil || !latest.Timestamp.Equal(ts(20)) {
			t.Fatalf("FetchLatest() = %v, want timestamp 20", latest)
		}
		if latest.Address != addr {
			t.Errorf("FetchLatest().Address = %v, want %v", latest.Address, addr)
		}
		if latest.Payload.(BikeReading).PowerW != 200 {
			t.Errorf("FetchLatest().Payload = %#v", latest.Payload)
		}

		all, err := s.FetchAll(ctx, addr)
		if err != nil {
			t.Fatalf("FetchAll() error = %v", err)
		}
		if len(all) != 2 || !all[0].Timestamp.Equal(ts(10)) || !all[1].Timestamp.Equal(ts(20)) {
			t.Errorf("FetchAll() = %v, want timestamps 10, 20", all)
		}
	})
}

func TestStore_LatestIgnoresInsertionOrder(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		addr := Microgrid(4)
		for _, sec := range []int64{20, 30, 10} {
			p := MicrogridReading{SolarW: float64(sec), LoadW: 1, BatteryPct: 50}
			if err := s.Insert(ctx, addr, ts(sec), p); err != nil {
				t.Fatalf("Insert(%d) error = %v", sec, err)
			}
		}

		latest, err := s.FetchLatest(ctx, addr)
		if err != nil {
			t.Fatalf("FetchLatest() error = %v", err)
		}
		if !latest.Timestamp.Equal(ts(30)) {
			t.Errorf("FetchLatest().Timestamp = %v, want %v", latest.Timestamp, ts(30))
		}

		all, _ := s.FetchAll(ctx, addr)
		for i, want := range []int64{10, 20, 30} {
			if !all[i].Timestamp.Equal(ts(want)) {
				t.Errorf("FetchAll()[%d].Timestamp = %v, want %v", i, all[i].Timestamp, ts(want))
			}
		}
	})
}

func TestStore_TimestampTieLastWriteWins(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		addr := Bike(8)
		_ = s.Insert(ctx, addr, ts(50), bike(1))
		_ = s.Insert(ctx, addr, ts(50), bike(2))

		latest, err := s.FetchLatest(ctx, addr)
		if err != nil {
			t.Fatalf("FetchLatest() error = %v", err)
		}
		if got := latest.Payload.(BikeReading).PowerW; got != 2 {
			t.Errorf("FetchLatest() power = %v, want 2 (last insert)", got)
		}

		all, _ := s.FetchAll(ctx, addr)
		if all[0].Payload.(BikeReading).PowerW != 1 || all[1].Payload.(BikeReading).PowerW != 2 {
			t.Errorf("FetchAll() tie order = %v, want insertion order", all)
		}
	})
}

func TestStore_TimestampBounds(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		addr := Bike(1)

		// t1 < t2 < t3 at the edges of the storable range, inserted out of order.
		t1 := MinTimestamp
		t2 := time.Date(2200, 1, 1, 0, 0, 0, 0, time.UTC)
		t3 := MaxTimestamp
		for i, at := range []time.Time{t2, t3, t1} {
			if err := s.Insert(ctx, addr, at, bike(float64(i))); err != nil {
				t.Fatalf("Insert(%v) error = %v", at, err)
			}
		}

		latest, err := s.FetchLatest(ctx, addr)
		if err != nil {
			t.Fatalf("FetchLatest() error = %v", err)
		}
		if !latest.Timestamp.Equal(t3) {
			t.Errorf("FetchLatest().Timestamp = %v, want %v", latest.Timestamp, t3)
		}

		all, err := s.FetchAll(ctx, addr)
		if err != nil {
			t.Fatalf("FetchAll() error = %v", err)
		}
		for i, want := range []time.Time{t1, t2, t3} {
			if !all[i].Timestamp.Equal(want) {
				t.Errorf("FetchAll()[%d].Timestamp = %v, want %v", i, all[i].Timestamp, want)
			}
		}

		rejected := []time.Time{
			{},
			time.Date(1600, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2400, 1, 1, 0, 0, 0, 0, time.UTC),
			MaxTimestamp.Add(time.Nanosecond),
		}
		for _, at := range rejected {
			if err := s.Insert(ctx, addr, at, bike(99)); !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("Insert(%v) error = %v, want ErrInvalidPayload", at, err)
			}
		}

		if all, _ := s.FetchAll(ctx, addr); len(all) != 3 {
			t.Errorf("FetchAll() after rejected inserts = %d records, want 3", len(all))
		}
	})
}

func TestStore_TimestampsReadBackInUTC(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		addr := Oven(2)
		berlin := time.FixedZone("CET", 60*60)
		at := time.Date(2026, 3, 1, 13, 0, 0, 500, berlin)

		if err := s.Insert(ctx, addr, at, OvenReading{TemperatureC: 200}); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		latest, err := s.FetchLatest(ctx, addr)
		if err != nil {
			t.Fatalf("FetchLatest() error = %v", err)
		}
		if !latest.Timestamp.Equal(at) {
			t.Errorf("FetchLatest().Timestamp = %v, want %v", latest.Timestamp, at.UTC())
		}
		if latest.Timestamp.Location() != time.UTC {
			t.Errorf("FetchLatest() location = %v, want UTC", latest.Timestamp.Location())
		}

		all, _ := s.FetchAll(ctx, addr)
		if len(all) != 1 || all[0].Timestamp.Location() != time.UTC {
			t.Errorf("FetchAll() = %v, want one UTC record", all)
		}
	})
}

func TestStore_KindsDoNotMix(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.Insert(ctx, Bike(5), ts(1), bike(10)); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		for _, addr := range []Address{Oven(5), Microgrid(5), Bike(6)} {
			recs, err := s.FetchAll(ctx, addr)
			if err != nil {
				t.Fatalf("FetchAll(%v) error = %v", addr, err)
			}
			if len(recs) != 0 {
				t.Errorf("FetchAll(%v) = %d records, want 0", addr, len(recs))
			}
		}
	})
}

func TestStore_InsertRejectsInvalidPayload(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		err := s.Insert(ctx, Oven(1), ts(1), bike(10))
		if !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("Insert(kind mismatch) error = %v, want ErrInvalidPayload", err)
		}

		err = s.Insert(ctx, Oven(1), ts(1), OvenReading{TemperatureC: 5000})
		if !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("Insert(out of range) error = %v, want ErrInvalidPayload", err)
		}

		recs, _ := s.FetchAll(ctx, Oven(1))
		if len(recs) != 0 {
			t.Errorf("rejected inserts stored %d records", len(recs))
		}
	})
}

func TestStore_OptionalFieldsRoundTrip(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		target := 230.0
		want := OvenReading{TemperatureC: 180, TargetC: &target, DoorOpen: true}
		if err := s.Insert(ctx, Oven(3), ts(1), want); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		latest, err := s.FetchLatest(ctx, Oven(3))
		if err != nil {
			t.Fatalf("FetchLatest() error = %v", err)
		}
		got := latest.Payload.(OvenReading)
		if got.TemperatureC != 180 || got.TargetC == nil || *got.TargetC != 230 || !got.DoorOpen {
			t.Errorf("FetchLatest().Payload = %+v, want %+v", got, want)
		}
	})
}

func TestStore_FetchRange(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		addr := Bike(2)
		for sec := int64(1); sec <= 5; sec++ {
			if err := s.Insert(ctx, addr, ts(sec*10), bike(float64(sec))); err != nil {
				t.Fatalf("Insert() error = %v", err)
			}
		}

		tests := []struct {
			name string
			q    Range
			want []int64
		}{
			{"unbounded", Range{}, []int64{10, 20, 30, 40, 50}},
			{"from inclusive", Range{From: ts(30)}, []int64{30, 40, 50}},
			{"to inclusive", Range{To: ts(20)}, []int64{10, 20}},
			{"window", Range{From: ts(15), To: ts(45)}, []int64{20, 30, 40}},
			{"limit", Range{From: ts(20), Limit: 2}, []int64{20, 30}},
			{"empty window", Range{From: ts(60)}, []int64{}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				recs, err := s.FetchRange(ctx, addr, tt.q)
				if err != nil {
					t.Fatalf("FetchRange() error = %v", err)
				}
				if len(recs) != len(tt.want) {
					t.Fatalf("FetchRange() returned %d records, want %d", len(recs), len(tt.want))
				}
				for i, sec := range tt.want {
					if !recs[i].Timestamp.Equal(ts(sec)) {
						t.Errorf("record %d timestamp = %v, want %v", i, recs[i].Timestamp, ts(sec))
					}
				}
			})
		}
	})
}

func TestStore_InvalidAddress(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		if _, err := s.FetchAll(context.Background(), Address{}); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("FetchAll(zero) error = %v, want ErrInvalidAddress", err)
		}
	})
}

func TestSQLiteStore_Unavailable(t *testing.T) {
	db := setupTestDB(t)
	store := NewSQLiteStore(db)
	db.Close()

	ctx := context.Background()
	if err := store.Insert(ctx, Bike(1), ts(1), bike(1)); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Insert() on closed db error = %v, want ErrUnavailable", err)
	}
	if _, err := store.FetchAll(ctx, Bike(1)); !errors.Is(err, ErrUnavailable) {
		t.Errorf("FetchAll() on closed db error = %v, want ErrUnavailable", err)
	}
	if _, err := store.FetchLatest(ctx, Bike(1)); !errors.Is(err, ErrUnavailable) {
		t.Errorf("FetchLatest() on closed db error = %v, want ErrUnavailable", err)
	}

	// Payload validation still happens first.
	if err := store.Insert(ctx, Bike(1), ts(1), OvenReading{}); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("Insert(kind mismatch) on closed db error = %v, want ErrInvalidPayload", err)
	}
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Insert(ctx, Bike(1), ts(1), bike(1)); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Insert() with cancelled context error = %v, want ErrUnavailable", err)
	}
}

func TestRecord_JSON(t *testing.T) {
	rec := Record{Address: Bike(100), Timestamp: ts(20), Payload: bike(250)}

	data, err := rec.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	want := `{"address":{"kind":"bike","id":100},"timestamp":"1970-01-01T00:00:20Z","payload":{"power_w":250,"cadence_rpm":60}}`
	if string(data) != want {
		t.Errorf("MarshalJSON() = %s\nwant %s", data, want)
	}

	var back Record
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON() error = %v", err)
	}
	if back.Address != rec.Address || !back.Timestamp.Equal(rec.Timestamp) || back.Payload != rec.Payload {
		t.Errorf("UnmarshalJSON() = %+v, want %+v", back, rec)
	}
}
