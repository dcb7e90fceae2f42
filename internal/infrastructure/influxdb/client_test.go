package influxdb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/armadillo-fleet/armadillo-core/internal/infrastructure/config"
	"github.com/armadillo-fleet/armadillo-core/internal/telemetry"
)

type fakeWriteAPI struct {
	api.WriteAPI

	mu      sync.Mutex
	points  []*write.Point
	flushes int
	errs    chan error
}

func newFakeWriteAPI() *fakeWriteAPI {
	return &fakeWriteAPI{errs: make(chan error, 1)}
}

func (f *fakeWriteAPI) WritePoint(p *write.Point) {
	f.mu.Lock()
	f.points = append(f.points, p)
	f.mu.Unlock()
}

func (f *fakeWriteAPI) Flush() {
	f.mu.Lock()
	f.flushes++
	f.mu.Unlock()
}

func (f *fakeWriteAPI) Errors() <-chan error { return f.errs }

type fakePinger struct {
	healthy bool
	err     error
	closed  bool
}

func (p *fakePinger) Ping(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return p.healthy, p.err
}

func (p *fakePinger) Close() { p.closed = true }

func tags(p *write.Point) map[string]string {
	out := make(map[string]string)
	for _, t := range p.TagList() {
		out[t.Key] = t.Value
	}
	return out
}

func fields(p *write.Point) map[string]any {
	out := make(map[string]any)
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:59999",
		Bucket:  "telemetry",
	})
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestObserve(t *testing.T) {
	speed := 24.5
	target := 220.0
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		rec        telemetry.Record
		wantTags   map[string]string
		wantFields map[string]any
	}{
		{
			name: "bike with speed",
			rec: telemetry.Record{
				Address:   telemetry.Bike(5),
				Timestamp: ts,
				Payload:   telemetry.BikeReading{PowerW: 250, CadenceRPM: 80, SpeedKmh: &speed},
			},
			wantTags:   map[string]string{"kind": "bike", "device_id": "5"},
			wantFields: map[string]any{"power_w": 250.0, "cadence_rpm": 80.0, "speed_kmh": 24.5},
		},
		{
			name: "oven without target",
			rec: telemetry.Record{
				Address:   telemetry.Oven(7),
				Timestamp: ts,
				Payload:   telemetry.OvenReading{TemperatureC: 180, DoorOpen: true},
			},
			wantTags:   map[string]string{"kind": "oven", "device_id": "7"},
			wantFields: map[string]any{"temperature_c": 180.0, "door_open": true},
		},
		{
			name: "oven with target",
			rec: telemetry.Record{
				Address:   telemetry.Oven(7),
				Timestamp: ts,
				Payload:   telemetry.OvenReading{TemperatureC: 180, TargetC: &target},
			},
			wantTags:   map[string]string{"kind": "oven", "device_id": "7"},
			wantFields: map[string]any{"temperature_c": 180.0, "door_open": false, "target_c": 220.0},
		},
		{
			name: "microgrid",
			rec: telemetry.Record{
				Address:   telemetry.Microgrid(3),
				Timestamp: ts,
				Payload:   telemetry.MicrogridReading{SolarW: 900, LoadW: 400, BatteryPct: 76},
			},
			wantTags:   map[string]string{"kind": "microgrid", "device_id": "3"},
			wantFields: map[string]any{"solar_w": 900.0, "load_w": 400.0, "battery_pct": 76.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newFakeWriteAPI()
			c := newClient(&fakePinger{healthy: true}, w)

			if err := c.Observe(context.Background(), tt.rec); err != nil {
				t.Fatalf("Observe() error = %v", err)
			}
			if len(w.points) != 1 {
				t.Fatalf("wrote %d points, want 1", len(w.points))
			}

			p := w.points[0]
			if p.Name() != Measurement {
				t.Errorf("measurement = %q, want %q", p.Name(), Measurement)
			}
			if !p.Time().Equal(ts) {
				t.Errorf("time = %v, want %v", p.Time(), ts)
			}

			gotTags := tags(p)
			for k, v := range tt.wantTags {
				if gotTags[k] != v {
					t.Errorf("tag %s = %q, want %q", k, gotTags[k], v)
				}
			}

			gotFields := fields(p)
			if len(gotFields) != len(tt.wantFields) {
				t.Errorf("fields = %v, want %v", gotFields, tt.wantFields)
			}
			for k, v := range tt.wantFields {
				if gotFields[k] != v {
					t.Errorf("field %s = %v, want %v", k, gotFields[k], v)
				}
			}
		})
	}
}

func TestObserve_Closed(t *testing.T) {
	w := newFakeWriteAPI()
	c := newClient(&fakePinger{healthy: true}, w)
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	err := c.Observe(context.Background(), telemetry.Record{
		Address: telemetry.Bike(1),
		Payload: telemetry.BikeReading{},
	})
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Observe() after Close error = %v, want ErrNotConnected", err)
	}
	if len(w.points) != 0 {
		t.Errorf("wrote %d points after Close, want 0", len(w.points))
	}
}

func TestClose_Flushes(t *testing.T) {
	w := newFakeWriteAPI()
	p := &fakePinger{healthy: true}
	c := newClient(p, w)

	c.Close()

	if w.flushes != 1 {
		t.Errorf("flushes = %d, want 1", w.flushes)
	}
	if !p.closed {
		t.Error("underlying client not closed")
	}

	// Flush after Close is a no-op.
	c.Flush()
	if w.flushes != 1 {
		t.Errorf("flushes after Close = %d, want 1", w.flushes)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name    string
		pinger  *fakePinger
		closed  bool
		wantErr bool
	}{
		{"healthy", &fakePinger{healthy: true}, false, false},
		{"unhealthy", &fakePinger{healthy: false}, false, true},
		{"ping error", &fakePinger{err: errors.New("refused")}, false, true},
		{"closed", &fakePinger{healthy: true}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(tt.pinger, newFakeWriteAPI())
			if tt.closed {
				c.Close()
			}

			err := c.HealthCheck(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSetOnError(t *testing.T) {
	w := newFakeWriteAPI()
	c := newClient(&fakePinger{healthy: true}, w)

	got := make(chan error, 1)
	c.SetOnError(func(err error) { got <- err })

	want := errors.New("bucket not found")
	w.errs <- want

	select {
	case err := <-got:
		if !errors.Is(err, want) {
			t.Errorf("callback error = %v, want %v", err, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("write error not delivered to callback")
	}
}

func TestObserverWiring(t *testing.T) {
	w := newFakeWriteAPI()
	c := newClient(&fakePinger{healthy: true}, w)

	store := telemetry.NewObserved(telemetry.NewMemoryStore(), c)
	ts := time.Unix(20, 0).UTC()

	if err := store.Insert(context.Background(), telemetry.Bike(100), ts, telemetry.BikeReading{PowerW: 10}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if len(w.points) != 1 {
		t.Fatalf("mirrored %d points, want 1", len(w.points))
	}
}
