package telemetry

import (
	"errors"
	"testing"
	"time"
)

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		body    string
		want    Payload
		wantErr error
	}{
		{
			name: "bike",
			kind: KindBike,
			body: `{"power_w": 180, "cadence_rpm": 75}`,
			want: BikeReading{PowerW: 180, CadenceRPM: 75},
		},
		{
			name: "microgrid",
			kind: KindMicrogrid,
			body: `{"solar_w": 900, "load_w": 400, "battery_pct": 81.5}`,
			want: MicrogridReading{SolarW: 900, LoadW: 400, BatteryPct: 81.5},
		},
		{
			name: "oven without optional fields",
			kind: KindOven,
			body: `{"temperature_c": 220}`,
			want: OvenReading{TemperatureC: 220},
		},
		{
			name:    "bike missing cadence",
			kind:    KindBike,
			body:    `{"power_w": 180}`,
			wantErr: ErrInvalidPayload,
		},
		{
			name:    "bike negative power",
			kind:    KindBike,
			body:    `{"power_w": -1, "cadence_rpm": 75}`,
			wantErr: ErrInvalidPayload,
		},
		{
			name:    "oven too hot",
			kind:    KindOven,
			body:    `{"temperature_c": 1500}`,
			wantErr: ErrInvalidPayload,
		},
		{
			name:    "microgrid battery over 100",
			kind:    KindMicrogrid,
			body:    `{"solar_w": 1, "load_w": 1, "battery_pct": 101}`,
			wantErr: ErrInvalidPayload,
		},
		{
			name:    "unknown field",
			kind:    KindOven,
			body:    `{"temperature_c": 200, "humidity": 3}`,
			wantErr: ErrInvalidPayload,
		},
		{
			name:    "bike fields sent to oven",
			kind:    KindOven,
			body:    `{"power_w": 180, "cadence_rpm": 75}`,
			wantErr: ErrInvalidPayload,
		},
		{
			name:    "not json",
			kind:    KindBike,
			body:    `power=180`,
			wantErr: ErrInvalidPayload,
		},
		{
			name:    "trailing data",
			kind:    KindMicrogrid,
			body:    `{"solar_w": 1, "load_w": 1, "battery_pct": 1} {}`,
			wantErr: ErrInvalidPayload,
		},
		{
			name:    "invalid kind",
			kind:    Kind(0),
			body:    `{}`,
			wantErr: ErrInvalidAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePayload(tt.kind, []byte(tt.body))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("DecodePayload() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodePayload() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodePayload() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodePayload_OptionalFields(t *testing.T) {
	p, err := DecodePayload(KindOven, []byte(`{"temperature_c": 180, "target_c": 220, "door_open": true}`))
	if err != nil {
		t.Fatalf("DecodePayload() error = %v", err)
	}
	oven := p.(OvenReading)
	if oven.TargetC == nil || *oven.TargetC != 220 {
		t.Errorf("TargetC = %v, want 220", oven.TargetC)
	}
	if !oven.DoorOpen {
		t.Error("DoorOpen = false, want true")
	}
}

func TestCheckInsert(t *testing.T) {
	tests := []struct {
		name    string
		addr    Address
		at      time.Time
		payload Payload
		wantErr error
	}{
		{"matching kind", Bike(1), ts(1), BikeReading{PowerW: 1, CadenceRPM: 1}, nil},
		{"kind mismatch", Oven(1), ts(1), BikeReading{PowerW: 1, CadenceRPM: 1}, ErrInvalidPayload},
		{"nil payload", Bike(1), ts(1), nil, ErrInvalidPayload},
		{"out of range", Microgrid(1), ts(1), MicrogridReading{BatteryPct: -5}, ErrInvalidPayload},
		{"zero address", Address{}, ts(1), BikeReading{}, ErrInvalidAddress},
		{"zero time", Bike(1), time.Time{}, BikeReading{PowerW: 1, CadenceRPM: 1}, ErrInvalidPayload},
		{"after max timestamp", Bike(1), MaxTimestamp.Add(time.Nanosecond), BikeReading{PowerW: 1, CadenceRPM: 1}, ErrInvalidPayload},
		{"at max timestamp", Bike(1), MaxTimestamp, BikeReading{PowerW: 1, CadenceRPM: 1}, nil},
		{"at min timestamp", Bike(1), MinTimestamp, BikeReading{PowerW: 1, CadenceRPM: 1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkInsert(tt.addr, tt.at, tt.payload)
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Errorf("checkInsert() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
