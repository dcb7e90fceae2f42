package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Payload limits.
const (
	MinOvenTempC   = -50.0
	MaxOvenTempC   = 1000.0
	MaxBatteryPct  = 100.0
	maxPayloadSize = 64 << 10
)

// Payload is a kind-specific measurement. The set of implementations is
// closed: BikeReading, OvenReading and MicrogridReading.
type Payload interface {
	// Kind returns the device kind this payload belongs to.
	Kind() Kind

	// Validate checks value ranges. It returns an error wrapping ErrInvalidPayload.
	Validate() error

	isPayload()
}

// BikeReading is a single sample from a pedal generator bike.
type BikeReading struct {
	PowerW     float64  `json:"power_w"`
	CadenceRPM float64  `json:"cadence_rpm"`
	SpeedKmh   *float64 `json:"speed_kmh,omitempty"`
}

// OvenReading is a single sample from an oven controller.
type OvenReading struct {
	TemperatureC float64  `json:"temperature_c"`
	TargetC      *float64 `json:"target_c,omitempty"`
	DoorOpen     bool     `json:"door_open"`
}

// MicrogridReading is a single sample from a solar microgrid controller.
type MicrogridReading struct {
	SolarW     float64 `json:"solar_w"`
	LoadW      float64 `json:"load_w"`
	BatteryPct float64 `json:"battery_pct"`
}

func (BikeReading) Kind() Kind      { return KindBike }
func (OvenReading) Kind() Kind      { return KindOven }
func (MicrogridReading) Kind() Kind { return KindMicrogrid }

func (BikeReading) isPayload()      {}
func (OvenReading) isPayload()      {}
func (MicrogridReading) isPayload() {}

// Validate checks that power, cadence and speed are non-negative.
func (r BikeReading) Validate() error {
	var errs []string
	errs = nonNegative(errs, "power_w", r.PowerW)
	errs = nonNegative(errs, "cadence_rpm", r.CadenceRPM)
	if r.SpeedKmh != nil {
		errs = nonNegative(errs, "speed_kmh", *r.SpeedKmh)
	}
	return invalid(errs)
}

// Validate checks the temperature bounds.
func (r OvenReading) Validate() error {
	var errs []string
	errs = within(errs, "temperature_c", r.TemperatureC, MinOvenTempC, MaxOvenTempC)
	if r.TargetC != nil {
		errs = within(errs, "target_c", *r.TargetC, MinOvenTempC, MaxOvenTempC)
	}
	return invalid(errs)
}

// Validate checks that power figures are non-negative and the battery is 0..100%.
func (r MicrogridReading) Validate() error {
	var errs []string
	errs = nonNegative(errs, "solar_w", r.SolarW)
	errs = nonNegative(errs, "load_w", r.LoadW)
	errs = within(errs, "battery_pct", r.BatteryPct, 0, MaxBatteryPct)
	return invalid(errs)
}

func nonNegative(errs []string, field string, v float64) []string {
	if v < 0 || math.IsNaN(v) {
		return append(errs, fmt.Sprintf("%s must be >= 0", field))
	}
	return errs
}

func within(errs []string, field string, v, lo, hi float64) []string {
	if v < lo || v > hi || math.IsNaN(v) {
		return append(errs, fmt.Sprintf("%s must be between %g and %g", field, lo, hi))
	}
	return errs
}

func invalid(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidPayload, strings.Join(errs, "; "))
}

// Wire shapes use pointers so missing required fields can be told apart from zero.
type bikeWire struct {
	PowerW     *float64 `json:"power_w"`
	CadenceRPM *float64 `json:"cadence_rpm"`
	SpeedKmh   *float64 `json:"speed_kmh"`
}

type ovenWire struct {
	TemperatureC *float64 `json:"temperature_c"`
	TargetC      *float64 `json:"target_c"`
	DoorOpen     bool     `json:"door_open"`
}

type microgridWire struct {
	SolarW     *float64 `json:"solar_w"`
	LoadW      *float64 `json:"load_w"`
	BatteryPct *float64 `json:"battery_pct"`
}

// DecodePayload parses a JSON object into the Payload type for kind and validates it.
// Unknown fields and missing required fields are rejected with ErrInvalidPayload.
func DecodePayload(kind Kind, data []byte) (Payload, error) {
	if len(data) > maxPayloadSize {
		return nil, fmt.Errorf("%w: payload exceeds %d bytes", ErrInvalidPayload, maxPayloadSize)
	}

	var p Payload
	switch kind {
	case KindBike:
		var w bikeWire
		if err := decodeStrict(data, &w); err != nil {
			return nil, err
		}
		if err := required(field{"power_w", w.PowerW}, field{"cadence_rpm", w.CadenceRPM}); err != nil {
			return nil, err
		}
		p = BikeReading{PowerW: *w.PowerW, CadenceRPM: *w.CadenceRPM, SpeedKmh: w.SpeedKmh}
	case KindOven:
		var w ovenWire
		if err := decodeStrict(data, &w); err != nil {
			return nil, err
		}
		if err := required(field{"temperature_c", w.TemperatureC}); err != nil {
			return nil, err
		}
		p = OvenReading{TemperatureC: *w.TemperatureC, TargetC: w.TargetC, DoorOpen: w.DoorOpen}
	case KindMicrogrid:
		var w microgridWire
		if err := decodeStrict(data, &w); err != nil {
			return nil, err
		}
		if err := required(field{"solar_w", w.SolarW}, field{"load_w", w.LoadW}, field{"battery_pct", w.BatteryPct}); err != nil {
			return nil, err
		}
		p = MicrogridReading{SolarW: *w.SolarW, LoadW: *w.LoadW, BatteryPct: *w.BatteryPct}
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, kind)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after payload object", ErrInvalidPayload)
	}
	return nil
}

type field struct {
	name  string
	value *float64
}

func required(fields ...field) error {
	var missing []string
	for _, f := range fields {
		if f.value == nil {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required field(s) %s", ErrInvalidPayload, strings.Join(missing, ", "))
	}
	return nil
}

// checkInsert performs the kind, timestamp and range checks shared by every Store.
func checkInsert(addr Address, ts time.Time, p Payload) error {
	if !addr.Kind().Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidAddress, addr)
	}
	if err := CheckTimestamp(ts); err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: nil payload", ErrInvalidPayload)
	}
	if p.Kind() != addr.Kind() {
		return fmt.Errorf("%w: %s payload sent to %s", ErrInvalidPayload, p.Kind(), addr)
	}
	if err := p.Validate(); err != nil {
		if errors.Is(err, ErrInvalidPayload) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return nil
}
