package influxdb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/armadillo-fleet/armadillo-core/internal/telemetry"
)

// Measurement is the InfluxDB measurement telemetry points are written to.
const Measurement = "telemetry"

// WritePointWithTime queues a point with an explicit timestamp.
// Dropped silently when the client is closed.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}

// Observe implements telemetry.Observer. The point carries the record
// timestamp, so replayed or late readings land where they belong.
func (c *Client) Observe(_ context.Context, rec telemetry.Record) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	fields, err := payloadFields(rec.Payload)
	if err != nil {
		return err
	}

	c.WritePointWithTime(Measurement, map[string]string{
		"kind":      rec.Address.Kind().String(),
		"device_id": strconv.FormatInt(rec.Address.RawID(), 10),
	}, fields, rec.Timestamp)
	return nil
}

// payloadFields flattens a payload into InfluxDB fields. Optional values
// are omitted when unset.
func payloadFields(p telemetry.Payload) (map[string]any, error) {
	switch r := p.(type) {
	case telemetry.BikeReading:
		fields := map[string]any{
			"power_w":     r.PowerW,
			"cadence_rpm": r.CadenceRPM,
		}
		if r.SpeedKmh != nil {
			fields["speed_kmh"] = *r.SpeedKmh
		}
		return fields, nil
	case telemetry.OvenReading:
		fields := map[string]any{
			"temperature_c": r.TemperatureC,
			"door_open":     r.DoorOpen,
		}
		if r.TargetC != nil {
			fields["target_c"] = *r.TargetC
		}
		return fields, nil
	case telemetry.MicrogridReading:
		return map[string]any{
			"solar_w":     r.SolarW,
			"load_w":      r.LoadW,
			"battery_pct": r.BatteryPct,
		}, nil
	default:
		return nil, fmt.Errorf("influxdb: unsupported payload %T", p)
	}
}
