// Package influxdb mirrors stored telemetry into InfluxDB for dashboards.
//
// SQLite (or the memory store) remains the system of record. The mirror is a
// telemetry.Observer: every record that was stored is written as one point
//
//	telemetry,kind=bike,device_id=5 power_w=250,cadence_rpm=80 <record timestamp>
//
// Writes are non-blocking and batched (batch_size, flush_interval). Async write
// failures are delivered to the SetOnError callback; they never affect the
// insert that produced the record.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	store := telemetry.NewObserved(base, client)
package influxdb
