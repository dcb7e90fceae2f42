// Package ingest stores telemetry that devices publish over MQTT.
//
// Each message on armadillo/telemetry/{kind}/{id} carries
//
//	{"timestamp": "2026-03-01T12:00:00Z", "payload": {...}}
//
// The topic selects the device address, the payload is decoded for that
// kind, and the result is passed to telemetry.Store.Insert. Messages the
// sender got wrong are logged at warn and dropped. Store failures are
// logged at error; MQTT delivery is not retried.
package ingest
