// Package telemetry stores time-stamped device readings keyed by Address.
//
// An Address is a closed (kind, id) pair. Bike(3) and Oven(3) are distinct
// identities and their readings never mix. Each kind has its own Payload type
// with its own validation rules.
//
// Storage is append-only. Store implementations:
//   - SQLiteStore: one table per kind (bike_data, oven_data, microgrid_data)
//   - MemoryStore: process-local, for tests and telemetry.storage=memory
//
// Observed wraps any Store and notifies Observers (InfluxDB mirror, WebSocket
// hub) after each successful insert.
//
// Ordering:
//   - FetchAll returns records by ascending timestamp, ties in insertion order
//   - FetchLatest returns the maximum timestamp, ties won by the last insert
package telemetry
