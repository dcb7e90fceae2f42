// Package api implements the HTTP REST API and WebSocket stream for Armadillo Core.
//
// This package provides:
//   - Fleet registration (organizations, trailers, devices)
//   - Organization trees and bike ownership lookups
//   - Telemetry history, latest reading and insert per device address
//   - A WebSocket hub that pushes newly stored records to subscribers
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// All routes live under /api/v1. Errors use the body
//
//	{"status": 404, "code": "not_found", "message": "organization not found"}
//
// A missing entity is always 404 and a store failure always 500 or 503, so
// clients can tell "nothing there" from "could not look".
package api
