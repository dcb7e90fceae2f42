package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/armadillo-fleet/armadillo-core/internal/ingest"
	"github.com/armadillo-fleet/armadillo-core/internal/telemetry"
)

// defaultHistoryLimit caps range queries when config leaves it unset.
const defaultHistoryLimit = 500

// pathAddress builds the device address from {kind} and {id}.
func pathAddress(w http.ResponseWriter, r *http.Request) (telemetry.Address, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "id must be an integer")
		return telemetry.Address{}, false
	}

	addr, err := telemetry.ParseAddress(chi.URLParam(r, "kind"), id)
	if err != nil {
		writeBadRequest(w, err.Error())
		return telemetry.Address{}, false
	}
	return addr, true
}

// rangeQuery reads from, to and limit. ok is false after a 400 was written;
// ranged is false when none of the parameters were given.
func (s *Server) rangeQuery(w http.ResponseWriter, r *http.Request) (q telemetry.Range, ranged, ok bool) {
	query := r.URL.Query()

	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &q.From}, {"to", &q.To}} {
		raw := query.Get(p.name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeBadRequest(w, p.name+" must be an RFC 3339 timestamp")
			return q, false, false
		}
		if err := telemetry.CheckTimestamp(t); err != nil {
			writeBadRequest(w, p.name+" is outside the storable time range")
			return q, false, false
		}
		*p.dst = t
		ranged = true
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > s.limits.MaxLimit {
			writeBadRequest(w, "limit must be between 1 and "+strconv.Itoa(s.limits.MaxLimit))
			return q, false, false
		}
		q.Limit = limit
		ranged = true
	}

	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		writeBadRequest(w, "to must not be before from")
		return q, false, false
	}

	if ranged && q.Limit == 0 {
		q.Limit = s.limits.DefaultLimit
	}
	return q, ranged, true
}

// handleFetchTelemetry returns the history of one device, oldest first.
// Without from/to/limit every record is returned.
//
// GET /telemetry/{kind}/{id}?from=...&to=...&limit=...
func (s *Server) handleFetchTelemetry(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r)
	if !ok {
		return
	}
	q, ranged, ok := s.rangeQuery(w, r)
	if !ok {
		return
	}

	var (
		records []telemetry.Record
		err     error
	)
	if ranged {
		records, err = s.telemetry.FetchRange(r.Context(), addr, q)
	} else {
		records, err = s.telemetry.FetchAll(r.Context(), addr)
	}
	if err != nil {
		s.writeTelemetryError(w, addr, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"address": addr,
		"records": records,
		"count":   len(records),
	})
}

// handleFetchLatest returns the newest record of one device.
//
// GET /telemetry/{kind}/{id}/latest
func (s *Server) handleFetchLatest(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r)
	if !ok {
		return
	}

	rec, err := s.telemetry.FetchLatest(r.Context(), addr)
	if err != nil {
		s.writeTelemetryError(w, addr, err)
		return
	}
	if rec == nil {
		writeNotFound(w, "no telemetry for "+addr.String())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleInsertTelemetry stores one reading. The body has the same shape as
// an MQTT telemetry message.
//
// POST /telemetry/{kind}/{id}
// Body: {"timestamp": "2026-03-01T12:00:00Z", "payload": {"power_w": 250, "cadence_rpm": 80}}
func (s *Server) handleInsertTelemetry(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(w, r)
	if !ok {
		return
	}

	var msg ingest.Message
	if !decodeBody(w, r, &msg) {
		return
	}

	payload, err := telemetry.DecodePayload(addr.Kind(), msg.Payload)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	ts := time.Now().UTC()
	if msg.Timestamp != nil {
		ts = msg.Timestamp.UTC()
	}

	if err := s.telemetry.Insert(r.Context(), addr, ts, payload); err != nil {
		s.writeTelemetryError(w, addr, err)
		return
	}

	writeJSON(w, http.StatusCreated, telemetry.Record{Address: addr, Timestamp: ts, Payload: payload})
}

// writeTelemetryError maps telemetry store errors onto HTTP statuses.
func (s *Server) writeTelemetryError(w http.ResponseWriter, addr telemetry.Address, err error) {
	switch {
	case errors.Is(err, telemetry.ErrInvalidPayload):
		writeValidationError(w, err.Error())
	case errors.Is(err, telemetry.ErrInvalidAddress):
		writeBadRequest(w, err.Error())
	case errors.Is(err, telemetry.ErrUnavailable):
		s.logger.Error("telemetry store unavailable", "address", addr.String(), "error", err)
		writeUnavailable(w, "telemetry store unavailable")
	default:
		s.logger.Error("telemetry store failure", "address", addr.String(), "error", err)
		writeInternalError(w, "telemetry store failure")
	}
}
