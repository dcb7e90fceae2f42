package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/armadillo-fleet/armadillo-core/internal/fleet"
)

// pathID parses a positive integer URL parameter. It writes a 400 and
// returns false when the parameter is malformed.
func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, param+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// decodeBody decodes a JSON request body, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
			return false
		}
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// handleListOrganizations returns every organization. An empty fleet is a 404.
//
// GET /orgs
func (s *Server) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.fleet.Organizations.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list organizations", "error", err)
		writeInternalError(w, "failed to list organizations")
		return
	}
	if len(orgs) == 0 {
		writeNotFound(w, "no organizations found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"organizations": orgs, "count": len(orgs)})
}

// handleCreateOrganization creates an organization.
//
// POST /orgs
// Body: {"name": "Acme"}
func (s *Server) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	var org fleet.Organization
	if !decodeBody(w, r, &org) {
		return
	}
	org.ID = 0

	if err := s.fleet.Organizations.Insert(r.Context(), &org); err != nil {
		s.writeFleetError(w, "organization", err)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

// handleCreateTrailer registers a trailer under the organization in the path.
//
// POST /orgs/{id}/trailers
// Body: {"name": "T1", "location": "Depot"}
func (s *Server) handleCreateTrailer(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var t fleet.Trailer
	if !decodeBody(w, r, &t) {
		return
	}
	t.ID, t.OrgID = 0, orgID

	if err := s.fleet.Trailers.Insert(r.Context(), &t); err != nil {
		s.writeFleetError(w, "trailer", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// POST /trailers/{id}/bikes
func (s *Server) handleCreateBike(w http.ResponseWriter, r *http.Request) {
	createDevice[fleet.Bike](s, w, r, "bike", s.fleet.Bikes, func(b *fleet.Bike, trailerID int64) {
		b.ID, b.TrailerID = 0, trailerID
	})
}

// POST /trailers/{id}/ovens
func (s *Server) handleCreateOven(w http.ResponseWriter, r *http.Request) {
	createDevice[fleet.Oven](s, w, r, "oven", s.fleet.Ovens, func(o *fleet.Oven, trailerID int64) {
		o.ID, o.TrailerID = 0, trailerID
	})
}

// POST /trailers/{id}/microgrids
func (s *Server) handleCreateMicrogrid(w http.ResponseWriter, r *http.Request) {
	createDevice[fleet.SolarMicrogrid](s, w, r, "microgrid", s.fleet.Microgrids, func(m *fleet.SolarMicrogrid, trailerID int64) {
		m.ID, m.TrailerID = 0, trailerID
	})
}

// createDevice decodes a device body, attaches it to the trailer in the
// path and stores it.
func createDevice[T any](s *Server, w http.ResponseWriter, r *http.Request, kind string, store fleet.Inserter[T], attach func(*T, int64)) {
	trailerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var dev T
	if !decodeBody(w, r, &dev) {
		return
	}
	attach(&dev, trailerID)

	if err := store.Insert(r.Context(), &dev); err != nil {
		s.writeFleetError(w, kind, err)
		return
	}
	writeJSON(w, http.StatusCreated, &dev)
}

// writeFleetError maps entity store errors onto HTTP statuses.
func (s *Server) writeFleetError(w http.ResponseWriter, entity string, err error) {
	switch {
	case errors.Is(err, fleet.ErrInvalidEntity):
		writeValidationError(w, err.Error())
	case errors.Is(err, fleet.ErrParentNotFound):
		writeNotFound(w, entity+" parent not found")
	default:
		s.logger.Error("fleet store failure", "entity", entity, "error", err)
		writeInternalError(w, "failed to create "+entity)
	}
}
