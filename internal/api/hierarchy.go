package api

import (
	"net/http"
)

// handleGetOrgTree returns an organization with its trailers and device ids.
//
// GET /orgs/{id}
// Response: {"id": 1, "name": "Acme", "trailers": [{"id": 10, ..., "bikes": [{"id": 100}], ...}]}
func (s *Server) handleGetOrgTree(w http.ResponseWriter, r *http.Request) {
	orgID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	tree, err := s.assembler.BuildOrgTree(r.Context(), orgID)
	if err != nil {
		s.logger.Error("failed to build organization tree", "org_id", orgID, "error", err)
		writeInternalError(w, "failed to build organization tree")
		return
	}
	if tree == nil {
		writeNotFound(w, "organization not found")
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// handleGetBikeOrganization resolves which organization owns a bike.
//
// GET /bikes/{id}/org
// Response: {"org_id": 1, "name": "Acme"}
func (s *Server) handleGetBikeOrganization(w http.ResponseWriter, r *http.Request) {
	bikeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	org, err := s.assembler.ResolveBikeOrganization(r.Context(), bikeID)
	if err != nil {
		s.logger.Error("failed to resolve bike organization", "bike_id", bikeID, "error", err)
		writeInternalError(w, "failed to resolve bike organization")
		return
	}
	if org == nil {
		writeNotFound(w, "bike or its owner not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"org_id": org.ID, "name": org.Name})
}
