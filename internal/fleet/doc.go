// Package fleet holds the registry of organizations, trailers and devices.
//
// Ownership is strict: an Organization owns its Trailers and a Trailer owns
// its Bikes, Ovens and SolarMicrogrids. Deleting an organization cascades
// through the whole subtree (enforced by SQLite foreign keys).
//
// Every entity kind is served by a store offering:
//   - ByID: load one entity, ErrNotFound when absent
//   - ByParentID: load all children of a parent, ordered by id, never nil
//   - Insert: assign an id and persist
//
// Organizations have no parent, so OrganizationStore offers List instead.
//
// Usage:
//
//	reg := fleet.NewSQLiteRegistry(db)
//	trailers, err := reg.Trailers.ByParentID(ctx, orgID)
package fleet
