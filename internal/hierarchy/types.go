package hierarchy

import "errors"

// ErrStoreFailure wraps any entity store error encountered while assembling.
var ErrStoreFailure = errors.New("hierarchy: store failure")

// OrgTree is a read-only projection of an organization and everything it owns.
// It is rebuilt on every request and never persisted.
type OrgTree struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Trailers []TrailerNode `json:"trailers"`
}

// TrailerNode is one trailer with the identities of its devices.
// Device lists are never nil so they serialize as [].
type TrailerNode struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Location   string      `json:"location"`
	Bikes      []DeviceRef `json:"bikes"`
	Ovens      []DeviceRef `json:"ovens"`
	Microgrids []DeviceRef `json:"microgrids"`
}

// DeviceRef is the bare identity of a device leaf.
type DeviceRef struct {
	ID int64 `json:"id"`
}
