package fleet

import "context"

// Getter loads one entity by id.
type Getter[T any] interface {
	// ByID returns the entity, or an error wrapping ErrNotFound.
	ByID(ctx context.Context, id int64) (*T, error)
}

// ChildLister loads the children of a parent entity.
type ChildLister[T any] interface {
	// ByParentID returns every child of parentID ordered by id.
	// The slice is empty, never nil, when there are none.
	ByParentID(ctx context.Context, parentID int64) ([]T, error)
}

// Inserter persists new entities.
type Inserter[T any] interface {
	// Insert validates and stores the entity and assigns its ID.
	Insert(ctx context.Context, entity *T) error
}

// ChildStore is the full contract for an entity owned by a parent.
type ChildStore[T any] interface {
	Getter[T]
	ChildLister[T]
	Inserter[T]
}

// OrganizationStore is the contract for root entities.
type OrganizationStore interface {
	Getter[Organization]
	Inserter[Organization]

	// List returns every organization ordered by id.
	List(ctx context.Context) ([]Organization, error)
}

// Registry groups the stores for every entity kind.
type Registry struct {
	Organizations OrganizationStore
	Trailers      ChildStore[Trailer]
	Bikes         ChildStore[Bike]
	Ovens         ChildStore[Oven]
	Microgrids    ChildStore[SolarMicrogrid]
}
