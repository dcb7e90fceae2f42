package fleet

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process entity store used by tests and demos.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type MemoryStore[T any] struct {
	mu     sync.RWMutex
	rows   []T
	nextID int64

	name      string
	id        func(*T) int64
	parentID  func(*T) int64
	setID     func(*T, int64)
	validate  func(*T) error
	hasParent func(ctx context.Context, id int64) bool
}

// NewMemoryRegistry creates in-memory stores for every entity kind with the
// same validation and parent checks as the SQLite stores.
func NewMemoryRegistry() *Registry {
	orgs := &MemoryStore[Organization]{
		name:     organizationsTable.name,
		id:       func(o *Organization) int64 { return o.ID },
		setID:    organizationsTable.setID,
		validate: organizationsTable.validate,
	}
	trailers := &MemoryStore[Trailer]{
		name:      trailersTable.name,
		id:        func(t *Trailer) int64 { return t.ID },
		parentID:  func(t *Trailer) int64 { return t.OrgID },
		setID:     trailersTable.setID,
		validate:  trailersTable.validate,
		hasParent: orgs.exists,
	}
	return &Registry{
		Organizations: orgs,
		Trailers:      trailers,
		Bikes: &MemoryStore[Bike]{
			name:      bikesTable.name,
			id:        func(b *Bike) int64 { return b.ID },
			parentID:  func(b *Bike) int64 { return b.TrailerID },
			setID:     bikesTable.setID,
			validate:  bikesTable.validate,
			hasParent: trailers.exists,
		},
		Ovens: &MemoryStore[Oven]{
			name:      ovensTable.name,
			id:        func(o *Oven) int64 { return o.ID },
			parentID:  func(o *Oven) int64 { return o.TrailerID },
			setID:     ovensTable.setID,
			validate:  ovensTable.validate,
			hasParent: trailers.exists,
		},
		Microgrids: &MemoryStore[SolarMicrogrid]{
			name:      microgridsTable.name,
			id:        func(m *SolarMicrogrid) int64 { return m.ID },
			parentID:  func(m *SolarMicrogrid) int64 { return m.TrailerID },
			setID:     microgridsTable.setID,
			validate:  microgridsTable.validate,
			hasParent: trailers.exists,
		},
	}
}

// ByID returns a copy of the entity with the given id.
func (s *MemoryStore[T]) ByID(ctx context.Context, id int64) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.rows {
		if s.id(&s.rows[i]) == id {
			entity := s.rows[i]
			return &entity, nil
		}
	}
	return nil, fmt.Errorf("%s %d: %w", s.name, id, ErrNotFound)
}

// ByParentID returns copies of every child of parentID in id order.
func (s *MemoryStore[T]) ByParentID(ctx context.Context, parentID int64) ([]T, error) {
	if s.parentID == nil {
		return nil, fmt.Errorf("%s has no parent column", s.name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0)
	for i := range s.rows {
		if s.parentID(&s.rows[i]) == parentID {
			out = append(out, s.rows[i])
		}
	}
	return out, nil
}

// List returns copies of every entity in id order.
func (s *MemoryStore[T]) List(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, len(s.rows))
	copy(out, s.rows)
	return out, nil
}

// Insert validates the entity, checks its parent and assigns the next id.
func (s *MemoryStore[T]) Insert(ctx context.Context, entity *T) error {
	if err := s.validate(entity); err != nil {
		return err
	}
	if s.hasParent != nil && !s.hasParent(ctx, s.parentID(entity)) {
		return fmt.Errorf("inserting into %s: %w", s.name, ErrParentNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.setID(entity, s.nextID)
	s.rows = append(s.rows, *entity)
	return nil
}

func (s *MemoryStore[T]) exists(ctx context.Context, id int64) bool {
	_, err := s.ByID(ctx, id)
	return err == nil
}
