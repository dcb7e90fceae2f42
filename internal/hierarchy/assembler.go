package hierarchy

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/armadillo-fleet/armadillo-core/internal/fleet"
)

// DefaultMaxConcurrency bounds in-flight device lookups when no limit is configured.
const DefaultMaxConcurrency = 8

// Logger defines the logging interface used by the Assembler.
type Logger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Error(string, ...any) {}

// Assembler builds organization trees from the fleet stores.
// It holds no cache; every call reads current state.
type Assembler struct {
	fleet          *fleet.Registry
	maxConcurrency int
	logger         Logger
}

// NewAssembler creates an Assembler over the given registry.
// maxConcurrency <= 0 selects DefaultMaxConcurrency.
func NewAssembler(reg *fleet.Registry, maxConcurrency int) *Assembler {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Assembler{
		fleet:          reg,
		maxConcurrency: maxConcurrency,
		logger:         noopLogger{},
	}
}

// SetLogger sets the logger for the assembler.
func (a *Assembler) SetLogger(logger Logger) {
	a.logger = logger
}

// BuildOrgTree loads the organization, its trailers and each trailer's
// devices, and projects them into an OrgTree.
//
// Returns:
//   - *OrgTree, nil: organization found
//   - nil, nil: no organization with that id
//   - nil, error: a lookup failed (wraps ErrStoreFailure); nothing partial is returned
func (a *Assembler) BuildOrgTree(ctx context.Context, orgID int64) (*OrgTree, error) {
	org, err := a.fleet.Organizations.ByID(ctx, orgID)
	if errors.Is(err, fleet.ErrNotFound) {
		a.logger.Debug("organization not found", "org_id", orgID)
		return nil, nil
	}
	if err != nil {
		return nil, a.fail("loading organization", orgID, err)
	}

	trailers, err := a.fleet.Trailers.ByParentID(ctx, org.ID)
	if err != nil {
		return nil, a.fail("loading trailers", orgID, err)
	}

	tree := &OrgTree{
		ID:       org.ID,
		Name:     org.Name,
		Trailers: make([]TrailerNode, len(trailers)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxConcurrency)

	for i, tr := range trailers {
		node := &tree.Trailers[i]
		*node = TrailerNode{ID: tr.ID, Name: tr.Name, Location: tr.Location}

		// Each goroutine owns exactly one slice field of node.
		g.Go(func() error {
			return loadRefs[fleet.Bike](gctx, a.fleet.Bikes, tr.ID, func(b *fleet.Bike) int64 { return b.ID }, &node.Bikes)
		})
		g.Go(func() error {
			return loadRefs[fleet.Oven](gctx, a.fleet.Ovens, tr.ID, func(o *fleet.Oven) int64 { return o.ID }, &node.Ovens)
		})
		g.Go(func() error {
			return loadRefs[fleet.SolarMicrogrid](gctx, a.fleet.Microgrids, tr.ID, func(m *fleet.SolarMicrogrid) int64 { return m.ID }, &node.Microgrids)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, a.fail("loading devices", orgID, err)
	}
	return tree, nil
}

// ResolveBikeOrganization walks Bike -> Trailer -> Organization.
//
// Returns:
//   - *fleet.Organization, nil: the owning organization
//   - nil, nil: the bike, its trailer or the organization does not exist
//   - nil, error: a lookup failed (wraps ErrStoreFailure)
func (a *Assembler) ResolveBikeOrganization(ctx context.Context, bikeID int64) (*fleet.Organization, error) {
	bike, err := a.fleet.Bikes.ByID(ctx, bikeID)
	if errors.Is(err, fleet.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, a.fail("loading bike", bikeID, err)
	}

	trailer, err := a.fleet.Trailers.ByID(ctx, bike.TrailerID)
	if errors.Is(err, fleet.ErrNotFound) {
		a.logger.Debug("bike references missing trailer", "bike_id", bikeID, "trailer_id", bike.TrailerID)
		return nil, nil
	}
	if err != nil {
		return nil, a.fail("loading trailer", bike.TrailerID, err)
	}

	org, err := a.fleet.Organizations.ByID(ctx, trailer.OrgID)
	if errors.Is(err, fleet.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, a.fail("loading organization", trailer.OrgID, err)
	}
	return org, nil
}

func (a *Assembler) fail(step string, id int64, err error) error {
	a.logger.Error("hierarchy lookup failed", "step", step, "id", id, "error", err)
	return fmt.Errorf("%w: %s %d: %w", ErrStoreFailure, step, id, err)
}

// loadRefs lists the children of trailerID and stores their ids in dst.
// dst is always set to a non-nil slice on success.
func loadRefs[T any](ctx context.Context, store fleet.ChildLister[T], trailerID int64, id func(*T) int64, dst *[]DeviceRef) error {
	children, err := store.ByParentID(ctx, trailerID)
	if err != nil {
		return fmt.Errorf("trailer %d: %w", trailerID, err)
	}
	refs := make([]DeviceRef, len(children))
	for i := range children {
		refs[i] = DeviceRef{ID: id(&children[i])}
	}
	*dst = refs
	return nil
}
