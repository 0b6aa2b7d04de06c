package stock

import (
	"context"
	"log"

	"github.com/example/commerce-backoffice/internal/infrastructure/store"
)

// Projector derives current available stock per (variant, location) from
// the ledger and keeps a cached snapshot for O(1) reads. The cache is a
// performance optimization only: every cell is rebuildable by full replay,
// and detected drift self-heals transparently.
type Projector struct {
	ledger store.LedgerStore
	cache  store.SnapshotCache
	locks  *pairLocks
}

func NewProjector(ledger store.LedgerStore, cache store.SnapshotCache) *Projector {
	return &Projector{
		ledger: ledger,
		cache:  cache,
		locks:  newPairLocks(),
	}
}

// Available returns the current available stock for a pair. Cache hits are
// O(1) and lock-free; a cold cell is filled lazily by replay under the pair
// lock.
func (p *Projector) Available(ctx context.Context, variantID, locationID string) (int64, error) {
	available, ok, err := p.cache.Get(ctx, variantID, locationID)
	if err != nil {
		return 0, err
	}
	if ok {
		return available, nil
	}

	m := p.locks.get(variantID, locationID)
	m.Lock()
	defer m.Unlock()

	return p.availableLocked(ctx, variantID, locationID)
}

// availableLocked reads a cell, filling it by replay when cold. Callers
// must hold the pair lock; the pair mutex is not reentrant, so this is the
// only read path safe inside a locked section.
func (p *Projector) availableLocked(ctx context.Context, variantID, locationID string) (int64, error) {
	available, ok, err := p.cache.Get(ctx, variantID, locationID)
	if err != nil {
		return 0, err
	}
	if ok {
		return available, nil
	}
	return p.rebuildLocked(ctx, variantID, locationID)
}

// AvailableAcrossLocations sums the per-location snapshots for a variant.
// The cached total is trusted only once every ledger location of the
// variant has been warmed; until then the location set comes from a variant
// replay and each cold cell is rebuilt under its own pair lock, so a
// partially warmed cache can never understate the sum and a concurrent
// append can never be clobbered by a stale fill.
func (p *Projector) AvailableAcrossLocations(ctx context.Context, variantID string) (int64, error) {
	total, ok, err := p.cache.VariantTotal(ctx, variantID)
	if err != nil {
		return 0, err
	}
	if ok {
		return total, nil
	}

	entries, err := p.ledger.ReplayVariant(ctx, variantID)
	if err != nil {
		return 0, err
	}

	locations := make(map[string]struct{})
	for _, e := range entries {
		locations[e.LocationID] = struct{}{}
	}

	total = 0
	for locationID := range locations {
		sum, err := p.Rebuild(ctx, variantID, locationID)
		if err != nil {
			return 0, err
		}
		total += sum
	}

	if err := p.cache.MarkComplete(ctx, variantID); err != nil {
		return 0, err
	}
	return total, nil
}

// Rebuild discards the cached cell for a pair and recomputes it by full
// replay. Used for lazy fills, self-healing after drift and after bulk
// ledger imports.
func (p *Projector) Rebuild(ctx context.Context, variantID, locationID string) (int64, error) {
	m := p.locks.get(variantID, locationID)
	m.Lock()
	defer m.Unlock()

	return p.rebuildLocked(ctx, variantID, locationID)
}

// rebuildLocked recomputes a cell. Callers must hold the pair lock.
func (p *Projector) rebuildLocked(ctx context.Context, variantID, locationID string) (int64, error) {
	entries, err := p.ledger.Replay(ctx, variantID, locationID)
	if err != nil {
		return 0, err
	}

	var sum int64
	for _, e := range entries {
		sum += e.Delta
	}

	if err := p.cache.Put(ctx, variantID, locationID, sum); err != nil {
		return 0, err
	}
	return sum, nil
}

// apply bumps the cached cell after a successful append. A cold cell is
// rebuilt instead, which already includes the appended entry. Callers must
// hold the pair lock.
func (p *Projector) apply(ctx context.Context, variantID, locationID string, delta int64) error {
	_, ok, err := p.cache.Get(ctx, variantID, locationID)
	if err != nil {
		return err
	}
	if !ok {
		_, err := p.rebuildLocked(ctx, variantID, locationID)
		return err
	}
	_, err = p.cache.Apply(ctx, variantID, locationID, delta)
	return err
}

// Verify recomputes the ledger sum for a pair and compares it to the cached
// cell. Drift is logged and healed by rebuild; it is never surfaced to
// callers. Returns whether drift was found.
func (p *Projector) Verify(ctx context.Context, variantID, locationID string) (bool, error) {
	m := p.locks.get(variantID, locationID)
	m.Lock()
	defer m.Unlock()

	entries, err := p.ledger.Replay(ctx, variantID, locationID)
	if err != nil {
		return false, err
	}

	var sum int64
	for _, e := range entries {
		sum += e.Delta
	}

	cached, ok, err := p.cache.Get(ctx, variantID, locationID)
	if err != nil {
		return false, err
	}
	if ok && cached == sum {
		return false, nil
	}

	if ok {
		log.Printf("[Projector] snapshot drift detected for %s/%s: cached=%d ledger=%d, rebuilding",
			variantID, locationID, cached, sum)
	}
	if err := p.cache.Put(ctx, variantID, locationID, sum); err != nil {
		return false, err
	}
	return ok, nil
}
