package store

import (
	"context"
	"sync"
)

// SnapshotCache is the derived current-stock cache keyed by
// (variant, location). It is a performance optimization, never a source of
// truth: every value must be reconstructable by replaying the ledger.
type SnapshotCache interface {
	// Get returns the cached available quantity for a pair. The second
	// return value reports whether the cell is populated.
	Get(ctx context.Context, variantID, locationID string) (int64, bool, error)

	// Apply adds delta to the cached value for a pair and returns the new
	// value. A missing cell is treated as zero.
	Apply(ctx context.Context, variantID, locationID string, delta int64) (int64, error)

	// Put overwrites the cached value for a pair.
	Put(ctx context.Context, variantID, locationID string, available int64) error

	// VariantTotal sums the cached values across all locations of a
	// variant. The second return value reports whether the variant's
	// location set is marked complete; a partially warmed variant is a
	// miss, never a partial sum.
	VariantTotal(ctx context.Context, variantID string) (int64, bool, error)

	// MarkComplete records that every ledger location of the variant has a
	// populated cell, making VariantTotal trustworthy. Appends to further
	// locations keep the mark valid because they create their cell
	// synchronously.
	MarkComplete(ctx context.Context, variantID string) error

	// Drop discards the cached cell for a pair and clears the variant's
	// complete mark.
	Drop(ctx context.Context, variantID, locationID string) error
}

// MemorySnapshotCache is the in-process snapshot cache.
type MemorySnapshotCache struct {
	mu       sync.RWMutex
	cells    map[string]map[string]int64 // variantID -> locationID -> available
	complete map[string]bool             // variantID -> location set fully warmed
}

func NewMemorySnapshotCache() *MemorySnapshotCache {
	return &MemorySnapshotCache{
		cells:    make(map[string]map[string]int64),
		complete: make(map[string]bool),
	}
}

func (c *MemorySnapshotCache) Get(ctx context.Context, variantID, locationID string) (int64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	locations, ok := c.cells[variantID]
	if !ok {
		return 0, false, nil
	}
	available, ok := locations[locationID]
	return available, ok, nil
}

func (c *MemorySnapshotCache) Apply(ctx context.Context, variantID, locationID string, delta int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cells[variantID] == nil {
		c.cells[variantID] = make(map[string]int64)
	}
	c.cells[variantID][locationID] += delta
	return c.cells[variantID][locationID], nil
}

func (c *MemorySnapshotCache) Put(ctx context.Context, variantID, locationID string, available int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cells[variantID] == nil {
		c.cells[variantID] = make(map[string]int64)
	}
	c.cells[variantID][locationID] = available
	return nil
}

func (c *MemorySnapshotCache) VariantTotal(ctx context.Context, variantID string) (int64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.complete[variantID] {
		return 0, false, nil
	}

	var total int64
	for _, available := range c.cells[variantID] {
		total += available
	}
	return total, true, nil
}

func (c *MemorySnapshotCache) MarkComplete(ctx context.Context, variantID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.complete[variantID] = true
	return nil
}

func (c *MemorySnapshotCache) Drop(ctx context.Context, variantID, locationID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.complete, variantID)
	if locations, ok := c.cells[variantID]; ok {
		delete(locations, locationID)
		if len(locations) == 0 {
			delete(c.cells, variantID)
		}
	}
	return nil
}
