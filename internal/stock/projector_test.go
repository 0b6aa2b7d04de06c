package stock

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/commerce-backoffice/internal/infrastructure/store"
)

// ============================================
// Ledger Sum Invariant
// ============================================

// The snapshot must equal the ledger sum for its pair after every append,
// for any sequence of valid adjustments.
func TestProjector_SumInvariantUnderRandomAppends(t *testing.T) {
	core := newTestCore(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	locations := []string{testLocationA, testLocationB}
	sums := map[string]int64{}

	for i := 0; i < 200; i++ {
		location := locations[rng.Intn(len(locations))]
		delta := int64(rng.Intn(40) - 20)
		if delta == 0 {
			delta = 1
		}

		_, err := core.ledger.Append(ctx, testVariantID, location, delta,
			store.AdjustmentManualCorrection, "", time.Now())
		require.NoError(t, err)
		sums[location] += delta

		available, err := core.projector.Available(ctx, testVariantID, location)
		require.NoError(t, err)
		require.Equal(t, sums[location], available, "snapshot diverged from ledger sum at step %d", i)
	}

	total, err := core.projector.AvailableAcrossLocations(ctx, testVariantID)
	require.NoError(t, err)
	assert.Equal(t, sums[testLocationA]+sums[testLocationB], total)
}

// ============================================
// Rebuild & Replay Determinism
// ============================================

func TestProjector_RebuildMatchesIncrementalCache(t *testing.T) {
	core := newTestCore(t)
	ctx := context.Background()

	deltas := []int64{50, -12, -8, 3, -1}
	types := []store.AdjustmentType{
		store.AdjustmentRestock,
		store.AdjustmentSale,
		store.AdjustmentSale,
		store.AdjustmentReturn,
		store.AdjustmentManualCorrection,
	}
	for i := range deltas {
		_, err := core.ledger.Append(ctx, testVariantID, testLocationA, deltas[i], types[i], "", time.Now())
		require.NoError(t, err)
	}

	incremental, err := core.projector.Available(ctx, testVariantID, testLocationA)
	require.NoError(t, err)

	rebuilt, err := core.projector.Rebuild(ctx, testVariantID, testLocationA)
	require.NoError(t, err)

	assert.Equal(t, incremental, rebuilt)
	assert.Equal(t, int64(32), rebuilt)
}

func TestProjector_ColdCacheRebuildsFromLedger(t *testing.T) {
	core := newTestCore(t)
	ctx := context.Background()

	_, err := core.ledger.Append(ctx, testVariantID, testLocationA, 25, store.AdjustmentRestock, "", time.Now())
	require.NoError(t, err)
	_, err = core.ledger.Append(ctx, testVariantID, testLocationA, -5, store.AdjustmentSale, "", time.Now())
	require.NoError(t, err)

	// A fresh projector over the same ledger store simulates a restart
	// with an empty cache.
	fresh := NewProjector(core.ledgerStore, store.NewMemorySnapshotCache())

	available, err := fresh.Available(ctx, testVariantID, testLocationA)
	require.NoError(t, err)
	assert.Equal(t, int64(20), available)

	total, err := fresh.AvailableAcrossLocations(ctx, testVariantID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), total)
}

// ============================================
// Drift Detection
// ============================================

func TestProjector_VerifyCleanSnapshot(t *testing.T) {
	core := newTestCore(t)
	ctx := context.Background()

	_, err := core.ledger.Append(ctx, testVariantID, testLocationA, 10, store.AdjustmentRestock, "", time.Now())
	require.NoError(t, err)

	drifted, err := core.projector.Verify(ctx, testVariantID, testLocationA)
	require.NoError(t, err)
	assert.False(t, drifted)
}

func TestProjector_VerifyHealsDriftedSnapshot(t *testing.T) {
	core := newTestCore(t)
	ctx := context.Background()

	_, err := core.ledger.Append(ctx, testVariantID, testLocationA, 10, store.AdjustmentRestock, "", time.Now())
	require.NoError(t, err)

	// Corrupt the cache behind the projector's back.
	require.NoError(t, core.cache.Put(ctx, testVariantID, testLocationA, 999))

	drifted, err := core.projector.Verify(ctx, testVariantID, testLocationA)
	require.NoError(t, err)
	assert.True(t, drifted)

	available, err := core.projector.Available(ctx, testVariantID, testLocationA)
	require.NoError(t, err)
	assert.Equal(t, int64(10), available)
}

func TestProjector_AvailableOfUntouchedPairIsZero(t *testing.T) {
	core := newTestCore(t)

	available, err := core.projector.Available(context.Background(), testVariantID, testLocationB)
	require.NoError(t, err)
	assert.Equal(t, int64(0), available)
}

// A partially warmed cache must never understate the across-locations sum:
// warming one location and then asking for the variant total has to pull
// the remaining locations from the ledger.
func TestProjector_AcrossLocationsWithPartiallyWarmCache(t *testing.T) {
	core := newTestCore(t)
	ctx := context.Background()

	_, err := core.ledger.Append(ctx, testVariantID, testLocationA, 10, store.AdjustmentRestock, "", time.Now())
	require.NoError(t, err)
	_, err = core.ledger.Append(ctx, testVariantID, testLocationB, 7, store.AdjustmentRestock, "", time.Now())
	require.NoError(t, err)

	// Same durable ledger, fresh process: empty snapshot cache.
	fresh := NewProjector(core.ledgerStore, store.NewMemorySnapshotCache())

	available, err := fresh.Available(ctx, testVariantID, testLocationA)
	require.NoError(t, err)
	require.Equal(t, int64(10), available)

	total, err := fresh.AvailableAcrossLocations(ctx, testVariantID)
	require.NoError(t, err)
	assert.Equal(t, int64(17), total)

	// Once warmed, the cached total tracks further appends.
	ledger := NewLedger(core.ledgerStore, core.catalog, fresh, nil)
	_, err = ledger.Append(ctx, testVariantID, testLocationB, -2, store.AdjustmentSale, "order-1", time.Now())
	require.NoError(t, err)

	total, err = fresh.AvailableAcrossLocations(ctx, testVariantID)
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
}

func TestProjector_AcrossLocationsOfUnknownVariantIsZero(t *testing.T) {
	core := newTestCore(t)

	total, err := core.projector.AvailableAcrossLocations(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}
