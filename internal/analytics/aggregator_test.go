package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/commerce-backoffice/internal/catalog"
	"github.com/example/commerce-backoffice/internal/infrastructure/store"
	"github.com/example/commerce-backoffice/internal/stock"
)

var day = func(n int) time.Time {
	return time.Date(2026, 3, n, 12, 0, 0, 0, time.UTC)
}

type fixture struct {
	ledger     *store.MemoryLedgerStore
	catalog    *catalog.Store
	aggregator *Aggregator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ledger := store.NewMemoryLedgerStore()
	cache := store.NewMemorySnapshotCache()
	projector := stock.NewProjector(ledger, cache)
	cat := catalog.NewStore()

	return &fixture{
		ledger:     ledger,
		catalog:    cat,
		aggregator: NewAggregator(ledger, projector, cat),
	}
}

func (f *fixture) append(t *testing.T, variantID string, delta int64, typ store.AdjustmentType, at time.Time) {
	t.Helper()

	_, err := f.ledger.Append(context.Background(), store.Entry{
		VariantID:  variantID,
		LocationID: "loc-main",
		Delta:      delta,
		Type:       typ,
		Timestamp:  at,
	})
	require.NoError(t, err)
}

func (f *fixture) addProduct(t *testing.T, sku, name string, basePrice int64, variantIDs ...string) {
	t.Helper()

	require.NoError(t, f.catalog.AddProduct(&catalog.Product{
		SKU:       sku,
		Name:      name,
		BasePrice: basePrice,
		Currency:  "USD",
	}))
	for i, id := range variantIDs {
		require.NoError(t, f.catalog.SaveVariant(&catalog.Variant{
			ID:         id,
			ProductSKU: sku,
			Selections: map[string]string{"Variant": string(rune('A' + i))},
		}))
	}
}

// ============================================================
// Units Sold
// ============================================================

func TestUnitsSold_HalfOpenWindow(t *testing.T) {
	f := newFixture(t)
	f.append(t, "var-1", 100, store.AdjustmentRestock, day(1).Add(-time.Hour))
	f.append(t, "var-1", -3, store.AdjustmentSale, day(1))
	f.append(t, "var-1", -5, store.AdjustmentSale, day(2))
	f.append(t, "var-1", -2, store.AdjustmentSale, day(10))

	units, err := f.aggregator.UnitsSold(context.Background(), "var-1", day(1), day(3))
	require.NoError(t, err)
	assert.Equal(t, int64(8), units)
}

func TestUnitsSold_ExcludesNonSaleEntries(t *testing.T) {
	f := newFixture(t)
	f.append(t, "var-1", 100, store.AdjustmentRestock, day(1))
	f.append(t, "var-1", -4, store.AdjustmentSale, day(1))
	f.append(t, "var-1", 2, store.AdjustmentReturn, day(1))
	f.append(t, "var-1", -10, store.AdjustmentTransferOut, day(1))

	units, err := f.aggregator.UnitsSold(context.Background(), "var-1", day(1), day(2))
	require.NoError(t, err)
	assert.Equal(t, int64(4), units)
}

func TestUnitsSold_WindowBoundaries(t *testing.T) {
	f := newFixture(t)
	f.append(t, "var-1", -1, store.AdjustmentSale, day(1)) // == from: in
	f.append(t, "var-1", -2, store.AdjustmentSale, day(3)) // == to: out

	units, err := f.aggregator.UnitsSold(context.Background(), "var-1", day(1), day(3))
	require.NoError(t, err)
	assert.Equal(t, int64(1), units)
}

func TestUnitsSold_UnknownVariantIsZero(t *testing.T) {
	f := newFixture(t)

	units, err := f.aggregator.UnitsSold(context.Background(), "ghost", day(1), day(3))
	require.NoError(t, err)
	assert.Zero(t, units)
}

// ============================================================
// Inventory Value
// ============================================================

func TestInventoryValue_SumsVariantAvailability(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "TEE", "T-Shirt", 1500, "var-1", "var-2")
	f.append(t, "var-1", 10, store.AdjustmentRestock, day(1))
	f.append(t, "var-2", 4, store.AdjustmentRestock, day(1))

	val, err := f.aggregator.InventoryValue(context.Background(), "TEE")
	require.NoError(t, err)
	assert.Equal(t, int64(10*1500+4*1500), val.Amount)
	assert.Equal(t, "USD", val.Currency)
}

func TestInventoryValue_UsesPriceOverride(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "TEE", "T-Shirt", 1500, "var-1")

	override := int64(1200)
	v, ok := f.catalog.Variant("var-1")
	require.True(t, ok)
	v.PriceOverride = &override
	require.NoError(t, f.catalog.SaveVariant(v))

	f.append(t, "var-1", 3, store.AdjustmentRestock, day(1))

	val, err := f.aggregator.InventoryValue(context.Background(), "TEE")
	require.NoError(t, err)
	assert.Equal(t, int64(3*1200), val.Amount)
}

func TestInventoryValue_UnknownProduct(t *testing.T) {
	f := newFixture(t)

	_, err := f.aggregator.InventoryValue(context.Background(), "NOPE")
	assert.ErrorIs(t, err, catalog.ErrUnknownProduct)
}

// ============================================================
// Top Sellers
// ============================================================

func TestTopSellers_RanksByUnits(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "TEE", "T-Shirt", 1500, "var-tee")
	f.addProduct(t, "MUG", "Mug", 800, "var-mug")
	f.addProduct(t, "CAP", "Cap", 1200, "var-cap")

	f.append(t, "var-tee", -5, store.AdjustmentSale, day(1))
	f.append(t, "var-mug", -9, store.AdjustmentSale, day(1))
	f.append(t, "var-cap", -2, store.AdjustmentSale, day(1))

	rows, err := f.aggregator.TopSellers(context.Background(), 2, day(1), day(2))
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "MUG", rows[0].ProductSKU)
	assert.Equal(t, int64(9), rows[0].UnitsSold)
	assert.Equal(t, "TEE", rows[1].ProductSKU)
	assert.Equal(t, int64(5), rows[1].UnitsSold)
}

func TestTopSellers_TiesBrokenBySKU(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "ZEBRA", "Zebra", 100, "var-z")
	f.addProduct(t, "APPLE", "Apple", 100, "var-a")

	f.append(t, "var-z", -5, store.AdjustmentSale, day(1))
	f.append(t, "var-a", -5, store.AdjustmentSale, day(1))

	rows, err := f.aggregator.TopSellers(context.Background(), 0, day(1), day(2))
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, "APPLE", rows[0].ProductSKU)
	assert.Equal(t, "ZEBRA", rows[1].ProductSKU)
}

func TestTopSellers_SkipsOrphanedVariants(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "TEE", "T-Shirt", 1500, "var-tee")

	f.append(t, "var-tee", -3, store.AdjustmentSale, day(1))
	f.append(t, "var-deleted", -100, store.AdjustmentSale, day(1))

	rows, err := f.aggregator.TopSellers(context.Background(), 10, day(1), day(2))
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, "TEE", rows[0].ProductSKU)
	assert.Equal(t, int64(3), rows[0].UnitsSold)
}

func TestTopSellers_AggregatesVariantsOfSameProduct(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "TEE", "T-Shirt", 1500, "var-red", "var-blue")

	f.append(t, "var-red", -2, store.AdjustmentSale, day(1))
	f.append(t, "var-blue", -3, store.AdjustmentSale, day(1))

	rows, err := f.aggregator.TopSellers(context.Background(), 10, day(1), day(2))
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, int64(5), rows[0].UnitsSold)
	assert.Equal(t, "T-Shirt", rows[0].Name)
}
