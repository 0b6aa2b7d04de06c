package stock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/commerce-backoffice/internal/catalog"
	"github.com/example/commerce-backoffice/internal/infrastructure/store"
)

// testCore wires a full stock core over in-memory stores with a seeded
// catalog: one tracked product with one variant and two locations.
type testCore struct {
	catalog     *catalog.Store
	ledgerStore *store.MemoryLedgerStore
	cache       *store.MemorySnapshotCache
	projector   *Projector
	ledger      *Ledger
	policy      *Policy
}

const (
	testVariantID = "var-1"
	testLocationA = "loc-a"
	testLocationB = "loc-b"
)

func newTestCore(t *testing.T) *testCore {
	t.Helper()

	cat := catalog.NewStore()
	require.NoError(t, cat.AddProduct(&catalog.Product{
		SKU:            "TEE",
		Name:           "Basic Tee",
		BasePrice:      1900,
		Currency:       "USD",
		HasVariants:    true,
		TrackInventory: true,
		Options:        []catalog.Option{{Name: "Color", Values: []string{"Red"}}},
		CreatedAt:      time.Now(),
	}))
	require.NoError(t, cat.SaveVariant(&catalog.Variant{
		ID:         testVariantID,
		ProductSKU: "TEE",
		Selections: map[string]string{"Color": "Red"},
		CreatedAt:  time.Now(),
	}))
	require.NoError(t, cat.AddLocation(&catalog.Location{ID: testLocationA, Name: "Warehouse A", IsDefault: true}))
	require.NoError(t, cat.AddLocation(&catalog.Location{ID: testLocationB, Name: "Store B", IsPickupLocation: true}))

	ledgerStore := store.NewMemoryLedgerStore()
	cache := store.NewMemorySnapshotCache()
	projector := NewProjector(ledgerStore, cache)
	ledger := NewLedger(ledgerStore, cat, projector, nil)
	policy := NewPolicy(cat, ledger, projector, 0)

	return &testCore{
		catalog:     cat,
		ledgerStore: ledgerStore,
		cache:       cache,
		projector:   projector,
		ledger:      ledger,
		policy:      policy,
	}
}
