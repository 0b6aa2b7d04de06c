package tenant

import (
	"sync"

	"github.com/example/commerce-backoffice/internal/analytics"
	"github.com/example/commerce-backoffice/internal/catalog"
	"github.com/example/commerce-backoffice/internal/infrastructure/store"
	"github.com/example/commerce-backoffice/internal/stock"
)

// Components is the fully wired stock core for one tenant. Every component
// operates on tenant-scoped store instances; tenant identity is explicit at
// construction, never ambient.
type Components struct {
	Catalog   *catalog.Store
	Ledger    *stock.Ledger
	Projector *stock.Projector
	Policy    *stock.Policy
	Analytics *analytics.Aggregator
}

// StoreFactory builds the backing stores for a tenant: the durable ledger
// store and the snapshot cache.
type StoreFactory func(tenantID string) (store.LedgerStore, store.SnapshotCache, error)

// MemoryStores is the default factory: in-process ledger and cache.
func MemoryStores(string) (store.LedgerStore, store.SnapshotCache, error) {
	return store.NewMemoryLedgerStore(), store.NewMemorySnapshotCache(), nil
}

// Registry constructs and caches per-tenant component bundles.
type Registry struct {
	mu        sync.Mutex
	factory   StoreFactory
	publisher stock.Publisher // optional, shared across tenants
	threshold int64
	tenants   map[string]*Components
}

func NewRegistry(factory StoreFactory, publisher stock.Publisher, defaultThreshold int64) *Registry {
	if factory == nil {
		factory = MemoryStores
	}
	return &Registry{
		factory:   factory,
		publisher: publisher,
		threshold: defaultThreshold,
		tenants:   make(map[string]*Components),
	}
}

// Tenant returns the component bundle for a tenant, building it on first
// use.
func (r *Registry) Tenant(id string) (*Components, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.tenants[id]; ok {
		return c, nil
	}

	ledgerStore, cache, err := r.factory(id)
	if err != nil {
		return nil, err
	}

	var publisher stock.Publisher
	if r.publisher != nil {
		publisher = &scopedPublisher{tenantID: id, inner: r.publisher}
	}

	cat := catalog.NewStore()
	projector := stock.NewProjector(ledgerStore, cache)
	ledger := stock.NewLedger(ledgerStore, cat, projector, publisher)
	policy := stock.NewPolicy(cat, ledger, projector, r.threshold)
	aggregator := analytics.NewAggregator(ledgerStore, projector, cat)

	c := &Components{
		Catalog:   cat,
		Ledger:    ledger,
		Projector: projector,
		Policy:    policy,
		Analytics: aggregator,
	}
	r.tenants[id] = c
	return c, nil
}
