package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/example/commerce-backoffice/internal/catalog"
	"github.com/example/commerce-backoffice/internal/infrastructure/store"
)

// Catalog is the read-only catalog surface the aggregator needs.
type Catalog interface {
	Product(sku string) (*catalog.Product, bool)
	Variant(id string) (*catalog.Variant, bool)
	VariantsOf(sku string) []catalog.Variant
}

// StockReader reads derived availability from the projector's snapshot,
// never from the ledger, keeping valuation queries O(variants) instead of
// O(ledger).
type StockReader interface {
	AvailableAcrossLocations(ctx context.Context, variantID string) (int64, error)
}

// Aggregator computes reporting metrics purely from ledger entries and
// catalog metadata. All operations are read-only and deterministic for a
// given ledger state.
type Aggregator struct {
	ledger  store.LedgerStore
	stock   StockReader
	catalog Catalog
}

func NewAggregator(ledger store.LedgerStore, stock StockReader, cat Catalog) *Aggregator {
	return &Aggregator{
		ledger:  ledger,
		stock:   stock,
		catalog: cat,
	}
}

// UnitsSold sums the absolute value of all Sale deltas for a variant in the
// half-open interval [from, to), across all locations.
func (a *Aggregator) UnitsSold(ctx context.Context, variantID string, from, to time.Time) (int64, error) {
	entries, err := a.ledger.ReplayVariant(ctx, variantID)
	if err != nil {
		return 0, err
	}

	var units int64
	for _, e := range entries {
		if e.Type != store.AdjustmentSale {
			continue
		}
		if e.Timestamp.Before(from) || !e.Timestamp.Before(to) {
			continue
		}
		if e.Delta < 0 {
			units += -e.Delta
		} else {
			units += e.Delta
		}
	}
	return units, nil
}

// Valuation is a currency amount in minor units.
type Valuation struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// InventoryValue computes Σ available × unit cost over the product's
// variants, reading availability from the snapshot cache.
func (a *Aggregator) InventoryValue(ctx context.Context, productSKU string) (*Valuation, error) {
	prod, ok := a.catalog.Product(productSKU)
	if !ok {
		return nil, catalog.ErrUnknownProduct
	}

	var total int64
	for _, v := range a.catalog.VariantsOf(productSKU) {
		available, err := a.stock.AvailableAcrossLocations(ctx, v.ID)
		if err != nil {
			return nil, err
		}
		total += available * catalog.UnitCost(prod, &v)
	}

	return &Valuation{Amount: total, Currency: prod.Currency}, nil
}

// ProductSales is one row of a top-sellers report.
type ProductSales struct {
	ProductSKU string `json:"product_sku"`
	Name       string `json:"name"`
	UnitsSold  int64  `json:"units_sold"`
}

// TopSellers returns the n best-selling products in [from, to) by units
// sold, ties broken by product SKU ascending for determinism.
func (a *Aggregator) TopSellers(ctx context.Context, n int, from, to time.Time) ([]ProductSales, error) {
	entries, err := a.ledger.EntriesInWindow(ctx, from, to)
	if err != nil {
		return nil, err
	}

	unitsBySKU := make(map[string]int64)
	for _, e := range entries {
		if e.Type != store.AdjustmentSale {
			continue
		}
		v, ok := a.catalog.Variant(e.VariantID)
		if !ok {
			// Orphaned history; cannot be attributed to a product.
			continue
		}
		if e.Delta < 0 {
			unitsBySKU[v.ProductSKU] += -e.Delta
		} else {
			unitsBySKU[v.ProductSKU] += e.Delta
		}
	}

	rows := make([]ProductSales, 0, len(unitsBySKU))
	for sku, units := range unitsBySKU {
		name := ""
		if prod, ok := a.catalog.Product(sku); ok {
			name = prod.Name
		}
		rows = append(rows, ProductSales{ProductSKU: sku, Name: name, UnitsSold: units})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].UnitsSold != rows[j].UnitsSold {
			return rows[i].UnitsSold > rows[j].UnitsSold
		}
		return rows[i].ProductSKU < rows[j].ProductSKU
	})

	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}
