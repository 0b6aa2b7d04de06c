package catalog

import (
	"sort"
	"strings"
	"time"
)

// Option is a configurable product axis, e.g. Color with values Red, Blue.
// Options belong to exactly one product and their order is significant.
type Option struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Product is a catalog item identified by its SKU, which is immutable once
// published.
type Product struct {
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	BasePrice      int64     `json:"base_price"` // minor currency units
	Currency       string    `json:"currency"`
	HasVariants    bool      `json:"has_variants"`
	TrackInventory bool      `json:"track_inventory"`

	// LowStockThreshold is the product default; 0 means unset and defers
	// to the policy default. Variants may override it.
	LowStockThreshold int64 `json:"low_stock_threshold,omitempty"`

	Options   []Option  `json:"options,omitempty"`
	Archived  bool      `json:"archived,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Variant is a purchasable configuration of a product. The ID is generated
// once at creation and never derived from option values, so ledger history
// survives relabeling.
type Variant struct {
	ID         string            `json:"id"`
	ProductSKU string            `json:"product_sku"`

	// Selections maps option name to the chosen value, exactly one per
	// product option. The combination is unique among the product's
	// variants.
	Selections map[string]string `json:"selections"`

	PriceOverride     *int64    `json:"price_override,omitempty"`
	LowStockThreshold *int64    `json:"low_stock_threshold,omitempty"`
	Deactivated       bool      `json:"deactivated,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// CombinationKey returns the canonical identity of the variant's option
// combination, with option names sorted for stability.
func (v Variant) CombinationKey() string {
	names := make([]string, 0, len(v.Selections))
	for name := range v.Selections {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+v.Selections[name])
	}
	return strings.Join(parts, "|")
}

// UnitCost returns the effective unit price of a variant: its override if
// set, the product base price otherwise.
func UnitCost(p *Product, v *Variant) int64 {
	if v != nil && v.PriceOverride != nil {
		return *v.PriceOverride
	}
	return p.BasePrice
}

// Location is a physical or virtual stock location. Locations are
// tenant-scoped and independent of products.
type Location struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Address          string `json:"address,omitempty"`
	IsPickupLocation bool   `json:"is_pickup_location"`
	IsDefault        bool   `json:"is_default"`
}
