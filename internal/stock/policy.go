package stock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/commerce-backoffice/internal/catalog"
	"github.com/example/commerce-backoffice/internal/infrastructure/store"
)

// Status is the derived availability of a variant. It is never persisted;
// it is always recomputed from the ledger-backed snapshot, so status and
// ledger cannot diverge.
type Status string

const (
	StatusInStock    Status = "InStock"
	StatusLowStock   Status = "LowStock"
	StatusOutOfStock Status = "OutOfStock"
)

// DefaultLowStockThreshold applies when neither the variant nor the product
// configures one.
const DefaultLowStockThreshold = 5

// CatalogReader gives the policy access to variant and product settings.
type CatalogReader interface {
	Variant(id string) (*catalog.Variant, bool)
	Product(sku string) (*catalog.Product, bool)
	HasLocation(id string) bool
}

// Reservation is a transient, in-memory hold on available stock taken
// during a checkout flow. It is advisory: never persisted, lost on crash,
// and distinct from a committed Sale entry.
type Reservation struct {
	Token      string    `json:"token"`
	VariantID  string    `json:"variant_id"`
	LocationID string    `json:"location_id"`
	Quantity   int64     `json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`

	claimed bool
}

// Policy classifies variant availability and gates sales. The reservation
// check and any ledger append for the same pair serialize on the same
// per-pair lock, so two concurrent sales can never both pass the
// availability check before either decrements stock.
type Policy struct {
	catalog          CatalogReader
	ledger           *Ledger
	projector        *Projector
	defaultThreshold int64

	mu             sync.Mutex
	reservations   map[string]*Reservation
	reservedByPair map[pairKey]int64
}

func NewPolicy(cat CatalogReader, ledger *Ledger, projector *Projector, defaultThreshold int64) *Policy {
	if defaultThreshold <= 0 {
		defaultThreshold = DefaultLowStockThreshold
	}
	return &Policy{
		catalog:          cat,
		ledger:           ledger,
		projector:        projector,
		defaultThreshold: defaultThreshold,
		reservations:     make(map[string]*Reservation),
		reservedByPair:   make(map[pairKey]int64),
	}
}

// threshold resolves the low-stock threshold: variant override, then
// product default, then the policy default.
func (p *Policy) threshold(v *catalog.Variant, prod *catalog.Product) int64 {
	if v.LowStockThreshold != nil {
		return *v.LowStockThreshold
	}
	if prod.LowStockThreshold > 0 {
		return prod.LowStockThreshold
	}
	return p.defaultThreshold
}

// Classify returns the variant's availability status across all locations.
// With inventory tracking disabled on the product, Classify always reports
// InStock regardless of ledger state.
func (p *Policy) Classify(ctx context.Context, variantID string) (Status, error) {
	v, ok := p.catalog.Variant(variantID)
	if !ok {
		return "", ErrUnknownVariant
	}
	prod, ok := p.catalog.Product(v.ProductSKU)
	if !ok {
		return "", ErrUnknownVariant
	}
	if !prod.TrackInventory {
		return StatusInStock, nil
	}

	available, err := p.projector.AvailableAcrossLocations(ctx, variantID)
	if err != nil {
		return "", err
	}

	switch {
	case available <= 0:
		return StatusOutOfStock, nil
	case available <= p.threshold(v, prod):
		return StatusLowStock, nil
	default:
		return StatusInStock, nil
	}
}

// reserved returns the quantity currently held for a pair.
func (p *Policy) reserved(key pairKey) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reservedByPair[key]
}

func (p *Policy) record(r *Reservation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reservations[r.Token] = r
	p.reservedByPair[pairKey{r.VariantID, r.LocationID}] += r.Quantity
}

func (p *Policy) remove(token string) (*Reservation, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	r, ok := p.reservations[token]
	if !ok {
		return nil, false
	}
	delete(p.reservations, token)

	key := pairKey{r.VariantID, r.LocationID}
	p.reservedByPair[key] -= r.Quantity
	if p.reservedByPair[key] <= 0 {
		delete(p.reservedByPair, key)
	}
	return r, true
}

// TryReserveForSale places an advisory hold on available stock. It fails
// with ErrInsufficientStock when the requested quantity exceeds what is
// available minus existing holds, unless the product opts out of tracking.
func (p *Policy) TryReserveForSale(ctx context.Context, variantID, locationID string, quantity int64) (*Reservation, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	v, ok := p.catalog.Variant(variantID)
	if !ok {
		return nil, ErrUnknownVariant
	}
	if !p.catalog.HasLocation(locationID) {
		return nil, ErrUnknownLocation
	}
	prod, ok := p.catalog.Product(v.ProductSKU)
	if !ok {
		return nil, ErrUnknownVariant
	}

	r := &Reservation{
		Token:      uuid.New().String(),
		VariantID:  variantID,
		LocationID: locationID,
		Quantity:   quantity,
		CreatedAt:  time.Now(),
	}

	if !prod.TrackInventory {
		p.record(r)
		return r, nil
	}

	m := p.projector.locks.get(variantID, locationID)
	m.Lock()
	defer m.Unlock()

	available, err := p.projector.availableLocked(ctx, variantID, locationID)
	if err != nil {
		return nil, err
	}
	if quantity > available-p.reserved(pairKey{variantID, locationID}) {
		return nil, ErrInsufficientStock
	}

	p.record(r)
	return r, nil
}

// Release abandons a reservation without writing anything to the ledger.
// Callers use it when a checkout flow is cancelled or times out.
func (p *Policy) Release(token string) error {
	p.mu.Lock()
	r, ok := p.reservations[token]
	claimed := ok && r.claimed
	p.mu.Unlock()
	if !ok || claimed {
		// A claimed hold belongs to an in-flight commit.
		return ErrUnknownReservation
	}
	if _, ok := p.remove(token); !ok {
		return ErrUnknownReservation
	}
	return nil
}

// CommitSale turns a reservation into a committed Sale ledger entry. The
// entry is appended before the hold is dropped, so availability can only
// err low in between, never high.
func (p *Policy) CommitSale(ctx context.Context, token, reference string) (*store.Entry, error) {
	p.mu.Lock()
	r, ok := p.reservations[token]
	if !ok || r.claimed {
		p.mu.Unlock()
		return nil, ErrUnknownReservation
	}
	// Claim before appending so a concurrent commit of the same token
	// cannot write a second sale entry. The hold stays in place until
	// the entry lands.
	r.claimed = true
	p.mu.Unlock()

	entry, err := p.ledger.Append(ctx, r.VariantID, r.LocationID, -r.Quantity, store.AdjustmentSale, reference, time.Now())
	if err != nil {
		p.mu.Lock()
		r.claimed = false
		p.mu.Unlock()
		return nil, err
	}

	p.remove(token)
	return entry, nil
}
