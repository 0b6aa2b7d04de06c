package catalog

import (
	"errors"
	"sync"
)

var (
	ErrUnknownProduct       = errors.New("unknown product")
	ErrUnknownVariant       = errors.New("unknown variant")
	ErrUnknownLocation      = errors.New("unknown location")
	ErrDuplicateSKU         = errors.New("product SKU already exists")
	ErrDuplicateCombination = errors.New("variant combination already exists")
	ErrDuplicateLocation    = errors.New("location ID already exists")
)

// Store is a tenant-scoped in-memory catalog. One instance per tenant;
// tenant identity is carried by the instance, never by ambient state.
type Store struct {
	mu            sync.RWMutex
	products      map[string]*Product  // by SKU
	variants      map[string]*Variant  // by ID
	variantsBySKU map[string][]string  // SKU -> variant IDs
	locations     map[string]*Location // by ID
}

func NewStore() *Store {
	return &Store{
		products:      make(map[string]*Product),
		variants:      make(map[string]*Variant),
		variantsBySKU: make(map[string][]string),
		locations:     make(map[string]*Location),
	}
}

// AddProduct registers a product. SKUs are unique and immutable.
func (s *Store) AddProduct(p *Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[p.SKU]; ok {
		return ErrDuplicateSKU
	}
	s.products[p.SKU] = p
	return nil
}

func (s *Store) Product(sku string) (*Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[sku]
	return p, ok
}

// ArchiveProduct marks a product archived and deactivates its variants.
// Ledger history is untouched; it stays orphaned for audit.
func (s *Store) ArchiveProduct(sku string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[sku]
	if !ok {
		return ErrUnknownProduct
	}
	p.Archived = true
	for _, id := range s.variantsBySKU[sku] {
		s.variants[id].Deactivated = true
	}
	return nil
}

// SaveVariant inserts or updates a variant. The option combination must be
// unique among the product's variants.
func (s *Store) SaveVariant(v *Variant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[v.ProductSKU]; !ok {
		return ErrUnknownProduct
	}

	key := v.CombinationKey()
	for _, id := range s.variantsBySKU[v.ProductSKU] {
		other := s.variants[id]
		if other.ID != v.ID && other.CombinationKey() == key {
			return ErrDuplicateCombination
		}
	}

	if _, ok := s.variants[v.ID]; !ok {
		s.variantsBySKU[v.ProductSKU] = append(s.variantsBySKU[v.ProductSKU], v.ID)
	}
	s.variants[v.ID] = v
	return nil
}

func (s *Store) Variant(id string) (*Variant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.variants[id]
	return v, ok
}

func (s *Store) HasVariant(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.variants[id]
	return ok
}

// VariantsOf returns the product's variants in insertion order.
func (s *Store) VariantsOf(sku string) []Variant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.variantsBySKU[sku]
	out := make([]Variant, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.variants[id])
	}
	return out
}

func (s *Store) DeactivateVariant(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.variants[id]
	if !ok {
		return ErrUnknownVariant
	}
	v.Deactivated = true
	return nil
}

// AddLocation registers a location. At most one location is the tenant
// default; registering a new default demotes the previous one.
func (s *Store) AddLocation(l *Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locations[l.ID]; ok {
		return ErrDuplicateLocation
	}
	if l.IsDefault {
		for _, other := range s.locations {
			other.IsDefault = false
		}
	}
	s.locations[l.ID] = l
	return nil
}

func (s *Store) Location(id string) (*Location, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.locations[id]
	return l, ok
}

func (s *Store) HasLocation(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.locations[id]
	return ok
}

// Locations returns all registered locations.
func (s *Store) Locations() []Location {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Location, 0, len(s.locations))
	for _, l := range s.locations {
		out = append(out, *l)
	}
	return out
}
