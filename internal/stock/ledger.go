package stock

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/example/commerce-backoffice/internal/infrastructure/store"
)

// EntityChecker is the subset of catalog lookups the ledger needs for
// referential integrity.
type EntityChecker interface {
	HasVariant(id string) bool
	HasLocation(id string) bool
}

// Publisher pushes committed entries to downstream consumers. Publishing is
// best-effort and happens outside the pair critical section; a publish
// failure never fails or rolls back an append.
type Publisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

// Ledger is the append-only source of truth for all stock changes. Every
// successful append synchronously updates exactly one snapshot cell.
type Ledger struct {
	store     store.LedgerStore
	catalog   EntityChecker
	projector *Projector
	publisher Publisher // optional
}

func NewLedger(s store.LedgerStore, catalog EntityChecker, projector *Projector, publisher Publisher) *Ledger {
	return &Ledger{
		store:     s,
		catalog:   catalog,
		projector: projector,
		publisher: publisher,
	}
}

// validateAdjustment enforces the sign rules per adjustment type.
func validateAdjustment(typ store.AdjustmentType, delta int64) error {
	if delta == 0 {
		return fmt.Errorf("%w: delta must be non-zero", ErrInvalidAdjustment)
	}
	switch typ {
	case store.AdjustmentSale, store.AdjustmentTransferOut:
		if delta >= 0 {
			return fmt.Errorf("%w: %s requires a negative delta", ErrInvalidAdjustment, typ)
		}
	case store.AdjustmentRestock, store.AdjustmentReturn, store.AdjustmentTransferIn:
		if delta <= 0 {
			return fmt.Errorf("%w: %s requires a positive delta", ErrInvalidAdjustment, typ)
		}
	case store.AdjustmentManualCorrection:
		// any non-zero delta
	default:
		return fmt.Errorf("%w: unknown adjustment type %q", ErrInvalidAdjustment, typ)
	}
	return nil
}

// Append validates and writes one immutable ledger entry, then updates the
// snapshot cell for the pair before returning. All errors are returned
// before any mutation; there are no partial appends.
func (l *Ledger) Append(ctx context.Context, variantID, locationID string, delta int64, typ store.AdjustmentType, reference string, ts time.Time) (*store.Entry, error) {
	if err := validateAdjustment(typ, delta); err != nil {
		return nil, err
	}
	if !l.catalog.HasVariant(variantID) {
		return nil, ErrUnknownVariant
	}
	if !l.catalog.HasLocation(locationID) {
		return nil, ErrUnknownLocation
	}

	if ts.IsZero() {
		ts = time.Now()
	}

	entry := store.Entry{
		ID:         uuid.New().String(),
		VariantID:  variantID,
		LocationID: locationID,
		Delta:      delta,
		Type:       typ,
		Reference:  reference,
		Timestamp:  ts,
	}

	m := l.projector.locks.get(variantID, locationID)
	m.Lock()

	appended, err := l.store.Append(ctx, entry)
	if err != nil {
		m.Unlock()
		return nil, fmt.Errorf("ledger append failed: %w", err)
	}

	if err := l.projector.apply(ctx, variantID, locationID, delta); err != nil {
		// The entry is committed; the snapshot heals on the next read.
		log.Printf("[Ledger] snapshot update failed for %s/%s: %v", variantID, locationID, err)
	}
	m.Unlock()

	if l.publisher != nil {
		if err := l.publisher.Publish(ctx, appended.PairKey(), appended); err != nil {
			log.Printf("[Ledger] publish failed for %s: %v", appended.PairKey(), err)
		}
	}

	return appended, nil
}

// Replay returns the full immutable history for a pair in append order.
func (l *Ledger) Replay(ctx context.Context, variantID, locationID string) ([]store.Entry, error) {
	return l.store.Replay(ctx, variantID, locationID)
}
