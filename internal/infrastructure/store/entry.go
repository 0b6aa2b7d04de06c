package store

import (
	"time"
)

// AdjustmentType classifies a stock movement.
type AdjustmentType string

const (
	AdjustmentRestock          AdjustmentType = "Restock"
	AdjustmentSale             AdjustmentType = "Sale"
	AdjustmentReturn           AdjustmentType = "Return"
	AdjustmentManualCorrection AdjustmentType = "ManualCorrection"
	AdjustmentTransferIn       AdjustmentType = "TransferIn"
	AdjustmentTransferOut      AdjustmentType = "TransferOut"
)

// Entry is one immutable record in the stock ledger. Entries are never
// updated or deleted; corrections are new offsetting entries.
type Entry struct {
	ID         string         `json:"id"`
	VariantID  string         `json:"variant_id"`
	LocationID string         `json:"location_id"`
	Delta      int64          `json:"delta"`
	Type       AdjustmentType `json:"type"`
	Reference  string         `json:"reference,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`

	// Sequence is monotonically increasing per (variant, location) pair
	// and is assigned by the ledger store on append.
	Sequence int64 `json:"sequence"`
}

// PairKey returns the ledger partition key for the entry.
func (e Entry) PairKey() string {
	return e.VariantID + ":" + e.LocationID
}
