package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// LedgerStore is durable append-only storage for stock entries.
//
// The store assigns the per-(variant, location) sequence number on append.
// Entries for a single pair are totally ordered by that sequence; there is
// no ordering guarantee across pairs.
type LedgerStore interface {
	// Append persists the entry and returns it with its sequence assigned.
	Append(ctx context.Context, entry Entry) (*Entry, error)

	// Replay returns the full history for a (variant, location) pair in
	// sequence order.
	Replay(ctx context.Context, variantID, locationID string) ([]Entry, error)

	// ReplayVariant returns every entry for a variant across all locations,
	// ordered by location then sequence.
	ReplayVariant(ctx context.Context, variantID string) ([]Entry, error)

	// EntriesInWindow returns all entries whose timestamp falls in the
	// half-open interval [from, to), across all variants and locations.
	EntriesInWindow(ctx context.Context, from, to time.Time) ([]Entry, error)
}

type pairKey struct {
	variantID  string
	locationID string
}

// MemoryLedgerStore keeps the ledger in process memory. It is the
// authoritative implementation for tests and single-node deployments.
type MemoryLedgerStore struct {
	mu      sync.RWMutex
	entries map[pairKey][]Entry
}

func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		entries: make(map[pairKey][]Entry),
	}
}

// Append stores an entry in memory and assigns the next pair sequence.
func (s *MemoryLedgerStore) Append(ctx context.Context, entry Entry) (*Entry, error) {
	key := pairKey{entry.VariantID, entry.LocationID}

	s.mu.Lock()
	entry.Sequence = int64(len(s.entries[key])) + 1
	s.entries[key] = append(s.entries[key], entry)
	s.mu.Unlock()

	return &entry, nil
}

// Replay returns a copy of the pair history in sequence order.
func (s *MemoryLedgerStore) Replay(ctx context.Context, variantID, locationID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.entries[pairKey{variantID, locationID}]
	out := make([]Entry, len(history))
	copy(out, history)
	return out, nil
}

// ReplayVariant returns all entries for a variant, ordered by location then
// sequence.
func (s *MemoryLedgerStore) ReplayVariant(ctx context.Context, variantID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for key, history := range s.entries {
		if key.variantID == variantID {
			out = append(out, history...)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LocationID != out[j].LocationID {
			return out[i].LocationID < out[j].LocationID
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out, nil
}

// EntriesInWindow returns all entries with from <= timestamp < to.
func (s *MemoryLedgerStore) EntriesInWindow(ctx context.Context, from, to time.Time) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for _, history := range s.entries {
		for _, e := range history {
			if !e.Timestamp.Before(from) && e.Timestamp.Before(to) {
				out = append(out, e)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		if out[i].VariantID != out[j].VariantID {
			return out[i].VariantID < out[j].VariantID
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out, nil
}
