package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/example/commerce-backoffice/internal/infrastructure/store"
)

// MockLedgerStore is an in-memory LedgerStore for tests that records calls
// and can be forced to fail.
type MockLedgerStore struct {
	mu      sync.RWMutex
	backing *store.MemoryLedgerStore

	// For tracking calls in tests
	AppendCalls []store.Entry
	AppendErr   error
}

func NewMockLedgerStore() *MockLedgerStore {
	return &MockLedgerStore{
		backing:     store.NewMemoryLedgerStore(),
		AppendCalls: make([]store.Entry, 0),
	}
}

func (m *MockLedgerStore) Append(ctx context.Context, entry store.Entry) (*store.Entry, error) {
	m.mu.Lock()
	m.AppendCalls = append(m.AppendCalls, entry)
	err := m.AppendErr
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return m.backing.Append(ctx, entry)
}

func (m *MockLedgerStore) Replay(ctx context.Context, variantID, locationID string) ([]store.Entry, error) {
	return m.backing.Replay(ctx, variantID, locationID)
}

func (m *MockLedgerStore) ReplayVariant(ctx context.Context, variantID string) ([]store.Entry, error) {
	return m.backing.ReplayVariant(ctx, variantID)
}

func (m *MockLedgerStore) EntriesInWindow(ctx context.Context, from, to time.Time) ([]store.Entry, error) {
	return m.backing.EntriesInWindow(ctx, from, to)
}

// Reset clears recorded calls and the injected error. Entries already
// appended to the backing store stay, matching ledger immutability.
func (m *MockLedgerStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppendCalls = make([]store.Entry, 0)
	m.AppendErr = nil
}

// MockPublisher records published entries for tests.
type MockPublisher struct {
	mu         sync.Mutex
	Published  []any
	PublishErr error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (p *MockPublisher) Publish(ctx context.Context, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.PublishErr != nil {
		return p.PublishErr
	}
	p.Published = append(p.Published, payload)
	return nil
}
