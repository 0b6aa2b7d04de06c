package stock

import "sync"

type pairKey struct {
	variantID  string
	locationID string
}

// pairLocks hands out one mutex per (variant, location) pair. Reservation
// checks and ledger appends for a pair serialize on that pair's mutex,
// while operations on different pairs proceed in parallel. There is no
// global ledger lock.
type pairLocks struct {
	mu    sync.Mutex
	locks map[pairKey]*sync.Mutex
}

func newPairLocks() *pairLocks {
	return &pairLocks{
		locks: make(map[pairKey]*sync.Mutex),
	}
}

func (p *pairLocks) get(variantID, locationID string) *sync.Mutex {
	key := pairKey{variantID, locationID}

	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.locks[key]
	if !ok {
		m = &sync.Mutex{}
		p.locks[key] = m
	}
	return m
}
