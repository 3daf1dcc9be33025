package matching

import (
	"fmt"
	"sync/atomic"

	"github.com/crossex/cross/internal/storage"
)

// fallbackFirstID is used when the persisted trade log cannot be scanned:
// high enough that colliding with previously issued ids is unlikely.
const fallbackFirstID uint64 = 10_000

// IDGenerator allocates monotonic order ids. On startup it is seeded from
// the maximum order id found in the persisted trade log so ids are never
// reused across restarts.
type IDGenerator struct {
	next atomic.Uint64
}

// NewIDGenerator seeds the allocator from the trade store. An absent or
// empty log starts at 1. A failed scan starts at a safe high value and
// returns the error alongside the still-usable generator.
func NewIDGenerator(store storage.TradeStore) (*IDGenerator, error) {
	g := &IDGenerator{}

	maxID, err := store.MaxOrderID()
	if err != nil {
		g.next.Store(fallbackFirstID)
		return g, fmt.Errorf("seeding id generator from trade log: %w", err)
	}

	g.next.Store(maxID + 1)
	return g, nil
}

// Next allocates the next order id
func (g *IDGenerator) Next() uint64 {
	return g.next.Add(1) - 1
}

// Peek returns the id the next call to Next will allocate
func (g *IDGenerator) Peek() uint64 {
	return g.next.Load()
}
