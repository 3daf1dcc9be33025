package matching

import (
	"sync"

	"github.com/crossex/cross/internal/types"
)

// Registry is the global identity map from order id to live order record.
// It is authoritative for "does this order still exist and who owns it".
// The engine mutates it under the matching lock; reads from outside the
// lock are safe and advisory.
type Registry struct {
	mu     sync.RWMutex
	orders map[uint64]*types.Order
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{orders: make(map[uint64]*types.Order)}
}

// Add registers a live order
func (r *Registry) Add(o *types.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = o
}

// Get returns the live order record, or nil
func (r *Registry) Get(orderID uint64) *types.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.orders[orderID]
}

// Remove drops the order from the registry
func (r *Registry) Remove(orderID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.orders, orderID)
}

// Len returns the number of live orders
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}
