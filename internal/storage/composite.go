package storage

import (
	"github.com/crossex/cross/internal/types"
)

// CompositeTradeStore combines multiple TradeStore implementations.
// Writes go to ALL stores, reads come from the FIRST store that has data.
// Example: CompositeTradeStore(fileStore, memoryStore) writes to both,
// reads the full log from the durable file and can still serve recent
// trades when the file is empty.
type CompositeTradeStore struct {
	stores []TradeStore
}

// NewCompositeTradeStore creates a composite store from multiple stores
func NewCompositeTradeStore(stores ...TradeStore) *CompositeTradeStore {
	return &CompositeTradeStore{
		stores: stores,
	}
}

func (c *CompositeTradeStore) Append(bid, ask *types.TradeRecord) error {
	// Write to all stores
	var lastErr error
	for _, store := range c.stores {
		if err := store.Append(bid, ask); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

func (c *CompositeTradeStore) LoadAll() ([]*types.TradeRecord, error) {
	// Read from first store that returns data
	var lastErr error
	for _, store := range c.stores {
		records, err := store.LoadAll()
		if err != nil {
			lastErr = err
			continue
		}
		if len(records) > 0 {
			return records, nil
		}
	}
	return []*types.TradeRecord{}, lastErr
}

func (c *CompositeTradeStore) Recent(limit int) ([]*types.TradeRecord, error) {
	// Read from first store that returns data
	for _, store := range c.stores {
		records, err := store.Recent(limit)
		if err != nil {
			continue
		}
		if len(records) > 0 {
			return records, nil
		}
	}
	return []*types.TradeRecord{}, nil
}

func (c *CompositeTradeStore) MaxOrderID() (uint64, error) {
	// Take the maximum over every store that answers; fail only when
	// all of them do
	var (
		maxID     uint64
		lastErr   error
		succeeded bool
	)
	for _, store := range c.stores {
		id, err := store.MaxOrderID()
		if err != nil {
			lastErr = err
			continue
		}
		succeeded = true
		if id > maxID {
			maxID = id
		}
	}
	if !succeeded {
		return 0, lastErr
	}
	return maxID, nil
}

func (c *CompositeTradeStore) Close() error {
	// Close all stores
	var lastErr error
	for _, store := range c.stores {
		if err := store.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
