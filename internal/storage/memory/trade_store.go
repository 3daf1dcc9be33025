package memory

import (
	"sync"

	"github.com/crossex/cross/internal/types"
)

// TradeStore implements storage.TradeStore using a circular buffer.
// Keeps only the N most recent records in memory; the durable file
// store remains the source of truth for the full log.
type TradeStore struct {
	records []*types.TradeRecord
	maxSize int
	mutex   sync.RWMutex
}

// NewTradeStore creates a new in-memory trade store with a size limit
func NewTradeStore(maxSize int) *TradeStore {
	return &TradeStore{
		records: make([]*types.TradeRecord, 0, maxSize),
		maxSize: maxSize,
	}
}

func (s *TradeStore) Append(bid, ask *types.TradeRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.records = append(s.records, bid, ask)

	// Trim to max size (circular buffer behavior)
	if len(s.records) > s.maxSize {
		s.records = s.records[len(s.records)-s.maxSize:]
	}

	return nil
}

// LoadAll returns nothing: the buffer is bounded, so it can never claim
// to hold the full log. The composite store falls through to a durable
// backend for complete reads.
func (s *TradeStore) LoadAll() ([]*types.TradeRecord, error) {
	return []*types.TradeRecord{}, nil
}

func (s *TradeStore) Recent(limit int) ([]*types.TradeRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}

	start := len(s.records) - limit
	out := make([]*types.TradeRecord, limit)
	copy(out, s.records[start:])
	return out, nil
}

// MaxOrderID reports over the retained window only; seeding reads the
// durable store first through the composite maximum.
func (s *TradeStore) MaxOrderID() (uint64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var maxID uint64
	for _, r := range s.records {
		if r.OrderID > maxID {
			maxID = r.OrderID
		}
	}
	return maxID, nil
}

func (s *TradeStore) Close() error {
	// No cleanup needed for in-memory store
	return nil
}
