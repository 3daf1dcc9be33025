package storage

import "github.com/crossex/cross/internal/types"

// TradeStore abstracts trade-log storage and retrieval operations.
// Every execution produces two half-records, one per matched order,
// sharing the same size, price and timestamp; Append persists both so
// transactional backends can keep them atomic.
// Implementations can be file-backed, in-memory buffer, Redis, PostgreSQL.
type TradeStore interface {
	// Append persists the two half-records of one execution
	Append(bid, ask *types.TradeRecord) error

	// LoadAll returns every persisted record in append order
	LoadAll() ([]*types.TradeRecord, error)

	// Recent retrieves the N most recent records
	Recent(limit int) ([]*types.TradeRecord, error)

	// MaxOrderID returns the highest order id appearing in the log,
	// zero when the log is empty
	MaxOrderID() (uint64, error)

	// Close releases any resources held by the store
	Close() error
}
