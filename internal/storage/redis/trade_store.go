package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crossex/cross/internal/types"
)

const (
	tradesKey = "trades:recent"
)

// TradeStore implements storage.TradeStore using a Redis sorted set with
// FIFO eviction. It holds a bounded recent window, not the full log.
type TradeStore struct {
	client    *redis.Client
	maxTrades int
}

// NewTradeStore creates a new Redis-backed trade store
func NewTradeStore(cfg RedisConfig) (*TradeStore, error) {
	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &TradeStore{
		client:    client,
		maxTrades: cfg.MaxTrades,
	}, nil
}

func (s *TradeStore) Append(bid, ask *types.TradeRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	pipe := s.client.Pipeline()

	// Score by execution timestamp; both half-records share it
	for _, record := range []*types.TradeRecord{bid, ask} {
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		pipe.ZAdd(ctx, tradesKey, redis.Z{
			Score:  float64(record.Timestamp),
			Member: data,
		})
	}

	// Trim to keep only last N records
	pipe.ZRemRangeByRank(ctx, tradesKey, 0, int64(-s.maxTrades-1))

	_, err := pipe.Exec(ctx)
	return err
}

// LoadAll returns nothing: the sorted set is trimmed, so it can never
// claim to hold the full log.
func (s *TradeStore) LoadAll() ([]*types.TradeRecord, error) {
	return []*types.TradeRecord{}, nil
}

func (s *TradeStore) Recent(limit int) ([]*types.TradeRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	// Newest first from the set, reversed into append order
	results, err := s.client.ZRevRange(ctx, tradesKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	records := make([]*types.TradeRecord, 0, len(results))
	for i := len(results) - 1; i >= 0; i-- {
		var record types.TradeRecord
		if err := json.Unmarshal([]byte(results[i]), &record); err != nil {
			continue
		}
		records = append(records, &record)
	}

	return records, nil
}

func (s *TradeStore) MaxOrderID() (uint64, error) {
	records, err := s.Recent(s.maxTrades)
	if err != nil {
		return 0, err
	}

	var maxID uint64
	for _, r := range records {
		if r.OrderID > maxID {
			maxID = r.OrderID
		}
	}
	return maxID, nil
}

func (s *TradeStore) Close() error {
	return s.client.Close()
}
