package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crossex/cross/internal/types"
)

// TradeStore implements storage.TradeStore using PostgreSQL. The two
// half-records of one execution are inserted in a single transaction.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new PostgreSQL-backed trade store
func NewTradeStore(cfg PostgresConfig) (*TradeStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := NewPostgresPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &TradeStore{pool: pool}, nil
}

func (s *TradeStore) Append(bid, ask *types.TradeRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO trades (order_id, side, order_type, size, price, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, record := range []*types.TradeRecord{bid, ask} {
			_, err := tx.Exec(ctx, query,
				record.OrderID, record.Side, record.OrderType,
				record.Size, record.Price, record.Timestamp,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *TradeStore) LoadAll() ([]*types.TradeRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	query := `
		SELECT order_id, side, order_type, size, price, executed_at
		FROM trades
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (s *TradeStore) Recent(limit int) ([]*types.TradeRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	// Newest rows, returned in append order
	query := `
		SELECT order_id, side, order_type, size, price, executed_at
		FROM (
			SELECT id, order_id, side, order_type, size, price, executed_at
			FROM trades
			ORDER BY id DESC
			LIMIT $1
		) recent
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (s *TradeStore) MaxOrderID() (uint64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var maxID uint64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(order_id), 0) FROM trades`).Scan(&maxID)
	if err != nil {
		return 0, err
	}
	return maxID, nil
}

func (s *TradeStore) Close() error {
	s.pool.Close()
	return nil
}

func scanRecords(rows pgx.Rows) ([]*types.TradeRecord, error) {
	records := make([]*types.TradeRecord, 0)
	for rows.Next() {
		var r types.TradeRecord
		if err := rows.Scan(&r.OrderID, &r.Side, &r.OrderType, &r.Size, &r.Price, &r.Timestamp); err != nil {
			return nil, err
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}
