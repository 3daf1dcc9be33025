package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/crossex/cross/internal/types"
)

// document is the on-disk shape of the trade log: a single JSON object
// wrapping the full record array. The whole document is rewritten on
// every append so the file is always a complete, parseable snapshot.
type document struct {
	Trades []*types.TradeRecord `json:"trades"`
}

// TradeStore is the durable file-backed trade log. It keeps the full
// record list in memory and rewrites the document through a temp file
// plus rename so a crash mid-write never leaves a truncated log.
type TradeStore struct {
	path    string
	records []*types.TradeRecord
	loadErr error
	mutex   sync.RWMutex
}

// NewTradeStore opens the trade log at path, creating parent directories
// as needed. An absent file starts an empty log. An unreadable or
// corrupt file still yields a usable store, but the load error is
// reported by LoadAll and MaxOrderID until the first successful append
// rewrites the document.
func NewTradeStore(path string) (*TradeStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create trade log directory: %w", err)
	}

	s := &TradeStore{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		s.loadErr = fmt.Errorf("failed to read trade log: %w", err)
		return s, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.loadErr = fmt.Errorf("failed to parse trade log: %w", err)
		return s, nil
	}

	s.records = doc.Trades
	return s, nil
}

func (s *TradeStore) Append(bid, ask *types.TradeRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.records = append(s.records, bid, ask)
	if err := s.flush(); err != nil {
		// Keep the in-memory log consistent with what was actually persisted
		s.records = s.records[:len(s.records)-2]
		return err
	}
	s.loadErr = nil
	return nil
}

// flush rewrites the whole document atomically. Caller holds the lock.
func (s *TradeStore) flush() error {
	data, err := json.MarshalIndent(document{Trades: s.records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode trade log: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write trade log: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace trade log: %w", err)
	}
	return nil
}

func (s *TradeStore) LoadAll() ([]*types.TradeRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.loadErr != nil {
		return nil, s.loadErr
	}

	out := make([]*types.TradeRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *TradeStore) Recent(limit int) ([]*types.TradeRecord, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.loadErr != nil {
		return nil, s.loadErr
	}

	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}

	start := len(s.records) - limit
	out := make([]*types.TradeRecord, limit)
	copy(out, s.records[start:])
	return out, nil
}

func (s *TradeStore) MaxOrderID() (uint64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.loadErr != nil {
		return 0, s.loadErr
	}

	var maxID uint64
	for _, r := range s.records {
		if r.OrderID > maxID {
			maxID = r.OrderID
		}
	}
	return maxID, nil
}

func (s *TradeStore) Close() error {
	// All state is already on disk after the last append
	return nil
}
