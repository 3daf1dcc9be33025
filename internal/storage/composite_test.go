package storage_test

import (
	"errors"
	"testing"

	"github.com/crossex/cross/internal/storage"
	"github.com/crossex/cross/internal/types"
)

// fakeStore records appends and serves canned reads
type fakeStore struct {
	records   []*types.TradeRecord
	appendErr error
	maxID     uint64
	maxIDErr  error
}

func (f *fakeStore) Append(bid, ask *types.TradeRecord) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.records = append(f.records, bid, ask)
	return nil
}

func (f *fakeStore) LoadAll() ([]*types.TradeRecord, error) { return f.records, nil }

func (f *fakeStore) Recent(limit int) ([]*types.TradeRecord, error) { return f.records, nil }

func (f *fakeStore) MaxOrderID() (uint64, error) { return f.maxID, f.maxIDErr }

func (f *fakeStore) Close() error { return nil }

func half(orderID uint64) *types.TradeRecord {
	return &types.TradeRecord{OrderID: orderID, Side: "bid", OrderType: "limit", Size: 1, Price: 1, Timestamp: 1}
}

// TestCompositeWritesAll fans every append out to all layers
func TestCompositeWritesAll(t *testing.T) {
	first := &fakeStore{}
	second := &fakeStore{}
	composite := storage.NewCompositeTradeStore(first, second)

	if err := composite.Append(half(1), half(2)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if len(first.records) != 2 || len(second.records) != 2 {
		t.Errorf("Expected both layers written, got %d / %d", len(first.records), len(second.records))
	}
}

// TestCompositeAppendKeepsGoing still writes healthy layers when one fails
func TestCompositeAppendKeepsGoing(t *testing.T) {
	broken := &fakeStore{appendErr: errors.New("down")}
	healthy := &fakeStore{}
	composite := storage.NewCompositeTradeStore(broken, healthy)

	if err := composite.Append(half(1), half(2)); err == nil {
		t.Error("Expected the layer error surfaced")
	}
	if len(healthy.records) != 2 {
		t.Errorf("Expected healthy layer written, got %d", len(healthy.records))
	}
}

// TestCompositeReadsFirstNonEmpty falls through empty layers on reads
func TestCompositeReadsFirstNonEmpty(t *testing.T) {
	empty := &fakeStore{}
	populated := &fakeStore{records: []*types.TradeRecord{half(7)}}
	composite := storage.NewCompositeTradeStore(empty, populated)

	records, err := composite.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(records) != 1 || records[0].OrderID != 7 {
		t.Errorf("Expected fallthrough to populated layer, got %+v", records)
	}
}

// TestCompositeMaxOrderID takes the maximum over answering layers
func TestCompositeMaxOrderID(t *testing.T) {
	low := &fakeStore{maxID: 3}
	high := &fakeStore{maxID: 9}
	broken := &fakeStore{maxIDErr: errors.New("down")}
	composite := storage.NewCompositeTradeStore(low, broken, high)

	maxID, err := composite.MaxOrderID()
	if err != nil {
		t.Fatalf("Expected success while one layer answers, got %v", err)
	}
	if maxID != 9 {
		t.Errorf("Expected max 9, got %d", maxID)
	}
}

// TestCompositeMaxOrderIDAllFail propagates when nothing answers
func TestCompositeMaxOrderIDAllFail(t *testing.T) {
	broken := &fakeStore{maxIDErr: errors.New("down")}
	composite := storage.NewCompositeTradeStore(broken)

	if _, err := composite.MaxOrderID(); err == nil {
		t.Error("Expected error when every layer fails")
	}
}
