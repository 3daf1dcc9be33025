package file_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/crossex/cross/internal/storage/file"
	"github.com/crossex/cross/internal/types"
)

func half(orderID uint64, side string, size, price, ts int64) *types.TradeRecord {
	return &types.TradeRecord{
		OrderID:   orderID,
		Side:      side,
		OrderType: "limit",
		Size:      size,
		Price:     price,
		Timestamp: ts,
	}
}

// TestAppendAndReload persists half-records across a reopen
func TestAppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "StoricoOrdini.json")

	store, err := file.NewTradeStore(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := store.Append(half(1, "bid", 100, 60_000_000, 1000), half(2, "ask", 100, 60_000_000, 1000)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(half(3, "bid", 50, 61_000_000, 1001), half(4, "ask", 50, 61_000_000, 1001)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	reopened, err := file.NewTradeStore(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}

	records, err := reopened.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("Expected 4 half-records, got %d", len(records))
	}
	if records[0].OrderID != 1 || records[3].OrderID != 4 {
		t.Errorf("Append order not preserved: %+v", records)
	}

	maxID, err := reopened.MaxOrderID()
	if err != nil {
		t.Fatalf("MaxOrderID failed: %v", err)
	}
	if maxID != 4 {
		t.Errorf("Expected max order id 4, got %d", maxID)
	}
}

// TestAbsentFileStartsEmpty treats a missing log as an empty one
func TestAbsentFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")

	store, err := file.NewTradeStore(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	records, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected empty log, got %d records", len(records))
	}

	maxID, err := store.MaxOrderID()
	if err != nil || maxID != 0 {
		t.Errorf("Expected max id 0 with no error, got %d / %v", maxID, err)
	}
}

// TestCorruptFileSurfacesError keeps the store usable but reports the
// scan failure until the next successful append
func TestCorruptFileSurfacesError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "StoricoOrdini.json")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := file.NewTradeStore(path)
	if err != nil {
		t.Fatalf("Constructor must tolerate a corrupt log, got: %v", err)
	}

	if _, err := store.MaxOrderID(); err == nil {
		t.Error("Expected MaxOrderID to report the scan failure")
	}
	if _, err := store.LoadAll(); err == nil {
		t.Error("Expected LoadAll to report the scan failure")
	}

	if err := store.Append(half(1, "bid", 100, 60_000_000, 1000), half(2, "ask", 100, 60_000_000, 1000)); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if _, err := store.LoadAll(); err != nil {
		t.Errorf("Expected load error cleared after append, got %v", err)
	}
}

// TestRecent returns the trailing window in append order
func TestRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "StoricoOrdini.json")
	store, err := file.NewTradeStore(path)
	if err != nil {
		t.Fatal(err)
	}

	for i := uint64(1); i <= 3; i++ {
		bid := half(i*2-1, "bid", 100, 60_000_000, int64(i))
		ask := half(i*2, "ask", 100, 60_000_000, int64(i))
		if err := store.Append(bid, ask); err != nil {
			t.Fatal(err)
		}
	}

	records, err := store.Recent(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	if records[0].OrderID != 4 || records[2].OrderID != 6 {
		t.Errorf("Expected trailing records 4..6, got %+v", records)
	}
}
