package history_test

import (
	"testing"
	"time"

	"github.com/crossex/cross/internal/history"
	"github.com/crossex/cross/internal/types"
)

func record(orderID uint64, side string, size, price int64, ts time.Time) *types.TradeRecord {
	return &types.TradeRecord{
		OrderID:   orderID,
		Side:      side,
		OrderType: "limit",
		Size:      size,
		Price:     price,
		Timestamp: ts.Unix(),
	}
}

// TestMonthlySingleDay aggregates two half-records on one day
func TestMonthlySingleDay(t *testing.T) {
	day := time.Date(2024, time.July, 3, 10, 0, 0, 0, time.UTC)
	records := []*types.TradeRecord{
		record(1, "bid", 100, 60_000_000, day),
		record(2, "ask", 200, 61_000_000, day.Add(2*time.Hour)),
	}

	summary, err := history.Monthly(records, "072024")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if summary.TotalDays != 1 || summary.TotalTrades != 2 {
		t.Fatalf("Expected 1 day / 2 trades, got %d / %d", summary.TotalDays, summary.TotalTrades)
	}

	ds := summary.PriceHistory[0]
	if ds.Date != "2024-07-03" {
		t.Errorf("Expected date 2024-07-03, got %s", ds.Date)
	}
	if ds.OpenPrice != 60_000_000 || ds.ClosePrice != 61_000_000 {
		t.Errorf("Expected open 60M close 61M, got %d / %d", ds.OpenPrice, ds.ClosePrice)
	}
	if ds.HighPrice != 61_000_000 || ds.LowPrice != 60_000_000 {
		t.Errorf("Expected high 61M low 60M, got %d / %d", ds.HighPrice, ds.LowPrice)
	}
	if ds.Volume != 300 || ds.TradesCount != 2 {
		t.Errorf("Expected volume 300 over 2 trades, got %d / %d", ds.Volume, ds.TradesCount)
	}
	if ds.BidTrades != 1 || ds.AskTrades != 1 {
		t.Errorf("Expected one record per side, got %d / %d", ds.BidTrades, ds.AskTrades)
	}
}

// TestMonthlyFiltersOtherMonths keeps only the selected month and year
func TestMonthlyFiltersOtherMonths(t *testing.T) {
	july := time.Date(2024, time.July, 10, 12, 0, 0, 0, time.UTC)
	august := time.Date(2024, time.August, 1, 12, 0, 0, 0, time.UTC)
	julyLastYear := time.Date(2023, time.July, 10, 12, 0, 0, 0, time.UTC)

	records := []*types.TradeRecord{
		record(1, "bid", 100, 60_000_000, july),
		record(2, "ask", 100, 60_000_000, august),
		record(3, "bid", 100, 60_000_000, julyLastYear),
	}

	summary, err := history.Monthly(records, "072024")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if summary.TotalTrades != 1 {
		t.Errorf("Expected 1 record in July 2024, got %d", summary.TotalTrades)
	}
}

// TestMonthlyDaysAscending emits days in date order regardless of input
// order
func TestMonthlyDaysAscending(t *testing.T) {
	d3 := time.Date(2024, time.July, 3, 9, 0, 0, 0, time.UTC)
	d1 := time.Date(2024, time.July, 1, 9, 0, 0, 0, time.UTC)

	records := []*types.TradeRecord{
		record(1, "bid", 100, 60_000_000, d3),
		record(2, "ask", 100, 61_000_000, d1),
	}

	summary, err := history.Monthly(records, "072024")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if summary.TotalDays != 2 {
		t.Fatalf("Expected 2 days, got %d", summary.TotalDays)
	}
	if summary.PriceHistory[0].Date != "2024-07-01" || summary.PriceHistory[1].Date != "2024-07-03" {
		t.Errorf("Days out of order: %+v", summary.PriceHistory)
	}
}

// TestParseMonthRejectsBadInput rejects malformed month selectors
func TestParseMonthRejectsBadInput(t *testing.T) {
	for _, bad := range []string{"", "2024", "132024", "002024", "7/2024", "jul2024", "0720245"} {
		if _, _, err := history.ParseMonth(bad); err == nil {
			t.Errorf("Expected %q rejected", bad)
		}
	}

	month, year, err := history.ParseMonth("072024")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if month != time.July || year != 2024 {
		t.Errorf("Expected July 2024, got %v %d", month, year)
	}
}

// TestMonthlyEmptyLog returns an empty summary, not an error
func TestMonthlyEmptyLog(t *testing.T) {
	summary, err := history.Monthly(nil, "012025")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if summary.TotalDays != 0 || summary.TotalTrades != 0 || len(summary.PriceHistory) != 0 {
		t.Errorf("Expected empty summary, got %+v", summary)
	}
}
