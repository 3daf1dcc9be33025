package history

import (
	"fmt"
	"sort"
	"time"

	"github.com/crossex/cross/internal/types"
)

// DaySummary is the OHLCV aggregate for one calendar day (GMT)
type DaySummary struct {
	Date        string `json:"date"`
	OpenPrice   int64  `json:"openPrice"`
	HighPrice   int64  `json:"highPrice"`
	LowPrice    int64  `json:"lowPrice"`
	ClosePrice  int64  `json:"closePrice"`
	Volume      int64  `json:"volume"`
	TradesCount int    `json:"tradesCount"`
	BidTrades   int    `json:"bidTrades"`
	AskTrades   int    `json:"askTrades"`
}

// MonthSummary aggregates one calendar month of the trade log
type MonthSummary struct {
	Month        string       `json:"month"`
	TotalDays    int          `json:"totalDays"`
	TotalTrades  int          `json:"totalTrades"`
	PriceHistory []DaySummary `json:"priceHistory"`
}

// ParseMonth validates an MMYYYY month selector, e.g. "072024" for July
// 2024, and returns the month and year.
func ParseMonth(s string) (time.Month, int, error) {
	if len(s) != 6 {
		return 0, 0, fmt.Errorf("month must be MMYYYY, got %q", s)
	}

	var mm, yyyy int
	if _, err := fmt.Sscanf(s, "%2d%4d", &mm, &yyyy); err != nil {
		return 0, 0, fmt.Errorf("month must be MMYYYY, got %q", s)
	}
	if mm < 1 || mm > 12 {
		return 0, 0, fmt.Errorf("month out of range: %d", mm)
	}
	if yyyy < 1970 {
		return 0, 0, fmt.Errorf("year out of range: %d", yyyy)
	}
	return time.Month(mm), yyyy, nil
}

// Monthly aggregates the trade log into per-day OHLCV summaries for the
// given MMYYYY month. Records are bucketed by their GMT calendar day;
// open and close are the time-sorted first and last prices of the day.
// Days appear in ascending date order.
func Monthly(records []*types.TradeRecord, monthSelector string) (*MonthSummary, error) {
	month, year, err := ParseMonth(monthSelector)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string][]*types.TradeRecord)
	for _, r := range records {
		t := time.Unix(r.Timestamp, 0).UTC()
		if t.Month() != month || t.Year() != year {
			continue
		}
		day := t.Format("2006-01-02")
		byDay[day] = append(byDay[day], r)
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	summary := &MonthSummary{
		Month:        monthSelector,
		PriceHistory: make([]DaySummary, 0, len(days)),
	}

	for _, day := range days {
		dayRecords := byDay[day]
		sort.SliceStable(dayRecords, func(i, j int) bool {
			return dayRecords[i].Timestamp < dayRecords[j].Timestamp
		})

		ds := DaySummary{
			Date:        day,
			OpenPrice:   dayRecords[0].Price,
			ClosePrice:  dayRecords[len(dayRecords)-1].Price,
			HighPrice:   dayRecords[0].Price,
			LowPrice:    dayRecords[0].Price,
			TradesCount: len(dayRecords),
		}
		for _, r := range dayRecords {
			if r.Price > ds.HighPrice {
				ds.HighPrice = r.Price
			}
			if r.Price < ds.LowPrice {
				ds.LowPrice = r.Price
			}
			ds.Volume += r.Size
			if r.Side == types.Bid.String() {
				ds.BidTrades++
			} else {
				ds.AskTrades++
			}
		}

		summary.PriceHistory = append(summary.PriceHistory, ds)
		summary.TotalTrades += len(dayRecords)
	}

	summary.TotalDays = len(summary.PriceHistory)
	return summary, nil
}
