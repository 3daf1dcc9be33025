package types

// TradeRecord is one persisted half of an execution: every trade produces
// two records, one per counterparty side, with identical size, price and
// timestamp. Field names follow the on-disk trade log document.
type TradeRecord struct {
	OrderID   uint64 `json:"orderId"`
	Side      string `json:"type"`      // "bid" or "ask"
	OrderType string `json:"orderType"` // "limit", "market" or "stop"
	Size      int64  `json:"size"`      // mBTC
	Price     int64  `json:"price"`     // mUSD
	Timestamp int64  `json:"timestamp"` // seconds since epoch, UTC
}

// NewTradeRecord builds the half-record for one side of an execution
func NewTradeRecord(o *Order, size, price, timestamp int64) *TradeRecord {
	return &TradeRecord{
		OrderID:   o.ID,
		Side:      o.Side.String(),
		OrderType: o.OrderType.String(),
		Size:      size,
		Price:     price,
		Timestamp: timestamp,
	}
}
