package admin

import "time"

// HealthResponse reports process liveness and basic exchange gauges
type HealthResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	MarketPrice   int64     `json:"market_price"`
	LiveOrders    int       `json:"live_orders"`
	ArmedStops    int       `json:"armed_stops"`
}

// PriceLevel is one aggregated book level in API responses
type PriceLevel struct {
	Price      int64 `json:"price"`
	Size       int64 `json:"size"`
	OrderCount int   `json:"order_count"`
}

// OrderBookResponse is the two-sided depth snapshot
type OrderBookResponse struct {
	Timestamp time.Time    `json:"timestamp"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
}

// TopOfBookResponse is the best bid/ask snapshot
type TopOfBookResponse struct {
	Timestamp time.Time   `json:"timestamp"`
	BestBid   *PriceLevel `json:"best_bid"`
	BestAsk   *PriceLevel `json:"best_ask"`
	Spread    *int64      `json:"spread"`
}

// TradeDTO is one persisted half-record in API responses
type TradeDTO struct {
	OrderID   uint64 `json:"order_id"`
	Side      string `json:"side"`
	OrderType string `json:"order_type"`
	Size      int64  `json:"size"`
	Price     int64  `json:"price"`
	Timestamp int64  `json:"timestamp"`
}

// TradesResponse is the recent-trades listing
type TradesResponse struct {
	Count  int        `json:"count"`
	Trades []TradeDTO `json:"trades"`
}

// RegisterRequest creates a new user account
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ErrorResponse is the generic failure envelope
type ErrorResponse struct {
	Error string `json:"error"`
}

// RegisterResponse acknowledges account creation
type RegisterResponse struct {
	Username string `json:"username"`
	Created  bool   `json:"created"`
}
