package types

import "time"

// SideType is the side of the book an order belongs to
type SideType int8

const (
	NoActionSide SideType = iota
	Bid
	Ask
)

// Opposite returns the contra side
func (s SideType) Opposite() SideType {
	switch s {
	case Bid:
		return Ask
	case Ask:
		return Bid
	default:
		return NoActionSide
	}
}

func (s SideType) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	default:
		return "unknown"
	}
}

// ParseSide converts the wire representation ("bid"/"ask") to a SideType
func ParseSide(s string) SideType {
	switch s {
	case "bid":
		return Bid
	case "ask":
		return Ask
	default:
		return NoActionSide
	}
}

// OrderType is the kind of order
type OrderType int8

const (
	NoActionOrder OrderType = iota
	LimitOrder
	MarketOrder
	StopOrder
)

func (t OrderType) String() string {
	switch t {
	case LimitOrder:
		return "limit"
	case MarketOrder:
		return "market"
	case StopOrder:
		return "stop"
	default:
		return "unknown"
	}
}

// Order is a live order record. Prices are integer millesimi of USD (mUSD),
// sizes integer millesimi of BTC (mBTC), so all arithmetic is exact.
//
// Remaining is mutated only by the matching engine, under its lock.
type Order struct {
	ID        uint64
	User      string
	Side      SideType
	OrderType OrderType
	Size      int64 // mBTC, > 0
	Price     int64 // mUSD limit price (limit orders only)
	StopPrice int64 // mUSD trigger price (stop orders only)
	Remaining int64 // 0 < Remaining <= Size while live
	TimeStamp time.Time
}

// NewOrder creates an order with the full initial size remaining
func NewOrder(id uint64, user string, orderType OrderType, side SideType, size, price, stopPrice int64) *Order {
	return &Order{
		ID:        id,
		User:      user,
		Side:      side,
		OrderType: orderType,
		Size:      size,
		Price:     price,
		StopPrice: stopPrice,
		Remaining: size,
		TimeStamp: time.Now(),
	}
}
