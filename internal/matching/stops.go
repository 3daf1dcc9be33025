package matching

import (
	"sort"

	"github.com/crossex/cross/internal/types"
)

// StopBook holds the armed stop orders, bid-stops and ask-stops kept as
// disjoint sets keyed by order id. A bid-stop arms above the market and
// triggers when the last-traded price rises to its stop price; an
// ask-stop is the mirror image. All access happens under the engine lock.
type StopBook struct {
	bidStops map[uint64]*types.Order
	askStops map[uint64]*types.Order
}

// NewStopBook creates an empty stop set
func NewStopBook() *StopBook {
	return &StopBook{
		bidStops: make(map[uint64]*types.Order),
		askStops: make(map[uint64]*types.Order),
	}
}

// ValidStopPrice checks the arming rule: a bid-stop must sit above the
// current market price, an ask-stop below it.
func ValidStopPrice(side types.SideType, stopPrice, marketPrice int64) bool {
	switch side {
	case types.Bid:
		return stopPrice > marketPrice
	case types.Ask:
		return stopPrice < marketPrice
	default:
		return false
	}
}

// Add arms a stop order
func (s *StopBook) Add(o *types.Order) {
	if o.Side == types.Bid {
		s.bidStops[o.ID] = o
	} else {
		s.askStops[o.ID] = o
	}
}

// Remove disarms a stop order, reporting whether it was armed
func (s *StopBook) Remove(orderID uint64) bool {
	if _, ok := s.bidStops[orderID]; ok {
		delete(s.bidStops, orderID)
		return true
	}
	if _, ok := s.askStops[orderID]; ok {
		delete(s.askStops, orderID)
		return true
	}
	return false
}

// Len returns the number of armed stops
func (s *StopBook) Len() int {
	return len(s.bidStops) + len(s.askStops)
}

// TakeTriggered removes and returns every stop triggered by a trade at
// newPrice: bid-stops with stopPrice <= newPrice and ask-stops with
// stopPrice >= newPrice. Results are ordered by order id so activation
// order is deterministic.
func (s *StopBook) TakeTriggered(newPrice int64) []*types.Order {
	var triggered []*types.Order
	for id, o := range s.bidStops {
		if o.StopPrice <= newPrice {
			triggered = append(triggered, o)
			delete(s.bidStops, id)
		}
	}
	for id, o := range s.askStops {
		if o.StopPrice >= newPrice {
			triggered = append(triggered, o)
			delete(s.askStops, id)
		}
	}
	sort.Slice(triggered, func(i, j int) bool {
		return triggered[i].ID < triggered[j].ID
	})
	return triggered
}
