package matching

import (
	"sync"

	"github.com/crossex/cross/internal/book"
	"github.com/crossex/cross/internal/types"
)

// TradeFn is called once per execution with the two matched orders, the
// executed size and the execution price. It runs synchronously under the
// engine lock so all effects of one trade are applied before the next
// request is processed.
type TradeFn func(bid, ask *types.Order, size, price int64)

// Engine is the only mutator of the price book. A single mutex serializes
// every operation; one lock acquisition is the atomicity unit for a full
// matching session including any stop-order activation chain it causes.
//
// Execution price convention: when limit orders cross, the trade prints
// at the best ask (the resting contra side of the aggressive insertion);
// market orders pay each resting order's own limit price. The ask-side
// convention for limit crosses is deliberate and kept for consistency.
type Engine struct {
	mu       sync.Mutex
	book     *book.PriceBook
	registry *Registry
	stops    *StopBook
}

// NewEngine creates an engine with an empty book and stop set
func NewEngine() *Engine {
	return &Engine{
		book:     book.NewPriceBook(),
		registry: NewRegistry(),
		stops:    NewStopBook(),
	}
}

// Registry exposes the live-order identity map (safe for concurrent reads)
func (e *Engine) Registry() *Registry {
	return e.registry
}

// InsertLimit registers the order, rests it on its side of the book and
// drains any crossing liquidity, activating triggered stops before
// returning.
func (e *Engine) InsertLimit(o *types.Order, fn TradeFn) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.registry.Add(o)
	e.book.Add(o)
	e.session(fn, func(emit TradeFn) {
		e.matchLimits(emit)
	})
}

// InsertMarket executes the order immediately against the contra book.
// The order never rests: whatever cannot fill is abandoned, and the
// registry entry is removed when the call returns. Reports whether the
// order filled completely.
func (e *Engine) InsertMarket(o *types.Order, fn TradeFn) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.session(fn, func(emit TradeFn) {
		e.executeMarket(o, emit)
	})
	e.registry.Remove(o.ID)
	return o.Remaining == 0
}

// InsertStop arms a stop order after checking its price sits on the
// triggering side of the current market price.
func (e *Engine) InsertStop(o *types.Order, marketPrice int64) bool {
	if !ValidStopPrice(o.Side, o.StopPrice, marketPrice) {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.registry.Add(o)
	e.stops.Add(o)
	return true
}

// Cancel removes a resting limit order or an armed stop order. It
// succeeds only when the order exists, belongs to user and is still held
// somewhere it can be removed from; market orders are never cancellable.
func (e *Engine) Cancel(user string, orderID uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	o := e.registry.Get(orderID)
	if o == nil || o.User != user {
		return false
	}

	var removed bool
	switch o.OrderType {
	case types.LimitOrder:
		removed = e.book.Remove(o)
	case types.StopOrder:
		removed = e.stops.Remove(orderID)
	}
	if removed {
		e.registry.Remove(orderID)
	}
	return removed
}

// session runs one matching session: the triggering operation plus the
// iterative stop-activation chain it causes. Every emitted trade queues
// its execution price; queued prices are scanned for triggered stops
// until the chain dies out, all within the single lock acquisition, so
// no re-entrant locking is ever needed. An activated stop that cannot
// fill completely does not re-arm.
func (e *Engine) session(fn TradeFn, trigger func(emit TradeFn)) {
	var pending []int64
	emit := func(bid, ask *types.Order, size, price int64) {
		fn(bid, ask, size, price)
		pending = append(pending, price)
	}

	trigger(emit)

	for len(pending) > 0 {
		price := pending[0]
		pending = pending[1:]
		for _, stop := range e.stops.TakeTriggered(price) {
			e.executeMarket(stop, emit)
			e.registry.Remove(stop.ID)
		}
	}
}

// matchLimits drains crossing liquidity: while the best bid reaches the
// best ask, the two FIFO heads trade at the best ask for the smaller
// remainder, and fully-executed orders are popped.
func (e *Engine) matchLimits(emit TradeFn) {
	for {
		bidPrice, haveBid := e.book.Best(types.Bid)
		askPrice, haveAsk := e.book.Best(types.Ask)
		if !haveBid || !haveAsk || bidPrice < askPrice {
			return
		}

		bid := e.book.Head(types.Bid, bidPrice)
		ask := e.book.Head(types.Ask, askPrice)

		size := bid.Remaining
		if ask.Remaining < size {
			size = ask.Remaining
		}

		emit(bid, ask, size, askPrice)

		bid.Remaining -= size
		ask.Remaining -= size

		if bid.Remaining == 0 {
			e.book.PopHead(types.Bid, bidPrice)
			e.registry.Remove(bid.ID)
		}
		if ask.Remaining == 0 {
			e.book.PopHead(types.Ask, askPrice)
			e.registry.Remove(ask.ID)
		}
	}
}

// executeMarket walks the contra book best-price-first, consuming FIFO
// heads at each resting order's own price until the order fills or the
// contra side is exhausted. The remainder, if any, stays on the order.
func (e *Engine) executeMarket(o *types.Order, emit TradeFn) {
	contra := o.Side.Opposite()

	for o.Remaining > 0 {
		price, ok := e.book.Best(contra)
		if !ok {
			return
		}
		resting := e.book.Head(contra, price)

		size := o.Remaining
		if resting.Remaining < size {
			size = resting.Remaining
		}

		bid, ask := o, resting
		if o.Side == types.Ask {
			bid, ask = resting, o
		}
		emit(bid, ask, size, resting.Price)

		o.Remaining -= size
		resting.Remaining -= size

		if resting.Remaining == 0 {
			e.book.PopHead(contra, price)
			e.registry.Remove(resting.ID)
		}
	}
}

// Snapshot helpers for the control plane. They take the engine lock so
// the view is consistent with completed matching sessions.

// Depth returns up to n levels of one side in priority order
func (e *Engine) Depth(side types.SideType, n int) []book.Level {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Depth(side, n)
}

// TotalLiquidity sums the remaining size resting on one side
func (e *Engine) TotalLiquidity(side types.SideType) int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.TotalLiquidity(side)
}

// ArmedStops returns the number of armed stop orders
func (e *Engine) ArmedStops() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stops.Len()
}
