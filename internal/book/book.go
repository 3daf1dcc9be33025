package book

import (
	"github.com/google/btree"

	"github.com/crossex/cross/internal/types"
)

const btreeDegree = 32

// priceLevel is one price on one side of the book: a FIFO queue of
// resting limit orders sharing that price. Implements btree.Item.
type priceLevel struct {
	price  int64
	orders []*types.Order
}

// Less orders levels by ascending price
func (l *priceLevel) Less(than btree.Item) bool {
	return l.price < than.(*priceLevel).price
}

func (l *priceLevel) empty() bool {
	return len(l.orders) == 0
}

// bookSide is one side of the order book (bids or asks)
type bookSide struct {
	tree *btree.BTree
	desc bool // true for bids: best = highest price
}

func newBookSide(desc bool) *bookSide {
	return &bookSide{
		tree: btree.New(btreeDegree),
		desc: desc,
	}
}

func (s *bookSide) get(price int64) *priceLevel {
	item := s.tree.Get(&priceLevel{price: price})
	if item == nil {
		return nil
	}
	return item.(*priceLevel)
}

func (s *bookSide) getOrCreate(price int64) *priceLevel {
	level := s.get(price)
	if level == nil {
		level = &priceLevel{price: price}
		s.tree.ReplaceOrInsert(level)
	}
	return level
}

func (s *bookSide) remove(price int64) {
	s.tree.Delete(&priceLevel{price: price})
}

// best returns the best price level: Max for bids, Min for asks
func (s *bookSide) best() *priceLevel {
	var item btree.Item
	if s.desc {
		item = s.tree.Max()
	} else {
		item = s.tree.Min()
	}
	if item == nil {
		return nil
	}
	return item.(*priceLevel)
}

// iterate walks levels in matching-priority order: descending for bids,
// ascending for asks.
func (s *bookSide) iterate(fn func(*priceLevel) bool) {
	if s.desc {
		s.tree.Descend(func(item btree.Item) bool {
			return fn(item.(*priceLevel))
		})
	} else {
		s.tree.Ascend(func(item btree.Item) bool {
			return fn(item.(*priceLevel))
		})
	}
}

// Level is a read-only snapshot of one price level
type Level struct {
	Price  int64
	Size   int64 // total remaining size at this price
	Orders int
}

// PriceBook holds the resting limit orders on both sides, each side an
// ordered map from price to a FIFO of orders. The matching engine is the
// only mutator; all calls must happen under the engine's lock.
type PriceBook struct {
	bids *bookSide
	asks *bookSide
}

// NewPriceBook creates an empty book
func NewPriceBook() *PriceBook {
	return &PriceBook{
		bids: newBookSide(true),
		asks: newBookSide(false),
	}
}

func (b *PriceBook) side(s types.SideType) *bookSide {
	if s == types.Bid {
		return b.bids
	}
	return b.asks
}

// Add appends the order to the FIFO at its limit price, creating the
// level when absent.
func (b *PriceBook) Add(o *types.Order) {
	level := b.side(o.Side).getOrCreate(o.Price)
	level.orders = append(level.orders, o)
}

// Best returns the best price on a side: highest bid or lowest ask
func (b *PriceBook) Best(s types.SideType) (int64, bool) {
	level := b.side(s).best()
	if level == nil {
		return 0, false
	}
	return level.price, true
}

// Head returns the oldest order at the given price, or nil
func (b *PriceBook) Head(s types.SideType, price int64) *types.Order {
	level := b.side(s).get(price)
	if level == nil || level.empty() {
		return nil
	}
	return level.orders[0]
}

// PopHead removes the oldest order at the given price, dropping the
// level once it is empty.
func (b *PriceBook) PopHead(s types.SideType, price int64) {
	side := b.side(s)
	level := side.get(price)
	if level == nil || level.empty() {
		return
	}
	level.orders = level.orders[1:]
	if level.empty() {
		side.remove(price)
	}
}

// Remove locates the order by side and limit price and removes the first
// matching identity in the FIFO. Returns false if the order is not resting.
func (b *PriceBook) Remove(o *types.Order) bool {
	side := b.side(o.Side)
	level := side.get(o.Price)
	if level == nil {
		return false
	}
	for i, resting := range level.orders {
		if resting == o {
			level.orders = append(level.orders[:i], level.orders[i+1:]...)
			if level.empty() {
				side.remove(o.Price)
			}
			return true
		}
	}
	return false
}

// OrdersAt returns the FIFO at a price in time order
func (b *PriceBook) OrdersAt(s types.SideType, price int64) []*types.Order {
	level := b.side(s).get(price)
	if level == nil {
		return nil
	}
	out := make([]*types.Order, len(level.orders))
	copy(out, level.orders)
	return out
}

// TotalLiquidity sums remaining size over all resting orders on a side
func (b *PriceBook) TotalLiquidity(s types.SideType) int64 {
	var total int64
	b.side(s).iterate(func(level *priceLevel) bool {
		for _, o := range level.orders {
			total += o.Remaining
		}
		return true
	})
	return total
}

// Depth returns up to n levels in matching-priority order
func (b *PriceBook) Depth(s types.SideType, n int) []Level {
	levels := make([]Level, 0, n)
	b.side(s).iterate(func(level *priceLevel) bool {
		if len(levels) >= n {
			return false
		}
		snap := Level{Price: level.price, Orders: len(level.orders)}
		for _, o := range level.orders {
			snap.Size += o.Remaining
		}
		levels = append(levels, snap)
		return true
	})
	return levels
}

// Levels returns the number of distinct prices on a side
func (b *PriceBook) Levels(s types.SideType) int {
	return b.side(s).tree.Len()
}
