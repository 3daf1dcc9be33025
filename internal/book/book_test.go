package book_test

import (
	"testing"

	"github.com/crossex/cross/internal/book"
	"github.com/crossex/cross/internal/types"
)

func order(id uint64, side types.SideType, size, price int64) *types.Order {
	return types.NewOrder(id, "user", types.LimitOrder, side, size, price, 0)
}

// TestBestSides checks best = max bid and min ask
func TestBestSides(t *testing.T) {
	b := book.NewPriceBook()

	b.Add(order(1, types.Bid, 100, 58_000_000))
	b.Add(order(2, types.Bid, 100, 58_500_000))
	b.Add(order(3, types.Ask, 100, 59_500_000))
	b.Add(order(4, types.Ask, 100, 59_000_000))

	if best, ok := b.Best(types.Bid); !ok || best != 58_500_000 {
		t.Errorf("Expected best bid 58500000, got %d (ok=%v)", best, ok)
	}
	if best, ok := b.Best(types.Ask); !ok || best != 59_000_000 {
		t.Errorf("Expected best ask 59000000, got %d (ok=%v)", best, ok)
	}
}

// TestEmptyBook returns no best price
func TestEmptyBook(t *testing.T) {
	b := book.NewPriceBook()
	if _, ok := b.Best(types.Bid); ok {
		t.Error("Expected no best bid in empty book")
	}
	if b.Head(types.Ask, 58_000_000) != nil {
		t.Error("Expected nil head at absent level")
	}
}

// TestFIFOWithinLevel preserves insertion order at one price
func TestFIFOWithinLevel(t *testing.T) {
	b := book.NewPriceBook()

	first := order(1, types.Bid, 100, 58_000_000)
	second := order(2, types.Bid, 200, 58_000_000)
	b.Add(first)
	b.Add(second)

	if head := b.Head(types.Bid, 58_000_000); head != first {
		t.Errorf("Expected order 1 at head, got %d", head.ID)
	}

	b.PopHead(types.Bid, 58_000_000)
	if head := b.Head(types.Bid, 58_000_000); head != second {
		t.Errorf("Expected order 2 at head after pop, got %v", head)
	}

	// Level disappears once empty
	b.PopHead(types.Bid, 58_000_000)
	if _, ok := b.Best(types.Bid); ok {
		t.Error("Expected level dropped after last pop")
	}
}

// TestRemoveByIdentity removes a specific resting order and keeps peers
func TestRemoveByIdentity(t *testing.T) {
	b := book.NewPriceBook()

	first := order(1, types.Ask, 100, 59_000_000)
	second := order(2, types.Ask, 200, 59_000_000)
	b.Add(first)
	b.Add(second)

	if !b.Remove(first) {
		t.Fatal("Expected remove to succeed")
	}
	if b.Remove(first) {
		t.Error("Expected second remove to fail")
	}
	if head := b.Head(types.Ask, 59_000_000); head != second {
		t.Errorf("Expected order 2 still resting, got %v", head)
	}
}

// TestTotalLiquidity sums remaining size per side
func TestTotalLiquidity(t *testing.T) {
	b := book.NewPriceBook()

	b.Add(order(1, types.Bid, 100, 58_000_000))
	withRemainder := order(2, types.Bid, 500, 58_200_000)
	withRemainder.Remaining = 300
	b.Add(withRemainder)
	b.Add(order(3, types.Ask, 50, 59_000_000))

	if got := b.TotalLiquidity(types.Bid); got != 400 {
		t.Errorf("Expected bid liquidity 400, got %d", got)
	}
	if got := b.TotalLiquidity(types.Ask); got != 50 {
		t.Errorf("Expected ask liquidity 50, got %d", got)
	}
}

// TestDepthOrdering walks levels in priority order with a cap
func TestDepthOrdering(t *testing.T) {
	b := book.NewPriceBook()

	b.Add(order(1, types.Bid, 100, 58_000_000))
	b.Add(order(2, types.Bid, 100, 58_400_000))
	b.Add(order(3, types.Bid, 100, 58_200_000))
	b.Add(order(4, types.Bid, 100, 58_200_000))

	levels := b.Depth(types.Bid, 2)
	if len(levels) != 2 {
		t.Fatalf("Expected 2 levels, got %d", len(levels))
	}
	if levels[0].Price != 58_400_000 || levels[1].Price != 58_200_000 {
		t.Errorf("Expected descending bid levels, got %+v", levels)
	}
	if levels[1].Size != 200 || levels[1].Orders != 2 {
		t.Errorf("Expected aggregated level size 200 over 2 orders, got %+v", levels[1])
	}
}
