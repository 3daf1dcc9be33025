package service

import (
	"fmt"
	"net"
	"time"

	"github.com/crossex/cross/internal/history"
	"github.com/crossex/cross/internal/logger"
	"github.com/crossex/cross/internal/market"
	"github.com/crossex/cross/internal/matching"
	"github.com/crossex/cross/internal/notify"
	"github.com/crossex/cross/internal/storage"
	"github.com/crossex/cross/internal/types"
)

// Exchange is the trading facade: it owns the engine, allocates order
// ids, maintains market state and wires every execution into
// notifications and the durable trade log through a single onTrade
// closure. One Exchange handle is shared by all request handlers.
type Exchange struct {
	engine *matching.Engine
	ids    *matching.IDGenerator
	state  *market.State
	store  storage.TradeStore
	fanout *notify.Fanout
}

// NewExchange assembles the facade around an already-seeded id
// generator and recovered market state.
func NewExchange(
	engine *matching.Engine,
	ids *matching.IDGenerator,
	state *market.State,
	store storage.TradeStore,
	fanout *notify.Fanout,
) *Exchange {
	return &Exchange{
		engine: engine,
		ids:    ids,
		state:  state,
		store:  store,
		fanout: fanout,
	}
}

// MarketPrice returns the last-traded price (advisory read)
func (e *Exchange) MarketPrice() int64 {
	return e.state.Last()
}

// Engine exposes the matching engine for control-plane snapshots
func (e *Exchange) Engine() *matching.Engine {
	return e.engine
}

// InsertLimit validates, allocates an id, rests the order and matches.
// Returns the order id, or -1 when validation fails.
func (e *Exchange) InsertLimit(user string, side types.SideType, size, price int64) int64 {
	if !validOrder(side, size, price) {
		ordersRejected.Inc()
		return types.InvalidOrderID
	}

	id := e.ids.Next()
	o := types.NewOrder(id, user, types.LimitOrder, side, size, price, 0)
	e.engine.InsertLimit(o, e.onTrade)
	ordersTotal.WithLabelValues("limit").Inc()
	return int64(id)
}

// InsertMarket validates, allocates an id and executes against the
// contra book. The id is returned regardless of fill level; the client
// learns completion through the fill push channel.
func (e *Exchange) InsertMarket(user string, side types.SideType, size int64) int64 {
	if !validOrder(side, size, 1) {
		ordersRejected.Inc()
		return types.InvalidOrderID
	}

	id := e.ids.Next()
	o := types.NewOrder(id, user, types.MarketOrder, side, size, 0, 0)
	if fullyFilled := e.engine.InsertMarket(o, e.onTrade); !fullyFilled {
		logger.Debug("market order partially filled", map[string]interface{}{
			"orderId":   id,
			"remaining": o.Remaining,
		})
	}
	ordersTotal.WithLabelValues("market").Inc()
	return int64(id)
}

// InsertStop validates the stop-price rule against the current market
// price and arms the stop. Returns -1 when the price sits on the wrong
// side of the market.
func (e *Exchange) InsertStop(user string, side types.SideType, size, stopPrice int64) int64 {
	if !validOrder(side, size, stopPrice) {
		ordersRejected.Inc()
		return types.InvalidOrderID
	}

	id := e.ids.Next()
	o := types.NewOrder(id, user, types.StopOrder, side, size, 0, stopPrice)
	if !e.engine.InsertStop(o, e.state.Last()) {
		ordersRejected.Inc()
		return types.InvalidOrderID
	}
	ordersTotal.WithLabelValues("stop").Inc()
	return int64(id)
}

// Cancel removes a resting or armed order owned by user. Returns 100 on
// success, 101 for anything else (unknown id, foreign owner, market
// order, already executed).
func (e *Exchange) Cancel(user string, orderID uint64) int {
	if e.engine.Cancel(user, orderID) {
		return types.CodeOK
	}
	return types.CodeNotAuthorized
}

// PriceHistory aggregates the full persisted log for an MMYYYY month
func (e *Exchange) PriceHistory(month string) (*history.MonthSummary, error) {
	records, err := e.store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("loading trade log: %w", err)
	}
	return history.Monthly(records, month)
}

// RecentTrades returns the N most recent half-records for the control
// plane.
func (e *Exchange) RecentTrades(limit int) ([]*types.TradeRecord, error) {
	return e.store.Recent(limit)
}

// RegisterPriceAlert arms a one-shot threshold for the user. The
// threshold must sit strictly above the current market price.
func (e *Exchange) RegisterPriceAlert(user string, threshold int64) bool {
	if threshold <= e.state.Last() {
		return false
	}
	e.state.Arm(user, threshold)
	return true
}

// RegisterNotify binds the user's UDP fill address, replacing any
// previous login's address.
func (e *Exchange) RegisterNotify(user string, addr *net.UDPAddr) {
	e.fanout.Register(user, addr)
}

// DropUser clears everything tied to a session on logout or disconnect:
// the fill address and any armed thresholds. Resting orders survive.
func (e *Exchange) DropUser(user string) {
	e.fanout.Unregister(user)
	e.state.DropUser(user)
}

// ActiveUsers returns the users currently registered for notifications
func (e *Exchange) ActiveUsers() []string {
	return e.fanout.ActiveUsers()
}

// onTrade applies the full effect of one execution. It runs under the
// engine lock, so each trade is completely committed before the next
// one. Order of effects: price update, per-owner fill pushes, threshold
// alerts on a price change, then the durable append. An append failure
// is logged and does not roll back the in-memory trade.
func (e *Exchange) onTrade(bid, ask *types.Order, size, price int64) {
	now := time.Now()
	ts := now.Unix()

	oldPrice := e.state.Last()
	e.state.SetLast(price)

	tradesTotal.Inc()
	tradeVolume.Add(float64(size))

	e.fanout.PublishFill(bid.User, &notify.FillFrame{
		Notification: "closedTrades",
		Trades: []notify.FillTrade{{
			OrderID:      bid.ID,
			Side:         bid.Side.String(),
			Kind:         bid.OrderType.String(),
			Size:         size,
			Price:        price,
			Counterparty: ask.User,
			Timestamp:    ts,
		}},
	})
	e.fanout.PublishFill(ask.User, &notify.FillFrame{
		Notification: "closedTrades",
		Trades: []notify.FillTrade{{
			OrderID:      ask.ID,
			Side:         ask.Side.String(),
			Kind:         ask.OrderType.String(),
			Size:         size,
			Price:        price,
			Counterparty: bid.User,
			Timestamp:    ts,
		}},
	})

	if oldPrice != price {
		for _, alert := range e.state.Fire(price) {
			alertsFired.Inc()
			e.fanout.PublishThreshold(&notify.ThresholdFrame{
				Type:           "priceThreshold",
				Username:       alert.User,
				ThresholdPrice: alert.Threshold,
				CurrentPrice:   price,
				Message:        fmt.Sprintf("market price reached %d", alert.Threshold),
				Timestamp:      now.UnixMilli(),
			})
		}
	}

	bidHalf := types.NewTradeRecord(bid, size, price, ts)
	askHalf := types.NewTradeRecord(ask, size, price, ts)
	if err := e.store.Append(bidHalf, askHalf); err != nil {
		logAppendFailures.Inc()
		logger.Error("trade log append failed", map[string]interface{}{
			"bidOrder": bid.ID,
			"askOrder": ask.ID,
			"error":    err.Error(),
		})
	}
}

func validOrder(side types.SideType, size, price int64) bool {
	return (side == types.Bid || side == types.Ask) && size > 0 && price > 0
}
