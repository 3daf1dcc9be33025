package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/crossex/cross/internal/accounts"
	"github.com/crossex/cross/internal/book"
	"github.com/crossex/cross/internal/service"
	"github.com/crossex/cross/internal/types"
)

const defaultDepth = 20

var startTime = time.Now()

// Handlers serves the operator control plane over the shared Exchange
// handle. It is read-mostly: the only mutation is account registration.
type Handlers struct {
	exchange *service.Exchange
	accounts accounts.Service
}

// NewHandlers creates the control-plane handler set
func NewHandlers(exchange *service.Exchange, accountSvc accounts.Service) *Handlers {
	return &Handlers{exchange: exchange, accounts: accountSvc}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// HealthHandler reports liveness plus basic exchange gauges
func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	engine := h.exchange.Engine()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		Timestamp:     time.Now().UTC(),
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		MarketPrice:   h.exchange.MarketPrice(),
		LiveOrders:    engine.Registry().Len(),
		ArmedStops:    engine.ArmedStops(),
	})
}

func toPriceLevels(levels []book.Level) []PriceLevel {
	out := make([]PriceLevel, len(levels))
	for i, l := range levels {
		out[i] = PriceLevel{Price: l.Price, Size: l.Size, OrderCount: l.Orders}
	}
	return out
}

// OrderBookHandler returns a depth snapshot of both sides. Depth is
// capped by the ?depth= query parameter, default 20 levels.
func (h *Handlers) OrderBookHandler(w http.ResponseWriter, r *http.Request) {
	depth := defaultDepth
	if raw := r.URL.Query().Get("depth"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "depth must be a positive integer"})
			return
		}
		depth = n
	}

	engine := h.exchange.Engine()
	writeJSON(w, http.StatusOK, OrderBookResponse{
		Timestamp: time.Now().UTC(),
		Bids:      toPriceLevels(engine.Depth(types.Bid, depth)),
		Asks:      toPriceLevels(engine.Depth(types.Ask, depth)),
	})
}

// TopOfBookHandler returns the best bid, best ask and spread
func (h *Handlers) TopOfBookHandler(w http.ResponseWriter, r *http.Request) {
	engine := h.exchange.Engine()
	resp := TopOfBookResponse{Timestamp: time.Now().UTC()}

	if bids := engine.Depth(types.Bid, 1); len(bids) > 0 {
		level := toPriceLevels(bids)[0]
		resp.BestBid = &level
	}
	if asks := engine.Depth(types.Ask, 1); len(asks) > 0 {
		level := toPriceLevels(asks)[0]
		resp.BestAsk = &level
	}
	if resp.BestBid != nil && resp.BestAsk != nil {
		spread := resp.BestAsk.Price - resp.BestBid.Price
		resp.Spread = &spread
	}

	writeJSON(w, http.StatusOK, resp)
}

// TradesHandler lists the most recent half-records, ?limit= capped at 1000
func (h *Handlers) TradesHandler(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 1000 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be between 1 and 1000"})
			return
		}
		limit = n
	}

	records, err := h.exchange.RecentTrades(limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to read trade log"})
		return
	}

	trades := make([]TradeDTO, len(records))
	for i, rec := range records {
		trades[i] = TradeDTO{
			OrderID:   rec.OrderID,
			Side:      rec.Side,
			OrderType: rec.OrderType,
			Size:      rec.Size,
			Price:     rec.Price,
			Timestamp: rec.Timestamp,
		}
	}
	writeJSON(w, http.StatusOK, TradesResponse{Count: len(trades), Trades: trades})
}

// RegisterHandler creates a user account
func (h *Handlers) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
		return
	}

	err := h.accounts.Register(req.Username, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, RegisterResponse{Username: req.Username, Created: true})
	case errors.Is(err, accounts.ErrUserExists):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "username already taken"})
	case errors.Is(err, accounts.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "username and password must be non-empty"})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "registration failed"})
	}
}
