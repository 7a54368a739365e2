// Package stop holds conditional (stop-loss, take-profit, stop-limit)
// orders and promotes them into the matching engine when their trigger
// condition on the BBO holds.
package stop

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	tomb "gopkg.in/tomb.v2"

	"gungnir/internal/common"
	"gungnir/internal/engine"
)

var (
	ErrMissingTrigger = errors.New("trigger_price and trigger_type required for stop orders")
	ErrBadUnderlying  = errors.New("only limit or market type supported for triggered execution")
)

// Engine is the slice of the facade the watcher needs: BBO reads to
// evaluate triggers and order submission to promote them.
type Engine interface {
	Process(order *common.Order) ([]common.Trade, error)
	BBO(symbol string) engine.BBO
}

// Watcher keeps per-symbol lists of pending conditional orders and
// evaluates them on a fixed cadence.
type Watcher struct {
	mu       sync.Mutex
	pending  map[string][]*common.Order
	engine   Engine
	interval time.Duration
}

func NewWatcher(eng Engine, interval time.Duration) *Watcher {
	return &Watcher{
		pending:  make(map[string][]*common.Order),
		engine:   eng,
		interval: interval,
	}
}

// Add validates and enqueues a conditional order. The order stays out of
// the book until its trigger fires.
func (w *Watcher) Add(order *common.Order) error {
	if order.TriggerType == common.NoTrigger || order.TriggerPrice.Sign() <= 0 {
		return ErrMissingTrigger
	}
	switch order.OrderType {
	case common.MarketOrder, common.LimitOrder:
	default:
		return ErrBadUnderlying
	}
	if order.Quantity.Sign() <= 0 {
		return engine.ErrInvalidQuantity
	}
	if order.OrderType == common.LimitOrder && order.LimitPrice.Sign() <= 0 {
		return engine.ErrMissingPrice
	}

	if order.UUID == "" {
		order.UUID = uuid.New().String()
	}
	if order.Timestamp.IsZero() {
		order.Timestamp = time.Now()
	}
	if order.TotalQuantity.Sign() <= 0 {
		order.TotalQuantity = order.Quantity
	}
	order.Status = common.StatusQueued

	w.mu.Lock()
	w.pending[order.Symbol] = append(w.pending[order.Symbol], order)
	w.mu.Unlock()

	log.Info().
		Str("symbol", order.Symbol).
		Str("uuid", order.UUID).
		Str("trigger", order.TriggerType.String()).
		Str("triggerPrice", order.TriggerPrice.String()).
		Msg("stop order queued")
	return nil
}

// Cancel removes a pending conditional order without promotion. Once an
// order has been promoted its queued id is retired and no longer
// cancellable here.
func (w *Watcher) Cancel(symbol, id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	orders := w.pending[symbol]
	for i, order := range orders {
		if order.UUID == id {
			w.pending[symbol] = append(orders[:i], orders[i+1:]...)
			order.Status = common.StatusCancelled
			log.Info().Str("symbol", symbol).Str("uuid", id).Msg("stop order cancelled")
			return true
		}
	}
	return false
}

// Pending returns copies of the queued conditional orders for symbol.
func (w *Watcher) Pending(symbol string) []common.Order {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]common.Order, 0, len(w.pending[symbol]))
	for _, order := range w.pending[symbol] {
		out = append(out, *order)
	}
	return out
}

// Run is the monitor loop. It wakes every interval, evaluates all pending
// orders against the current BBO and promotes the triggered ones.
func (w *Watcher) Run(t *tomb.Tomb) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	log.Info().Dur("interval", w.interval).Msg("stop order monitor running")
	for {
		select {
		case <-t.Dying():
			return nil
		case <-ticker.C:
			w.sweep()
		}
	}
}

// sweep runs one evaluation pass over every symbol with pending orders.
func (w *Watcher) sweep() {
	w.mu.Lock()
	triggered := make([]*common.Order, 0)
	for symbol, orders := range w.pending {
		if len(orders) == 0 {
			continue
		}
		bbo := w.engine.BBO(symbol)
		remaining := orders[:0]
		for _, order := range orders {
			if shouldTrigger(order, bbo) {
				triggered = append(triggered, order)
			} else {
				remaining = append(remaining, order)
			}
		}
		w.pending[symbol] = remaining
	}
	w.mu.Unlock()

	// Promotion happens outside the pending lock: Process takes the book
	// write lock and may itself produce trades.
	for _, order := range triggered {
		w.promote(order)
	}
}

// promote retires the queued identifier, strips the trigger fields and
// resubmits the order through the facade as its underlying type.
func (w *Watcher) promote(order *common.Order) {
	queuedID := order.UUID
	order.UUID = uuid.New().String()
	order.TriggerPrice = decimal.Decimal{}
	order.TriggerType = common.NoTrigger
	order.Status = common.StatusNew

	log.Info().
		Str("symbol", order.Symbol).
		Str("queuedUuid", queuedID).
		Str("uuid", order.UUID).
		Msg("stop order triggered")

	if _, err := w.engine.Process(order); err != nil {
		log.Error().
			Err(err).
			Str("symbol", order.Symbol).
			Str("uuid", order.UUID).
			Msg("error submitting triggered order")
	}
}

// shouldTrigger applies the trigger table against the BBO. Buys watch the
// ask, sells watch the bid; depth is never consulted.
func shouldTrigger(order *common.Order, bbo engine.BBO) bool {
	switch order.TriggerType {
	case common.StopLoss, common.StopLimit:
		if order.Side == common.Buy {
			return bbo.Ask != nil && bbo.Ask.GreaterThanOrEqual(order.TriggerPrice)
		}
		return bbo.Bid != nil && bbo.Bid.LessThanOrEqual(order.TriggerPrice)
	case common.TakeProfit:
		if order.Side == common.Buy {
			return bbo.Ask != nil && bbo.Ask.LessThanOrEqual(order.TriggerPrice)
		}
		return bbo.Bid != nil && bbo.Bid.GreaterThanOrEqual(order.TriggerPrice)
	}
	return false
}
