package engine

import (
	"github.com/shopspring/decimal"

	"gungnir/internal/common"
)

// PlaceOrder runs an admitted order through the matching pass appropriate
// for its type and returns the trades it produced. Residual handling is
// the only thing the types disagree on:
//
//	market - no price bound, residual discarded
//	limit  - price bound, residual rested in the book
//	ioc    - price bound, residual discarded
//	fok    - price bound, fills completely or is rejected untouched
func (book *OrderBook) PlaceOrder(order *common.Order) ([]common.Trade, error) {
	stamp(order)
	if order.OrderType != common.MarketOrder {
		order.LimitPrice = book.normalize(order.LimitPrice)
	}

	var trades []common.Trade
	switch order.OrderType {
	case common.MarketOrder:
		trades = book.match(order, false)
	case common.LimitOrder:
		trades = book.match(order, true)
		if order.Quantity.Sign() > 0 {
			book.rest(order)
		}
	case common.IOCOrder:
		trades = book.match(order, true)
		if order.Quantity.Sign() > 0 {
			order.Status = common.StatusCancelled
		}
	case common.FOKOrder:
		// Probe before touching the book so a failed FOK has no side
		// effects and needs no rollback.
		if !book.canFullyFill(order) {
			order.Status = common.StatusRejected
			return nil, ErrUnfillable
		}
		trades = book.match(order, true)
	default:
		order.Status = common.StatusRejected
		return nil, ErrInvalidType
	}

	book.checkInvariants()
	return trades, nil
}

// admissible reports whether a maker level at price may trade against the
// incoming order under its limit. Market orders accept every level.
func admissible(order *common.Order, price decimal.Decimal, bounded bool) bool {
	if !bounded {
		return true
	}
	if order.Side == common.Buy {
		return price.LessThanOrEqual(order.LimitPrice)
	}
	return price.GreaterThanOrEqual(order.LimitPrice)
}

// match consumes liquidity from the opposite side in best-first priority,
// walking each level's queue in arrival order. The resting order is the
// maker and dictates the execution price.
func (book *OrderBook) match(order *common.Order, bounded bool) []common.Trade {
	var trades []common.Trade
	opposite := book.sideLevels(order.Side.Opposite())

	for order.Quantity.Sign() > 0 {
		level, ok := opposite.MinMut()
		if !ok || !admissible(order, level.Price, bounded) {
			break
		}

		for elem := level.front(); elem != nil && order.Quantity.Sign() > 0; elem = level.front() {
			resting := elem.Value.(*common.Order)

			matchQty := decimal.Min(order.Quantity, resting.Quantity)
			order.Fill(matchQty)
			resting.Fill(matchQty)
			level.reduce(matchQty)

			trade := book.recorder.Record(
				book.symbol,
				level.Price,
				matchQty,
				order.Side,
				resting.UUID,
				order.UUID,
			)
			trades = append(trades, trade)

			if resting.Quantity.Sign() == 0 {
				book.unindex(level, elem, resting)
			}
		}

		if level.Empty() {
			opposite.Delete(level)
		} else {
			// The front maker outlived the incoming order; the level
			// retains liquidity and the pass is over.
			break
		}
	}
	return trades
}

// canFullyFill is the non-destructive FOK feasibility probe: sum opposite
// aggregate quantities at admissible prices until the order would be
// satisfied.
func (book *OrderBook) canFullyFill(order *common.Order) bool {
	available := decimal.Zero
	enough := false
	book.sideLevels(order.Side.Opposite()).Scan(func(level *PriceLevel) bool {
		if !admissible(order, level.Price, true) {
			return false
		}
		available = available.Add(level.Total())
		enough = available.GreaterThanOrEqual(order.Quantity)
		return !enough
	})
	return enough
}
