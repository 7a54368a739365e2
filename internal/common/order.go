package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	UUID          string          `json:"id"`                      // Order tracked uuid
	Symbol        string          `json:"symbol"`                  // Trading pair identifier
	Side          Side            `json:"side"`                    // Order side
	OrderType     OrderType       `json:"order_type"`              // Matching semantics
	LimitPrice    decimal.Decimal `json:"price"`                   // Limiting price, zero for market orders
	Quantity      decimal.Decimal `json:"quantity"`                // Remaining quantity
	TotalQuantity decimal.Decimal `json:"original_quantity"`      // Total volume requested
	TriggerPrice  decimal.Decimal `json:"trigger_price,omitempty"` // Conditional trigger price
	TriggerType   TriggerType     `json:"trigger_type,omitempty"`  // Conditional trigger predicate
	Timestamp     time.Time       `json:"timestamp"`               // Time of arrival of order
	ExchTimestamp time.Time       `json:"-"`                       // Time of arrival of order into the book
	Sequence      uint64          `json:"-"`                       // Admission sequence, breaks equal-timestamp ties
	Status        OrderStatus     `json:"status"`
}

// Conditional reports whether the order is parked behind a trigger.
func (order *Order) Conditional() bool {
	return order.TriggerType != NoTrigger
}

// Fill reduces the remaining quantity by qty and rolls the status forward.
func (order *Order) Fill(qty decimal.Decimal) {
	order.Quantity = order.Quantity.Sub(qty)
	if order.Quantity.Sign() <= 0 {
		order.Quantity = decimal.Zero
		order.Status = StatusFilled
	} else if order.Quantity.LessThan(order.TotalQuantity) {
		order.Status = StatusPartial
	}
}

func (order Order) String() string {
	return fmt.Sprintf("Order(%.8s %s %s %s %s@%s)",
		order.UUID,
		order.Symbol,
		order.OrderType,
		order.Side,
		order.Quantity,
		order.LimitPrice,
	)
}
