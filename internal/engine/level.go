package engine

import (
	"container/list"

	"github.com/shopspring/decimal"

	"gungnir/internal/common"
)

// PriceLevel is the FIFO queue of resting orders at one canonical price.
// Orders are held in strict arrival order; the aggregate quantity is
// maintained incrementally and never recomputed.
type PriceLevel struct {
	Price  decimal.Decimal
	orders *list.List
	total  decimal.Decimal
}

func newPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{
		Price:  price,
		orders: list.New(),
	}
}

// append pushes an order to the back of the queue and returns its
// position handle for O(1) removal.
func (level *PriceLevel) append(order *common.Order) *list.Element {
	level.total = level.total.Add(order.Quantity)
	return level.orders.PushBack(order)
}

// remove unlinks the order at elem. The order's remaining quantity is
// deducted from the aggregate.
func (level *PriceLevel) remove(elem *list.Element) {
	order := elem.Value.(*common.Order)
	level.total = level.total.Sub(order.Quantity)
	level.orders.Remove(elem)
}

// reduce accounts for a fill against an order resting at this level.
func (level *PriceLevel) reduce(qty decimal.Decimal) {
	level.total = level.total.Sub(qty)
}

func (level *PriceLevel) front() *list.Element {
	return level.orders.Front()
}

func (level *PriceLevel) Empty() bool {
	return level.orders.Len() == 0
}

func (level *PriceLevel) Len() int {
	return level.orders.Len()
}

// Total is the sum of remaining quantities of all orders at this level.
func (level *PriceLevel) Total() decimal.Decimal {
	return level.total
}

// Orders returns the live orders in arrival order.
func (level *PriceLevel) Orders() []*common.Order {
	out := make([]*common.Order, 0, level.orders.Len())
	for e := level.orders.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*common.Order))
	}
	return out
}
