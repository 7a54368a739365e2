package engine

import (
	"container/list"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"gungnir/internal/common"
)

var (
	ErrMissingPrice    = errors.New("price required for non-market orders")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidType     = errors.New("invalid order type")
	ErrUnfillable      = errors.New("insufficient liquidity to fill completely")
)

// TradeRecorder is the single producer of trade records. The book reports
// every fill through it during the matching pass.
type TradeRecorder interface {
	Record(symbol string, price, quantity decimal.Decimal, aggressor common.Side, makerID, takerID string) common.Trade
}

type PriceLevels = btree.BTreeG[*PriceLevel]

// bookEntry locates a resting order for O(1) removal: its level and its
// position within the level's queue.
type bookEntry struct {
	order *common.Order
	level *PriceLevel
	elem  *list.Element
}

// OrderBook holds both sides of a single symbol's book. Price levels are
// kept in two b-trees with inverse comparators so the best price is always
// the minimum under each tree's ordering.
type OrderBook struct {
	symbol    string
	recorder  TradeRecorder
	precision int32

	// Price levels to orders sat on the price level, sorted by time added
	// as they will be push-back'd.
	bids *PriceLevels
	asks *PriceLevels

	// Resting order uuid -> position in the book.
	index map[string]*bookEntry
}

func NewOrderBook(symbol string, precision int32, recorder TradeRecorder) *OrderBook {
	// Sorted greatest first.
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price.GreaterThan(b.Price)
	})
	// Sorted least first.
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price.LessThan(b.Price)
	})
	return &OrderBook{
		symbol:    symbol,
		recorder:  recorder,
		precision: precision,
		bids:      bids,
		asks:      asks,
		index:     make(map[string]*bookEntry),
	}
}

// normalize rounds a price to the book's canonical precision. Every
// comparison and tree key uses the canonical form.
func (book *OrderBook) normalize(price decimal.Decimal) decimal.Decimal {
	return price.Round(book.precision)
}

func (book *OrderBook) sideLevels(side common.Side) *PriceLevels {
	if side == common.Buy {
		return book.bids
	}
	return book.asks
}

// rest parks the residual of an order at its limit price, creating the
// level if absent, and indexes it for cancellation.
func (book *OrderBook) rest(order *common.Order) {
	levels := book.sideLevels(order.Side)
	price := book.normalize(order.LimitPrice)

	level, ok := levels.GetMut(&PriceLevel{Price: price})
	if !ok {
		level = newPriceLevel(price)
		levels.Set(level)
	}
	elem := level.append(order)
	book.index[order.UUID] = &bookEntry{order: order, level: level, elem: elem}
}

// Cancel removes a resting order via the id index. The level is dropped if
// it empties. Returns false when the id is unknown to this book.
func (book *OrderBook) Cancel(id string) bool {
	entry, ok := book.index[id]
	if !ok {
		return false
	}
	entry.level.remove(entry.elem)
	if entry.level.Empty() {
		book.sideLevels(entry.order.Side).Delete(entry.level)
	}
	delete(book.index, id)
	entry.order.Status = common.StatusCancelled
	return true
}

// unindex drops a fully consumed resting order from the level and index.
func (book *OrderBook) unindex(level *PriceLevel, elem *list.Element, order *common.Order) {
	level.remove(elem)
	delete(book.index, order.UUID)
}

// Order returns the live resting order for id. Filled and cancelled orders
// are no longer indexed and report false.
func (book *OrderBook) Order(id string) (*common.Order, bool) {
	entry, ok := book.index[id]
	if !ok {
		return nil, false
	}
	return entry.order, true
}

func (book *OrderBook) BestBid() (decimal.Decimal, bool) {
	level, ok := book.bids.Min()
	if !ok {
		return decimal.Decimal{}, false
	}
	return level.Price, true
}

func (book *OrderBook) BestAsk() (decimal.Decimal, bool) {
	level, ok := book.asks.Min()
	if !ok {
		return decimal.Decimal{}, false
	}
	return level.Price, true
}

// DepthEntry is one L2 row: a price and the aggregate resting quantity.
type DepthEntry struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Depth returns the top n levels per side in priority order.
func (book *OrderBook) Depth(n int) (bids, asks []DepthEntry) {
	collect := func(levels *PriceLevels) []DepthEntry {
		out := make([]DepthEntry, 0, n)
		levels.Scan(func(level *PriceLevel) bool {
			out = append(out, DepthEntry{Price: level.Price, Quantity: level.Total()})
			return len(out) < n
		})
		return out
	}
	return collect(book.bids), collect(book.asks)
}

// RestingOrders returns every live order, bids first, levels in priority
// order and FIFO within each level. Used for the shutdown snapshot.
func (book *OrderBook) RestingOrders() []*common.Order {
	var out []*common.Order
	for _, levels := range []*PriceLevels{book.bids, book.asks} {
		levels.Scan(func(level *PriceLevel) bool {
			out = append(out, level.Orders()...)
			return true
		})
	}
	return out
}

// checkInvariants panics when the book is in a state no sequence of valid
// operations can produce. A corrupted book must not keep matching.
func (book *OrderBook) checkInvariants() {
	bestBid, bidOk := book.BestBid()
	bestAsk, askOk := book.asks.Min()
	if bidOk && askOk && bestBid.GreaterThanOrEqual(bestAsk.Price) {
		log.Panic().
			Str("symbol", book.symbol).
			Str("bestBid", bestBid.String()).
			Str("bestAsk", bestAsk.Price.String()).
			Msg("book crossed after matching pass")
	}
}

// stamp writes the exchange arrival time of an order into the book.
// We do not care about the accuracy of the timestamp, just its relativity
// to other timestamps; equal stamps are broken by the admission sequence.
func stamp(order *common.Order) {
	order.ExchTimestamp = time.Now()
}
