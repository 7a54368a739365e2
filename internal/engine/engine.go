package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"gungnir/internal/common"
)

// Reporter receives post-match notifications. Implementations must not
// block: the engine serialises calls per symbol but will not wait on a
// slow consumer.
type Reporter interface {
	BookUpdated(symbol string)
	TradeExecuted(trade common.Trade)
}

// BBO is the best bid and offer. A nil side means no resting liquidity.
type BBO struct {
	Bid *decimal.Decimal
	Ask *decimal.Decimal
}

// bookShard pairs a book with its write lock. notifyMu is taken before the
// book lock is released so reporter callbacks observe admission order
// without the book lock being held across the callback.
type bookShard struct {
	mu       sync.RWMutex
	notifyMu sync.Mutex
	book     *OrderBook
}

// Engine is the symbol registry and the single entry point for all book
// mutation. All writes to a given book funnel through its shard lock,
// making the matching pass single-writer per symbol.
type Engine struct {
	mu    sync.RWMutex
	books map[string]*bookShard

	recorder    TradeRecorder
	reporter    Reporter
	seq         atomic.Uint64
	precision   int32
	depthLevels int
}

func New(recorder TradeRecorder, precision int32, depthLevels int) *Engine {
	return &Engine{
		books:       make(map[string]*bookShard),
		recorder:    recorder,
		precision:   precision,
		depthLevels: depthLevels,
	}
}

// SetReporter wires the market-data and trade push boundary. Must be
// called before orders flow.
func (engine *Engine) SetReporter(reporter Reporter) {
	engine.reporter = reporter
}

// shard returns the book shard for symbol, lazily creating an empty book
// on first reference. Unknown symbols are never an error.
func (engine *Engine) shard(symbol string) *bookShard {
	engine.mu.RLock()
	s, ok := engine.books[symbol]
	engine.mu.RUnlock()
	if ok {
		return s
	}

	engine.mu.Lock()
	defer engine.mu.Unlock()
	if s, ok = engine.books[symbol]; ok {
		return s
	}
	s = &bookShard{book: NewOrderBook(symbol, engine.precision, engine.recorder)}
	engine.books[symbol] = s
	log.Info().Str("symbol", symbol).Msg("order book created")
	return s
}

// lookup is the read-only variant of shard: nil when the symbol has never
// been referenced.
func (engine *Engine) lookup(symbol string) *bookShard {
	engine.mu.RLock()
	defer engine.mu.RUnlock()
	return engine.books[symbol]
}

// validate applies the admission checks. Rejections are descriptive and
// leave no trace in any book.
func (engine *Engine) validate(order *common.Order) error {
	switch order.OrderType {
	case common.MarketOrder, common.LimitOrder, common.IOCOrder, common.FOKOrder:
	default:
		return ErrInvalidType
	}
	if order.Quantity.Sign() <= 0 {
		return ErrInvalidQuantity
	}
	if order.OrderType != common.MarketOrder && order.LimitPrice.Sign() <= 0 {
		return ErrMissingPrice
	}
	return nil
}

// admit stamps identity, admission time and the tie-breaking sequence.
func (engine *Engine) admit(order *common.Order) {
	if order.UUID == "" {
		order.UUID = uuid.New().String()
	}
	if order.Timestamp.IsZero() {
		order.Timestamp = time.Now()
	}
	order.Sequence = engine.seq.Add(1)
	if order.TotalQuantity.Sign() <= 0 {
		order.TotalQuantity = order.Quantity
	}
	// Status is left as-is: a fresh order is already StatusNew and a
	// replayed partial keeps its history.
}

// Process admits an order and runs it through the matching core on the
// symbol's book. Returned trades are already recorded; subscribers are
// notified after the book lock is released.
func (engine *Engine) Process(order *common.Order) ([]common.Trade, error) {
	if err := engine.validate(order); err != nil {
		order.Status = common.StatusRejected
		log.Info().
			Err(err).
			Str("symbol", order.Symbol).
			Str("uuid", order.UUID).
			Msg("order rejected at admission")
		return nil, err
	}
	s := engine.shard(order.Symbol)
	s.mu.Lock()
	// Admitting under the book lock keeps sequence and timestamp in the
	// same order as arrival at the book.
	engine.admit(order)
	trades, err := s.book.PlaceOrder(order)
	altered := len(trades) > 0 ||
		(order.OrderType == common.LimitOrder && order.Quantity.Sign() > 0)
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("symbol", order.Symbol).
		Str("uuid", order.UUID).
		Int("trades", len(trades)).
		Str("status", order.Status.String()).
		Msg("order processed")

	if engine.reporter != nil {
		if altered {
			engine.reporter.BookUpdated(order.Symbol)
		}
		for _, trade := range trades {
			engine.reporter.TradeExecuted(trade)
		}
	}
	return trades, nil
}

// Cancel synchronously removes a resting order. Returns false when the
// symbol or id is unknown.
func (engine *Engine) Cancel(symbol, id string) bool {
	s := engine.lookup(symbol)
	if s == nil {
		return false
	}
	s.mu.Lock()
	ok := s.book.Cancel(id)
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	if ok {
		log.Info().Str("symbol", symbol).Str("uuid", id).Msg("order cancelled")
		if engine.reporter != nil {
			engine.reporter.BookUpdated(symbol)
		}
	}
	return ok
}

// BBO returns the best bid and offer for symbol.
func (engine *Engine) BBO(symbol string) BBO {
	s := engine.lookup(symbol)
	if s == nil {
		return BBO{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bbo BBO
	if bid, ok := s.book.BestBid(); ok {
		bbo.Bid = &bid
	}
	if ask, ok := s.book.BestAsk(); ok {
		bbo.Ask = &ask
	}
	return bbo
}

// Depth returns the top levels per side. levels <= 0 selects the
// configured default.
func (engine *Engine) Depth(symbol string, levels int) (bids, asks []DepthEntry) {
	if levels <= 0 {
		levels = engine.depthLevels
	}
	s := engine.lookup(symbol)
	if s == nil {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.book.Depth(levels)
}

// OrderStatus returns a copy of the resting order for id, if live.
func (engine *Engine) OrderStatus(symbol, id string) (common.Order, bool) {
	s := engine.lookup(symbol)
	if s == nil {
		return common.Order{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.book.Order(id)
	if !ok {
		return common.Order{}, false
	}
	return *order, true
}

// Symbols returns every symbol with a book, live or empty.
func (engine *Engine) Symbols() []string {
	engine.mu.RLock()
	defer engine.mu.RUnlock()
	out := make([]string, 0, len(engine.books))
	for symbol := range engine.books {
		out = append(out, symbol)
	}
	return out
}

// RestingOrders returns copies of every live order on symbol's book, in
// side, priority, arrival order. Used by the persistence sidecar.
func (engine *Engine) RestingOrders(symbol string) []common.Order {
	s := engine.lookup(symbol)
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	live := s.book.RestingOrders()
	out := make([]common.Order, 0, len(live))
	for _, order := range live {
		out = append(out, *order)
	}
	return out
}
