// Package trades is the single producer of trade records: it assigns
// trade identifiers, applies maker/taker fees, keeps the in-memory
// history plus a bounded per-symbol ring of recent trades, and appends
// each execution to a durable line-delimited log.
package trades

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"gungnir/internal/common"
)

const feePrecision = 4

// ring is a fixed-capacity circular buffer of trades. Once full, the
// oldest trade is evicted on every append.
type ring struct {
	buf  []common.Trade
	next int
	size int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]common.Trade, capacity)}
}

func (r *ring) append(trade common.Trade) {
	r.buf[r.next] = trade
	r.next = (r.next + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

// latest returns up to limit trades, newest first.
func (r *ring) latest(limit int) []common.Trade {
	if limit <= 0 || limit > r.size {
		limit = r.size
	}
	out := make([]common.Trade, 0, limit)
	for i := 1; i <= limit; i++ {
		out = append(out, r.buf[(r.next-i+len(r.buf))%len(r.buf)])
	}
	return out
}

type Recorder struct {
	mu        sync.Mutex
	makerRate decimal.Decimal
	takerRate decimal.Decimal
	capacity  int
	history   []common.Trade
	recent    map[string]*ring
	logFile   *os.File
}

// Open creates a recorder appending to the trade log at path. An empty
// path disables the durable log (used by tests).
func Open(path string, makerRate, takerRate float64, capacity int) (*Recorder, error) {
	rec := &Recorder{
		makerRate: decimal.NewFromFloat(makerRate),
		takerRate: decimal.NewFromFloat(takerRate),
		capacity:  capacity,
		recent:    make(map[string]*ring),
	}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open trade log: %w", err)
		}
		rec.logFile = f
	}
	return rec, nil
}

func (rec *Recorder) Close() error {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.logFile == nil {
		return nil
	}
	err := rec.logFile.Close()
	rec.logFile = nil
	return err
}

// Record assigns a fresh trade id, computes both fees and appends the
// trade to the history, the symbol's recent ring and the durable log.
// Log write failures are logged and swallowed; they never abort matching.
func (rec *Recorder) Record(symbol string, price, quantity decimal.Decimal, aggressor common.Side, makerID, takerID string) common.Trade {
	notional := price.Mul(quantity)
	trade := common.Trade{
		TradeID:       uuid.New().String(),
		Symbol:        symbol,
		Price:         price,
		Quantity:      quantity,
		AggressorSide: aggressor,
		MakerOrderID:  makerID,
		TakerOrderID:  takerID,
		MakerFee:      notional.Mul(rec.makerRate).Round(feePrecision),
		TakerFee:      notional.Mul(rec.takerRate).Round(feePrecision),
		Timestamp:     time.Now().UTC(),
	}

	rec.mu.Lock()
	rec.history = append(rec.history, trade)
	r, ok := rec.recent[symbol]
	if !ok {
		r = newRing(rec.capacity)
		rec.recent[symbol] = r
	}
	r.append(trade)
	rec.appendToLog(trade)
	rec.mu.Unlock()

	log.Info().
		Str("symbol", symbol).
		Str("tradeId", trade.TradeID).
		Str("price", price.String()).
		Str("quantity", quantity.String()).
		Str("aggressor", aggressor.String()).
		Msg("trade recorded")
	return trade
}

func (rec *Recorder) appendToLog(trade common.Trade) {
	if rec.logFile == nil {
		return
	}
	line, err := json.Marshal(trade)
	if err != nil {
		log.Error().Err(err).Str("tradeId", trade.TradeID).Msg("unable to serialise trade")
		return
	}
	if _, err := rec.logFile.Write(append(line, '\n')); err != nil {
		log.Error().Err(err).Str("tradeId", trade.TradeID).Msg("unable to append to trade log")
	}
}

// Recent returns the most recent limit trades for symbol, newest first.
func (rec *Recorder) Recent(symbol string, limit int) []common.Trade {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	r, ok := rec.recent[symbol]
	if !ok {
		return nil
	}
	return r.latest(limit)
}

// History returns the most recent limit trades across all symbols,
// newest first.
func (rec *Recorder) History(limit int) []common.Trade {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if limit <= 0 || limit > len(rec.history) {
		limit = len(rec.history)
	}
	out := make([]common.Trade, 0, limit)
	for i := len(rec.history) - 1; i >= len(rec.history)-limit; i-- {
		out = append(out, rec.history[i])
	}
	return out
}

// Count is the total number of trades recorded this lifetime.
func (rec *Recorder) Count() int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return len(rec.history)
}
