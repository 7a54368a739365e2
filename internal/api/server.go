// Package api is the HTTP and websocket boundary of the engine: order
// submission and queries over REST, L2 snapshots and trade executions
// over push channels.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"gungnir/internal/common"
	"gungnir/internal/engine"
	"gungnir/internal/stop"
	"gungnir/internal/trades"
)

type Server struct {
	addr     string
	engine   *engine.Engine
	watcher  *stop.Watcher
	recorder *trades.Recorder
	hub      *Hub
	server   *http.Server
}

func New(addr string, eng *engine.Engine, watcher *stop.Watcher, recorder *trades.Recorder) *Server {
	s := &Server{
		addr:     addr,
		engine:   eng,
		watcher:  watcher,
		recorder: recorder,
		hub:      NewHub(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /submit_order", s.handleSubmitOrder)
	mux.HandleFunc("POST /submit_stop_order", s.handleSubmitStopOrder)
	mux.HandleFunc("POST /cancel_order", s.handleCancelOrder)
	mux.HandleFunc("GET /orderbook/{symbol}", s.handleOrderBook)
	mux.HandleFunc("GET /bbo/{symbol}", s.handleBBO)
	mux.HandleFunc("GET /trades/{symbol}", s.handleTrades)
	mux.HandleFunc("GET /order/{symbol}/{id}", s.handleOrderStatus)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws/market_data/{symbol}", s.handleMarketDataWS)
	mux.HandleFunc("GET /ws/trades", s.handleTradesWS)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Run serves until the tomb dies, then drains the listener and the hub.
func (s *Server) Run(t *tomb.Tomb) error {
	t.Go(func() error {
		return s.hub.Run(t, s.heartbeat)
	})
	t.Go(func() error {
		<-t.Dying()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(ctx)
	})

	log.Info().Str("addr", s.addr).Msg("api server running")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// snapshot builds the current L2 message for symbol.
func (s *Server) snapshot(symbol string) L2Snapshot {
	bids, asks := s.engine.Depth(symbol, 0)
	return L2Snapshot{
		Timestamp: time.Now().UTC(),
		Symbol:    symbol,
		Bids:      depthPairs(bids),
		Asks:      depthPairs(asks),
	}
}

func (s *Server) heartbeat() []byte {
	msg, _ := json.Marshal(Heartbeat{Type: "heartbeat", Timestamp: time.Now().UTC()})
	return msg
}

// BookUpdated implements engine.Reporter: one snapshot per book-altering
// process call, in admission order.
func (s *Server) BookUpdated(symbol string) {
	msg, err := json.Marshal(s.snapshot(symbol))
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("unable to serialise snapshot")
		return
	}
	s.hub.BroadcastMarket(symbol, msg)
}

// TradeExecuted implements engine.Reporter: one message per trade, in
// emission order.
func (s *Server) TradeExecuted(trade common.Trade) {
	msg, err := json.Marshal(trade)
	if err != nil {
		log.Error().Err(err).Str("tradeId", trade.TradeID).Msg("unable to serialise trade")
		return
	}
	s.hub.BroadcastTrades(msg)
}
