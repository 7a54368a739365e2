package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"gungnir/internal/common"
	"gungnir/internal/engine"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("unable to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed order request")
		return
	}

	order, err := req.order()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	executed, err := s.engine.Process(order)
	if err != nil {
		if errors.Is(err, engine.ErrUnfillable) {
			// FOK that cannot fill is a normal negative outcome, not a
			// protocol error. The book is untouched.
			writeJSON(w, http.StatusOK, OrderResponse{
				OrderID: order.UUID,
				Status:  common.StatusRejected.String(),
				Reason:  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, OrderResponse{
			OrderID: order.UUID,
			Status:  common.StatusRejected.String(),
			Reason:  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, OrderResponse{
		OrderID: order.UUID,
		Trades:  len(executed),
		Status:  "accepted",
	})
}

func (s *Server) handleSubmitStopOrder(w http.ResponseWriter, r *http.Request) {
	var req StopOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed stop order request")
		return
	}

	order, err := req.order()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.watcher.Add(order); err != nil {
		writeJSON(w, http.StatusBadRequest, OrderResponse{
			OrderID: order.UUID,
			Status:  common.StatusRejected.String(),
			Reason:  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, OrderResponse{
		OrderID: order.UUID,
		Trades:  0,
		Status:  common.StatusQueued.String(),
	})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed cancel request")
		return
	}
	// Resting orders first, then the conditional pending set.
	cancelled := s.engine.Cancel(req.Symbol, req.OrderID) ||
		s.watcher.Cancel(req.Symbol, req.OrderID)
	writeJSON(w, http.StatusOK, CancelResponse{Cancelled: cancelled})
}

func (s *Server) handleOrderBook(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	snapshot := s.snapshot(symbol)
	if len(snapshot.Bids) == 0 && len(snapshot.Asks) == 0 {
		writeError(w, http.StatusNotFound, "symbol not found or no orders")
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handleBBO(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	bbo := s.engine.BBO(symbol)
	if bbo.Bid == nil && bbo.Ask == nil {
		writeError(w, http.StatusNotFound, "symbol not found or no orders")
		return
	}
	writeJSON(w, http.StatusOK, BBOResponse{
		Timestamp: time.Now().UTC(),
		Symbol:    symbol,
		Bid:       floatPtr(bbo.Bid),
		Ask:       floatPtr(bbo.Ask),
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	recent := s.recorder.Recent(symbol, limit)
	if recent == nil {
		recent = []common.Trade{}
	}
	writeJSON(w, http.StatusOK, TradesResponse{Symbol: symbol, Trades: recent})
}

func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	id := r.PathValue("id")

	if order, ok := s.engine.OrderStatus(symbol, id); ok {
		writeJSON(w, http.StatusOK, order)
		return
	}
	// Conditional orders live in the watcher until promoted.
	for _, order := range s.watcher.Pending(symbol) {
		if order.UUID == id {
			writeJSON(w, http.StatusOK, order)
			return
		}
	}
	writeError(w, http.StatusNotFound, "order not found")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "healthy",
		Timestamp:   time.Now().UTC(),
		TotalTrades: s.recorder.Count(),
	})
}

func (s *Server) handleMarketDataWS(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(conn)
	s.hub.addMarket(symbol, client)
	go client.writePump()

	// Initial snapshot so the subscriber starts from a known book.
	if msg, err := json.Marshal(s.snapshot(symbol)); err == nil {
		client.trySend(msg)
	}

	client.readPump()
	s.hub.removeMarket(symbol, client)
}

func (s *Server) handleTradesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(conn)
	s.hub.addTrades(client)
	go client.writePump()
	client.readPump()
	s.hub.removeTrades(client)
}
