package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
	heartbeatEvery = 5 * time.Second
)

// Client is one websocket subscriber with a buffered outbound queue.
// Messages for a subscriber whose queue is full are dropped; a slow
// consumer must never stall the matching core.
type Client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{conn: conn, send: make(chan []byte, sendBufferSize)}
}

// Hub tracks market-data subscribers per symbol and the global trade
// stream subscribers.
type Hub struct {
	mu     sync.RWMutex
	market map[string]map[*Client]bool
	trades map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		market: make(map[string]map[*Client]bool),
		trades: make(map[*Client]bool),
	}
}

// Run emits periodic heartbeats to market-data subscribers so quiet
// symbols still see a live connection.
func (h *Hub) Run(t *tomb.Tomb, heartbeat func() []byte) error {
	ticker := time.NewTicker(heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-t.Dying():
			h.closeAll()
			return nil
		case <-ticker.C:
			msg := heartbeat()
			h.mu.RLock()
			for _, clients := range h.market {
				for client := range clients {
					client.trySend(msg)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) addMarket(symbol string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.market[symbol]
	if !ok {
		clients = make(map[*Client]bool)
		h.market[symbol] = clients
	}
	clients[client] = true
	log.Info().Str("symbol", symbol).Int("subscribers", len(clients)).Msg("market data client connected")
}

func (h *Hub) removeMarket(symbol string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.market[symbol]; ok && clients[client] {
		delete(clients, client)
		close(client.send)
		log.Info().Str("symbol", symbol).Int("subscribers", len(clients)).Msg("market data client disconnected")
	}
}

func (h *Hub) addTrades(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.trades[client] = true
	log.Info().Int("subscribers", len(h.trades)).Msg("trade stream client connected")
}

func (h *Hub) removeTrades(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.trades[client] {
		delete(h.trades, client)
		close(client.send)
		log.Info().Int("subscribers", len(h.trades)).Msg("trade stream client disconnected")
	}
}

// BroadcastMarket fans a message out to every subscriber of symbol.
func (h *Hub) BroadcastMarket(symbol string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.market[symbol] {
		client.trySend(msg)
	}
}

// BroadcastTrades fans a trade message out to every trade subscriber.
func (h *Hub) BroadcastTrades(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.trades {
		client.trySend(msg)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for symbol, clients := range h.market {
		for client := range clients {
			close(client.send)
		}
		delete(h.market, symbol)
	}
	for client := range h.trades {
		close(client.send)
		delete(h.trades, client)
	}
}

// trySend enqueues without blocking. A full queue means the consumer is
// too slow; the message is dropped and the writer will fall behind until
// its pings fail.
func (c *Client) trySend(msg []byte) {
	select {
	case c.send <- msg:
	default:
	}
}

// writePump pumps queued messages to the websocket connection and keeps
// it alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames, keeping pong deadlines fresh. It
// returns when the peer goes away, at which point the caller unsubscribes.
func (c *Client) readPump() {
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
