package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsSendBuffer = 256

	wsMaxChannels = 64
	wsMaxRequest  = 4 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS is enforced on the REST routes only
		return true
	},
}

// Hub tracks WebSocket clients and fans accepted orders out to subscribers
type Hub struct {
	clients    map[*Client]bool
	unregister chan *Client
	done       chan struct{} // closed when Run returns
	mu         sync.RWMutex
	logger     *zap.SugaredLogger
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.SugaredLogger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run removes disconnected clients until ctx is cancelled, then closes every client
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debugw("ws_client_disconnected", "client", client.id, "total", total)

		case <-ctx.Done():
			h.mu.Lock()
			close(h.done)
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// add registers a client. It fails once Run has returned.
func (h *Hub) add(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		return false
	default:
	}
	h.clients[c] = true
	h.logger.Debugw("ws_client_connected", "client", c.id, "total", len(h.clients))
	return true
}

// BroadcastToChannel sends data to every client subscribed to channel.
// Slow clients whose buffer is full miss the message.
func (h *Hub) BroadcastToChannel(channel string, data interface{}) {
	message, err := json.Marshal(data)
	if err != nil {
		h.logger.Errorw("ws_marshal_failed", "channel", channel, "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.IsSubscribed(channel) {
			continue
		}
		select {
		case client.send <- message:
		default:
			h.logger.Warnw("ws_client_lagging", "client", client.id, "channel", channel)
		}
	}
}

// SubscriberCount returns how many connected clients listen on channel
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for client := range h.clients {
		if client.IsSubscribed(channel) {
			n++
		}
	}
	return n
}

// Client is one WebSocket connection and the feed channels it listens on
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string

	subsMu        sync.RWMutex
	subscriptions map[string]struct{}
}

// IsSubscribed checks if client is subscribed to a channel
func (c *Client) IsSubscribed(channel string) bool {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	_, ok := c.subscriptions[channel]
	return ok
}

// apply runs one subscription request and builds the ack. Requests naming an
// unknown channel, or pushing the client past wsMaxChannels, change nothing.
func (c *Client) apply(req WSSubscribeRequest) WSAck {
	for _, channel := range req.Channels {
		if !validChannel(channel) {
			return WSAck{Type: "error", Channels: []string{channel}, Error: "unknown channel"}
		}
	}

	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	switch req.Op {
	case "subscribe":
		added := 0
		for _, channel := range req.Channels {
			if _, ok := c.subscriptions[channel]; !ok {
				added++
			}
		}
		if len(c.subscriptions)+added > wsMaxChannels {
			return WSAck{Type: "error", Channels: req.Channels, Error: "too many channels"}
		}
		for _, channel := range req.Channels {
			c.subscriptions[channel] = struct{}{}
		}
		return WSAck{Type: "subscribed", Channels: req.Channels}
	case "unsubscribe":
		for _, channel := range req.Channels {
			delete(c.subscriptions, channel)
		}
		return WSAck{Type: "unsubscribed", Channels: req.Channels}
	default:
		return WSAck{Type: "error", Error: "unknown op: " + req.Op}
	}
}

// reply queues msg unless the client is lagging or already unregistered
func (c *Client) reply(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// readPump applies subscription requests until the connection drops
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(wsMaxRequest)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		var req WSSubscribeRequest
		if err := c.conn.ReadJSON(&req); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				c.reply(WSAck{Type: "error", Error: "malformed request"})
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debugw("ws_read_failed", "client", c.id, "err", err)
			}
			return
		}

		ack := c.apply(req)
		if ack.Type == "error" {
			c.hub.logger.Debugw("ws_request_rejected", "client", c.id, "op", req.Op, "err", ack.Error)
		}
		c.reply(ack)
	}
}

// writePump writes queued updates and keepalive pings to the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One JSON update per frame
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleWebSocket upgrades the connection and starts the client pumps
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("ws_upgrade_failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	client := &Client{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, wsSendBuffer),
		id:            conn.RemoteAddr().String(),
		subscriptions: make(map[string]struct{}),
	}

	if !s.hub.add(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
