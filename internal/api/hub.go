/*
Package api
File: hub.go
Description:
    The WebSocket Hub pushes engine signals to every connected view.

    It registers one Client per browser tab and implements game.Observer:
    each engine signal becomes a JSON Message broadcast to all clients.
    A client that connects first receives a full "state" message so it
    can render the shop, the wallet and the inventory without polling.

    Architecture:
    - Hub: the manager, run once as a goroutine.
    - Client: one websocket connection with its own send buffer.
    - ServeWs: the HTTP handler that upgrades a GET request to a WebSocket.
*/

package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/everforgeworks/diggis-clicker/internal/game"
)

// Message types pushed to views.
const (
	TypeState            = "state"
	TypeBalanceChanged   = "balance_changed"
	TypeRatesChanged     = "rates_changed"
	TypeInventoryChanged = "inventory_changed"
	TypePriceChanged     = "price_changed"
)

// senderSystem marks messages produced by the engine rather than a client.
const senderSystem = "system"

// Message defines the JSON envelope for all real-time communication.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
	Sender  string `json:"sender"`
}

// RatesPayload is the payload of a rates_changed message.
type RatesPayload struct {
	PerClick  float64 `json:"per_click"`
	PerSecond float64 `json:"per_second"`
}

// PricePayload is the payload of a price_changed message.
type PricePayload struct {
	Key   string  `json:"key"`
	Price float64 `json:"price"`
}

// StateSource provides the snapshot sent to newly connected clients.
type StateSource interface {
	Snapshot() game.State
}

// Client is a single connected view.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	source  StateSource
	log     *slog.Logger
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

var _ game.Observer = (*Hub)(nil)

func NewHub(source StateSource, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		source:     source,
		log:        logger,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the hub event loop. It blocks until ctx is done and then closes
// every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return nil

		case client := <-h.register:
			h.clients[client] = true
			h.log.Info("ws client registered", "client", client.id, "clients", len(h.clients))

		case client := <-h.unregister:
			if h.clients[client] {
				h.drop(client)
				h.log.Info("ws client unregistered", "client", client.id, "clients", len(h.clients))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Send buffer full: the client hung or disconnected.
					h.drop(client)
					h.log.Warn("ws client too slow, dropped", "client", client.id)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
}

// publish encodes a message and queues it for broadcast without blocking
// the engine.
func (h *Hub) publish(msgType string, payload any) {
	data, err := json.Marshal(Message{Type: msgType, Payload: payload, Sender: senderSystem})
	if err != nil {
		h.log.Error("error marshaling message", "type", msgType, "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.log.Warn("broadcast queue full, message dropped", "type", msgType)
	}
}

func (h *Hub) OnBalanceChanged(balance float64) {
	h.publish(TypeBalanceChanged, balance)
}

func (h *Hub) OnRatesChanged(perClick, perSecond float64) {
	h.publish(TypeRatesChanged, RatesPayload{PerClick: perClick, PerSecond: perSecond})
}

func (h *Hub) OnInventoryChanged(inv game.Inventory) {
	h.publish(TypeInventoryChanged, inv)
}

func (h *Hub) OnPriceChanged(key string, price float64) {
	h.publish(TypePriceChanged, PricePayload{Key: key, Price: price})
}

// upgrader configures the WebSocket handshake.
// CheckOrigin allows any host, matching the permissive CORS policy.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWs upgrades the request and registers the new client with the hub.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade error", "error", err)
		return
	}

	client := &Client{id: uuid.NewString(), hub: h, conn: conn, send: make(chan []byte, 256)}

	// Queue the snapshot before registering so it is the first message the
	// client sees.
	if data, err := json.Marshal(Message{Type: TypeState, Payload: h.source.Snapshot(), Sender: senderSystem}); err == nil {
		client.send <- data
	} else {
		h.log.Error("error marshaling state", "error", err)
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump drains the connection so close frames are processed. Views
// act through the REST endpoints; inbound messages are ignored.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("ws read error", "client", c.id, "error", err)
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
// It exits when the hub closes c.send.
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
