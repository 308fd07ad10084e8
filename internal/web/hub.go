package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/support1122/flashfire-dashboard/internal/board"
	"github.com/support1122/flashfire-dashboard/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Client is a single websocket connection, optionally bound to one board.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	boardID uuid.UUID
}

type envelope struct {
	boardID uuid.UUID // uuid.Nil reaches every client
	data    []byte
}

// Hub fans events out to connected clients.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	targeted   chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stop       sync.Once
	upgrader   websocket.Upgrader
	log        *logger.Logger
}

// NewHub creates a hub. Call Run to start it. With no origins only
// same-origin upgrades are accepted; "*" accepts any origin.
func NewHub(origins ...string) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, sendBuffer),
		targeted:   make(chan envelope, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(origins),
		},
		log: logger.Get().Component("hub"),
	}
}

func checkOrigin(origins []string) func(*http.Request) bool {
	if len(origins) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return allowed["*"] || origin == "" || allowed[origin]
	}
}

// Run processes registrations and deliveries until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
		case c := <-h.unregister:
			h.remove(c)
		case msg := <-h.broadcast:
			h.deliver(envelope{data: msg})
		case env := <-h.targeted:
			h.deliver(env)
		case <-h.done:
			for c := range h.clients {
				h.remove(c)
			}
			return
		}
	}
}

// Stop ends Run and closes every client.
func (h *Hub) Stop() {
	h.stop.Do(func() { close(h.done) })
}

func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) deliver(env envelope) {
	for c := range h.clients {
		if env.boardID != uuid.Nil && c.boardID != env.boardID {
			continue
		}
		select {
		case c.send <- env.data:
		default:
			// slow consumer
			h.remove(c)
		}
	}
}

// Broadcast queues msg for every client. It drops the message when the
// queue is full.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn().Msg("broadcast queue full, dropping message")
	}
}

// SendTo queues msg for the clients watching boardID.
func (h *Hub) SendTo(boardID uuid.UUID, msg []byte) {
	select {
	case h.targeted <- envelope{boardID: boardID, data: msg}:
	default:
		h.log.Warn().Str("board_id", boardID.String()).Msg("send queue full, dropping message")
	}
}

// Publish implements board.Sink.
func (h *Hub) Publish(e board.Event) {
	h.SendTo(e.BoardID, BoardEvent(e))
}

// ServeWs upgrades the request and registers the connection. The optional
// "board" query parameter limits delivery to that board's events.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	var boardID uuid.UUID
	if raw := r.URL.Query().Get("board"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid board id", http.StatusBadRequest)
			return
		}
		boardID = id
	}

	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &Client{hub: hub, conn: conn, send: make(chan []byte, sendBuffer), boardID: boardID}
	select {
	case hub.register <- c:
	case <-hub.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump discards inbound messages and detects closed connections.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
