// Package httpapi is the caller layer around the game core: gin routes,
// request validation and the websocket hub that delivers state pushes.
package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"sketchguess/internal/game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // same stance as the CORS config below
	},
}

// wsMessage is the envelope for everything pushed over a socket.
type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub implements game.Notifier over websockets: one connection per player
// per room, each with a buffered send queue. Publishing never blocks; a
// slow consumer just drops frames and catches up on the next publish.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[string]*wsClient
	log   zerolog.Logger

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan []byte, 64),
		done: make(chan struct{}),
	}
}

// shutdown releases the write pump. The send channel is never closed, so
// a publish racing with displacement or detach cannot panic.
func (c *wsClient) shutdown() {
	c.once.Do(func() { close(c.done) })
}

// enqueue hands a frame to the write pump without blocking. A full queue
// or an already shut down client drops the frame.
func (c *wsClient) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[string]*wsClient),
		log:   log,
	}
}

// Publish fans the per-player views out to every connected room member.
func (h *Hub) Publish(roomID string, views map[string]game.View) {
	h.mu.Lock()
	clients := make(map[string]*wsClient, len(h.rooms[roomID]))
	for playerID, c := range h.rooms[roomID] {
		clients[playerID] = c
	}
	h.mu.Unlock()

	for playerID, c := range clients {
		view, ok := views[playerID]
		if !ok {
			continue
		}
		payload, err := json.Marshal(wsMessage{Type: "gameState", Data: view})
		if err != nil {
			h.log.Error().Err(err).Str("room", roomID).Msg("marshal view")
			continue
		}
		if c.enqueue(payload) {
			h.delivered.Add(1)
		} else {
			h.dropped.Add(1)
		}
	}
}

// Delivered and Dropped report fan-out accounting totals.
func (h *Hub) Delivered() uint64 { return h.delivered.Load() }
func (h *Hub) Dropped() uint64   { return h.dropped.Load() }

// attach registers the connection and returns it; an existing connection
// for the same player is displaced.
func (h *Hub) attach(roomID, playerID string, conn *websocket.Conn) *wsClient {
	c := newWSClient(conn)

	h.mu.Lock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]*wsClient)
	}
	if old, ok := h.rooms[roomID][playerID]; ok {
		old.shutdown()
	}
	h.rooms[roomID][playerID] = c
	h.mu.Unlock()

	return c
}

// detach removes the connection if it is still the registered one and
// reports whether it was. A displaced connection's late teardown returns
// false, so its caller must not touch the player's presence.
func (h *Hub) detach(roomID, playerID string, c *wsClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	cur, ok := h.rooms[roomID][playerID]
	if !ok || cur != c {
		return false
	}
	delete(h.rooms[roomID], playerID)
	if len(h.rooms[roomID]) == 0 {
		delete(h.rooms, roomID)
	}
	c.shutdown()
	return true
}

func (c *wsClient) writePump() {
	defer c.conn.Close()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}
