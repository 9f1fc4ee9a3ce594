package http

import (
	"encoding/json"
	"log/slog"
	"sync"

	"quiz-round-service/internal/engine"
)

// client is one live websocket participant. The send channel decouples
// broadcast fan-out from the socket's single writer goroutine. The closed
// flag outlives hub registration: a displaced client's ServeWS loop may
// still try to reply to in-flight commands after a reconnect closed its
// channel.
type client struct {
	playerID int64
	roomID   int64
	name     string

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

// close shuts the send channel exactly once.
func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub tracks live connections per room and fans engine events out to
// them. It is the engine's Broadcaster and Presence in one: the roster a
// game starts with is exactly the set of sockets registered here.
type Hub struct {
	mu      sync.RWMutex
	byID    map[int64]*client
	byRoom  map[int64]map[int64]*client
	log     *slog.Logger
	sendCap int
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		byID:    make(map[int64]*client),
		byRoom:  make(map[int64]map[int64]*client),
		log:     log,
		sendCap: 32,
	}
}

// register attaches a connection, displacing any previous socket for the
// same player. The displaced send channel is closed so its writer exits.
func (h *Hub) register(roomID, playerID int64, name string) *client {
	c := &client{playerID: playerID, roomID: roomID, name: name, send: make(chan []byte, h.sendCap)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.byID[playerID]; ok {
		old.close()
		if room, ok := h.byRoom[old.roomID]; ok {
			delete(room, playerID)
		}
	}
	h.byID[playerID] = c
	room, ok := h.byRoom[roomID]
	if !ok {
		room = make(map[int64]*client)
		h.byRoom[roomID] = room
	}
	room[playerID] = c
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cur, ok := h.byID[c.playerID]
	if !ok || cur != c {
		return // already displaced by a newer socket
	}
	delete(h.byID, c.playerID)
	if room, ok := h.byRoom[c.roomID]; ok {
		delete(room, c.playerID)
		if len(room) == 0 {
			delete(h.byRoom, c.roomID)
		}
	}
	c.close()
}

// ToRoom implements engine.Broadcaster.
func (h *Hub) ToRoom(roomID int64, ev engine.Event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal event failed", "type", ev.Type, "err", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.byRoom[roomID] {
		h.offer(c, raw, ev.Type)
	}
}

// ToPlayer implements engine.Broadcaster. Unknown players (bots,
// disconnected humans) are silently dropped.
func (h *Hub) ToPlayer(playerID int64, ev engine.Event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal event failed", "type", ev.Type, "err", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.byID[playerID]; ok {
		h.offer(c, raw, ev.Type)
	}
}

// offer never blocks the engine: a client that cannot drain its buffer
// loses the event, and a client whose channel was closed by a reconnect
// is skipped.
func (h *Hub) offer(c *client, raw []byte, typ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- raw:
	default:
		h.log.Warn("dropping event for slow client", "player", c.playerID, "type", typ)
	}
}

// ConnectedPlayers implements engine.Presence.
func (h *Hub) ConnectedPlayers(roomID int64) []engine.RosterEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room := h.byRoom[roomID]
	out := make([]engine.RosterEntry, 0, len(room))
	for _, c := range room {
		out = append(out, engine.RosterEntry{PlayerID: c.playerID, Name: c.name})
	}
	return out
}
