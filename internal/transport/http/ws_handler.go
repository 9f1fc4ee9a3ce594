package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"quiz-round-service/internal/domain"
	"quiz-round-service/internal/engine"
)

// WSHandler upgrades connections and wires them into the round engine.
type WSHandler struct {
	engine   *engine.Engine
	hub      *Hub
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(eng *engine.Engine, hub *Hub, log *slog.Logger) *WSHandler {
	return &WSHandler{
		engine: eng,
		hub:    hub,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type choicePayload struct {
	ChoiceID int64 `json:"choiceId"`
}

type textPayload struct {
	Value string `json:"value"`
}

// ServeWS handles one participant connection for its whole lifetime.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	roomID, err1 := strconv.ParseInt(r.URL.Query().Get("roomId"), 10, 64)
	playerID, err2 := strconv.ParseInt(r.URL.Query().Get("playerId"), 10, 64)
	name := r.URL.Query().Get("name")
	if err1 != nil || err2 != nil || name == "" {
		http.Error(w, "missing roomId, playerId, or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	c := h.hub.register(roomID, playerID, name)
	defer h.hub.unregister(c)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for raw := range c.send {
			if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				h.log.Debug("ws write error", "player", playerID, "err", err)
				return
			}
		}
	}()

	pg, joined, err := h.engine.Join(r.Context(), roomID, playerID, name)
	if err != nil {
		h.sendError(c, err.Error())
		return
	}
	if joined {
		h.send(c, engine.Event{Type: engine.EventInfo, Payload: engine.Notice{Message: "joined running game"}})
	}
	defer h.engine.Leave(roomID, playerID)

	// One submission every 500ms with a small burst keeps a misbehaving
	// client from hammering the round lock.
	limiter := rate.NewLimiter(rate.Limit(2), 5)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if !limiter.Allow() {
			h.sendError(c, "slow down")
			continue
		}

		switch inbound.Type {
		case "start":
			if err := h.engine.StartGame(r.Context(), roomID); err != nil {
				h.sendError(c, err.Error())
			}
		case "stop":
			if err := h.engine.StopGame(r.Context(), roomID); err != nil {
				h.sendError(c, err.Error())
			}
		case "answerChoice":
			var payload choicePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(c, "invalid choice payload")
				continue
			}
			fb, err := h.engine.SubmitChoice(r.Context(), roomID, h.playerGameID(roomID, playerID, pg), payload.ChoiceID)
			if err != nil {
				h.sendReject(c, err)
				continue
			}
			h.send(c, engine.Event{Type: engine.EventFeedback, Payload: fb})
		case "answerText":
			var payload textPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(c, "invalid text payload")
				continue
			}
			fb, err := h.engine.SubmitText(r.Context(), roomID, h.playerGameID(roomID, playerID, pg), payload.Value)
			if err != nil {
				h.sendReject(c, err)
				continue
			}
			h.send(c, engine.Event{Type: engine.EventFeedback, Payload: fb})
		case "reveal":
			choices, err := h.engine.Reveal(r.Context(), roomID, h.playerGameID(roomID, playerID, pg))
			if err != nil {
				h.sendReject(c, err)
				continue
			}
			h.send(c, engine.Event{Type: engine.EventChoices, Payload: choices})
		default:
			h.sendError(c, "unsupported message type")
		}
	}

	<-writerDone
}

// playerGameID resolves the participation id, re-joining when the game
// rolled over since the socket connected.
func (h *WSHandler) playerGameID(roomID, playerID int64, initial domain.PlayerGame) int64 {
	if pg, ok, err := h.engine.Join(context.Background(), roomID, playerID, initial.Name); err == nil && ok {
		return pg.ID
	}
	return initial.ID
}

func (h *WSHandler) send(c *client, ev engine.Event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal event failed", "type", ev.Type, "err", err)
		return
	}
	h.hub.offer(c, raw, ev.Type)
}

func (h *WSHandler) sendError(c *client, msg string) {
	h.send(c, engine.Event{Type: engine.EventError, Payload: engine.Notice{Message: msg}})
}

// sendReject maps engine rejections to error events with the reason code
// as the message, so clients can branch on it.
func (h *WSHandler) sendReject(c *client, err error) {
	if reason, ok := domain.AsReject(err); ok {
		h.sendError(c, string(reason))
		return
	}
	h.sendError(c, err.Error())
}
