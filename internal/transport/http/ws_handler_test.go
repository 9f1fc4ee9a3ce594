package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"quiz-round-service/internal/config"
	"quiz-round-service/internal/domain"
	"quiz-round-service/internal/engine"
	"quiz-round-service/internal/infra/memory"
)

func testServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	memory.SeedDemo(store)
	store.AddRoom(domain.Room{
		ID:            5,
		Code:          "WS",
		Name:          "Socket Room",
		Difficulty:    50,
		QuestionCount: 2,
		RoundSeconds:  60,
		Visibility:    domain.VisibilityPrivate,
		Status:        domain.RoomOpen,
	})

	log := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	hub := NewHub(log)
	eng := engine.New(config.DefaultEngine(), store,
		engine.WithBroadcaster(hub),
		engine.WithPresence(hub),
		engine.WithRandSeed(3),
	)
	handler := NewWSHandler(eng, hub, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, store
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, typ string) json.RawMessage {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		var ev struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read: %v", err)
		}
		if ev.Type == typ {
			return ev.Payload
		}
	}
	t.Fatalf("no %q event before deadline", typ)
	return nil
}

func TestServeWSRejectsBadParams(t *testing.T) {
	server, _ := testServer(t)
	resp, err := http.Get(server.URL + "/ws?roomId=abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestWebSocketRoundFlow(t *testing.T) {
	server, _ := testServer(t)
	conn := dial(t, server, "roomId=5&playerId=11&name=Alice")

	if err := conn.WriteJSON(map[string]any{"type": "start"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	payload := readUntil(t, conn, engine.EventRoundBegin)

	var begin engine.RoundBegin
	if err := json.Unmarshal(payload, &begin); err != nil {
		t.Fatalf("decode round begin: %v", err)
	}
	if begin.Question.ID == 0 || begin.Question.Text == "" {
		t.Fatalf("masked question missing: %+v", begin)
	}

	if err := conn.WriteJSON(map[string]any{
		"type":    "answerText",
		"payload": map[string]any{"value": "definitely not it"},
	}); err != nil {
		t.Fatalf("answer: %v", err)
	}
	fbRaw := readUntil(t, conn, engine.EventFeedback)
	var fb engine.Feedback
	if err := json.Unmarshal(fbRaw, &fb); err != nil {
		t.Fatalf("decode feedback: %v", err)
	}
	if fb.Correct || fb.LivesLeft != 2 {
		t.Fatalf("unexpected feedback: %+v", fb)
	}
}

func TestWebSocketRevealDeliversChoices(t *testing.T) {
	server, _ := testServer(t)
	conn := dial(t, server, "roomId=5&playerId=12&name=Bob")

	if err := conn.WriteJSON(map[string]any{"type": "start"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	readUntil(t, conn, engine.EventRoundBegin)

	if err := conn.WriteJSON(map[string]any{"type": "reveal"}); err != nil {
		t.Fatalf("reveal: %v", err)
	}
	raw := readUntil(t, conn, engine.EventChoices)
	var list engine.ChoiceList
	if err := json.Unmarshal(raw, &list); err != nil {
		t.Fatalf("decode choices: %v", err)
	}
	if len(list.Choices) != 4 {
		t.Fatalf("expected 4 choices, got %d", len(list.Choices))
	}
}

func TestWebSocketUnsupportedType(t *testing.T) {
	server, _ := testServer(t)
	conn := dial(t, server, "roomId=5&playerId=13&name=Eve")

	if err := conn.WriteJSON(map[string]any{"type": "bogus"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	raw := readUntil(t, conn, engine.EventError)
	var notice engine.Notice
	if err := json.Unmarshal(raw, &notice); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if notice.Message != "unsupported message type" {
		t.Fatalf("unexpected message: %q", notice.Message)
	}
}

func TestHubPresenceTracksRegistrations(t *testing.T) {
	log := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	hub := NewHub(log)

	a := hub.register(1, 10, "Alice")
	hub.register(1, 11, "Bob")
	if got := len(hub.ConnectedPlayers(1)); got != 2 {
		t.Fatalf("expected 2 connected, got %d", got)
	}

	hub.unregister(a)
	roster := hub.ConnectedPlayers(1)
	if len(roster) != 1 || roster[0].Name != "Bob" {
		t.Fatalf("unexpected roster: %+v", roster)
	}
}

func TestHubOfferToDisplacedClientIsSafe(t *testing.T) {
	log := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	hub := NewHub(log)

	old := hub.register(1, 42, "Alice")
	hub.register(1, 42, "Alice") // reconnect displaces the first socket

	// The old connection's read loop may still reply to an in-flight
	// command through its stale client; that must not panic or deliver.
	hub.offer(old, []byte(`{"type":"info"}`), "info")

	if _, open := <-old.send; open {
		t.Fatalf("expected displaced channel closed and empty")
	}

	hub.ToPlayer(42, engine.Event{Type: engine.EventInfo, Payload: engine.Notice{Message: "hi"}})
	cur := hub.ConnectedPlayers(1)
	if len(cur) != 1 {
		t.Fatalf("expected the replacement connection only, got %d", len(cur))
	}
}

func TestHubDisplacesDuplicateConnection(t *testing.T) {
	log := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	hub := NewHub(log)

	old := hub.register(1, 10, "Alice")
	hub.register(1, 10, "Alice")
	if _, open := <-old.send; open {
		t.Fatalf("expected displaced send channel closed")
	}
	if got := len(hub.ConnectedPlayers(1)); got != 1 {
		t.Fatalf("expected 1 connected, got %d", got)
	}
}
