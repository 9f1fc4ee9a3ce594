package engine

import "quiz-round-service/internal/domain"

// Event is the outbound envelope; the transport forwards it verbatim.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Event types emitted by the engine.
const (
	EventLobby       = "lobby"
	EventRoundBegin  = "roundBegin"
	EventRoundEnd    = "roundEnd"
	EventFinalBoard  = "finalLeaderboard"
	EventLeaderboard = "leaderboard"
	EventFeedback    = "answerFeedback"
	EventAnswered    = "playerAnswered"
	EventEnergy      = "energy"
	EventChoices     = "choices"
	EventInfo        = "info"
	EventError       = "error"
)

// Broadcaster delivers events to a whole room or to one connected player.
// Sends to players without a live connection (bots, disconnected humans)
// must be silently dropped.
type Broadcaster interface {
	ToRoom(roomID int64, ev Event)
	ToPlayer(playerID int64, ev Event)
}

// RosterEntry is one connected human, as reported by the transport.
type RosterEntry struct {
	PlayerID int64
	Name     string
}

// Presence exposes who is connected to a room right now.
type Presence interface {
	ConnectedPlayers(roomID int64) []RosterEntry
}

// Liveness marks round transitions for operational probes. The redis
// implementation sets a keyed timestamp; the default is a no-op.
type Liveness interface {
	Touch(roomID int64)
	Clear(roomID int64)
}

// MaskedQuestion is the client-safe projection broadcast at round start:
// no choice list, no correctness flags.
type MaskedQuestion struct {
	ID       int64  `json:"id"`
	Text     string `json:"text"`
	Theme    string `json:"theme,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// RoundBegin announces a new round to the room.
type RoundBegin struct {
	Index    int            `json:"index"`
	Total    int            `json:"total"`
	EndsAt   int64          `json:"endsAt"` // unix ms
	Question MaskedQuestion `json:"question"`
	Lives    int            `json:"lives"`
}

// RoundEnd closes a round with the solution and the standings.
type RoundEnd struct {
	Index           int                `json:"index"`
	CorrectChoiceID int64              `json:"correctChoiceId"`
	CorrectLabel    string             `json:"correctLabel"`
	Leaderboard     domain.Leaderboard `json:"leaderboard"`
}

// FinalBoard is shown between games for DisplayMs before auto-chaining.
type FinalBoard struct {
	Leaderboard domain.Leaderboard `json:"leaderboard"`
	DisplayMs   int64              `json:"displayMs"`
}

// Feedback answers one submission. CorrectChoiceID and CorrectLabel stay
// empty while the submitter still has lives left on a wrong text attempt.
type Feedback struct {
	Correct         bool   `json:"correct"`
	CorrectChoiceID int64  `json:"correctChoiceId,omitempty"`
	CorrectLabel    string `json:"correctLabel,omitempty"`
	LivesLeft       int    `json:"livesLeft"`
	Awarded         int    `json:"awarded"`
	Terminal        bool   `json:"terminal"`
}

// Answered tells the room a participant reached a terminal outcome; bots
// and humans produce the identical shape.
type Answered struct {
	PlayerGameID int64 `json:"playerGameId"`
	Correct      bool  `json:"correct"`
}

// EnergyUpdate reports a participant's new energy and multiplier.
type EnergyUpdate struct {
	PlayerGameID int64   `json:"playerGameId"`
	Energy       int     `json:"energy"`
	Multiplier   float64 `json:"multiplier"`
}

// ChoiceList is the per-viewer shuffled option reveal.
type ChoiceList struct {
	QuestionID int64           `json:"questionId"`
	Choices    []domain.Choice `json:"choices"`
}

// Roster is the lobby/participant update for a room.
type Roster struct {
	Players []domain.LeaderboardEntry `json:"players"`
}

// Notice carries generic info or error text.
type Notice struct {
	Message string `json:"message"`
}

type noopBroadcaster struct{}

func (noopBroadcaster) ToRoom(int64, Event)   {}
func (noopBroadcaster) ToPlayer(int64, Event) {}

type noopPresence struct{}

func (noopPresence) ConnectedPlayers(int64) []RosterEntry { return nil }

type noopLiveness struct{}

func (noopLiveness) Touch(int64) {}
func (noopLiveness) Clear(int64) {}
