package domain

import "time"

// Visibility controls whether a room is eligible for bot population.
type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityPrivate Visibility = "PRIVATE"
)

// RoomStatus is the lobby lifecycle state.
type RoomStatus string

const (
	RoomOpen   RoomStatus = "OPEN"
	RoomClosed RoomStatus = "CLOSED"
)

// GameStatus tracks a single playthrough: lobby -> running -> ended.
type GameStatus string

const (
	GameLobby   GameStatus = "lobby"
	GameRunning GameStatus = "running"
	GameEnded   GameStatus = "ended"
)

// AnswerMode distinguishes the two submission paths.
type AnswerMode string

const (
	ModeChoice AnswerMode = "choice"
	ModeText   AnswerMode = "text"
)

// Room is a persistent lobby. The engine reads it; room management mutates
// it elsewhere.
type Room struct {
	ID            int64
	Code          string
	OwnerID       int64
	Name          string
	Difficulty    int // 0..100
	BannedThemes  []string
	QuestionCount int
	RoundSeconds  int
	Visibility    Visibility
	Status        RoomStatus
	MaxBots       int
	TrafficWeight float64
}

// Game is one playthrough of a Room over a fixed ordered question list.
type Game struct {
	ID        int64
	RoomID    int64
	Status    GameStatus
	CreatedAt time.Time
}

// PlayerGame is one participant's scoped state within one Game.
type PlayerGame struct {
	ID       int64
	GameID   int64
	PlayerID int64
	Name     string
	Score    int
	Energy   int
	IsBot    bool
}

// Choice is one multiple-choice option; exactly one per question is correct.
// The correctness flag never serializes to clients.
type Choice struct {
	ID      int64  `json:"id"`
	Label   string `json:"label"`
	Correct bool   `json:"-"`
}

// Question is immutable during a round. Accepted holds the normalized
// free-text variants.
type Question struct {
	ID         int64
	Text       string
	Theme      string
	Difficulty string // bucket "1".."4"
	ImageURL   string
	Choices    []Choice
	Accepted   []string
}

// CorrectChoice returns the correct option, or a zero Choice if the data is
// malformed.
func (q Question) CorrectChoice() Choice {
	for _, c := range q.Choices {
		if c.Correct {
			return c
		}
	}
	return Choice{}
}

// Bot is a synthetic player profile. Skills maps theme to 0..100;
// Availability holds daypart weights (night, morning, afternoon, evening).
type Bot struct {
	ID           int64
	Name         string
	Speed        int // 0..100, inversely related to response latency
	Skills       map[string]int
	Availability [4]float64
}

// Answer is the persisted record of one terminal submission.
type Answer struct {
	ID           int64
	PlayerGameID int64
	QuestionID   int64
	Value        string
	Correct      bool
	ResponseMs   int64
	Mode         AnswerMode
	CreatedAt    time.Time
}

// LeaderboardEntry is a snapshot-friendly view of a participant.
type LeaderboardEntry struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Leaderboard is the ordered scoreboard, rebuilt on demand and never cached
// across scoring events.
type Leaderboard []LeaderboardEntry
