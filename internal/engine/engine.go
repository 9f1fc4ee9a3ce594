// Package engine drives live quiz rounds: question selection, timed round
// lifecycle, answer scoring, bot simulation and room population.
package engine

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"quiz-round-service/internal/config"
	"quiz-round-service/internal/domain"
)

// Engine owns one in-memory round state per active room. All mutation of a
// room's state happens under that room's lock; the registry lock is never
// held across store I/O or while a room lock is held.
type Engine struct {
	cfg      config.Engine
	store    Store
	cast     Broadcaster
	presence Presence
	liveness Liveness
	log      *slog.Logger
	rnd      *lockedRand
	now      func() time.Time

	mu       sync.Mutex
	rooms    map[int64]*roundState
	attached map[int64][]*attachedBot   // roomID -> live bot connections
	sessions map[sessionKey]*botSession // per bot-attachment counters
}

type sessionKey struct {
	roomID int64
	botID  int64
}

// attachedBot is a bot's live connection record for one room.
type attachedBot struct {
	bot      domain.Bot
	playerID int64
}

// botSession models a human-like session length: the bot leaves after a
// randomized number of played games.
type botSession struct {
	played int
	target int
}

// Option customizes an Engine at construction.
type Option func(*Engine)

// WithBroadcaster wires the outbound event sink.
func WithBroadcaster(b Broadcaster) Option {
	return func(e *Engine) { e.cast = b }
}

// WithPresence wires the connected-player source.
func WithPresence(p Presence) Option {
	return func(e *Engine) { e.presence = p }
}

// WithLiveness wires the round-transition liveness marker.
func WithLiveness(l Liveness) Option {
	return func(e *Engine) { e.liveness = l }
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock is test-only, for deterministic deadlines.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRandSeed is test-only, for reproducible draws.
func WithRandSeed(seed int64) Option {
	return func(e *Engine) { e.rnd = newLockedRand(seed) }
}

func New(cfg config.Engine, store Store, opts ...Option) *Engine {
	e := &Engine{
		cfg:      cfg,
		store:    store,
		cast:     noopBroadcaster{},
		presence: noopPresence{},
		liveness: noopLiveness{},
		log:      slog.Default(),
		rnd:      newLockedRand(time.Now().UnixNano()),
		now:      time.Now,
		rooms:    make(map[int64]*roundState),
		attached: make(map[int64][]*attachedBot),
		sessions: make(map[sessionKey]*botSession),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// roundState is the authoritative mutable object for one running game.
// Everything below mu is guarded by it, including the write-through store
// calls, so a room behaves as a single logical thread.
type roundState struct {
	mu sync.Mutex

	room      domain.Room
	game      domain.Game
	questions []domain.Question
	index     int

	roundStart time.Time
	endsAt     time.Time
	generation string // uid captured by scheduled callbacks

	players     map[int64]*domain.PlayerGame // playerGameID -> live record
	byPlayer    map[int64]int64              // playerID -> playerGameID
	answered    map[int64]struct{}           // terminal-claim set
	lives       map[int64]int                // free-text attempts left
	revealed    map[int64]struct{}           // choice reveal idempotency
	textCorrect int                          // arrival rank for the text speed bonus

	timer   *time.Timer
	stopped bool
}

func (st *roundState) currentQuestion() domain.Question {
	return st.questions[st.index]
}

// cancelTimerLocked stops the outstanding phase timer, if any. Every arm
// goes through armTimerLocked so at most one handle exists.
func (st *roundState) cancelTimerLocked() {
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
}

func (st *roundState) armTimerLocked(d time.Duration, fn func()) {
	st.cancelTimerLocked()
	st.timer = time.AfterFunc(d, fn)
}

// state returns the live round state for a room, if any.
func (e *Engine) state(roomID int64) *roundState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rooms[roomID]
}

func (e *Engine) setState(roomID int64, st *roundState) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rooms[roomID] = st
}

func (e *Engine) dropState(roomID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.rooms, roomID)
}

// lockedRand guards a seeded math/rand source; timer callbacks draw from
// multiple goroutines.
type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newLockedRand(seed int64) *lockedRand {
	return &lockedRand{rnd: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64()
}

func (r *lockedRand) NormFloat64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.NormFloat64()
}

func (r *lockedRand) ExpFloat64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.ExpFloat64()
}

func (r *lockedRand) perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Perm(n)
}

// jitter returns a multiplier in [1-f, 1+f].
func (r *lockedRand) jitter(f float64) float64 {
	return 1 - f + 2*f*r.Float64()
}
