package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quiz-round-service/internal/domain"
)

// StartGame begins (or resumes) a game for the room: builds the roster,
// selects questions, resets scores and energy, and starts round 0. A
// selection failure is reported to the room and aborts the start.
func (e *Engine) StartGame(ctx context.Context, roomID int64) error {
	room, err := e.store.Room(ctx, roomID)
	if err != nil {
		return fmt.Errorf("load room %d: %w", roomID, err)
	}

	game, err := e.store.RunningGame(ctx, roomID)
	switch {
	case errors.Is(err, domain.ErrGameNotFound):
		if err := e.store.EndOpenGames(ctx, roomID); err != nil {
			return fmt.Errorf("end open games: %w", err)
		}
		game, err = e.store.CreateGame(ctx, roomID)
		if err != nil {
			return fmt.Errorf("create game: %w", err)
		}
	case err != nil:
		return fmt.Errorf("lookup running game: %w", err)
	}

	st := &roundState{
		room:     room,
		game:     game,
		players:  make(map[int64]*domain.PlayerGame),
		byPlayer: make(map[int64]int64),
		answered: make(map[int64]struct{}),
		lives:    make(map[int64]int),
		revealed: make(map[int64]struct{}),
	}

	for _, human := range e.presence.ConnectedPlayers(roomID) {
		pg, err := e.store.UpsertPlayerGame(ctx, game.ID, human.PlayerID, human.Name, false)
		if err != nil {
			return fmt.Errorf("attach player %d: %w", human.PlayerID, err)
		}
		st.players[pg.ID] = &pg
		st.byPlayer[pg.PlayerID] = pg.ID
	}

	if room.Visibility == domain.VisibilityPublic {
		if err := e.topUpBots(ctx, st); err != nil {
			e.log.Error("bot top-up failed", "room", roomID, "err", err)
		}
	}

	questions, err := e.selectQuestions(ctx, room)
	if err != nil {
		e.cast.ToRoom(roomID, Event{Type: EventError, Payload: Notice{Message: "no questions available for this room"}})
		return fmt.Errorf("select questions: %w", err)
	}
	st.questions = questions

	ids := make([]int64, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	if err := e.store.AssignQuestions(ctx, game.ID, ids); err != nil {
		return fmt.Errorf("assign questions: %w", err)
	}

	for _, pg := range st.players {
		if err := e.store.ResetPlayerGame(ctx, pg.ID, 0, e.cfg.InitialEnergy); err != nil {
			e.log.Error("reset player game failed", "playerGame", pg.ID, "err", err)
			continue
		}
		pg.Score = 0
		pg.Energy = e.cfg.InitialEnergy
	}

	if err := e.store.SetGameStatus(ctx, game.ID, domain.GameRunning); err != nil {
		return fmt.Errorf("mark game running: %w", err)
	}
	st.game.Status = domain.GameRunning

	// Replace any stale state for this room before the first round arms.
	if prev := e.state(roomID); prev != nil {
		prev.mu.Lock()
		prev.stopped = true
		prev.cancelTimerLocked()
		prev.mu.Unlock()
	}
	e.setState(roomID, st)

	metricGamesStarted.Inc()
	e.cast.ToRoom(roomID, Event{Type: EventLobby, Payload: Roster{Players: rosterOf(st)}})

	st.mu.Lock()
	defer st.mu.Unlock()
	e.startRoundLocked(st)
	return nil
}

// startRoundLocked opens the round at the current index: fresh claim set
// and attempt counters, wall-clock deadline, masked question broadcast,
// bot scheduling and a single deadline timer. Caller holds st.mu.
func (e *Engine) startRoundLocked(st *roundState) {
	now := e.now()
	st.roundStart = now
	st.endsAt = now.Add(e.roundDurationFor(st.room))
	st.generation = uuid.NewString()
	st.answered = make(map[int64]struct{})
	st.revealed = make(map[int64]struct{})
	st.lives = make(map[int64]int)
	st.textCorrect = 0
	for id := range st.players {
		st.lives[id] = e.cfg.TextLives
	}

	q := st.currentQuestion()
	e.cast.ToRoom(st.room.ID, Event{Type: EventRoundBegin, Payload: RoundBegin{
		Index:  st.index,
		Total:  len(st.questions),
		EndsAt: st.endsAt.UnixMilli(),
		Question: MaskedQuestion{
			ID: q.ID, Text: q.Text, Theme: q.Theme, ImageURL: q.ImageURL,
		},
		Lives: e.cfg.TextLives,
	}})
	metricRoundsStarted.Inc()
	e.liveness.Touch(st.room.ID)

	go e.broadcastLeaderboard(st.room.ID, st.game.ID)
	e.scheduleBotsLocked(st)

	gen := st.generation
	st.armTimerLocked(st.endsAt.Sub(now), func() {
		e.safe("end round", func() { e.endRound(st, gen) })
	})
}

// endRound fires at the deadline. Stale timers (cancelled out from under
// us or from a previous round) no-op on the generation check.
func (e *Engine) endRound(st *roundState, gen string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.stopped || st.generation != gen {
		return
	}
	st.cancelTimerLocked()

	ctx := context.Background()
	lb, err := e.Leaderboard(ctx, st.game.ID, nil)
	if err != nil {
		e.log.Error("round-end leaderboard failed", "room", st.room.ID, "err", err)
	}
	correct := st.currentQuestion().CorrectChoice()
	e.cast.ToRoom(st.room.ID, Event{Type: EventRoundEnd, Payload: RoundEnd{
		Index:           st.index,
		CorrectChoiceID: correct.ID,
		CorrectLabel:    correct.Label,
		Leaderboard:     lb,
	}})
	e.liveness.Touch(st.room.ID)

	if st.index+1 < len(st.questions) {
		st.index++
		gap := e.cfg.InterRoundGap()
		st.generation = uuid.NewString()
		st.armTimerLocked(gap, func() {
			e.safe("start round", func() {
				st.mu.Lock()
				defer st.mu.Unlock()
				if st.stopped {
					return
				}
				e.startRoundLocked(st)
			})
		})
		return
	}

	e.finishGameLocked(ctx, st, lb)
}

// finishGameLocked ends the game, pre-creates the successor with the same
// roster at score zero, shows the final board and arms the auto-chain
// timer. Caller holds st.mu.
func (e *Engine) finishGameLocked(ctx context.Context, st *roundState, lb domain.Leaderboard) {
	if err := e.store.SetGameStatus(ctx, st.game.ID, domain.GameEnded); err != nil {
		e.log.Error("mark game ended failed", "game", st.game.ID, "err", err)
	}
	st.game.Status = domain.GameEnded

	next, err := e.store.CreateGame(ctx, st.room.ID)
	if err != nil {
		e.log.Error("pre-create next game failed", "room", st.room.ID, "err", err)
	} else {
		for _, pg := range st.players {
			if _, err := e.store.UpsertPlayerGame(ctx, next.ID, pg.PlayerID, pg.Name, pg.IsBot); err != nil {
				e.log.Error("carry roster forward failed", "player", pg.PlayerID, "err", err)
			}
		}
	}

	displayMs := e.cfg.FinalBoardDisplay().Milliseconds()
	e.cast.ToRoom(st.room.ID, Event{Type: EventFinalBoard, Payload: FinalBoard{
		Leaderboard: lb,
		DisplayMs:   displayMs,
	}})

	e.noteBotGamePlayed(st.room.ID)
	if st.room.Visibility == domain.VisibilityPublic {
		go e.safeErr("rebalance", func() error { return e.Rebalance(context.Background()) })
	}

	roomID := st.room.ID
	st.generation = uuid.NewString()
	st.armTimerLocked(e.cfg.FinalBoardDisplay(), func() {
		e.safe("auto-chain", func() { e.autoChain(roomID, st) })
	})
}

// autoChain restarts the room after the final board, as long as at least
// one human is still connected. Otherwise the room goes quiet.
func (e *Engine) autoChain(roomID int64, prev *roundState) {
	prev.mu.Lock()
	stopped := prev.stopped
	prev.cancelTimerLocked()
	prev.mu.Unlock()
	if stopped {
		return
	}

	if len(e.presence.ConnectedPlayers(roomID)) == 0 {
		e.dropState(roomID)
		e.liveness.Clear(roomID)
		e.log.Info("room idle, not chaining", "room", roomID)
		return
	}
	if err := e.StartGame(context.Background(), roomID); err != nil {
		e.log.Error("auto-chain start failed", "room", roomID, "err", err)
	}
}

// StopGame cancels timers, discards the in-memory state and marks the game
// ended.
func (e *Engine) StopGame(ctx context.Context, roomID int64) error {
	st := e.state(roomID)
	if st == nil {
		return domain.RejectNoState
	}
	st.mu.Lock()
	st.stopped = true
	st.cancelTimerLocked()
	gameID := st.game.ID
	st.mu.Unlock()

	e.dropState(roomID)
	e.liveness.Clear(roomID)
	if err := e.store.SetGameStatus(ctx, gameID, domain.GameEnded); err != nil {
		return fmt.Errorf("mark game ended: %w", err)
	}
	e.cast.ToRoom(roomID, Event{Type: EventInfo, Payload: Notice{Message: "game stopped"}})
	return nil
}

// Join attaches a participant to the room's running game, or just reports
// the lobby when nothing is running. Rejoining players keep their record.
func (e *Engine) Join(ctx context.Context, roomID, playerID int64, name string) (domain.PlayerGame, bool, error) {
	st := e.state(roomID)
	if st == nil {
		e.cast.ToRoom(roomID, Event{Type: EventLobby, Payload: Roster{}})
		return domain.PlayerGame{}, false, nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if id, ok := st.byPlayer[playerID]; ok {
		pg := *st.players[id]
		return pg, true, nil
	}
	pg, err := e.store.UpsertPlayerGame(ctx, st.game.ID, playerID, name, false)
	if err != nil {
		return domain.PlayerGame{}, false, fmt.Errorf("join game: %w", err)
	}
	if err := e.store.ResetPlayerGame(ctx, pg.ID, 0, e.cfg.InitialEnergy); err != nil {
		e.log.Error("reset joining player failed", "playerGame", pg.ID, "err", err)
	} else {
		pg.Score = 0
		pg.Energy = e.cfg.InitialEnergy
	}
	st.players[pg.ID] = &pg
	st.byPlayer[playerID] = pg.ID
	st.lives[pg.ID] = e.cfg.TextLives
	e.cast.ToRoom(roomID, Event{Type: EventLobby, Payload: Roster{Players: rosterOf(st)}})
	return pg, true, nil
}

// Leave only updates the roster broadcast; the participation record stays
// for the rest of the game.
func (e *Engine) Leave(roomID, playerID int64) {
	st := e.state(roomID)
	if st == nil {
		return
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	e.cast.ToRoom(roomID, Event{Type: EventLobby, Payload: Roster{Players: rosterOf(st)}})
}

func (e *Engine) roundDurationFor(room domain.Room) time.Duration {
	if room.RoundSeconds > 0 {
		return time.Duration(room.RoundSeconds) * time.Second
	}
	return e.cfg.RoundDuration()
}

func rosterOf(st *roundState) []domain.LeaderboardEntry {
	out := make([]domain.LeaderboardEntry, 0, len(st.players))
	for _, pg := range st.players {
		out = append(out, domain.LeaderboardEntry{ID: pg.ID, Name: pg.Name, Score: pg.Score})
	}
	return out
}

// safe runs a timer or async callback, logging instead of crashing: a
// failing callback leaves the round stalled, never the process dead.
func (e *Engine) safe(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("callback panicked", "what", what, "panic", r)
		}
	}()
	fn()
}

func (e *Engine) safeErr(what string, fn func() error) {
	e.safe(what, func() {
		if err := fn(); err != nil {
			e.log.Error("callback failed", "what", what, "err", err)
		}
	})
}
