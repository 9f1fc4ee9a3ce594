package engine

import (
	"context"
	"fmt"

	"quiz-round-service/internal/domain"
)

// daypart buckets an hour of day: 0 night, 1 morning, 2 afternoon,
// 3 evening.
func daypart(hour int) int {
	switch {
	case hour < 6:
		return 0
	case hour < 12:
		return 1
	case hour < 18:
		return 2
	default:
		return 3
	}
}

func (e *Engine) attachedBots(roomID int64) []*attachedBot {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*attachedBot, len(e.attached[roomID]))
	copy(out, e.attached[roomID])
	return out
}

// noteBotGamePlayed bumps every attached bot's session counter when a game
// of the room ends.
func (e *Engine) noteBotGamePlayed(roomID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ab := range e.attached[roomID] {
		if s := e.sessions[sessionKey{roomID, ab.bot.ID}]; s != nil {
			s.played++
		}
	}
}

// topUpBots ensures a public room's game starts with the configured bot
// count, attaching candidates through the same path the traffic controller
// uses and upserting their participation records into st. Caller owns st
// exclusively (no round is armed yet).
func (e *Engine) topUpBots(ctx context.Context, st *roundState) error {
	target := e.cfg.BotTarget
	if st.room.MaxBots > 0 && st.room.MaxBots < target {
		target = st.room.MaxBots
	}

	current := e.attachedBots(st.room.ID)
	if missing := target - len(current); missing > 0 {
		// Game start fills to target outright: any bot awake in this
		// daypart qualifies, no population coin flip.
		if err := e.attachBots(ctx, st.room, missing, 1, true); err != nil {
			return err
		}
		current = e.attachedBots(st.room.ID)
	}

	for _, ab := range current {
		pg, err := e.store.UpsertPlayerGame(ctx, st.game.ID, ab.playerID, ab.bot.Name, true)
		if err != nil {
			return fmt.Errorf("attach bot %d: %w", ab.bot.ID, err)
		}
		st.players[pg.ID] = &pg
		st.byPlayer[pg.PlayerID] = pg.ID
	}
	return nil
}

// Rebalance is the population traffic controller: it runs after each game
// of a public room ends, retiring bots whose session is over and topping
// rooms up toward a time-of-day population target.
func (e *Engine) Rebalance(ctx context.Context) error {
	rooms, err := e.store.OpenPublicRooms(ctx)
	if err != nil {
		return fmt.Errorf("list public rooms: %w", err)
	}
	if len(rooms) == 0 {
		return nil
	}

	hour := e.now().Hour()
	global := float64(e.cfg.TrafficMaxPopulace) * e.cfg.TrafficHourlyCurve[hour] * e.rnd.jitter(0.1)

	var weightSum float64
	for _, r := range rooms {
		weightSum += roomWeight(r)
	}

	e.retireFinishedSessions()

	for _, room := range rooms {
		target := int(global * roomWeight(room) / weightSum)
		if room.MaxBots > 0 && target > room.MaxBots {
			target = room.MaxBots
		}
		have := len(e.attachedBots(room.ID))
		if have >= target {
			continue
		}
		if err := e.attachBots(ctx, room, target-have, float64(target-have)/float64(target), false); err != nil {
			e.log.Error("bot attach failed", "room", room.ID, "err", err)
		}
	}
	return nil
}

func roomWeight(r domain.Room) float64 {
	if r.TrafficWeight > 0 {
		return r.TrafficWeight
	}
	return 1
}

// retireFinishedSessions removes live connection records of bots whose
// per-session game counter reached its sampled target.
func (e *Engine) retireFinishedSessions() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for roomID, bots := range e.attached {
		kept := bots[:0]
		for _, ab := range bots {
			key := sessionKey{roomID, ab.bot.ID}
			s := e.sessions[key]
			if s != nil && s.played >= s.target {
				delete(e.sessions, key)
				metricBotsRetired.Inc()
				e.log.Info("bot session over", "room", roomID, "bot", ab.bot.ID, "games", s.played)
				continue
			}
			kept = append(kept, ab)
		}
		e.attached[roomID] = kept
	}
}

// attachBots samples candidates in random order and attaches them,
// weighting by daypart availability and by how far the room is below
// target (need in (0,1]). In guaranteed mode every candidate awake in the
// current daypart is taken until missing is covered; bots with zero
// availability for the daypart never attach either way.
func (e *Engine) attachBots(ctx context.Context, room domain.Room, missing int, need float64, guaranteed bool) error {
	if missing <= 0 {
		return nil
	}
	all, err := e.store.Bots(ctx)
	if err != nil {
		return fmt.Errorf("list bots: %w", err)
	}
	if need > 1 {
		need = 1
	}
	part := daypart(e.now().Hour())

	attached := 0
	for _, i := range e.rnd.perm(len(all)) {
		if attached >= missing {
			break
		}
		bot := all[i]
		if e.isAttached(room.ID, bot.ID) {
			continue
		}
		if bot.Availability[part] <= 0 {
			continue
		}
		if !guaranteed {
			if p := bot.Availability[part] * need; e.rnd.Float64() >= p {
				continue
			}
		}
		playerID, err := e.store.EnsureBotPlayer(ctx, bot.ID)
		if err != nil {
			e.log.Error("ensure bot player failed", "bot", bot.ID, "err", err)
			continue
		}
		e.attach(room.ID, bot, playerID)
		attached++
	}
	return nil
}

func (e *Engine) isAttached(roomID, botID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ab := range e.attached[roomID] {
		if ab.bot.ID == botID {
			return true
		}
	}
	return false
}

// attach records the live connection and samples the session length once:
// a heavy-tailed draw so most visits are short and a few linger.
func (e *Engine) attach(roomID int64, bot domain.Bot, playerID int64) {
	games := e.cfg.BotMinSessionGames + int(e.rnd.ExpFloat64()*e.cfg.BotMeanExtraGames)
	e.mu.Lock()
	e.attached[roomID] = append(e.attached[roomID], &attachedBot{bot: bot, playerID: playerID})
	e.sessions[sessionKey{roomID, bot.ID}] = &botSession{target: games}
	e.mu.Unlock()
	metricBotsAttached.Inc()
	e.log.Debug("bot attached", "room", roomID, "bot", bot.ID, "sessionGames", games)
}
