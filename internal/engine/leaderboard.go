package engine

import (
	"context"
	"sort"

	"quiz-round-service/internal/domain"
)

// Leaderboard builds the ranked view for a game: either the explicit
// participant set, or everyone in the game. Pure read; callers treat it as
// an eventually-consistent live view rebuilt after every scoring event.
func (e *Engine) Leaderboard(ctx context.Context, gameID int64, ids []int64) (domain.Leaderboard, error) {
	var (
		pgs []domain.PlayerGame
		err error
	)
	if len(ids) > 0 {
		pgs, err = e.store.PlayerGamesByID(ctx, ids)
	} else {
		pgs, err = e.store.PlayerGames(ctx, gameID)
	}
	if err != nil {
		return nil, err
	}

	out := make(domain.Leaderboard, 0, len(pgs))
	for _, pg := range pgs {
		out = append(out, domain.LeaderboardEntry{ID: pg.ID, Name: pg.Name, Score: pg.Score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// broadcastLeaderboard rebuilds and fans out the live board; failures are
// logged and dropped, the next scoring event retries naturally.
func (e *Engine) broadcastLeaderboard(roomID, gameID int64) {
	lb, err := e.Leaderboard(context.Background(), gameID, nil)
	if err != nil {
		e.log.Error("leaderboard refresh failed", "room", roomID, "err", err)
		return
	}
	e.cast.ToRoom(roomID, Event{Type: EventLeaderboard, Payload: lb})
}
