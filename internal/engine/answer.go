package engine

import (
	"context"
	"strconv"

	"quiz-round-service/internal/domain"
	"quiz-round-service/internal/energy"
	"quiz-round-service/internal/match"
	"quiz-round-service/internal/shuffle"
)

// SubmitChoice applies a multiple-choice answer. A choice submission is
// always terminal: right or wrong, the participant is done for the round.
func (e *Engine) SubmitChoice(ctx context.Context, roomID, playerGameID, choiceID int64) (Feedback, error) {
	return e.submitChoice(ctx, roomID, playerGameID, choiceID, "")
}

// submitChoice applies one multiple-choice submission. A non-empty gen
// pins the submission to one round: checked under st.mu, so a decision
// made for round N can never score against round N+1.
func (e *Engine) submitChoice(ctx context.Context, roomID, playerGameID, choiceID int64, gen string) (Feedback, error) {
	st := e.state(roomID)
	if st == nil {
		return e.reject(domain.RejectNoState)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if gen != "" && (st.stopped || st.generation != gen) {
		return e.reject(domain.RejectTooLate)
	}
	pg, ok := st.players[playerGameID]
	if !ok {
		return e.reject(domain.RejectNoClient)
	}
	now := e.now()
	if now.After(st.endsAt) {
		return e.reject(domain.RejectTooLate)
	}
	if _, done := st.answered[playerGameID]; done {
		return e.reject(domain.RejectAlreadyAnswered)
	}

	q := st.currentQuestion()
	var chosen *domain.Choice
	for i := range q.Choices {
		if q.Choices[i].ID == choiceID {
			chosen = &q.Choices[i]
			break
		}
	}
	if chosen == nil {
		return e.reject(domain.RejectBadChoice)
	}

	// Claim before any store I/O: a second submission in the same tick
	// fails the already-answered check above.
	st.answered[playerGameID] = struct{}{}

	gain := e.cfg.EnergyAutoGain
	awarded := 0
	if chosen.Correct {
		gain += e.cfg.EnergyCorrectBonus
		awarded = e.cfg.ChoicePoints
	}
	pg.Energy = energy.Gain(pg.Energy, gain)
	pg.Score += awarded

	e.persistAnswer(ctx, st, pg, domain.Answer{
		PlayerGameID: playerGameID,
		QuestionID:   q.ID,
		Value:        chosen.Label,
		Correct:      chosen.Correct,
		ResponseMs:   now.Sub(st.roundStart).Milliseconds(),
		Mode:         domain.ModeChoice,
	})
	metricAnswers.WithLabelValues(string(domain.ModeChoice), outcomeLabel(chosen.Correct)).Inc()
	e.afterScoringLocked(st, pg, chosen.Correct)

	correct := q.CorrectChoice()
	return Feedback{
		Correct:         chosen.Correct,
		CorrectChoiceID: correct.ID,
		CorrectLabel:    correct.Label,
		Awarded:         awarded,
		Terminal:        true,
	}, nil
}

// SubmitText applies a free-text answer under the per-round attempt
// budget. Wrong attempts burn a life and withhold the solution until the
// participant is correct or out of lives.
func (e *Engine) SubmitText(ctx context.Context, roomID, playerGameID int64, raw string) (Feedback, error) {
	return e.submitText(ctx, roomID, playerGameID, raw, "")
}

func (e *Engine) submitText(ctx context.Context, roomID, playerGameID int64, raw, gen string) (Feedback, error) {
	st := e.state(roomID)
	if st == nil {
		return e.reject(domain.RejectNoState)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if gen != "" && (st.stopped || st.generation != gen) {
		return e.reject(domain.RejectTooLate)
	}
	pg, ok := st.players[playerGameID]
	if !ok {
		return e.reject(domain.RejectNoClient)
	}
	now := e.now()
	if now.After(st.endsAt) {
		return e.reject(domain.RejectTooLate)
	}
	if _, done := st.answered[playerGameID]; done {
		return e.reject(domain.RejectAlreadyAnswered)
	}
	livesLeft := st.lives[playerGameID]
	if livesLeft <= 0 {
		return e.reject(domain.RejectNoLives)
	}

	normalized := match.Normalize(raw)
	if normalized == "" {
		return e.reject(domain.RejectEmpty)
	}

	q := st.currentQuestion()
	correctAnswer := q.CorrectChoice()
	hit := match.Match(normalized, q.Accepted)

	if !hit {
		livesLeft--
		st.lives[playerGameID] = livesLeft
		if livesLeft > 0 {
			// Not terminal: the solution stays hidden.
			return Feedback{Correct: false, LivesLeft: livesLeft}, nil
		}
		st.answered[playerGameID] = struct{}{}
		e.persistAnswer(ctx, st, pg, domain.Answer{
			PlayerGameID: playerGameID,
			QuestionID:   q.ID,
			Value:        raw,
			Correct:      false,
			ResponseMs:   now.Sub(st.roundStart).Milliseconds(),
			Mode:         domain.ModeText,
		})
		metricAnswers.WithLabelValues(string(domain.ModeText), outcomeLabel(false)).Inc()
		e.afterScoringLocked(st, pg, false)
		return Feedback{
			Correct:         false,
			CorrectChoiceID: correctAnswer.ID,
			CorrectLabel:    correctAnswer.Label,
			Terminal:        true,
		}, nil
	}

	st.answered[playerGameID] = struct{}{}
	st.textCorrect++

	// The multiplier reads the energy held before this round's gain.
	awarded := energy.Award(e.cfg.TextBasePoints, pg.Energy) + e.textSpeedBonus(st.textCorrect)
	pg.Energy = energy.Gain(pg.Energy, e.cfg.TextEnergyGain)
	pg.Score += awarded

	e.persistAnswer(ctx, st, pg, domain.Answer{
		PlayerGameID: playerGameID,
		QuestionID:   q.ID,
		Value:        raw,
		Correct:      true,
		ResponseMs:   now.Sub(st.roundStart).Milliseconds(),
		Mode:         domain.ModeText,
	})
	metricAnswers.WithLabelValues(string(domain.ModeText), outcomeLabel(true)).Inc()
	e.afterScoringLocked(st, pg, true)

	return Feedback{
		Correct:         true,
		CorrectChoiceID: correctAnswer.ID,
		CorrectLabel:    correctAnswer.Label,
		LivesLeft:       livesLeft,
		Awarded:         awarded,
		Terminal:        true,
	}, nil
}

// Reveal sends the viewer's shuffled choice list, spending energy once per
// round. Repeat calls are free and return the same order.
func (e *Engine) Reveal(ctx context.Context, roomID, playerGameID int64) (ChoiceList, error) {
	st := e.state(roomID)
	if st == nil {
		return ChoiceList{}, e.rejectErr(domain.RejectNoState)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	pg, ok := st.players[playerGameID]
	if !ok {
		return ChoiceList{}, e.rejectErr(domain.RejectNoClient)
	}
	if e.now().After(st.endsAt) {
		return ChoiceList{}, e.rejectErr(domain.RejectTooLate)
	}

	q := st.currentQuestion()
	if _, done := st.revealed[playerGameID]; !done {
		st.revealed[playerGameID] = struct{}{}
		if next, spent := energy.Spend(pg.Energy, e.cfg.RevealCost); spent {
			pg.Energy = next
			if err := e.store.SetEnergy(ctx, pg.ID, next); err != nil {
				e.log.Error("persist reveal spend failed", "playerGame", pg.ID, "err", err)
			}
			e.cast.ToPlayer(pg.PlayerID, Event{Type: EventEnergy, Payload: EnergyUpdate{
				PlayerGameID: pg.ID,
				Energy:       pg.Energy,
				Multiplier:   energy.Multiplier(pg.Energy),
			}})
		}
	}

	viewer := strconv.FormatInt(pg.PlayerID, 10)
	return ChoiceList{QuestionID: q.ID, Choices: shuffle.Choices(q, viewer)}, nil
}

// textSpeedBonus decays linearly by arrival rank: the first correct text
// answer gets the full bonus, the Nth gets 1/N of it.
func (e *Engine) textSpeedBonus(rank int) int {
	n := e.cfg.TextBonusRanks
	if n <= 0 || rank > n {
		return 0
	}
	return e.cfg.TextBonusMax * (n - rank + 1) / n
}

// persistAnswer writes the answer row together with the new score and
// energy. A write failure degrades the round (stale store scores) but
// never unwinds the in-memory outcome.
func (e *Engine) persistAnswer(ctx context.Context, st *roundState, pg *domain.PlayerGame, ans domain.Answer) {
	ans.CreatedAt = e.now()
	if err := e.store.RecordAnswer(ctx, ans, pg.Score, pg.Energy); err != nil {
		e.log.Error("record answer failed",
			"room", st.room.ID, "playerGame", pg.ID, "err", err)
	}
}

// afterScoringLocked emits the per-answer room notifications and refreshes
// the live leaderboard.
func (e *Engine) afterScoringLocked(st *roundState, pg *domain.PlayerGame, correct bool) {
	e.cast.ToRoom(st.room.ID, Event{Type: EventAnswered, Payload: Answered{
		PlayerGameID: pg.ID,
		Correct:      correct,
	}})
	e.cast.ToPlayer(pg.PlayerID, Event{Type: EventEnergy, Payload: EnergyUpdate{
		PlayerGameID: pg.ID,
		Energy:       pg.Energy,
		Multiplier:   energy.Multiplier(pg.Energy),
	}})
	go e.broadcastLeaderboard(st.room.ID, st.game.ID)
}

func (e *Engine) reject(r domain.Reject) (Feedback, error) {
	return Feedback{}, e.rejectErr(r)
}

func (e *Engine) rejectErr(r domain.Reject) error {
	metricRejects.WithLabelValues(string(r)).Inc()
	return r
}
