package engine

import (
	"context"
	"errors"
	"time"

	"quiz-round-service/internal/domain"
)

// botOutcome is what a bot decided to do with the current question.
type botOutcome int

const (
	outcomeTextCorrect botOutcome = iota
	outcomeChoiceCorrect
	outcomeTextWrong
	outcomeChoiceWrong
)

const defaultSkill = 50

// scheduleBotsLocked plans one delayed submission per bot-backed
// participant for the round just opened. Callbacks capture the round
// generation and no-op if the round moved on. Caller holds st.mu.
func (e *Engine) scheduleBotsLocked(st *roundState) {
	bots := e.attachedBots(st.room.ID)
	if len(bots) == 0 {
		return
	}
	q := st.currentQuestion()
	gen := st.generation
	roomID := st.room.ID

	for _, ab := range bots {
		pgID, ok := st.byPlayer[ab.playerID]
		if !ok {
			continue
		}
		outcome := e.decide(ab.bot, q)
		delay := e.botDelay(ab.bot, st.endsAt.Sub(e.now()))
		bot := ab.bot
		id := pgID
		time.AfterFunc(delay, func() {
			e.safe("bot submit", func() {
				e.botSubmit(roomID, id, gen, bot, q, outcome)
			})
		})
	}
}

// decide draws the stochastic outcome from the bot's skill on the
// question's theme against the per-bucket threshold: clear the threshold
// and the bot knows it cold (free text); land just under and it needed the
// choices; otherwise it is wrong, still preferring free text the more
// skilled it is.
func (e *Engine) decide(bot domain.Bot, q domain.Question) botOutcome {
	skill := e.skillFor(bot, q.Theme)
	sample := float64(skill) + e.rnd.NormFloat64()*e.cfg.BotSkillSpread
	if sample < 0 {
		sample = 0
	}
	if sample > 100 {
		sample = 100
	}

	threshold := float64(e.thresholdFor(q.Difficulty))
	switch {
	case sample >= threshold:
		return outcomeTextCorrect
	case sample >= threshold-float64(e.cfg.BotChoiceBand):
		return outcomeChoiceCorrect
	}

	pText := 0.2 + 0.6*float64(skill)/100
	if e.rnd.Float64() < pText {
		return outcomeTextWrong
	}
	return outcomeChoiceWrong
}

func (e *Engine) skillFor(bot domain.Bot, theme string) int {
	if v, ok := bot.Skills[theme]; ok {
		return v
	}
	if v, ok := bot.Skills["general"]; ok {
		return v
	}
	return defaultSkill
}

func (e *Engine) thresholdFor(bucket string) int {
	switch bucket {
	case "1":
		return e.cfg.BotThresholds[0]
	case "2":
		return e.cfg.BotThresholds[1]
	case "3":
		return e.cfg.BotThresholds[2]
	default:
		return e.cfg.BotThresholds[3]
	}
}

// botDelay maps speed to a submission moment inside the round: slow bots
// answer late, fast ones early, jittered ±10%, always keeping a margin
// before the deadline.
func (e *Engine) botDelay(bot domain.Bot, remaining time.Duration) time.Duration {
	margin := time.Duration(e.cfg.BotMarginSeconds) * time.Second
	usable := remaining - margin
	if usable <= 0 {
		usable = remaining / 2
	}

	speed := bot.Speed
	if speed < 0 {
		speed = 0
	}
	if speed > 100 {
		speed = 100
	}
	// speed 100 -> ~15% of the window, speed 0 -> ~95%.
	frac := 0.95 - 0.8*float64(speed)/100
	delay := time.Duration(float64(usable) * frac * e.rnd.jitter(0.1))

	if min := 800 * time.Millisecond; delay < min {
		delay = min
	}
	if delay > usable {
		delay = usable
	}
	return delay
}

// botSubmit replays the decided outcome through the exact scoring path
// humans use, pinned to the round the decision was made for: the scoring
// path checks the generation under the room lock, so a submission for a
// round that already ended is rejected instead of scoring against the
// next one.
func (e *Engine) botSubmit(roomID, playerGameID int64, gen string, bot domain.Bot, q domain.Question, outcome botOutcome) {
	ctx := context.Background()
	var err error
	switch outcome {
	case outcomeTextCorrect:
		_, err = e.submitText(ctx, roomID, playerGameID, e.acceptedVariant(q), gen)
	case outcomeChoiceCorrect:
		_, err = e.submitChoice(ctx, roomID, playerGameID, q.CorrectChoice().ID, gen)
	case outcomeTextWrong:
		_, err = e.submitText(ctx, roomID, playerGameID, e.wrongText(q), gen)
	case outcomeChoiceWrong:
		_, err = e.submitChoice(ctx, roomID, playerGameID, e.wrongChoice(q), gen)
	}

	var reject domain.Reject
	if err != nil && !errors.As(err, &reject) {
		e.log.Error("bot submission failed",
			"room", roomID, "bot", bot.ID, "err", err)
	}
}

// acceptedVariant picks one of the question's accepted spellings.
func (e *Engine) acceptedVariant(q domain.Question) string {
	if len(q.Accepted) == 0 {
		return q.CorrectChoice().Label
	}
	return q.Accepted[e.rnd.Intn(len(q.Accepted))]
}

// wrongText uses an incorrect choice label as a plausible wrong free-text
// answer.
func (e *Engine) wrongText(q domain.Question) string {
	for _, i := range e.rnd.perm(len(q.Choices)) {
		if !q.Choices[i].Correct {
			return q.Choices[i].Label
		}
	}
	return "no idea"
}

func (e *Engine) wrongChoice(q domain.Question) int64 {
	for _, i := range e.rnd.perm(len(q.Choices)) {
		if !q.Choices[i].Correct {
			return q.Choices[i].ID
		}
	}
	return 0
}
