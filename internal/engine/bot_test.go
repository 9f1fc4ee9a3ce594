package engine

import (
	"context"
	"testing"
	"time"

	"quiz-round-service/internal/config"
	"quiz-round-service/internal/domain"
	"quiz-round-service/internal/infra/memory"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	return New(config.DefaultEngine(), memory.NewStore(), WithRandSeed(1))
}

func TestDecideSkillExtremes(t *testing.T) {
	e := testEngine(t)
	q := domain.Question{Theme: "geography", Difficulty: "2"} // threshold 45

	strong := domain.Bot{Skills: map[string]int{"geography": 70}}
	strongText := 0
	for i := 0; i < 1000; i++ {
		if e.decide(strong, q) == outcomeTextCorrect {
			strongText++
		}
	}
	// N(70, 18) lands above 45 roughly 92% of the time.
	if strongText < 800 {
		t.Fatalf("skill-70 bot should usually answer in text mode, got %d/1000", strongText)
	}

	weak := domain.Bot{Skills: map[string]int{"geography": 10}}
	weakWrong := 0
	for i := 0; i < 1000; i++ {
		o := e.decide(weak, q)
		if o == outcomeTextWrong || o == outcomeChoiceWrong {
			weakWrong++
		}
	}
	if weakWrong < 800 {
		t.Fatalf("skill-10 bot should usually be wrong, got %d/1000", weakWrong)
	}
}

func TestDecideSkillFallbackChain(t *testing.T) {
	e := testEngine(t)
	bot := domain.Bot{Skills: map[string]int{"general": 75, "science": 20}}
	if got := e.skillFor(bot, "science"); got != 20 {
		t.Fatalf("theme skill should win, got %d", got)
	}
	if got := e.skillFor(bot, "history"); got != 75 {
		t.Fatalf("general fallback should apply, got %d", got)
	}
	if got := e.skillFor(domain.Bot{}, "history"); got != defaultSkill {
		t.Fatalf("constant fallback should apply, got %d", got)
	}
}

func TestBotDelayRespectsDeadlineMargin(t *testing.T) {
	e := testEngine(t)
	remaining := 20 * time.Second
	margin := time.Duration(e.cfg.BotMarginSeconds) * time.Second
	for speed := 0; speed <= 100; speed += 10 {
		for i := 0; i < 200; i++ {
			d := e.botDelay(domain.Bot{Speed: speed}, remaining)
			if d > remaining-margin {
				t.Fatalf("speed=%d: delay %v leaves no margin before deadline", speed, d)
			}
			if d <= 0 {
				t.Fatalf("speed=%d: non-positive delay %v", speed, d)
			}
		}
	}
}

func TestBotDelaySlowerBotsAnswerLater(t *testing.T) {
	e := testEngine(t)
	remaining := 20 * time.Second
	avg := func(speed int) time.Duration {
		var total time.Duration
		for i := 0; i < 500; i++ {
			total += e.botDelay(domain.Bot{Speed: speed}, remaining)
		}
		return total / 500
	}
	if fast, slow := avg(90), avg(10); fast >= slow {
		t.Fatalf("expected fast bots earlier: fast=%v slow=%v", fast, slow)
	}
}

func TestThresholdTable(t *testing.T) {
	e := testEngine(t)
	want := map[string]int{"1": 30, "2": 45, "3": 60, "4": 75}
	for bucket, threshold := range want {
		if got := e.thresholdFor(bucket); got != threshold {
			t.Fatalf("threshold for bucket %s = %d, want %d", bucket, got, threshold)
		}
	}
}

func TestTextSpeedBonusDecaysByRank(t *testing.T) {
	e := testEngine(t) // ranks 3, max 30
	for rank, want := range map[int]int{1: 30, 2: 20, 3: 10, 4: 0, 9: 0} {
		if got := e.textSpeedBonus(rank); got != want {
			t.Fatalf("bonus at rank %d = %d, want %d", rank, got, want)
		}
	}
}

func TestDaypart(t *testing.T) {
	for hour, want := range map[int]int{0: 0, 5: 0, 6: 1, 11: 1, 12: 2, 17: 2, 18: 3, 23: 3} {
		if got := daypart(hour); got != want {
			t.Fatalf("daypart(%d) = %d, want %d", hour, got, want)
		}
	}
}

func TestSubmissionPinnedToRoundGeneration(t *testing.T) {
	store := trafficStore(3, [4]float64{1, 1, 1, 1}, 0)
	e := trafficEngine(store)
	ctx := context.Background()

	if err := e.StartGame(ctx, 3); err != nil {
		t.Fatalf("start game: %v", err)
	}
	defer e.StopGame(ctx, 3)

	pgs, err := store.PlayerGames(ctx, 1)
	if err != nil || len(pgs) != 1 {
		t.Fatalf("player games: %v (%d)", err, len(pgs))
	}
	pgID := pgs[0].ID

	st := e.state(3)
	st.mu.Lock()
	gen := st.generation
	q := st.currentQuestion()
	st.mu.Unlock()
	correctID := q.CorrectChoice().ID

	// A decision carried over from an earlier round scores nothing.
	_, err = e.submitChoice(ctx, 3, pgID, correctID, "stale")
	if reason, ok := domain.AsReject(err); !ok || reason != domain.RejectTooLate {
		t.Fatalf("stale-round choice should be too late, got %v", err)
	}
	_, err = e.submitText(ctx, 3, pgID, q.Accepted[0], "stale")
	if reason, ok := domain.AsReject(err); !ok || reason != domain.RejectTooLate {
		t.Fatalf("stale-round text should be too late, got %v", err)
	}
	if got := len(store.Answers()); got != 0 {
		t.Fatalf("stale submissions must not persist, got %d answers", got)
	}

	// The current round's pin goes through.
	fb, err := e.submitChoice(ctx, 3, pgID, correctID, gen)
	if err != nil {
		t.Fatalf("pinned choice: %v", err)
	}
	if !fb.Correct {
		t.Fatalf("expected correct feedback, got %+v", fb)
	}
	if got := len(store.Answers()); got != 1 {
		t.Fatalf("expected 1 persisted answer, got %d", got)
	}
}

func TestBotSubmitIgnoresEndedRound(t *testing.T) {
	store := trafficStore(3, [4]float64{1, 1, 1, 1}, 0)
	e := trafficEngine(store)
	ctx := context.Background()

	if err := e.StartGame(ctx, 3); err != nil {
		t.Fatalf("start game: %v", err)
	}
	defer e.StopGame(ctx, 3)

	pgs, err := store.PlayerGames(ctx, 1)
	if err != nil || len(pgs) != 1 {
		t.Fatalf("player games: %v (%d)", err, len(pgs))
	}
	pgID := pgs[0].ID

	st := e.state(3)
	st.mu.Lock()
	q := st.currentQuestion()
	st.mu.Unlock()

	e.botSubmit(3, pgID, "stale", domain.Bot{ID: 9, Name: "late"}, q, outcomeChoiceCorrect)

	if got := len(store.Answers()); got != 0 {
		t.Fatalf("bot firing after its round must not score, got %d answers", got)
	}
	if _, err := store.PlayerGames(ctx, 1); err != nil {
		t.Fatalf("player games after bot: %v", err)
	}
	if pgs, _ := store.PlayerGames(ctx, 1); pgs[0].Score != 0 {
		t.Fatalf("score must be untouched, got %d", pgs[0].Score)
	}
}
