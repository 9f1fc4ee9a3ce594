package memory

import (
	"context"
	"testing"

	"quiz-round-service/internal/domain"
)

func TestDrawExclusions(t *testing.T) {
	s := NewStore()
	SeedDemo(s)
	ctx := context.Background()

	qs, err := s.QuestionsByBucket(ctx, "1", nil, nil, 10)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	for _, q := range qs {
		if q.Difficulty != "1" {
			t.Fatalf("wrong bucket: %+v", q)
		}
	}

	qs, err = s.QuestionsByBucket(ctx, "1", []string{"geography"}, nil, 10)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	for _, q := range qs {
		if q.Theme == "geography" {
			t.Fatalf("banned theme drawn: %+v", q)
		}
	}

	all, _ := s.RandomQuestions(ctx, nil, nil, 100)
	exclude := make([]int64, 0, len(all))
	for _, q := range all {
		exclude = append(exclude, q.ID)
	}
	qs, err = s.RandomQuestions(ctx, nil, exclude, 10)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if len(qs) != 0 {
		t.Fatalf("excluded question drawn: %+v", qs)
	}
}

func TestUpsertPlayerGameIsIdempotent(t *testing.T) {
	s := NewStore()
	s.AddRoom(domain.Room{ID: 1, Code: "A", Status: domain.RoomOpen})
	ctx := context.Background()

	game, err := s.CreateGame(ctx, 1)
	if err != nil {
		t.Fatalf("create game: %v", err)
	}

	first, err := s.UpsertPlayerGame(ctx, game.ID, 42, "Alice", false)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second, err := s.UpsertPlayerGame(ctx, game.ID, 42, "Alicia", false)
	if err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same participation record, got %d and %d", first.ID, second.ID)
	}
	if second.Name != "Alicia" {
		t.Fatalf("rename not applied: %q", second.Name)
	}

	pgs, _ := s.PlayerGames(ctx, game.ID)
	if len(pgs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(pgs))
	}
}

func TestGameLifecycle(t *testing.T) {
	s := NewStore()
	s.AddRoom(domain.Room{ID: 1, Code: "A", Status: domain.RoomOpen})
	ctx := context.Background()

	if _, err := s.RunningGame(ctx, 1); err != domain.ErrGameNotFound {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}

	game, _ := s.CreateGame(ctx, 1)
	if err := s.SetGameStatus(ctx, game.ID, domain.GameRunning); err != nil {
		t.Fatalf("set status: %v", err)
	}
	running, err := s.RunningGame(ctx, 1)
	if err != nil || running.ID != game.ID {
		t.Fatalf("running game: %v", err)
	}

	if err := s.EndOpenGames(ctx, 1); err != nil {
		t.Fatalf("end open: %v", err)
	}
	if _, err := s.RunningGame(ctx, 1); err != domain.ErrGameNotFound {
		t.Fatalf("expected game ended, got %v", err)
	}
}

func TestRecordAnswerUpdatesTotals(t *testing.T) {
	s := NewStore()
	s.AddRoom(domain.Room{ID: 1, Code: "A", Status: domain.RoomOpen})
	ctx := context.Background()

	game, _ := s.CreateGame(ctx, 1)
	pg, _ := s.UpsertPlayerGame(ctx, game.ID, 42, "Alice", false)

	err := s.RecordAnswer(ctx, domain.Answer{
		PlayerGameID: pg.ID,
		QuestionID:   1,
		Value:        "paris",
		Correct:      true,
		Mode:         domain.ModeText,
	}, 120, 35)
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	got, _ := s.PlayerGamesByID(ctx, []int64{pg.ID})
	if got[0].Score != 120 || got[0].Energy != 35 {
		t.Fatalf("totals not applied: %+v", got[0])
	}
	if len(s.Answers()) != 1 {
		t.Fatalf("answer not recorded")
	}
}

func TestEnsureBotPlayerStable(t *testing.T) {
	s := NewStore()
	s.AddBot(domain.Bot{ID: 3, Name: "Nova", Speed: 50})
	ctx := context.Background()

	first, err := s.EnsureBotPlayer(ctx, 3)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	second, err := s.EnsureBotPlayer(ctx, 3)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if first != second {
		t.Fatalf("bot player id changed: %d vs %d", first, second)
	}

	if _, err := s.EnsureBotPlayer(ctx, 99); err != domain.ErrBotNotFound {
		t.Fatalf("expected ErrBotNotFound, got %v", err)
	}
}
