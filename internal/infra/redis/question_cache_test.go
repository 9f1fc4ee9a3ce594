package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-round-service/internal/domain"
)

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

type countingSource struct {
	calls     int
	questions map[int64]domain.Question
}

func (s *countingSource) LoadQuestion(_ context.Context, id int64) (domain.Question, error) {
	s.calls++
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (s *countingSource) DrawByBucket(_ context.Context, bucket string, _ []string, _ []int64, limit int) ([]domain.Question, error) {
	var out []domain.Question
	for _, q := range s.questions {
		if q.Difficulty == bucket && len(out) < limit {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *countingSource) DrawAny(_ context.Context, _ []string, _ []int64, limit int) ([]domain.Question, error) {
	var out []domain.Question
	for _, q := range s.questions {
		if len(out) < limit {
			out = append(out, q)
		}
	}
	return out, nil
}

func sampleQuestion() domain.Question {
	return domain.Question{
		ID:         7,
		Text:       "What is the capital of France?",
		Theme:      "geography",
		Difficulty: "1",
		Choices: []domain.Choice{
			{ID: 1, Label: "Paris", Correct: true},
			{ID: 2, Label: "Lyon"},
			{ID: 3, Label: "Nice"},
			{ID: 4, Label: "Lille"},
		},
		Accepted: []string{"paris"},
	}
}

func TestQuestionCacheHitsSkipSource(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	source := &countingSource{questions: map[int64]domain.Question{7: sampleQuestion()}}
	cache := NewQuestionCache(newClient(mr), source, time.Minute)

	first, err := cache.LoadQuestion(context.Background(), 7)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected source called once, got %d", source.calls)
	}

	second, err := cache.LoadQuestion(context.Background(), 7)
	if err != nil {
		t.Fatalf("cached load: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected cache hit, source calls=%d", source.calls)
	}
	if second.CorrectChoice().ID != first.CorrectChoice().ID {
		t.Fatalf("correctness flag lost through the cache")
	}
	if len(second.Accepted) != 1 || second.Accepted[0] != "paris" {
		t.Fatalf("accepted variants lost: %v", second.Accepted)
	}
}

func TestQuestionCacheExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	source := &countingSource{questions: map[int64]domain.Question{7: sampleQuestion()}}
	cache := NewQuestionCache(newClient(mr), source, time.Minute)

	if _, err := cache.LoadQuestion(context.Background(), 7); err != nil {
		t.Fatalf("load: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := cache.LoadQuestion(context.Background(), 7); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected reload after expiry, source calls=%d", source.calls)
	}
}

func TestQuestionCacheDrawWarmsByID(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	source := &countingSource{questions: map[int64]domain.Question{7: sampleQuestion()}}
	cache := NewQuestionCache(newClient(mr), source, time.Minute)

	qs, err := cache.DrawByBucket(context.Background(), "1", nil, nil, 5)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if len(qs) != 1 {
		t.Fatalf("expected 1 question, got %d", len(qs))
	}

	if _, err := cache.LoadQuestion(context.Background(), 7); err != nil {
		t.Fatalf("load: %v", err)
	}
	if source.calls != 0 {
		t.Fatalf("draw should have warmed the by-id path, source calls=%d", source.calls)
	}
}

func TestQuestionCacheMissPropagates(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	source := &countingSource{questions: map[int64]domain.Question{}}
	cache := NewQuestionCache(newClient(mr), source, time.Minute)

	if _, err := cache.LoadQuestion(context.Background(), 404); err != domain.ErrQuestionNotFound {
		t.Fatalf("expected ErrQuestionNotFound, got %v", err)
	}
}
