package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-round-service/internal/domain"
	"quiz-round-service/internal/infra/postgres"
)

// QuestionCache fronts the Postgres question loader with per-question
// JSON entries in Redis. Random draws always go to the source; only the
// by-id load is cacheable, and that is the round hot path. Stored as:
// SET question:{id} {json} EX ttl
type QuestionCache struct {
	client *redis.Client
	source postgres.QuestionSource
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, source postgres.QuestionSource, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) LoadQuestion(ctx context.Context, id int64) (domain.Question, error) {
	key := c.key(id)
	if q, ok := c.fromCache(ctx, key); ok {
		return q, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled it while we waited.
		if q, ok := c.fromCache(ctx, key); ok {
			return q, nil
		}
		q, err := c.source.LoadQuestion(ctx, id)
		if err != nil {
			return domain.Question{}, err
		}
		c.store(ctx, key, q)
		return q, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (c *QuestionCache) DrawByBucket(ctx context.Context, bucket string, banned []string, exclude []int64, limit int) ([]domain.Question, error) {
	qs, err := c.source.DrawByBucket(ctx, bucket, banned, exclude, limit)
	if err != nil {
		return nil, err
	}
	c.warm(ctx, qs)
	return qs, nil
}

func (c *QuestionCache) DrawAny(ctx context.Context, banned []string, exclude []int64, limit int) ([]domain.Question, error) {
	qs, err := c.source.DrawAny(ctx, banned, exclude, limit)
	if err != nil {
		return nil, err
	}
	c.warm(ctx, qs)
	return qs, nil
}

// warm seeds the cache from a draw so the round's by-id loads hit.
func (c *QuestionCache) warm(ctx context.Context, qs []domain.Question) {
	for _, q := range qs {
		c.store(ctx, c.key(q.ID), q)
	}
}

// cachedQuestion carries the correctness flags that domain.Choice hides
// from client serialization.
type cachedQuestion struct {
	ID         int64          `json:"id"`
	Text       string         `json:"text"`
	Theme      string         `json:"theme"`
	Difficulty string         `json:"difficulty"`
	ImageURL   string         `json:"imageUrl,omitempty"`
	Choices    []cachedChoice `json:"choices"`
	Accepted   []string       `json:"accepted"`
}

type cachedChoice struct {
	ID      int64  `json:"id"`
	Label   string `json:"label"`
	Correct bool   `json:"correct"`
}

func (c *QuestionCache) fromCache(ctx context.Context, key string) (domain.Question, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Question{}, false
	}
	var cached cachedQuestion
	if err := json.Unmarshal(raw, &cached); err != nil {
		return domain.Question{}, false
	}
	q := domain.Question{
		ID:         cached.ID,
		Text:       cached.Text,
		Theme:      cached.Theme,
		Difficulty: cached.Difficulty,
		ImageURL:   cached.ImageURL,
		Accepted:   cached.Accepted,
	}
	for _, ch := range cached.Choices {
		q.Choices = append(q.Choices, domain.Choice{ID: ch.ID, Label: ch.Label, Correct: ch.Correct})
	}
	return q, true
}

func (c *QuestionCache) store(ctx context.Context, key string, q domain.Question) {
	cached := cachedQuestion{
		ID:         q.ID,
		Text:       q.Text,
		Theme:      q.Theme,
		Difficulty: q.Difficulty,
		ImageURL:   q.ImageURL,
		Accepted:   q.Accepted,
	}
	for _, ch := range q.Choices {
		cached.Choices = append(cached.Choices, cachedChoice{ID: ch.ID, Label: ch.Label, Correct: ch.Correct})
	}
	raw, err := json.Marshal(cached)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, raw, c.ttlWithJitter())
}

func (c *QuestionCache) key(id int64) string {
	return fmt.Sprintf("question:%d", id)
}

// ttlWithJitter spreads expirations so a popular question set does not
// stampede the loader all at once.
func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitter := time.Duration(c.rnd.Int63n(int64(c.ttl) / 10))
	return c.ttl + jitter
}
