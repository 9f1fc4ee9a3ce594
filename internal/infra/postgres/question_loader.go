package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-round-service/internal/domain"
)

// QuestionLoader reads question rows over pgx. Question loads happen on
// the round hot path, separate from bun's transactional write side.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

// LoadQuestion fetches one question with its choices and accepted
// free-text variants.
func (l *QuestionLoader) LoadQuestion(ctx context.Context, id int64) (domain.Question, error) {
	var q domain.Question
	err := l.pool.QueryRow(ctx,
		`SELECT id, text, theme, difficulty, COALESCE(image_url, '') FROM questions WHERE id=$1`,
		id,
	).Scan(&q.ID, &q.Text, &q.Theme, &q.Difficulty, &q.ImageURL)
	if err == pgx.ErrNoRows {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question %d: %w", id, err)
	}
	if err := l.fillChoices(ctx, &q); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

// DrawByBucket picks up to limit random questions from one difficulty
// bucket, skipping banned themes and already-drawn ids.
func (l *QuestionLoader) DrawByBucket(ctx context.Context, bucket string, banned []string, exclude []int64, limit int) ([]domain.Question, error) {
	return l.draw(ctx,
		`SELECT id FROM questions
		 WHERE difficulty = $1
		   AND NOT (theme = ANY($2))
		   AND NOT (id = ANY($3))
		 ORDER BY random() LIMIT $4`,
		bucket, asTextArray(banned), asBigintArray(exclude), limit)
}

// DrawAny is the fallback draw across every bucket.
func (l *QuestionLoader) DrawAny(ctx context.Context, banned []string, exclude []int64, limit int) ([]domain.Question, error) {
	return l.draw(ctx,
		`SELECT id FROM questions
		 WHERE NOT (theme = ANY($1))
		   AND NOT (id = ANY($2))
		 ORDER BY random() LIMIT $3`,
		asTextArray(banned), asBigintArray(exclude), limit)
}

func (l *QuestionLoader) draw(ctx context.Context, query string, args ...interface{}) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("draw questions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		q, err := l.LoadQuestion(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func (l *QuestionLoader) fillChoices(ctx context.Context, q *domain.Question) error {
	rows, err := l.pool.Query(ctx,
		`SELECT id, label, correct FROM choices WHERE question_id=$1 ORDER BY id`, q.ID)
	if err != nil {
		return fmt.Errorf("load choices %d: %w", q.ID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var c domain.Choice
		if err := rows.Scan(&c.ID, &c.Label, &c.Correct); err != nil {
			return err
		}
		q.Choices = append(q.Choices, c)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	variants, err := l.pool.Query(ctx,
		`SELECT value FROM accepted_answers WHERE question_id=$1 ORDER BY id`, q.ID)
	if err != nil {
		return fmt.Errorf("load accepted answers %d: %w", q.ID, err)
	}
	defer variants.Close()
	for variants.Next() {
		var v string
		if err := variants.Scan(&v); err != nil {
			return err
		}
		q.Accepted = append(q.Accepted, v)
	}
	return variants.Err()
}

// asTextArray keeps ANY($n) well-typed when the slice is empty.
func asTextArray(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func asBigintArray(values []int64) []int64 {
	if values == nil {
		return []int64{}
	}
	return values
}
