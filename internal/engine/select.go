package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"quiz-round-service/internal/domain"
)

// quotaSigma is the fixed spread of the Gaussian difficulty allocation.
// At difficulty 50 it yields roughly a 10/40/40/10 split across buckets.
const quotaSigma = 0.85

// bucketQuotas maps a room difficulty percentage to per-bucket question
// counts. Bucket means run 1..4; the Gaussian mean moves linearly with the
// percentage. Largest-remainder rounding guarantees the quotas sum to
// count; ties resolve toward the lower bucket.
func bucketQuotas(difficulty, count int) [4]int {
	if count <= 0 {
		return [4]int{}
	}
	if difficulty < 0 {
		difficulty = 0
	}
	if difficulty > 100 {
		difficulty = 100
	}
	mean := 1 + 3*float64(difficulty)/100

	var weights [4]float64
	var total float64
	for b := 0; b < 4; b++ {
		d := float64(b+1) - mean
		weights[b] = math.Exp(-d * d / (2 * quotaSigma * quotaSigma))
		total += weights[b]
	}

	var quotas [4]int
	type frac struct {
		bucket int
		rem    float64
	}
	fracs := make([]frac, 0, 4)
	assigned := 0
	for b := 0; b < 4; b++ {
		raw := weights[b] / total * float64(count)
		q := int(math.Floor(raw))
		quotas[b] = q
		assigned += q
		fracs = append(fracs, frac{bucket: b, rem: raw - float64(q)})
	}
	sort.SliceStable(fracs, func(i, j int) bool {
		if fracs[i].rem != fracs[j].rem {
			return fracs[i].rem > fracs[j].rem
		}
		return fracs[i].bucket < fracs[j].bucket
	})
	for i := 0; assigned < count; i++ {
		quotas[fracs[i%4].bucket]++
		assigned++
	}
	return quotas
}

// selectQuestions draws the game's ordered question list honoring the
// room's difficulty distribution and theme exclusions. Short buckets are
// backfilled with an unrestricted draw; an empty result is an error the
// caller must surface to the room.
func (e *Engine) selectQuestions(ctx context.Context, room domain.Room) ([]domain.Question, error) {
	count := room.QuestionCount
	if count <= 0 {
		count = e.cfg.QuestionCount
	}
	quotas := bucketQuotas(room.Difficulty, count)

	picked := make([]domain.Question, 0, count)
	exclude := make([]int64, 0, count)
	for b := 0; b < 4; b++ {
		if quotas[b] == 0 {
			continue
		}
		bucket := strconv.Itoa(b + 1)
		qs, err := e.store.QuestionsByBucket(ctx, bucket, room.BannedThemes, exclude, quotas[b])
		if err != nil {
			return nil, fmt.Errorf("draw bucket %s: %w", bucket, err)
		}
		for _, q := range qs {
			picked = append(picked, q)
			exclude = append(exclude, q.ID)
		}
	}

	if missing := count - len(picked); missing > 0 {
		qs, err := e.store.RandomQuestions(ctx, room.BannedThemes, exclude, missing)
		if err != nil {
			return nil, fmt.Errorf("fallback draw: %w", err)
		}
		for _, q := range qs {
			picked = append(picked, q)
			exclude = append(exclude, q.ID)
		}
	}

	if len(picked) == 0 {
		return nil, domain.ErrNoQuestions
	}
	if len(picked) < count {
		e.log.Warn("question draw came up short",
			"room", room.ID, "requested", count, "got", len(picked))
	}

	// Interleave buckets so difficulty does not ramp monotonically.
	for i := len(picked) - 1; i > 0; i-- {
		j := e.rnd.Intn(i + 1)
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked, nil
}
