// Package shuffle produces a reproducible-per-viewer ordering of
// multiple-choice options, so a viewer sees the same arrangement across
// reconnects while different viewers see independent orders.
package shuffle

import (
	"math/rand"
	"strconv"

	"quiz-round-service/internal/domain"
)

// Seed derives a 32-bit seed from a question id and a viewer identifier
// using an FNV-1a rolling hash over their concatenation.
func Seed(questionID int64, viewerID string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	mix := func(s string) {
		for i := 0; i < len(s); i++ {
			h ^= uint32(s[i])
			h *= prime32
		}
	}
	mix(strconv.FormatInt(questionID, 10))
	mix("|")
	mix(viewerID)
	return h
}

// Choices returns the question's options in the viewer's order. The
// correctness flag is dropped so the result is safe to send to clients.
func Choices(q domain.Question, viewerID string) []domain.Choice {
	out := make([]domain.Choice, len(q.Choices))
	for i, c := range q.Choices {
		out[i] = domain.Choice{ID: c.ID, Label: c.Label}
	}
	rnd := rand.New(rand.NewSource(int64(Seed(q.ID, viewerID))))
	for i := len(out) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
