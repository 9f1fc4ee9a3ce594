// Package match normalizes free-text answers and accepts them within a
// length-scaled edit-distance budget of a known-correct variant.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stopWords are dropped after normalization so that articles never cost an
// edit. The list is fixed; it is part of the acceptance contract, not a
// tuning knob.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "of": {},
	"le": {}, "la": {}, "les": {}, "l": {}, "de": {}, "du": {}, "des": {},
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize case-folds, strips diacritics and punctuation, collapses
// whitespace and drops stop words. Both inputs and accepted variants go
// through the same pipeline.
func Normalize(s string) string {
	s = strings.ToLower(s)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	fields := strings.Fields(b.String())
	kept := fields[:0]
	for _, f := range fields {
		if _, skip := stopWords[f]; !skip {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

// Budget returns the edit-distance allowance for an accepted variant of the
// given rune length: short answers must be exact, longer ones tolerate more
// typos, capped at 4.
func Budget(length int) int {
	switch {
	case length <= 3:
		return 0
	case length <= 6:
		return 1
	case length <= 10:
		return 2
	case length <= 15:
		return 3
	default:
		b := (length*15 + 99) / 100 // ceil(0.15 * length)
		if b > 4 {
			b = 4
		}
		return b
	}
}

// Match reports whether normalized input is acceptable against the set of
// normalized variants. Exact match short-circuits; otherwise each variant
// gets its own budget and a capped Damerau-Levenshtein comparison.
func Match(input string, variants []string) bool {
	if input == "" {
		return false
	}
	in := []rune(input)
	for _, v := range variants {
		if v == "" {
			continue
		}
		if input == v {
			return true
		}
		vr := []rune(v)
		budget := Budget(len(vr))
		if budget == 0 {
			continue
		}
		diff := len(in) - len(vr)
		if diff < 0 {
			diff = -diff
		}
		if diff > budget {
			continue
		}
		if Distance(in, vr, budget) <= budget {
			return true
		}
	}
	return false
}

// Distance computes the Damerau-Levenshtein distance (insert, delete,
// substitute, adjacent transposition) between a and b, capped at max+1.
// Only a band of width max around the diagonal is filled, and the scan
// exits as soon as no cell in the current row can still come in under max.
func Distance(a, b []rune, max int) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return capAt(lb, max)
	}
	if lb == 0 {
		return capAt(la, max)
	}
	if la-lb > max || lb-la > max {
		return max + 1
	}

	const inf = 1 << 30
	prev2 := make([]int, lb+1)
	prev := make([]int, lb+1)
	cur := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		lo := i - max
		if lo < 1 {
			lo = 1
		}
		hi := i + max
		if hi > lb {
			hi = lb
		}
		if lo > 1 {
			cur[lo-1] = inf
		}
		cur[0] = i
		rowMin := cur[0]
		if lo > 1 {
			rowMin = inf
		}
		for j := lo; j <= hi; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			d := prev[j-1] + cost
			if del := prev[j] + 1; del < d {
				d = del
			}
			if ins := cur[j-1] + 1; ins < d {
				d = ins
			}
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				if tr := prev2[j-2] + 1; tr < d {
					d = tr
				}
			}
			cur[j] = d
			if d < rowMin {
				rowMin = d
			}
		}
		if hi < lb {
			cur[hi+1] = inf
		}
		if rowMin > max {
			return max + 1
		}
		prev2, prev, cur = prev, cur, prev2
	}
	return capAt(prev[lb], max)
}

func capAt(d, max int) int {
	if d > max {
		return max + 1
	}
	return d
}
