package match

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Paris ", "paris"},
		{"The Eiffel Tower!", "eiffel tower"},
		{"Crème brûlée", "creme brulee"},
		{"L'île de la Réunion", "ile reunion"},
		{"  multiple   spaces ", "multiple spaces"},
		{"42", "42"},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Fatalf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestBudgetSteps(t *testing.T) {
	cases := []struct {
		length int
		want   int
	}{
		{1, 0}, {3, 0}, {4, 1}, {6, 1}, {7, 2}, {10, 2},
		{11, 3}, {15, 3}, {20, 3}, {27, 4}, {60, 4},
	}
	for _, c := range cases {
		if got := Budget(c.length); got != c.want {
			t.Fatalf("Budget(%d) = %d, want %d", c.length, got, c.want)
		}
	}
}

func TestMatchReflexive(t *testing.T) {
	for _, s := range []string{"a", "ok", "paris", "a longer free text answer"} {
		n := Normalize(s)
		if !Match(n, []string{n}) {
			t.Fatalf("expected %q to match itself", n)
		}
	}
}

func TestMatchTypoTolerance(t *testing.T) {
	variants := []string{Normalize("Paris")} // length 5, budget 1

	accept := []string{"paris", "pariz", "pariss", "pars", "pairs"}
	for _, in := range accept {
		if !Match(Normalize(in), variants) {
			t.Fatalf("expected %q accepted against paris", in)
		}
	}

	reject := []string{"paryz", "london", "", "pa"}
	for _, in := range reject {
		if Match(Normalize(in), variants) {
			t.Fatalf("expected %q rejected against paris", in)
		}
	}
}

func TestMatchShortAnswersExactOnly(t *testing.T) {
	variants := []string{"nile"} // budget 1
	if !Match("nile", variants) {
		t.Fatalf("exact should pass")
	}
	short := []string{"ra"} // budget 0
	if Match("rb", short) {
		t.Fatalf("short variants must match exactly")
	}
}

func TestMatchTransposition(t *testing.T) {
	variants := []string{"einstein"} // length 8, budget 2
	if !Match("einstien", variants) {
		t.Fatalf("adjacent transposition should cost 1")
	}
}

// Lowering the budget never turns a rejection into an acceptance.
func TestDistanceBudgetMonotonic(t *testing.T) {
	a, b := []rune("longanswertext"), []rune("longanswretext")
	for max := 4; max >= 1; max-- {
		hi := Distance(a, b, max)
		lo := Distance(a, b, max-1)
		if lo <= max-1 && hi > max {
			t.Fatalf("budget %d accepted but %d rejected", max-1, max)
		}
	}
}

func TestDistanceLengthGap(t *testing.T) {
	if d := Distance([]rune("abc"), []rune("abcdefgh"), 2); d != 3 {
		t.Fatalf("expected capped distance 3, got %d", d)
	}
}
