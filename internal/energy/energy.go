// Package energy holds the pure scoring model: a bounded energy resource
// and the step multiplier it applies to free-text awards.
package energy

// Max is the energy ceiling; every clamp uses it.
const Max = 100

// Clamp bounds e to [0, Max].
func Clamp(e int) int {
	if e < 0 {
		return 0
	}
	if e > Max {
		return Max
	}
	return e
}

// Multiplier maps an energy level to a score multiplier: 1.0 at 0-9, then
// +10% per full ten-point band.
func Multiplier(e int) float64 {
	return 1 + float64(Clamp(e)/10)*0.1
}

// Gain applies a positive delta and clamps.
func Gain(e, delta int) int {
	return Clamp(e + delta)
}

// Spend deducts cost, flooring at zero, and reports whether anything was
// actually deducted.
func Spend(e, cost int) (int, bool) {
	if cost <= 0 {
		return Clamp(e), false
	}
	next := Clamp(e - cost)
	return next, next != Clamp(e)
}

// Award computes a free-text score award: base points scaled by the
// multiplier for the energy level held before the round's gain.
func Award(base, energyBefore int) int {
	return int(float64(base) * Multiplier(energyBefore))
}
