// Package oddsmath holds the pure numeric routines shared by the engine
// and processor: de-vig fair-odds computation and the Monaco price
// transform. No package state, no I/O.
package oddsmath

import "math"

// MaxMargin is the bookmaker margin above which a fair-odds input is
// rejected outright rather than projected.
const MaxMargin = 0.12

// CalculateFairOdds implements the margin-proportional de-vig described
// for the Processor's fair-odds calculator: given N integer-encoded odds
// at a fixed decimal scale, it returns the margin-removed ("fair")
// odds at the same scale, or false if the input is not usable (a
// non-positive price, or a margin exceeding MaxMargin, or a fair price
// whose denominator collapses to zero or negative).
func CalculateFairOdds(odds []int32, decimals int) ([]int32, bool) {
	n := len(odds)
	if n == 0 {
		return nil, false
	}

	scale := math.Pow10(decimals)
	decimal := make([]float64, n)
	for i, o := range odds {
		d := float64(o) / scale
		if d <= 0 {
			return nil, false
		}
		decimal[i] = d
	}

	margin := 0.0
	for _, d := range decimal {
		margin += 1.0 / d
	}
	margin -= 1.0
	if margin > MaxMargin {
		return nil, false
	}

	fair := make([]int32, n)
	nf := float64(n)
	for i, d := range decimal {
		denominator := nf - margin*d
		if denominator <= 0 {
			return nil, false
		}
		f := (nf * d) / denominator
		fair[i] = int32(math.RoundToEven(f * scale))
	}
	return fair, true
}
