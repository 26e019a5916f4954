// Package rank computes float64 sort keys that place an item between two
// neighbors without renumbering the rest of the list.
package rank

import (
	"errors"
	"math"
)

const (
	// Seed is the rank given to the first task of an empty list.
	Seed = 0.5
	// Step is the distance between a new tail rank and the current maximum,
	// and between consecutive ranks after a rebalance.
	Step = 1.0
)

var (
	// ErrExhausted means float64 can no longer represent a value strictly
	// between the bounding ranks. Only a rebalance makes room again.
	ErrExhausted = errors.New("rank precision exhausted")
	// ErrOutOfOrder means the lower bound is not strictly below the upper one.
	ErrOutOfOrder = errors.New("rank bounds out of order")
)

// After returns a rank strictly greater than last.
func After(last float64) (float64, error) {
	r := last + Step
	if !(r > last) || math.IsInf(r, 0) {
		return 0, ErrExhausted
	}
	return r, nil
}

// Before returns a rank strictly lower than first. Positive ranks are halved
// so the result stays in (0, first).
func Before(first float64) (float64, error) {
	if first <= 0 {
		r := first - Step
		if !(r < first) || math.IsInf(r, 0) {
			return 0, ErrExhausted
		}
		return r, nil
	}
	r := first / 2
	if !(r > 0) || !(r < first) {
		return 0, ErrExhausted
	}
	return r, nil
}

// Between returns the midpoint of lo and hi. When the midpoint rounds onto
// either bound the two neighbors are indistinguishable and ErrExhausted is
// returned instead of a duplicate.
func Between(lo, hi float64) (float64, error) {
	if !(lo < hi) {
		return 0, ErrOutOfOrder
	}
	mid := lo + (hi-lo)/2
	if !(mid > lo) || !(mid < hi) {
		return 0, ErrExhausted
	}
	return mid, nil
}

// Spread returns n evenly spaced ranks starting at Step.
func Spread(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i+1) * Step
	}
	return out
}
