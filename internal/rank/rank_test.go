package rank

import (
	"errors"
	"math"
	"testing"
)

func TestAfter(t *testing.T) {
	got, err := After(0.5)
	if err != nil {
		t.Fatalf("After(0.5): %v", err)
	}
	if got != 1.5 {
		t.Fatalf("After(0.5) = %v; want 1.5", got)
	}

	// beyond 2^53 adding one is lost to rounding
	if _, err := After(math.Pow(2, 54)); !errors.Is(err, ErrExhausted) {
		t.Fatalf("After(2^54) err = %v; want ErrExhausted", err)
	}
}

func TestBefore(t *testing.T) {
	cases := []struct {
		first float64
		want  float64
	}{
		{0.5, 0.25},
		{1, 0.5},
		{0, -1},
		{-3, -4},
	}
	for _, tc := range cases {
		got, err := Before(tc.first)
		if err != nil {
			t.Fatalf("Before(%v): %v", tc.first, err)
		}
		if got != tc.want {
			t.Fatalf("Before(%v) = %v; want %v", tc.first, got, tc.want)
		}
	}

	if _, err := Before(math.SmallestNonzeroFloat64); !errors.Is(err, ErrExhausted) {
		t.Fatalf("Before(smallest) err = %v; want ErrExhausted", err)
	}
}

func TestBetween(t *testing.T) {
	got, err := Between(0.25, 0.5)
	if err != nil {
		t.Fatalf("Between: %v", err)
	}
	if got != 0.375 {
		t.Fatalf("Between(0.25, 0.5) = %v; want 0.375", got)
	}

	if _, err := Between(1, 1); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("Between(1,1) err = %v; want ErrOutOfOrder", err)
	}
	if _, err := Between(2, 1); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("Between(2,1) err = %v; want ErrOutOfOrder", err)
	}

	lo := 1.0
	hi := math.Nextafter(lo, 2)
	if _, err := Between(lo, hi); !errors.Is(err, ErrExhausted) {
		t.Fatalf("Between(adjacent) err = %v; want ErrExhausted", err)
	}
}

// Repeatedly inserting just before the same task converges on its
// predecessor until the two are adjacent floats.
func TestBetweenExhaustsAfterRepeatedSplits(t *testing.T) {
	lo, hi := 1.0, 2.0
	splits := 0
	for {
		mid, err := Between(lo, hi)
		if errors.Is(err, ErrExhausted) {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if mid <= lo || mid >= hi {
			t.Fatalf("midpoint %v escaped (%v, %v)", mid, lo, hi)
		}
		hi = mid
		splits++
		if splits > 1100 {
			t.Fatalf("no exhaustion after %d splits", splits)
		}
	}
	// 52 bits of mantissa between 1 and 2
	if splits != 52 {
		t.Fatalf("splits = %d; want 52", splits)
	}
}

func TestBeforeExhaustsAfterRepeatedHalving(t *testing.T) {
	first := Seed
	n := 0
	for {
		r, err := Before(first)
		if errors.Is(err, ErrExhausted) {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r <= 0 || r >= first {
			t.Fatalf("Before(%v) = %v; want in (0, first)", first, r)
		}
		first = r
		n++
		if n > 2000 {
			t.Fatalf("no exhaustion after %d halvings", n)
		}
	}
	if first != math.SmallestNonzeroFloat64 {
		t.Fatalf("halving stopped at %v; want smallest denormal", first)
	}
}

func TestSpread(t *testing.T) {
	got := Spread(3)
	want := []float64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("len = %d; want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Spread(3)[%d] = %v; want %v", i, got[i], want[i])
		}
	}
	if len(Spread(0)) != 0 {
		t.Fatalf("Spread(0) should be empty")
	}
}
