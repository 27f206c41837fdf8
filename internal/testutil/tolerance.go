package testutil

import (
	"math"
	"testing"
)

// RequireNearlyEqual fails t if got and want differ by more than eps.
func RequireNearlyEqual(t *testing.T, got, want, eps float64) {
	t.Helper()

	if math.Abs(got-want) > eps {
		t.Fatalf("got %v, want %v (eps %v)", got, want, eps)
	}
}

// RequireFinite fails t if any element is NaN or Inf.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()

	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// RequireFiniteValue fails t if v is NaN or Inf.
func RequireFiniteValue(t *testing.T, name string, v float64) {
	t.Helper()

	if math.IsNaN(v) || math.IsInf(v, 0) {
		t.Fatalf("%s: non-finite value %v", name, v)
	}
}

// RequireInRange fails t if v lies outside [lo, hi].
func RequireInRange(t *testing.T, name string, v, lo, hi float64) {
	t.Helper()

	if v < lo || v > hi {
		t.Fatalf("%s: value %v outside [%v, %v]", name, v, lo, hi)
	}
}
