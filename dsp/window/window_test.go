package window

import (
	"math"
	"testing"
)

func TestGenerateInvalidLength(t *testing.T) {
	if Generate(TypeHann, 0) != nil {
		t.Fatalf("expected nil for length 0")
	}

	if Generate(TypeHann, -3) != nil {
		t.Fatalf("expected nil for negative length")
	}
}

func TestGenerateSingle(t *testing.T) {
	w := Generate(TypeBlackman, 1)
	if len(w) != 1 || w[0] != 1 {
		t.Fatalf("length-1 window must be unity, got %v", w)
	}
}

func TestHannSymmetric(t *testing.T) {
	w := Generate(TypeHann, 64)

	if math.Abs(w[0]) > 1e-12 || math.Abs(w[63]) > 1e-12 {
		t.Fatalf("symmetric Hann endpoints must be 0, got %v %v", w[0], w[63])
	}

	for i := range 32 {
		if math.Abs(w[i]-w[63-i]) > 1e-12 {
			t.Fatalf("window not symmetric at %d", i)
		}
	}
}

func TestHannPeriodicPeak(t *testing.T) {
	w := Generate(TypeHann, 64, WithPeriodic())

	// Periodic form peaks exactly at N/2.
	if math.Abs(w[32]-1) > 1e-12 {
		t.Fatalf("expected unity at midpoint, got %v", w[32])
	}
}

func TestRectangular(t *testing.T) {
	for _, v := range Generate(TypeRectangular, 16) {
		if v != 1 {
			t.Fatalf("rectangular window must be all ones")
		}
	}
}

func TestApply(t *testing.T) {
	buf := make([]float64, 32)
	for i := range buf {
		buf[i] = 1
	}

	Apply(TypeHamming, buf)

	want := Generate(TypeHamming, 32)
	for i := range buf {
		if math.Abs(buf[i]-want[i]) > 1e-12 {
			t.Fatalf("apply mismatch at %d: %v != %v", i, buf[i], want[i])
		}
	}
}

func TestApplyCoefficientsMismatch(t *testing.T) {
	buf := []float64{1, 2, 3}
	ApplyCoefficients(buf, []float64{1, 1})

	if buf[0] != 1 || buf[1] != 2 || buf[2] != 3 {
		t.Fatalf("mismatched lengths must leave samples untouched: %v", buf)
	}
}

func TestCoherentGain(t *testing.T) {
	if got := CoherentGain(Generate(TypeRectangular, 8)); got != 1 {
		t.Fatalf("rectangular gain must be 1, got %v", got)
	}

	hann := CoherentGain(Generate(TypeHann, 1024, WithPeriodic()))
	if math.Abs(hann-0.5) > 1e-3 {
		t.Fatalf("Hann coherent gain should be ~0.5, got %v", hann)
	}

	if CoherentGain(nil) != 0 {
		t.Fatalf("empty coefficients must yield 0")
	}
}
