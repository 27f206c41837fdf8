package testutil

import (
	"math"
	"testing"
)

func TestDeterministicSineRepeatable(t *testing.T) {
	a := DeterministicSine(440, 44100, 1, 256)
	b := DeterministicSine(440, 44100, 1, 256)

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sine not deterministic at %d", i)
		}
	}
}

func TestDeterministicNoiseSeed(t *testing.T) {
	a := DeterministicNoise(7, 1, 64)
	b := DeterministicNoise(7, 1, 64)
	c := DeterministicNoise(8, 1, 64)

	same := true
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed must match at %d", i)
		}

		if a[i] != c[i] {
			same = false
		}
	}

	if same {
		t.Fatalf("different seeds must differ")
	}
}

func TestToneSpectrumPlacesBin(t *testing.T) {
	binSize := 22050.0 / 1024.0

	spec := ToneSpectrum(1024, 1000, binSize, -10)

	center := int(1000 / binSize)
	if spec[center] != -10 {
		t.Fatalf("expected -10 dB at bin %d, got %v", center, spec[center])
	}

	if spec[0] != SilenceFloorDB {
		t.Fatalf("expected floor away from tone, got %v", spec[0])
	}
}

func TestBandSpectrumRange(t *testing.T) {
	binSize := 22050.0 / 1024.0

	spec := BandSpectrum(1024, 100, 200, binSize, -20)

	lo := int(100 / binSize)
	hi := int(200 / binSize)

	for i := lo; i < hi; i++ {
		if spec[i] != -20 {
			t.Fatalf("expected -20 dB inside band at %d, got %v", i, spec[i])
		}
	}

	if spec[hi+2] != SilenceFloorDB {
		t.Fatalf("expected floor outside band")
	}

	if math.IsNaN(spec[0]) {
		t.Fatalf("unexpected NaN")
	}
}
