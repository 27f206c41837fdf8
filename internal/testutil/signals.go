// Package testutil provides deterministic signal and spectrum builders shared
// by the analysis package tests.
package testutil

import (
	"math"
	"math/rand"
)

// SilenceFloorDB is the dB value used for empty spectrum bins, matching the
// magnitude floor of the spectrum package.
const SilenceFloorDB = -130.0

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}

	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}

	return out
}

// SilentSpectrum returns a dB magnitude spectrum with every bin at the floor.
func SilentSpectrum(bins int) []float64 {
	out := make([]float64, bins)
	for i := range out {
		out[i] = SilenceFloorDB
	}

	return out
}

// ToneSpectrum returns a dB magnitude spectrum that is silent except for the
// bins covering freqHz, which are set to levelDB. binSize is nyquist/bins.
func ToneSpectrum(bins int, freqHz, binSize, levelDB float64) []float64 {
	out := SilentSpectrum(bins)
	if binSize <= 0 {
		return out
	}

	center := int(freqHz / binSize)
	for i := center - 1; i <= center+1; i++ {
		if i >= 0 && i < bins {
			out[i] = levelDB
		}
	}

	return out
}

// BandSpectrum returns a dB magnitude spectrum with all bins in
// [minHz, maxHz) set to levelDB and everything else at the floor.
func BandSpectrum(bins int, minHz, maxHz, binSize, levelDB float64) []float64 {
	out := SilentSpectrum(bins)
	if binSize <= 0 {
		return out
	}

	lo := int(minHz / binSize)
	hi := int(maxHz / binSize)

	for i := lo; i < hi && i < bins; i++ {
		if i >= 0 {
			out[i] = levelDB
		}
	}

	return out
}
