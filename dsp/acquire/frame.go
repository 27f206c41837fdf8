// Package acquire captures per-tick audio snapshots from a live microphone or
// a deterministic synthetic source. Both produce identically shaped frames, so
// every downstream analyzer works the same in either input mode.
package acquire

import (
	"fmt"
	"time"
)

// InputMode identifies where a source's signal comes from.
type InputMode int

const (
	// ModeSynthetic marks an artificially generated signal, used both for
	// tests and as the fallback when no input device is available.
	ModeSynthetic InputMode = iota

	// ModeLive marks a real input device stream.
	ModeLive
)

// String returns the mode name.
func (m InputMode) String() string {
	switch m {
	case ModeLive:
		return "live"
	default:
		return "synthetic"
	}
}

// Frame is an immutable per-tick audio snapshot.
//
// Magnitudes holds the one-sided dB magnitude spectrum (bin 0 = DC), Samples
// the time-domain window that produced it. The constructor copies both slices;
// a frame is never mutated after creation.
type Frame struct {
	timestamp  time.Duration
	magnitudes []float64
	samples    []float64
	sampleRate float64
}

// NewFrame builds a frame from analyzer output, copying both slices.
func NewFrame(timestamp time.Duration, magnitudes, samples []float64, sampleRate float64) (Frame, error) {
	if sampleRate <= 0 {
		return Frame{}, fmt.Errorf("acquire: frame sample rate must be > 0: %v", sampleRate)
	}

	if len(magnitudes) == 0 {
		return Frame{}, fmt.Errorf("acquire: frame requires magnitude bins")
	}

	mags := make([]float64, len(magnitudes))
	copy(mags, magnitudes)

	smps := make([]float64, len(samples))
	copy(smps, samples)

	return Frame{
		timestamp:  timestamp,
		magnitudes: mags,
		samples:    smps,
		sampleRate: sampleRate,
	}, nil
}

// Timestamp returns the capture time of the frame.
func (f Frame) Timestamp() time.Duration {
	return f.timestamp
}

// Magnitudes returns the dB magnitude spectrum. The slice is shared; callers
// must treat it as read-only.
func (f Frame) Magnitudes() []float64 {
	return f.magnitudes
}

// Samples returns the time-domain samples. Read-only by convention.
func (f Frame) Samples() []float64 {
	return f.samples
}

// SampleRate returns the sample rate the frame was captured at.
func (f Frame) SampleRate() float64 {
	return f.sampleRate
}

// BinSize returns the frequency width of one magnitude bin in Hz.
func (f Frame) BinSize() float64 {
	if len(f.magnitudes) == 0 {
		return 0
	}

	return f.sampleRate / 2 / float64(len(f.magnitudes))
}

// BinFrequency returns the center frequency of bin i in Hz.
func (f Frame) BinFrequency(i int) float64 {
	return float64(i) * f.BinSize()
}
