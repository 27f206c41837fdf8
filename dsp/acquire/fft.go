package acquire

import (
	"fmt"

	algofft "github.com/cwbudde/algo-fft"

	"github.com/cwbudde/algo-reactive/dsp/spectrum"
	"github.com/cwbudde/algo-reactive/dsp/window"
)

// analyzer turns a block of time-domain samples into a one-sided dB magnitude
// spectrum. It owns its FFT plan and scratch buffers, so repeated calls only
// touch preallocated memory.
type analyzer struct {
	fftSize int
	plan    *algofft.Plan[complex128]
	win     []float64
	winGain float64

	input  []complex128
	output []complex128
	magLin []float64
	magDB  []float64
}

func newAnalyzer(fftSize int) (*analyzer, error) {
	if fftSize <= 0 || fftSize&(fftSize-1) != 0 {
		return nil, fmt.Errorf("acquire: fft size must be a positive power of two: %d", fftSize)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("acquire: fft plan: %w", err)
	}

	win := window.Generate(window.TypeHann, fftSize, window.WithPeriodic())

	return &analyzer{
		fftSize: fftSize,
		plan:    plan,
		win:     win,
		winGain: window.CoherentGain(win),
		input:   make([]complex128, fftSize),
		output:  make([]complex128, fftSize),
		magLin:  make([]float64, fftSize/2),
		magDB:   make([]float64, fftSize/2),
	}, nil
}

// process computes the dB spectrum of samples (length fftSize). The returned
// slice is owned by the analyzer and overwritten on the next call.
func (a *analyzer) process(samples []float64) ([]float64, error) {
	if len(samples) != a.fftSize {
		return nil, fmt.Errorf("acquire: expected %d samples, got %d", a.fftSize, len(samples))
	}

	for i, s := range samples {
		a.input[i] = complex(s*a.win[i], 0)
	}

	if err := a.plan.Forward(a.output, a.input); err != nil {
		return nil, fmt.Errorf("acquire: fft forward: %w", err)
	}

	spectrum.MagnitudeInto(a.magLin, a.output[:a.fftSize/2])

	// Scale so a full-scale sine reads ~0 dB through the window.
	norm := float64(a.fftSize) / 2 * a.winGain

	copy(a.magDB, a.magLin)
	spectrum.ToDB(a.magDB, norm)

	return a.magDB, nil
}
