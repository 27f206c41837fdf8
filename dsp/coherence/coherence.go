// Package coherence maintains the shared mathematical snapshot that every
// visual subsystem reads each tick. All rotation, phase and frequency terms
// derive from the same beat-locked master phase, which is what keeps the
// consumers moving in sync instead of drifting on private oscillators.
package coherence

import (
	"math"
	"time"

	"github.com/cwbudde/algo-reactive/dsp/acquire"
	"github.com/cwbudde/algo-reactive/dsp/bands"
	"github.com/cwbudde/algo-reactive/dsp/beat"
	"github.com/cwbudde/algo-reactive/dsp/core"
)

// Rotation4D holds the three audio-driven 4D rotation angles in radians.
type Rotation4D struct {
	XW float64
	YW float64
	ZW float64
}

// Phase holds the beat-locked phase terms. Master sweeps 0..2π over one beat
// interval and resets on each detected beat; the harmonics are fixed-ratio
// multiples of it (octave, fifth, major third).
type Phase struct {
	Master    float64
	Harmonics [3]float64
	Chaos     float64
}

// Frequency summarizes the spectral shape of the current frame.
type Frequency struct {
	Fundamental      float64
	SpectralCentroid float64
	Bandwidth        float64
	Rolloff          float64
	Flatness         float64
}

// Energy holds the per-band and total energies on a linear scale.
type Energy struct {
	Bass   float64
	Mid    float64
	Treble float64
	Total  float64
}

// Tempo holds the rhythmic position within the beat and the measure.
type Tempo struct {
	BPM          float64
	BeatPhase    float64
	MeasurePhase float64
}

// State is the coherence snapshot produced once per tick. It is a plain
// value; consumers receive copies and never share mutable references.
type State struct {
	Rotation4D Rotation4D
	Phase      Phase
	Frequency  Frequency
	Energy     Energy
	Tempo      Tempo
	Timestamp  time.Duration
}

const (
	harmonicOctave = 2.0
	harmonicFifth  = 1.5
	harmonicThird  = 1.25

	rotationGain = 2.0
	ywPhaseRatio = 1.5
	zwPhaseRatio = 0.7

	// Linear-magnitude mass below which a frame counts as silent for the
	// centroid and fundamental estimates. A full floor-level spectrum sums
	// to roughly 3e-4, a quiet tone to 0.1 or more.
	silenceMass = 1e-3

	rolloffFraction = 0.85

	defaultFallbackHz = 440.0
	defaultBeatsBar   = 4
)

type config struct {
	fallbackHz float64
	beatsBar   int
}

func defaultConfig() config {
	return config{
		fallbackHz: defaultFallbackHz,
		beatsBar:   defaultBeatsBar,
	}
}

// Option configures an Engine.
type Option func(*config)

// WithFallbackFrequency sets the value the spectral estimates fall back to
// before any non-silent frame has been seen.
func WithFallbackFrequency(hz float64) Option {
	return func(cfg *config) {
		if hz > 0 {
			cfg.fallbackHz = hz
		}
	}
}

// WithBeatsPerMeasure sets how many beats make up one measure phase cycle.
func WithBeatsPerMeasure(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.beatsBar = n
		}
	}
}

// Engine derives the coherence state from the per-tick analysis outputs.
// It is the single writer of State; the tick loop calls Update and hands the
// returned value to consumers.
type Engine struct {
	cfg config

	state     State
	lastBeat  time.Duration
	hasBeat   bool
	beatCount int
	linear    []float64
}

// NewEngine builds an engine with the spectral estimates seeded at the
// fallback frequency.
func NewEngine(opts ...Option) *Engine {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	e := &Engine{cfg: cfg}
	e.state.Frequency.Fundamental = cfg.fallbackHz
	e.state.Frequency.SpectralCentroid = cfg.fallbackHz

	return e
}

// State returns a copy of the most recent snapshot.
func (e *Engine) State() State {
	return e.state
}

// Reset clears all beat and spectral memory.
func (e *Engine) Reset() {
	e.state = State{}
	e.state.Frequency.Fundamental = e.cfg.fallbackHz
	e.state.Frequency.SpectralCentroid = e.cfg.fallbackHz
	e.lastBeat = 0
	e.hasBeat = false
	e.beatCount = 0
}

// Update folds one tick's frame, band map and beat observation into the next
// state. Time comes exclusively from the frame's own timestamp, so replaying
// the same frame sequence reproduces the same state sequence exactly.
func (e *Engine) Update(frame acquire.Frame, bm bands.Map, obs beat.Observation) State {
	now := frame.Timestamp()

	if obs.BeatDetected {
		e.lastBeat = now
		e.hasBeat = true
		e.beatCount++
	}

	beatInterval := core.SafeDivide(60000.0, obs.BPM, 500.0)

	var beatPos float64
	if e.hasBeat {
		elapsed := core.Millis(now - e.lastBeat)
		beatPos = math.Mod(core.SafeDivide(elapsed, beatInterval, 0), 1)

		if beatPos < 0 {
			beatPos = 0
		}
	}

	master := 2 * math.Pi * beatPos

	var measurePos float64
	if e.beatCount > 0 {
		measurePos = (float64((e.beatCount-1)%e.cfg.beatsBar) + beatPos) / float64(e.cfg.beatsBar)
	}

	bass := bm.Energy(bands.Bass)
	mid := bm.Energy(bands.Mid)
	treble := bm.Energy(bands.Treble)

	st := State{
		Rotation4D: Rotation4D{
			XW: math.Sin(master) * bass * rotationGain,
			YW: math.Cos(master*ywPhaseRatio) * mid * rotationGain,
			ZW: math.Sin(master*zwPhaseRatio) * treble * rotationGain,
		},
		Phase: Phase{
			Master: master,
			Harmonics: [3]float64{
				master * harmonicOctave,
				master * harmonicFifth,
				master * harmonicThird,
			},
			Chaos: core.Clamp(obs.RhythmComplexity, 0, 1),
		},
		Energy: Energy{
			Bass:   bass,
			Mid:    mid,
			Treble: treble,
			Total:  bass + mid + treble,
		},
		Tempo: Tempo{
			BPM:          obs.BPM,
			BeatPhase:    beatPos,
			MeasurePhase: core.Clamp(measurePos, 0, 1),
		},
		Timestamp: now,
	}

	st.Frequency = e.analyzeSpectrum(frame)

	e.state = st

	return st
}

// analyzeSpectrum computes the centroid, bandwidth, rolloff, flatness and
// fundamental from the frame's dB magnitudes. On silence every estimate
// holds its previous valid value rather than dividing by zero.
func (e *Engine) analyzeSpectrum(frame acquire.Frame) Frequency {
	mags := frame.Magnitudes()
	binSize := frame.BinSize()

	if cap(e.linear) < len(mags) {
		e.linear = make([]float64, len(mags))
	}

	linear := e.linear[:len(mags)]

	var (
		mass     float64
		weighted float64
		peakMag  float64
		peakFreq float64
	)

	for i, db := range mags {
		m := core.DBToLinear(db)
		linear[i] = m

		f := float64(i) * binSize
		mass += m
		weighted += f * m

		if m > peakMag {
			peakMag = m
			peakFreq = f
		}
	}

	prev := e.state.Frequency

	if mass < silenceMass {
		return prev
	}

	centroid := weighted / mass

	var spread float64

	for i, m := range linear {
		d := float64(i)*binSize - centroid
		spread += d * d * m
	}

	spread = math.Sqrt(spread / mass)

	// Rolloff: lowest frequency below which 85% of the magnitude mass lies.
	var (
		acc     float64
		rolloff = float64(len(mags)-1) * binSize
	)

	for i, m := range linear {
		acc += m
		if acc >= rolloffFraction*mass {
			rolloff = float64(i) * binSize
			break
		}
	}

	// Flatness: geometric over arithmetic mean of the linear magnitudes.
	var logSum float64

	for _, m := range linear {
		logSum += math.Log(m + 1e-12)
	}

	n := float64(len(linear))
	flatness := core.Clamp(math.Exp(logSum/n)/(mass/n), 0, 1)

	return Frequency{
		Fundamental:      peakFreq,
		SpectralCentroid: centroid,
		Bandwidth:        spread,
		Rolloff:          rolloff,
		Flatness:         flatness,
	}
}
