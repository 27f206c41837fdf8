// Package beat detects onsets from a rolling total-energy history and derives
// a smoothed tempo estimate.
//
// The detector is an energy-threshold debounce, not an autocorrelation tempo
// lock: a beat is flagged when the current energy jumps above a multiple of
// the recent mean, with a refractory period suppressing re-triggers. On
// syncopated material it can lock to double or half the actual tempo.
package beat

import (
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/algo-reactive/dsp/core"
	"github.com/cwbudde/algo-reactive/internal/ring"
)

const (
	defaultEnergyMultiplier = 1.5
	defaultRefractory       = 300 * time.Millisecond
	defaultEnergyHistory    = 50
	defaultBeatHistory      = 20
	defaultRecentWindow     = 10
	defaultBlendOld         = 0.8
	defaultMinBPM           = 60.0
	defaultMaxBPM           = 200.0
	defaultInitialBPM       = 120.0

	// minBeatSamples is the number of recorded beats needed before the
	// tracker trusts its own interval statistics.
	minBeatSamples = 4

	// complexityNorm converts interval variance (ms^2) to the [0,1]
	// rhythm-complexity score.
	complexityNorm = 10000.0

	// insufficientComplexity is reported while fewer than minBeatSamples
	// beats have been observed.
	insufficientComplexity = 0.5

	// staleDecay is the per-tick confidence decay applied once more than
	// two beat intervals have passed without a detected beat.
	staleDecay = 0.995
)

type config struct {
	energyMultiplier float64
	refractory       time.Duration
	energyHistory    int
	beatHistory      int
	recentWindow     int
	blendOld         float64
	minBPM           float64
	maxBPM           float64
	initialBPM       float64
}

func defaultConfig() config {
	return config{
		energyMultiplier: defaultEnergyMultiplier,
		refractory:       defaultRefractory,
		energyHistory:    defaultEnergyHistory,
		beatHistory:      defaultBeatHistory,
		recentWindow:     defaultRecentWindow,
		blendOld:         defaultBlendOld,
		minBPM:           defaultMinBPM,
		maxBPM:           defaultMaxBPM,
		initialBPM:       defaultInitialBPM,
	}
}

// Option configures a Tracker.
type Option func(*config)

// WithEnergyMultiplier sets the onset threshold as a multiple of the recent
// mean energy.
func WithEnergyMultiplier(m float64) Option {
	return func(cfg *config) {
		if m > 1 {
			cfg.energyMultiplier = m
		}
	}
}

// WithRefractory sets the minimum spacing between accepted beats.
func WithRefractory(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.refractory = d
		}
	}
}

// WithHistorySizes sets the energy and beat ring-buffer capacities.
func WithHistorySizes(energy, beats int) Option {
	return func(cfg *config) {
		if energy > 0 {
			cfg.energyHistory = energy
		}

		if beats > 0 {
			cfg.beatHistory = beats
		}
	}
}

// WithBPMRange sets the clamp applied to tempo estimates.
func WithBPMRange(min, max float64) Option {
	return func(cfg *config) {
		if min > 0 && max > min {
			cfg.minBPM = min
			cfg.maxBPM = max
		}
	}
}

// WithInitialBPM sets the tempo reported before enough beats are observed.
func WithInitialBPM(bpm float64) Option {
	return func(cfg *config) {
		if bpm > 0 {
			cfg.initialBPM = bpm
		}
	}
}

// Observation is the per-tick tracker output.
type Observation struct {
	BeatDetected     bool
	Strength         float64
	BPM              float64
	Confidence       float64
	RhythmComplexity float64
}

// Tracker maintains the rolling energy history and tempo state.
type Tracker struct {
	cfg config

	energy *ring.Buffer
	beats  *ring.Buffer // beat timestamps in ms

	bpm        float64
	seeded     bool
	lastBeat   time.Duration
	hasBeat    bool
	confidence float64
	complexity float64
}

// NewTracker builds a tracker with the given options.
func NewTracker(opts ...Option) (*Tracker, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if cfg.initialBPM < cfg.minBPM || cfg.initialBPM > cfg.maxBPM {
		return nil, fmt.Errorf("beat: initial BPM %.1f outside range [%.1f, %.1f]",
			cfg.initialBPM, cfg.minBPM, cfg.maxBPM)
	}

	return &Tracker{
		cfg:        cfg,
		energy:     ring.New(cfg.energyHistory),
		beats:      ring.New(cfg.beatHistory),
		bpm:        cfg.initialBPM,
		complexity: insufficientComplexity,
	}, nil
}

// BPM returns the current smoothed tempo estimate.
func (t *Tracker) BPM() float64 {
	return t.bpm
}

// BeatInterval returns the current beat period in milliseconds.
func (t *Tracker) BeatInterval() float64 {
	return 60000 / t.bpm
}

// LastBeat returns the timestamp of the last accepted beat and whether any
// beat has been accepted yet.
func (t *Tracker) LastBeat() (time.Duration, bool) {
	return t.lastBeat, t.hasBeat
}

// Observe feeds one tick of total band energy into the tracker.
//
// A beat is flagged when energy exceeds the multiplier times the mean of the
// most recent window, and at least the refractory period has elapsed since
// the previous accepted beat. The energy history must fill the recent window
// before the first beat can fire, so the threshold is never compared against
// an empty mean.
func (t *Tracker) Observe(now time.Duration, totalEnergy float64) Observation {
	if !core.Finite(totalEnergy) || totalEnergy < 0 {
		totalEnergy = 0
	}

	warm := t.energy.Len() >= t.cfg.recentWindow
	threshold := t.cfg.energyMultiplier * t.energy.MeanLast(t.cfg.recentWindow)

	t.energy.Push(totalEnergy)

	obs := Observation{
		BPM:              t.bpm,
		Confidence:       t.confidence,
		RhythmComplexity: t.complexity,
	}

	if !warm || threshold <= 0 || totalEnergy <= threshold {
		t.decayConfidence(now)
		obs.Confidence = t.confidence

		return obs
	}

	if t.hasBeat && now-t.lastBeat < t.cfg.refractory {
		return obs
	}

	t.acceptBeat(now)

	obs.BeatDetected = true
	obs.Strength = (totalEnergy - threshold) / threshold
	obs.BPM = t.bpm
	obs.Confidence = t.confidence
	obs.RhythmComplexity = t.complexity

	return obs
}

func (t *Tracker) acceptBeat(now time.Duration) {
	t.lastBeat = now
	t.hasBeat = true
	t.beats.Push(core.Millis(now))

	if t.beats.Len() < minBeatSamples {
		// Not enough intervals to trust: keep the previous BPM and report
		// the insufficient-data complexity default.
		t.complexity = insufficientComplexity
		return
	}

	intervals := t.beats.Deltas()

	mean := 0.0
	for _, d := range intervals {
		mean += d
	}

	mean /= float64(len(intervals))
	if mean <= 0 {
		return
	}

	instBPM := 60000 / mean

	// The very first measured estimate replaces the configured default
	// outright; blending against an arbitrary starting tempo would take
	// dozens of beats to converge. Subsequent estimates are smoothed.
	if !t.seeded {
		t.bpm = core.Clamp(instBPM, t.cfg.minBPM, t.cfg.maxBPM)
		t.seeded = true
	} else {
		t.bpm = core.Clamp(t.cfg.blendOld*t.bpm+(1-t.cfg.blendOld)*instBPM, t.cfg.minBPM, t.cfg.maxBPM)
	}

	variance := 0.0
	for _, d := range intervals {
		diff := d - mean
		variance += diff * diff
	}

	variance /= float64(len(intervals))

	t.complexity = core.Clamp(variance/complexityNorm, 0, 1)

	// Confidence rises with interval consistency: the coefficient of
	// variation of the beat spacing maps 0 -> 1 and 0.5 -> 0.
	cv := core.SafeDivide(math.Sqrt(variance), mean, 1)
	t.confidence = core.Clamp(1-2*cv, 0, 1)
}

// decayConfidence lowers confidence when beats stop arriving; a stale tempo
// estimate should not claim high certainty.
func (t *Tracker) decayConfidence(now time.Duration) {
	if !t.hasBeat {
		return
	}

	elapsed := core.Millis(now - t.lastBeat)

	stale := 2 * t.BeatInterval()
	if elapsed <= stale {
		return
	}

	t.confidence *= staleDecay
}
