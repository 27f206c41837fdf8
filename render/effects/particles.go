// Package effects hosts the visual and haptic coordinators that consume the
// coherence state. They all derive motion from the shared beat-locked phase
// rather than running private oscillators, so every layer stays in sync.
package effects

import (
	"math"
	"time"

	"github.com/cwbudde/algo-reactive/dsp/coherence"
	"github.com/cwbudde/algo-reactive/dsp/core"
	"github.com/cwbudde/algo-reactive/dsp/events"
)

const (
	defaultMaxBursts   = 64
	defaultBurstDecay  = 0.92
	defaultBurstFloor  = 0.01
	burstEnergyGain    = 1.5
	shimmerTrebleScale = 0.5
)

// Burst is one live particle burst.
type Burst struct {
	Quadrant  events.Quadrant
	Energy    float64
	BornAt    time.Duration
	Intensity float64
}

// ParticleField tracks the live particle bursts spawned by events and the
// ambient shimmer driven directly by the coherence state.
type ParticleField struct {
	maxBursts int
	decay     float64

	bursts  []Burst
	shimmer float64
}

// ParticleOption configures a ParticleField.
type ParticleOption func(*ParticleField)

// WithMaxBursts bounds the number of simultaneously live bursts.
func WithMaxBursts(n int) ParticleOption {
	return func(f *ParticleField) {
		if n > 0 {
			f.maxBursts = n
		}
	}
}

// WithBurstDecay sets the per-tick intensity decay factor in (0, 1).
func WithBurstDecay(d float64) ParticleOption {
	return func(f *ParticleField) {
		if d > 0 && d < 1 {
			f.decay = d
		}
	}
}

// NewParticleField builds an empty field.
func NewParticleField(opts ...ParticleOption) *ParticleField {
	f := &ParticleField{
		maxBursts: defaultMaxBursts,
		decay:     defaultBurstDecay,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	return f
}

// Advance folds one tick of state and freshly due events into the field.
// Burst pulsing rides the master phase; the ambient shimmer follows the
// treble energy.
func (f *ParticleField) Advance(st coherence.State, due []events.SpawnEvent) {
	pulse := 0.5 + 0.5*math.Sin(st.Phase.Master)

	live := f.bursts[:0]

	for _, b := range f.bursts {
		b.Energy *= f.decay
		if b.Energy < defaultBurstFloor {
			continue
		}

		b.Intensity = core.Clamp(b.Energy*pulse, 0, 1)
		live = append(live, b)
	}

	f.bursts = live

	for _, ev := range due {
		if len(f.bursts) >= f.maxBursts {
			// Oldest burst yields its slot.
			copy(f.bursts, f.bursts[1:])
			f.bursts = f.bursts[:len(f.bursts)-1]
		}

		e := core.Clamp(ev.Energy*burstEnergyGain, 0, 1)

		f.bursts = append(f.bursts, Burst{
			Quadrant:  ev.Quadrant,
			Energy:    e,
			BornAt:    st.Timestamp,
			Intensity: core.Clamp(e*pulse, 0, 1),
		})
	}

	f.shimmer = core.Clamp(st.Energy.Treble*shimmerTrebleScale+st.Phase.Chaos*0.2, 0, 1)
}

// Bursts returns the live bursts, oldest first.
func (f *ParticleField) Bursts() []Burst {
	out := make([]Burst, len(f.bursts))
	copy(out, f.bursts)

	return out
}

// Shimmer returns the ambient shimmer level in [0, 1].
func (f *ParticleField) Shimmer() float64 {
	return f.shimmer
}

// Reset drops all live bursts.
func (f *ParticleField) Reset() {
	f.bursts = f.bursts[:0]
	f.shimmer = 0
}
