package effects

import (
	"time"

	"github.com/cwbudde/algo-reactive/dsp/events"
)

// Vibrator plays an alternating vibrate/pause pattern of millisecond
// durations. It is fire-and-forget: implementations must return immediately
// and may ignore patterns entirely on unsupported hardware.
type Vibrator interface {
	Vibrate(pattern []time.Duration)
}

// NopVibrator ignores all patterns.
type NopVibrator struct{}

// Vibrate does nothing.
func (NopVibrator) Vibrate([]time.Duration) {}

const (
	beatPulseMs       = 30
	strongBeatPulseMs = 60
	strongBeatLevel   = 0.5
)

// PatternFor returns the haptic preset for an interaction kind, alternating
// vibrate and pause durations.
func PatternFor(kind events.Interaction) []time.Duration {
	switch kind {
	case events.Pulse:
		return msPattern(80)
	case events.Tap:
		return msPattern(25)
	case events.Hold:
		return msPattern(40, 40, 120)
	case events.Swipe:
		return msPattern(20, 30, 20, 30, 20)
	case events.Avoid:
		return msPattern(15, 60, 15)
	case events.Burst:
		return msPattern(100, 50, 100)
	case events.BuildUp:
		return msPattern(20, 80, 40, 60, 60, 40, 80)
	case events.Calm:
		return nil
	default:
		return nil
	}
}

// Haptics converts beats and events into vibration patterns.
type Haptics struct {
	vib Vibrator
}

// NewHaptics wraps the given vibrator. A nil vibrator gets the no-op
// default.
func NewHaptics(vib Vibrator) *Haptics {
	if vib == nil {
		vib = NopVibrator{}
	}

	return &Haptics{vib: vib}
}

// OnBeat emits a short pulse scaled by beat strength.
func (h *Haptics) OnBeat(strength float64) {
	ms := beatPulseMs
	if strength > strongBeatLevel {
		ms = strongBeatPulseMs
	}

	h.vib.Vibrate(msPattern(ms))
}

// OnEvent plays the preset pattern for the event's interaction kind. Kinds
// without a preset stay silent.
func (h *Haptics) OnEvent(ev events.SpawnEvent) {
	if p := PatternFor(ev.Interaction); p != nil {
		h.vib.Vibrate(p)
	}
}

func msPattern(ms ...int) []time.Duration {
	out := make([]time.Duration, len(ms))
	for i, m := range ms {
		out[i] = time.Duration(m) * time.Millisecond
	}

	return out
}
