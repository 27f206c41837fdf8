package params

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-reactive/dsp/coherence"
	"github.com/cwbudde/algo-reactive/dsp/events"
)

type recorderSink struct {
	updates []update
}

type update struct {
	name  string
	value float64
}

func (r *recorderSink) Update(name string, value float64) {
	r.updates = append(r.updates, update{name, value})
}

func (r *recorderSink) last(name string) (float64, bool) {
	for i := len(r.updates) - 1; i >= 0; i-- {
		if r.updates[i].name == name {
			return r.updates[i].value, true
		}
	}

	return 0, false
}

func (r *recorderSink) count(name string) int {
	n := 0

	for _, u := range r.updates {
		if u.name == name {
			n++
		}
	}

	return n
}

func loudState() coherence.State {
	st := coherence.State{}
	st.Rotation4D = coherence.Rotation4D{XW: 1.2, YW: -0.8, ZW: 0.3}
	st.Phase.Chaos = 0.4
	st.Frequency.SpectralCentroid = 1600
	st.Frequency.Flatness = 0.2
	st.Energy = coherence.Energy{Bass: 0.5, Mid: 0.3, Treble: 0.2, Total: 1.0}
	st.Tempo.BPM = 120

	return st
}

func TestApplyMapsDocumentedRanges(t *testing.T) {
	sink := &recorderSink{}
	a := NewAdapter(sink)

	a.Apply(loudState(), nil)

	checks := map[string][2]float64{
		ParamRotXW:       {-2 * math.Pi, 2 * math.Pi},
		ParamRotYW:       {-2 * math.Pi, 2 * math.Pi},
		ParamRotZW:       {-2 * math.Pi, 2 * math.Pi},
		ParamGridDensity: {5, 100},
		ParamMorphFactor: {0, 1},
		ParamChaos:       {0, 1},
		ParamHue:         {0, 1},
		ParamIntensity:   {0, 1},
		ParamSaturation:  {0, 1},
		ParamSpeed:       {0, 3},
	}

	for name, bounds := range checks {
		v, ok := sink.last(name)
		if !ok {
			t.Fatalf("parameter %q never forwarded", name)
		}

		if v < bounds[0] || v > bounds[1] {
			t.Fatalf("parameter %q out of range: %v not in [%v, %v]", name, v, bounds[0], bounds[1])
		}
	}

	if v, _ := sink.last(ParamGridDensity); math.Abs(v-52.5) > 1e-9 {
		t.Fatalf("bass 0.5 should map to gridDensity 52.5, got %v", v)
	}

	if v, _ := sink.last(ParamSpeed); math.Abs(v-1.0) > 1e-9 {
		t.Fatalf("120 BPM should map to speed 1.0, got %v", v)
	}
}

func TestRotationClampedToTwoPi(t *testing.T) {
	sink := &recorderSink{}
	a := NewAdapter(sink)

	st := loudState()
	st.Rotation4D.XW = 100

	a.Apply(st, nil)

	if v, _ := sink.last(ParamRotXW); v != 2*math.Pi {
		t.Fatalf("rotation must clamp at 2π, got %v", v)
	}
}

func TestChangeDetectionSuppressesRepeats(t *testing.T) {
	sink := &recorderSink{}
	a := NewAdapter(sink)

	st := loudState()

	a.Apply(st, nil)
	a.Apply(st, nil)
	a.Apply(st, nil)

	if n := sink.count(ParamRotXW); n != 1 {
		t.Fatalf("unchanged rotation forwarded %d times, want 1", n)
	}

	st.Rotation4D.XW = 1.5

	a.Apply(st, nil)

	if n := sink.count(ParamRotXW); n != 2 {
		t.Fatalf("changed rotation should forward again, got %d updates", n)
	}
}

func TestSubEpsilonChangesSuppressed(t *testing.T) {
	sink := &recorderSink{}
	a := NewAdapter(sink, WithEpsilon(0.01))

	st := loudState()
	a.Apply(st, nil)

	st.Rotation4D.XW += 0.005
	a.Apply(st, nil)

	if n := sink.count(ParamRotXW); n != 1 {
		t.Fatalf("sub-epsilon change forwarded, %d updates", n)
	}
}

func TestGeometryFromDueEvents(t *testing.T) {
	sink := &recorderSink{}
	a := NewAdapter(sink)

	a.Apply(loudState(), []events.SpawnEvent{{Geometry: events.Cell600}})

	v, ok := sink.last(ParamGeometry)
	if !ok {
		t.Fatalf("geometry never forwarded")
	}

	if v != float64(events.Cell600) {
		t.Fatalf("geometry %v, want %v", v, float64(events.Cell600))
	}

	if v != math.Trunc(v) || v < 0 || v > 8 {
		t.Fatalf("geometry must be an integer in [0, 8]: %v", v)
	}
}

func TestNonFiniteValuesNeverReachSink(t *testing.T) {
	sink := &recorderSink{}
	a := NewAdapter(sink)

	st := loudState()
	st.Frequency.SpectralCentroid = math.NaN()
	st.Phase.Chaos = math.Inf(1)

	a.Apply(st, nil)

	for _, u := range sink.updates {
		if math.IsNaN(u.value) || math.IsInf(u.value, 0) {
			t.Fatalf("non-finite value forwarded for %q", u.name)
		}
	}
}

func TestResetResendsEverything(t *testing.T) {
	sink := &recorderSink{}
	a := NewAdapter(sink)

	st := loudState()
	a.Apply(st, nil)
	a.Reset()
	a.Apply(st, nil)

	if n := sink.count(ParamRotXW); n != 2 {
		t.Fatalf("reset should force a re-send, got %d updates", n)
	}
}

func TestNilSinkIsSafe(t *testing.T) {
	a := NewAdapter(nil)
	a.Apply(loudState(), nil)
}
