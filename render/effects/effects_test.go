package effects

import (
	"testing"
	"time"

	"github.com/cwbudde/algo-reactive/dsp/coherence"
	"github.com/cwbudde/algo-reactive/dsp/events"
	"github.com/cwbudde/algo-reactive/dsp/latency"
)

func stateAt(ts time.Duration, master, treble float64) coherence.State {
	st := coherence.State{Timestamp: ts}
	st.Phase.Master = master
	st.Energy.Treble = treble

	return st
}

func TestParticleBurstsSpawnAndDecay(t *testing.T) {
	f := NewParticleField()

	f.Advance(stateAt(0, 0, 0.1), []events.SpawnEvent{
		{Quadrant: events.Quadrant3, Energy: 0.6},
	})

	if got := len(f.Bursts()); got != 1 {
		t.Fatalf("expected one live burst, got %d", got)
	}

	for i := range 200 {
		f.Advance(stateAt(time.Duration(i)*16*time.Millisecond, 0, 0.1), nil)
	}

	if got := len(f.Bursts()); got != 0 {
		t.Fatalf("bursts must decay out, %d still live", got)
	}
}

func TestParticleFieldBoundsBursts(t *testing.T) {
	f := NewParticleField(WithMaxBursts(4))

	for i := range 10 {
		f.Advance(stateAt(time.Duration(i)*time.Millisecond, 1, 0.1), []events.SpawnEvent{
			{Quadrant: events.Quadrant1, Energy: 1.0},
		})
	}

	if got := len(f.Bursts()); got != 4 {
		t.Fatalf("burst cap violated: %d live", got)
	}
}

func TestParticleIntensityRidesMasterPhase(t *testing.T) {
	f := NewParticleField(WithBurstDecay(0.999))

	f.Advance(stateAt(0, 0, 0), []events.SpawnEvent{{Energy: 0.9}})

	// Master at π/2 puts the shared pulse at its crest; at 3π/2 at its
	// trough. The burst must follow without any oscillator of its own.
	f.Advance(stateAt(16*time.Millisecond, 1.5707963, 0), nil)
	crest := f.Bursts()[0].Intensity

	f.Advance(stateAt(32*time.Millisecond, 4.7123889, 0), nil)
	trough := f.Bursts()[0].Intensity

	if crest <= trough {
		t.Fatalf("burst intensity must follow the master phase: crest %v <= trough %v", crest, trough)
	}

	if trough > 0.01 {
		t.Fatalf("trough intensity should be near zero, got %v", trough)
	}
}

type countingResolver struct {
	hits   int
	misses int
}

func (r *countingResolver) Resolve(hit bool) {
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func TestTelegraphResolveFeedsAdaptation(t *testing.T) {
	comp := latency.NewCompensator()
	comp.UseDefaults()

	res := &countingResolver{}
	tg := NewTelegraph(comp, res)

	ev := events.SpawnEvent{
		SpawnTime:         100 * time.Millisecond,
		TelegraphDuration: 3 * time.Second,
	}

	id := tg.Announce(ev, 0, nil)
	if tg.Pending() != 1 {
		t.Fatalf("expected one pending event")
	}

	// The player hits 40ms late relative to the scheduled window.
	if !tg.Resolve(id, ev.SpawnTime+ev.TelegraphDuration+40*time.Millisecond, true) {
		t.Fatalf("resolve failed for a pending id")
	}

	if tg.Pending() != 0 {
		t.Fatalf("resolved event still pending")
	}

	if res.hits != 1 || res.misses != 0 {
		t.Fatalf("resolver saw %d hits / %d misses", res.hits, res.misses)
	}

	// The recorded +40ms error must move the adaptive offset negative.
	comp.AdaptNow()

	if got := comp.Profile().AdaptiveOffsetMs; got >= 0 {
		t.Fatalf("late hits should pull the offset negative, got %v", got)
	}
}

func TestTelegraphExpiresMissedWindows(t *testing.T) {
	comp := latency.NewCompensator()
	comp.UseDefaults()

	res := &countingResolver{}
	tg := NewTelegraph(comp, res)

	early := events.SpawnEvent{
		SpawnTime:         100 * time.Millisecond,
		TelegraphDuration: 3 * time.Second,
	}
	late := events.SpawnEvent{
		SpawnTime:         2 * time.Second,
		TelegraphDuration: 3 * time.Second,
	}

	tg.Announce(early, 0, nil)
	lateID := tg.Announce(late, 0, nil)

	// Cutoff sits past the first deadline (3.1s) but before the second (5s).
	if got := tg.ExpireBefore(4 * time.Second); got != 1 {
		t.Fatalf("expected one expired event, got %d", got)
	}

	if tg.Pending() != 1 {
		t.Fatalf("expected one event still pending, got %d", tg.Pending())
	}

	if res.misses != 1 || res.hits != 0 {
		t.Fatalf("expiry must count as a miss, saw %d hits / %d misses", res.hits, res.misses)
	}

	// An expiry is not an interaction, so no timing error feeds adaptation.
	comp.AdaptNow()

	if got := comp.Profile().AdaptiveOffsetMs; got != 0 {
		t.Fatalf("expiry must not move the adaptive offset, got %v", got)
	}

	// The survivor is still resolvable.
	if !tg.Resolve(lateID, late.SpawnTime+late.TelegraphDuration, true) {
		t.Fatalf("resolve failed for the surviving id")
	}
}

func TestTelegraphResolveUnknownID(t *testing.T) {
	tg := NewTelegraph(latency.NewCompensator(), nil)

	if tg.Resolve(42, 0, true) {
		t.Fatalf("unknown id must not resolve")
	}
}

func TestTelegraphCancelStopsWindow(t *testing.T) {
	comp := latency.NewCompensator()
	tg := NewTelegraph(comp, nil)

	fired := make(chan struct{}, 1)

	ev := events.SpawnEvent{
		SpawnTime:         20 * time.Millisecond,
		TelegraphDuration: 3 * time.Second,
	}

	id := tg.Announce(ev, 0, func() { fired <- struct{}{} })

	if !tg.Cancel(id) {
		t.Fatalf("cancel failed for a pending id")
	}

	select {
	case <-fired:
		t.Fatalf("cancelled window callback fired")
	case <-time.After(50 * time.Millisecond):
	}
}

type recordingVibrator struct {
	patterns [][]time.Duration
}

func (v *recordingVibrator) Vibrate(p []time.Duration) {
	v.patterns = append(v.patterns, p)
}

func TestHapticsBeatScalesWithStrength(t *testing.T) {
	vib := &recordingVibrator{}
	h := NewHaptics(vib)

	h.OnBeat(0.2)
	h.OnBeat(0.9)

	if len(vib.patterns) != 2 {
		t.Fatalf("expected two patterns, got %d", len(vib.patterns))
	}

	if vib.patterns[0][0] >= vib.patterns[1][0] {
		t.Fatalf("strong beats should vibrate longer: %v vs %v", vib.patterns[0][0], vib.patterns[1][0])
	}
}

func TestHapticsEventPresets(t *testing.T) {
	vib := &recordingVibrator{}
	h := NewHaptics(vib)

	h.OnEvent(events.SpawnEvent{Interaction: events.Swipe})

	if len(vib.patterns) != 1 {
		t.Fatalf("swipe should vibrate")
	}

	if len(vib.patterns[0])%2 == 0 {
		t.Fatalf("patterns alternate vibrate/pause and end on a vibrate: %v", vib.patterns[0])
	}

	h.OnEvent(events.SpawnEvent{Interaction: events.Calm})

	if len(vib.patterns) != 1 {
		t.Fatalf("calm events stay silent")
	}
}

func TestNilVibratorIsSafe(t *testing.T) {
	h := NewHaptics(nil)
	h.OnBeat(1)
	h.OnEvent(events.SpawnEvent{Interaction: events.Tap})
}
