package latency

import (
	"io"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cwbudde/algo-reactive/dsp/acquire"
	"github.com/cwbudde/algo-reactive/dsp/core"
	"github.com/cwbudde/algo-reactive/internal/clock"
)

func TestCompensatedTimestamp(t *testing.T) {
	c := NewCompensator()

	c.mu.Lock()
	c.profile.AdaptiveOffsetMs = -40
	c.mu.Unlock()

	got := c.CompensatedTimestamp(time.Second)
	if got != time.Second-40*time.Millisecond {
		t.Fatalf("expected 960ms, got %v", got)
	}
}

func TestAdaptationConvergesWithoutOscillation(t *testing.T) {
	// Property: a consistent +40ms error drives the offset toward -40ms
	// compensation, sign and rough magnitude correct, without runaway.
	c := NewCompensator()
	c.UseDefaults()

	const trueErrorMs = 40.0

	var prevOffset float64

	for round := range 60 {
		offset := c.Profile().AdaptiveOffsetMs

		// Consumers observe the residual error after compensation.
		residual := trueErrorMs + offset
		for range 20 {
			c.RecordTimingMeasurement(0, core.DurationMillis(residual))
		}

		c.AdaptNow()

		next := c.Profile().AdaptiveOffsetMs
		if next > 0 {
			t.Fatalf("round %d: offset went positive (%v) for a positive error", round, next)
		}

		if next < -trueErrorMs-1 {
			t.Fatalf("round %d: offset overshot to %v", round, next)
		}

		prevOffset = next
	}

	if prevOffset > -30 {
		t.Fatalf("offset should approach -40ms, got %v", prevOffset)
	}
}

func TestAdaptationIgnoresSmallDrift(t *testing.T) {
	c := NewCompensator()
	c.UseDefaults()

	for range 20 {
		c.RecordTimingMeasurement(0, 3*time.Millisecond)
	}

	c.AdaptNow()

	if got := c.Profile().AdaptiveOffsetMs; got != 0 {
		t.Fatalf("sub-threshold drift must not adapt, got offset %v", got)
	}
}

func TestAdaptationStallsWithoutMeasurements(t *testing.T) {
	c := NewCompensator()
	c.UseDefaults()

	for range 20 {
		c.RecordTimingMeasurement(0, 40*time.Millisecond)
	}

	c.AdaptNow()
	after := c.Profile().AdaptiveOffsetMs

	// Further passes without fresh measurements hold the offset.
	c.AdaptNow()
	c.AdaptNow()

	if got := c.Profile().AdaptiveOffsetMs; got != after {
		t.Fatalf("offset must hold without measurements: %v -> %v", after, got)
	}
}

func TestOffsetHardBound(t *testing.T) {
	c := NewCompensator(WithOffsetBound(300))
	c.UseDefaults()

	for range 10000 {
		for range 5 {
			c.RecordTimingMeasurement(0, -10*time.Second)
		}

		c.AdaptNow()
	}

	got := c.Profile().AdaptiveOffsetMs
	if got > 300 || got < -300 {
		t.Fatalf("offset escaped the hard bound: %v", got)
	}

	if got != 300 {
		t.Fatalf("expected saturation at +300, got %v", got)
	}
}

func TestEmergencyModeFreezesAdaptation(t *testing.T) {
	c := NewCompensator()
	c.UseDefaults()
	c.EnableEmergencyMode()

	if c.State() != StateEmergency {
		t.Fatalf("expected emergency state, got %v", c.State())
	}

	fixed := c.Profile().AdaptiveOffsetMs

	for range 20 {
		c.RecordTimingMeasurement(0, 200*time.Millisecond)
	}

	c.AdaptNow()

	if got := c.Profile().AdaptiveOffsetMs; got != fixed {
		t.Fatalf("emergency mode must freeze the offset: %v -> %v", fixed, got)
	}
}

func TestScheduleCompensatedFiresAndCancels(t *testing.T) {
	c := NewCompensator()

	var fired atomic.Int32

	h := c.ScheduleCompensated(func() { fired.Add(1) }, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)

	if fired.Load() != 1 {
		t.Fatalf("expected callback to fire once, got %d", fired.Load())
	}

	h2 := c.ScheduleCompensated(func() { fired.Add(1) }, 50*time.Millisecond)
	if !h2.Cancel() {
		t.Fatalf("expected cancel to succeed")
	}

	time.Sleep(100 * time.Millisecond)

	if fired.Load() != 1 {
		t.Fatalf("cancelled callback must not fire")
	}

	if h.Cancel() {
		t.Fatalf("cancelling a fired handle must report false")
	}
}

func TestCalibrateDetectsLoopbackTone(t *testing.T) {
	src, err := acquire.NewSynthetic(
		acquire.WithSynthBass(60, 0),
		acquire.WithSynthTone(1000, 0.5),
	)
	if err != nil {
		t.Fatalf("NewSynthetic: %v", err)
	}

	c := NewCompensator(WithTestTone(1000, 1.0))

	res, err := c.Calibrate(src, clock.NewMonotonic())
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}

	if !res.Measured {
		t.Fatalf("expected tone to be detected")
	}

	if res.Confidence < 0.5 {
		t.Fatalf("measured calibration should be confident, got %v", res.Confidence)
	}

	if c.State() != StateCalibrated {
		t.Fatalf("expected calibrated state, got %v", c.State())
	}
}

func TestCalibrateFallsBackOnSilence(t *testing.T) {
	src, err := acquire.NewSilentSynthetic()
	if err != nil {
		t.Fatalf("NewSilentSynthetic: %v", err)
	}

	c := NewCompensator(WithCalibrationTimeout(50 * time.Millisecond))

	res, err := c.Calibrate(src, clock.NewMonotonic())
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}

	if res.Measured {
		t.Fatalf("silent source must not be detected")
	}

	p := res.Profile
	if p.InputMs != defaultInputMs || p.OutputMs != defaultOutputMs {
		t.Fatalf("expected platform defaults, got %+v", p)
	}

	if res.Confidence >= 0.5 {
		t.Fatalf("fallback calibration must report low confidence")
	}
}

func TestToneReaderProducesBoundedSamples(t *testing.T) {
	r := newToneReader(440, 44100, 10*time.Millisecond)

	buf := make([]byte, 1024)
	total := 0

	for {
		n, err := r.Read(buf)
		total += n

		for i := 0; i+3 < n; i += 4 {
			bits := uint32(buf[i]) | uint32(buf[i+1])<<8 | uint32(buf[i+2])<<16 | uint32(buf[i+3])<<24

			v := math.Float32frombits(bits)
			if v < -1 || v > 1 || v != v {
				t.Fatalf("sample out of range: %v", v)
			}
		}

		if err == io.EOF {
			break
		}

		if err != nil {
			t.Fatalf("read: %v", err)
		}
	}

	want := int(44100*0.010) * 4
	if total != want {
		t.Fatalf("expected %d bytes, got %d", want, total)
	}
}

func TestStateString(t *testing.T) {
	names := map[State]string{
		StateUncalibrated: "uncalibrated",
		StateCalibrating:  "calibrating",
		StateCalibrated:   "calibrated",
		StateAdapting:     "adapting",
		StateEmergency:    "emergency",
	}

	for s, want := range names {
		if s.String() != want {
			t.Fatalf("state %d: got %q, want %q", s, s.String(), want)
		}
	}
}
