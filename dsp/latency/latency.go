// Package latency measures device audio latency and maintains the adaptive
// timestamp offset that keeps scheduled visual and haptic effects aligned
// with the audio they respond to.
package latency

import (
	"sync"
	"time"

	"github.com/cwbudde/algo-reactive/dsp/core"
	"github.com/cwbudde/algo-reactive/internal/ring"
)

// State describes the compensator lifecycle.
type State int

const (
	StateUncalibrated State = iota
	StateCalibrating
	StateCalibrated
	StateAdapting
	StateEmergency
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateCalibrating:
		return "calibrating"
	case StateCalibrated:
		return "calibrated"
	case StateAdapting:
		return "adapting"
	case StateEmergency:
		return "emergency"
	default:
		return "uncalibrated"
	}
}

// Profile is a snapshot of the measured and adapted latency figures, all in
// milliseconds.
type Profile struct {
	InputMs          float64
	OutputMs         float64
	TotalMs          float64
	AdaptiveOffsetMs float64
}

const (
	defaultToneFrequency  = 1000.0
	defaultToneDuration   = 100 * time.Millisecond
	defaultToneThreshold  = 1.0 // Goertzel power threshold for detection
	defaultCalibTimeout   = 2 * time.Second
	defaultCalibPoll      = 10 * time.Millisecond
	defaultInputMs        = 20.0
	defaultOutputMs       = 30.0
	defaultLearningRate   = 0.1
	defaultDriftThreshold = 5.0 // ms
	defaultMaxOffsetMs    = 300.0
	defaultWindowSize     = 30
	defaultEmergencyMs    = -100.0
)

type config struct {
	toneFrequency  float64
	toneDuration   time.Duration
	toneThreshold  float64
	calibTimeout   time.Duration
	calibPoll      time.Duration
	defaultInput   float64
	defaultOutput  float64
	learningRate   float64
	driftThreshold float64
	maxOffset      float64
	windowSize     int
	emergencyMs    float64
	emitter        ToneEmitter
}

func defaultConfig() config {
	return config{
		toneFrequency:  defaultToneFrequency,
		toneDuration:   defaultToneDuration,
		toneThreshold:  defaultToneThreshold,
		calibTimeout:   defaultCalibTimeout,
		calibPoll:      defaultCalibPoll,
		defaultInput:   defaultInputMs,
		defaultOutput:  defaultOutputMs,
		learningRate:   defaultLearningRate,
		driftThreshold: defaultDriftThreshold,
		maxOffset:      defaultMaxOffsetMs,
		windowSize:     defaultWindowSize,
		emergencyMs:    defaultEmergencyMs,
		emitter:        NopEmitter{},
	}
}

// Option configures a Compensator.
type Option func(*config)

// WithTestTone sets the calibration tone frequency and detection threshold.
func WithTestTone(freqHz, powerThreshold float64) Option {
	return func(cfg *config) {
		if freqHz > 0 {
			cfg.toneFrequency = freqHz
		}

		if powerThreshold > 0 {
			cfg.toneThreshold = powerThreshold
		}
	}
}

// WithCalibrationTimeout sets how long a loopback measurement may take before
// falling back to platform defaults.
func WithCalibrationTimeout(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.calibTimeout = d
		}
	}
}

// WithPlatformDefaults sets the fallback input/output latency in ms.
func WithPlatformDefaults(inputMs, outputMs float64) Option {
	return func(cfg *config) {
		if inputMs >= 0 {
			cfg.defaultInput = inputMs
		}

		if outputMs >= 0 {
			cfg.defaultOutput = outputMs
		}
	}
}

// WithLearningRate sets the adaptation step factor.
func WithLearningRate(rate float64) Option {
	return func(cfg *config) {
		if rate > 0 && rate <= 1 {
			cfg.learningRate = rate
		}
	}
}

// WithOffsetBound sets the hard clamp on the adaptive offset in ms.
func WithOffsetBound(maxMs float64) Option {
	return func(cfg *config) {
		if maxMs > 0 {
			cfg.maxOffset = maxMs
		}
	}
}

// WithEmitter sets the tone emitter used during calibration.
func WithEmitter(e ToneEmitter) Option {
	return func(cfg *config) {
		if e != nil {
			cfg.emitter = e
		}
	}
}

// Compensator owns the latency profile and the adaptive offset.
//
// The offset is read on every scheduling decision and revised on a slow
// (~1 s) cadence from timing measurements reported by consumers; both run
// concurrently, so all state is guarded by a mutex.
type Compensator struct {
	cfg config

	mu        sync.Mutex
	state     State
	profile   Profile
	conf      float64
	window    *ring.Buffer // timing errors (actual-expected, ms) since last adapt
	emergency bool
}

// NewCompensator builds an uncalibrated compensator.
func NewCompensator(opts ...Option) *Compensator {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return &Compensator{
		cfg:    cfg,
		state:  StateUncalibrated,
		window: ring.New(cfg.windowSize),
	}
}

// State returns the current lifecycle state.
func (c *Compensator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Profile returns a snapshot of the current latency figures.
func (c *Compensator) Profile() Profile {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.profile
}

// Confidence returns the calibration confidence in [0, 1].
func (c *Compensator) Confidence() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conf
}

// CompensatedTimestamp returns t shifted by the adaptive offset.
func (c *Compensator) CompensatedTimestamp(t time.Duration) time.Duration {
	c.mu.Lock()
	offset := c.profile.AdaptiveOffsetMs
	c.mu.Unlock()

	return t + core.DurationMillis(offset)
}

// Handle identifies a scheduled compensated callback.
type Handle struct {
	timer *time.Timer
}

// Cancel invalidates the callback. It reports whether the cancellation took
// effect before the callback fired.
func (h *Handle) Cancel() bool {
	if h == nil || h.timer == nil {
		return false
	}

	return h.timer.Stop()
}

// ScheduleCompensated fires cb after delay adjusted by the adaptive offset.
// The adjusted delay never goes below zero. Callbacks run on their own timer
// goroutine and must not mutate shared analysis state directly.
func (c *Compensator) ScheduleCompensated(cb func(), delay time.Duration) *Handle {
	adjusted := delay + core.DurationMillis(c.offsetMs())
	if adjusted < 0 {
		adjusted = 0
	}

	return &Handle{timer: time.AfterFunc(adjusted, cb)}
}

func (c *Compensator) offsetMs() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.profile.AdaptiveOffsetMs
}

// RecordTimingMeasurement reports an observed expected-vs-actual event time
// pair. This is the only write path into the adaptation window; consumers
// call it whenever they can compare a scheduled effect against the audio
// event it was meant to coincide with.
func (c *Compensator) RecordTimingMeasurement(expected, actual time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.emergency {
		return
	}

	c.window.Push(core.Millis(actual - expected))
}

// AdaptNow runs one adaptation pass over the measurements recorded since the
// previous pass. With no fresh measurements the offset silently holds its
// last value. The engine calls this on a ~1 s cadence.
func (c *Compensator) AdaptNow() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.emergency || c.window.Len() == 0 {
		return
	}

	mean := c.window.Mean()
	c.window.Reset()

	if mean > -c.cfg.driftThreshold && mean < c.cfg.driftThreshold {
		return
	}

	offset := c.profile.AdaptiveOffsetMs - mean*c.cfg.learningRate
	c.profile.AdaptiveOffsetMs = core.Clamp(offset, -c.cfg.maxOffset, c.cfg.maxOffset)

	if c.state == StateCalibrated {
		c.state = StateAdapting
	}
}

// EnableEmergencyMode forces a fixed conservative offset and disables all
// further adaptation. Used when confidence stays persistently low.
func (c *Compensator) EnableEmergencyMode() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.emergency = true
	c.state = StateEmergency
	c.profile.AdaptiveOffsetMs = c.cfg.emergencyMs
	c.window.Reset()
}
