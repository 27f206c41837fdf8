// Package engine runs the audio-reactive pipeline: one strictly serial tick
// moves a captured frame through band analysis, beat tracking, the coherence
// engine and event generation, then out to the parameter sink and effect
// coordinators. A separate slow timer drives latency adaptation.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/cwbudde/algo-reactive/dsp/acquire"
	"github.com/cwbudde/algo-reactive/dsp/bands"
	"github.com/cwbudde/algo-reactive/dsp/beat"
	"github.com/cwbudde/algo-reactive/dsp/coherence"
	"github.com/cwbudde/algo-reactive/dsp/core"
	"github.com/cwbudde/algo-reactive/dsp/events"
	"github.com/cwbudde/algo-reactive/dsp/latency"
	"github.com/cwbudde/algo-reactive/internal/clock"
	"github.com/cwbudde/algo-reactive/render/effects"
	"github.com/cwbudde/algo-reactive/render/params"
)

const defaultAdaptEvery = time.Second

// Unresolved interactions this far past their window count as misses and are
// swept out of the telegraph each tick.
const missGrace = 500 * time.Millisecond

type config struct {
	source     acquire.Source
	sink       params.Sink
	vibrator   effects.Vibrator
	clk        clock.Clock
	format     core.EngineConfig
	adaptEvery time.Duration
	liveInput  bool
	loopback   bool

	bandOpts    []bands.Option
	beatOpts    []beat.Option
	eventOpts   []events.Option
	latencyOpts []latency.Option
}

func defaultConfig() config {
	return config{
		sink:       params.NopSink{},
		vibrator:   effects.NopVibrator{},
		clk:        clock.NewMonotonic(),
		format:     core.DefaultEngineConfig(),
		adaptEvery: defaultAdaptEvery,
	}
}

// Option configures a Pipeline.
type Option func(*config)

// WithSource pins the input source, skipping the acquisition ladder.
func WithSource(src acquire.Source) Option {
	return func(cfg *config) {
		if src != nil {
			cfg.source = src
		}
	}
}

// WithSink sets the parameter sink the adapter writes to.
func WithSink(sink params.Sink) Option {
	return func(cfg *config) {
		if sink != nil {
			cfg.sink = sink
		}
	}
}

// WithVibrator sets the haptic output device.
func WithVibrator(v effects.Vibrator) Option {
	return func(cfg *config) {
		if v != nil {
			cfg.vibrator = v
		}
	}
}

// WithClock injects the time source for every component.
func WithClock(clk clock.Clock) Option {
	return func(cfg *config) {
		if clk != nil {
			cfg.clk = clk
		}
	}
}

// WithTickRate sets the tick frequency in Hz.
func WithTickRate(hz float64) Option {
	return WithFormat(core.WithTickRate(hz))
}

// WithFormat adjusts the shared analysis format (sample rate, FFT size,
// tick rate) used for acquired sources.
func WithFormat(opts ...core.EngineOption) Option {
	return func(cfg *config) {
		for _, opt := range opts {
			if opt != nil {
				opt(&cfg.format)
			}
		}
	}
}

// WithAdaptInterval sets the cadence of the latency adaptation timer.
func WithAdaptInterval(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.adaptEvery = d
		}
	}
}

// WithLiveInput makes Start try the microphone before falling back to the
// synthetic source.
func WithLiveInput() Option {
	return func(cfg *config) {
		cfg.liveInput = true
	}
}

// WithLoopbackCalibration makes Start run the loopback latency measurement
// instead of seeding platform defaults.
func WithLoopbackCalibration() Option {
	return func(cfg *config) {
		cfg.loopback = true
	}
}

// WithBandOptions forwards options to the band analyzer.
func WithBandOptions(opts ...bands.Option) Option {
	return func(cfg *config) {
		cfg.bandOpts = append(cfg.bandOpts, opts...)
	}
}

// WithBeatOptions forwards options to the beat tracker.
func WithBeatOptions(opts ...beat.Option) Option {
	return func(cfg *config) {
		cfg.beatOpts = append(cfg.beatOpts, opts...)
	}
}

// WithEventOptions forwards options to the event generator.
func WithEventOptions(opts ...events.Option) Option {
	return func(cfg *config) {
		cfg.eventOpts = append(cfg.eventOpts, opts...)
	}
}

// WithLatencyOptions forwards options to the latency compensator.
func WithLatencyOptions(opts ...latency.Option) Option {
	return func(cfg *config) {
		cfg.latencyOpts = append(cfg.latencyOpts, opts...)
	}
}

// AnnouncedEvent pairs a due event with the telegraph id callers use to
// resolve or cancel its interaction.
type AnnouncedEvent struct {
	ID    int
	Event events.SpawnEvent
}

// TickResult is the per-tick snapshot handed to callers of Tick.
type TickResult struct {
	State     coherence.State
	Beat      beat.Observation
	Bands     bands.Map
	Spawned   []events.SpawnEvent
	Due       []events.SpawnEvent
	Announced []AnnouncedEvent
	Timestamp time.Duration
}

// Pipeline owns every stage and drives them in order.
type Pipeline struct {
	cfg config

	src       acquire.Source
	analyzer  *bands.Analyzer
	tracker   *beat.Tracker
	coherer   *coherence.Engine
	generator *events.Generator
	queue     *events.Queue
	comp      *latency.Compensator
	adapter   *params.Adapter
	particles *effects.ParticleField
	telegraph *effects.Telegraph
	haptics   *effects.Haptics

	calibration latency.CalibrationResult
	started     bool
}

// New assembles a pipeline. Component construction is the only error path;
// acquisition and calibration failures at Start never prevent startup.
func New(opts ...Option) (*Pipeline, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	analyzer, err := bands.NewAnalyzer(cfg.bandOpts...)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	tracker, err := beat.NewTracker(cfg.beatOpts...)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	generator, err := events.NewGenerator(cfg.eventOpts...)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	comp := latency.NewCompensator(cfg.latencyOpts...)

	p := &Pipeline{
		cfg:       cfg,
		analyzer:  analyzer,
		tracker:   tracker,
		coherer:   coherence.NewEngine(),
		generator: generator,
		queue:     events.NewQueue(),
		comp:      comp,
		adapter:   params.NewAdapter(cfg.sink),
		particles: effects.NewParticleField(),
		haptics:   effects.NewHaptics(cfg.vibrator),
	}

	p.telegraph = effects.NewTelegraph(comp, generator)

	return p, nil
}

// Start acquires an input source and calibrates latency. Every failure on
// the way falls through to a working mode: microphone trouble lands on the
// synthetic source, an inconclusive loopback measurement lands on platform
// defaults. After Start the tick loop always has something to run on.
func (p *Pipeline) Start() error {
	if p.started {
		return nil
	}

	p.src = p.cfg.source
	running := false

	if p.src == nil && p.cfg.liveInput {
		if mic, err := acquire.NewMic(p.cfg.format.SampleRate, p.cfg.format.FFTSize); err == nil {
			if err := mic.Start(); err == nil {
				p.src = mic
				running = true
			}
		}
	}

	if p.src == nil {
		src, err := p.newSynthetic()
		if err != nil {
			return fmt.Errorf("engine: synthetic fallback: %w", err)
		}

		p.src = src
	}

	if !running {
		if err := p.src.Start(); err != nil {
			// A live source that fails to start gets replaced by the
			// synthetic generator, which never does.
			src, serr := p.newSynthetic()
			if serr != nil {
				return fmt.Errorf("engine: synthetic fallback: %w", serr)
			}

			p.src = src

			if err := p.src.Start(); err != nil {
				return fmt.Errorf("engine: synthetic start: %w", err)
			}
		}
	}

	if p.cfg.loopback {
		res, err := p.comp.Calibrate(p.src, p.cfg.clk)
		if err != nil {
			res = p.comp.UseDefaults()
		}

		p.calibration = res
	} else {
		p.calibration = p.comp.UseDefaults()
	}

	p.started = true

	return nil
}

// Stop releases the input source.
func (p *Pipeline) Stop() {
	if p.src != nil {
		p.src.Stop()
	}

	p.started = false
}

// Mode reports whether frames come from a live device or the synthetic
// generator.
func (p *Pipeline) Mode() acquire.InputMode {
	if p.src == nil {
		return acquire.ModeSynthetic
	}

	return p.src.Mode()
}

// Calibration returns the startup calibration outcome.
func (p *Pipeline) Calibration() latency.CalibrationResult {
	return p.calibration
}

// Compensator exposes the latency compensator for effect scheduling.
func (p *Pipeline) Compensator() *latency.Compensator {
	return p.comp
}

// Telegraph exposes the telegraph coordinator for interaction resolution.
func (p *Pipeline) Telegraph() *effects.Telegraph {
	return p.telegraph
}

// Particles exposes the particle field for rendering.
func (p *Pipeline) Particles() *effects.ParticleField {
	return p.particles
}

// Tick runs one serial pipeline pass at the injected clock's current time.
func (p *Pipeline) Tick() (TickResult, error) {
	if !p.started {
		if err := p.Start(); err != nil {
			return TickResult{}, err
		}
	}

	now := p.cfg.clk.Now()

	frame, err := acquire.Capture(p.src, now)
	if err != nil {
		return TickResult{}, fmt.Errorf("engine: capture: %w", err)
	}

	bm := p.analyzer.Analyze(frame)
	obs := p.tracker.Observe(now, bm.TotalEnergy())
	st := p.coherer.Update(frame, bm, obs)

	spawned := p.generator.Observe(now, bm, st, obs)
	p.queue.Push(spawned...)

	due := p.queue.PopDue(now)

	p.adapter.Apply(st, due)
	p.particles.Advance(st, due)

	var announced []AnnouncedEvent

	for _, ev := range due {
		id := p.telegraph.Announce(ev, now, nil)
		announced = append(announced, AnnouncedEvent{ID: id, Event: ev})
		p.haptics.OnEvent(ev)
	}

	p.telegraph.ExpireBefore(now - missGrace)

	if obs.BeatDetected {
		p.haptics.OnBeat(obs.Strength)
	}

	return TickResult{
		State:     st,
		Beat:      obs,
		Bands:     bm,
		Spawned:   spawned,
		Due:       due,
		Announced: announced,
		Timestamp: now,
	}, nil
}

// TickInterval returns the configured time between ticks.
func (p *Pipeline) TickInterval() time.Duration {
	return core.DurationMillis(p.cfg.format.TickInterval())
}

func (p *Pipeline) newSynthetic() (*acquire.SyntheticSource, error) {
	return acquire.NewSynthetic(
		acquire.WithSynthFormat(p.cfg.format.SampleRate, p.cfg.format.FFTSize),
	)
}

// Run drives the tick loop at the configured rate until the context ends.
// The latency adaptation timer runs independently on its own slower cadence;
// the compensator tolerates the overlap because the offset is read under its
// own lock.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.Start(); err != nil {
		return err
	}

	defer p.Stop()

	ticker := time.NewTicker(p.TickInterval())
	defer ticker.Stop()

	adapt := time.NewTicker(p.cfg.adaptEvery)
	defer adapt.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-adapt.C:
			p.comp.AdaptNow()
		case <-ticker.C:
			if _, err := p.Tick(); err != nil {
				return err
			}
		}
	}
}
