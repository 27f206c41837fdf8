// Package events turns band energies and the coherence state into timed
// interaction events for the visual layer. Spawn thresholds adapt to the
// player's recent hit accuracy, but the telegraph lead time never drops
// below a fixed fairness floor.
package events

import (
	"fmt"
	"sort"
	"time"

	"github.com/cwbudde/algo-reactive/dsp/bands"
	"github.com/cwbudde/algo-reactive/dsp/beat"
	"github.com/cwbudde/algo-reactive/dsp/coherence"
	"github.com/cwbudde/algo-reactive/dsp/core"
	"github.com/cwbudde/algo-reactive/internal/ring"
)

// Geometry identifies the 4D shape an event spawns.
type Geometry int

const (
	Hypersphere Geometry = iota
	Tesseract
	Cell24
	Cell600
	Cell120
)

// String returns the geometry name.
func (g Geometry) String() string {
	switch g {
	case Hypersphere:
		return "hypersphere"
	case Tesseract:
		return "tesseract"
	case Cell24:
		return "24cell"
	case Cell600:
		return "600cell"
	case Cell120:
		return "120cell"
	default:
		return "unknown"
	}
}

// Interaction identifies what the player must do with an event.
type Interaction int

const (
	Pulse Interaction = iota
	Tap
	Hold
	Swipe
	Avoid
	Burst
	BuildUp
	Calm
)

// String returns the interaction name.
func (k Interaction) String() string {
	switch k {
	case Pulse:
		return "pulse"
	case Tap:
		return "tap"
	case Hold:
		return "hold"
	case Swipe:
		return "swipe"
	case Avoid:
		return "avoid"
	case Burst:
		return "burst"
	case BuildUp:
		return "buildup"
	case Calm:
		return "calm"
	default:
		return "unknown"
	}
}

// Quadrant identifies the screen region an event targets.
type Quadrant int

const (
	Center Quadrant = iota
	Quadrant1
	Quadrant2
	Quadrant3
	Quadrant4
)

// SpawnEvent is an immutable scheduled interaction.
type SpawnEvent struct {
	Geometry          Geometry
	Interaction       Interaction
	Quadrant          Quadrant
	Band              bands.ID
	Energy            float64
	Difficulty        float64
	SpawnTime         time.Duration
	TelegraphDuration time.Duration
}

// Rule maps a band to the event it spawns. Subdivision is the spawn delay in
// beats relative to the trigger tick.
type Rule struct {
	Band        bands.ID
	Geometry    Geometry
	Interaction Interaction
	Quadrant    Quadrant
	Subdivision float64
	Threshold   float64
}

// DefaultRules returns the fixed band mapping. Thresholds are on the band
// analyzer's mean-linear-magnitude scale, where a strong bass hit measures
// around 0.1.
func DefaultRules() []Rule {
	return []Rule{
		{Band: bands.Bass, Geometry: Hypersphere, Interaction: Pulse, Quadrant: Quadrant3, Subdivision: 1.0, Threshold: 0.04},
		{Band: bands.LowMid, Geometry: Tesseract, Interaction: Tap, Quadrant: Quadrant1, Subdivision: 0.5, Threshold: 0.035},
		{Band: bands.Mid, Geometry: Cell24, Interaction: Hold, Quadrant: Quadrant2, Subdivision: 0.25, Threshold: 0.035},
		{Band: bands.HighMid, Geometry: Cell600, Interaction: Swipe, Quadrant: Quadrant4, Subdivision: 0.75, Threshold: 0.03},
		{Band: bands.Treble, Geometry: Cell120, Interaction: Avoid, Quadrant: Center, Subdivision: 2.0, Threshold: 0.03},
	}
}

const (
	// MinTelegraph is the fairness floor: every event carries at least this
	// much advance warning, at every difficulty.
	MinTelegraph = 3 * time.Second

	minDifficulty    = 0.5
	maxDifficulty    = 3.0
	difficultyStep   = 0.05
	raiseAccuracy    = 0.8
	lowerAccuracy    = 0.5
	accuracyWindow   = 10
	defaultBeatMs    = 500.0
	burstStrength    = 0.5
	buildUpLevel     = 0.7
	calmLevel        = 0.1
	trendWindow      = 30
	defaultBurstHold = 500 * time.Millisecond
	defaultBuildHold = 2 * time.Second
	defaultCalmHold  = 2 * time.Second
)

type config struct {
	rules     []Rule
	telegraph time.Duration
	burstHold time.Duration
	buildHold time.Duration
	calmHold  time.Duration
}

func defaultConfig() config {
	return config{
		rules:     DefaultRules(),
		telegraph: MinTelegraph,
		burstHold: defaultBurstHold,
		buildHold: defaultBuildHold,
		calmHold:  defaultCalmHold,
	}
}

// Option configures a Generator.
type Option func(*config)

// WithRules replaces the band mapping table.
func WithRules(rules []Rule) Option {
	return func(cfg *config) {
		if len(rules) > 0 {
			cfg.rules = rules
		}
	}
}

// WithTelegraphDuration sets the telegraph lead time. Values below the
// fairness floor are raised to it, never accepted.
func WithTelegraphDuration(d time.Duration) Option {
	return func(cfg *config) {
		if d > MinTelegraph {
			cfg.telegraph = d
		}
	}
}

// Generator produces spawn events from the per-tick analysis results.
type Generator struct {
	cfg config

	difficulty float64
	accuracy   *ring.Buffer // 1 = hit, 0 = miss, last N resolved events
	totals     *ring.Buffer // recent total energies for the build-up trend
	lastSpawn  map[bands.ID]time.Duration
	hasSpawn   map[bands.ID]bool
	lastBurst  time.Duration
	lastBuild  time.Duration
	lastCalm   time.Duration
	hasBurst   bool
	hasBuild   bool
	hasCalm    bool
}

// NewGenerator builds a generator with difficulty at the neutral 1.0.
func NewGenerator(opts ...Option) (*Generator, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	for _, r := range cfg.rules {
		if r.Threshold <= 0 {
			return nil, fmt.Errorf("events: rule %q threshold must be > 0: %v", r.Band, r.Threshold)
		}

		if r.Subdivision <= 0 {
			return nil, fmt.Errorf("events: rule %q subdivision must be > 0: %v", r.Band, r.Subdivision)
		}
	}

	return &Generator{
		cfg:        cfg,
		difficulty: 1.0,
		accuracy:   ring.New(accuracyWindow),
		totals:     ring.New(trendWindow),
		lastSpawn:  make(map[bands.ID]time.Duration, len(cfg.rules)),
		hasSpawn:   make(map[bands.ID]bool, len(cfg.rules)),
	}, nil
}

// Difficulty returns the current adaptive multiplier in [0.5, 3.0].
func (g *Generator) Difficulty() float64 {
	return g.difficulty
}

// Resolve reports the outcome of a previously spawned event. The rolling
// accuracy over the last resolved events drives difficulty adaptation.
func (g *Generator) Resolve(hit bool) {
	v := 0.0
	if hit {
		v = 1.0
	}

	g.accuracy.Push(v)
}

// Observe evaluates one tick and returns zero or more spawn events ordered
// by spawn time.
func (g *Generator) Observe(now time.Duration, bm bands.Map, st coherence.State, obs beat.Observation) []SpawnEvent {
	g.adaptDifficulty()

	beatMs := core.SafeDivide(60000.0, st.Tempo.BPM, defaultBeatMs)

	var out []SpawnEvent

	for _, r := range g.cfg.rules {
		energy := bm.Energy(r.Band)

		// A higher multiplier means a harder game: lower threshold, more
		// simultaneous events.
		threshold := r.Threshold / g.difficulty
		if energy <= threshold {
			continue
		}

		delay := core.DurationMillis(r.Subdivision * beatMs)

		if g.hasSpawn[r.Band] && now-g.lastSpawn[r.Band] < delay {
			continue
		}

		g.lastSpawn[r.Band] = now
		g.hasSpawn[r.Band] = true

		out = append(out, SpawnEvent{
			Geometry:          r.Geometry,
			Interaction:       r.Interaction,
			Quadrant:          r.Quadrant,
			Band:              r.Band,
			Energy:            energy,
			Difficulty:        g.difficulty,
			SpawnTime:         now + delay,
			TelegraphDuration: g.telegraphDuration(),
		})
	}

	out = append(out, g.specialEvents(now, st, obs)...)

	sortBySpawnTime(out)

	return out
}

func (g *Generator) telegraphDuration() time.Duration {
	d := g.cfg.telegraph
	if d < MinTelegraph {
		d = MinTelegraph
	}

	return d
}

func (g *Generator) adaptDifficulty() {
	if g.accuracy.Len() < accuracyWindow {
		return
	}

	acc := g.accuracy.Mean()

	switch {
	case acc > raiseAccuracy:
		g.difficulty *= 1 + difficultyStep
	case acc < lowerAccuracy:
		g.difficulty *= 1 - difficultyStep
	}

	g.difficulty = core.Clamp(g.difficulty, minDifficulty, maxDifficulty)
}

func (g *Generator) specialEvents(now time.Duration, st coherence.State, obs beat.Observation) []SpawnEvent {
	total := st.Energy.Total
	g.totals.Push(total)

	var out []SpawnEvent

	if obs.BeatDetected && obs.Strength > burstStrength &&
		(!g.hasBurst || now-g.lastBurst >= g.cfg.burstHold) {
		g.lastBurst = now
		g.hasBurst = true

		out = append(out, SpawnEvent{
			Geometry:          Hypersphere,
			Interaction:       Burst,
			Quadrant:          Center,
			Energy:            total,
			Difficulty:        g.difficulty,
			SpawnTime:         now,
			TelegraphDuration: g.telegraphDuration(),
		})
	}

	if total > buildUpLevel && g.risingTrend() &&
		(!g.hasBuild || now-g.lastBuild >= g.cfg.buildHold) {
		g.lastBuild = now
		g.hasBuild = true

		out = append(out, SpawnEvent{
			Geometry:          Tesseract,
			Interaction:       BuildUp,
			Quadrant:          Center,
			Energy:            total,
			Difficulty:        g.difficulty,
			SpawnTime:         now,
			TelegraphDuration: g.telegraphDuration(),
		})
	}

	if total < calmLevel &&
		(!g.hasCalm || now-g.lastCalm >= g.cfg.calmHold) {
		g.lastCalm = now
		g.hasCalm = true

		out = append(out, SpawnEvent{
			Geometry:          Hypersphere,
			Interaction:       Calm,
			Quadrant:          Center,
			Energy:            total,
			Difficulty:        g.difficulty,
			SpawnTime:         now,
			TelegraphDuration: g.telegraphDuration(),
		})
	}

	return out
}

// risingTrend reports whether the recent total-energy history is sustained
// and increasing: the newer half of the window averages above the older half.
func (g *Generator) risingTrend() bool {
	n := g.totals.Len()
	if n < trendWindow {
		return false
	}

	half := n / 2

	var older, newer float64

	for i := range half {
		older += g.totals.At(i)
		newer += g.totals.At(n - half + i)
	}

	return newer > older
}

func sortBySpawnTime(events []SpawnEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].SpawnTime < events[j].SpawnTime
	})
}
