// Package params maps the coherence state onto the visualizer's named
// parameter surface. The adapter is the sole writer to the sink; consumers
// hold the sink injected at construction, never a shared global.
package params

import (
	"math"

	"github.com/cwbudde/algo-reactive/dsp/coherence"
	"github.com/cwbudde/algo-reactive/dsp/core"
	"github.com/cwbudde/algo-reactive/dsp/events"
)

// Sink receives one update per changed parameter. Implementations must not
// block; the adapter calls them from the tick loop.
type Sink interface {
	Update(name string, value float64)
}

// NopSink discards all updates.
type NopSink struct{}

// Update does nothing.
func (NopSink) Update(string, float64) {}

// Parameter names of the external contract.
const (
	ParamRotXW       = "rot4dXW"
	ParamRotYW       = "rot4dYW"
	ParamRotZW       = "rot4dZW"
	ParamGridDensity = "gridDensity"
	ParamMorphFactor = "morphFactor"
	ParamChaos       = "chaos"
	ParamHue         = "hue"
	ParamIntensity   = "intensity"
	ParamSaturation  = "saturation"
	ParamSpeed       = "speed"
	ParamGeometry    = "geometry"
)

// Output ranges of the external contract.
const (
	rotationBound  = 2 * math.Pi
	gridDensityMin = 5.0
	gridDensityMax = 100.0
	speedMax       = 3.0
	geometryMax    = 8
)

const (
	defaultEpsilon = 1e-3

	// Hue sweeps the audible brightness range: a 200 Hz centroid maps to 0,
	// 8 kHz to 1, log-scaled in between.
	hueMinHz = 200.0
	hueMaxHz = 8000.0

	// Total energy that counts as full intensity.
	intensityFullScale = 3.0

	referenceBPM = 120.0
)

type config struct {
	epsilon float64
}

func defaultConfig() config {
	return config{epsilon: defaultEpsilon}
}

// Option configures an Adapter.
type Option func(*config)

// WithEpsilon sets the minimum change that triggers a parameter update.
func WithEpsilon(eps float64) Option {
	return func(cfg *config) {
		if eps > 0 {
			cfg.epsilon = eps
		}
	}
}

// Adapter scales the coherence state into the sink's documented parameter
// ranges and forwards only values that actually changed.
type Adapter struct {
	cfg  config
	sink Sink
	prev map[string]float64
}

// NewAdapter wraps the given sink. A nil sink gets the no-op default.
func NewAdapter(sink Sink, opts ...Option) *Adapter {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if sink == nil {
		sink = NopSink{}
	}

	return &Adapter{
		cfg:  cfg,
		sink: sink,
		prev: make(map[string]float64, 16),
	}
}

// Apply maps one tick's state and freshly due events onto the parameter
// surface. Non-finite inputs never reach the sink; each value is clamped to
// its documented range first.
func (a *Adapter) Apply(st coherence.State, due []events.SpawnEvent) {
	a.send(ParamRotXW, core.Clamp(st.Rotation4D.XW, -rotationBound, rotationBound))
	a.send(ParamRotYW, core.Clamp(st.Rotation4D.YW, -rotationBound, rotationBound))
	a.send(ParamRotZW, core.Clamp(st.Rotation4D.ZW, -rotationBound, rotationBound))

	bass := core.Clamp(st.Energy.Bass, 0, 1)
	a.send(ParamGridDensity, gridDensityMin+bass*(gridDensityMax-gridDensityMin))

	a.send(ParamMorphFactor, core.Clamp(st.Energy.Mid, 0, 1))
	a.send(ParamChaos, core.Clamp(st.Phase.Chaos, 0, 1))
	a.send(ParamHue, hueFromCentroid(st.Frequency.SpectralCentroid))
	a.send(ParamIntensity, core.Clamp(st.Energy.Total/intensityFullScale, 0, 1))
	a.send(ParamSaturation, core.Clamp(1-st.Frequency.Flatness, 0, 1))
	a.send(ParamSpeed, core.Clamp(st.Tempo.BPM/referenceBPM, 0, speedMax))

	for _, ev := range due {
		g := int(ev.Geometry)
		if g < 0 {
			g = 0
		}

		if g > geometryMax {
			g = geometryMax
		}

		a.send(ParamGeometry, float64(g))
	}
}

// Reset forgets the previously forwarded values, forcing the next Apply to
// re-send every parameter.
func (a *Adapter) Reset() {
	a.prev = make(map[string]float64, len(a.prev))
}

func (a *Adapter) send(name string, value float64) {
	if !core.Finite(value) {
		return
	}

	if prev, ok := a.prev[name]; ok && math.Abs(value-prev) <= a.cfg.epsilon {
		return
	}

	a.prev[name] = value
	a.sink.Update(name, value)
}

func hueFromCentroid(centroidHz float64) float64 {
	if centroidHz <= hueMinHz {
		return 0
	}

	h := math.Log2(centroidHz/hueMinHz) / math.Log2(hueMaxHz/hueMinHz)

	return core.Clamp(h, 0, 1)
}
