package acquire

import (
	"math"
	"time"

	"github.com/cwbudde/algo-reactive/dsp/core"
)

const (
	defaultSynthTempoBPM  = 120.0
	defaultSynthBassHz    = 60.0
	defaultSynthBassAmp   = 0.8
	defaultSynthPulseK    = 8.0 // beat envelope decay rate, per beat
	defaultSynthNoiseAmp  = 0.0
	defaultSynthToneAmp   = 0.0
	defaultSynthToneHz    = 1000.0
	defaultSynthSeed      = 1
	defaultSynthFFTSize   = 2048
	defaultSynthSampleRat = 44100.0
)

type synthConfig struct {
	sampleRate float64
	fftSize    int
	tempoBPM   float64
	bassHz     float64
	bassAmp    float64
	pulseDecay float64
	toneHz     float64
	toneAmp    float64
	noiseAmp   float64
	seed       int64
}

func defaultSynthConfig() synthConfig {
	return synthConfig{
		sampleRate: defaultSynthSampleRat,
		fftSize:    defaultSynthFFTSize,
		tempoBPM:   defaultSynthTempoBPM,
		bassHz:     defaultSynthBassHz,
		bassAmp:    defaultSynthBassAmp,
		pulseDecay: defaultSynthPulseK,
		toneHz:     defaultSynthToneHz,
		toneAmp:    defaultSynthToneAmp,
		noiseAmp:   defaultSynthNoiseAmp,
		seed:       defaultSynthSeed,
	}
}

// SynthOption configures a synthetic source.
type SynthOption func(*synthConfig)

// WithSynthFormat sets sample rate and FFT size.
func WithSynthFormat(sampleRate float64, fftSize int) SynthOption {
	return func(cfg *synthConfig) {
		if sampleRate > 0 {
			cfg.sampleRate = sampleRate
		}

		if fftSize > 0 && fftSize&(fftSize-1) == 0 {
			cfg.fftSize = fftSize
		}
	}
}

// WithSynthTempo sets the tempo of the generated bass pulse in BPM.
func WithSynthTempo(bpm float64) SynthOption {
	return func(cfg *synthConfig) {
		if bpm > 0 {
			cfg.tempoBPM = bpm
		}
	}
}

// WithSynthBass sets the bass pulse carrier frequency and amplitude.
// An amplitude of 0 disables the pulse.
func WithSynthBass(freqHz, amplitude float64) SynthOption {
	return func(cfg *synthConfig) {
		if freqHz > 0 {
			cfg.bassHz = freqHz
		}

		if amplitude >= 0 {
			cfg.bassAmp = amplitude
		}
	}
}

// WithSynthTone adds a steady tone at the given frequency and amplitude.
func WithSynthTone(freqHz, amplitude float64) SynthOption {
	return func(cfg *synthConfig) {
		if freqHz > 0 {
			cfg.toneHz = freqHz
		}

		if amplitude >= 0 {
			cfg.toneAmp = amplitude
		}
	}
}

// WithSynthNoise adds a deterministic noise floor of the given amplitude.
func WithSynthNoise(amplitude float64) SynthOption {
	return func(cfg *synthConfig) {
		if amplitude >= 0 {
			cfg.noiseAmp = amplitude
		}
	}
}

// WithSynthSeed sets the seed of the noise generator.
func WithSynthSeed(seed int64) SynthOption {
	return func(cfg *synthConfig) {
		cfg.seed = seed
	}
}

// SyntheticSource generates a plausible music-like test signal: a tempo-locked
// bass pulse, an optional steady tone and an optional noise floor. The signal
// is a pure function of the seek time, so identical seeks produce identical
// frames.
//
// It serves as the fallback when no input device is available and as the
// deterministic input for every pipeline test.
type SyntheticSource struct {
	cfg      synthConfig
	analyzer *analyzer
	samples  []float64
	spec     []float64
}

// NewSynthetic builds a synthetic source. The zero-option source produces a
// 120 BPM bass pulse at 44.1 kHz with a 2048-point analysis window.
func NewSynthetic(opts ...SynthOption) (*SyntheticSource, error) {
	cfg := defaultSynthConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	an, err := newAnalyzer(cfg.fftSize)
	if err != nil {
		return nil, err
	}

	s := &SyntheticSource{
		cfg:      cfg,
		analyzer: an,
		samples:  make([]float64, cfg.fftSize),
		spec:     make([]float64, cfg.fftSize/2),
	}
	s.Seek(0)

	return s, nil
}

// NewSilentSynthetic builds a synthetic source that produces pure silence.
func NewSilentSynthetic(opts ...SynthOption) (*SyntheticSource, error) {
	all := append([]SynthOption{
		WithSynthBass(defaultSynthBassHz, 0),
		WithSynthNoise(0),
	}, opts...)

	return NewSynthetic(all...)
}

// Seek renders the analysis window ending at t.
func (s *SyntheticSource) Seek(t time.Duration) {
	startSample := int64(t.Seconds()*s.cfg.sampleRate) - int64(s.cfg.fftSize)

	beatSec := 60 / s.cfg.tempoBPM

	for i := range s.samples {
		idx := startSample + int64(i)
		ts := float64(idx) / s.cfg.sampleRate

		v := 0.0

		if s.cfg.bassAmp > 0 && ts >= 0 {
			// Bass carrier gated by an exponentially decaying beat envelope.
			beatPos := math.Mod(ts, beatSec) / beatSec
			env := math.Exp(-s.cfg.pulseDecay * beatPos)
			v += s.cfg.bassAmp * env * math.Sin(2*math.Pi*s.cfg.bassHz*ts)
		}

		if s.cfg.toneAmp > 0 && ts >= 0 {
			v += s.cfg.toneAmp * math.Sin(2*math.Pi*s.cfg.toneHz*ts)
		}

		if s.cfg.noiseAmp > 0 {
			v += s.cfg.noiseAmp * hashNoise(s.cfg.seed, idx)
		}

		s.samples[i] = core.Clamp(v, -1, 1)
	}

	spec, err := s.analyzer.process(s.samples)
	if err != nil {
		// The analyzer was built for exactly this window size; a length
		// mismatch cannot happen here.
		return
	}

	copy(s.spec, spec)
}

// FrequencyData returns the dB magnitude spectrum of the current window.
func (s *SyntheticSource) FrequencyData() []float64 {
	return s.spec
}

// TimeData returns the time-domain samples of the current window.
func (s *SyntheticSource) TimeData() []float64 {
	return s.samples
}

// SampleRate returns the configured sample rate.
func (s *SyntheticSource) SampleRate() float64 {
	return s.cfg.sampleRate
}

// Mode reports ModeSynthetic.
func (s *SyntheticSource) Mode() InputMode {
	return ModeSynthetic
}

// Start is a no-op for the synthetic source.
func (s *SyntheticSource) Start() error { return nil }

// Stop is a no-op for the synthetic source.
func (s *SyntheticSource) Stop() error { return nil }

// hashNoise returns a deterministic pseudo-random value in [-1, 1] for a
// given seed and sample index (splitmix64 finalizer).
func hashNoise(seed, idx int64) float64 {
	x := uint64(seed)*0x9E3779B97F4A7C15 + uint64(idx)*0xBF58476D1CE4E5B9
	x ^= x >> 30
	x *= 0x94D049BB133111EB
	x ^= x >> 31

	return float64(x>>11)/float64(1<<53)*2 - 1
}
