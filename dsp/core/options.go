package core

// EngineConfig defines the common analysis settings shared across the
// acquisition, band, beat and coherence stages.
type EngineConfig struct {
	SampleRate float64
	FFTSize    int
	TickRate   float64 // analysis ticks per second
}

// EngineOption mutates an EngineConfig.
type EngineOption func(*EngineConfig)

// DefaultEngineConfig returns defaults suitable for live and synthetic input.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		SampleRate: 44100,
		FFTSize:    2048,
		TickRate:   60,
	}
}

// WithSampleRate sets the audio sample rate in Hz.
func WithSampleRate(sampleRate float64) EngineOption {
	return func(cfg *EngineConfig) {
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithFFTSize sets the analysis FFT size. Must be a power of two.
func WithFFTSize(n int) EngineOption {
	return func(cfg *EngineConfig) {
		if n > 0 && n&(n-1) == 0 {
			cfg.FFTSize = n
		}
	}
}

// WithTickRate sets the analysis tick frequency in Hz.
func WithTickRate(hz float64) EngineOption {
	return func(cfg *EngineConfig) {
		if hz > 0 {
			cfg.TickRate = hz
		}
	}
}

// ApplyEngineOptions applies zero or more options to the default config.
func ApplyEngineOptions(opts ...EngineOption) EngineConfig {
	cfg := DefaultEngineConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}

// Nyquist returns half the configured sample rate.
func (c EngineConfig) Nyquist() float64 {
	return c.SampleRate / 2
}

// BinSize returns the frequency width of one spectrum bin in Hz.
// The magnitude spectrum is one-sided with FFTSize/2 bins.
func (c EngineConfig) BinSize() float64 {
	if c.FFTSize <= 0 {
		return 0
	}

	return c.Nyquist() / float64(c.FFTSize/2)
}

// TickInterval returns the nominal duration of one analysis tick in ms.
func (c EngineConfig) TickInterval() float64 {
	if c.TickRate <= 0 {
		return 0
	}

	return 1000 / c.TickRate
}
