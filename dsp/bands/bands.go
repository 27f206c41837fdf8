// Package bands slices a dB magnitude spectrum into named frequency bands and
// computes per-band energy, peak and dominance.
package bands

import (
	"fmt"

	"github.com/cwbudde/algo-reactive/dsp/acquire"
	"github.com/cwbudde/algo-reactive/dsp/core"
)

// ID names a frequency band.
type ID string

// The standard semantic bands. SubBass and Brilliance exist for internal
// analysis; the five mid IDs drive event generation.
const (
	SubBass    ID = "subBass"
	Bass       ID = "bass"
	LowMid     ID = "lowMid"
	Mid        ID = "mid"
	HighMid    ID = "highMid"
	Treble     ID = "treble"
	Brilliance ID = "brilliance"
)

// Band is a named contiguous frequency range.
type Band struct {
	ID    ID
	MinHz float64
	MaxHz float64
}

// Measurement holds the per-frame analysis result for one band.
type Measurement struct {
	// Energy is the mean linear-scale magnitude across the band's bins.
	Energy float64
	// Peak is the maximum raw dB value in the band's bin range.
	Peak float64
	// Dominance is this band's share of total energy, in [0, 1].
	Dominance float64
}

// Map holds one measurement per configured band.
type Map map[ID]Measurement

// TotalEnergy returns the summed energy across all measured bands.
func (m Map) TotalEnergy() float64 {
	total := 0.0
	for _, b := range m {
		total += b.Energy
	}

	return total
}

// Energy returns the energy of the given band, or 0 when absent.
func (m Map) Energy(id ID) float64 {
	return m[id].Energy
}

// DefaultTable returns the standard five-band mapping used by the event
// generator and the coherence engine.
func DefaultTable() []Band {
	return []Band{
		{ID: Bass, MinHz: 0, MaxHz: 250},
		{ID: LowMid, MinHz: 250, MaxHz: 500},
		{ID: Mid, MinHz: 500, MaxHz: 2000},
		{ID: HighMid, MinHz: 2000, MaxHz: 4000},
		{ID: Treble, MinHz: 4000, MaxHz: 8000},
	}
}

// ExtendedTable returns the default table plus the finer sub-bands used for
// internal analysis.
func ExtendedTable() []Band {
	return append([]Band{
		{ID: SubBass, MinHz: 0, MaxHz: 60},
	}, append(DefaultTable(),
		Band{ID: Brilliance, MinHz: 8000, MaxHz: 16000},
	)...)
}

type analyzerConfig struct {
	table []Band
}

// Option configures an Analyzer.
type Option func(*analyzerConfig)

// WithTable replaces the default band table.
func WithTable(table []Band) Option {
	return func(cfg *analyzerConfig) {
		if len(table) > 0 {
			cfg.table = table
		}
	}
}

// Analyzer computes band measurements from audio frames. Analyze is a pure
// function of the frame and the fixed band table.
type Analyzer struct {
	table []Band
}

// NewAnalyzer builds an analyzer over the default (or optionally custom)
// band table.
func NewAnalyzer(opts ...Option) (*Analyzer, error) {
	cfg := analyzerConfig{table: DefaultTable()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	for _, b := range cfg.table {
		if b.MinHz < 0 || b.MaxHz <= b.MinHz {
			return nil, fmt.Errorf("bands: invalid range %q: %.1f-%.1f Hz", b.ID, b.MinHz, b.MaxHz)
		}
	}

	table := make([]Band, len(cfg.table))
	copy(table, cfg.table)

	return &Analyzer{table: table}, nil
}

// Table returns the configured bands in analysis order.
func (a *Analyzer) Table() []Band {
	return a.table
}

// Analyze computes one measurement per band from the frame's dB spectrum.
// The result never contains NaN or Inf, even for all-silent frames.
func (a *Analyzer) Analyze(frame acquire.Frame) Map {
	mags := frame.Magnitudes()
	binSize := frame.BinSize()

	out := make(Map, len(a.table))
	if len(mags) == 0 || binSize <= 0 {
		for _, b := range a.table {
			out[b.ID] = Measurement{Peak: floorDB}
		}

		return out
	}

	total := 0.0

	for _, b := range a.table {
		lo := int(b.MinHz / binSize)
		hi := int(b.MaxHz / binSize)

		if lo >= len(mags) {
			out[b.ID] = Measurement{Peak: mags[len(mags)-1]}
			continue
		}

		if hi > len(mags) {
			hi = len(mags)
		}

		if hi <= lo {
			hi = lo + 1
		}

		sum := 0.0
		peak := mags[lo]

		for i := lo; i < hi; i++ {
			sum += core.DBToLinear(mags[i])

			if mags[i] > peak {
				peak = mags[i]
			}
		}

		energy := sum / float64(hi-lo)
		if !core.Finite(energy) {
			energy = 0
		}

		total += energy
		out[b.ID] = Measurement{Energy: energy, Peak: peak}
	}

	for id, m := range out {
		m.Dominance = core.Clamp(core.SafeDivide(m.Energy, total, 0), 0, 1)
		out[id] = m
	}

	return out
}

// floorDB keeps the peak value of an out-of-spectrum band at the same
// floor the spectrum package uses for silence.
const floorDB = -130.0
