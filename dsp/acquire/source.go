package acquire

import "time"

// Source exposes frequency-domain and time-domain buffers on demand.
//
// Implementations must return identically shaped data for live and synthetic
// input: FrequencyData yields the one-sided dB magnitude spectrum and TimeData
// the time-domain window that produced it. Returned slices are owned by the
// source and are only valid until the next capture.
type Source interface {
	FrequencyData() []float64
	TimeData() []float64
	SampleRate() float64
	Mode() InputMode

	Start() error
	Stop() error
}

// Clocked is implemented by sources whose signal is a pure function of time.
// Seeking such a source before reading makes captures reproducible.
type Clocked interface {
	Seek(t time.Duration)
}

// Capture snapshots a source into an immutable frame stamped with now.
// Clocked sources are seeked first so that identical timestamps yield
// identical frames.
func Capture(src Source, now time.Duration) (Frame, error) {
	if c, ok := src.(Clocked); ok {
		c.Seek(now)
	}

	return NewFrame(now, src.FrequencyData(), src.TimeData(), src.SampleRate())
}
