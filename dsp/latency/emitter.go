package latency

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/ebitengine/oto/v3"
)

// ToneEmitter plays the calibration test tone through an output device.
// Implementations are fire-and-forget: Play returns once playback has been
// handed to the device, not when the tone finishes.
type ToneEmitter interface {
	Play(freqHz float64, d time.Duration) error
	Close() error
}

// NopEmitter is the headless emitter used when no output device exists.
// Calibration with it always times out and falls back to defaults.
type NopEmitter struct{}

// Play does nothing.
func (NopEmitter) Play(float64, time.Duration) error { return nil }

// Close does nothing.
func (NopEmitter) Close() error { return nil }

// OtoEmitter plays tones through the default output device via oto.
type OtoEmitter struct {
	ctx        *oto.Context
	sampleRate int
	players    []*oto.Player
}

// NewOtoEmitter opens the default audio output context.
func NewOtoEmitter(sampleRate int) (*OtoEmitter, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("latency: emitter sample rate must be > 0: %d", sampleRate)
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("latency: audio context: %w", err)
	}

	<-ready

	return &OtoEmitter{ctx: ctx, sampleRate: sampleRate}, nil
}

// Play starts tone playback and returns immediately.
func (e *OtoEmitter) Play(freqHz float64, d time.Duration) error {
	if freqHz <= 0 || d <= 0 {
		return fmt.Errorf("latency: invalid tone %v Hz / %v", freqHz, d)
	}

	p := e.ctx.NewPlayer(newToneReader(freqHz, float64(e.sampleRate), d))
	p.Play()
	e.players = append(e.players, p)

	return nil
}

// Close releases all players.
func (e *OtoEmitter) Close() error {
	var first error

	for _, p := range e.players {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}

	e.players = nil

	return first
}

// toneReader streams a float32-LE sine tone of fixed duration.
type toneReader struct {
	freq       float64
	sampleRate float64
	remaining  int
	pos        int
}

func newToneReader(freqHz, sampleRate float64, d time.Duration) *toneReader {
	return &toneReader{
		freq:       freqHz,
		sampleRate: sampleRate,
		remaining:  int(d.Seconds() * sampleRate),
	}
}

func (r *toneReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}

	n := len(p) / 4
	if n > r.remaining {
		n = r.remaining
	}

	if n == 0 {
		return 0, nil
	}

	step := 2 * math.Pi * r.freq / r.sampleRate

	for i := range n {
		v := float32(math.Sin(step * float64(r.pos)))
		bits := math.Float32bits(v)

		p[i*4] = byte(bits)
		p[i*4+1] = byte(bits >> 8)
		p[i*4+2] = byte(bits >> 16)
		p[i*4+3] = byte(bits >> 24)

		r.pos++
	}

	r.remaining -= n

	return n * 4, nil
}
