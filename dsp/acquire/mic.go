package acquire

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const defaultMicFramesPerBuffer = 512

// MicSource captures a mono input device stream through portaudio and exposes
// the same frame shape as the synthetic source.
//
// The capture callback runs on the audio thread and only appends samples to a
// ring; all FFT work happens on the caller's tick.
type MicSource struct {
	sampleRate float64
	fftSize    int
	frames     int

	analyzer *analyzer

	mu     sync.Mutex
	ringBu []float64
	writeP int
	filled int

	scratch []float64
	spec    []float64

	stream  *portaudio.Stream
	started bool
}

// NewMic builds a live input source. Start opens the default input device and
// returns an error when no device is available; callers are expected to fall
// back to a synthetic source in that case.
func NewMic(sampleRate float64, fftSize int) (*MicSource, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("acquire: mic sample rate must be > 0: %v", sampleRate)
	}

	an, err := newAnalyzer(fftSize)
	if err != nil {
		return nil, err
	}

	return &MicSource{
		sampleRate: sampleRate,
		fftSize:    fftSize,
		frames:     defaultMicFramesPerBuffer,
		analyzer:   an,
		ringBu:     make([]float64, fftSize*2),
		scratch:    make([]float64, fftSize),
		spec:       make([]float64, fftSize/2),
	}, nil
}

// Start opens and starts the default input stream.
func (m *MicSource) Start() error {
	if m.started {
		return nil
	}

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("acquire: portaudio init: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, m.sampleRate, m.frames, m.capture)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("acquire: open input stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()

		return fmt.Errorf("acquire: start input stream: %w", err)
	}

	m.stream = stream
	m.started = true

	return nil
}

// Stop stops and closes the input stream.
func (m *MicSource) Stop() error {
	if !m.started {
		return nil
	}

	m.started = false

	if err := m.stream.Stop(); err != nil {
		return fmt.Errorf("acquire: stop input stream: %w", err)
	}

	if err := m.stream.Close(); err != nil {
		return fmt.Errorf("acquire: close input stream: %w", err)
	}

	m.stream = nil

	return portaudio.Terminate()
}

// capture runs on the audio thread.
func (m *MicSource) capture(in []float32) {
	m.mu.Lock()
	for _, s := range in {
		m.ringBu[m.writeP] = float64(s)
		m.writeP++

		if m.writeP >= len(m.ringBu) {
			m.writeP = 0
		}

		if m.filled < len(m.ringBu) {
			m.filled++
		}
	}
	m.mu.Unlock()
}

// FrequencyData computes and returns the dB spectrum of the most recent
// analysis window. Missing samples (before the ring fills) read as silence.
func (m *MicSource) FrequencyData() []float64 {
	m.snapshotLatest()

	spec, err := m.analyzer.process(m.scratch)
	if err != nil {
		return m.spec
	}

	copy(m.spec, spec)

	return m.spec
}

// TimeData returns the most recent analysis window of time samples.
func (m *MicSource) TimeData() []float64 {
	m.snapshotLatest()
	return m.scratch
}

func (m *MicSource) snapshotLatest() {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.fftSize
	if n > m.filled {
		n = m.filled
	}

	for i := range m.scratch {
		m.scratch[i] = 0
	}

	start := m.writeP - n
	if start < 0 {
		start += len(m.ringBu)
	}

	for i := range n {
		m.scratch[m.fftSize-n+i] = m.ringBu[(start+i)%len(m.ringBu)]
	}
}

// SampleRate returns the configured sample rate.
func (m *MicSource) SampleRate() float64 {
	return m.sampleRate
}

// Mode reports ModeLive.
func (m *MicSource) Mode() InputMode {
	return ModeLive
}
