// Package spectrum converts complex FFT output into the magnitude and power
// representations the analysis stages consume.
package spectrum

import (
	"math"
	"sync"

	"github.com/cwbudde/algo-vecmath"
)

// floorDB is the magnitude floor used when converting to decibels.
const floorDB = -130.0

// scratchBuf holds pooled scratch memory for complex-to-real unpacking.
type scratchBuf struct {
	data []float64
}

var scratchPool = sync.Pool{
	New: func() any { return &scratchBuf{} },
}

func getScratch(n int) (re, im []float64, buf *scratchBuf) {
	buf = scratchPool.Get().(*scratchBuf)
	need := 2 * n
	if cap(buf.data) < need {
		buf.data = make([]float64, need)
	} else {
		buf.data = buf.data[:need]
	}

	return buf.data[:n], buf.data[n:need], buf
}

func putScratch(buf *scratchBuf) {
	scratchPool.Put(buf)
}

// Magnitude returns |X[k]| for each complex spectrum bin.
//
// SIMD-optimized implementations are used when available. Scratch buffers are
// pooled internally, so in steady state this allocates only the output slice.
func Magnitude(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}

	out := make([]float64, len(in))
	MagnitudeInto(out, in)

	return out
}

// MagnitudeInto computes |X[k]| into dst, which must have the same length
// as in. This is the zero-allocation path for per-tick analysis.
func MagnitudeInto(dst []float64, in []complex128) {
	if len(dst) != len(in) || len(in) == 0 {
		return
	}

	re, im, buf := getScratch(len(in))
	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}

	vecmath.Magnitude(dst, re, im)
	putScratch(buf)
}

// Power returns |X[k]|^2 for each complex spectrum bin.
func Power(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}

	out := make([]float64, len(in))
	re, im, buf := getScratch(len(in))

	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}

	vecmath.Power(out, re, im)
	putScratch(buf)

	return out
}

// ToDB converts linear magnitudes to decibels in place, normalized by gain
// (the coherent gain of the analysis window). Values at or below zero are
// floored at -130 dB.
func ToDB(mag []float64, gain float64) {
	if gain <= 0 {
		gain = 1
	}

	for i, v := range mag {
		v /= gain
		if v <= 0 {
			mag[i] = floorDB
			continue
		}

		db := 20 * math.Log10(v)
		if db < floorDB {
			db = floorDB
		}

		mag[i] = db
	}
}
