// Package ring implements fixed-capacity ring buffers used by the rolling
// energy and beat histories. Once full, a push overwrites the oldest entry.
package ring

// Buffer is a fixed-capacity float64 ring buffer.
type Buffer struct {
	data     []float64
	writePos int
	filled   int
}

// New returns a ring buffer holding at most capacity values.
// A non-positive capacity is treated as 1.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 1
	}

	return &Buffer{data: make([]float64, capacity)}
}

// Push appends a value, evicting the oldest entry when full.
func (b *Buffer) Push(v float64) {
	b.data[b.writePos] = v
	b.writePos++

	if b.writePos >= len(b.data) {
		b.writePos = 0
	}

	if b.filled < len(b.data) {
		b.filled++
	}
}

// Len returns the number of stored values.
func (b *Buffer) Len() int {
	return b.filled
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Reset discards all stored values.
func (b *Buffer) Reset() {
	b.writePos = 0
	b.filled = 0
}

// At returns the i-th stored value in insertion order (0 = oldest).
// Out-of-range indices return 0.
func (b *Buffer) At(i int) float64 {
	if i < 0 || i >= b.filled {
		return 0
	}

	start := b.writePos - b.filled
	if start < 0 {
		start += len(b.data)
	}

	return b.data[(start+i)%len(b.data)]
}

// Last returns the most recently pushed value, or 0 when empty.
func (b *Buffer) Last() float64 {
	if b.filled == 0 {
		return 0
	}

	return b.At(b.filled - 1)
}

// Values copies the stored values in insertion order into a new slice.
func (b *Buffer) Values() []float64 {
	out := make([]float64, b.filled)
	for i := range out {
		out[i] = b.At(i)
	}

	return out
}

// Mean returns the arithmetic mean of all stored values, or 0 when empty.
func (b *Buffer) Mean() float64 {
	return b.MeanLast(b.filled)
}

// MeanLast returns the mean of the most recent n values.
// n is clamped to the stored count; an empty buffer yields 0.
func (b *Buffer) MeanLast(n int) float64 {
	if n > b.filled {
		n = b.filled
	}

	if n <= 0 {
		return 0
	}

	sum := 0.0
	for i := b.filled - n; i < b.filled; i++ {
		sum += b.At(i)
	}

	return sum / float64(n)
}

// Variance returns the population variance of all stored values.
func (b *Buffer) Variance() float64 {
	if b.filled == 0 {
		return 0
	}

	mean := b.Mean()

	sum := 0.0
	for i := range b.filled {
		d := b.At(i) - mean
		sum += d * d
	}

	return sum / float64(b.filled)
}

// Deltas returns consecutive differences between stored values in insertion
// order. A buffer with fewer than two values yields an empty slice.
func (b *Buffer) Deltas() []float64 {
	if b.filled < 2 {
		return nil
	}

	out := make([]float64, b.filled-1)
	for i := range out {
		out[i] = b.At(i+1) - b.At(i)
	}

	return out
}
