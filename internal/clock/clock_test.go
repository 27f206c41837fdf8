package clock

import (
	"testing"
	"time"
)

func TestManualAdvance(t *testing.T) {
	c := NewManual(0)
	if c.Now() != 0 {
		t.Fatalf("expected start at 0, got %v", c.Now())
	}

	c.Advance(16 * time.Millisecond)
	c.Advance(16 * time.Millisecond)

	if c.Now() != 32*time.Millisecond {
		t.Fatalf("expected 32ms, got %v", c.Now())
	}
}

func TestManualIgnoresNegative(t *testing.T) {
	c := NewManual(time.Second)
	c.Advance(-time.Second)

	if c.Now() != time.Second {
		t.Fatalf("negative advance must be ignored, got %v", c.Now())
	}
}

func TestManualSet(t *testing.T) {
	c := NewManual(0)
	c.Set(5 * time.Second)

	if c.Now() != 5*time.Second {
		t.Fatalf("expected 5s, got %v", c.Now())
	}
}

func TestMonotonicNeverDecreases(t *testing.T) {
	c := NewMonotonic()
	prev := c.Now()

	for range 100 {
		now := c.Now()
		if now < prev {
			t.Fatalf("monotonic clock went backwards: %v -> %v", prev, now)
		}

		prev = now
	}
}
