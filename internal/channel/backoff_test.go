package channel

import (
	"testing"
	"time"
)

func TestBackoffMonotonicUntilCap(t *testing.T) {
	b := newBackoff(time.Second, 30*time.Second)
	prev := time.Duration(0)
	for i := 0; i < 10; i++ {
		delay := b.Next()
		if delay < prev {
			t.Fatalf("attempt %d: delay %v < previous %v", i, delay, prev)
		}
		if delay > 30*time.Second {
			t.Fatalf("attempt %d: delay %v exceeds cap", i, delay)
		}
		prev = delay
	}
	if prev != 30*time.Second {
		t.Fatalf("expected cap after 10 attempts, got %v", prev)
	}
	if b.Attempt() != 10 {
		t.Fatalf("expected 10 attempts, got %d", b.Attempt())
	}
}

func TestBackoffReset(t *testing.T) {
	b := newBackoff(time.Second, 30*time.Second)
	b.Next()
	b.Next()
	b.Reset()
	if b.Attempt() != 0 {
		t.Fatalf("expected attempt 0 after reset, got %d", b.Attempt())
	}
	if delay := b.Next(); delay != time.Second {
		t.Fatalf("expected base delay after reset, got %v", delay)
	}
}

func TestBackoffDefaults(t *testing.T) {
	b := newBackoff(0, 0)
	if delay := b.Next(); delay != DefaultBaseDelay {
		t.Fatalf("expected default base delay, got %v", delay)
	}
}
