package client

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestBackoffSequence(t *testing.T) {
	base := 2000 * time.Millisecond
	max := 30000 * time.Millisecond

	expected := []time.Duration{
		2000 * time.Millisecond,
		3000 * time.Millisecond,
		4500 * time.Millisecond,
		6750 * time.Millisecond,
		10125 * time.Millisecond,
	}
	for i, want := range expected {
		assert.Equal(t, want, backoffDelay(i+1, base, max))
	}
}

func TestBackoffNeverExceedsCap(t *testing.T) {
	base := 2000 * time.Millisecond
	max := 30000 * time.Millisecond

	for attempt := 1; attempt <= 100; attempt++ {
		d := backoffDelay(attempt, base, max)
		if d > max {
			t.Fatalf("attempt %d: delay %v exceeds cap %v", attempt, d, max)
		}
		if d <= 0 {
			t.Fatalf("attempt %d: non-positive delay %v", attempt, d)
		}
	}
	assert.Equal(t, max, backoffDelay(50, base, max))
}

func TestBackoffClampsBadAttempt(t *testing.T) {
	base := 2 * time.Second
	assert.Equal(t, base, backoffDelay(0, base, 30*time.Second))
	assert.Equal(t, base, backoffDelay(-3, base, 30*time.Second))
}
