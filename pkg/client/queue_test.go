package client

import (
	"fmt"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestPendingQueueFIFO(t *testing.T) {
	q := newPendingQueue(10)
	q.Push([]byte("a"))
	q.Push([]byte("b"))
	q.Push([]byte("c"))

	out := q.Drain()
	assert.Equal(t, 3, len(out))
	assert.Equal(t, "a", string(out[0]))
	assert.Equal(t, "b", string(out[1]))
	assert.Equal(t, "c", string(out[2]))
	assert.Equal(t, 0, q.Len())
}

func TestPendingQueueDropsOldestAtCap(t *testing.T) {
	q := newPendingQueue(5)
	for i := 0; i < 20; i++ {
		q.Push([]byte(fmt.Sprintf("ev-%d", i)))
		if q.Len() > 5 {
			t.Fatalf("queue grew past cap: %d", q.Len())
		}
	}
	assert.Equal(t, 5, q.Len())

	out := q.Drain()
	// The five newest survive, oldest first.
	assert.Equal(t, "ev-15", string(out[0]))
	assert.Equal(t, "ev-19", string(out[4]))
}
