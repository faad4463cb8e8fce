package client

import "sync"

// pendingQueue buffers outbound frames while the transport is down.
// Bounded FIFO: once full, the oldest entry is evicted to admit the new
// one, since the freshest state is the one worth delivering.
type pendingQueue struct {
	mu    sync.Mutex
	max   int
	items [][]byte
}

func newPendingQueue(max int) *pendingQueue {
	return &pendingQueue{max: max}
}

func (q *pendingQueue) Push(data []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.max {
		drop := len(q.items) - q.max + 1
		q.items = q.items[drop:]
	}
	q.items = append(q.items, data)
}

// Drain removes and returns everything in FIFO order.
func (q *pendingQueue) Drain() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

func (q *pendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
