package client

import (
	"encoding/json"
	"sync"
)

// emitter is the local handler registry. It is independent of the
// transport: handlers registered before the first connect survive every
// reconnect.
type emitter struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string]map[int]func(json.RawMessage)
}

func newEmitter() *emitter {
	return &emitter{handlers: make(map[string]map[int]func(json.RawMessage))}
}

// On registers fn for event and returns an unsubscribe func.
func (e *emitter) On(event string, fn func(json.RawMessage)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	if e.handlers[event] == nil {
		e.handlers[event] = make(map[int]func(json.RawMessage))
	}
	e.handlers[event][id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers[event], id)
		if len(e.handlers[event]) == 0 {
			delete(e.handlers, event)
		}
	}
}

// Off removes every handler for event.
func (e *emitter) Off(event string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.handlers, event)
}

func (e *emitter) dispatch(event string, payload json.RawMessage) {
	e.mu.RLock()
	fns := make([]func(json.RawMessage), 0, len(e.handlers[event]))
	for _, fn := range e.handlers[event] {
		fns = append(fns, fn)
	}
	e.mu.RUnlock()
	for _, fn := range fns {
		fn(payload)
	}
}
