// Package event provides the event values routed through the device graph
// and the emitter every graph entity embeds.
package event

import (
	"sync"
)

// Event is a single state-change notification flowing through the graph.
// Data holds the raw wire fields; handlers annotate it with derived objects
// before subscribers run.
type Event struct {
	Type string
	Data map[string]any
}

// Callback receives events from an Emitter.
type Callback func(Event)

type listener struct {
	id   uint64
	cb   Callback
	once bool
}

// Emitter dispatches events to registered callbacks. Callbacks run in
// registration order, on the goroutine that calls Emit. Safe for concurrent
// use.
type Emitter struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[string][]listener
}

// On registers a callback for the given event type and returns an
// unsubscribe function. Calling the unsubscribe function more than once is
// harmless.
func (e *Emitter) On(eventType string, cb Callback) func() {
	return e.subscribe(eventType, cb, false)
}

// Once registers a callback that is removed after its first invocation.
func (e *Emitter) Once(eventType string, cb Callback) func() {
	return e.subscribe(eventType, cb, true)
}

func (e *Emitter) subscribe(eventType string, cb Callback, once bool) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.listeners == nil {
		e.listeners = make(map[string][]listener)
	}
	e.nextID++
	id := e.nextID
	e.listeners[eventType] = append(e.listeners[eventType], listener{id: id, cb: cb, once: once})

	return func() { e.unsubscribe(eventType, id) }
}

func (e *Emitter) unsubscribe(eventType string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	subs := e.listeners[eventType]
	for i, l := range subs {
		if l.id == id {
			e.listeners[eventType] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(e.listeners[eventType]) == 0 {
		delete(e.listeners, eventType)
	}
}

// Emit invokes the callbacks registered for the event's type.
func (e *Emitter) Emit(ev Event) {
	e.mu.Lock()
	subs := e.listeners[ev.Type]
	cbs := make([]Callback, 0, len(subs))
	for _, l := range subs {
		cbs = append(cbs, l.cb)
	}
	// Drop one-shot listeners before releasing the lock so a reentrant Emit
	// cannot run them twice.
	if len(subs) > 0 {
		kept := subs[:0]
		for _, l := range subs {
			if !l.once {
				kept = append(kept, l)
			}
		}
		if len(kept) == 0 {
			delete(e.listeners, ev.Type)
		} else {
			e.listeners[ev.Type] = kept
		}
	}
	e.mu.Unlock()

	for _, cb := range cbs {
		cb(ev)
	}
}

// ListenerCount reports the number of callbacks registered for an event type.
func (e *Emitter) ListenerCount(eventType string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[eventType])
}
