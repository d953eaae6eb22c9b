package client

import (
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
)

// Lifecycle event names. Wire-level events (user_joined, lock_acquired,
// cursor, update, ...) are published under their message type.
const (
	EventConnected       = "connected"
	EventDisconnected    = "disconnected"
	EventReconnecting    = "reconnecting"
	EventReconnectFailed = "reconnect_failed"
	EventPingTimeout     = "ping_timeout"
	EventConflict        = "conflict"
)

// ReconnectingEvent is the payload of EventReconnecting.
type ReconnectingEvent struct {
	Attempt int
}

// ReconnectFailedEvent is the payload of EventReconnectFailed, fired exactly
// once when the attempt ceiling is reached.
type ReconnectFailedEvent struct {
	Attempts int
}

type busEntry struct {
	id int
	fn func(any)
}

// eventBus is a typed multi-map of event name to ordered handlers. Dispatch
// runs in insertion order; handlers must not rely on that for correctness.
type eventBus struct {
	mu       sync.Mutex
	nextID   int
	handlers map[string][]busEntry
	log      *logrus.Logger
}

// On registers a handler for the named event and returns an unsubscribe
// closure that removes exactly its own registration. Unsubscribing is safe
// to call more than once and never affects other subscribers.
func (c *Client) On(event string, fn func(any)) func() {
	return c.bus.on(event, fn)
}

func (b *eventBus) on(event string, fn func(any)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers == nil {
		b.handlers = make(map[string][]busEntry)
	}
	b.nextID++
	id := b.nextID
	b.handlers[event] = append(b.handlers[event], busEntry{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { b.off(event, id) })
	}
}

func (b *eventBus) off(event string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.handlers[event]
	for i, e := range entries {
		if e.id == id {
			b.handlers[event] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// emit dispatches to a snapshot of the current subscribers. Handlers run
// outside the bus lock so they may subscribe, unsubscribe, or call back
// into the client.
func (b *eventBus) emit(event string, payload any) {
	b.mu.Lock()
	entries := slices.Clone(b.handlers[event])
	b.mu.Unlock()

	for _, e := range entries {
		b.call(event, e.fn, payload)
	}
}

func (b *eventBus) call(event string, fn func(any), payload any) {
	defer func() {
		if r := recover(); r != nil && b.log != nil {
			b.log.Warnf("Subscriber for %s panicked: %v", event, r)
		}
	}()
	fn(payload)
}
