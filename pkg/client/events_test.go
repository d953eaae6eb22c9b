package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusDispatchOrder(t *testing.T) {
	c := New(Config{URL: "ws://unused"})

	var order []string
	c.On("evt", func(any) { order = append(order, "first") })
	c.On("evt", func(any) { order = append(order, "second") })
	c.On("evt", func(any) { order = append(order, "third") })

	c.bus.emit("evt", nil)
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestEventBusUnsubscribe(t *testing.T) {
	c := New(Config{URL: "ws://unused"})

	var calls []string
	off1 := c.On("evt", func(any) { calls = append(calls, "one") })
	c.On("evt", func(any) { calls = append(calls, "two") })

	off1()
	c.bus.emit("evt", nil)
	assert.Equal(t, []string{"two"}, calls)

	// Unsubscribing twice is harmless and never touches other handlers.
	off1()
	c.bus.emit("evt", nil)
	assert.Equal(t, []string{"two", "two"}, calls)
}

func TestEventBusPayloadAndIsolation(t *testing.T) {
	c := New(Config{URL: "ws://unused"})

	var got any
	c.On("evt", func(any) { panic("subscriber bug") })
	c.On("evt", func(payload any) { got = payload })

	// A panicking subscriber must not stop dispatch to the rest.
	c.bus.emit("evt", 42)
	assert.Equal(t, 42, got)

	// Emitting with no subscribers is a no-op.
	c.bus.emit("nobody-listens", nil)
}

func TestEventBusSeparateEvents(t *testing.T) {
	c := New(Config{URL: "ws://unused"})

	var a, b int
	c.On("evt-a", func(any) { a++ })
	c.On("evt-b", func(any) { b++ })

	c.bus.emit("evt-a", nil)
	c.bus.emit("evt-a", nil)
	c.bus.emit("evt-b", nil)

	assert.Equal(t, 2, a)
	assert.Equal(t, 1, b)
}
