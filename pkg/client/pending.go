package client

import (
	"context"
	"fmt"

	"github.com/AGDonato/Synapse-sub011/pkg/structs"
)

type pendingResult struct {
	msg structs.Message
	err error
}

// pendingRequest correlates one in-flight request with the server response
// that resolves it. The channel is buffered so whichever writer gets there
// first wins; the loser finds the slot already gone from the map.
type pendingRequest struct {
	ch chan pendingResult
}

// await sends the frame and suspends the caller until the router resolves
// the key, the context is cancelled, or the session is closed. At most one
// request may be in flight per key; a second one is rejected locally.
func (c *Client) await(ctx context.Context, key string, msg structs.Message) (structs.Message, error) {
	c.mu.Lock()
	if c.state != StateOpen {
		c.mu.Unlock()
		return structs.Message{}, ErrNotConnected
	}
	if _, exists := c.pending[key]; exists {
		c.mu.Unlock()
		return structs.Message{}, fmt.Errorf("%w: %s", ErrRequestPending, key)
	}
	p := &pendingRequest{ch: make(chan pendingResult, 1)}
	c.pending[key] = p
	done := c.done
	c.mu.Unlock()

	if err := c.send(msg); err != nil {
		c.cancelPending(key)
		return structs.Message{}, err
	}

	select {
	case res := <-p.ch:
		return res.msg, res.err
	case <-ctx.Done():
		c.cancelPending(key)
		return structs.Message{}, ctx.Err()
	case <-done:
		return structs.Message{}, ErrClosed
	}
}

// resolvePending hands the response to the awaiting caller, if any.
func (c *Client) resolvePending(key string, msg structs.Message) bool {
	c.mu.Lock()
	p := c.pending[key]
	delete(c.pending, key)
	c.mu.Unlock()

	if p == nil {
		return false
	}
	p.ch <- pendingResult{msg: msg}
	return true
}

func (c *Client) cancelPending(key string) {
	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()
}

// rejectPendingLocked fails every outstanding request. Caller holds c.mu.
func (c *Client) rejectPendingLocked(err error) {
	for key, p := range c.pending {
		delete(c.pending, key)
		p.ch <- pendingResult{err: err}
	}
}
