package task

import (
	"context"
	"errors"
	"sync"

	"github.com/benjamin1108/reinvent-insight/internal/events"
)

// Common errors returned by the Channel
var (
	ErrChannelClosed = errors.New("event channel is closed")
)

// Channel is the per-task ordered buffer of events. The full history is
// retained for replay: every subscriber, whenever it attaches, first sees
// the history from the beginning and then live events, all in production
// order. The producer appends without blocking; a slow consumer stalls only
// its own delivery goroutine once its buffered lead (capacity) is used up.
//
// The channel is closed exactly once, by the producing engine, after the
// terminal event has been appended. The terminal event is part of the
// history and can never be lost.
type Channel struct {
	mu       sync.Mutex
	cond     *sync.Cond
	history  []events.Event
	closed   bool
	capacity int
}

// NewChannel creates a Channel whose subscribers buffer up to capacity
// undelivered events each.
func NewChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = 100
	}

	c := &Channel{capacity: capacity}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Publish appends an event to the history and wakes all subscribers.
// Returns ErrChannelClosed after Close.
func (c *Channel) Publish(e events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrChannelClosed
	}

	c.history = append(c.history, e)
	c.cond.Broadcast()
	return nil
}

// Close marks the channel closed. Subscribers drain the remaining history
// and then their streams end. Safe to call more than once.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.cond.Broadcast()
}

// Closed reports whether Close has been called.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Len returns the number of buffered events.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history)
}

// Subscribe returns a stream that replays the full history and then yields
// live events until the channel is closed and drained, or ctx is done.
// Multiple sequential (or concurrent) subscribers each get the complete,
// identically ordered stream.
func (c *Channel) Subscribe(ctx context.Context) <-chan events.Event {
	out := make(chan events.Event, c.capacity)

	// Wake the reader loop when the consumer goes away, since cond.Wait
	// cannot observe ctx on its own.
	stop := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()
	})

	go func() {
		defer close(out)
		defer stop()

		next := 0
		for {
			c.mu.Lock()
			for next >= len(c.history) && !c.closed && ctx.Err() == nil {
				c.cond.Wait()
			}

			if ctx.Err() != nil {
				c.mu.Unlock()
				return
			}

			if next >= len(c.history) && c.closed {
				c.mu.Unlock()
				return
			}

			e := c.history[next]
			next++
			c.mu.Unlock()

			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
