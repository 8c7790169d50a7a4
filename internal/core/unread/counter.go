// Package unread tracks the number of message notifications received since
// the user last marked their conversations read.
package unread

import (
	"context"
	"sync"
)

// Counter is a non-negative unread-message count. It is safe for
// concurrent use.
type Counter struct {
	mu        sync.Mutex
	count     int
	listeners []func(int)
}

// New returns a counter at zero.
func New() *Counter {
	return &Counter{}
}

// OnChange registers fn to be called with the new count after every change.
// fn runs outside the counter's lock.
func (c *Counter) OnChange(fn func(count int)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Count returns the current value.
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Increment adds one and returns the new count.
func (c *Counter) Increment() int {
	c.mu.Lock()
	c.count++
	n := c.count
	listeners := c.snapshot()
	c.mu.Unlock()

	notify(listeners, n)
	return n
}

// Reset sets the count to zero. Listeners are only notified when the count
// actually changed.
func (c *Counter) Reset() {
	c.mu.Lock()
	changed := c.count != 0
	c.count = 0
	listeners := c.snapshot()
	c.mu.Unlock()

	if changed {
		notify(listeners, 0)
	}
}

// Consume increments once per value received from events until the stream
// is closed or ctx is done. onEvent, when non-nil, sees each value after
// the increment.
func Consume[T any](ctx context.Context, c *Counter, events <-chan T, onEvent func(T)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.Increment()
			if onEvent != nil {
				onEvent(ev)
			}
		}
	}
}

func (c *Counter) snapshot() []func(int) {
	out := make([]func(int), len(c.listeners))
	copy(out, c.listeners)
	return out
}

func notify(listeners []func(int), n int) {
	for _, fn := range listeners {
		fn(n)
	}
}
