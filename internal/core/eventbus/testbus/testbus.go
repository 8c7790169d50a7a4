// Package testbus runs a real EventBus for tests and records everything it
// dispatches.
package testbus

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/JoCoor/flatfinder-client/internal/core/eventbus"
)

// RecordedEvent is one dispatched event.
type RecordedEvent struct {
	Event   eventbus.Event
	Payload any
}

// Bus is a started EventBus plus a log of what it dispatched. Events are
// recorded by subscribers, so a recorded event has also reached every
// subscriber registered before it.
type Bus struct {
	*eventbus.EventBus

	mu      sync.Mutex
	log     []RecordedEvent
	changed chan struct{}
}

// New starts a bus that lives until the test ends.
func New(t *testing.T) *Bus {
	t.Helper()

	tb := &Bus{
		EventBus: eventbus.New(64),
		changed:  make(chan struct{}),
	}
	watch(tb, eventbus.EventChannelStateChanged, tb.SubscribeChannelStateChanged)
	watch(tb, eventbus.EventNavigationRequested, tb.SubscribeNavigationRequested)
	watch(tb, eventbus.EventNotificationReceived, tb.SubscribeNotificationReceived)
	watch(tb, eventbus.EventSessionEnded, tb.SubscribeSessionEnded)
	watch(tb, eventbus.EventSessionStarted, tb.SubscribeSessionStarted)
	watch(tb, eventbus.EventUnreadChanged, tb.SubscribeUnreadChanged)

	ctx, cancel := context.WithCancel(context.Background())
	go tb.Start(ctx)
	t.Cleanup(cancel)

	return tb
}

func watch[T any](tb *Bus, event eventbus.Event, subscribe func(func(T))) {
	subscribe(func(p T) { tb.record(event, p) })
}

func (tb *Bus) record(event eventbus.Event, payload any) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.log = append(tb.log, RecordedEvent{Event: event, Payload: payload})
	close(tb.changed)
	tb.changed = make(chan struct{})
}

// Events returns a copy of the log.
func (tb *Bus) Events() []RecordedEvent {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return slices.Clone(tb.log)
}

// Payloads returns the payloads recorded for event, oldest first.
func Payloads[T any](tb *Bus, event eventbus.Event) []T {
	var out []T
	for _, e := range tb.Events() {
		if p, ok := e.Payload.(T); ok && e.Event == event {
			out = append(out, p)
		}
	}
	return out
}

// Reset empties the log.
func (tb *Bus) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.log = nil
}

// WaitFor reports whether event was recorded before the timeout.
func (tb *Bus) WaitFor(event eventbus.Event, timeout time.Duration) bool {
	return tb.WaitForN(event, 1, timeout)
}

// WaitForN reports whether event was recorded at least n times before the
// timeout.
func (tb *Bus) WaitForN(event eventbus.Event, n int, timeout time.Duration) bool {
	expired := time.After(timeout)
	for {
		count, changed := tb.snapshot(event)
		if count >= n {
			return true
		}
		select {
		case <-changed:
		case <-expired:
			return false
		}
	}
}

func (tb *Bus) snapshot(event eventbus.Event) (int, <-chan struct{}) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	count := 0
	for _, e := range tb.log {
		if e.Event == event {
			count++
		}
	}
	return count, tb.changed
}

// AssertPublished fails the test unless event is recorded within 500ms.
func (tb *Bus) AssertPublished(t *testing.T, event eventbus.Event) {
	t.Helper()
	if !tb.WaitFor(event, 500*time.Millisecond) {
		t.Errorf("event %q was never published", event)
	}
}

// AssertNotPublished fails the test if event is recorded during wait.
func (tb *Bus) AssertNotPublished(t *testing.T, event eventbus.Event, wait time.Duration) {
	t.Helper()
	if tb.WaitFor(event, wait) {
		t.Errorf("event %q was published but should not have been", event)
	}
}
