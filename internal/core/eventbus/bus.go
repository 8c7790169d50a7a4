package eventbus

import (
	"context"
	"sync"
)

type envelope struct {
	event   Event
	payload any
}

// EventBus dispatches published events to subscribers on a single
// goroutine, in publish order. Publishing never blocks: when the buffer is
// full the event is dropped and OnDrop hooks fire.
type EventBus struct {
	ch    chan envelope
	hooks hooks

	mu   sync.RWMutex
	subs map[Event][]func(any)
}

// New creates a bus with the given buffer size. Call Start to begin dispatching.
func New(buffer int) *EventBus {
	if buffer < 1 {
		buffer = 1
	}
	return &EventBus{
		ch:   make(chan envelope, buffer),
		subs: make(map[Event][]func(any)),
	}
}

// Start dispatches events until ctx is cancelled.
func (bus *EventBus) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-bus.ch:
			bus.dispatch(env)
		}
	}
}

func (bus *EventBus) dispatch(env envelope) {
	bus.mu.RLock()
	subs := make([]func(any), len(bus.subs[env.event]))
	copy(subs, bus.subs[env.event])
	bus.mu.RUnlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					bus.runOnPanic(env.event, env.payload, r)
				}
			}()
			fn(env.payload)
		}()
	}
}

func (bus *EventBus) subscribe(event Event, fn func(any)) {
	bus.mu.Lock()
	bus.subs[event] = append(bus.subs[event], fn)
	bus.mu.Unlock()
	bus.runOnSubscribe(event)
}

func subscribeTyped[T any](bus *EventBus, event Event, fn func(T)) {
	bus.subscribe(event, func(p any) {
		if v, ok := p.(T); ok {
			fn(v)
		}
	})
}

// SubscribeChannelStateChanged registers a handler for EventChannelStateChanged.
func (bus *EventBus) SubscribeChannelStateChanged(fn func(ChannelStateChangedPayload)) {
	subscribeTyped(bus, EventChannelStateChanged, fn)
}

// PublishChannelStateChanged publishes EventChannelStateChanged.
func (bus *EventBus) PublishChannelStateChanged(p ChannelStateChangedPayload) {
	bus.send(EventChannelStateChanged, p)
}

// SubscribeNavigationRequested registers a handler for EventNavigationRequested.
func (bus *EventBus) SubscribeNavigationRequested(fn func(NavigationRequestedPayload)) {
	subscribeTyped(bus, EventNavigationRequested, fn)
}

// PublishNavigationRequested publishes EventNavigationRequested.
func (bus *EventBus) PublishNavigationRequested(p NavigationRequestedPayload) {
	bus.send(EventNavigationRequested, p)
}

// SubscribeNotificationReceived registers a handler for EventNotificationReceived.
func (bus *EventBus) SubscribeNotificationReceived(fn func(NotificationReceivedPayload)) {
	subscribeTyped(bus, EventNotificationReceived, fn)
}

// PublishNotificationReceived publishes EventNotificationReceived.
func (bus *EventBus) PublishNotificationReceived(p NotificationReceivedPayload) {
	bus.send(EventNotificationReceived, p)
}

// SubscribeSessionEnded registers a handler for EventSessionEnded.
func (bus *EventBus) SubscribeSessionEnded(fn func(SessionEndedPayload)) {
	subscribeTyped(bus, EventSessionEnded, fn)
}

// PublishSessionEnded publishes EventSessionEnded.
func (bus *EventBus) PublishSessionEnded(p SessionEndedPayload) {
	bus.send(EventSessionEnded, p)
}

// SubscribeSessionStarted registers a handler for EventSessionStarted.
func (bus *EventBus) SubscribeSessionStarted(fn func(SessionStartedPayload)) {
	subscribeTyped(bus, EventSessionStarted, fn)
}

// PublishSessionStarted publishes EventSessionStarted.
func (bus *EventBus) PublishSessionStarted(p SessionStartedPayload) {
	bus.send(EventSessionStarted, p)
}

// SubscribeUnreadChanged registers a handler for EventUnreadChanged.
func (bus *EventBus) SubscribeUnreadChanged(fn func(UnreadChangedPayload)) {
	subscribeTyped(bus, EventUnreadChanged, fn)
}

// PublishUnreadChanged publishes EventUnreadChanged.
func (bus *EventBus) PublishUnreadChanged(p UnreadChangedPayload) {
	bus.send(EventUnreadChanged, p)
}
