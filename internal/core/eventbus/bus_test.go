package eventbus_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/JoCoor/flatfinder-client/internal/core/eventbus"
	"github.com/JoCoor/flatfinder-client/internal/core/eventbus/testbus"
	"github.com/JoCoor/flatfinder-client/internal/core/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversInPublishOrder(t *testing.T) {
	tb := testbus.New(t)

	for i := 1; i <= 5; i++ {
		tb.PublishUnreadChanged(eventbus.UnreadChangedPayload{Count: i})
	}

	require.True(t, tb.WaitForN(eventbus.EventUnreadChanged, 5, time.Second))

	got := testbus.Payloads[eventbus.UnreadChangedPayload](tb, eventbus.EventUnreadChanged)
	counts := make([]int, 0, len(got))
	for _, p := range got {
		counts = append(counts, p.Count)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, counts)
}

func TestBus_SubscriberPanicDoesNotStopDispatch(t *testing.T) {
	bus := eventbus.New(8)

	var (
		mu       sync.Mutex
		panicked []eventbus.Event
		started  []string
	)
	bus.OnPanic(func(e eventbus.Event, _ any, _ any) {
		mu.Lock()
		panicked = append(panicked, e)
		mu.Unlock()
	})
	bus.SubscribeSessionStarted(func(eventbus.SessionStartedPayload) {
		panic("boom")
	})
	bus.SubscribeSessionStarted(func(p eventbus.SessionStartedPayload) {
		mu.Lock()
		started = append(started, p.Identity.ID)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bus.Start(ctx)

	bus.PublishSessionStarted(eventbus.SessionStartedPayload{Identity: session.Identity{ID: "u1", Email: "a@b.c"}})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(started) == 1 && len(panicked) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestBus_OnSubscribeHook(t *testing.T) {
	bus := eventbus.New(1)

	var seen []eventbus.Event
	bus.OnSubscribe(func(e eventbus.Event) { seen = append(seen, e) })

	bus.SubscribeNavigationRequested(func(eventbus.NavigationRequestedPayload) {})
	bus.SubscribeSessionEnded(func(eventbus.SessionEndedPayload) {})

	assert.Equal(t, []eventbus.Event{eventbus.EventNavigationRequested, eventbus.EventSessionEnded}, seen)
}

func TestTestbus_AssertNotPublished(t *testing.T) {
	tb := testbus.New(t)
	tb.PublishUnreadChanged(eventbus.UnreadChangedPayload{Count: 1})

	tb.AssertPublished(t, eventbus.EventUnreadChanged)
	tb.AssertNotPublished(t, eventbus.EventSessionEnded, 20*time.Millisecond)

	tb.Reset()
	assert.Empty(t, tb.Events())
}
