package eventbus_test

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JoCoor/flatfinder-client/internal/core/eventbus"
	"github.com/JoCoor/flatfinder-client/internal/core/eventbus/testbus"
	"github.com/JoCoor/flatfinder-client/internal/core/realtime"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func newSyncBuffer() *syncBuffer {
	return &syncBuffer{}
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRegisterDebugLogger(t *testing.T) {
	tb := testbus.New(t)
	out := newSyncBuffer()

	eventbus.RegisterDebugLogger(tb.EventBus, zerolog.New(out).Level(zerolog.DebugLevel))

	tb.PublishUnreadChanged(eventbus.UnreadChangedPayload{Count: 3})
	tb.PublishChannelStateChanged(eventbus.ChannelStateChangedPayload{
		IdentityID: "u1",
		State:      realtime.StateSubscribed,
	})

	tb.AssertPublished(t, eventbus.EventChannelStateChanged)

	logs := out.String()
	assert.Contains(t, logs, `"event":"unread.changed"`)
	assert.Contains(t, logs, `"count":3`)
	assert.Contains(t, logs, `"state":"subscribed"`)
}

func TestRegisterDebugLogger_Drop(t *testing.T) {
	bus := eventbus.New(1)
	out := newSyncBuffer()
	eventbus.RegisterDebugLogger(bus, zerolog.New(out))

	// Not started: the second publish overflows the buffer.
	bus.PublishUnreadChanged(eventbus.UnreadChangedPayload{Count: 1})
	bus.PublishUnreadChanged(eventbus.UnreadChangedPayload{Count: 2})

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "event dropped")
	}, time.Second, 5*time.Millisecond)
}
