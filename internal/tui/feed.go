package tui

import (
	"sync"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/JoCoor/flatfinder-client/internal/core/eventbus"
)

// EntryKind classifies a feed entry.
type EntryKind string

const (
	KindMessage EntryKind = "message"
	KindUnread  EntryKind = "unread"
	KindLink    EntryKind = "link"
	KindEnded   EntryKind = "session-ended"
)

// Entry is one line of the live feed. Fields are set according to Kind.
type Entry struct {
	At        time.Time `json:"at"`
	Kind      EntryKind `json:"kind"`
	FlatID    string    `json:"flatId,omitempty"`
	SenderID  string    `json:"senderId,omitempty"`
	Count     int       `json:"count,omitempty"`
	Connected bool      `json:"connected,omitempty"`
}

// Feed buffers bus events for the watch view and emits coalesced drain
// signals.
type Feed struct {
	mu      sync.Mutex
	entries []Entry
	signal  chan struct{}
	now     func() time.Time
}

// NewFeed constructs an empty feed.
func NewFeed() *Feed {
	return &Feed{
		signal: make(chan struct{}, 1),
		now:    time.Now,
	}
}

// Attach subscribes the feed to the events the watch view renders.
func (f *Feed) Attach(bus *eventbus.EventBus) {
	bus.SubscribeNotificationReceived(func(p eventbus.NotificationReceivedPayload) {
		f.Push(Entry{Kind: KindMessage, FlatID: p.Event.FlatID, SenderID: p.Event.SenderID})
	})
	bus.SubscribeUnreadChanged(func(p eventbus.UnreadChangedPayload) {
		f.Push(Entry{Kind: KindUnread, Count: p.Count})
	})
	bus.SubscribeChannelStateChanged(func(p eventbus.ChannelStateChangedPayload) {
		f.Push(Entry{Kind: KindLink, Connected: p.Connected})
	})
	bus.SubscribeSessionEnded(func(eventbus.SessionEndedPayload) {
		f.Push(Entry{Kind: KindEnded})
	})
}

// Push appends an entry and emits a non-blocking drain signal.
func (f *Feed) Push(e Entry) {
	if e.At.IsZero() {
		e.At = f.now()
	}

	f.mu.Lock()
	f.entries = append(f.entries, e)
	f.mu.Unlock()

	select {
	case f.signal <- struct{}{}:
	default:
	}
}

// Drain returns all buffered entries and clears the buffer.
func (f *Feed) Drain() []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.entries) == 0 {
		return nil
	}

	out := make([]Entry, len(f.entries))
	copy(out, f.entries)
	f.entries = f.entries[:0]
	return out
}

// Signal returns the channel that receives a value whenever entries are
// pushed. Non-interactive consumers select on it directly.
func (f *Feed) Signal() <-chan struct{} {
	return f.signal
}

// WaitForSignal blocks until there are entries ready to drain.
func (f *Feed) WaitForSignal() tea.Cmd {
	return func() tea.Msg {
		<-f.signal
		return feedMsg{entries: f.Drain()}
	}
}

type feedMsg struct {
	entries []Entry
}
