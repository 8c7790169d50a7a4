package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoCoor/flatfinder-client/internal/core/eventbus"
	"github.com/JoCoor/flatfinder-client/internal/core/eventbus/testbus"
	"github.com/JoCoor/flatfinder-client/internal/core/realtime"
	"github.com/JoCoor/flatfinder-client/internal/core/session"
	"github.com/JoCoor/flatfinder-client/pkg/tuitest"
)

func newModel(markRead MarkReadFunc) Model {
	return New(Deps{
		Identity: session.Identity{ID: "u1", Email: "olga@example.com", FirstName: "Olga", LastName: "Owner"},
		Feed:     NewFeed(),
		MarkRead: markRead,
	})
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func TestFeed_DrainOrderAndClear(t *testing.T) {
	f := NewFeed()
	assert.Nil(t, f.Drain())

	f.Push(Entry{Kind: KindMessage, FlatID: "f1"})
	f.Push(Entry{Kind: KindUnread, Count: 1})

	items := f.Drain()
	require.Len(t, items, 2)
	assert.Equal(t, "f1", items[0].FlatID)
	assert.False(t, items[0].At.IsZero(), "push stamps the time")
	assert.Equal(t, 1, items[1].Count)
	assert.Nil(t, f.Drain())
}

func TestFeed_SingleSignalDrainsAll(t *testing.T) {
	f := NewFeed()
	f.Push(Entry{Kind: KindMessage, FlatID: "a"})
	f.Push(Entry{Kind: KindMessage, FlatID: "b"})

	msg, ok := f.WaitForSignal()().(feedMsg)
	require.True(t, ok)
	assert.Len(t, msg.entries, 2)
}

func TestFeed_AttachRecordsBusEvents(t *testing.T) {
	bus := testbus.New(t)
	f := NewFeed()
	f.Attach(bus.EventBus)

	bus.PublishNotificationReceived(eventbus.NotificationReceivedPayload{Event: realtime.Event{FlatID: "f1", SenderID: "u2"}})
	bus.PublishUnreadChanged(eventbus.UnreadChangedPayload{Count: 1})
	bus.PublishChannelStateChanged(eventbus.ChannelStateChangedPayload{IdentityID: "u1", State: realtime.StateSubscribed, Connected: true})
	bus.PublishSessionEnded(eventbus.SessionEndedPayload{})

	var got []Entry
	require.Eventually(t, func() bool {
		got = append(got, f.Drain()...)
		return len(got) == 4
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []EntryKind{KindMessage, KindUnread, KindLink, KindEnded},
		[]EntryKind{got[0].Kind, got[1].Kind, got[2].Kind, got[3].Kind})
	assert.Equal(t, "u2", got[0].SenderID)
	assert.True(t, got[2].Connected)
}

func TestModel_AppliesFeed(t *testing.T) {
	m := newModel(nil)

	m, cmd := update(t, m, feedMsg{entries: []Entry{
		{Kind: KindLink, Connected: true},
		{Kind: KindMessage, FlatID: "f1", SenderID: "u2"},
		{Kind: KindUnread, Count: 1},
		{Kind: KindMessage, FlatID: "f1", SenderID: "u3"},
		{Kind: KindUnread, Count: 2},
	}})
	require.NotNil(t, cmd, "keeps listening")

	assert.Equal(t, 2, m.Unread())
	assert.Equal(t, []string{"f1"}, m.Pending())

	view := tuitest.StripANSI(m.render())
	assert.Contains(t, view, "Olga Owner")
	assert.Contains(t, view, "2 unread")
	assert.Contains(t, view, "live")
	assert.Contains(t, view, "new message on flat f1 from u3")
}

func TestModel_EmptyView(t *testing.T) {
	m := newModel(nil)
	m, _ = update(t, m, tuitest.WindowSize(80, 4))

	view := tuitest.StripANSI(m.render())
	assert.Contains(t, view, "no unread messages")
	assert.Contains(t, view, "offline")
	assert.Contains(t, view, "Waiting for messages")
}

func TestModel_MarkRead(t *testing.T) {
	var got []string
	m := newModel(func(_ context.Context, flatIDs ...string) error {
		got = flatIDs
		return nil
	})
	m, _ = update(t, m, feedMsg{entries: []Entry{
		{Kind: KindMessage, FlatID: "f1"},
		{Kind: KindMessage, FlatID: "f2"},
		{Kind: KindUnread, Count: 2},
	}})

	m, cmd := update(t, m, tuitest.KeyPress('r'))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	assert.Equal(t, []string{"f1", "f2"}, got)
	assert.Empty(t, m.Pending())
	assert.Contains(t, tuitest.StripANSI(m.render()), "marked 2 conversation(s) read")

	m, _ = update(t, m, feedMsg{entries: []Entry{{Kind: KindUnread, Count: 0}}})
	assert.Equal(t, 0, m.Unread())
}

func TestModel_MarkReadNothingPending(t *testing.T) {
	called := false
	m := newModel(func(context.Context, ...string) error {
		called = true
		return nil
	})

	m, cmd := update(t, m, tuitest.KeyPress('r'))
	assert.Nil(t, cmd)
	assert.False(t, called)
	assert.Contains(t, tuitest.StripANSI(m.render()), "nothing to mark")
}

func TestModel_MarkReadError(t *testing.T) {
	m := newModel(func(context.Context, ...string) error { return errors.New("boom") })
	m, _ = update(t, m, feedMsg{entries: []Entry{{Kind: KindMessage, FlatID: "f1"}}})

	m, cmd := update(t, m, tuitest.KeyPress('r'))
	m, _ = update(t, m, cmd())

	assert.Equal(t, []string{"f1"}, m.Pending(), "pending kept for retry")
	assert.Contains(t, tuitest.StripANSI(m.render()), "mark read failed: boom")
}

func TestModel_QuitsWhenSessionEnds(t *testing.T) {
	m := newModel(nil)
	m, cmd := update(t, m, feedMsg{entries: []Entry{{Kind: KindEnded}}})

	assert.True(t, m.Ended())
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)
}

func TestModel_QuitKeys(t *testing.T) {
	for _, msg := range []tea.Msg{
		tuitest.KeyPress('q'),
		tuitest.Key(tea.KeyEscape),
		tuitest.Key('c', tea.ModCtrl),
	} {
		m := newModel(nil)
		_, cmd := update(t, m, msg)
		require.NotNil(t, cmd, msg)
		_, ok := cmd().(tea.QuitMsg)
		assert.True(t, ok, msg)
	}
}
