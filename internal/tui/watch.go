// Package tui renders the live inbox view: the unread counter, the push
// link state and a feed of incoming message notifications.
package tui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	lipgloss "charm.land/lipgloss/v2"

	"github.com/JoCoor/flatfinder-client/internal/core/session"
	"github.com/JoCoor/flatfinder-client/internal/core/styles"
)

const maxFeed = 200

// MarkReadFunc marks the conversations of the given flats read.
type MarkReadFunc func(ctx context.Context, flatIDs ...string) error

// Deps are the inputs of the watch view.
type Deps struct {
	Context   context.Context
	Identity  session.Identity
	Unread    int
	Connected bool
	Feed      *Feed
	MarkRead  MarkReadFunc
}

// Model is the bubbletea model of the watch view.
type Model struct {
	deps Deps
	keys keyMap
	help help.Model

	unread    int
	connected bool
	pending   []string
	feed      []Entry
	status    string
	ended     bool

	width  int
	height int
}

type markedMsg struct {
	flats int
	err   error
}

// New creates the watch view.
func New(d Deps) Model {
	if d.Context == nil {
		d.Context = context.Background()
	}
	return Model{
		deps:      d,
		keys:      defaultKeys(),
		help:      help.New(),
		unread:    d.Unread,
		connected: d.Connected,
	}
}

// Unread returns the counter value the view currently shows.
func (m Model) Unread() int { return m.unread }

// Pending returns the flats with notifications since the last mark-read.
func (m Model) Pending() []string { return m.pending }

// Ended reports whether the session ended while watching.
func (m Model) Ended() bool { return m.ended }

func (m Model) Init() tea.Cmd {
	return m.deps.Feed.WaitForSignal()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case feedMsg:
		m = m.apply(msg.entries)
		if m.ended {
			return m, tea.Quit
		}
		return m, m.deps.Feed.WaitForSignal()

	case markedMsg:
		if msg.err != nil {
			m.status = styles.TextErrorStyle.Render("mark read failed: " + msg.err.Error())
			return m, nil
		}
		m.pending = nil
		m.status = styles.TextSuccessStyle.Render(fmt.Sprintf("marked %d conversation(s) read", msg.flats))
		return m, nil

	case tea.KeyPressMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.MarkRead):
			if len(m.pending) == 0 {
				m.status = styles.TextMutedStyle.Render("nothing to mark")
				return m, nil
			}
			m.status = styles.TextMutedStyle.Render("marking read...")
			return m, m.markRead(append([]string(nil), m.pending...))
		}
	}
	return m, nil
}

func (m Model) markRead(flats []string) tea.Cmd {
	ctx, fn := m.deps.Context, m.deps.MarkRead
	return func() tea.Msg {
		if fn == nil {
			return markedMsg{err: fmt.Errorf("not available")}
		}
		return markedMsg{flats: len(flats), err: fn(ctx, flats...)}
	}
}

func (m Model) apply(entries []Entry) Model {
	for _, e := range entries {
		switch e.Kind {
		case KindMessage:
			m.pending = addUnique(m.pending, e.FlatID)
			m.feed = append(m.feed, e)
		case KindUnread:
			m.unread = e.Count
			if e.Count == 0 {
				m.pending = nil
			}
		case KindLink:
			if m.connected != e.Connected {
				m.feed = append(m.feed, e)
			}
			m.connected = e.Connected
		case KindEnded:
			m.ended = true
			m.feed = append(m.feed, e)
		}
	}
	if len(m.feed) > maxFeed {
		m.feed = m.feed[len(m.feed)-maxFeed:]
	}
	return m
}

func addUnique(ids []string, id string) []string {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}

func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

func (m Model) render() string {
	var b strings.Builder

	title := styles.IconMail + " Inbox · " + m.deps.Identity.DisplayName()
	b.WriteString(styles.HeaderStyle.Render(title))
	b.WriteString("\n")

	badge := styles.ReadBadgeStyle.Render("no unread messages")
	if m.unread > 0 {
		badge = styles.UnreadBadgeStyle.Render(fmt.Sprintf("%d unread", m.unread))
	}
	link := styles.StatusOffStyle.Render(styles.IconUnlink + " offline")
	if m.connected {
		link = styles.StatusOnStyle.Render(styles.IconLink + " live")
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, badge, "  ", link))
	b.WriteString("\n\n")

	lines := m.feedLines()
	if len(lines) == 0 {
		b.WriteString(styles.TextMutedStyle.Render("Waiting for messages..."))
	} else {
		b.WriteString(strings.Join(lines, "\n"))
	}
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString("\n" + m.status + "\n")
	}
	b.WriteString(styles.HelpStyle.Render(m.help.ShortHelpView(m.keys.ShortHelp())))
	return b.String()
}

// feedLines renders the newest entries that fit the window.
func (m Model) feedLines() []string {
	limit := len(m.feed)
	if m.height > 0 {
		// header, badge, spacing, status and help take about 8 rows
		limit = min(limit, max(m.height-8, 1))
	}

	entries := m.feed[len(m.feed)-limit:]
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, styles.FeedTimeStyle.Render(e.At.Format("15:04:05"))+"  "+describe(e))
	}
	return lines
}

func describe(e Entry) string {
	switch e.Kind {
	case KindMessage:
		return fmt.Sprintf("new message on flat %s from %s", e.FlatID, e.SenderID)
	case KindLink:
		if e.Connected {
			return styles.TextSuccessStyle.Render("push connected")
		}
		return styles.TextWarningStyle.Render("push disconnected, retrying")
	case KindEnded:
		return styles.TextErrorStyle.Render("session ended, log in again")
	default:
		return string(e.Kind)
	}
}
