package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/JoCoor/flatfinder-client/internal/core/session"
)

// ErrClosed is returned when opening a channel that was already closed.
var ErrClosed = errors.New("channel closed")

// Options configures a Channel.
type Options struct {
	JoinEvent    string
	MessageEvent string
	Logger       zerolog.Logger
	// OnState is called on Open and Close.
	OnState func(State)
	// OnLink is called whenever the underlying connection comes up or
	// goes down while the channel is subscribed.
	OnLink func(connected bool)
}

// Channel is the push subscription of one identity. It joins the room
// keyed by the identity id on every connection and forwards qualifying
// message events on Events. A Channel is single use: once closed it cannot
// be reopened.
type Channel struct {
	transport Transport
	identity  session.Identity
	opts      Options
	logger    zerolog.Logger

	events chan Event
	done   chan struct{}

	mu     sync.Mutex
	state  State
	closed bool
	cancel context.CancelFunc
	conn   Conn
}

// New creates a disconnected channel for identity.
func New(transport Transport, identity session.Identity, opts Options) *Channel {
	if opts.JoinEvent == "" {
		opts.JoinEvent = DefaultJoinEvent
	}
	if opts.MessageEvent == "" {
		opts.MessageEvent = DefaultMessageEvent
	}
	return &Channel{
		transport: transport,
		identity:  identity,
		opts:      opts,
		logger:    opts.Logger.With().Str("user", identity.ID).Logger(),
		events:    make(chan Event),
		done:      make(chan struct{}),
	}
}

// Identity returns the identity the channel is subscribed for.
func (c *Channel) Identity() session.Identity {
	return c.identity
}

// Events returns the stream of qualifying events. It is closed when the
// channel closes.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// State returns the lifecycle state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open subscribes the channel. Connecting happens in the background, so
// Open does not fail when the push endpoint is unreachable. Opening an
// open channel is a no-op.
func (c *Channel) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == StateSubscribed {
		c.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.state = StateSubscribed
	c.mu.Unlock()

	c.notifyState(StateSubscribed)
	go c.run(runCtx)
	return nil
}

// Close unsubscribes and waits for the reader to stop. No event is
// delivered after Close returns.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	wasOpen := c.state == StateSubscribed
	c.state = StateDisconnected
	cancel := c.cancel
	conn := c.conn
	c.mu.Unlock()

	if !wasOpen {
		close(c.events)
		return
	}

	cancel()
	if conn != nil {
		_ = conn.Close()
	}
	<-c.done
	c.notifyState(StateDisconnected)
}

func (c *Channel) run(ctx context.Context) {
	defer close(c.done)
	defer close(c.events)

	for {
		conn, err := c.transport.Dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Debug().Err(err).Msg("push dial failed")
			if !c.wait(ctx) {
				return
			}
			continue
		}

		if !c.attach(conn) {
			_ = conn.Close()
			return
		}

		c.serve(ctx, conn)

		c.detach()
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		if !c.wait(ctx) {
			return
		}
	}
}

// attach records conn so Close can interrupt it. It reports false when the
// channel was closed while dialing.
func (c *Channel) attach(conn Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.conn = conn
	return true
}

func (c *Channel) detach() {
	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
}

func (c *Channel) serve(ctx context.Context, conn Conn) {
	join, err := NewFrame(c.opts.JoinEvent, c.identity.ID)
	if err != nil {
		c.logger.Error().Err(err).Msg("encode join frame")
		return
	}
	if err := conn.Send(join); err != nil {
		c.logger.Debug().Err(err).Msg("push join failed")
		return
	}

	c.notifyLink(true)
	defer c.notifyLink(false)
	c.logger.Debug().Msg("joined push room")

	for {
		frame, err := conn.Receive()
		if err != nil {
			if errors.Is(err, ErrMalformedFrame) {
				c.logger.Debug().Err(err).Msg("dropping push frame")
				continue
			}
			if ctx.Err() == nil {
				c.logger.Debug().Err(err).Msg("push connection lost")
			}
			return
		}

		ev, ok := c.qualify(frame)
		if !ok {
			continue
		}

		if ctx.Err() != nil {
			return
		}
		select {
		case c.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// qualify decodes a message event and applies the delivery rules: the
// event must name a flat and must not originate from this identity.
func (c *Channel) qualify(f Frame) (Event, bool) {
	if f.Type != c.opts.MessageEvent {
		return Event{}, false
	}

	var ev Event
	if err := json.Unmarshal(f.Payload, &ev); err != nil {
		c.logger.Debug().Err(err).Msg("dropping malformed message event")
		return Event{}, false
	}
	if ev.FlatID == "" {
		c.logger.Debug().Msg("dropping message event without flat id")
		return Event{}, false
	}
	if ev.SenderID == c.identity.ID {
		return Event{}, false
	}
	return ev, true
}

func (c *Channel) wait(ctx context.Context) bool {
	delay := c.transport.ReconnectDelay()
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Channel) notifyState(s State) {
	if c.opts.OnState != nil {
		c.opts.OnState(s)
	}
}

func (c *Channel) notifyLink(up bool) {
	if c.opts.OnLink != nil {
		c.opts.OnLink(up)
	}
}
