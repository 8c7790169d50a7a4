package flatfinder

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/JoCoor/flatfinder-client/internal/core/config"
	"github.com/JoCoor/flatfinder-client/internal/core/eventbus"
	"github.com/JoCoor/flatfinder-client/internal/core/realtime"
	"github.com/JoCoor/flatfinder-client/internal/core/session"
	"github.com/JoCoor/flatfinder-client/internal/core/unread"
)

// TransportFactory builds a push transport for a new channel.
type TransportFactory func() realtime.Transport

// Presence ties the push channel and the unread counter to the session.
// It is registered as a session transition handler: every change of user
// closes the old channel, resets the counter and opens a channel for the
// new user.
type Presence struct {
	cfg       config.RealtimeConfig
	transport TransportFactory
	counter   *unread.Counter
	bus       *eventbus.EventBus
	logger    zerolog.Logger

	mu       sync.Mutex
	channel  *realtime.Channel
	consumed chan struct{}
}

// NewPresence creates a presence manager. A nil transport factory, or a
// disabled realtime config, keeps the counter wired to the session without
// ever opening a channel.
func NewPresence(cfg config.RealtimeConfig, transport TransportFactory, counter *unread.Counter, bus *eventbus.EventBus, logger zerolog.Logger) *Presence {
	return &Presence{
		cfg:       cfg,
		transport: transport,
		counter:   counter,
		bus:       bus,
		logger:    logger,
	}
}

// HandleTransition reacts to a session change. Profile edits that keep
// the same user are ignored.
func (p *Presence) HandleTransition(ctx context.Context, t session.Transition) {
	if !t.Started() && !t.Ended() {
		return
	}

	p.teardown()
	p.counter.Reset()

	if t.Next != nil {
		p.open(ctx, *t.Next)
	}
}

// Channel returns the active channel, or nil.
func (p *Presence) Channel() *realtime.Channel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel
}

// Close tears down the active channel.
func (p *Presence) Close() {
	p.teardown()
}

func (p *Presence) open(ctx context.Context, identity session.Identity) {
	if p.cfg.Disabled || p.transport == nil {
		p.logger.Debug().Msg("push channel disabled")
		return
	}

	publishState := func(state realtime.State, connected bool) {
		if p.bus == nil {
			return
		}
		p.bus.PublishChannelStateChanged(eventbus.ChannelStateChangedPayload{
			IdentityID: identity.ID,
			State:      state,
			Connected:  connected,
		})
	}

	ch := realtime.New(p.transport(), identity, realtime.Options{
		JoinEvent:    p.cfg.JoinEvent,
		MessageEvent: p.cfg.MessageEvent,
		Logger:       p.logger,
		OnState:      func(s realtime.State) { publishState(s, false) },
		OnLink:       func(up bool) { publishState(realtime.StateSubscribed, up) },
	})
	if err := ch.Open(ctx); err != nil {
		p.logger.Error().Err(err).Msg("open push channel")
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		unread.Consume(context.Background(), p.counter, ch.Events(), func(ev realtime.Event) {
			if p.bus != nil {
				p.bus.PublishNotificationReceived(eventbus.NotificationReceivedPayload{Event: ev})
			}
		})
	}()

	p.mu.Lock()
	p.channel = ch
	p.consumed = done
	p.mu.Unlock()

	p.logger.Info().Str("user", identity.ID).Msg("push channel opened")
}

// teardown closes the channel and waits until its last event has been
// counted, so a following Reset cannot be undone by a late increment.
func (p *Presence) teardown() {
	p.mu.Lock()
	ch, done := p.channel, p.consumed
	p.channel, p.consumed = nil, nil
	p.mu.Unlock()

	if ch == nil {
		return
	}
	ch.Close()
	<-done
	p.logger.Info().Str("user", ch.Identity().ID).Msg("push channel closed")
}
