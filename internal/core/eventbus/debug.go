package eventbus

import (
	"fmt"

	"github.com/rs/zerolog"
)

// RegisterDebugLogger registers bus hooks that log all event activity at
// debug level. Dropped events are logged as warnings and subscriber panics
// as errors.
func RegisterDebugLogger(bus *EventBus, logger zerolog.Logger) {
	bus.OnPublish(func(event Event, payload any) {
		e := logger.Debug().Str("event", string(event))
		switch p := payload.(type) {
		case UnreadChangedPayload:
			e = e.Int("count", p.Count)
		case NavigationRequestedPayload:
			e = e.Str("path", p.Location.Path)
		case ChannelStateChangedPayload:
			e = e.Str("state", p.State.String()).Bool("connected", p.Connected)
		case NotificationReceivedPayload:
			e = e.Str("flat", p.Event.FlatID)
		}
		e.Msg("event fired")
	})

	bus.OnDrop(func(event Event, _ any) {
		logger.Warn().Str("event", string(event)).Msg("event dropped: buffer full")
	})

	bus.OnPanic(func(event Event, _ any, recovered any) {
		logger.Error().
			Str("event", string(event)).
			Str("panic", fmt.Sprint(recovered)).
			Msg("subscriber panicked")
	})
}
