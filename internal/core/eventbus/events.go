// Package eventbus provides a typed publish/subscribe event bus for
// cross-component communication within flatfinder.
package eventbus

import (
	"github.com/JoCoor/flatfinder-client/internal/core/realtime"
	"github.com/JoCoor/flatfinder-client/internal/core/route"
	"github.com/JoCoor/flatfinder-client/internal/core/session"
)

// Event names a kind of event carried by the bus.
type Event string

// Keep list sorted A-Z
const (
	EventChannelStateChanged  Event = "channel.state-changed"
	EventNavigationRequested  Event = "navigation.requested"
	EventNotificationReceived Event = "notification.received"
	EventSessionEnded         Event = "session.ended"
	EventSessionStarted       Event = "session.started"
	EventUnreadChanged        Event = "unread.changed"
)

// ChannelStateChangedPayload is emitted when the push channel opens or
// closes, and when its connection goes up or down while open.
type ChannelStateChangedPayload struct {
	IdentityID string
	State      realtime.State
	Connected  bool
}

// NavigationRequestedPayload is emitted on every navigation, including
// forced redirects after an authentication failure.
type NavigationRequestedPayload struct {
	Location route.Location
}

// NotificationReceivedPayload is emitted for every qualifying push event.
type NotificationReceivedPayload struct {
	Event realtime.Event
}

// SessionStartedPayload is emitted when an identity becomes active.
type SessionStartedPayload struct {
	Identity session.Identity
}

// SessionEndedPayload is emitted when the active identity is cleared.
type SessionEndedPayload struct {
	Identity session.Identity
}

// UnreadChangedPayload is emitted whenever the unread counter changes.
type UnreadChangedPayload struct {
	Count int
}
