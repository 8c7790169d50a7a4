// Package realtime maintains the push subscription of the logged-in user
// and turns inbound message notifications into a stream of events.
package realtime

import (
	"encoding/json"
	"errors"
)

// Default wire event names used by the marketplace backend.
const (
	DefaultJoinEvent    = "join-user"
	DefaultMessageEvent = "nova-mensagem"
)

// ErrMalformedFrame is returned by Conn.Receive for a frame that could not
// be decoded. The connection stays usable.
var ErrMalformedFrame = errors.New("malformed frame")

// Frame is one message on the push connection.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewFrame encodes payload into a frame of the given type.
func NewFrame(typ string, payload any) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: typ, Payload: data}, nil
}

// Event announces a new message on a flat's conversation.
type Event struct {
	FlatID   string `json:"flatId"`
	SenderID string `json:"senderId"`
}

// State is the lifecycle state of a Channel.
type State int

const (
	StateDisconnected State = iota
	StateSubscribed
)

func (s State) String() string {
	switch s {
	case StateSubscribed:
		return "subscribed"
	default:
		return "disconnected"
	}
}
