package realtime

import (
	"context"
	"time"
)

// Transport opens push connections. Implementations own the reconnect
// delay; Channel re-dials after ReconnectDelay whenever a connection drops.
type Transport interface {
	Dial(ctx context.Context) (Conn, error)
	ReconnectDelay() time.Duration
}

// Conn is one live push connection. Close may be called concurrently with
// Receive and must unblock it.
type Conn interface {
	Send(f Frame) error
	// Receive blocks for the next frame. A frame that cannot be decoded
	// yields an error wrapping ErrMalformedFrame; any other error means
	// the connection is gone.
	Receive() (Frame, error)
	Close() error
}
