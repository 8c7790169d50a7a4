package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/net/websocket"
)

// WebSocketTransport dials a websocket endpoint exchanging JSON text frames.
type WebSocketTransport struct {
	URL    string
	Origin string
	Delay  time.Duration
	// Token, when set, is sent as a bearer Authorization header.
	Token func() string
}

var _ Transport = (*WebSocketTransport)(nil)

func (t *WebSocketTransport) ReconnectDelay() time.Duration {
	return t.Delay
}

func (t *WebSocketTransport) Dial(ctx context.Context) (Conn, error) {
	origin := t.Origin
	if origin == "" {
		origin = "http://localhost/"
	}

	cfg, err := websocket.NewConfig(t.URL, origin)
	if err != nil {
		return nil, fmt.Errorf("websocket config: %w", err)
	}
	if t.Token != nil {
		if token := t.Token(); token != "" {
			cfg.Header = http.Header{}
			cfg.Header.Set("Authorization", "Bearer "+token)
		}
	}

	ws, err := cfg.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", t.URL, err)
	}
	return &wsConn{ws: ws}, nil
}

type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) Send(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return websocket.Message.Send(c.ws, string(data))
}

func (c *wsConn) Receive() (Frame, error) {
	var data []byte
	if err := websocket.Message.Receive(c.ws, &data); err != nil {
		return Frame{}, err
	}

	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return f, nil
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
