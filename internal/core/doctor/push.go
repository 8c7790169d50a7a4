package doctor

import (
	"context"
	"time"

	"github.com/JoCoor/flatfinder-client/internal/core/config"
	"github.com/JoCoor/flatfinder-client/internal/core/realtime"
)

// PushCheck dials the push endpoint once.
type PushCheck struct {
	cfg       config.RealtimeConfig
	transport realtime.Transport
	timeout   time.Duration
}

// NewPushCheck creates a new push endpoint check. A nil transport dials the
// configured websocket URL.
func NewPushCheck(cfg config.RealtimeConfig, transport realtime.Transport) *PushCheck {
	if transport == nil {
		transport = &realtime.WebSocketTransport{URL: cfg.URL, Origin: cfg.Origin}
	}
	return &PushCheck{cfg: cfg, transport: transport, timeout: 5 * time.Second}
}

func (c *PushCheck) Name() string {
	return "Push Channel"
}

func (c *PushCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if c.cfg.Disabled {
		result.Items = append(result.Items, CheckItem{
			Label:  c.cfg.URL,
			Status: StatusWarn,
			Detail: "disabled, unread count will not update",
		})
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.transport.Dial(ctx)
	if err != nil {
		result.Items = append(result.Items, CheckItem{Label: c.cfg.URL, Status: StatusFail, Detail: err.Error()})
		return result
	}
	_ = conn.Close()

	result.Items = append(result.Items, CheckItem{
		Label:  c.cfg.URL,
		Status: StatusPass,
		Detail: "events " + c.cfg.JoinEvent + " / " + c.cfg.MessageEvent,
	})
	return result
}
