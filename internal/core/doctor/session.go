package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JoCoor/flatfinder-client/internal/core/session"
)

// SessionCheck inspects the persisted session without contacting the
// server. With autofix, unusable state is removed.
type SessionCheck struct {
	storage session.Storage
	autofix bool
	now     func() time.Time
}

// NewSessionCheck creates a new session check.
func NewSessionCheck(storage session.Storage, autofix bool) *SessionCheck {
	return &SessionCheck{storage: storage, autofix: autofix, now: time.Now}
}

func (c *SessionCheck) Name() string {
	return "Session"
}

func (c *SessionCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	token, hasToken, err := c.storage.GetItem(ctx, session.KeyToken)
	if err != nil {
		result.Items = append(result.Items, CheckItem{Label: "storage", Status: StatusFail, Detail: err.Error()})
		return result
	}
	rawUser, hasUser, err := c.storage.GetItem(ctx, session.KeyUser)
	if err != nil {
		result.Items = append(result.Items, CheckItem{Label: "storage", Status: StatusFail, Detail: err.Error()})
		return result
	}

	if !hasToken && !hasUser {
		result.Items = append(result.Items, CheckItem{Label: "login", Status: StatusPass, Detail: "not logged in"})
		return result
	}

	var identity session.Identity
	if !hasToken || !hasUser || token == "" || json.Unmarshal([]byte(rawUser), &identity) != nil || !identity.Complete() {
		result.Items = append(result.Items, c.fix(ctx, CheckItem{
			Label:   "login",
			Status:  StatusWarn,
			Detail:  "persisted session is incomplete and will be ignored",
			Fixable: true,
		}))
		return result
	}

	result.Items = append(result.Items, CheckItem{Label: "login", Status: StatusPass, Detail: identity.Email})

	exp, ok, err := session.TokenExpiry(token)
	switch {
	case err != nil:
		result.Items = append(result.Items, CheckItem{Label: "token", Status: StatusWarn, Detail: "not a JWT, expiry unknown"})
	case !ok:
		result.Items = append(result.Items, CheckItem{Label: "token", Status: StatusPass, Detail: "no expiry"})
	case exp.Before(c.now()):
		result.Items = append(result.Items, c.fix(ctx, CheckItem{
			Label:   "token",
			Status:  StatusWarn,
			Detail:  fmt.Sprintf("expired %s", exp.Local().Format(time.RFC822)),
			Fixable: true,
		}))
	default:
		result.Items = append(result.Items, CheckItem{
			Label:  "token",
			Status: StatusPass,
			Detail: fmt.Sprintf("expires %s", exp.Local().Format(time.RFC822)),
		})
	}
	return result
}

func (c *SessionCheck) fix(ctx context.Context, item CheckItem) CheckItem {
	if !c.autofix {
		return item
	}
	if err := c.storage.RemoveItems(ctx, session.KeyToken, session.KeyUser); err != nil {
		item.Detail += fmt.Sprintf(" (cleanup failed: %v)", err)
		return item
	}
	item.Status = StatusPass
	item.Detail += " (removed)"
	item.Fixable = false
	return item
}
