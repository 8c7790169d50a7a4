package route

import (
	"errors"
	"fmt"

	"github.com/JoCoor/flatfinder-client/internal/core/session"
)

// ErrAccessDenied is matched by every *DeniedError.
var ErrAccessDenied = errors.New("access denied")

// Reasons reported in a Decision.
const (
	ReasonNotLoggedIn = "login required"
	ReasonNotAdmin    = "administrator required"
)

// SessionReader exposes the current session. *session.Store implements it.
type SessionReader interface {
	Current() (session.Identity, string, bool)
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed  bool
	Redirect string
	Reason   string
}

// Guard admits or redirects navigation based on the session. It never
// caches decisions.
type Guard struct {
	table   *Table
	session SessionReader
}

// NewGuard creates a guard over table. A nil table uses DefaultTable.
func NewGuard(table *Table, sess SessionReader) *Guard {
	if table == nil {
		table = DefaultTable()
	}
	return &Guard{table: table, session: sess}
}

// Check evaluates access to p against the current session.
func (g *Guard) Check(p string) Decision {
	rule, _ := g.table.Match(p)
	if !rule.Protected {
		return Decision{Allowed: true}
	}

	identity, token, ok := g.session.Current()
	if !ok || token == "" {
		return Decision{Redirect: LoginPath, Reason: ReasonNotLoggedIn}
	}
	if rule.RequireAdmin && !identity.IsAdmin {
		return Decision{Redirect: HomePath, Reason: ReasonNotAdmin}
	}
	return Decision{Allowed: true}
}

// DeniedError reports a navigation that was redirected by the guard.
type DeniedError struct {
	Path     string
	Redirect string
	Reason   string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s: %s (redirected to %s)", e.Path, e.Reason, e.Redirect)
}

func (e *DeniedError) Is(target error) bool {
	return target == ErrAccessDenied
}
