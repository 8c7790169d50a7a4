// Package route decides which views a session may open and records
// navigation between them.
package route

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Well-known paths.
const (
	HomePath  = "/"
	LoginPath = "/login"
)

// Rule describes the access requirements of the views matching Pattern.
// Patterns use doublestar glob syntax: "*" matches one path segment and
// "**" any number of segments.
type Rule struct {
	Pattern      string
	Protected    bool
	RequireAdmin bool
}

// Table is an ordered list of rules. The first matching rule wins.
type Table struct {
	rules []Rule
}

// NewTable validates the patterns and returns a table. RequireAdmin
// implies Protected.
func NewTable(rules ...Rule) (*Table, error) {
	t := &Table{rules: make([]Rule, 0, len(rules))}
	for _, r := range rules {
		if !strings.HasPrefix(r.Pattern, "/") {
			return nil, fmt.Errorf("route pattern %q must start with /", r.Pattern)
		}
		if !doublestar.ValidatePattern(r.Pattern) {
			return nil, fmt.Errorf("invalid route pattern %q", r.Pattern)
		}
		if r.RequireAdmin {
			r.Protected = true
		}
		t.rules = append(t.rules, r)
	}
	return t, nil
}

// DefaultTable returns the marketplace's view table.
func DefaultTable() *Table {
	t, err := NewTable(
		Rule{Pattern: "/"},
		Rule{Pattern: "/register"},
		Rule{Pattern: "/login"},
		Rule{Pattern: "/profile", Protected: true},
		Rule{Pattern: "/add-flat", Protected: true},
		Rule{Pattern: "/favorites", Protected: true},
		Rule{Pattern: "/inbox", Protected: true},
		Rule{Pattern: "/flats/*/edit", Protected: true},
		Rule{Pattern: "/flats"},
		Rule{Pattern: "/flats/*"},
		Rule{Pattern: "/admin", RequireAdmin: true},
		Rule{Pattern: "/admin/**", RequireAdmin: true},
	)
	if err != nil {
		panic(err)
	}
	return t
}

// Rules returns a copy of the table's rules in match order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Match returns the first rule matching p. Unknown paths are public and
// report ok=false.
func (t *Table) Match(p string) (rule Rule, ok bool) {
	p = Clean(p)
	for _, r := range t.rules {
		if doublestar.MatchUnvalidated(r.Pattern, p) {
			return r, true
		}
	}
	return Rule{Pattern: p}, false
}

// Clean normalises a view path: query strings and trailing slashes are
// dropped and the result always starts with "/".
func Clean(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
