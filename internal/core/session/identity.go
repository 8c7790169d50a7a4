// Package session holds the authenticated identity of the current user and
// persists it across process runs.
package session

import "errors"

var (
	// ErrIncompleteIdentity is returned when an identity lacks an id or email.
	ErrIncompleteIdentity = errors.New("incomplete identity")
	// ErrEmptyToken is returned when an identity is set without a token.
	ErrEmptyToken = errors.New("empty session token")
)

// Identity is the authenticated user's profile as held by the client.
// The JSON shape matches the marketplace API's user object.
type Identity struct {
	ID        string `json:"_id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	IsAdmin   bool   `json:"isAdmin"`
}

// Complete reports whether the identity carries the fields every consumer
// relies on. Partial identities are never made active.
func (i Identity) Complete() bool {
	return i.ID != "" && i.Email != ""
}

// DisplayName returns "First Last", falling back to the email.
func (i Identity) DisplayName() string {
	switch {
	case i.FirstName != "" && i.LastName != "":
		return i.FirstName + " " + i.LastName
	case i.FirstName != "":
		return i.FirstName
	default:
		return i.Email
	}
}

// Transition describes one change of the active identity. Prev and Next
// are nil when no identity was, or is, active.
type Transition struct {
	Prev  *Identity
	Next  *Identity
	Token string
}

// Started reports whether a new user became active.
func (t Transition) Started() bool {
	return t.Next != nil && (t.Prev == nil || t.Prev.ID != t.Next.ID)
}

// Ended reports whether the previously active user is no longer active.
func (t Transition) Ended() bool {
	return t.Prev != nil && (t.Next == nil || t.Prev.ID != t.Next.ID)
}
