package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// TransitionFunc is called after the active identity changes.
type TransitionFunc func(ctx context.Context, t Transition)

// Store is the single source of truth for who is logged in. Identity and
// token are always set and cleared together.
type Store struct {
	storage Storage
	logger  zerolog.Logger

	mu       sync.RWMutex
	identity *Identity
	token    string

	hmu      sync.Mutex
	handlers []TransitionFunc
}

// NewStore creates a store backed by storage. A nil storage keeps the
// session in memory only.
func NewStore(storage Storage, logger zerolog.Logger) *Store {
	return &Store{storage: storage, logger: logger}
}

// OnTransition registers fn to run after every identity change.
// Handlers run synchronously in registration order.
func (s *Store) OnTransition(fn TransitionFunc) {
	s.hmu.Lock()
	s.handlers = append(s.handlers, fn)
	s.hmu.Unlock()
}

// Current returns the active identity and token. ok is false when no
// session is active.
func (s *Store) Current() (id Identity, token string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return Identity{}, "", false
	}
	return *s.identity, s.token, true
}

// Token returns the active bearer token, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Restore loads the persisted session. Anything short of a complete
// identity plus a token leaves the store logged out.
func (s *Store) Restore(ctx context.Context) {
	identity, token, ok, _ := s.load(ctx)
	if !ok {
		s.apply(ctx, nil, "")
		return
	}
	s.apply(ctx, &identity, token)
}

// Sync adopts the persisted session when another process has changed it
// and reports whether anything changed. An unreadable storage keeps the
// in-memory session.
func (s *Store) Sync(ctx context.Context) bool {
	if s.storage == nil {
		return false
	}
	identity, token, ok, err := s.load(ctx)
	if err != nil {
		return false
	}

	s.mu.RLock()
	current, currentToken := copyIdentity(s.identity), s.token
	s.mu.RUnlock()

	switch {
	case !ok && current == nil:
		return false
	case ok && current != nil && *current == identity && currentToken == token:
		return false
	}

	s.logger.Info().Bool("logged_in", ok).Msg("session changed by another process")
	if !ok {
		s.apply(ctx, nil, "")
	} else {
		s.apply(ctx, &identity, token)
	}
	return true
}

// load reads the persisted pair. err is set only when storage itself
// failed; incomplete or corrupt content is reported as ok == false.
func (s *Store) load(ctx context.Context) (identity Identity, token string, ok bool, err error) {
	if s.storage == nil {
		return Identity{}, "", false, nil
	}

	token, hasToken, err := s.storage.GetItem(ctx, KeyToken)
	if err != nil {
		s.logger.Warn().Err(err).Msg("read persisted token")
		return Identity{}, "", false, err
	}
	raw, hasUser, err := s.storage.GetItem(ctx, KeyUser)
	if err != nil {
		s.logger.Warn().Err(err).Msg("read persisted user")
		return Identity{}, "", false, err
	}

	if !hasToken && !hasUser {
		return Identity{}, "", false, nil
	}
	if !hasToken || !hasUser || token == "" {
		s.logger.Warn().
			Bool("token", hasToken).
			Bool("user", hasUser).
			Msg("persisted session is incomplete, ignoring")
		return Identity{}, "", false, nil
	}

	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		s.logger.Warn().Err(err).Msg("persisted user is not valid JSON, ignoring")
		return Identity{}, "", false, nil
	}
	if !identity.Complete() {
		s.logger.Warn().Msg("persisted user is incomplete, ignoring")
		return Identity{}, "", false, nil
	}

	return identity, token, true, nil
}

// SetIdentity makes identity active and persists it with token. Storage
// failures are logged; the in-memory session stays authoritative.
func (s *Store) SetIdentity(ctx context.Context, identity Identity, token string) error {
	if !identity.Complete() {
		return ErrIncompleteIdentity
	}
	if token == "" {
		return ErrEmptyToken
	}

	s.apply(ctx, &identity, token)

	if s.storage == nil {
		return nil
	}
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := s.storage.SetItems(ctx, map[string]string{
		KeyToken: token,
		KeyUser:  string(data),
	}); err != nil {
		s.logger.Warn().Err(err).Msg("persist session")
	}
	return nil
}

// Clear ends the session and removes the persisted entries.
func (s *Store) Clear(ctx context.Context) {
	if s.storage != nil {
		if err := s.storage.RemoveItems(ctx, KeyToken, KeyUser); err != nil {
			s.logger.Warn().Err(err).Msg("remove persisted session")
		}
	}
	s.apply(ctx, nil, "")
}

func (s *Store) apply(ctx context.Context, next *Identity, token string) {
	s.mu.Lock()
	prev := s.identity
	s.identity = next
	s.token = token
	s.mu.Unlock()

	if prev == nil && next == nil {
		return
	}

	t := Transition{Prev: copyIdentity(prev), Next: copyIdentity(next), Token: token}

	s.hmu.Lock()
	handlers := make([]TransitionFunc, len(s.handlers))
	copy(handlers, s.handlers)
	s.hmu.Unlock()

	for _, fn := range handlers {
		fn(ctx, t)
	}
}

func copyIdentity(i *Identity) *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}
