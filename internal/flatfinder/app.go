// Package flatfinder wires the session, gateway, push channel, unread
// counter and route guard into one application object. Commands and the
// terminal view consume App instead of assembling dependencies.
package flatfinder

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/JoCoor/flatfinder-client/internal/core/config"
	"github.com/JoCoor/flatfinder-client/internal/core/eventbus"
	"github.com/JoCoor/flatfinder-client/internal/core/gateway"
	"github.com/JoCoor/flatfinder-client/internal/core/logging"
	"github.com/JoCoor/flatfinder-client/internal/core/realtime"
	"github.com/JoCoor/flatfinder-client/internal/core/route"
	"github.com/JoCoor/flatfinder-client/internal/core/session"
	"github.com/JoCoor/flatfinder-client/internal/core/unread"
	"github.com/JoCoor/flatfinder-client/internal/marketplace"
)

// App is the central entry point for all flatfinder operations.
type App struct {
	Config    *config.Config
	Bus       *eventbus.EventBus
	Storage   session.Storage
	Session   *session.Store
	Gateway   *gateway.Client
	API       *marketplace.Client
	Guard     *route.Guard
	Navigator *route.Navigator
	Unread    *unread.Counter
	Presence  *Presence

	logger zerolog.Logger
}

// Deps are the external dependencies of an App.
type Deps struct {
	Config  *config.Config
	Bus     *eventbus.EventBus
	Storage session.Storage
	// Transport overrides the websocket push transport.
	Transport  TransportFactory
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// New constructs an App. The bus must be started by the caller.
func New(d Deps) (*App, error) {
	if d.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if d.Bus == nil {
		return nil, fmt.Errorf("event bus is required")
	}

	component := func(name string) zerolog.Logger {
		if d.Logger != nil {
			return logging.Sub(*d.Logger, name)
		}
		return logging.Component(name)
	}

	store := session.NewStore(d.Storage, component("session"))
	guard := route.NewGuard(nil, store)
	nav := route.NewNavigator(guard)

	gw, err := gateway.New(gateway.Options{
		BaseURL:    d.Config.API.BaseURL,
		Timeout:    d.Config.API.Timeout,
		HTTPClient: d.HTTPClient,
		Sessions:   store,
		Redirector: nav,
		Logger:     component("gateway"),
	})
	if err != nil {
		return nil, fmt.Errorf("create gateway: %w", err)
	}

	transport := d.Transport
	if transport == nil {
		rt := d.Config.Realtime
		transport = func() realtime.Transport {
			return &realtime.WebSocketTransport{
				URL:    rt.URL,
				Origin: rt.Origin,
				Delay:  rt.ReconnectDelay,
				Token:  store.Token,
			}
		}
	}

	counter := unread.New()
	presence := NewPresence(d.Config.Realtime, transport, counter, d.Bus, component("realtime"))

	a := &App{
		Config:    d.Config,
		Bus:       d.Bus,
		Storage:   d.Storage,
		Session:   store,
		Gateway:   gw,
		API:       marketplace.New(gw),
		Guard:     guard,
		Navigator: nav,
		Unread:    counter,
		Presence:  presence,
		logger:    component("app"),
	}
	a.wire()
	return a, nil
}

func (a *App) wire() {
	a.Session.OnTransition(a.Presence.HandleTransition)
	a.Session.OnTransition(func(_ context.Context, t session.Transition) {
		if t.Ended() {
			a.Bus.PublishSessionEnded(eventbus.SessionEndedPayload{Identity: *t.Prev})
		}
		if t.Started() {
			a.Bus.PublishSessionStarted(eventbus.SessionStartedPayload{Identity: *t.Next})
		}
	})
	a.Unread.OnChange(func(n int) {
		a.Bus.PublishUnreadChanged(eventbus.UnreadChangedPayload{Count: n})
	})
	a.Navigator.OnNavigate(func(loc route.Location) {
		a.Bus.PublishNavigationRequested(eventbus.NavigationRequestedPayload{Location: loc})
	})
}

// Start restores the persisted session. When a user is restored the push
// channel opens.
func (a *App) Start(ctx context.Context) {
	a.Session.Restore(ctx)
	if id, _, ok := a.Session.Current(); ok {
		a.logger.Debug().Str("user", id.ID).Msg("session restored")
	}
}

// Visit checks the guard for path and records the navigation.
func (a *App) Visit(path string) error {
	return a.Navigator.Visit(path)
}

// Login authenticates and makes the returned user the active session.
func (a *App) Login(ctx context.Context, creds marketplace.Credentials) (session.Identity, error) {
	res, err := a.API.Login(ctx, creds)
	if err != nil {
		return session.Identity{}, err
	}

	identity := res.User.Identity()
	if err := a.Session.SetIdentity(ctx, identity, res.Token); err != nil {
		return session.Identity{}, fmt.Errorf("login: %w", err)
	}
	_ = a.Navigator.Visit(route.HomePath)
	return identity, nil
}

// Register creates an account and sends the user to the login view.
func (a *App) Register(ctx context.Context, reg marketplace.Registration) error {
	if err := a.API.Register(ctx, reg); err != nil {
		return err
	}
	_ = a.Navigator.Visit(route.LoginPath)
	return nil
}

// Logout ends the session and returns to the login view.
func (a *App) Logout(ctx context.Context) {
	a.Session.Clear(ctx)
	_ = a.Navigator.Visit(route.LoginPath)
}

// UpdateProfile patches the current user and refreshes the stored identity
// with the edited fields. The push channel stays open.
func (a *App) UpdateProfile(ctx context.Context, up marketplace.UserUpdate) (session.Identity, error) {
	identity, token, ok := a.Session.Current()
	if !ok {
		return session.Identity{}, fmt.Errorf("update profile: not logged in")
	}
	up.IsAdmin = nil
	up.Email = ""

	if _, err := a.API.UpdateUser(ctx, identity.ID, up); err != nil {
		return session.Identity{}, err
	}

	updated := up.Apply(marketplace.User{
		ID:        identity.ID,
		Email:     identity.Email,
		FirstName: identity.FirstName,
		LastName:  identity.LastName,
		IsAdmin:   identity.IsAdmin,
	}).Identity()

	if err := a.Session.SetIdentity(ctx, updated, token); err != nil {
		return session.Identity{}, fmt.Errorf("update profile: %w", err)
	}
	return updated, nil
}

// MarkRead marks the conversations of the given flats read and resets the
// unread counter once the API confirms.
func (a *App) MarkRead(ctx context.Context, flatIDs ...string) error {
	for _, id := range flatIDs {
		if err := a.API.MarkRead(ctx, id); err != nil {
			return err
		}
	}
	a.Unread.Reset()
	return nil
}

// Close releases the push channel. The session stays persisted.
func (a *App) Close() {
	a.Presence.Close()
}
