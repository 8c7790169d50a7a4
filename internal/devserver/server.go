// Package devserver is an in-memory implementation of the marketplace API
// and its push channel. It backs local development and end-to-end tests
// of the client.
package devserver

import (
	"crypto/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/JoCoor/flatfinder-client/internal/core/realtime"
	"github.com/JoCoor/flatfinder-client/internal/marketplace"
	"github.com/JoCoor/flatfinder-client/pkg/kv"
)

// Options configures a Server.
type Options struct {
	Logger       zerolog.Logger
	TokenTTL     time.Duration
	MessageEvent string
	JoinEvent    string
	// BcryptCost overrides the password hashing cost. Tests use the
	// minimum to stay fast.
	BcryptCost int
	Now        func() time.Time
}

type userRecord struct {
	marketplace.User
	PasswordHash []byte
	Favorites    []string
}

type flatRecord struct {
	marketplace.FlatInput
	ID      string
	OwnerID string
}

type messageRecord struct {
	ID        string
	FlatID    string
	SenderID  string
	Content   string
	ReadBy    map[string]bool
	CreatedAt time.Time
}

// Server holds all marketplace state in memory.
type Server struct {
	opts   Options
	logger zerolog.Logger

	users    *kv.Store[string, userRecord]
	flats    *kv.Store[string, flatRecord]
	messages *kv.Store[string, messageRecord]

	hub *hub

	keyMu sync.RWMutex
	key   []byte
}

// New creates an empty server.
func New(opts Options) *Server {
	if opts.TokenTTL == 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.JoinEvent == "" {
		opts.JoinEvent = realtime.DefaultJoinEvent
	}
	if opts.MessageEvent == "" {
		opts.MessageEvent = realtime.DefaultMessageEvent
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		opts:     opts,
		logger:   opts.Logger,
		users:    kv.New[string, userRecord](),
		flats:    kv.New[string, flatRecord](),
		messages: kv.New[string, messageRecord](),
		key:      newKey(),
	}
	s.hub = newHub(s, opts.Logger)
	return s
}

// Handler returns the HTTP handler serving the API and, under /ws, the push
// channel.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/ws", s.hub.handler())

	r.Route("/users", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/favorites", s.handleFavorites)
			r.Patch("/favorites/{flatID}", s.handleToggleFavorite)
			r.Get("/messages", s.handleMyMessages)
			r.Get("/{flatID}/conversation", s.handleConversation)
			r.Patch("/{userID}", s.handleUpdateUser)

			r.With(s.requireAdmin).Get("/", s.handleListUsers)
			r.With(s.requireAdmin).Delete("/{userID}", s.handleDeleteUser)
		})
	})

	r.Route("/flats", func(r chi.Router) {
		r.Get("/", s.handleListFlats)
		r.Get("/{flatID}", s.handleGetFlat)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/", s.handleCreateFlat)
			r.Patch("/{flatID}", s.handleUpdateFlat)
			r.Delete("/{flatID}", s.handleDeleteFlat)
			r.Get("/{flatID}/messages", s.handleFlatMessages)
			r.Post("/{flatID}/messages", s.handleSendMessage)
			r.Patch("/{flatID}/messages/read", s.handleMarkRead)
		})
	})

	return r
}

// RevokeAll invalidates every issued token, so the next authenticated
// request of any client is answered with 401.
func (s *Server) RevokeAll() {
	s.keyMu.Lock()
	s.key = newKey()
	s.keyMu.Unlock()
	s.logger.Info().Msg("all tokens revoked")
}

func (s *Server) signingKey() []byte {
	s.keyMu.RLock()
	defer s.keyMu.RUnlock()
	return s.key
}

func newKey() []byte {
	key := make([]byte, 32)
	_, _ = rand.Read(key)
	return key
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}
