package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
	"golang.org/x/crypto/bcrypt"

	"github.com/JoCoor/flatfinder-client/internal/core/config"
	"github.com/JoCoor/flatfinder-client/internal/core/eventbus/testbus"
	"github.com/JoCoor/flatfinder-client/internal/core/session"
	"github.com/JoCoor/flatfinder-client/internal/data/db"
	"github.com/JoCoor/flatfinder-client/internal/data/stores"
	"github.com/JoCoor/flatfinder-client/internal/devserver"
	"github.com/JoCoor/flatfinder-client/internal/flatfinder"
	"github.com/JoCoor/flatfinder-client/internal/marketplace"
	"github.com/JoCoor/flatfinder-client/internal/tui"
	"github.com/JoCoor/flatfinder-client/pkg/tuitest"
)

const waitFor = 3 * time.Second

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	srv     *devserver.Server
	app     *flatfinder.App
	storage session.Storage
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	prev := isInteractive
	isInteractive = func() bool { return false }
	t.Cleanup(func() { isInteractive = prev })

	srv := devserver.New(devserver.Options{Logger: zerolog.Nop(), BcryptCost: bcrypt.MinCost})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	dataDir := t.TempDir()
	database, err := db.Open(dataDir, db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	storage := session.NewKVStorage(stores.NewKVStore(database))

	cfg := config.DefaultConfig()
	cfg.DataDir = dataDir
	cfg.API.BaseURL = ts.URL
	cfg.Realtime.URL = "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	cfg.Realtime.Origin = ts.URL
	cfg.Realtime.ReconnectDelay = 20 * time.Millisecond

	logger := zerolog.Nop()
	app, err := flatfinder.New(flatfinder.Deps{
		Config:  &cfg,
		Bus:     testbus.New(t).EventBus,
		Storage: storage,
		Logger:  &logger,
	})
	require.NoError(t, err)
	t.Cleanup(app.Close)

	return &harness{srv: srv, app: app, storage: storage}
}

func (h *harness) account(t *testing.T, email string, admin bool) marketplace.User {
	t.Helper()
	u, err := h.srv.CreateUser(marketplace.Registration{
		Email: email, Password: "pw", FirstName: "Ana", LastName: "Berg",
	}, admin)
	require.NoError(t, err)
	return u
}

// run executes the CLI with fresh command state and returns stdout.
func (h *harness) run(ctx context.Context, t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out syncBuffer
	err := h.runTo(ctx, &out, args...)
	return out.String(), err
}

func (h *harness) runTo(ctx context.Context, out *syncBuffer, args ...string) error {
	flags := &Flags{}
	root := RegisterAll(NewRoot(flags, "test"), flags, h.app)
	root.Writer = out
	root.ExitErrHandler = func(context.Context, *cli.Command, error) {}
	return root.Run(ctx, append([]string{"flatfinder"}, args...))
}

func (h *harness) login(t *testing.T, email string) {
	t.Helper()
	_, err := h.run(context.Background(), t, "login", "--email", email, "--password", "pw")
	require.NoError(t, err)
}

func TestLs_FiltersAndJSON(t *testing.T) {
	h := newHarness(t)
	owner := h.account(t, "owner@example.com", false)
	h.srv.CreateFlat(owner.ID, marketplace.FlatInput{City: "Graz", StreetName: "Annenstrasse", RentPrice: 700})
	h.srv.CreateFlat(owner.ID, marketplace.FlatInput{City: "Linz", StreetName: "Hauptplatz", RentPrice: 900})

	out, err := h.run(context.Background(), t, "ls", "--city", "graz", "--json")
	require.NoError(t, err)

	var flats []marketplace.Flat
	require.NoError(t, json.Unmarshal([]byte(out), &flats))
	require.Len(t, flats, 1)
	assert.Equal(t, "Graz", flats[0].City)
	assert.Equal(t, owner.ID, flats[0].Owner.ID)

	out, err = h.run(context.Background(), t, "ls")
	require.NoError(t, err)
	out = tuitest.StripANSI(out)
	assert.Contains(t, out, "ADDRESS")
	assert.Contains(t, out, "Hauptplatz, Linz")
}

func TestProtectedCommands_RequireLogin(t *testing.T) {
	h := newHarness(t)

	for _, args := range [][]string{
		{"fav", "ls"},
		{"whoami"},
		{"msg", "inbox"},
		{"add", "--city", "Graz", "--street", "x", "--rent", "1"},
	} {
		_, err := h.run(context.Background(), t, args...)
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "requires a login", args)
	}
	assert.Equal(t, "/login", h.app.Navigator.Current().Path)
}

func TestLogin_NonInteractiveNeedsCredentials(t *testing.T) {
	h := newHarness(t)
	h.account(t, "a@example.com", false)

	_, err := h.run(context.Background(), t, "login", "--email", "a@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--password")

	_, err = h.run(context.Background(), t, "login", "--email", "a@example.com", "--password", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestLoginWhoamiLogout(t *testing.T) {
	h := newHarness(t)
	u := h.account(t, "a@example.com", false)
	h.login(t, "a@example.com")

	out, err := h.run(context.Background(), t, "whoami", "--json")
	require.NoError(t, err)

	var got struct {
		ID        string     `json:"_id"`
		Email     string     `json:"email"`
		ExpiresAt *time.Time `json:"expiresAt"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "a@example.com", got.Email)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, got.ExpiresAt.After(time.Now()))

	_, err = h.run(context.Background(), t, "logout")
	require.NoError(t, err)
	_, _, ok := h.app.Session.Current()
	assert.False(t, ok)
}

func TestAddShowEditRemove(t *testing.T) {
	h := newHarness(t)
	h.account(t, "owner@example.com", false)
	h.login(t, "owner@example.com")

	out, err := h.run(context.Background(), t, "add",
		"--city", "Graz", "--street", "Annenstrasse", "--number", "12",
		"--area", "54", "--rent", "790", "--available", "2026-11-01", "--json")
	require.NoError(t, err)

	var created marketplace.Flat
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	require.NotEmpty(t, created.ID)

	out, err = h.run(context.Background(), t, "show", created.ID, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"streetName": "Annenstrasse"`)

	_, err = h.run(context.Background(), t, "edit", created.ID, "--city", "Graz", "--street", "Annenstrasse", "--rent", "820", "--json")
	require.NoError(t, err)
	flat, err := h.app.API.Flat(context.Background(), created.ID)
	require.NoError(t, err)
	assert.InDelta(t, 820, flat.RentPrice, 0.001)

	_, err = h.run(context.Background(), t, "rm", created.ID)
	require.NoError(t, err)
	_, err = h.app.API.Flat(context.Background(), created.ID)
	require.Error(t, err)
}

func TestAdd_RejectsInvalidInput(t *testing.T) {
	h := newHarness(t)
	h.account(t, "owner@example.com", false)
	h.login(t, "owner@example.com")

	_, err := h.run(context.Background(), t, "add", "--city", "Graz", "--street", "x", "--rent", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rent price")

	_, err = h.run(context.Background(), t, "add", "--city", "Graz", "--street", "x", "--rent", "5", "--available", "next week")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YYYY-MM-DD")
}

func TestFavToggle(t *testing.T) {
	h := newHarness(t)
	owner := h.account(t, "owner@example.com", false)
	flat := h.srv.CreateFlat(owner.ID, marketplace.FlatInput{City: "Graz", StreetName: "Annenstrasse", RentPrice: 700})
	h.account(t, "tenant@example.com", false)
	h.login(t, "tenant@example.com")

	_, err := h.run(context.Background(), t, "fav", "toggle", flat.ID)
	require.NoError(t, err)

	out, err := h.run(context.Background(), t, "fav", "ls", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, flat.ID)

	_, err = h.run(context.Background(), t, "fav", "toggle", flat.ID)
	require.NoError(t, err)
	out, err = h.run(context.Background(), t, "fav", "ls", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestMessaging_SendInboxRead(t *testing.T) {
	h := newHarness(t)
	owner := h.account(t, "owner@example.com", false)
	tenant := h.account(t, "tenant@example.com", false)
	flat := h.srv.CreateFlat(owner.ID, marketplace.FlatInput{City: "Graz", StreetName: "Annenstrasse", RentPrice: 700})

	h.login(t, "tenant@example.com")
	_, err := h.run(context.Background(), t, "msg", "send", flat.ID, "is", "it", "still", "free?")
	require.NoError(t, err)

	out, err := h.run(context.Background(), t, "msg", "mine")
	require.NoError(t, err)
	out = tuitest.StripANSI(out)
	assert.Contains(t, out, "Annenstrasse, Graz")
	assert.Contains(t, out, "you: is it still free?")

	h.login(t, "owner@example.com")
	out, err = h.run(context.Background(), t, "msg", "inbox", "--json")
	require.NoError(t, err)
	var inbox []marketplace.Message
	require.NoError(t, json.Unmarshal([]byte(out), &inbox))
	require.Len(t, inbox, 1)
	assert.Equal(t, tenant.ID, inbox[0].Sender.ID)
	assert.False(t, inbox[0].IsRead)

	_, err = h.run(context.Background(), t, "msg", "read", flat.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, h.app.Unread.Count())

	out, err = h.run(context.Background(), t, "msg", "inbox", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out, "read messages are hidden without --all")

	out, err = h.run(context.Background(), t, "msg", "inbox", "--all", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"isRead": true`)
}

func TestAdmin_RequiresAdministrator(t *testing.T) {
	h := newHarness(t)
	h.account(t, "a@example.com", false)
	h.login(t, "a@example.com")

	_, err := h.run(context.Background(), t, "admin", "users", "ls")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires an administrator account")
	assert.Equal(t, "/", h.app.Navigator.Current().Path)
}

func TestAdmin_ManageUsers(t *testing.T) {
	h := newHarness(t)
	admin := h.account(t, "root@example.com", true)
	other := h.account(t, "b@example.com", false)
	h.login(t, "root@example.com")

	out, err := h.run(context.Background(), t, "admin", "users", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "b@example.com")

	_, err = h.run(context.Background(), t, "admin", "users", "edit", other.ID, "--admin")
	require.NoError(t, err)
	users, err := h.app.API.Users(context.Background())
	require.NoError(t, err)
	for _, u := range users {
		if u.ID == other.ID {
			assert.True(t, u.IsAdmin)
		}
	}

	_, err = h.run(context.Background(), t, "admin", "users", "edit", other.ID)
	require.Error(t, err, "no fields")

	_, err = h.run(context.Background(), t, "admin", "users", "rm", admin.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refusing")

	_, err = h.run(context.Background(), t, "admin", "users", "rm", other.ID)
	require.NoError(t, err)
}

func TestWatch_StreamsNotifications(t *testing.T) {
	h := newHarness(t)
	owner := h.account(t, "owner@example.com", false)
	tenant := h.account(t, "tenant@example.com", false)
	flat := h.srv.CreateFlat(owner.ID, marketplace.FlatInput{City: "Graz", StreetName: "Annenstrasse", RentPrice: 700})
	h.login(t, "owner@example.com")
	require.Eventually(t, func() bool { return h.srv.RoomMembers(owner.ID) > 0 }, waitFor, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- h.runTo(ctx, &out, "watch", "--json") }()

	// The feed attaches asynchronously; keep sending until one is seen.
	require.Eventually(t, func() bool {
		if _, ok := h.srv.SendMessage(flat.ID, tenant.ID, "hello"); !ok {
			return false
		}
		return strings.Contains(out.String(), `"kind":"message"`)
	}, waitFor, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("watch did not stop")
	}

	var first tui.Entry
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		var e tui.Entry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		if e.Kind == tui.KindMessage {
			first = e
			break
		}
	}
	assert.Equal(t, flat.ID, first.FlatID)
	assert.Equal(t, tenant.ID, first.SenderID)
}

func TestWatch_EndsWhenAnotherProcessLogsOut(t *testing.T) {
	h := newHarness(t)
	h.account(t, "owner@example.com", false)
	h.login(t, "owner@example.com")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out syncBuffer
	done := make(chan error, 1)
	go func() { done <- h.runTo(ctx, &out, "watch", "--json") }()

	// A second store on the same database stands in for another terminal.
	// Each attempt writes before clearing so the database file changes even
	// if the watcher was not running yet.
	other := session.NewStore(h.storage, zerolog.Nop())
	stranger := session.Identity{ID: "someone-else", Email: "else@example.com"}
	require.Eventually(t, func() bool {
		if err := other.SetIdentity(context.Background(), stranger, "t2"); err != nil {
			return false
		}
		other.Clear(context.Background())
		return strings.Contains(out.String(), `"kind":"session-ended"`)
	}, waitFor, 200*time.Millisecond)

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no longer valid")
	case <-time.After(waitFor):
		t.Fatal("watch did not stop")
	}
}

func TestDoctor_JSON(t *testing.T) {
	h := newHarness(t)
	h.account(t, "a@example.com", false)
	h.login(t, "a@example.com")

	out, err := h.run(context.Background(), t, "doctor", "--format", "json")
	require.NoError(t, err)

	var report struct {
		Healthy bool `json:"healthy"`
		Checks  []struct {
			Name string `json:"name"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Healthy, out)
	assert.Len(t, report.Checks, 4)
}

func TestExplain(t *testing.T) {
	assert.NoError(t, explain(nil))
	assert.Contains(t, explain(errSessionEnded).Error(), "flatfinder login")
}
