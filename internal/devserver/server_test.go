package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/JoCoor/flatfinder-client/internal/core/realtime"
	"github.com/JoCoor/flatfinder-client/internal/marketplace"
)

type harness struct {
	srv  *Server
	http *httptest.Server
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := New(Options{Logger: zerolog.Nop(), BcryptCost: bcrypt.MinCost})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &harness{srv: srv, http: ts}
}

func (h *harness) call(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()

	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, h.http.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := h.http.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (h *harness) user(t *testing.T, email string, admin bool) (marketplace.User, string) {
	t.Helper()
	u, err := h.srv.CreateUser(marketplace.Registration{Email: email, Password: "pw", FirstName: strings.Split(email, "@")[0]}, admin)
	require.NoError(t, err)

	var res marketplace.LoginResult
	status := h.call(t, http.MethodPost, "/users/login", "", marketplace.Credentials{Email: email, Password: "pw"}, &res)
	require.Equal(t, http.StatusOK, status)
	return u, res.Token
}

func TestRegisterAndLogin(t *testing.T) {
	h := newHarness(t)

	reg := marketplace.Registration{Email: "New@Example.com", Password: "secret", FirstName: "New"}
	var created marketplace.User
	require.Equal(t, http.StatusCreated, h.call(t, http.MethodPost, "/users/register", "", reg, &created))
	assert.Equal(t, "new@example.com", created.Email)
	assert.NotEmpty(t, created.ID)

	assert.Equal(t, http.StatusConflict, h.call(t, http.MethodPost, "/users/register", "", reg, nil))

	var res marketplace.LoginResult
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPost, "/users/login", "",
		marketplace.Credentials{Email: "new@example.com", Password: "secret"}, &res))
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, created.ID, res.User.ID)

	assert.Equal(t, http.StatusUnauthorized, h.call(t, http.MethodPost, "/users/login", "",
		marketplace.Credentials{Email: "new@example.com", Password: "wrong"}, nil))
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t)
	_, token := h.user(t, "a@example.com", false)

	assert.Equal(t, http.StatusUnauthorized, h.call(t, http.MethodGet, "/users/favorites", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, h.call(t, http.MethodGet, "/users/favorites", "garbage", nil, nil))
	assert.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/users/favorites", token, nil, nil))

	h.srv.RevokeAll()
	assert.Equal(t, http.StatusUnauthorized, h.call(t, http.MethodGet, "/users/favorites", token, nil, nil))
}

func TestAdminRoutes(t *testing.T) {
	h := newHarness(t)
	member, memberToken := h.user(t, "m@example.com", false)
	_, adminToken := h.user(t, "boss@example.com", true)

	assert.Equal(t, http.StatusForbidden, h.call(t, http.MethodGet, "/users/", memberToken, nil, nil))

	var users []marketplace.User
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/users/", adminToken, nil, &users))
	assert.Len(t, users, 2)

	h.srv.CreateFlat(member.ID, marketplace.FlatInput{City: "Porto", StreetName: "Rua"})
	require.Equal(t, http.StatusNoContent, h.call(t, http.MethodDelete, "/users/"+member.ID, adminToken, nil, nil))
	assert.Equal(t, 0, h.srv.flats.Len(), "owned flats are removed with the user")
	assert.Equal(t, http.StatusUnauthorized, h.call(t, http.MethodGet, "/users/favorites", memberToken, nil, nil))
}

func TestUpdateUser(t *testing.T) {
	h := newHarness(t)
	me, token := h.user(t, "me@example.com", false)
	other, _ := h.user(t, "other@example.com", false)

	admin := true
	var updated marketplace.User
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPatch, "/users/"+me.ID, token,
		marketplace.UserUpdate{FirstName: "Renamed", IsAdmin: &admin}, &updated))
	assert.Equal(t, "Renamed", updated.FirstName)
	assert.False(t, updated.IsAdmin, "members cannot promote themselves")

	assert.Equal(t, http.StatusForbidden, h.call(t, http.MethodPatch, "/users/"+other.ID, token,
		marketplace.UserUpdate{FirstName: "x"}, nil))
}

func TestFlatsFilterAndOwnership(t *testing.T) {
	h := newHarness(t)
	owner, ownerToken := h.user(t, "o@example.com", false)
	_, otherToken := h.user(t, "x@example.com", false)

	h.srv.CreateFlat(owner.ID, marketplace.FlatInput{City: "Lisbon", StreetName: "A", AreaSize: 40, RentPrice: 900, HasAC: true, YearBuilt: 2010})
	cheap := h.srv.CreateFlat(owner.ID, marketplace.FlatInput{City: "Lisbon", StreetName: "B", AreaSize: 30, RentPrice: 500, YearBuilt: 1990})
	h.srv.CreateFlat(owner.ID, marketplace.FlatInput{City: "Porto", StreetName: "C", AreaSize: 80, RentPrice: 700, HasAC: true, YearBuilt: 2020})

	var flats []marketplace.Flat
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/flats/?city=lis", "", nil, &flats))
	require.Len(t, flats, 2)
	assert.Equal(t, cheap.ID, flats[0].ID, "sorted by price within a city")
	assert.Equal(t, owner.ID, flats[0].Owner.ID)
	assert.Equal(t, "o", flats[0].Owner.FirstName)

	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/flats/?hasAc=true&minYear=2015", "", nil, &flats))
	require.Len(t, flats, 1)
	assert.Equal(t, "Porto", flats[0].City)

	assert.Equal(t, http.StatusForbidden, h.call(t, http.MethodDelete, "/flats/"+cheap.ID, otherToken, nil, nil))
	assert.Equal(t, http.StatusNoContent, h.call(t, http.MethodDelete, "/flats/"+cheap.ID, ownerToken, nil, nil))
	assert.Equal(t, http.StatusNotFound, h.call(t, http.MethodGet, "/flats/"+cheap.ID, "", nil, nil))

	assert.Equal(t, http.StatusBadRequest, h.call(t, http.MethodPost, "/flats/", ownerToken, marketplace.FlatInput{City: "Faro"}, nil))
}

func TestFavoritesToggle(t *testing.T) {
	h := newHarness(t)
	owner, _ := h.user(t, "o@example.com", false)
	_, token := h.user(t, "fan@example.com", false)
	flat := h.srv.CreateFlat(owner.ID, marketplace.FlatInput{City: "Braga", StreetName: "D"})

	var ids []string
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPatch, "/users/favorites/"+flat.ID, token, nil, &ids))
	assert.Equal(t, []string{flat.ID}, ids)

	var favs []marketplace.Flat
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/users/favorites", token, nil, &favs))
	require.Len(t, favs, 1)
	assert.Equal(t, "Braga", favs[0].City)

	require.Equal(t, http.StatusOK, h.call(t, http.MethodPatch, "/users/favorites/"+flat.ID, token, nil, &ids))
	assert.Empty(t, ids)

	assert.Equal(t, http.StatusNotFound, h.call(t, http.MethodPatch, "/users/favorites/missing", token, nil, nil))
}

func TestMessagesConversationAndRead(t *testing.T) {
	h := newHarness(t)
	owner, ownerToken := h.user(t, "o@example.com", false)
	guest, guestToken := h.user(t, "g@example.com", false)
	_, strangerToken := h.user(t, "s@example.com", false)
	flat := h.srv.CreateFlat(owner.ID, marketplace.FlatInput{City: "Coimbra", StreetName: "E"})

	var sent marketplace.Message
	require.Equal(t, http.StatusCreated, h.call(t, http.MethodPost, "/flats/"+flat.ID+"/messages", guestToken,
		map[string]string{"content": "Is it available?"}, &sent))
	assert.Equal(t, guest.ID, sent.Sender.ID)
	assert.Equal(t, flat.ID, sent.Flat.ID)
	assert.True(t, sent.IsRead, "own messages are read")

	assert.Equal(t, http.StatusBadRequest, h.call(t, http.MethodPost, "/flats/"+flat.ID+"/messages", guestToken,
		map[string]string{"content": "  "}, nil))

	var inbox []marketplace.Message
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/flats/"+flat.ID+"/messages", ownerToken, nil, &inbox))
	require.Len(t, inbox, 1)
	assert.False(t, inbox[0].IsRead)
	assert.Equal(t, http.StatusForbidden, h.call(t, http.MethodGet, "/flats/"+flat.ID+"/messages", guestToken, nil, nil))

	var conv []marketplace.Message
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/users/"+flat.ID+"/conversation", guestToken, nil, &conv))
	assert.Len(t, conv, 1)
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/users/"+flat.ID+"/conversation", strangerToken, nil, &conv))
	assert.Empty(t, conv)

	var mine []marketplace.Message
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/users/messages", guestToken, nil, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, "Coimbra", mine[0].Flat.City, "flat is populated")

	var marked map[string]int
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPatch, "/flats/"+flat.ID+"/messages/read", ownerToken, nil, &marked))
	assert.Equal(t, 1, marked["marked"])
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/flats/"+flat.ID+"/messages", ownerToken, nil, &inbox))
	assert.True(t, inbox[0].IsRead)

	assert.Equal(t, http.StatusForbidden, h.call(t, http.MethodPatch, "/flats/"+flat.ID+"/messages/read", strangerToken, nil, nil))
}

func dialPush(t *testing.T, h *harness, token string) realtime.Conn {
	t.Helper()
	tr := &realtime.WebSocketTransport{
		URL:   "ws" + strings.TrimPrefix(h.http.URL, "http") + "/ws",
		Token: func() string { return token },
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := tr.Dial(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func join(t *testing.T, h *harness, conn realtime.Conn, userID string) {
	t.Helper()
	f, err := realtime.NewFrame(realtime.DefaultJoinEvent, userID)
	require.NoError(t, err)
	require.NoError(t, conn.Send(f))
	require.Eventually(t, func() bool { return h.srv.RoomMembers(userID) > 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestPushReachesParticipants(t *testing.T) {
	h := newHarness(t)
	owner, ownerToken := h.user(t, "o@example.com", false)
	guest, guestToken := h.user(t, "g@example.com", false)
	flat := h.srv.CreateFlat(owner.ID, marketplace.FlatInput{City: "Evora", StreetName: "F"})

	ownerConn := dialPush(t, h, ownerToken)
	join(t, h, ownerConn, owner.ID)
	guestConn := dialPush(t, h, guestToken)
	join(t, h, guestConn, guest.ID)

	_, ok := h.srv.SendMessage(flat.ID, guest.ID, "hello")
	require.True(t, ok)

	for _, conn := range []realtime.Conn{ownerConn, guestConn} {
		f, err := conn.Receive()
		require.NoError(t, err)
		assert.Equal(t, realtime.DefaultMessageEvent, f.Type)

		var ev realtime.Event
		require.NoError(t, json.Unmarshal(f.Payload, &ev))
		assert.Equal(t, realtime.Event{FlatID: flat.ID, SenderID: guest.ID}, ev)
	}
}

func TestPushRefusesForeignRoom(t *testing.T) {
	h := newHarness(t)
	_, token := h.user(t, "a@example.com", false)
	victim, _ := h.user(t, "b@example.com", false)

	conn := dialPush(t, h, token)
	f, err := realtime.NewFrame(realtime.DefaultJoinEvent, victim.ID)
	require.NoError(t, err)
	require.NoError(t, conn.Send(f))

	_, err = conn.Receive()
	require.Error(t, err, "server closes the connection")
	assert.Equal(t, 0, h.srv.RoomMembers(victim.ID))
}

func TestPushLeavesRoomOnDisconnect(t *testing.T) {
	h := newHarness(t)
	u, token := h.user(t, "a@example.com", false)

	conn := dialPush(t, h, token)
	join(t, h, conn, u.ID)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return h.srv.RoomMembers(u.ID) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSeed(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.srv.Seed())

	var res marketplace.LoginResult
	require.Equal(t, http.StatusOK, h.call(t, http.MethodPost, "/users/login", "",
		marketplace.Credentials{Email: "admin@flatfinder.local", Password: SeedPassword}, &res))
	assert.True(t, res.User.IsAdmin)

	var flats []marketplace.Flat
	require.Equal(t, http.StatusOK, h.call(t, http.MethodGet, "/flats/", "", nil, &flats))
	assert.Len(t, flats, 3)

	assert.Error(t, h.srv.Seed(), "seeding twice collides on email")
}
