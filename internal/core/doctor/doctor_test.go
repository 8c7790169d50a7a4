package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoCoor/flatfinder-client/internal/core/config"
	"github.com/JoCoor/flatfinder-client/internal/core/realtime"
	"github.com/JoCoor/flatfinder-client/internal/core/session"
)

type staticCheck struct {
	name  string
	items []CheckItem
}

func (c staticCheck) Name() string { return c.name }
func (c staticCheck) Run(context.Context) Result {
	return Result{Name: c.name, Items: append([]CheckItem(nil), c.items...)}
}

func TestRunAllAndSummary(t *testing.T) {
	results := RunAll(context.Background(), []Check{
		staticCheck{name: "a", items: []CheckItem{{Label: "x", Status: StatusPass}, {Label: "y", Status: StatusWarn, Fixable: true}}},
		staticCheck{name: "b", items: []CheckItem{{Label: "z", Status: StatusFail}, {Label: "w", Status: StatusPass, Fixable: true}}},
	})

	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Name, "order follows the checks")
	assert.Equal(t, "b", results[1].Name)

	bits, err := json.Marshal(results[0].Items[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"label":"y","status":"warn","fixable":true}`, string(bits))

	passed, warned, failed := Summary(results)
	assert.Equal(t, 2, passed)
	assert.Equal(t, 1, warned)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, CountFixable(results), "passing items are never fixable")
}

func TestConfigCheck(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	result := NewConfigCheck(&cfg, "").Run(context.Background())
	for _, item := range result.Items {
		assert.Equal(t, StatusPass, item.Status, item.Label)
	}

	cfg.Realtime.URL = "http://nope"
	result = NewConfigCheck(&cfg, "").Run(context.Background())
	require.Len(t, result.Items, 1)
	assert.Equal(t, "realtime.url", result.Items[0].Label)
	assert.Equal(t, StatusFail, result.Items[0].Status)
}

func TestConfigCheck_DataDirIsFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(cfg.DataDir, nil, 0o644))

	result := NewConfigCheck(&cfg, "").Run(context.Background())
	require.Len(t, result.Items, 1)
	assert.Equal(t, "data_dir", result.Items[0].Label)
}

type memStorage struct {
	mu    sync.Mutex
	items map[string]string
	err   error
}

func (m *memStorage) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memStorage) SetItems(_ context.Context, items map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range items {
		m.items[k] = v
	}
	return nil
}

func (m *memStorage) RemoveItems(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

func persisted(t *testing.T, token string) *memStorage {
	t.Helper()
	user, err := json.Marshal(session.Identity{ID: "u1", Email: "u1@example.com"})
	require.NoError(t, err)
	return &memStorage{items: map[string]string{session.KeyToken: token, session.KeyUser: string(user)}}
}

func jwtExpiring(t *testing.T, exp time.Time) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	return s
}

func TestSessionCheck(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		storage  *memStorage
		autofix  bool
		statuses []Status
		cleared  bool
	}{
		{
			name:     "logged out",
			storage:  &memStorage{items: map[string]string{}},
			statuses: []Status{StatusPass},
		},
		{
			name:     "valid token",
			storage:  persisted(t, jwtExpiring(t, now.Add(time.Hour))),
			statuses: []Status{StatusPass, StatusPass},
		},
		{
			name:     "opaque token",
			storage:  persisted(t, "opaque"),
			statuses: []Status{StatusPass, StatusWarn},
		},
		{
			name:     "expired token",
			storage:  persisted(t, jwtExpiring(t, now.Add(-time.Hour))),
			statuses: []Status{StatusPass, StatusWarn},
		},
		{
			name:     "expired token with autofix",
			storage:  persisted(t, jwtExpiring(t, now.Add(-time.Hour))),
			autofix:  true,
			statuses: []Status{StatusPass, StatusPass},
			cleared:  true,
		},
		{
			name:     "token without user",
			storage:  &memStorage{items: map[string]string{session.KeyToken: "abc"}},
			statuses: []Status{StatusWarn},
		},
		{
			name:     "storage error",
			storage:  &memStorage{err: errors.New("disk gone")},
			statuses: []Status{StatusFail},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := NewSessionCheck(tt.storage, tt.autofix)
			check.now = func() time.Time { return now }

			result := check.Run(context.Background())

			got := make([]Status, 0, len(result.Items))
			for _, item := range result.Items {
				got = append(got, item.Status)
			}
			assert.Equal(t, tt.statuses, got)

			if tt.cleared {
				assert.Empty(t, tt.storage.items)
			}
		})
	}
}

func TestAPICheck(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	t.Cleanup(ok.Close)
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(broken.Close)

	assert.Equal(t, StatusPass, NewAPICheck(ok.URL, nil).Run(context.Background()).Items[0].Status)
	assert.Equal(t, StatusWarn, NewAPICheck(broken.URL, nil).Run(context.Background()).Items[0].Status)

	down := httptest.NewServer(http.NotFoundHandler())
	url := down.URL
	down.Close()
	result := NewAPICheck(url, nil).Run(context.Background())
	assert.Equal(t, StatusFail, result.Items[0].Status)
	assert.Contains(t, result.Items[0].Detail, "unreachable")
}

type dialFunc func(ctx context.Context) (realtime.Conn, error)

func (f dialFunc) Dial(ctx context.Context) (realtime.Conn, error) { return f(ctx) }
func (dialFunc) ReconnectDelay() time.Duration                     { return 0 }

type nopConn struct{ closed bool }

func (c *nopConn) Send(realtime.Frame) error        { return nil }
func (c *nopConn) Receive() (realtime.Frame, error) { return realtime.Frame{}, errors.New("eof") }
func (c *nopConn) Close() error                     { c.closed = true; return nil }

func TestPushCheck(t *testing.T) {
	cfg := config.DefaultConfig().Realtime

	conn := &nopConn{}
	result := NewPushCheck(cfg, dialFunc(func(context.Context) (realtime.Conn, error) { return conn, nil })).Run(context.Background())
	assert.Equal(t, StatusPass, result.Items[0].Status)
	assert.True(t, conn.closed)

	result = NewPushCheck(cfg, dialFunc(func(context.Context) (realtime.Conn, error) {
		return nil, errors.New("refused")
	})).Run(context.Background())
	assert.Equal(t, StatusFail, result.Items[0].Status)

	cfg.Disabled = true
	result = NewPushCheck(cfg, nil).Run(context.Background())
	assert.Equal(t, StatusWarn, result.Items[0].Status)
}
