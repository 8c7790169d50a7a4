package kv_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/JoCoor/flatfinder-client/internal/core/kv"
	"github.com/JoCoor/flatfinder-client/internal/data/db"
	"github.com/JoCoor/flatfinder-client/internal/data/stores"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKV(t *testing.T) kv.KV {
	t.Helper()
	database, err := db.Open(t.TempDir(), db.DefaultOpenOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return stores.NewKVStore(database)
}

func TestKV_SetManyIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := newTestKV(t)

	// A channel cannot be JSON encoded, so the whole batch must be rejected.
	err := store.SetMany(ctx, map[string]any{
		"token": "abc",
		"user":  make(chan int),
	})
	require.Error(t, err)

	has, err := store.Has(ctx, "token")
	require.NoError(t, err)
	assert.False(t, has, "no key may be written when the batch fails")
}

func TestKV_DeleteManyMissingKeys(t *testing.T) {
	ctx := context.Background()
	store := newTestKV(t)

	require.NoError(t, store.Set(ctx, "token", "abc"))
	require.NoError(t, store.DeleteMany(ctx, "token", "user"))

	var got string
	err := store.Get(ctx, "token", &got)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestKV_GetRawKeepsEncodedValue(t *testing.T) {
	ctx := context.Background()
	store := newTestKV(t)

	require.NoError(t, store.Set(ctx, "user", `{"_id":"u1"}`))

	entry, err := store.GetRaw(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, "user", entry.Key)
	assert.JSONEq(t, `"{\"_id\":\"u1\"}"`, string(entry.Value))
	assert.False(t, entry.CreatedAt.IsZero())
}
