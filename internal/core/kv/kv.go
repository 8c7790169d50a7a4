// Package kv defines the persistent key-value contract used for client-side
// state that must survive process restarts.
package kv

import (
	"context"
	"encoding/json"
	"time"
)

// Entry represents a raw KV entry with metadata.
type Entry struct {
	Key       string
	Value     json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// KV is the interface for a persistent key-value store.
// Keys are strings, values are JSON-serializable.
// Get on a missing key returns an error wrapping sql.ErrNoRows.
type KV interface {
	Get(ctx context.Context, key string, dest any) error
	GetRaw(ctx context.Context, key string) (Entry, error)
	Set(ctx context.Context, key string, value any) error
	// SetMany writes all items in one transaction; either every key is
	// written or none is.
	SetMany(ctx context.Context, items map[string]any) error
	Delete(ctx context.Context, key string) error
	// DeleteMany removes all keys in one transaction.
	DeleteMany(ctx context.Context, keys ...string) error
	Has(ctx context.Context, key string) (bool, error)
	ListKeys(ctx context.Context) ([]string, error)
}
