package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JoCoor/flatfinder-client/internal/core/kv"
)

// Persisted keys. Both hold string values.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Storage is a string-valued key-value store that survives process
// restarts.
type Storage interface {
	// GetItem returns the value for key and whether it exists.
	GetItem(ctx context.Context, key string) (string, bool, error)
	// SetItems writes all items together.
	SetItems(ctx context.Context, items map[string]string) error
	// RemoveItems deletes the given keys together.
	RemoveItems(ctx context.Context, keys ...string) error
}

// KVStorage adapts a kv.KV to Storage. Values are stored as JSON strings.
type KVStorage struct {
	kv kv.KV
}

// NewKVStorage wraps store.
func NewKVStorage(store kv.KV) *KVStorage {
	return &KVStorage{kv: store}
}

func (s *KVStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	entry, err := s.kv.GetRaw(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}

	var v string
	if err := json.Unmarshal(entry.Value, &v); err != nil {
		return "", false, fmt.Errorf("key %q does not hold a string: %w", key, err)
	}
	return v, true, nil
}

func (s *KVStorage) SetItems(ctx context.Context, items map[string]string) error {
	values := make(map[string]any, len(items))
	for k, v := range items {
		values[k] = v
	}
	return s.kv.SetMany(ctx, values)
}

func (s *KVStorage) RemoveItems(ctx context.Context, keys ...string) error {
	return s.kv.DeleteMany(ctx, keys...)
}
