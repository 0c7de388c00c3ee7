package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ticket-ledger/internal/models"
)

// Store is the typed wrapper over the raw key-value substrate. Get returns
// models.ErrNotFound when the key is absent. RunInTx runs fn against a Store
// whose writes commit atomically, so a purchase can mutate the tier record,
// the holding record and the income counter as one unit.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	RunInTx(ctx context.Context, fn func(Store) error) error
}

// GetJSON reads key and unmarshals it into out.
func GetJSON(ctx context.Context, s Store, key string, out interface{}) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode record %s: %w", key, err)
	}
	return nil
}

// PutJSON marshals v and writes it under key.
func PutJSON(ctx context.Context, s Store, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", key, err)
	}
	return s.Put(ctx, key, raw)
}

// GetInt64 reads an integer record, returning 0 when the key is absent.
func GetInt64(ctx context.Context, s Store, key string) (int64, error) {
	var n int64
	err := GetJSON(ctx, s, key, &n)
	if errors.Is(err, models.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

// PutInt64 writes an integer record.
func PutInt64(ctx context.Context, s Store, key string, n int64) error {
	return PutJSON(ctx, s, key, n)
}
