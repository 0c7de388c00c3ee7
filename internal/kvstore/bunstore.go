package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ticket-ledger/internal/models"
)

// Record is the single table backing the ledger's key-value namespace.
type Record struct {
	bun.BaseModel `bun:"table:records"`

	Key       string    `bun:"key,pk"`
	Value     []byte    `bun:"value"`
	UpdatedAt time.Time `bun:"updated_at"`
}

// BunStore implements Store on top of a bun database (sqlite or postgres).
type BunStore struct {
	db  *bun.DB
	idb bun.IDB
}

// NewBunStore wraps an open bun database and ensures the records table exists.
func NewBunStore(ctx context.Context, db *bun.DB) (*BunStore, error) {
	if _, err := db.NewCreateTable().
		Model((*Record)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("create records table: %w", err)
	}
	return &BunStore{db: db, idb: db}, nil
}

func (s *BunStore) Get(ctx context.Context, key string) ([]byte, error) {
	var rec Record
	err := s.idb.NewSelect().
		Model(&rec).
		Where("key = ?", key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return rec.Value, nil
}

func (s *BunStore) Put(ctx context.Context, key string, value []byte) error {
	rec := Record{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	_, err := s.idb.NewInsert().
		Model(&rec).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *BunStore) Delete(ctx context.Context, key string) error {
	_, err := s.idb.NewDelete().
		Model((*Record)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// RunInTx executes fn against a transactional view of the store. Nested calls
// reuse the transaction already in flight.
func (s *BunStore) RunInTx(ctx context.Context, fn func(Store) error) error {
	if s.db == nil {
		// Already inside a transaction.
		return fn(s)
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(&BunStore{idb: tx})
	})
}
