package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ticket-ledger/internal/kvstore"
)

// NewStore returns a BunStore backed by an in-memory SQLite database with a
// fresh records table.
func NewStore(t *testing.T) *kvstore.BunStore {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	if err != nil {
		t.Fatalf("Failed to open in-memory sqlite: %v", err)
	}
	t.Cleanup(func() { sqldb.Close() })

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	if err := bunDB.ResetModel(context.Background(), (*kvstore.Record)(nil)); err != nil {
		t.Fatalf("Failed to reset records table: %v", err)
	}

	store, err := kvstore.NewBunStore(context.Background(), bunDB)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

// NopLocker satisfies lock interfaces without any real locking. Single-process
// tests don't contend across stores.
type NopLocker struct{}

func (NopLocker) AcquireTiers(ctx context.Context, token string) error        { return nil }
func (NopLocker) UnlockTiers(ctx context.Context, token string) error         { return nil }
func (NopLocker) AcquireTier(ctx context.Context, id int, token string) error { return nil }
func (NopLocker) UnlockTier(ctx context.Context, id int, token string) error  { return nil }
func (NopLocker) AcquireKey(ctx context.Context, key, token string) error     { return nil }
func (NopLocker) UnlockKey(ctx context.Context, key, token string) error      { return nil }
func (NopLocker) SeenTransfer(ctx context.Context, id string) (bool, error)   { return false, nil }
func (NopLocker) MarkTransfer(ctx context.Context, id string) error           { return nil }
