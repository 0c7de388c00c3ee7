package kvstore_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ticket-ledger/internal/kvstore"
	"ticket-ledger/internal/models"
)

func setupTestStore(t *testing.T) *kvstore.BunStore {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	err = bunDB.ResetModel(context.Background(), (*kvstore.Record)(nil))
	require.NoError(t, err)

	store, err := kvstore.NewBunStore(context.Background(), bunDB)
	require.NoError(t, err)
	return store
}

func TestPutGetDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	err = store.Put(ctx, "event:abc", []byte(`{"name":"Concert"}`))
	require.NoError(t, err)

	raw, err := store.Get(ctx, "event:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"name":"Concert"}`), raw)

	// Put on an existing key overwrites.
	err = store.Put(ctx, "event:abc", []byte(`{"name":"Festival"}`))
	require.NoError(t, err)

	raw, err = store.Get(ctx, "event:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"name":"Festival"}`), raw)

	err = store.Delete(ctx, "event:abc")
	require.NoError(t, err)

	_, err = store.Get(ctx, "event:abc")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestTierRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tier := models.Tier{Label: "VIP", UnitPrice: 50, TotalSupply: 10, Sold: 3}
	err := kvstore.PutJSON(ctx, store, kvstore.TierKey(0), tier)
	require.NoError(t, err)

	var got models.Tier
	err = kvstore.GetJSON(ctx, store, kvstore.TierKey(0), &got)
	require.NoError(t, err)
	assert.Equal(t, tier, got)
}

func TestGetInt64DefaultsToZero(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	n, err := kvstore.GetInt64(ctx, store, kvstore.KeyOwnerIncome)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	err = kvstore.PutInt64(ctx, store, kvstore.KeyOwnerIncome, 150)
	require.NoError(t, err)

	n, err = kvstore.GetInt64(ctx, store, kvstore.KeyOwnerIncome)
	require.NoError(t, err)
	assert.Equal(t, int64(150), n)
}

func TestRunInTxCommitsAtomically(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.RunInTx(ctx, func(tx kvstore.Store) error {
		if err := tx.Put(ctx, "a", []byte("1")); err != nil {
			return err
		}
		return tx.Put(ctx, "b", []byte("2"))
	})
	require.NoError(t, err)

	a, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), a)

	// A failing transaction leaves no trace.
	err = store.RunInTx(ctx, func(tx kvstore.Store) error {
		if err := tx.Put(ctx, "c", []byte("3")); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	_, err = store.Get(ctx, "c")
	assert.True(t, errors.Is(err, models.ErrNotFound))
}
