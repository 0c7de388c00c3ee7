package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-ledger/internal/ledger"
	"ticket-ledger/internal/models"
	"ticket-ledger/internal/testutil"
)

const owner = "277a995786d08939d43de937d2f054d7a460f2e7"

func newTestService(t *testing.T) *ledger.Service {
	t.Helper()
	return ledger.NewService(testutil.NewStore(t), testutil.NopLocker{}, owner)
}

func TestDeployOnceOnly(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	t0 := time.Now().Unix()

	err := svc.Deploy(ctx, owner, "Concert", t0, 100)
	require.NoError(t, err)

	event, err := svc.Event(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Concert", event.Name)
	assert.Equal(t, t0, event.StartTime)
	assert.Equal(t, int64(100), event.TotalTicketSlots)

	// Repeating the deploy for the same owner fails.
	err = svc.Deploy(ctx, owner, "Concert", t0, 100)
	assert.True(t, errors.Is(err, models.ErrAlreadyDeployed))
}

func TestDeployRequiresOwner(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.Deploy(ctx, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "Concert", 0, 100)
	assert.True(t, errors.Is(err, models.ErrUnauthorized))

	_, err = svc.Event(ctx)
	assert.True(t, errors.Is(err, models.ErrNotFound), "rejected deploy must not persist")
}

func TestAddTierAndRemaining(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.AddTier(ctx, owner, "VIP", 50, 10)
	require.NoError(t, err)

	left, err := svc.RemainingTickets(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), left)

	// Reads are pure: repeating returns the same value.
	left, err = svc.RemainingTickets(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), left)
}

func TestAddTierRequiresOwner(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	err := svc.AddTier(ctx, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "VIP", 50, 10)
	assert.True(t, errors.Is(err, models.ErrUnauthorized))
}

func TestAddTierAllowsDuplicateLabels(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.AddTier(ctx, owner, "VIP", 50, 10))
	require.NoError(t, svc.AddTier(ctx, owner, "VIP", 75, 5))

	count, err := svc.TierCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRemainingTicketsOutOfRange(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// No tier list at all.
	_, err := svc.RemainingTickets(ctx, 0)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	require.NoError(t, svc.AddTier(ctx, owner, "VIP", 50, 10))

	_, err = svc.RemainingTickets(ctx, 1)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	_, err = svc.RemainingTickets(ctx, -1)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestAllTickets(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.AllTickets(ctx)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	require.NoError(t, svc.AddTier(ctx, owner, "Simple", 20, 100))
	require.NoError(t, svc.AddTier(ctx, owner, "VIP", 50, 10))

	infos, err := svc.AllTickets(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	assert.Equal(t, "Simple", infos[0].Label)
	assert.Equal(t, int64(20), infos[0].UnitPrice)
	assert.Equal(t, int64(100), infos[0].TotalSupply)
	assert.Equal(t, int64(100), infos[0].Remaining)

	assert.Equal(t, "VIP", infos[1].Label)
	assert.Equal(t, int64(10), infos[1].Remaining)
}

func TestAddTierValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.True(t, errors.Is(svc.AddTier(ctx, owner, "", 50, 10), models.ErrValidation))
	assert.True(t, errors.Is(svc.AddTier(ctx, owner, "VIP", -1, 10), models.ErrValidation))
	assert.True(t, errors.Is(svc.AddTier(ctx, owner, "VIP", 50, -1), models.ErrValidation))
}
