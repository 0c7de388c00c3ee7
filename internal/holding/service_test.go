package holding_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-ledger/internal/holding"
	"ticket-ledger/internal/kvstore"
	"ticket-ledger/internal/ledger"
	"ticket-ledger/internal/models"
	"ticket-ledger/internal/testutil"
)

const (
	owner = "277a995786d08939d43de937d2f054d7a460f2e7"
	buyer = "8d4b4c14563417c69191e08be0b86ddcb4bc86c1"
)

func newTestService(t *testing.T) (*holding.Service, kvstore.Store) {
	t.Helper()

	store := testutil.NewStore(t)
	tiers := ledger.NewService(store, testutil.NopLocker{}, owner)
	require.NoError(t, tiers.AddTier(context.Background(), owner, "VIP", 50, 10))

	return holding.NewService(store, tiers, testutil.NopLocker{}), store
}

func putHolding(t *testing.T, store kvstore.Store, label, buyer string, h models.Holding) {
	t.Helper()
	key := kvstore.HoldingKey(holding.Key(label, buyer))
	require.NoError(t, kvstore.PutJSON(context.Background(), store, key, h))
}

func TestMyTicket(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.MyTicket(ctx, buyer, 0)
	assert.True(t, errors.Is(err, models.ErrNotFound), "no holding yet")

	putHolding(t, store, "VIP", buyer, models.Holding{Quantity: 3, Used: false})

	h, err := svc.MyTicket(ctx, buyer, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), h.Quantity)
	assert.False(t, h.Used)

	// Pure read: repeating returns the identical record.
	again, err := svc.MyTicket(ctx, buyer, 0)
	require.NoError(t, err)
	assert.Equal(t, h, again)
}

func TestMyTicketInvalidTier(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.MyTicket(context.Background(), buyer, 7)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestUseTicketOnceThenTerminal(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	putHolding(t, store, "VIP", buyer, models.Holding{Quantity: 2, Used: false})

	require.NoError(t, svc.UseTicket(ctx, buyer, 0))

	h, err := svc.MyTicket(ctx, buyer, 0)
	require.NoError(t, err)
	assert.True(t, h.Used)
	assert.Equal(t, int64(2), h.Quantity, "redemption does not consume quantity")

	// Immediate repetition fails, and keeps failing.
	err = svc.UseTicket(ctx, buyer, 0)
	assert.True(t, errors.Is(err, models.ErrAlreadyRedeemed))
	err = svc.UseTicket(ctx, buyer, 0)
	assert.True(t, errors.Is(err, models.ErrAlreadyRedeemed))
}

func TestUseTicketRequiresQuantity(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	err := svc.UseTicket(ctx, buyer, 0)
	assert.True(t, errors.Is(err, models.ErrNotFound), "no holding record")

	putHolding(t, store, "VIP", buyer, models.Holding{Quantity: 0, Used: false})
	err = svc.UseTicket(ctx, buyer, 0)
	assert.True(t, errors.Is(err, models.ErrNotFound), "zero quantity")
}

// mutexLocker serializes AcquireKey/UnlockKey in-process, standing in for
// the redis record lock.
type mutexLocker struct {
	testutil.NopLocker
	mu       sync.Mutex
	acquires int32
}

func (l *mutexLocker) AcquireKey(ctx context.Context, key, token string) error {
	l.mu.Lock()
	atomic.AddInt32(&l.acquires, 1)
	return nil
}

func (l *mutexLocker) UnlockKey(ctx context.Context, key, token string) error {
	l.mu.Unlock()
	return nil
}

func TestConcurrentRedemptionOnlyOneWins(t *testing.T) {
	store := testutil.NewStore(t)
	tiers := ledger.NewService(store, testutil.NopLocker{}, owner)
	require.NoError(t, tiers.AddTier(context.Background(), owner, "VIP", 50, 10))

	locker := &mutexLocker{}
	svc := holding.NewService(store, tiers, locker)

	putHolding(t, store, "VIP", buyer, models.Holding{Quantity: 2, Used: false})

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.UseTicket(context.Background(), buyer, 0)
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		if err == nil {
			succeeded++
		} else if errors.Is(err, models.ErrAlreadyRedeemed) {
			rejected++
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one redemption may win")
	assert.Equal(t, 1, rejected, "the loser must see the used flag")
	assert.Equal(t, int32(2), atomic.LoadInt32(&locker.acquires), "both calls must take the holding lock")
}

func TestHoldingKeyDistinctPerPair(t *testing.T) {
	assert.NotEqual(t, holding.Key("VIP", buyer), holding.Key("Simple", buyer))
	assert.NotEqual(t, holding.Key("VIP", buyer), holding.Key("VIP", owner))
	assert.Equal(t, holding.Key("VIP", buyer), holding.Key("VIP", buyer))
}
