package dispatch_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ticket-ledger/internal/dispatch"
	"ticket-ledger/internal/holding"
	"ticket-ledger/internal/identity"
	"ticket-ledger/internal/ledger"
	"ticket-ledger/internal/models"
	"ticket-ledger/internal/testutil"
	"ticket-ledger/internal/withdraw"
)

const (
	ownerAddr = "277a995786d08939d43de937d2f054d7a460f2e7"
	buyerAddr = "8d4b4c14563417c69191e08be0b86ddcb4bc86c1"
)

type mockToken struct {
	mock.Mock
}

func (m *mockToken) Transfer(ctx context.Context, from, to string, amount int64) error {
	args := m.Called(ctx, from, to, amount)
	return args.Error(0)
}

func (m *mockToken) ContractAddress() string { return "c186bcb4dc6db8e08be09191c6173456144c4b8d" }
func (m *mockToken) Scale() int64            { return 100_000_000 }

func newDispatcher(t *testing.T) (*dispatch.Dispatcher, *mockToken) {
	t.Helper()

	store := testutil.NewStore(t)
	locker := &testutil.NopLocker{}
	token := new(mockToken)

	ledgerSvc := ledger.NewService(store, locker, ownerAddr)
	holdingSvc := holding.NewService(store, ledgerSvc, locker)
	identitySvc := identity.NewService(store)
	withdrawSvc := withdraw.NewService(token, ownerAddr)

	return dispatch.NewDispatcher(ledgerSvc, holdingSvc, identitySvc, withdrawSvc), token
}

func rawArgs(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestDeployThenAddTicketsThenInfo(t *testing.T) {
	d, _ := newDispatcher(t)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, ownerAddr, dispatch.Command{
		Op:   dispatch.OpDeploy,
		Args: rawArgs(t, dispatch.DeployArgs{EventName: "Concert", StartTime: 1000, TotalSlots: 100}),
	})
	require.NoError(t, err)

	_, err = d.Dispatch(ctx, ownerAddr, dispatch.Command{
		Op:   dispatch.OpAddTickets,
		Args: rawArgs(t, dispatch.AddTicketsArgs{Label: "VIP", UnitPrice: 50, TotalSupply: 10}),
	})
	require.NoError(t, err)

	left, err := d.Dispatch(ctx, buyerAddr, dispatch.Command{
		Op:   dispatch.OpCheckTicketsLeft,
		Args: rawArgs(t, dispatch.TierArgs{TierID: 0}),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), left)

	info, err := d.Dispatch(ctx, buyerAddr, dispatch.Command{Op: dispatch.OpGetTicketsInfo})
	require.NoError(t, err)
	ticketsInfo, ok := info.(dispatch.TicketsInfo)
	require.True(t, ok)
	assert.Equal(t, []string{"VIP"}, ticketsInfo.Labels)
	assert.Equal(t, []int64{50}, ticketsInfo.Prices)
	assert.Equal(t, []int64{10}, ticketsInfo.Totals)
	assert.Equal(t, []int64{10}, ticketsInfo.Remaining)
}

func TestOwnerOpsRejectNonOwnerCaller(t *testing.T) {
	d, _ := newDispatcher(t)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, buyerAddr, dispatch.Command{
		Op:   dispatch.OpDeploy,
		Args: rawArgs(t, dispatch.DeployArgs{EventName: "Concert", StartTime: 1000, TotalSlots: 100}),
	})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = d.Dispatch(ctx, buyerAddr, dispatch.Command{
		Op:   dispatch.OpOwnerWithdraw,
		Args: rawArgs(t, dispatch.OwnerWithdrawArgs{Amount: 5}),
	})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestUserWithdrawDelegatesToTokenService(t *testing.T) {
	d, token := newDispatcher(t)

	token.On("Transfer", mock.Anything, token.ContractAddress(), buyerAddr, int64(5)*token.Scale()).Return(nil)

	_, err := d.Dispatch(context.Background(), buyerAddr, dispatch.Command{
		Op:   dispatch.OpUserWithdraw,
		Args: rawArgs(t, dispatch.UserWithdrawArgs{UserAddress: buyerAddr, Amount: 5}),
	})
	require.NoError(t, err)
	token.AssertExpectations(t)
}

func TestUnknownOperationRejected(t *testing.T) {
	d, _ := newDispatcher(t)

	_, err := d.Dispatch(context.Background(), buyerAddr, dispatch.Command{Op: "mintTickets"})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestMissingArgsRejected(t *testing.T) {
	d, _ := newDispatcher(t)

	_, err := d.Dispatch(context.Background(), ownerAddr, dispatch.Command{Op: dispatch.OpDeploy})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestVerifyTicketsRequiresStoredProof(t *testing.T) {
	d, _ := newDispatcher(t)

	_, err := d.Dispatch(context.Background(), buyerAddr, dispatch.Command{
		Op:   dispatch.OpVerifyTickets,
		Args: rawArgs(t, dispatch.VerifyTicketsArgs{BuyerAddress: buyerAddr, ClaimedHash: "abc"}),
	})
	assert.ErrorIs(t, err, models.ErrNotFound)
}
