package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"ticket-ledger/internal/models"
)

// Op names the ledger operations reachable through the invoke endpoint.
// onTokenTransfer is deliberately absent: transfer notifications arrive only
// through the token-service callback and the Kafka consumer.
type Op string

const (
	OpDeploy           Op = "deploy"
	OpAddTickets       Op = "addTickets"
	OpVerifyTickets    Op = "verifyTickets"
	OpCheckTicketsLeft Op = "checkTicketsLeft"
	OpCheckMyTicket    Op = "checkMyTicket"
	OpGetTicketsInfo   Op = "getTicketsInfo"
	OpUseMyTicket      Op = "useMyTicket"
	OpUserWithdraw     Op = "userWithdraw"
	OpOwnerWithdraw    Op = "ownerWithdraw"
)

// Command is the wire envelope for an invoke request. Args is decoded into
// the typed struct for the named operation; unknown operations and malformed
// shapes are rejected before any service is touched.
type Command struct {
	Op   Op              `json:"op"`
	Args json.RawMessage `json:"args,omitempty"`
}

type DeployArgs struct {
	EventName  string `json:"event_name"`
	StartTime  int64  `json:"start_time"`
	TotalSlots int64  `json:"total_slots"`
}

type AddTicketsArgs struct {
	Label       string `json:"label"`
	UnitPrice   int64  `json:"unit_price"`
	TotalSupply int64  `json:"total_supply"`
}

type VerifyTicketsArgs struct {
	BuyerAddress string `json:"buyer_address"`
	ClaimedHash  string `json:"claimed_hash"`
}

type TierArgs struct {
	TierID int `json:"tier_id"`
}

type BuyerTierArgs struct {
	BuyerAddress string `json:"buyer_address"`
	TierID       int    `json:"tier_id"`
}

type UserWithdrawArgs struct {
	UserAddress string `json:"user_address"`
	Amount      int64  `json:"amount"`
}

type OwnerWithdrawArgs struct {
	Amount int64 `json:"amount"`
}

// TicketsInfo is the getTicketsInfo result: four parallel sequences in
// tier-index order.
type TicketsInfo struct {
	Labels    []string `json:"labels"`
	Prices    []int64  `json:"prices"`
	Totals    []int64  `json:"totals"`
	Remaining []int64  `json:"remaining"`
}

// LedgerService is the event/tier surface the dispatcher invokes.
type LedgerService interface {
	Deploy(ctx context.Context, caller, name string, startTime, totalSlots int64) error
	AddTier(ctx context.Context, caller, label string, unitPrice, totalSupply int64) error
	RemainingTickets(ctx context.Context, tierID int) (int64, error)
	AllTickets(ctx context.Context) ([]models.TierInfo, error)
}

// HoldingService is the per-buyer ticket surface.
type HoldingService interface {
	MyTicket(ctx context.Context, buyer string, tierID int) (*models.Holding, error)
	UseTicket(ctx context.Context, buyer string, tierID int) error
}

// IdentityService checks purchase-time proof hashes.
type IdentityService interface {
	VerifyProof(ctx context.Context, addr, claimedHash string) (bool, error)
}

// WithdrawService moves tokens out of custody.
type WithdrawService interface {
	UserWithdraw(ctx context.Context, userAddress string, amount int64) error
	OwnerWithdraw(ctx context.Context, caller string, amount int64) error
}

// Dispatcher routes a typed command to the owning service. Owner-only
// operations receive the authenticated caller and enforce authorization in
// the service; address-keyed reads and redemption are public given the
// address.
type Dispatcher struct {
	Ledger   LedgerService
	Holdings HoldingService
	Identity IdentityService
	Withdraw WithdrawService
}

func NewDispatcher(ledger LedgerService, holdings HoldingService, identity IdentityService, withdraw WithdrawService) *Dispatcher {
	return &Dispatcher{
		Ledger:   ledger,
		Holdings: holdings,
		Identity: identity,
		Withdraw: withdraw,
	}
}

// Dispatch executes cmd on behalf of caller and returns the operation's
// result payload. A nil result with a nil error means the operation has no
// payload beyond success.
func (d *Dispatcher) Dispatch(ctx context.Context, caller string, cmd Command) (interface{}, error) {
	switch cmd.Op {
	case OpDeploy:
		var args DeployArgs
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return nil, err
		}
		return nil, d.Ledger.Deploy(ctx, caller, args.EventName, args.StartTime, args.TotalSlots)

	case OpAddTickets:
		var args AddTicketsArgs
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return nil, err
		}
		return nil, d.Ledger.AddTier(ctx, caller, args.Label, args.UnitPrice, args.TotalSupply)

	case OpVerifyTickets:
		var args VerifyTicketsArgs
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return nil, err
		}
		if args.BuyerAddress == "" || args.ClaimedHash == "" {
			return nil, fmt.Errorf("%w: buyer address and claimed hash are required", models.ErrValidation)
		}
		ok, err := d.Identity.VerifyProof(ctx, args.BuyerAddress, args.ClaimedHash)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: proof hash mismatch", models.ErrUnauthorized)
		}
		return true, nil

	case OpCheckTicketsLeft:
		var args TierArgs
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return nil, err
		}
		return d.Ledger.RemainingTickets(ctx, args.TierID)

	case OpCheckMyTicket:
		var args BuyerTierArgs
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return nil, err
		}
		if args.BuyerAddress == "" {
			return nil, fmt.Errorf("%w: buyer address is required", models.ErrValidation)
		}
		return d.Holdings.MyTicket(ctx, args.BuyerAddress, args.TierID)

	case OpGetTicketsInfo:
		infos, err := d.Ledger.AllTickets(ctx)
		if err != nil {
			return nil, err
		}
		out := TicketsInfo{
			Labels:    make([]string, 0, len(infos)),
			Prices:    make([]int64, 0, len(infos)),
			Totals:    make([]int64, 0, len(infos)),
			Remaining: make([]int64, 0, len(infos)),
		}
		for _, info := range infos {
			out.Labels = append(out.Labels, info.Label)
			out.Prices = append(out.Prices, info.UnitPrice)
			out.Totals = append(out.Totals, info.TotalSupply)
			out.Remaining = append(out.Remaining, info.Remaining)
		}
		return out, nil

	case OpUseMyTicket:
		var args BuyerTierArgs
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return nil, err
		}
		if args.BuyerAddress == "" {
			return nil, fmt.Errorf("%w: buyer address is required", models.ErrValidation)
		}
		return nil, d.Holdings.UseTicket(ctx, args.BuyerAddress, args.TierID)

	case OpUserWithdraw:
		var args UserWithdrawArgs
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return nil, err
		}
		return nil, d.Withdraw.UserWithdraw(ctx, args.UserAddress, args.Amount)

	case OpOwnerWithdraw:
		var args OwnerWithdrawArgs
		if err := decodeArgs(cmd.Args, &args); err != nil {
			return nil, err
		}
		return nil, d.Withdraw.OwnerWithdraw(ctx, caller, args.Amount)

	default:
		return nil, fmt.Errorf("%w: unknown operation %q", models.ErrValidation, cmd.Op)
	}
}

func decodeArgs(raw json.RawMessage, into interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing operation args", models.ErrValidation)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	return nil
}
