package purchase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ticket-ledger/internal/clock"
	"ticket-ledger/internal/holding"
	"ticket-ledger/internal/kvstore"
	"ticket-ledger/internal/models"
)

// Locks serializes read-modify-write cycles on tier records and the shared
// counters, and screens duplicate transfer notifications. MarkTransfer is
// only called after a commit so a failed attempt with the same ID stays
// retryable.
type Locks interface {
	AcquireTier(ctx context.Context, tierID int, token string) error
	UnlockTier(ctx context.Context, tierID int, token string) error
	AcquireKey(ctx context.Context, key, token string) error
	UnlockKey(ctx context.Context, key, token string) error
	SeenTransfer(ctx context.Context, transferID string) (bool, error)
	MarkTransfer(ctx context.Context, transferID string) error
}

// Publisher streams purchase outcomes.
type Publisher interface {
	PublishTicketPurchased(receipt models.PurchaseReceipt) error
	PublishDepositReceived(from string, amount int64) error
}

// Emitter feeds live subscribers (SSE).
type Emitter interface {
	EmitPurchase(receipt models.PurchaseReceipt)
}

// Service applies inbound token-transfer notifications to the ledger. Per
// (tier, buyer) pair the state machine only moves forward:
// no holding -> holding{used:false} -> holding{used:true}.
type Service struct {
	Store           kvstore.Store
	Locks           Locks
	Clock           clock.Clock
	Owner           string
	ContractAddress string
	Scale           int64
	Kafka           Publisher
	SSE             Emitter
}

func NewService(store kvstore.Store, locks Locks, clk clock.Clock, owner, contractAddress string, scale int64) *Service {
	return &Service{
		Store:           store,
		Locks:           locks,
		Clock:           clk,
		Owner:           owner,
		ContractAddress: contractAddress,
		Scale:           scale,
	}
}

// HandleTransfer is the sole entry point, invoked when the token service
// reports tokens moved into the ledger's custody.
func (s *Service) HandleTransfer(ctx context.Context, ev models.TransferEvent) error {
	if !models.ValidAddress(ev.From) || !models.ValidAddress(ev.To) {
		return fmt.Errorf("%w: malformed transfer address", models.ErrValidation)
	}
	if ev.To != s.ContractAddress {
		return fmt.Errorf("%w: transfer not addressed to this contract", models.ErrValidation)
	}
	if ev.Amount <= 0 {
		return fmt.Errorf("%w: non-positive transfer amount", models.ErrValidation)
	}

	// Owner top-up of the custodial balance: accept, no side effects.
	if ev.From == s.Owner {
		return nil
	}

	if ev.Purpose != models.PurposeBuyTickets {
		return s.applyDeposit(ctx, ev)
	}
	return s.applyPurchase(ctx, ev)
}

// applyDeposit accumulates a generic (non-purchase) transfer into the
// per-sender running total.
func (s *Service) applyDeposit(ctx context.Context, ev models.TransferEvent) error {
	if err := s.screenTransfer(ctx, ev.ID); err != nil {
		return err
	}

	// Concurrent deposits from one sender contend on the same counter.
	key := kvstore.DepositKey(ev.From)
	lockToken := uuid.New().String()
	if err := s.Locks.AcquireKey(ctx, key, lockToken); err != nil {
		return fmt.Errorf("lock deposit record: %w", err)
	}
	defer s.Locks.UnlockKey(ctx, key, lockToken)

	err := s.Store.RunInTx(ctx, func(tx kvstore.Store) error {
		if err := s.claimTransfer(ctx, tx, ev.ID); err != nil {
			return err
		}

		total, err := kvstore.GetInt64(ctx, tx, key)
		if err != nil {
			return err
		}
		return kvstore.PutInt64(ctx, tx, key, total+ev.Amount)
	})
	if err != nil {
		return err
	}

	if err := s.Locks.MarkTransfer(ctx, ev.ID); err != nil {
		fmt.Printf("Transfer screen update failed for %s: %v\n", ev.ID, err)
	}

	if s.Kafka != nil {
		if err := s.Kafka.PublishDepositReceived(ev.From, ev.Amount); err != nil {
			fmt.Printf("Kafka publish error (deposit received): %v\n", err)
		}
	}
	return nil
}

// applyPurchase validates and applies a buyTickets transfer. The tier lock
// serializes the sold-count read-modify-write; the storage transaction makes
// the tier, holding, identity and income writes commit as one unit.
func (s *Service) applyPurchase(ctx context.Context, ev models.TransferEvent) error {
	args := ev.Purchase
	if args == nil || args.Quantity <= 0 || args.ProofHash == "" {
		return fmt.Errorf("%w: buyTickets requires tier, quantity and proof hash", models.ErrValidation)
	}

	if err := s.screenTransfer(ctx, ev.ID); err != nil {
		return err
	}

	lockToken := uuid.New().String()
	if err := s.Locks.AcquireTier(ctx, args.TierID, lockToken); err != nil {
		return fmt.Errorf("lock tier %d: %w", args.TierID, err)
	}
	defer s.Locks.UnlockTier(ctx, args.TierID, lockToken)

	// Purchases of different tiers still contend on the income counter, so
	// it takes its own lock. Always after the tier lock, never the reverse.
	incomeToken := uuid.New().String()
	if err := s.Locks.AcquireKey(ctx, kvstore.KeyOwnerIncome, incomeToken); err != nil {
		return fmt.Errorf("lock income record: %w", err)
	}
	defer s.Locks.UnlockKey(ctx, kvstore.KeyOwnerIncome, incomeToken)

	var receipt models.PurchaseReceipt

	err := s.Store.RunInTx(ctx, func(tx kvstore.Store) error {
		if err := s.claimTransfer(ctx, tx, ev.ID); err != nil {
			return err
		}

		// Timing gate: sales open strictly after the recorded start time.
		var event models.Event
		if err := kvstore.GetJSON(ctx, tx, kvstore.EventKey(s.Owner), &event); err != nil {
			return err
		}
		if s.Clock.Now().Unix() <= event.StartTime {
			return fmt.Errorf("%w: sales not open yet", models.ErrValidation)
		}

		count, err := kvstore.GetInt64(ctx, tx, kvstore.KeyTierCount)
		if err != nil {
			return err
		}
		if args.TierID < 0 || int64(args.TierID) >= count {
			return models.ErrNotFound
		}

		var tier models.Tier
		if err := kvstore.GetJSON(ctx, tx, kvstore.TierKey(args.TierID), &tier); err != nil {
			return err
		}

		price := tier.UnitPrice * args.Quantity
		if ev.Amount < price*s.Scale {
			return models.ErrInsufficientPayment
		}
		if tier.Sold+args.Quantity > tier.TotalSupply {
			return models.ErrSupplyExhausted
		}

		tier.Sold += args.Quantity
		if err := kvstore.PutJSON(ctx, tx, kvstore.TierKey(args.TierID), tier); err != nil {
			return err
		}

		// Last purchase wins on the identity proof.
		if err := tx.Put(ctx, kvstore.IdentityKey(ev.From), []byte(args.ProofHash)); err != nil {
			return err
		}

		income, err := kvstore.GetInt64(ctx, tx, kvstore.KeyOwnerIncome)
		if err != nil {
			return err
		}
		if err := kvstore.PutInt64(ctx, tx, kvstore.KeyOwnerIncome, income+price); err != nil {
			return err
		}

		// Upsert the holding. A repeat purchase forces used back to false
		// even where a prior batch was already redeemed: a top-up re-arms
		// the ticket.
		holdingKey := kvstore.HoldingKey(holding.Key(tier.Label, ev.From))
		var h models.Holding
		err = kvstore.GetJSON(ctx, tx, holdingKey, &h)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return err
		}
		h.Quantity += args.Quantity
		h.Used = false
		if err := kvstore.PutJSON(ctx, tx, holdingKey, h); err != nil {
			return err
		}

		receipt = models.PurchaseReceipt{
			TransferID: ev.ID,
			Buyer:      ev.From,
			TierID:     args.TierID,
			TierLabel:  tier.Label,
			Quantity:   args.Quantity,
			AmountPaid: ev.Amount,
			Price:      price,
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.Locks.MarkTransfer(ctx, ev.ID); err != nil {
		fmt.Printf("Transfer screen update failed for %s: %v\n", ev.ID, err)
	}

	if s.Kafka != nil {
		if err := s.Kafka.PublishTicketPurchased(receipt); err != nil {
			fmt.Printf("Kafka publish error (ticket purchased): %v\n", err)
		}
	}
	if s.SSE != nil {
		s.SSE.EmitPurchase(receipt)
	}
	return nil
}

// screenTransfer is the fast-path duplicate check against redis.
func (s *Service) screenTransfer(ctx context.Context, transferID string) error {
	if transferID == "" {
		return fmt.Errorf("%w: missing transfer id", models.ErrValidation)
	}
	seen, err := s.Locks.SeenTransfer(ctx, transferID)
	if err != nil {
		return err
	}
	if seen {
		return models.ErrDuplicateTransfer
	}
	return nil
}

// claimTransfer writes the durable idempotency marker inside the ledger
// transaction. It rolls back with the rest of a failed attempt.
func (s *Service) claimTransfer(ctx context.Context, tx kvstore.Store, transferID string) error {
	key := kvstore.TransferKey(transferID)
	if _, err := tx.Get(ctx, key); err == nil {
		return models.ErrDuplicateTransfer
	} else if !errors.Is(err, models.ErrNotFound) {
		return err
	}
	return tx.Put(ctx, key, []byte("1"))
}
