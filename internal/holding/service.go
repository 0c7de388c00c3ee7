package holding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"ticket-ledger/internal/kvstore"
	"ticket-ledger/internal/models"
)

// Key derives the storage key for a (tier label, buyer) holding record.
func Key(label, buyer string) string {
	sum := sha256.Sum256([]byte(label + buyer))
	return hex.EncodeToString(sum[:])
}

// TierReader resolves tier IDs to tier records.
type TierReader interface {
	Tier(ctx context.Context, tierID int) (*models.Tier, error)
}

// RecordLocker serializes read-modify-write cycles on a single holding
// record across processes.
type RecordLocker interface {
	AcquireKey(ctx context.Context, key, token string) error
	UnlockKey(ctx context.Context, key, token string) error
}

// RedemptionPublisher streams redemption events.
type RedemptionPublisher interface {
	PublishTicketRedeemed(buyer string, tierID int) error
}

// Service tracks per-(tier, buyer) holdings and single-use redemption.
type Service struct {
	Store kvstore.Store
	Locks RecordLocker
	Tiers TierReader
	Kafka RedemptionPublisher
}

func NewService(store kvstore.Store, tiers TierReader, locks RecordLocker) *Service {
	return &Service{Store: store, Tiers: tiers, Locks: locks}
}

// MyTicket returns the holding record for (tier, buyer).
func (s *Service) MyTicket(ctx context.Context, buyer string, tierID int) (*models.Holding, error) {
	tier, err := s.Tiers.Tier(ctx, tierID)
	if err != nil {
		return nil, err
	}

	var h models.Holding
	if err := kvstore.GetJSON(ctx, s.Store, kvstore.HoldingKey(Key(tier.Label, buyer)), &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// UseTicket redeems the holding exactly once. The used flag is terminal:
// a second call fails and nothing re-arms it here. The record lock makes
// concurrent redemptions of the same holding serialize, so only the first
// one in wins.
func (s *Service) UseTicket(ctx context.Context, buyer string, tierID int) error {
	tier, err := s.Tiers.Tier(ctx, tierID)
	if err != nil {
		return err
	}

	key := kvstore.HoldingKey(Key(tier.Label, buyer))

	token := uuid.New().String()
	if err := s.Locks.AcquireKey(ctx, key, token); err != nil {
		return fmt.Errorf("lock holding: %w", err)
	}
	defer s.Locks.UnlockKey(ctx, key, token)

	err = s.Store.RunInTx(ctx, func(tx kvstore.Store) error {
		var h models.Holding
		if err := kvstore.GetJSON(ctx, tx, key, &h); err != nil {
			return err
		}
		if h.Quantity == 0 {
			return models.ErrNotFound
		}
		if h.Used {
			return models.ErrAlreadyRedeemed
		}

		h.Used = true
		return kvstore.PutJSON(ctx, tx, key, h)
	})
	if err != nil {
		return err
	}

	if s.Kafka != nil {
		if err := s.Kafka.PublishTicketRedeemed(buyer, tierID); err != nil {
			fmt.Printf("Kafka publish error (ticket redeemed): %v\n", err)
		}
	}
	return nil
}
