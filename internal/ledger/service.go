package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ticket-ledger/internal/kvstore"
	"ticket-ledger/internal/models"
)

// TierLocker serializes appends to the tier collection across processes.
type TierLocker interface {
	AcquireTiers(ctx context.Context, token string) error
	UnlockTiers(ctx context.Context, token string) error
}

// Service owns the event record and the tier inventory.
type Service struct {
	Store kvstore.Store
	Locks TierLocker
	Owner string
}

func NewService(store kvstore.Store, locks TierLocker, owner string) *Service {
	return &Service{Store: store, Locks: locks, Owner: owner}
}

// Deploy persists the event record. It fails if the caller is not the owner
// or a record already exists for the owner key; the event is immutable after.
func (s *Service) Deploy(ctx context.Context, caller, name string, startTime, totalSlots int64) error {
	if caller != s.Owner {
		return models.ErrUnauthorized
	}
	if name == "" || totalSlots <= 0 {
		return models.ErrValidation
	}

	key := kvstore.EventKey(s.Owner)
	if _, err := s.Store.Get(ctx, key); err == nil {
		return models.ErrAlreadyDeployed
	} else if !errors.Is(err, models.ErrNotFound) {
		return err
	}

	event := models.Event{
		Name:             name,
		StartTime:        startTime,
		TotalTicketSlots: totalSlots,
	}
	return kvstore.PutJSON(ctx, s.Store, key, event)
}

// Event returns the deployed event record.
func (s *Service) Event(ctx context.Context) (*models.Event, error) {
	var event models.Event
	if err := kvstore.GetJSON(ctx, s.Store, kvstore.EventKey(s.Owner), &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// AddTier appends a tier with sold = 0. Duplicate labels are permitted and
// create a second tier entry.
func (s *Service) AddTier(ctx context.Context, caller, label string, unitPrice, totalSupply int64) error {
	if caller != s.Owner {
		return models.ErrUnauthorized
	}
	if label == "" || unitPrice < 0 || totalSupply < 0 {
		return models.ErrValidation
	}

	token := uuid.New().String()
	if err := s.Locks.AcquireTiers(ctx, token); err != nil {
		return fmt.Errorf("lock tier collection: %w", err)
	}
	defer s.Locks.UnlockTiers(ctx, token)

	return s.Store.RunInTx(ctx, func(tx kvstore.Store) error {
		count, err := kvstore.GetInt64(ctx, tx, kvstore.KeyTierCount)
		if err != nil {
			return err
		}

		tier := models.Tier{
			Label:       label,
			UnitPrice:   unitPrice,
			TotalSupply: totalSupply,
			Sold:        0,
		}
		if err := kvstore.PutJSON(ctx, tx, kvstore.TierKey(int(count)), tier); err != nil {
			return err
		}
		return kvstore.PutInt64(ctx, tx, kvstore.KeyTierCount, count+1)
	})
}

// TierCount returns the number of tiers defined so far.
func (s *Service) TierCount(ctx context.Context) (int, error) {
	count, err := kvstore.GetInt64(ctx, s.Store, kvstore.KeyTierCount)
	return int(count), err
}

// Tier returns one tier record. Out-of-range IDs (including "no tiers yet")
// report not found.
func (s *Service) Tier(ctx context.Context, tierID int) (*models.Tier, error) {
	count, err := s.TierCount(ctx)
	if err != nil {
		return nil, err
	}
	if tierID < 0 || tierID >= count {
		return nil, models.ErrNotFound
	}

	var tier models.Tier
	if err := kvstore.GetJSON(ctx, s.Store, kvstore.TierKey(tierID), &tier); err != nil {
		return nil, err
	}
	return &tier, nil
}

// RemainingTickets returns totalSupply - sold for the tier.
func (s *Service) RemainingTickets(ctx context.Context, tierID int) (int64, error) {
	tier, err := s.Tier(ctx, tierID)
	if err != nil {
		return 0, err
	}
	return tier.Remaining(), nil
}

// AllTickets returns one info record per tier in tier-index order. It reports
// not found when no tier has been defined yet.
func (s *Service) AllTickets(ctx context.Context) ([]models.TierInfo, error) {
	count, err := s.TierCount(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, models.ErrNotFound
	}

	infos := make([]models.TierInfo, 0, count)
	for i := 0; i < count; i++ {
		var tier models.Tier
		if err := kvstore.GetJSON(ctx, s.Store, kvstore.TierKey(i), &tier); err != nil {
			return nil, err
		}
		infos = append(infos, models.TierInfo{
			Label:       tier.Label,
			UnitPrice:   tier.UnitPrice,
			TotalSupply: tier.TotalSupply,
			Remaining:   tier.Remaining(),
		})
	}
	return infos, nil
}
