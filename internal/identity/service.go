package identity

import (
	"context"
	"crypto/subtle"
	"errors"

	"ticket-ledger/internal/kvstore"
	"ticket-ledger/internal/models"
)

// Service stores and checks the proof hash a buyer supplies at purchase time.
// This is a standalone identity check for out-of-band verification; it says
// nothing about whether the buyer's ticket has been used.
type Service struct {
	Store kvstore.Store
}

func NewService(store kvstore.Store) *Service {
	return &Service{Store: store}
}

// SetProof overwrites the stored proof hash for addr. Last purchase wins.
func (s *Service) SetProof(ctx context.Context, addr, proofHash string) error {
	return s.Store.Put(ctx, kvstore.IdentityKey(addr), []byte(proofHash))
}

// Proof returns the stored proof hash for addr.
func (s *Service) Proof(ctx context.Context, addr string) (string, error) {
	stored, err := s.Store.Get(ctx, kvstore.IdentityKey(addr))
	if err != nil {
		return "", err
	}
	return string(stored), nil
}

// VerifyProof compares the stored hash against claimedHash bytewise.
func (s *Service) VerifyProof(ctx context.Context, addr, claimedHash string) (bool, error) {
	stored, err := s.Store.Get(ctx, kvstore.IdentityKey(addr))
	if errors.Is(err, models.ErrNotFound) {
		return false, models.ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(stored, []byte(claimedHash)) == 1, nil
}
