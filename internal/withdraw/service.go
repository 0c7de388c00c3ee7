package withdraw

import (
	"context"

	"ticket-ledger/internal/models"
)

// TokenTransferer is the slice of the token client the gateway needs.
type TokenTransferer interface {
	Transfer(ctx context.Context, from, to string, amount int64) error
	ContractAddress() string
	Scale() int64
}

// Service moves tokens out of the ledger's custodial balance via the token
// service's transfer call. The token service enforces the balance; this
// gateway performs no entitlement check of its own against holdings or
// income.
type Service struct {
	Token TokenTransferer
	Owner string
}

func NewService(token TokenTransferer, owner string) *Service {
	return &Service{Token: token, Owner: owner}
}

// UserWithdraw transfers amount whole tokens to userAddress.
func (s *Service) UserWithdraw(ctx context.Context, userAddress string, amount int64) error {
	if amount <= 0 || !models.ValidAddress(userAddress) {
		return models.ErrValidation
	}
	return s.Token.Transfer(ctx, s.Token.ContractAddress(), userAddress, amount*s.Token.Scale())
}

// OwnerWithdraw transfers amount whole tokens to the owner. Owner-only.
func (s *Service) OwnerWithdraw(ctx context.Context, caller string, amount int64) error {
	if caller != s.Owner {
		return models.ErrUnauthorized
	}
	if amount <= 0 {
		return models.ErrValidation
	}
	return s.Token.Transfer(ctx, s.Token.ContractAddress(), s.Owner, amount*s.Token.Scale())
}
