package income

import (
	"context"

	"ticket-ledger/internal/kvstore"
)

// Service reports the owner's cumulative ticket income and per-sender
// deposit totals.
type Service struct {
	Store kvstore.Store
}

func NewService(store kvstore.Store) *Service {
	return &Service{Store: store}
}

// Total returns the running income from all purchases, in whole tokens.
// Zero before the first sale.
func (s *Service) Total(ctx context.Context) (int64, error) {
	return kvstore.GetInt64(ctx, s.Store, kvstore.KeyOwnerIncome)
}

// DepositOf returns the accumulated generic deposits from addr, in the
// token's smallest unit. Zero when addr never deposited.
func (s *Service) DepositOf(ctx context.Context, addr string) (int64, error) {
	return kvstore.GetInt64(ctx, s.Store, kvstore.DepositKey(addr))
}
