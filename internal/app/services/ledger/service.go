// Package ledger owns per-(participant, token) balance records. Deposits
// and withdrawals are full read-modify-write cycles against the backing
// store; the arithmetic invariant total_received == available + withdrawn
// holds after every mutation.
package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/MicroTip-Network/tip_layer/internal/app/domain/tip"
	"github.com/MicroTip-Network/tip_layer/internal/app/storage"
	"github.com/MicroTip-Network/tip_layer/pkg/logger"
)

// Service applies balance deltas and serves balance reads.
type Service struct {
	store storage.BalanceStore
	log   *logger.Logger
}

// New constructs a balance ledger.
func New(store storage.BalanceStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("ledger")
	}
	return &Service{store: store, log: log}
}

// GetBalance returns the balance for a (participant, token) pair. Missing
// records yield a zero-valued balance without persisting anything.
func (s *Service) GetBalance(ctx context.Context, participant, token string) (tip.Balance, error) {
	bal, found, err := s.store.GetBalance(ctx, storage.BalanceKey{Participant: participant, Token: token})
	if err != nil {
		return tip.Balance{}, err
	}
	if !found {
		return tip.ZeroBalance(token), nil
	}
	return bal, nil
}

// Deposit credits a received tip to the recipient's balance. The caller
// guarantees amount > 0.
func (s *Service) Deposit(ctx context.Context, participant, token string, amount *big.Int) (tip.Balance, error) {
	key := storage.BalanceKey{Participant: participant, Token: token}

	bal, found, err := s.store.GetBalance(ctx, key)
	if err != nil {
		return tip.Balance{}, err
	}
	if !found {
		bal = tip.ZeroBalance(token)
	}

	bal.TotalReceived = new(big.Int).Add(bal.TotalReceived, amount)
	bal.Available = new(big.Int).Add(bal.Available, amount)

	if err := s.store.PutBalance(ctx, key, bal); err != nil {
		return tip.Balance{}, err
	}

	s.log.WithField("participant", participant).
		WithField("token", token).
		WithField("amount", amount.String()).
		Info("deposit applied")
	return bal, nil
}

// BeginWithdrawal validates and computes a withdrawal without persisting
// it. The record must exist and cover the requested amount. The returned
// balance becomes durable only through CommitWithdrawal, so a failed
// outbound transfer leaves the stored record untouched.
func (s *Service) BeginWithdrawal(ctx context.Context, participant, token string, amount *big.Int) (tip.Balance, error) {
	key := storage.BalanceKey{Participant: participant, Token: token}

	bal, found, err := s.store.GetBalance(ctx, key)
	if err != nil {
		return tip.Balance{}, err
	}
	if !found {
		return tip.Balance{}, fmt.Errorf("%w: participant %s token %s", tip.ErrNoBalance, participant, token)
	}
	if bal.Available.Cmp(amount) < 0 {
		return tip.Balance{}, fmt.Errorf("%w: available %s, requested %s", tip.ErrInsufficientBalance, bal.Available, amount)
	}

	bal.Available = new(big.Int).Sub(bal.Available, amount)
	bal.Withdrawn = new(big.Int).Add(bal.Withdrawn, amount)
	return bal, nil
}

// CommitWithdrawal persists a balance previously computed by
// BeginWithdrawal.
func (s *Service) CommitWithdrawal(ctx context.Context, participant, token string, bal tip.Balance) error {
	if err := s.store.PutBalance(ctx, storage.BalanceKey{Participant: participant, Token: token}, bal); err != nil {
		return err
	}
	s.log.WithField("participant", participant).
		WithField("token", token).
		WithField("available", bal.Available.String()).
		WithField("withdrawn", bal.Withdrawn.String()).
		Info("withdrawal committed")
	return nil
}
