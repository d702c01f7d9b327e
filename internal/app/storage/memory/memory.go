package memory

import (
	"context"
	"sync"

	"github.com/MicroTip-Network/tip_layer/internal/app/domain/tip"
	"github.com/MicroTip-Network/tip_layer/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is
// safe for concurrent use and is primarily intended for tests and local
// development.
type Store struct {
	mu       sync.RWMutex
	balances map[storage.BalanceKey]tip.Balance
	profiles map[storage.ProfileKey]tip.UserProfile
	tipLog   []tip.Tip
}

var _ storage.BalanceStore = (*Store)(nil)
var _ storage.ProfileStore = (*Store)(nil)
var _ storage.TipLogStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		balances: make(map[storage.BalanceKey]tip.Balance),
		profiles: make(map[storage.ProfileKey]tip.UserProfile),
	}
}

// BalanceStore implementation ------------------------------------------------

func (s *Store) GetBalance(_ context.Context, key storage.BalanceKey) (tip.Balance, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bal, ok := s.balances[key]
	if !ok {
		return tip.Balance{}, false, nil
	}
	return bal.Clone(), true, nil
}

func (s *Store) PutBalance(_ context.Context, key storage.BalanceKey, bal tip.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances[key] = bal.Clone()
	return nil
}

// ProfileStore implementation ------------------------------------------------

func (s *Store) GetProfile(_ context.Context, key storage.ProfileKey) (tip.UserProfile, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[key]
	if !ok {
		return tip.UserProfile{}, false, nil
	}
	return profile.Clone(), true, nil
}

func (s *Store) PutProfile(_ context.Context, key storage.ProfileKey, profile tip.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[key] = profile.Clone()
	return nil
}

// TipLogStore implementation -------------------------------------------------

func (s *Store) LoadTipLog(_ context.Context) ([]tip.Tip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneTips(s.tipLog), nil
}

func (s *Store) StoreTipLog(_ context.Context, log []tip.Tip) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tipLog = cloneTips(log)
	return nil
}

func cloneTips(tips []tip.Tip) []tip.Tip {
	out := make([]tip.Tip, len(tips))
	for i, t := range tips {
		out[i] = t.Clone()
	}
	return out
}
