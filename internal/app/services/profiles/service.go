// Package profiles owns the per-participant activity aggregates. Counters
// and totals span all tokens; first_interaction is stamped once when the
// record is first persisted.
package profiles

import (
	"context"
	"math/big"

	"github.com/MicroTip-Network/tip_layer/internal/app/domain/tip"
	"github.com/MicroTip-Network/tip_layer/internal/app/storage"
	"github.com/MicroTip-Network/tip_layer/pkg/logger"
)

// Service maintains participant profiles.
type Service struct {
	store storage.ProfileStore
	clock tip.Clock
	log   *logger.Logger
}

// New constructs a profile aggregator. A nil clock defaults to the system
// clock.
func New(store storage.ProfileStore, clock tip.Clock, log *logger.Logger) *Service {
	if clock == nil {
		clock = tip.SystemClock{}
	}
	if log == nil {
		log = logger.NewDefault("profiles")
	}
	return &Service{store: store, clock: clock, log: log}
}

// RecordSent increments the sender-side counters for an accepted tip.
func (s *Service) RecordSent(ctx context.Context, participant string, amount *big.Int) error {
	return s.update(ctx, participant, func(p *tip.UserProfile) {
		p.TipsSent++
		p.TotalSent = new(big.Int).Add(p.TotalSent, amount)
	})
}

// RecordReceived increments the recipient-side counters for an accepted
// tip.
func (s *Service) RecordReceived(ctx context.Context, participant string, amount *big.Int) error {
	return s.update(ctx, participant, func(p *tip.UserProfile) {
		p.TipsReceived++
		p.TotalReceived = new(big.Int).Add(p.TotalReceived, amount)
	})
}

// GetProfile returns the participant's profile. Missing records yield a
// transient zero-valued profile stamped with the current time; the
// default is display-only and never persisted.
func (s *Service) GetProfile(ctx context.Context, participant string) (tip.UserProfile, error) {
	profile, found, err := s.store.GetProfile(ctx, storage.ProfileKey{Participant: participant})
	if err != nil {
		return tip.UserProfile{}, err
	}
	if !found {
		return tip.ZeroProfile(s.clock.Now()), nil
	}
	return profile, nil
}

func (s *Service) update(ctx context.Context, participant string, mutate func(*tip.UserProfile)) error {
	key := storage.ProfileKey{Participant: participant}

	profile, found, err := s.store.GetProfile(ctx, key)
	if err != nil {
		return err
	}
	if !found {
		profile = tip.ZeroProfile(s.clock.Now())
	}

	mutate(&profile)
	return s.store.PutProfile(ctx, key, profile)
}
