// Package tiplog owns the append-only tip history. The history is a
// single monolithic record: appends rewrite the entire log and reads scan
// it end to end. That makes both operations O(total tip count), which is
// a preserved design constraint of the engine, not an accident.
package tiplog

import (
	"context"

	"github.com/MicroTip-Network/tip_layer/internal/app/domain/tip"
	"github.com/MicroTip-Network/tip_layer/internal/app/storage"
	"github.com/MicroTip-Network/tip_layer/pkg/logger"
)

// Service manages the ordered tip log.
type Service struct {
	store storage.TipLogStore
	log   *logger.Logger
}

// New constructs a tip log service.
func New(store storage.TipLogStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("tiplog")
	}
	return &Service{store: store, log: log}
}

// Append adds an accepted tip to the end of the log.
func (s *Service) Append(ctx context.Context, record tip.Tip) error {
	history, err := s.store.LoadTipLog(ctx)
	if err != nil {
		return err
	}
	history = append(history, record)
	if err := s.store.StoreTipLog(ctx, history); err != nil {
		return err
	}

	s.log.WithField("tip_id", record.ID).
		WithField("from", record.From).
		WithField("to", record.To).
		Info("tip appended")
	return nil
}

// TipsFor returns every tip received by the participant, in log order.
// The result is recomputed from the full history on each call.
func (s *Service) TipsFor(ctx context.Context, participant string) ([]tip.Tip, error) {
	history, err := s.store.LoadTipLog(ctx)
	if err != nil {
		return nil, err
	}

	received := make([]tip.Tip, 0)
	for _, record := range history {
		if record.To == participant {
			received = append(received, record)
		}
	}
	return received, nil
}

// Count returns the number of tips ever accepted.
func (s *Service) Count(ctx context.Context) (uint64, error) {
	history, err := s.store.LoadTipLog(ctx)
	if err != nil {
		return 0, err
	}
	return uint64(len(history)), nil
}
