package tipping

import (
	"context"

	"github.com/MicroTip-Network/tip_layer/internal/app/services/tiplog"
)

// Sequencer supplies tip identifiers. The contract only promises
// monotonically non-decreasing values; a deployment may plug in a coarse
// chain-sequence source under which two tips in the same sequencing
// window share an identifier.
type Sequencer interface {
	Next(ctx context.Context) (uint64, error)
}

// LogSequencer derives identifiers from the current tip log length.
// Because calls are serialized and every accepted tip grows the log by
// one, identifiers from this source are strictly increasing and unique.
type LogSequencer struct {
	history *tiplog.Service
}

// NewLogSequencer builds a sequencer over the tip log.
func NewLogSequencer(history *tiplog.Service) *LogSequencer {
	return &LogSequencer{history: history}
}

// Next returns the identifier for the tip about to be appended.
func (s *LogSequencer) Next(ctx context.Context) (uint64, error) {
	return s.history.Count(ctx)
}
