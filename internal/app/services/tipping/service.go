// Package tipping is the transaction orchestrator: the write entry points
// of the engine. A single SendTip call fans out into an external asset
// transfer, a tip log append, a recipient balance deposit, and two
// profile updates; every precondition or transfer failure aborts the call
// before any owned record is persisted.
package tipping

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/MicroTip-Network/tip_layer/internal/app/domain/tip"
	"github.com/MicroTip-Network/tip_layer/internal/app/events"
	"github.com/MicroTip-Network/tip_layer/internal/app/metrics"
	"github.com/MicroTip-Network/tip_layer/internal/app/services/ledger"
	"github.com/MicroTip-Network/tip_layer/internal/app/services/profiles"
	"github.com/MicroTip-Network/tip_layer/internal/app/services/tiplog"
	"github.com/MicroTip-Network/tip_layer/pkg/logger"
)

// Transferer moves value between custodial identities. Implementations
// must reject transfers the source cannot cover; the orchestrator calls
// it at most once per logical operation.
type Transferer interface {
	Transfer(ctx context.Context, from, to, token string, amount *big.Int) error
}

// Verifier checks that a proof covers a participant.
type Verifier interface {
	VerifyParticipant(proof, participant string) error
}

// Service orchestrates tips and withdrawals.
type Service struct {
	balances  *ledger.Service
	profiles  *profiles.Service
	history   *tiplog.Service
	transfer  Transferer
	verifier  Verifier
	clock     tip.Clock
	sequencer Sequencer
	publisher events.Publisher
	custodial string
	log       *logger.Logger
}

// Config bundles orchestrator dependencies.
type Config struct {
	Balances  *ledger.Service
	Profiles  *profiles.Service
	History   *tiplog.Service
	Transfer  Transferer
	Verifier  Verifier
	Clock     tip.Clock
	Sequencer Sequencer
	Publisher events.Publisher
	Custodial string
}

// New constructs the orchestrator. Transfer, Verifier, and the three
// owned services are required; Clock, Sequencer, and Publisher default to
// the system clock, the log-derived sequencer, and the structured log.
func New(cfg Config, log *logger.Logger) (*Service, error) {
	if cfg.Balances == nil || cfg.Profiles == nil || cfg.History == nil {
		return nil, fmt.Errorf("ledger, profiles, and tip log services are required")
	}
	if cfg.Transfer == nil {
		return nil, fmt.Errorf("transferer is required")
	}
	if cfg.Verifier == nil {
		return nil, fmt.Errorf("verifier is required")
	}
	if cfg.Custodial == "" {
		return nil, fmt.Errorf("custodial account is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = tip.SystemClock{}
	}
	if cfg.Sequencer == nil {
		cfg.Sequencer = NewLogSequencer(cfg.History)
	}
	if log == nil {
		log = logger.NewDefault("tipping")
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.NewLogPublisher(log)
	}

	return &Service{
		balances:  cfg.Balances,
		profiles:  cfg.Profiles,
		history:   cfg.History,
		transfer:  cfg.Transfer,
		verifier:  cfg.Verifier,
		clock:     cfg.Clock,
		sequencer: cfg.Sequencer,
		publisher: cfg.Publisher,
		custodial: cfg.Custodial,
		log:       log,
	}, nil
}

// SendTip validates and records one tip from sender to recipient. The
// external transfer into the custodial account happens before any owned
// record is touched, so a rejected transfer leaves no trace. Returns the
// tip identifier.
func (s *Service) SendTip(ctx context.Context, proof, from, to, token string, amount *big.Int, message string) (uint64, error) {
	if err := s.verifier.VerifyParticipant(proof, from); err != nil {
		metrics.RecordTipRejected(reasonFor(err))
		return 0, err
	}
	if amount == nil || amount.Sign() <= 0 {
		metrics.RecordTipRejected("invalid_amount")
		return 0, fmt.Errorf("%w: got %s", tip.ErrInvalidAmount, amountString(amount))
	}
	if from == to {
		metrics.RecordTipRejected("self_tip")
		return 0, tip.ErrSelfTip
	}
	if utf8.RuneCountInString(message) > tip.MaxMessageChars {
		metrics.RecordTipRejected("message_too_long")
		return 0, fmt.Errorf("%w: got %d", tip.ErrMessageTooLong, utf8.RuneCountInString(message))
	}

	if err := s.transfer.Transfer(ctx, from, s.custodial, token, amount); err != nil {
		metrics.RecordTipRejected("transfer_failed")
		return 0, fmt.Errorf("%w: %v", tip.ErrTransferFailed, err)
	}

	timestamp := s.clock.Now()
	tipID, err := s.sequencer.Next(ctx)
	if err != nil {
		return 0, fmt.Errorf("assign tip id: %w", err)
	}

	record := tip.Tip{
		ID:        tipID,
		From:      from,
		To:        to,
		Amount:    new(big.Int).Set(amount),
		Message:   message,
		Timestamp: timestamp,
		Token:     token,
	}
	if err := s.history.Append(ctx, record); err != nil {
		return 0, fmt.Errorf("append tip: %w", err)
	}
	if _, err := s.balances.Deposit(ctx, to, token, amount); err != nil {
		return 0, fmt.Errorf("credit recipient: %w", err)
	}
	if err := s.profiles.RecordSent(ctx, from, amount); err != nil {
		return 0, fmt.Errorf("update sender profile: %w", err)
	}
	if err := s.profiles.RecordReceived(ctx, to, amount); err != nil {
		return 0, fmt.Errorf("update recipient profile: %w", err)
	}

	event := events.NewEvent(events.TopicTipSent)
	event.From = from
	event.To = to
	event.Amount = amount.String()
	event.Timestamp = timestamp
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WithError(err).Warn("tip event publish failed")
	}

	metrics.RecordTipAccepted(token)
	s.log.WithField("tip_id", tipID).
		WithField("from", from).
		WithField("to", to).
		WithField("token", token).
		WithField("amount", amount.String()).
		Info("tip accepted")
	return tipID, nil
}

// Withdraw moves accumulated tips out of the custodial account. The
// balance mutation is computed first but persisted only after the
// outbound transfer succeeds, so a rejected transfer cannot strand the
// stored record in an inconsistent state.
func (s *Service) Withdraw(ctx context.Context, proof, user, token string, amount *big.Int) error {
	if err := s.verifier.VerifyParticipant(proof, user); err != nil {
		metrics.RecordWithdrawalRejected(reasonFor(err))
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		metrics.RecordWithdrawalRejected("invalid_amount")
		return fmt.Errorf("%w: got %s", tip.ErrInvalidAmount, amountString(amount))
	}

	pending, err := s.balances.BeginWithdrawal(ctx, user, token, amount)
	if err != nil {
		metrics.RecordWithdrawalRejected(reasonFor(err))
		return err
	}

	if err := s.transfer.Transfer(ctx, s.custodial, user, token, amount); err != nil {
		metrics.RecordWithdrawalRejected("transfer_failed")
		return fmt.Errorf("%w: %v", tip.ErrTransferFailed, err)
	}

	if err := s.balances.CommitWithdrawal(ctx, user, token, pending); err != nil {
		return fmt.Errorf("persist withdrawal: %w", err)
	}

	timestamp := s.clock.Now()
	event := events.NewEvent(events.TopicWithdrawal)
	event.User = user
	event.Token = token
	event.Amount = amount.String()
	event.Timestamp = timestamp
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WithError(err).Warn("withdrawal event publish failed")
	}

	metrics.RecordWithdrawalCompleted(token)
	s.log.WithField("user", user).
		WithField("token", token).
		WithField("amount", amount.String()).
		Info("withdrawal completed")
	return nil
}

// GetBalance returns the balance for a (participant, token) pair. Public,
// no proof required.
func (s *Service) GetBalance(ctx context.Context, participant, token string) (tip.Balance, error) {
	return s.balances.GetBalance(ctx, participant, token)
}

// GetUserProfile returns the participant's aggregate profile. Public.
func (s *Service) GetUserProfile(ctx context.Context, participant string) (tip.UserProfile, error) {
	return s.profiles.GetProfile(ctx, participant)
}

// GetTipsForUser returns every tip received by the participant. Public.
func (s *Service) GetTipsForUser(ctx context.Context, participant string) ([]tip.Tip, error) {
	return s.history.TipsFor(ctx, participant)
}

// GetTotalTipsCount returns the size of the tip log. Public.
func (s *Service) GetTotalTipsCount(ctx context.Context) (uint64, error) {
	return s.history.Count(ctx)
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, tip.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, tip.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, tip.ErrSelfTip):
		return "self_tip"
	case errors.Is(err, tip.ErrMessageTooLong):
		return "message_too_long"
	case errors.Is(err, tip.ErrNoBalance):
		return "no_balance"
	case errors.Is(err, tip.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, tip.ErrTransferFailed):
		return "transfer_failed"
	default:
		return "internal"
	}
}

func amountString(amount *big.Int) string {
	if amount == nil {
		return "nil"
	}
	return amount.String()
}
