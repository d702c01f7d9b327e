// Package storage defines the persistence boundary of the tip layer. The
// engine never caches records across calls: every mutation is a full
// read-modify-write of the authoritative copy behind these interfaces.
package storage

import (
	"context"

	"github.com/MicroTip-Network/tip_layer/internal/app/domain/tip"
)

// BalanceKey addresses one balance record. Keys are typed composites, not
// formatted strings.
type BalanceKey struct {
	Participant string
	Token       string
}

// ProfileKey addresses one participant profile.
type ProfileKey struct {
	Participant string
}

// BalanceStore persists per-(participant, token) balances. GetBalance
// reports found=false for missing records rather than an error; the
// ledger supplies the zero-valued default.
type BalanceStore interface {
	GetBalance(ctx context.Context, key BalanceKey) (tip.Balance, bool, error)
	PutBalance(ctx context.Context, key BalanceKey, bal tip.Balance) error
}

// ProfileStore persists participant profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, key ProfileKey) (tip.UserProfile, bool, error)
	PutProfile(ctx context.Context, key ProfileKey, profile tip.UserProfile) error
}

// TipLogStore persists the ordered tip history as a single monolithic
// record under one fixed key. Appends load and rewrite the entire log;
// there is no per-participant sharding.
type TipLogStore interface {
	LoadTipLog(ctx context.Context) ([]tip.Tip, error)
	StoreTipLog(ctx context.Context, log []tip.Tip) error
}
