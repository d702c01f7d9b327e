// Package tip defines the core records of the micro-tip accounting engine:
// the immutable tip log entry, the per-(participant, token) balance, and
// the cross-token participant profile.
package tip

import "math/big"

// MaxMessageChars is the upper bound on tip message length, counted in
// characters rather than bytes.
const MaxMessageChars = 256

// Tip is one accepted transfer intent. Tips are append-only: once written
// to the log they are never mutated or deleted.
type Tip struct {
	ID        uint64   `json:"id"`
	From      string   `json:"from"`
	To        string   `json:"to"`
	Amount    *big.Int `json:"amount"`
	Message   string   `json:"message"`
	Timestamp uint64   `json:"timestamp"`
	Token     string   `json:"token"`
}

// Clone returns a deep copy of the tip.
func (t Tip) Clone() Tip {
	out := t
	out.Amount = cloneAmount(t.Amount)
	return out
}

// Balance tracks running totals for one (participant, token) pair.
// TotalReceived and Withdrawn never decrease; Available is the spendable
// remainder. TotalReceived == Available + Withdrawn holds after every
// mutation.
type Balance struct {
	TotalReceived *big.Int `json:"total_received"`
	Available     *big.Int `json:"available"`
	Withdrawn     *big.Int `json:"withdrawn"`
	Token         string   `json:"token"`
}

// ZeroBalance returns the default balance for a token. Reads of missing
// records return this without persisting it.
func ZeroBalance(token string) Balance {
	return Balance{
		TotalReceived: big.NewInt(0),
		Available:     big.NewInt(0),
		Withdrawn:     big.NewInt(0),
		Token:         token,
	}
}

// Clone returns a deep copy of the balance.
func (b Balance) Clone() Balance {
	return Balance{
		TotalReceived: cloneAmount(b.TotalReceived),
		Available:     cloneAmount(b.Available),
		Withdrawn:     cloneAmount(b.Withdrawn),
		Token:         b.Token,
	}
}

// CheckInvariant reports whether the balance arithmetic is consistent:
// total_received == available + withdrawn, with both parts non-negative.
func (b Balance) CheckInvariant() bool {
	if b.TotalReceived == nil || b.Available == nil || b.Withdrawn == nil {
		return false
	}
	if b.Available.Sign() < 0 || b.Withdrawn.Sign() < 0 {
		return false
	}
	sum := new(big.Int).Add(b.Available, b.Withdrawn)
	return sum.Cmp(b.TotalReceived) == 0
}

// UserProfile aggregates activity for one participant across all tokens.
// FirstInteraction is set when the record is first persisted and never
// updated afterwards.
type UserProfile struct {
	TipsSent         uint64   `json:"tips_sent"`
	TipsReceived     uint64   `json:"tips_received"`
	TotalSent        *big.Int `json:"total_sent"`
	TotalReceived    *big.Int `json:"total_received"`
	FirstInteraction uint64   `json:"first_interaction"`
}

// ZeroProfile returns a fresh profile stamped with the given first
// interaction time.
func ZeroProfile(firstInteraction uint64) UserProfile {
	return UserProfile{
		TotalSent:        big.NewInt(0),
		TotalReceived:    big.NewInt(0),
		FirstInteraction: firstInteraction,
	}
}

// Clone returns a deep copy of the profile.
func (p UserProfile) Clone() UserProfile {
	out := p
	out.TotalSent = cloneAmount(p.TotalSent)
	out.TotalReceived = cloneAmount(p.TotalReceived)
	return out
}

func cloneAmount(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
