package tipping

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/MicroTip-Network/tip_layer/internal/app/domain/tip"
	"github.com/MicroTip-Network/tip_layer/internal/app/events"
	"github.com/MicroTip-Network/tip_layer/internal/app/services/ledger"
	"github.com/MicroTip-Network/tip_layer/internal/app/services/profiles"
	"github.com/MicroTip-Network/tip_layer/internal/app/services/tiplog"
	"github.com/MicroTip-Network/tip_layer/internal/app/storage/memory"
)

type stubClock struct{ now uint64 }

func (c *stubClock) Now() uint64 { return c.now }

// fakeTransfer records transfer calls and can be told to reject.
type fakeTransfer struct {
	calls []string
	fail  error
}

func (f *fakeTransfer) Transfer(_ context.Context, from, to, token string, amount *big.Int) error {
	if f.fail != nil {
		return f.fail
	}
	f.calls = append(f.calls, fmt.Sprintf("%s->%s %s %s", from, to, amount, token))
	return nil
}

// allowAll verifies that the proof literally names the participant; tests
// pass the participant id as its own proof.
type allowAll struct{}

func (allowAll) VerifyParticipant(proof, participant string) error {
	if proof != participant {
		return fmt.Errorf("%w: proof does not cover %s", tip.ErrUnauthorized, participant)
	}
	return nil
}

type fixture struct {
	svc      *Service
	transfer *fakeTransfer
	recorder *events.Recorder
	clock    *stubClock
	store    *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	clock := &stubClock{now: 1700000000}
	transfer := &fakeTransfer{}
	recorder := events.NewRecorder()

	svc, err := New(Config{
		Balances:  ledger.New(store, nil),
		Profiles:  profiles.New(store, clock, nil),
		History:   tiplog.New(store, nil),
		Transfer:  transfer,
		Verifier:  allowAll{},
		Clock:     clock,
		Publisher: recorder,
		Custodial: "custodial",
	}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{svc: svc, transfer: transfer, recorder: recorder, clock: clock, store: store}
}

func TestSendTip_HappyPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.svc.SendTip(ctx, "alice", "alice", "bob", "XLM", big.NewInt(100), "thanks")
	if err != nil {
		t.Fatalf("send tip: %v", err)
	}
	if id != 0 {
		t.Fatalf("first tip id should be 0, got %d", id)
	}

	if len(f.transfer.calls) != 1 || f.transfer.calls[0] != "alice->custodial 100 XLM" {
		t.Fatalf("unexpected transfer calls: %v", f.transfer.calls)
	}

	bal, err := f.svc.GetBalance(ctx, "bob", "XLM")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if bal.TotalReceived.Int64() != 100 || bal.Available.Int64() != 100 || bal.Withdrawn.Int64() != 0 {
		t.Fatalf("unexpected balance: %#v", bal)
	}

	sender, err := f.svc.GetUserProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("get sender profile: %v", err)
	}
	if sender.TipsSent != 1 || sender.TotalSent.Int64() != 100 {
		t.Fatalf("sender profile wrong: %#v", sender)
	}
	recipient, err := f.svc.GetUserProfile(ctx, "bob")
	if err != nil {
		t.Fatalf("get recipient profile: %v", err)
	}
	if recipient.TipsReceived != 1 || recipient.TotalReceived.Int64() != 100 {
		t.Fatalf("recipient profile wrong: %#v", recipient)
	}

	received, err := f.svc.GetTipsForUser(ctx, "bob")
	if err != nil {
		t.Fatalf("tips for bob: %v", err)
	}
	if len(received) != 1 || received[0].Message != "thanks" || received[0].Timestamp != 1700000000 {
		t.Fatalf("unexpected tip record: %#v", received)
	}

	published := f.recorder.Events()
	if len(published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(published))
	}
	ev := published[0]
	if ev.Topic != events.TopicTipSent || ev.From != "alice" || ev.To != "bob" || ev.Amount != "100" || ev.Timestamp != 1700000000 {
		t.Fatalf("unexpected event: %#v", ev)
	}
}

func TestSendTip_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		proof   string
		from    string
		to      string
		amount  *big.Int
		message string
		want    error
	}{
		{"wrong proof", "mallory", "alice", "bob", big.NewInt(10), "", tip.ErrUnauthorized},
		{"zero amount", "alice", "alice", "bob", big.NewInt(0), "", tip.ErrInvalidAmount},
		{"negative amount", "alice", "alice", "bob", big.NewInt(-5), "", tip.ErrInvalidAmount},
		{"nil amount", "alice", "alice", "bob", nil, "", tip.ErrInvalidAmount},
		{"self tip", "alice", "alice", "alice", big.NewInt(10), "", tip.ErrSelfTip},
		{"long message", "alice", "alice", "bob", big.NewInt(10), strings.Repeat("x", 257), tip.ErrMessageTooLong},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.svc.SendTip(ctx, tc.proof, tc.from, tc.to, "XLM", tc.amount, tc.message); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	// No precondition failure may leave any trace.
	if len(f.transfer.calls) != 0 {
		t.Fatalf("transfer must not run on precondition failure: %v", f.transfer.calls)
	}
	count, err := f.svc.GetTotalTipsCount(ctx)
	if err != nil || count != 0 {
		t.Fatalf("log must stay empty, count=%d err=%v", count, err)
	}
	bal, _ := f.svc.GetBalance(ctx, "bob", "XLM")
	if bal.TotalReceived.Sign() != 0 {
		t.Fatalf("balance must stay zero: %#v", bal)
	}
	profile, _ := f.svc.GetUserProfile(ctx, "alice")
	if profile.TipsSent != 0 {
		t.Fatalf("profile must stay zero: %#v", profile)
	}
	if len(f.recorder.Events()) != 0 {
		t.Fatalf("no events on failure")
	}
}

func TestSendTip_MessageLimitIsCharacters(t *testing.T) {
	f := newFixture(t)

	// 256 multibyte characters are fine even though the byte count is far
	// larger.
	msg := strings.Repeat("é", 256)
	if _, err := f.svc.SendTip(context.Background(), "alice", "alice", "bob", "XLM", big.NewInt(1), msg); err != nil {
		t.Fatalf("256-char message rejected: %v", err)
	}
	if _, err := f.svc.SendTip(context.Background(), "alice", "alice", "bob", "XLM", big.NewInt(1), msg+"é"); !errors.Is(err, tip.ErrMessageTooLong) {
		t.Fatalf("257-char message accepted")
	}
}

func TestSendTip_TransferFailureAbortsCleanly(t *testing.T) {
	f := newFixture(t)
	f.transfer.fail = errors.New("insufficient external balance")

	_, err := f.svc.SendTip(context.Background(), "alice", "alice", "bob", "XLM", big.NewInt(100), "")
	if !errors.Is(err, tip.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	count, _ := f.svc.GetTotalTipsCount(context.Background())
	if count != 0 {
		t.Fatalf("log mutated despite transfer failure")
	}
	bal, _ := f.svc.GetBalance(context.Background(), "bob", "XLM")
	if bal.TotalReceived.Sign() != 0 {
		t.Fatalf("balance mutated despite transfer failure: %#v", bal)
	}
}

func TestSendTip_SequentialIDsAndLogOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		id, err := f.svc.SendTip(ctx, "alice", "alice", "bob", "XLM", big.NewInt(int64(i+1)), "")
		if err != nil {
			t.Fatalf("send tip %d: %v", i, err)
		}
		if id != uint64(i) {
			t.Fatalf("expected id %d, got %d", i, id)
		}
	}

	count, err := f.svc.GetTotalTipsCount(ctx)
	if err != nil || count != 5 {
		t.Fatalf("expected 5 tips, count=%d err=%v", count, err)
	}
	received, err := f.svc.GetTipsForUser(ctx, "bob")
	if err != nil {
		t.Fatalf("tips for bob: %v", err)
	}
	for i, r := range received {
		if r.ID != uint64(i) || r.Amount.Int64() != int64(i+1) {
			t.Fatalf("log out of order at %d: %#v", i, r)
		}
	}
}

func TestWithdraw_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.SendTip(ctx, "alice", "alice", "bob", "XLM", big.NewInt(100), "thanks"); err != nil {
		t.Fatalf("send tip: %v", err)
	}

	if err := f.svc.Withdraw(ctx, "bob", "bob", "XLM", big.NewInt(40)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	bal, err := f.svc.GetBalance(ctx, "bob", "XLM")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if bal.TotalReceived.Int64() != 100 || bal.Available.Int64() != 60 || bal.Withdrawn.Int64() != 40 {
		t.Fatalf("unexpected balance after withdrawal: %#v", bal)
	}
	if !bal.CheckInvariant() {
		t.Fatalf("invariant broken: %#v", bal)
	}

	// Outbound transfer went custodial -> bob.
	last := f.transfer.calls[len(f.transfer.calls)-1]
	if last != "custodial->bob 40 XLM" {
		t.Fatalf("unexpected outbound transfer: %s", last)
	}

	published := f.recorder.Events()
	ev := published[len(published)-1]
	if ev.Topic != events.TopicWithdrawal || ev.User != "bob" || ev.Token != "XLM" || ev.Amount != "40" {
		t.Fatalf("unexpected withdrawal event: %#v", ev)
	}
}

func TestWithdraw_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.SendTip(ctx, "alice", "alice", "bob", "XLM", big.NewInt(100), ""); err != nil {
		t.Fatalf("send tip: %v", err)
	}

	if err := f.svc.Withdraw(ctx, "mallory", "bob", "XLM", big.NewInt(10)); !errors.Is(err, tip.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := f.svc.Withdraw(ctx, "bob", "bob", "XLM", big.NewInt(0)); !errors.Is(err, tip.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := f.svc.Withdraw(ctx, "carol", "carol", "XLM", big.NewInt(10)); !errors.Is(err, tip.ErrNoBalance) {
		t.Fatalf("expected ErrNoBalance, got %v", err)
	}
	if err := f.svc.Withdraw(ctx, "bob", "bob", "XLM", big.NewInt(1000)); !errors.Is(err, tip.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// Balance untouched by any of the failures.
	bal, _ := f.svc.GetBalance(ctx, "bob", "XLM")
	if bal.Available.Int64() != 100 || bal.Withdrawn.Int64() != 0 {
		t.Fatalf("balance mutated by failed withdrawals: %#v", bal)
	}
}

func TestWithdraw_TransferFailureLeavesBalanceIntact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.SendTip(ctx, "alice", "alice", "bob", "XLM", big.NewInt(100), ""); err != nil {
		t.Fatalf("send tip: %v", err)
	}

	f.transfer.fail = errors.New("node down")
	if err := f.svc.Withdraw(ctx, "bob", "bob", "XLM", big.NewInt(40)); !errors.Is(err, tip.ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}

	// The debit was computed but never persisted.
	bal, _ := f.svc.GetBalance(ctx, "bob", "XLM")
	if bal.Available.Int64() != 100 || bal.Withdrawn.Int64() != 0 {
		t.Fatalf("balance persisted despite transfer failure: %#v", bal)
	}
	if !bal.CheckInvariant() {
		t.Fatalf("invariant broken: %#v", bal)
	}
}

func TestProfileTotals_MatchTipLog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	amounts := []int64{5, 10, 15}
	for _, a := range amounts {
		if _, err := f.svc.SendTip(ctx, "alice", "alice", "bob", "XLM", big.NewInt(a), ""); err != nil {
			t.Fatalf("send tip %d: %v", a, err)
		}
	}
	if _, err := f.svc.SendTip(ctx, "bob", "bob", "carol", "USDC", big.NewInt(7), ""); err != nil {
		t.Fatalf("cross-token tip: %v", err)
	}

	alice, _ := f.svc.GetUserProfile(ctx, "alice")
	if alice.TipsSent != 3 || alice.TotalSent.Int64() != 30 {
		t.Fatalf("alice profile does not match log: %#v", alice)
	}
	// bob's totals aggregate across tokens.
	bob, _ := f.svc.GetUserProfile(ctx, "bob")
	if bob.TipsReceived != 3 || bob.TotalReceived.Int64() != 30 || bob.TipsSent != 1 || bob.TotalSent.Int64() != 7 {
		t.Fatalf("bob profile does not match log: %#v", bob)
	}
}
