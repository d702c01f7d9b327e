package ledger

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/MicroTip-Network/tip_layer/internal/app/domain/tip"
	"github.com/MicroTip-Network/tip_layer/internal/app/storage"
	"github.com/MicroTip-Network/tip_layer/internal/app/storage/memory"
)

func TestService_DepositAndRead(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	// Reads of missing records return the zero default without persisting.
	bal, err := svc.GetBalance(context.Background(), "bob", "XLM")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if bal.TotalReceived.Sign() != 0 || bal.Token != "XLM" {
		t.Fatalf("unexpected default balance: %#v", bal)
	}
	if _, found, _ := store.GetBalance(context.Background(), storage.BalanceKey{Participant: "bob", Token: "XLM"}); found {
		t.Fatalf("zero-valued read must not persist")
	}

	bal, err = svc.Deposit(context.Background(), "bob", "XLM", big.NewInt(100))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if bal.TotalReceived.Int64() != 100 || bal.Available.Int64() != 100 || bal.Withdrawn.Int64() != 0 {
		t.Fatalf("deposit not applied: %#v", bal)
	}
	if !bal.CheckInvariant() {
		t.Fatalf("invariant broken: %#v", bal)
	}

	bal, err = svc.Deposit(context.Background(), "bob", "XLM", big.NewInt(25))
	if err != nil {
		t.Fatalf("second deposit: %v", err)
	}
	if bal.TotalReceived.Int64() != 125 || bal.Available.Int64() != 125 {
		t.Fatalf("second deposit not accumulated: %#v", bal)
	}
}

func TestService_Withdrawal(t *testing.T) {
	store := memory.New()
	svc := New(store, nil)

	if _, err := svc.BeginWithdrawal(context.Background(), "bob", "XLM", big.NewInt(10)); !errors.Is(err, tip.ErrNoBalance) {
		t.Fatalf("expected ErrNoBalance, got %v", err)
	}

	if _, err := svc.Deposit(context.Background(), "bob", "XLM", big.NewInt(100)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if _, err := svc.BeginWithdrawal(context.Background(), "bob", "XLM", big.NewInt(1000)); !errors.Is(err, tip.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	pending, err := svc.BeginWithdrawal(context.Background(), "bob", "XLM", big.NewInt(40))
	if err != nil {
		t.Fatalf("begin withdrawal: %v", err)
	}
	if pending.Available.Int64() != 60 || pending.Withdrawn.Int64() != 40 || pending.TotalReceived.Int64() != 100 {
		t.Fatalf("withdrawal arithmetic wrong: %#v", pending)
	}
	if !pending.CheckInvariant() {
		t.Fatalf("invariant broken: %#v", pending)
	}

	// Until committed the stored record is unchanged.
	stored, err := svc.GetBalance(context.Background(), "bob", "XLM")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if stored.Available.Int64() != 100 {
		t.Fatalf("uncommitted withdrawal leaked: %#v", stored)
	}

	if err := svc.CommitWithdrawal(context.Background(), "bob", "XLM", pending); err != nil {
		t.Fatalf("commit withdrawal: %v", err)
	}
	stored, err = svc.GetBalance(context.Background(), "bob", "XLM")
	if err != nil {
		t.Fatalf("get balance after commit: %v", err)
	}
	if stored.Available.Int64() != 60 || stored.Withdrawn.Int64() != 40 {
		t.Fatalf("commit not applied: %#v", stored)
	}
}
