package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/MicroTip-Network/tip_layer/internal/app/domain/tip"
)

func TestManager_IssueAndVerify(t *testing.T) {
	mgr := NewManager("test-secret")

	proof, err := mgr.IssueProof("alice", time.Minute)
	if err != nil {
		t.Fatalf("issue proof: %v", err)
	}

	if err := mgr.VerifyParticipant(proof, "alice"); err != nil {
		t.Fatalf("verify own participant: %v", err)
	}
	if err := mgr.VerifyParticipant(proof, "bob"); !errors.Is(err, tip.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong participant, got %v", err)
	}
}

func TestManager_RejectsForgedAndExpired(t *testing.T) {
	mgr := NewManager("test-secret")
	other := NewManager("other-secret")

	forged, err := other.IssueProof("alice", time.Minute)
	if err != nil {
		t.Fatalf("issue forged proof: %v", err)
	}
	if err := mgr.VerifyParticipant(forged, "alice"); !errors.Is(err, tip.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong secret, got %v", err)
	}

	expired, err := mgr.IssueProof("alice", -time.Minute)
	if err != nil {
		t.Fatalf("issue expired proof: %v", err)
	}
	if err := mgr.VerifyParticipant(expired, "alice"); !errors.Is(err, tip.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for expired proof, got %v", err)
	}

	if err := mgr.VerifyParticipant("not-a-token", "alice"); !errors.Is(err, tip.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for garbage proof, got %v", err)
	}
}

func TestManager_RequiresParticipant(t *testing.T) {
	mgr := NewManager("test-secret")
	if _, err := mgr.IssueProof("", time.Minute); err == nil {
		t.Fatalf("expected error for empty participant")
	}
}
