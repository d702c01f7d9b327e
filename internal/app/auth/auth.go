// Package auth implements capability proofs for write operations. A proof
// is a signed token naming the participant it grants control of; the
// orchestrator checks the proof against the participant a call claims to
// act for. Reads need no proof.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MicroTip-Network/tip_layer/internal/app/domain/tip"
)

const issuer = "tip_layer"

// Manager issues and verifies participant proofs using an HMAC secret.
type Manager struct {
	secret []byte
}

// NewManager creates a proof manager. The secret must be shared with
// nothing but other engine instances.
func NewManager(secret string) *Manager {
	return &Manager{secret: []byte(secret)}
}

// IssueProof mints a proof of control over the named participant, valid
// for the given duration.
func (m *Manager) IssueProof(participant string, ttl time.Duration) (string, error) {
	if participant == "" {
		return "", fmt.Errorf("participant is required")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   participant,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// VerifyParticipant checks that the proof is valid and covers the named
// participant. Any failure maps to the engine's authorization error so
// callers cannot distinguish a forged proof from a mismatched one.
func (m *Manager) VerifyParticipant(proof, participant string) error {
	token, err := jwt.ParseWithClaims(proof, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil || !token.Valid {
		return fmt.Errorf("%w: invalid proof", tip.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject != participant {
		return fmt.Errorf("%w: proof does not cover %s", tip.ErrUnauthorized, participant)
	}
	return nil
}
