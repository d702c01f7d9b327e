package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/MicroTip-Network/tip_layer/internal/app/domain/tip"
	"github.com/MicroTip-Network/tip_layer/internal/app/storage"
)

// tipLogKey is the single fixed key the whole tip history lives under.
// The log is deliberately monolithic: every append reads and rewrites the
// full JSONB document, matching the engine's single-key log contract.
const tipLogKey = "tiplog"

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.BalanceStore = (*Store)(nil)
var _ storage.ProfileStore = (*Store)(nil)
var _ storage.TipLogStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the backing tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tip_balances (
			participant    TEXT NOT NULL,
			token          TEXT NOT NULL,
			total_received NUMERIC(39, 0) NOT NULL,
			available      NUMERIC(39, 0) NOT NULL,
			withdrawn      NUMERIC(39, 0) NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (participant, token)
		);

		CREATE TABLE IF NOT EXISTS tip_profiles (
			participant       TEXT PRIMARY KEY,
			tips_sent         BIGINT NOT NULL,
			tips_received     BIGINT NOT NULL,
			total_sent        NUMERIC(39, 0) NOT NULL,
			total_received    NUMERIC(39, 0) NOT NULL,
			first_interaction BIGINT NOT NULL,
			updated_at        TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tip_log (
			log_key    TEXT PRIMARY KEY,
			entries    JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
	`)
	return err
}

// --- BalanceStore -----------------------------------------------------------

func (s *Store) GetBalance(ctx context.Context, key storage.BalanceKey) (tip.Balance, bool, error) {
	row := s.db.QueryRowxContext(ctx, `
		SELECT total_received, available, withdrawn
		FROM tip_balances
		WHERE participant = $1 AND token = $2
	`, key.Participant, key.Token)

	var totalReceived, available, withdrawn string
	if err := row.Scan(&totalReceived, &available, &withdrawn); err != nil {
		if err == sql.ErrNoRows {
			return tip.Balance{}, false, nil
		}
		return tip.Balance{}, false, err
	}

	bal := tip.Balance{Token: key.Token}
	var err error
	if bal.TotalReceived, err = parseAmount(totalReceived); err != nil {
		return tip.Balance{}, false, err
	}
	if bal.Available, err = parseAmount(available); err != nil {
		return tip.Balance{}, false, err
	}
	if bal.Withdrawn, err = parseAmount(withdrawn); err != nil {
		return tip.Balance{}, false, err
	}
	return bal, true, nil
}

func (s *Store) PutBalance(ctx context.Context, key storage.BalanceKey, bal tip.Balance) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tip_balances (participant, token, total_received, available, withdrawn, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (participant, token) DO UPDATE
		SET total_received = EXCLUDED.total_received,
		    available      = EXCLUDED.available,
		    withdrawn      = EXCLUDED.withdrawn,
		    updated_at     = EXCLUDED.updated_at
	`, key.Participant, key.Token,
		bal.TotalReceived.String(), bal.Available.String(), bal.Withdrawn.String(),
		time.Now().UTC())
	return err
}

// --- ProfileStore -----------------------------------------------------------

func (s *Store) GetProfile(ctx context.Context, key storage.ProfileKey) (tip.UserProfile, bool, error) {
	row := s.db.QueryRowxContext(ctx, `
		SELECT tips_sent, tips_received, total_sent, total_received, first_interaction
		FROM tip_profiles
		WHERE participant = $1
	`, key.Participant)

	var (
		tipsSent, tipsReceived   int64
		totalSent, totalReceived string
		firstInteraction         int64
	)
	if err := row.Scan(&tipsSent, &tipsReceived, &totalSent, &totalReceived, &firstInteraction); err != nil {
		if err == sql.ErrNoRows {
			return tip.UserProfile{}, false, nil
		}
		return tip.UserProfile{}, false, err
	}

	profile := tip.UserProfile{
		TipsSent:         uint64(tipsSent),
		TipsReceived:     uint64(tipsReceived),
		FirstInteraction: uint64(firstInteraction),
	}
	var err error
	if profile.TotalSent, err = parseAmount(totalSent); err != nil {
		return tip.UserProfile{}, false, err
	}
	if profile.TotalReceived, err = parseAmount(totalReceived); err != nil {
		return tip.UserProfile{}, false, err
	}
	return profile, true, nil
}

func (s *Store) PutProfile(ctx context.Context, key storage.ProfileKey, profile tip.UserProfile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tip_profiles (participant, tips_sent, tips_received, total_sent, total_received, first_interaction, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (participant) DO UPDATE
		SET tips_sent      = EXCLUDED.tips_sent,
		    tips_received  = EXCLUDED.tips_received,
		    total_sent     = EXCLUDED.total_sent,
		    total_received = EXCLUDED.total_received,
		    updated_at     = EXCLUDED.updated_at
	`, key.Participant,
		int64(profile.TipsSent), int64(profile.TipsReceived),
		profile.TotalSent.String(), profile.TotalReceived.String(),
		int64(profile.FirstInteraction), time.Now().UTC())
	return err
}

// --- TipLogStore ------------------------------------------------------------

func (s *Store) LoadTipLog(ctx context.Context) ([]tip.Tip, error) {
	row := s.db.QueryRowxContext(ctx, `
		SELECT entries FROM tip_log WHERE log_key = $1
	`, tipLogKey)

	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if err == sql.ErrNoRows {
			return []tip.Tip{}, nil
		}
		return nil, err
	}

	var log []tip.Tip
	if err := json.Unmarshal(raw, &log); err != nil {
		return nil, fmt.Errorf("decode tip log: %w", err)
	}
	return log, nil
}

func (s *Store) StoreTipLog(ctx context.Context, log []tip.Tip) error {
	raw, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("encode tip log: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tip_log (log_key, entries, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (log_key) DO UPDATE
		SET entries = EXCLUDED.entries, updated_at = EXCLUDED.updated_at
	`, tipLogKey, raw, time.Now().UTC())
	return err
}

func parseAmount(raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount in storage: %q", raw)
	}
	return v, nil
}
