package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/swaptoon/swap-engine/internal/model"
)

// Schema creates the ledger tables. Amounts stay TEXT because they are the
// exact strings the calculator produced; stakes are NUMERIC.
const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	seq           BIGSERIAL PRIMARY KEY,
	id            TEXT NOT NULL UNIQUE,
	user_id       TEXT NOT NULL,
	source_asset  JSONB NOT NULL,
	target_asset  JSONB NOT NULL,
	source_amount TEXT NOT NULL,
	target_amount TEXT NOT NULL,
	timestamp     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS trades_user_seq ON trades (user_id, seq DESC);

CREATE TABLE IF NOT EXISTS positions (
	user_id       TEXT NOT NULL,
	pool_id       TEXT NOT NULL,
	staked_amount NUMERIC NOT NULL,
	earnings      NUMERIC NOT NULL DEFAULT 0,
	joined_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, pool_id)
);
`

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema applies Schema. Safe to run on every start.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendTrade(ctx context.Context, t *model.Trade) error {
	src, err := json.Marshal(t.SourceAsset)
	if err != nil {
		return err
	}
	dst, err := json.Marshal(t.TargetAsset)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO trades (id, user_id, source_asset, target_asset, source_amount, target_amount, timestamp)
		 VALUES ($1, $2, $3::JSONB, $4::JSONB, $5, $6, $7)`,
		t.ID, t.UserID, string(src), string(dst),
		t.SourceAmount, t.TargetAmount, t.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert trade %s: %w", t.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListTrades(ctx context.Context, userID string) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, source_asset::TEXT, target_asset::TEXT,
		        source_amount, target_amount, timestamp
		 FROM trades WHERE user_id = $1 ORDER BY seq DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trades := []model.Trade{}
	for rows.Next() {
		var t model.Trade
		var src, dst string
		if err := rows.Scan(&t.ID, &t.UserID, &src, &dst,
			&t.SourceAmount, &t.TargetAmount, &t.Timestamp); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(src), &t.SourceAsset); err != nil {
			return nil, fmt.Errorf("decode source asset of %s: %w", t.ID, err)
		}
		if err := json.Unmarshal([]byte(dst), &t.TargetAsset); err != nil {
			return nil, fmt.Errorf("decode target asset of %s: %w", t.ID, err)
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (s *PostgresStore) JoinPool(ctx context.Context, p *model.Position) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO positions (user_id, pool_id, staked_amount, earnings, joined_at)
		 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5)
		 ON CONFLICT (user_id, pool_id) DO NOTHING`,
		p.UserID, p.PoolID, p.StakedAmount.String(), p.Earnings.String(), p.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrAlreadyJoined, p.PoolID)
	}
	return nil
}

func (s *PostgresStore) FindPosition(ctx context.Context, userID, poolID string) (*model.Position, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT user_id, pool_id, staked_amount::TEXT, earnings::TEXT, joined_at
		 FROM positions WHERE user_id = $1 AND pool_id = $2`, userID, poolID)

	p, err := scanPosition(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPositionNotFound, poolID)
	}
	if err != nil {
		return nil, fmt.Errorf("get position %s/%s: %w", userID, poolID, err)
	}
	return p, nil
}

func (s *PostgresStore) ListPositions(ctx context.Context, userID string) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, pool_id, staked_amount::TEXT, earnings::TEXT, joined_at
		 FROM positions WHERE user_id = $1 ORDER BY joined_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	positions := []model.Position{}
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *p)
	}
	return positions, rows.Err()
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row rowScanner) (*model.Position, error) {
	var p model.Position
	var staked, earnings string
	if err := row.Scan(&p.UserID, &p.PoolID, &staked, &earnings, &p.JoinedAt); err != nil {
		return nil, err
	}
	p.StakedAmount, _ = decimal.NewFromString(staked)
	p.Earnings, _ = decimal.NewFromString(earnings)
	return &p, nil
}
