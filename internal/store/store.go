// Package store defines the trade/position ledger. Implementations include
// in-memory (the default; data is lost on restart), PostgreSQL (optional
// durable ledger), and a Redis read-through cache in front of either.
package store

import (
	"context"
	"errors"

	"github.com/swaptoon/swap-engine/internal/model"
)

var (
	// ErrAlreadyJoined is returned when a user joins a pool they already
	// hold a position in.
	ErrAlreadyJoined = errors.New("store: pool already joined")

	// ErrPositionNotFound is returned when a user holds no position in a pool.
	ErrPositionNotFound = errors.New("store: position not found")
)

// Store is the ledger interface. Trades are append-only; positions are
// created once per (user, pool) and never removed.
type Store interface {
	// --- Immutable trade ledger ---

	// AppendTrade appends a completed trade. Existing entries are never
	// removed or reordered.
	AppendTrade(ctx context.Context, trade *model.Trade) error

	// ListTrades returns a user's trades, most recent first.
	ListTrades(ctx context.Context, userID string) ([]model.Trade, error)

	// --- Pool positions ---

	// JoinPool records a new position. Returns ErrAlreadyJoined if the user
	// already holds one in the same pool.
	JoinPool(ctx context.Context, pos *model.Position) error

	// FindPosition returns the user's position in a pool, or
	// ErrPositionNotFound.
	FindPosition(ctx context.Context, userID, poolID string) (*model.Position, error)

	// ListPositions returns a user's positions in join order.
	ListPositions(ctx context.Context, userID string) ([]model.Position, error)
}
