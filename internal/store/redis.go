package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/swaptoon/swap-engine/internal/model"
)

// CachedStore wraps a primary Store with a Redis read-through cache for the
// per-user projections. Writes go to the primary store and invalidate the
// cache; reads check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) AppendTrade(ctx context.Context, trade *model.Trade) error {
	if err := s.primary.AppendTrade(ctx, trade); err != nil {
		return err
	}
	s.rdb.Del(ctx, tradesKey(trade.UserID))
	return nil
}

func (s *CachedStore) JoinPool(ctx context.Context, pos *model.Position) error {
	if err := s.primary.JoinPool(ctx, pos); err != nil {
		return err
	}
	s.rdb.Del(ctx, positionsKey(pos.UserID))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) ListTrades(ctx context.Context, userID string) ([]model.Trade, error) {
	return readThrough(ctx, s, tradesKey(userID), func() ([]model.Trade, error) {
		return s.primary.ListTrades(ctx, userID)
	})
}

func (s *CachedStore) ListPositions(ctx context.Context, userID string) ([]model.Position, error) {
	return readThrough(ctx, s, positionsKey(userID), func() ([]model.Position, error) {
		return s.primary.ListPositions(ctx, userID)
	})
}

// readThrough serves key from Redis, or loads it from the primary and
// caches the result. Undecodable cache entries count as misses.
func readThrough[T any](ctx context.Context, s *CachedStore, key string, load func() (T, error)) (T, error) {
	if data, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
		var v T
		if json.Unmarshal(data, &v) == nil {
			return v, nil
		}
	}

	v, err := load()
	if err != nil {
		return v, err
	}
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
	return v, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) FindPosition(ctx context.Context, userID, poolID string) (*model.Position, error) {
	return s.primary.FindPosition(ctx, userID, poolID)
}

// --- Keys ---

func tradesKey(uid string) string    { return fmt.Sprintf("trades:%s", uid) }
func positionsKey(uid string) string { return fmt.Sprintf("positions:%s", uid) }
