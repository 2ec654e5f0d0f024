package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/swaptoon/swap-engine/internal/model"
)

// MemoryStore implements Store with in-memory slices. It is the default
// backend: the ledger lives only as long as the process.
type MemoryStore struct {
	mu        sync.RWMutex
	trades    map[string][]model.Trade    // userID → append order
	positions map[string][]model.Position // userID → join order
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trades:    make(map[string][]model.Trade),
		positions: make(map[string][]model.Position),
	}
}

func (s *MemoryStore) AppendTrade(_ context.Context, trade *model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades[trade.UserID] = append(s.trades[trade.UserID], *trade)
	return nil
}

// ListTrades projects the ledger newest-first without mutating it.
func (s *MemoryStore) ListTrades(_ context.Context, userID string) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ledger := s.trades[userID]
	result := make([]model.Trade, 0, len(ledger))
	for i := len(ledger) - 1; i >= 0; i-- {
		result = append(result, ledger[i])
	}
	return result, nil
}

func (s *MemoryStore) JoinPool(_ context.Context, pos *model.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.positions[pos.UserID] {
		if existing.PoolID == pos.PoolID {
			return fmt.Errorf("%w: %s", ErrAlreadyJoined, pos.PoolID)
		}
	}
	s.positions[pos.UserID] = append(s.positions[pos.UserID], *pos)
	return nil
}

func (s *MemoryStore) FindPosition(_ context.Context, userID, poolID string) (*model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.positions[userID] {
		if p.PoolID == poolID {
			copy := p
			return &copy, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPositionNotFound, poolID)
}

func (s *MemoryStore) ListPositions(_ context.Context, userID string) ([]model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.Position(nil), s.positions[userID]...), nil
}
