package trade

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/swaptoon/swap-engine/internal/metrics"
	"github.com/swaptoon/swap-engine/internal/swap"
)

var ErrInvalidUser = errors.New("trade: user id is required")

type sessionEntry struct {
	ctrl     *swap.Controller
	lastUsed time.Time
}

// Sessions is the registry of live swap sessions, one per user.
type Sessions struct {
	mu     sync.Mutex
	byUser map[string]*sessionEntry
	create func(userID string) (*swap.Controller, error)
	now    func() time.Time
}

// NewSessions creates a registry that builds sessions with create and
// stamps each access with now.
func NewSessions(create func(userID string) (*swap.Controller, error), now func() time.Time) *Sessions {
	return &Sessions{
		byUser: make(map[string]*sessionEntry),
		create: create,
		now:    now,
	}
}

// Get returns the user's session, creating an idle one on first use.
func (s *Sessions) Get(userID string) (*swap.Controller, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.byUser[userID]; ok {
		e.lastUsed = s.now()
		return e.ctrl, nil
	}
	c, err := s.create(userID)
	if err != nil {
		return nil, err
	}
	s.byUser[userID] = &sessionEntry{ctrl: c, lastUsed: s.now()}
	metrics.ActiveSessions.Inc()
	return c, nil
}

// Close tears down the user's session. It reports false if none existed.
func (s *Sessions) Close(userID string) bool {
	userID = strings.TrimSpace(userID)
	s.mu.Lock()
	e, ok := s.byUser[userID]
	if ok {
		delete(s.byUser, userID)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	e.ctrl.Close()
	metrics.ActiveSessions.Dec()
	return true
}

// Reap closes IDLE sessions untouched for at least maxIdle and returns
// their user IDs. Sessions with a swap in flight or an unacknowledged
// result are kept.
func (s *Sessions) Reap(maxIdle time.Duration) []string {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	var reaped []*sessionEntry
	var users []string
	for user, e := range s.byUser {
		if e.lastUsed.After(cutoff) || e.ctrl.Snapshot().Status != swap.StatusIdle {
			continue
		}
		delete(s.byUser, user)
		reaped = append(reaped, e)
		users = append(users, user)
	}
	s.mu.Unlock()

	for _, e := range reaped {
		e.ctrl.Close()
		metrics.ActiveSessions.Dec()
	}
	return users
}

// CloseAll tears down every session, stopping their pending timers.
func (s *Sessions) CloseAll() {
	s.mu.Lock()
	all := s.byUser
	s.byUser = make(map[string]*sessionEntry)
	s.mu.Unlock()

	for _, e := range all {
		e.ctrl.Close()
		metrics.ActiveSessions.Dec()
	}
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byUser)
}
