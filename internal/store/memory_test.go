package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/swaptoon/swap-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func trade(id, user string) *model.Trade {
	return &model.Trade{
		ID:           id,
		UserID:       user,
		SourceAsset:  model.Asset{Symbol: "BTC"},
		TargetAsset:  model.Asset{Symbol: "USDC"},
		SourceAmount: "1",
		TargetAmount: "65000",
		Timestamp:    time.Now().UTC(),
	}
}

func TestMemoryStore_ListTradesMostRecentFirst(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.AppendTrade(ctx, trade("t1", "user1"))
	s.AppendTrade(ctx, trade("t2", "user1"))

	trades, err := s.ListTrades(ctx, "user1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	if trades[0].ID != "t2" || trades[1].ID != "t1" {
		t.Errorf("expected [t2 t1], got [%s %s]", trades[0].ID, trades[1].ID)
	}
}

func TestMemoryStore_ListTradesDoesNotMutate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.AppendTrade(ctx, trade("t1", "user1"))
	s.AppendTrade(ctx, trade("t2", "user1"))

	first, _ := s.ListTrades(ctx, "user1")
	first[0].SourceAmount = "999"
	second, _ := s.ListTrades(ctx, "user1")

	if second[0].ID != "t2" || second[0].SourceAmount != "1" {
		t.Errorf("listing must be a projection, got %+v", second[0])
	}
}

func TestMemoryStore_TradesScopedByUser(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.AppendTrade(ctx, trade("t1", "user1"))
	s.AppendTrade(ctx, trade("t2", "user2"))

	trades, _ := s.ListTrades(ctx, "user1")
	if len(trades) != 1 || trades[0].ID != "t1" {
		t.Errorf("expected only user1's trade, got %+v", trades)
	}
	empty, _ := s.ListTrades(ctx, "nobody")
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", empty)
	}
}

func TestMemoryStore_JoinAndFind(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.JoinPool(ctx, &model.Position{
		UserID:       "user1",
		PoolID:       "btc-usdc",
		StakedAmount: d(250),
		Earnings:     decimal.Zero,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := s.FindPosition(ctx, "user1", "btc-usdc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.StakedAmount.Equal(d(250)) {
		t.Errorf("expected staked=250, got %s", p.StakedAmount)
	}
	if !p.Earnings.IsZero() {
		t.Errorf("expected earnings=0, got %s", p.Earnings)
	}
}

func TestMemoryStore_FindMissing(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.FindPosition(context.Background(), "user1", "btc-usdc")
	if !errors.Is(err, ErrPositionNotFound) {
		t.Errorf("expected ErrPositionNotFound, got %v", err)
	}
}

func TestMemoryStore_JoinTwiceRejected(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	pos := &model.Position{UserID: "user1", PoolID: "btc-usdc", StakedAmount: d(100)}

	if err := s.JoinPool(ctx, pos); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	again := &model.Position{UserID: "user1", PoolID: "btc-usdc", StakedAmount: d(500)}
	if err := s.JoinPool(ctx, again); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}

	positions, _ := s.ListPositions(ctx, "user1")
	if len(positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(positions))
	}
	if !positions[0].StakedAmount.Equal(d(100)) {
		t.Errorf("original stake must be kept, got %s", positions[0].StakedAmount)
	}

	// Another user may join the same pool.
	other := &model.Position{UserID: "user2", PoolID: "btc-usdc", StakedAmount: d(300)}
	if err := s.JoinPool(ctx, other); err != nil {
		t.Errorf("other user should be able to join: %v", err)
	}
}

func TestMemoryStore_ConcurrentAppends(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AppendTrade(ctx, trade("t", "user1"))
		}()
	}
	wg.Wait()

	trades, _ := s.ListTrades(ctx, "user1")
	if len(trades) != 50 {
		t.Errorf("expected 50 trades, got %d", len(trades))
	}
}
