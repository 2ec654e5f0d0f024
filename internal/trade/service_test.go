package trade_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/swaptoon/swap-engine/internal/catalog"
	"github.com/swaptoon/swap-engine/internal/clock"
	"github.com/swaptoon/swap-engine/internal/insight"
	"github.com/swaptoon/swap-engine/internal/model"
	"github.com/swaptoon/swap-engine/internal/store"
	"github.com/swaptoon/swap-engine/internal/swap"
	"github.com/swaptoon/swap-engine/internal/trade"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

type testEnv struct {
	svc    *trade.Service
	store  *store.MemoryStore
	clock  *clock.Manual
	router chi.Router
}

// newTestEnv creates a test Service with in-memory store, virtual clock and
// chi router.
func newTestEnv(t *testing.T, mutate func(*trade.Options)) *testEnv {
	t.Helper()
	env := &testEnv{
		store: store.NewMemoryStore(),
		clock: clock.NewManual(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
	}
	opts := trade.Options{
		Catalog:   catalog.Default(),
		Store:     env.store,
		Scheduler: env.clock,
		Insight: insight.ProviderFunc(func(_ context.Context, from, to string) string {
			return "vibe " + from + "/" + to
		}),
		Rand: rand.New(rand.NewSource(42)),
	}
	if mutate != nil {
		mutate(&opts)
	}
	env.svc = trade.NewService(opts)

	r := chi.NewRouter()
	r.Route("/api/v1", env.svc.Routes)
	env.router = r
	t.Cleanup(env.svc.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

// --- Catalog ---

func TestListAssets(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, "GET", "/api/v1/assets", nil)
	expectStatus(t, w, http.StatusOK)

	assets := decode[[]model.Asset](t, w)
	if len(assets) != 6 {
		t.Fatalf("expected 6 assets, got %d", len(assets))
	}
	if assets[0].Symbol != "BTC" {
		t.Errorf("expected BTC first, got %s", assets[0].Symbol)
	}
}

func TestGetRates(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, "GET", "/api/v1/rates", nil)
	expectStatus(t, w, http.StatusOK)

	rates := decode[map[string]decimal.Decimal](t, w)
	if !rates["BTC"].Equal(d(65000)) || !rates["PEPE"].Equal(d(0.000008)) {
		t.Errorf("unexpected rates %v", rates)
	}
}

func TestListPools(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, "GET", "/api/v1/pools", nil)
	expectStatus(t, w, http.StatusOK)

	pools := decode[[]model.LiquidityPool](t, w)
	if len(pools) != 4 || pools[0].ID != "btc-usdc" {
		t.Errorf("unexpected pools %+v", pools)
	}
}

// --- Quote / insight ---

func TestGetQuote(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		query  string
		target string
	}{
		{"from=BTC&to=USDC&amount=1", "65000"},
		{"from=btc&to=usdc&amount=0.1", "6500"},
		{"from=BTC&to=USDC&amount=0", "0"},
		{"from=BTC&to=USDC&amount=", ""},
		{"from=ETH&to=BTC&amount=1", "0.053846"},
	}
	for _, tt := range tests {
		w := env.do(t, "GET", "/api/v1/quote?"+tt.query, nil)
		expectStatus(t, w, http.StatusOK)
		q := decode[trade.QuoteResponse](t, w)
		if q.TargetAmount != tt.target {
			t.Errorf("%s: expected %q, got %q", tt.query, tt.target, q.TargetAmount)
		}
	}

	w := env.do(t, "GET", "/api/v1/quote?from=BTC&to=USDC&amount=0.5", nil)
	q := decode[trade.QuoteResponse](t, w)
	if !q.USDValue.Equal(d(32500)) || !q.Rate.Equal(d(65000)) {
		t.Errorf("unexpected usd=%s rate=%s", q.USDValue, q.Rate)
	}
}

func TestGetQuote_Errors(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		query  string
		status int
	}{
		{"from=BTC&to=USDC&amount=1a", http.StatusBadRequest},
		{"from=BTC&to=USDC&amount=-1", http.StatusBadRequest},
		{"from=BTC&to=BTC&amount=1", http.StatusBadRequest},
		{"from=XRP&to=USDC&amount=1", http.StatusNotFound},
		{"to=USDC&amount=1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := env.do(t, "GET", "/api/v1/quote?"+tt.query, nil)
		if w.Code != tt.status {
			t.Errorf("%s: expected %d, got %d", tt.query, tt.status, w.Code)
		}
	}
}

func TestGetInsight(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, "GET", "/api/v1/insight?from=sol&to=usdc", nil)
	expectStatus(t, w, http.StatusOK)

	resp := decode[trade.InsightResponse](t, w)
	if resp.Text != "vibe SOL/USDC" {
		t.Errorf("unexpected insight %q", resp.Text)
	}

	w = env.do(t, "GET", "/api/v1/insight?from=sol&to=nope", nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestGetInsight_NoKeyFallback(t *testing.T) {
	env := newTestEnv(t, func(o *trade.Options) { o.Insight = nil })
	w := env.do(t, "GET", "/api/v1/insight?from=BTC&to=USDC", nil)
	expectStatus(t, w, http.StatusOK)

	if resp := decode[trade.InsightResponse](t, w); resp.Text != insight.FallbackNoKey {
		t.Errorf("expected no-key fallback, got %q", resp.Text)
	}
}

// --- Sessions ---

func TestSession_LazyCreateDefaults(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, "GET", "/api/v1/sessions/user1", nil)
	expectStatus(t, w, http.StatusOK)

	snap := decode[swap.Snapshot](t, w)
	if snap.Status != swap.StatusIdle || snap.Source.Symbol != "BTC" || snap.Target.Symbol != "USDC" {
		t.Errorf("unexpected fresh session %+v", snap)
	}
	if env.svc.Sessions().Len() != 1 {
		t.Errorf("expected 1 session, got %d", env.svc.Sessions().Len())
	}
}

func TestSession_FullSwap(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, "PUT", "/api/v1/sessions/user1/amount", trade.AmountRequest{Amount: "1"})
	expectStatus(t, w, http.StatusOK)
	if snap := decode[swap.Snapshot](t, w); snap.TargetAmount != "65000" {
		t.Fatalf("expected target 65000, got %q", snap.TargetAmount)
	}

	w = env.do(t, "POST", "/api/v1/sessions/user1/submit", nil)
	expectStatus(t, w, http.StatusAccepted)
	if resp := decode[trade.ActionResponse](t, w); !resp.Applied || resp.Session.Status != swap.StatusConfirming {
		t.Fatalf("expected CONFIRMING, got %+v", resp)
	}

	// Edits are rejected while in flight.
	w = env.do(t, "PUT", "/api/v1/sessions/user1/amount", trade.AmountRequest{Amount: "2"})
	expectStatus(t, w, http.StatusConflict)

	env.clock.Advance(3500 * time.Millisecond)

	w = env.do(t, "GET", "/api/v1/sessions/user1", nil)
	snap := decode[swap.Snapshot](t, w)
	if snap.Status != swap.StatusSuccess || snap.LastTrade == nil {
		t.Fatalf("expected SUCCESS with trade, got %+v", snap)
	}

	w = env.do(t, "GET", "/api/v1/trades/user1", nil)
	expectStatus(t, w, http.StatusOK)
	trades := decode[[]model.Trade](t, w)
	if len(trades) != 1 || trades[0].SourceAmount != "1" || trades[0].TargetAmount != "65000" {
		t.Fatalf("unexpected trades %+v", trades)
	}

	w = env.do(t, "POST", "/api/v1/sessions/user1/ack", nil)
	expectStatus(t, w, http.StatusOK)
	resp := decode[trade.ActionResponse](t, w)
	if !resp.Applied || resp.Session.Status != swap.StatusIdle || resp.Session.SourceAmount != "" {
		t.Errorf("expected cleared IDLE session, got %+v", resp.Session)
	}
}

func TestSession_SubmitGuard(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, "POST", "/api/v1/sessions/user1/submit", nil)
	expectStatus(t, w, http.StatusOK)
	if resp := decode[trade.ActionResponse](t, w); resp.Applied || resp.Session.Status != swap.StatusIdle {
		t.Errorf("empty submit must be a no-op, got %+v", resp)
	}

	env.do(t, "PUT", "/api/v1/sessions/user1/amount", trade.AmountRequest{Amount: "0"})
	w = env.do(t, "POST", "/api/v1/sessions/user1/submit", nil)
	if resp := decode[trade.ActionResponse](t, w); resp.Applied {
		t.Error("zero submit must be a no-op")
	}

	env.clock.Advance(time.Minute)
	if trades, _ := env.store.ListTrades(context.Background(), "user1"); len(trades) != 0 {
		t.Errorf("expected no trades, got %d", len(trades))
	}
}

func TestSession_InvalidAmount(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, "PUT", "/api/v1/sessions/user1/amount", trade.AmountRequest{Amount: "1.2.3"})
	expectStatus(t, w, http.StatusBadRequest)
}

func TestSession_SetAssetsAndFlip(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, "PUT", "/api/v1/sessions/user1/assets", trade.AssetsRequest{Source: "ETH"})
	expectStatus(t, w, http.StatusOK)
	env.do(t, "PUT", "/api/v1/sessions/user1/amount", trade.AmountRequest{Amount: "2"})

	w = env.do(t, "POST", "/api/v1/sessions/user1/flip", nil)
	expectStatus(t, w, http.StatusOK)
	s := decode[trade.ActionResponse](t, w).Session
	if s.Source.Symbol != "USDC" || s.Target.Symbol != "ETH" || s.SourceAmount != "7000" || s.TargetAmount != "2" {
		t.Errorf("unexpected flipped session %+v", s)
	}

	w = env.do(t, "PUT", "/api/v1/sessions/user1/assets", trade.AssetsRequest{Source: "ETH", Target: "USDC"})
	expectStatus(t, w, http.StatusOK)

	w = env.do(t, "PUT", "/api/v1/sessions/user1/assets", trade.AssetsRequest{Target: "ETH"})
	expectStatus(t, w, http.StatusBadRequest)

	w = env.do(t, "PUT", "/api/v1/sessions/user1/assets", trade.AssetsRequest{Target: "XRP"})
	expectStatus(t, w, http.StatusNotFound)

	w = env.do(t, "PUT", "/api/v1/sessions/user1/assets", trade.AssetsRequest{})
	expectStatus(t, w, http.StatusBadRequest)
}

func TestSession_Cancel(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, "PUT", "/api/v1/sessions/user1/amount", trade.AmountRequest{Amount: "1"})
	env.do(t, "POST", "/api/v1/sessions/user1/submit", nil)
	env.clock.Advance(time.Second)

	w := env.do(t, "POST", "/api/v1/sessions/user1/cancel", nil)
	expectStatus(t, w, http.StatusOK)
	resp := decode[trade.ActionResponse](t, w)
	if !resp.Applied || resp.Session.Status != swap.StatusFailed || resp.Session.FailureReason != swap.ReasonCancelled {
		t.Fatalf("expected FAILED(cancelled), got %+v", resp.Session)
	}

	env.clock.Advance(time.Minute)
	if trades, _ := env.store.ListTrades(context.Background(), "user1"); len(trades) != 0 {
		t.Error("cancelled swap must not record a trade")
	}

	w = env.do(t, "POST", "/api/v1/sessions/user1/ack", nil)
	if s := decode[trade.ActionResponse](t, w).Session; s.Status != swap.StatusIdle || s.SourceAmount != "1" {
		t.Errorf("expected IDLE keeping amount, got %+v", s)
	}
}

func TestSession_FailurePolicy(t *testing.T) {
	env := newTestEnv(t, func(o *trade.Options) {
		o.Failures = swap.RandomFailures(1, rand.New(rand.NewSource(1)))
	})
	env.do(t, "PUT", "/api/v1/sessions/user1/amount", trade.AmountRequest{Amount: "1"})
	env.do(t, "POST", "/api/v1/sessions/user1/submit", nil)
	env.clock.Advance(5 * time.Second)

	w := env.do(t, "GET", "/api/v1/sessions/user1", nil)
	if s := decode[swap.Snapshot](t, w); s.Status != swap.StatusFailed || s.FailureReason == "" {
		t.Errorf("expected FAILED with reason, got %+v", s)
	}
}

func TestSession_Delete(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, "PUT", "/api/v1/sessions/user1/amount", trade.AmountRequest{Amount: "1"})
	env.do(t, "POST", "/api/v1/sessions/user1/submit", nil)

	w := env.do(t, "DELETE", "/api/v1/sessions/user1", nil)
	expectStatus(t, w, http.StatusNoContent)

	env.clock.Advance(time.Minute)
	if trades, _ := env.store.ListTrades(context.Background(), "user1"); len(trades) != 0 {
		t.Error("torn-down session must not record a trade")
	}

	w = env.do(t, "DELETE", "/api/v1/sessions/user1", nil)
	expectStatus(t, w, http.StatusNotFound)

	// A new session starts fresh.
	w = env.do(t, "GET", "/api/v1/sessions/user1", nil)
	if s := decode[swap.Snapshot](t, w); s.Status != swap.StatusIdle || s.SourceAmount != "" {
		t.Errorf("expected fresh session, got %+v", s)
	}
}

func TestSession_UsersIsolated(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, "PUT", "/api/v1/sessions/alice/amount", trade.AmountRequest{Amount: "1"})
	env.do(t, "POST", "/api/v1/sessions/alice/submit", nil)

	w := env.do(t, "GET", "/api/v1/sessions/bob", nil)
	if s := decode[swap.Snapshot](t, w); s.Status != swap.StatusIdle {
		t.Errorf("bob's session must be independent, got %s", s.Status)
	}
}

// --- Pools ---

func TestJoinPool_ExplicitAmount(t *testing.T) {
	env := newTestEnv(t, nil)
	amount := d(250)

	w := env.do(t, "POST", "/api/v1/pools/btc-usdc/join", trade.JoinRequest{UserID: "user1", Amount: &amount})
	expectStatus(t, w, http.StatusCreated)

	view := decode[model.PositionView](t, w)
	if !view.StakedAmount.Equal(d(250)) || !view.Earnings.IsZero() {
		t.Errorf("expected staked 250 earnings 0, got %s/%s", view.StakedAmount, view.Earnings)
	}
	if !view.DailyEarnings.Equal(d(12.5)) {
		t.Errorf("expected daily earnings 12.5, got %s", view.DailyEarnings)
	}
	if view.Pool.ID != "btc-usdc" || !view.Pool.APR.Equal(d(12.5)) {
		t.Errorf("unexpected pool %+v", view.Pool)
	}

	w = env.do(t, "POST", "/api/v1/pools/btc-usdc/join", trade.JoinRequest{UserID: "user1", Amount: &amount})
	expectStatus(t, w, http.StatusConflict)
}

func TestJoinPool_RandomStake(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, pool := range []string{"btc-usdc", "eth-usdc", "sol-usdc", "doge-pepe"} {
		w := env.do(t, "POST", "/api/v1/pools/"+pool+"/join", trade.JoinRequest{UserID: "user1"})
		expectStatus(t, w, http.StatusCreated)

		view := decode[model.PositionView](t, w)
		if view.StakedAmount.LessThan(d(100)) || !view.StakedAmount.LessThan(d(600)) {
			t.Errorf("%s: stake %s outside [100,600)", pool, view.StakedAmount)
		}
		if !view.StakedAmount.Equal(view.StakedAmount.Truncate(0)) {
			t.Errorf("%s: stake %s should be whole", pool, view.StakedAmount)
		}
	}
}

func TestJoinPool_Errors(t *testing.T) {
	env := newTestEnv(t, nil)
	neg := d(-5)

	w := env.do(t, "POST", "/api/v1/pools/btc-eur/join", trade.JoinRequest{UserID: "user1"})
	expectStatus(t, w, http.StatusNotFound)

	w = env.do(t, "POST", "/api/v1/pools/btc-usdc/join", trade.JoinRequest{})
	expectStatus(t, w, http.StatusBadRequest)

	w = env.do(t, "POST", "/api/v1/pools/btc-usdc/join", trade.JoinRequest{UserID: "user1", Amount: &neg})
	expectStatus(t, w, http.StatusBadRequest)
}

// --- Portfolio ---

func TestGetPortfolio(t *testing.T) {
	env := newTestEnv(t, nil)

	// Two swaps, then a pool join.
	for _, amount := range []string{"1", "2"} {
		env.do(t, "PUT", "/api/v1/sessions/user1/amount", trade.AmountRequest{Amount: amount})
		env.do(t, "POST", "/api/v1/sessions/user1/submit", nil)
		env.clock.Advance(3500 * time.Millisecond)
		env.do(t, "POST", "/api/v1/sessions/user1/ack", nil)
	}
	stake := d(400)
	env.do(t, "POST", "/api/v1/pools/eth-usdc/join", trade.JoinRequest{UserID: "user1", Amount: &stake})

	w := env.do(t, "GET", "/api/v1/portfolio/user1", nil)
	expectStatus(t, w, http.StatusOK)
	p := decode[model.Portfolio](t, w)

	if len(p.Trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(p.Trades))
	}
	if p.Trades[0].SourceAmount != "2" || p.Trades[1].SourceAmount != "1" {
		t.Errorf("expected most recent first, got %s, %s", p.Trades[0].SourceAmount, p.Trades[1].SourceAmount)
	}
	if len(p.Positions) != 1 || !p.Positions[0].DailyEarnings.Equal(d(20)) {
		t.Errorf("unexpected positions %+v", p.Positions)
	}
	if !p.Total.Equal(d(1450)) || !p.WeekGain.Equal(d(250)) {
		t.Errorf("expected total 1450 gain 250, got %s/%s", p.Total, p.WeekGain)
	}
	if len(p.Chart) != 7 || p.Chart[0].Day != "Lun" {
		t.Errorf("unexpected chart %+v", p.Chart)
	}
}

func TestGetPortfolio_Empty(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, "GET", "/api/v1/portfolio/nobody", nil)
	expectStatus(t, w, http.StatusOK)

	if body := w.Body.String(); !bytes.Contains([]byte(body), []byte(`"trades":[]`)) ||
		!bytes.Contains([]byte(body), []byte(`"positions":[]`)) {
		t.Errorf("empty lists should encode as [], got %s", body)
	}
}

type pushed struct{ user, from, to, text string }

type recordingSink struct{ got []pushed }

func (s *recordingSink) PushInsight(userID, from, to, text string) {
	s.got = append(s.got, pushed{userID, from, to, text})
}

func TestInsightPush_DebouncesPairChanges(t *testing.T) {
	sink := &recordingSink{}
	env := newTestEnv(t, func(o *trade.Options) {
		o.InsightSink = sink
		o.DebounceDelay = 500 * time.Millisecond
	})

	expectStatus(t, env.do(t, "PUT", "/api/v1/sessions/user1/assets", trade.AssetsRequest{Source: "ETH"}), http.StatusOK)
	env.clock.Advance(200 * time.Millisecond)
	expectStatus(t, env.do(t, "PUT", "/api/v1/sessions/user1/assets", trade.AssetsRequest{Source: "SOL"}), http.StatusOK)
	env.clock.Advance(200 * time.Millisecond)
	expectStatus(t, env.do(t, "POST", "/api/v1/sessions/user1/flip", nil), http.StatusOK)

	env.clock.Advance(499 * time.Millisecond)
	if len(sink.got) != 0 {
		t.Fatalf("expected no push before the quiet period, got %v", sink.got)
	}
	env.clock.Advance(time.Millisecond)
	if len(sink.got) != 1 {
		t.Fatalf("expected exactly one push, got %v", sink.got)
	}
	want := pushed{"user1", "USDC", "SOL", "vibe USDC/SOL"}
	if sink.got[0] != want {
		t.Errorf("expected %v, got %v", want, sink.got[0])
	}
}

func TestInsightPush_DroppedWithSession(t *testing.T) {
	sink := &recordingSink{}
	env := newTestEnv(t, func(o *trade.Options) { o.InsightSink = sink })

	expectStatus(t, env.do(t, "PUT", "/api/v1/sessions/user1/assets", trade.AssetsRequest{Source: "ETH"}), http.StatusOK)
	expectStatus(t, env.do(t, "DELETE", "/api/v1/sessions/user1", nil), http.StatusNoContent)

	env.clock.Advance(time.Second)
	if len(sink.got) != 0 {
		t.Errorf("expected no push after teardown, got %v", sink.got)
	}
}

func TestSessions_IdleSessionsReaped(t *testing.T) {
	env := newTestEnv(t, func(o *trade.Options) { o.SessionIdleTTL = time.Minute })

	expectStatus(t, env.do(t, "GET", "/api/v1/sessions/idle", nil), http.StatusOK)
	expectStatus(t, env.do(t, "GET", "/api/v1/sessions/busy", nil), http.StatusOK)
	expectStatus(t, env.do(t, "PUT", "/api/v1/sessions/busy/amount", trade.AmountRequest{Amount: "1"}), http.StatusOK)

	env.clock.Advance(30 * time.Second)
	expectStatus(t, env.do(t, "GET", "/api/v1/sessions/active", nil), http.StatusOK)
	// Unacknowledged results keep a session alive.
	expectStatus(t, env.do(t, "POST", "/api/v1/sessions/busy/submit", nil), http.StatusAccepted)

	env.clock.Advance(30 * time.Second)
	if got := env.svc.Sessions().Len(); got != 2 {
		t.Fatalf("expected idle session reaped after 1m, %d sessions left", got)
	}

	env.clock.Advance(time.Minute)
	if got := env.svc.Sessions().Len(); got != 1 {
		t.Fatalf("expected only the finished swap to survive, %d sessions left", got)
	}
	w := env.do(t, "GET", "/api/v1/sessions/busy", nil)
	expectStatus(t, w, http.StatusOK)
	if s := decode[swap.Snapshot](t, w); s.Status != swap.StatusSuccess {
		t.Errorf("expected busy session kept at SUCCESS, got %s", s.Status)
	}
}

func TestSessions_ReapDisabledByDefault(t *testing.T) {
	env := newTestEnv(t, nil)
	expectStatus(t, env.do(t, "GET", "/api/v1/sessions/user1", nil), http.StatusOK)

	env.clock.Advance(24 * time.Hour)
	if got := env.svc.Sessions().Len(); got != 1 {
		t.Errorf("expected session kept, got %d", got)
	}
}
