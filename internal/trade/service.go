// Package trade provides the HTTP handlers for the swap engine: catalog
// lookups, quotes, per-user swap sessions, trade history, pool staking and
// the portfolio view.
//
// All monetary values use shopspring/decimal; never float64 for money.
package trade

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/swaptoon/swap-engine/internal/catalog"
	"github.com/swaptoon/swap-engine/internal/clock"
	"github.com/swaptoon/swap-engine/internal/convert"
	"github.com/swaptoon/swap-engine/internal/insight"
	"github.com/swaptoon/swap-engine/internal/metrics"
	"github.com/swaptoon/swap-engine/internal/model"
	"github.com/swaptoon/swap-engine/internal/store"
	"github.com/swaptoon/swap-engine/internal/swap"
)

// Stakes drawn when a join request omits the amount: [minStake, minStake+stakeSpan).
const (
	minStake  = 100
	stakeSpan = 500
)

var dailyEarningsRate = decimal.NewFromFloat(0.05)

// Options wires a Service. Catalog and Store are required.
type Options struct {
	Catalog   *catalog.Catalog
	Store     store.Store
	Insight   insight.Provider   // nil → no-key fallback
	Scheduler clock.Scheduler    // nil → real time
	Failures  swap.FailurePolicy // nil → never fail
	Listener  swap.Listener      // optional transition observer
	Rand      *rand.Rand         // stake draws; nil → time-seeded

	ConfirmDelay time.Duration
	ExecuteDelay time.Duration

	// InsightSink, when set, is pushed a fresh insight DebounceDelay after
	// each pair change.
	InsightSink   InsightSink
	DebounceDelay time.Duration

	// SessionIdleTTL closes IDLE sessions untouched for this long; checked
	// every SessionIdleTTL. Zero keeps sessions until DELETE or shutdown.
	SessionIdleTTL time.Duration
}

// Service handles HTTP requests. Each user gets one swap session, created
// lazily on first access.
type Service struct {
	catalog  *catalog.Catalog
	store    store.Store
	insight  insight.Provider
	sched    clock.Scheduler
	sessions *Sessions
	push     *insightPush

	rndMu sync.Mutex
	rnd   *rand.Rand

	reapMu     sync.Mutex
	reapTimer  clock.Timer
	reapClosed bool
}

// NewService creates a new service.
func NewService(opts Options) *Service {
	if opts.Scheduler == nil {
		opts.Scheduler = clock.NewReal()
	}
	if opts.Insight == nil {
		opts.Insight = insight.NewGemini("")
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s := &Service{
		catalog: opts.Catalog,
		store:   opts.Store,
		insight: opts.Insight,
		sched:   opts.Scheduler,
		rnd:     opts.Rand,
		push:    newInsightPush(opts.Insight, opts.Scheduler, opts.DebounceDelay, opts.InsightSink),
	}
	s.sessions = NewSessions(func(userID string) (*swap.Controller, error) {
		return swap.New(swap.Config{
			UserID:       userID,
			Catalog:      opts.Catalog,
			Store:        opts.Store,
			Scheduler:    opts.Scheduler,
			ConfirmDelay: opts.ConfirmDelay,
			ExecuteDelay: opts.ExecuteDelay,
			Failures:     opts.Failures,
			Listener:     opts.Listener,
		})
	}, opts.Scheduler.Now)
	if opts.SessionIdleTTL > 0 {
		s.scheduleReap(opts.SessionIdleTTL)
	}
	return s
}

func (s *Service) scheduleReap(ttl time.Duration) {
	s.reapMu.Lock()
	defer s.reapMu.Unlock()
	if s.reapClosed {
		return
	}
	s.reapTimer = s.sched.AfterFunc(ttl, func() {
		if users := s.sessions.Reap(ttl); len(users) > 0 {
			for _, u := range users {
				s.push.drop(u)
			}
			slog.Info("idle sessions reaped", "count", len(users))
		}
		s.scheduleReap(ttl)
	})
}

// Sessions exposes the session registry.
func (s *Service) Sessions() *Sessions { return s.sessions }

// Close tears down every session and pending insight lookup.
func (s *Service) Close() {
	s.reapMu.Lock()
	s.reapClosed = true
	if s.reapTimer != nil {
		s.reapTimer.Stop()
	}
	s.reapMu.Unlock()

	s.push.closeAll()
	s.sessions.CloseAll()
}

// Routes mounts the API under r (usually /api/v1).
func (s *Service) Routes(r chi.Router) {
	r.Get("/assets", s.ListAssets)
	r.Get("/rates", s.GetRates)
	r.Get("/pools", s.ListPools)
	r.Get("/quote", s.GetQuote)
	r.Get("/insight", s.GetInsight)

	r.Route("/sessions/{userID}", func(r chi.Router) {
		r.Get("/", s.GetSession)
		r.Delete("/", s.DeleteSession)
		r.Put("/amount", s.SetAmount)
		r.Put("/assets", s.SetAssets)
		r.Post("/flip", s.Flip)
		r.Post("/submit", s.Submit)
		r.Post("/ack", s.Acknowledge)
		r.Post("/cancel", s.Cancel)
	})

	r.Get("/trades/{userID}", s.ListTrades)
	r.Post("/pools/{poolID}/join", s.JoinPool)
	r.Get("/portfolio/{userID}", s.GetPortfolio)
}

// --- Request/Response types ---

// QuoteResponse is the JSON body returned from GET /quote.
type QuoteResponse struct {
	From         string          `json:"from"`
	To           string          `json:"to"`
	Amount       string          `json:"amount"`
	TargetAmount string          `json:"target_amount"`
	Rate         decimal.Decimal `json:"rate"`
	USDValue     decimal.Decimal `json:"usd_value"`
}

// InsightResponse is the JSON body returned from GET /insight.
type InsightResponse struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

// AmountRequest is the JSON body for PUT /sessions/{userID}/amount.
type AmountRequest struct {
	Amount string `json:"amount"`
}

// AssetsRequest is the JSON body for PUT /sessions/{userID}/assets.
// Either side may be omitted to keep it.
type AssetsRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// ActionResponse reports whether a lifecycle action changed the session.
type ActionResponse struct {
	Applied bool          `json:"applied"`
	Session swap.Snapshot `json:"session"`
}

// JoinRequest is the JSON body for POST /pools/{poolID}/join.
type JoinRequest struct {
	UserID string           `json:"user_id"`
	Amount *decimal.Decimal `json:"amount,omitempty"` // nil → random stake
}

// --- Catalog handlers ---

// ListAssets handles GET /api/v1/assets
func (s *Service) ListAssets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Assets())
}

// GetRates handles GET /api/v1/rates
func (s *Service) GetRates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Rates())
}

// ListPools handles GET /api/v1/pools
func (s *Service) ListPools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Pools())
}

// GetQuote handles GET /api/v1/quote?from=&to=&amount=
// Stateless conversion, the same calculator a session uses.
func (s *Service) GetQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, ok := s.pair(w, q.Get("from"), q.Get("to"))
	if !ok {
		return
	}
	amount := q.Get("amount")
	if !convert.ValidInput(amount) {
		writeError(w, "amount must be digits with at most one decimal point", http.StatusBadRequest)
		return
	}

	rateFrom, _ := s.catalog.Rate(from.Symbol)
	rateTo, _ := s.catalog.Rate(to.Symbol)
	rate, err := convert.Rate(rateFrom, rateTo)
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, QuoteResponse{
		From:         from.Symbol,
		To:           to.Symbol,
		Amount:       amount,
		TargetAmount: convert.Convert(amount, rateFrom, rateTo),
		Rate:         rate,
		USDValue:     convert.USDValue(amount, rateFrom).Round(2),
	})
}

// GetInsight handles GET /api/v1/insight?from=&to=
func (s *Service) GetInsight(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, ok := s.pair(w, q.Get("from"), q.Get("to"))
	if !ok {
		return
	}
	text := s.insight.Insight(r.Context(), from.Symbol, to.Symbol)
	writeJSON(w, http.StatusOK, InsightResponse{From: from.Symbol, To: to.Symbol, Text: text})
}

func (s *Service) pair(w http.ResponseWriter, fromSym, toSym string) (from, to model.Asset, ok bool) {
	if fromSym == "" || toSym == "" {
		writeError(w, "from and to are required", http.StatusBadRequest)
		return from, to, false
	}
	var err error
	if from, err = s.catalog.Asset(fromSym); err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return from, to, false
	}
	if to, err = s.catalog.Asset(toSym); err != nil {
		writeError(w, err.Error(), http.StatusNotFound)
		return from, to, false
	}
	if from.Symbol == to.Symbol {
		writeError(w, swap.ErrSameAsset.Error(), http.StatusBadRequest)
		return from, to, false
	}
	return from, to, true
}

// --- Session handlers ---

func (s *Service) session(w http.ResponseWriter, r *http.Request) (*swap.Controller, bool) {
	c, err := s.sessions.Get(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return nil, false
	}
	return c, true
}

// GetSession handles GET /api/v1/sessions/{userID}
func (s *Service) GetSession(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// DeleteSession handles DELETE /api/v1/sessions/{userID}
func (s *Service) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if !s.sessions.Close(userID) {
		writeError(w, "session not found", http.StatusNotFound)
		return
	}
	s.push.drop(userID)
	w.WriteHeader(http.StatusNoContent)
}

// SetAmount handles PUT /api/v1/sessions/{userID}/amount
func (s *Service) SetAmount(w http.ResponseWriter, r *http.Request) {
	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := c.SetSourceAmount(req.Amount); err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// SetAssets handles PUT /api/v1/sessions/{userID}/assets
func (s *Service) SetAssets(w http.ResponseWriter, r *http.Request) {
	var req AssetsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Source == "" && req.Target == "" {
		writeError(w, "source or target is required", http.StatusBadRequest)
		return
	}
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := c.SelectPair(req.Source, req.Target); err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	snap := c.Snapshot()
	s.push.refresh(snap)
	writeJSON(w, http.StatusOK, snap)
}

// Flip handles POST /api/v1/sessions/{userID}/flip
func (s *Service) Flip(w http.ResponseWriter, r *http.Request) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := c.Flip(); err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	snap := c.Snapshot()
	s.push.refresh(snap)
	writeJSON(w, http.StatusOK, ActionResponse{Applied: true, Session: snap})
}

// Submit handles POST /api/v1/sessions/{userID}/submit
// Returns 202 when a swap started; 200 with applied=false when the guard
// rejected it (empty or zero amount, or a swap already in flight).
func (s *Service) Submit(w http.ResponseWriter, r *http.Request) {
	s.action(w, r, (*swap.Controller).Submit, http.StatusAccepted)
}

// Acknowledge handles POST /api/v1/sessions/{userID}/ack
func (s *Service) Acknowledge(w http.ResponseWriter, r *http.Request) {
	s.action(w, r, (*swap.Controller).Acknowledge, http.StatusOK)
}

// Cancel handles POST /api/v1/sessions/{userID}/cancel
func (s *Service) Cancel(w http.ResponseWriter, r *http.Request) {
	s.action(w, r, (*swap.Controller).Cancel, http.StatusOK)
}

func (s *Service) action(w http.ResponseWriter, r *http.Request, fn func(*swap.Controller) (bool, error), appliedStatus int) {
	c, ok := s.session(w, r)
	if !ok {
		return
	}
	applied, err := fn(c)
	if err != nil {
		writeError(w, err.Error(), statusFor(err))
		return
	}
	status := http.StatusOK
	if applied {
		status = appliedStatus
	}
	writeJSON(w, status, ActionResponse{Applied: applied, Session: c.Snapshot()})
}

// --- Ledger handlers ---

// ListTrades handles GET /api/v1/trades/{userID}
// Most recent first.
func (s *Service) ListTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.store.ListTrades(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, "failed to list trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

// JoinPool handles POST /api/v1/pools/{poolID}/join
func (s *Service) JoinPool(w http.ResponseWriter, r *http.Request) {
	poolID := chi.URLParam(r, "poolID")

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		writeError(w, "user_id is required", http.StatusBadRequest)
		return
	}

	pool, err := s.catalog.Pool(poolID)
	if err != nil {
		metrics.PoolJoins.WithLabelValues("unknown", "not_found").Inc()
		writeError(w, err.Error(), http.StatusNotFound)
		return
	}

	var stake decimal.Decimal
	if req.Amount == nil {
		stake = s.randomStake()
	} else {
		stake = *req.Amount
		if !stake.IsPositive() {
			writeError(w, "amount must be positive", http.StatusBadRequest)
			return
		}
	}

	pos := &model.Position{
		UserID:       req.UserID,
		PoolID:       pool.ID,
		StakedAmount: stake,
		Earnings:     decimal.Zero,
		JoinedAt:     s.sched.Now().UTC(),
	}
	if err := s.store.JoinPool(r.Context(), pos); err != nil {
		if errors.Is(err, store.ErrAlreadyJoined) {
			metrics.PoolJoins.WithLabelValues(pool.ID, "duplicate").Inc()
			writeError(w, err.Error(), http.StatusConflict)
			return
		}
		slog.Error("failed to join pool", "user", req.UserID, "pool", pool.ID, "err", err)
		writeError(w, "failed to join pool", http.StatusInternalServerError)
		return
	}
	metrics.PoolJoins.WithLabelValues(pool.ID, "joined").Inc()

	slog.Info("pool joined",
		"user", req.UserID,
		"pool", pool.ID,
		"staked", stake.String(),
	)

	writeJSON(w, http.StatusCreated, positionView(*pos, pool))
}

func (s *Service) randomStake() decimal.Decimal {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return decimal.NewFromInt(int64(minStake + s.rnd.Intn(stakeSpan)))
}

// GetPortfolio handles GET /api/v1/portfolio/{userID}
// Trade history, positions with daily earnings estimate, and the 7-day chart.
func (s *Service) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	ctx := r.Context()

	trades, err := s.store.ListTrades(ctx, userID)
	if err != nil {
		writeError(w, "failed to load trades", http.StatusInternalServerError)
		return
	}
	positions, err := s.store.ListPositions(ctx, userID)
	if err != nil {
		writeError(w, "failed to load positions", http.StatusInternalServerError)
		return
	}

	views := make([]model.PositionView, 0, len(positions))
	for _, p := range positions {
		pool, err := s.catalog.Pool(p.PoolID)
		if err != nil {
			// Pool dropped from a reloaded catalog; keep the stake visible.
			pool = model.LiquidityPool{ID: p.PoolID}
		}
		views = append(views, positionView(p, pool))
	}
	if trades == nil {
		trades = []model.Trade{}
	}

	chart := s.catalog.Chart()
	total, gain := decimal.Zero, decimal.Zero
	if n := len(chart); n > 0 {
		total = chart[n-1].Value
		gain = chart[n-1].Value.Sub(chart[0].Value)
	}

	writeJSON(w, http.StatusOK, model.Portfolio{
		UserID:    userID,
		Total:     total,
		WeekGain:  gain,
		Chart:     chart,
		Trades:    trades,
		Positions: views,
	})
}

func positionView(p model.Position, pool model.LiquidityPool) model.PositionView {
	return model.PositionView{
		Position:      p,
		Pool:          pool,
		DailyEarnings: p.StakedAmount.Mul(dailyEarningsRate).Round(2),
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, swap.ErrInvalidAmount), errors.Is(err, swap.ErrSameAsset):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrUnknownAsset), errors.Is(err, catalog.ErrUnknownPool),
		errors.Is(err, store.ErrPositionNotFound):
		return http.StatusNotFound
	case errors.Is(err, swap.ErrNotIdle), errors.Is(err, store.ErrAlreadyJoined):
		return http.StatusConflict
	case errors.Is(err, swap.ErrClosed):
		return http.StatusGone
	case errors.Is(err, ErrInvalidUser):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
