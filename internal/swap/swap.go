// Package swap implements the per-session swap lifecycle:
//
//	IDLE → CONFIRMING → EXECUTING → SUCCESS → IDLE
//	            ↘           ↘
//	             FAILED ─────────→ IDLE
//
// A Controller owns one session. All state changes happen under its mutex;
// the two delays run on a clock.Scheduler so tests can drive them with
// virtual time.
package swap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/swaptoon/swap-engine/internal/catalog"
	"github.com/swaptoon/swap-engine/internal/clock"
	"github.com/swaptoon/swap-engine/internal/convert"
	"github.com/swaptoon/swap-engine/internal/model"
	"github.com/swaptoon/swap-engine/internal/store"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusIdle       Status = "IDLE"
	StatusConfirming Status = "CONFIRMING"
	StatusExecuting  Status = "EXECUTING"
	StatusSuccess    Status = "SUCCESS"
	StatusFailed     Status = "FAILED"
)

const (
	DefaultConfirmDelay = 1500 * time.Millisecond
	DefaultExecuteDelay = 2000 * time.Millisecond

	// ReasonCancelled is the failure reason recorded by Cancel.
	ReasonCancelled = "cancelled"

	ledgerTimeout = 5 * time.Second
)

var (
	ErrInvalidAmount = errors.New("swap: invalid amount")
	ErrSameAsset     = errors.New("swap: source and target must differ")
	ErrNotIdle       = errors.New("swap: session is not idle")
	ErrClosed        = errors.New("swap: session closed")
)

// Config configures a Controller. Catalog, Store and Scheduler are required.
type Config struct {
	UserID    string
	Catalog   *catalog.Catalog
	Store     store.Store
	Scheduler clock.Scheduler

	ConfirmDelay time.Duration // 0 → DefaultConfirmDelay
	ExecuteDelay time.Duration // 0 → DefaultExecuteDelay
	Failures     FailurePolicy // nil → NeverFail
	Listener     Listener      // optional

	// Initial pair; empty → catalog.DefaultPair.
	Source, Target string
}

// Snapshot is a value copy of a session for views.
type Snapshot struct {
	UserID        string          `json:"user_id"`
	Status        Status          `json:"status"`
	Source        model.Asset     `json:"source"`
	Target        model.Asset     `json:"target"`
	SourceAmount  string          `json:"source_amount"`
	TargetAmount  string          `json:"target_amount"`
	Rate          decimal.Decimal `json:"rate"`       // 1 source = Rate target
	SourceUSD     decimal.Decimal `json:"source_usd"` // "≈ $" line
	FailureReason string          `json:"failure_reason,omitempty"`
	LastTrade     *model.Trade    `json:"last_trade,omitempty"`
}

// request is the swap captured at submission.
type request struct {
	source, target             model.Asset
	sourceAmount, targetAmount string
	submittedAt                time.Time
}

// Controller runs the swap lifecycle for one session.
type Controller struct {
	userID   string
	cat      *catalog.Catalog
	store    store.Store
	sched    clock.Scheduler
	confirm  time.Duration
	execute  time.Duration
	failures FailurePolicy
	listener Listener

	mu           sync.Mutex
	status       Status
	source       model.Asset
	target       model.Asset
	sourceAmount string
	targetAmount string
	reason       string
	lastTrade    *model.Trade
	pending      *request
	timer        clock.Timer
	gen          uint64 // bumped on Cancel/Close; stale timer callbacks compare it
	closed       bool

	outbox   []Event // transitions not yet delivered to the listener
	flushing bool
}

// New creates an idle session.
func New(cfg Config) (*Controller, error) {
	if cfg.Catalog == nil || cfg.Store == nil || cfg.Scheduler == nil {
		return nil, errors.New("swap: catalog, store and scheduler are required")
	}
	c := &Controller{
		userID:   cfg.UserID,
		cat:      cfg.Catalog,
		store:    cfg.Store,
		sched:    cfg.Scheduler,
		confirm:  cfg.ConfirmDelay,
		execute:  cfg.ExecuteDelay,
		failures: cfg.Failures,
		listener: cfg.Listener,
		status:   StatusIdle,
	}
	if c.confirm <= 0 {
		c.confirm = DefaultConfirmDelay
	}
	if c.execute <= 0 {
		c.execute = DefaultExecuteDelay
	}
	if c.failures == nil {
		c.failures = NeverFail{}
	}

	src, dst := cfg.Source, cfg.Target
	if src == "" || dst == "" {
		src, dst = catalog.DefaultPair()
	}
	var err error
	if c.source, err = c.cat.Asset(src); err != nil {
		return nil, err
	}
	if c.target, err = c.cat.Asset(dst); err != nil {
		return nil, err
	}
	if c.source.Symbol == c.target.Symbol {
		return nil, fmt.Errorf("%w: %s", ErrSameAsset, c.source.Symbol)
	}
	return c, nil
}

// UserID returns the session owner.
func (c *Controller) UserID() string { return c.userID }

// SetSourceAmount replaces the source amount field and recomputes the
// target. Edits that are not digits with at most one point are rejected.
func (c *Controller) SetSourceAmount(amount string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editableLocked(); err != nil {
		return err
	}
	if !convert.ValidInput(amount) {
		return fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	c.sourceAmount = amount
	c.recomputeLocked()
	return nil
}

// SelectSource picks the source asset.
func (c *Controller) SelectSource(symbol string) error {
	return c.selectAsset(symbol, true)
}

// SelectTarget picks the target asset.
func (c *Controller) SelectTarget(symbol string) error {
	return c.selectAsset(symbol, false)
}

// SelectPair sets both assets at once, so a pair can be reversed without
// passing through a same-asset state. An empty symbol keeps that side.
func (c *Controller) SelectPair(source, target string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editableLocked(); err != nil {
		return err
	}
	src, dst := c.source, c.target
	var err error
	if source != "" {
		if src, err = c.cat.Asset(source); err != nil {
			return err
		}
	}
	if target != "" {
		if dst, err = c.cat.Asset(target); err != nil {
			return err
		}
	}
	if src.Symbol == dst.Symbol {
		return fmt.Errorf("%w: %s", ErrSameAsset, src.Symbol)
	}
	c.source, c.target = src, dst
	c.recomputeLocked()
	return nil
}

func (c *Controller) selectAsset(symbol string, source bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editableLocked(); err != nil {
		return err
	}
	a, err := c.cat.Asset(symbol)
	if err != nil {
		return err
	}
	other := c.target
	if !source {
		other = c.source
	}
	if a.Symbol == other.Symbol {
		return fmt.Errorf("%w: %s", ErrSameAsset, a.Symbol)
	}
	if source {
		c.source = a
	} else {
		c.target = a
	}
	c.recomputeLocked()
	return nil
}

// Flip swaps the assets and moves the computed target amount into the
// source field.
func (c *Controller) Flip() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editableLocked(); err != nil {
		return err
	}
	c.source, c.target = c.target, c.source
	c.sourceAmount = c.targetAmount
	c.recomputeLocked()
	return nil
}

// Submit starts a swap. It reports false without error when the session is
// not idle or the source amount is empty or zero.
func (c *Controller) Submit() (bool, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, ErrClosed
	}
	if c.status != StatusIdle || !convert.Positive(c.sourceAmount) || c.targetAmount == "" {
		c.mu.Unlock()
		return false, nil
	}

	c.pending = &request{
		source:       c.source,
		target:       c.target,
		sourceAmount: c.sourceAmount,
		targetAmount: c.targetAmount,
		submittedAt:  c.sched.Now(),
	}
	c.reason = ""
	ev := c.transitionLocked(StatusConfirming)
	c.scheduleLocked(c.confirm, c.confirmElapsedLocked)
	c.mu.Unlock()

	slog.Info("swap submitted",
		"user", c.userID,
		"source", ev.Snapshot.Source.Symbol,
		"target", ev.Snapshot.Target.Symbol,
		"amount", ev.Snapshot.SourceAmount,
	)
	c.flush()
	return true, nil
}

// Acknowledge returns a finished session to IDLE. After SUCCESS the amount
// fields are cleared; after FAILED they are kept for a retry.
func (c *Controller) Acknowledge() (bool, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, ErrClosed
	}
	switch c.status {
	case StatusSuccess:
		c.sourceAmount = ""
		c.targetAmount = ""
	case StatusFailed:
		c.recomputeLocked()
	default:
		c.mu.Unlock()
		return false, nil
	}
	c.reason = ""
	c.transitionLocked(StatusIdle)
	c.mu.Unlock()

	c.flush()
	return true, nil
}

// Cancel aborts an in-flight swap. The pending timer is stopped and the
// session moves to FAILED with ReasonCancelled.
func (c *Controller) Cancel() (bool, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, ErrClosed
	}
	if c.status != StatusConfirming && c.status != StatusExecuting {
		c.mu.Unlock()
		return false, nil
	}
	c.stopTimerLocked()
	c.failLocked(ReasonCancelled)
	c.mu.Unlock()

	slog.Info("swap cancelled", "user", c.userID)
	c.flush()
	return true, nil
}

// Close tears the session down. Pending timers are stopped, late firings
// are ignored and every later action returns ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.stopTimerLocked()
}

// Closed reports whether Close has been called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Snapshot returns a copy of the session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// --- lifecycle steps (run from scheduler callbacks, mutex held) ---

func (c *Controller) confirmElapsedLocked() Event {
	if reason, failed := c.failures.Fail(StageExecute); failed {
		return c.failLocked(reason)
	}
	ev := c.transitionLocked(StatusExecuting)
	c.scheduleLocked(c.execute, c.executeElapsedLocked)
	return ev
}

func (c *Controller) executeElapsedLocked() Event {
	if reason, failed := c.failures.Fail(StageSettle); failed {
		return c.failLocked(reason)
	}

	req := c.pending
	id, err := uuid.NewV7()
	if err != nil {
		return c.failLocked(err.Error())
	}
	trade := &model.Trade{
		ID:           id.String(),
		UserID:       c.userID,
		SourceAsset:  req.source,
		TargetAsset:  req.target,
		SourceAmount: req.sourceAmount,
		TargetAmount: req.targetAmount,
		Timestamp:    c.sched.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()
	if err := c.store.AppendTrade(ctx, trade); err != nil {
		slog.Error("failed to record trade", "user", c.userID, "trade_id", trade.ID, "err", err)
		return c.failLocked(err.Error())
	}

	c.lastTrade = trade
	ev := c.transitionLocked(StatusSuccess)

	slog.Info("swap completed",
		"trade_id", trade.ID,
		"user", c.userID,
		"source", trade.SourceAsset.Symbol,
		"target", trade.TargetAsset.Symbol,
		"source_amount", trade.SourceAmount,
		"target_amount", trade.TargetAmount,
	)
	return ev
}

// --- helpers ---

func (c *Controller) editableLocked() error {
	if c.closed {
		return ErrClosed
	}
	if c.status != StatusIdle {
		return fmt.Errorf("%w: %s", ErrNotIdle, c.status)
	}
	return nil
}

func (c *Controller) recomputeLocked() {
	from, _ := c.cat.Rate(c.source.Symbol)
	to, _ := c.cat.Rate(c.target.Symbol)
	c.targetAmount = convert.Convert(c.sourceAmount, from, to)
}

func (c *Controller) scheduleLocked(d time.Duration, step func() Event) {
	gen := c.gen
	c.timer = c.sched.AfterFunc(d, func() {
		c.mu.Lock()
		if c.closed || gen != c.gen {
			c.mu.Unlock()
			return
		}
		c.timer = nil
		step()
		c.mu.Unlock()
		c.flush()
	})
}

func (c *Controller) stopTimerLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) failLocked(reason string) Event {
	c.reason = reason
	ev := c.transitionLocked(StatusFailed)
	slog.Warn("swap failed", "user", c.userID, "reason", reason)
	return ev
}

func (c *Controller) transitionLocked(to Status) Event {
	ev := Event{UserID: c.userID, From: c.status, To: to}
	c.status = to
	if to == StatusSuccess {
		ev.Trade = c.lastTrade
	}
	if c.pending != nil && (to == StatusSuccess || to == StatusFailed) {
		ev.Elapsed = c.sched.Now().Sub(c.pending.submittedAt)
		c.pending = nil
	}
	ev.Snapshot = c.snapshotLocked()
	c.outbox = append(c.outbox, ev)
	return ev
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		UserID:        c.userID,
		Status:        c.status,
		Source:        c.source,
		Target:        c.target,
		SourceAmount:  c.sourceAmount,
		TargetAmount:  c.targetAmount,
		FailureReason: c.reason,
	}
	from, _ := c.cat.Rate(c.source.Symbol)
	to, _ := c.cat.Rate(c.target.Symbol)
	s.Rate, _ = convert.Rate(from, to)
	s.SourceUSD = convert.USDValue(c.sourceAmount, from)
	if c.lastTrade != nil {
		t := *c.lastTrade
		s.LastTrade = &t
	}
	return s
}

// flush delivers queued events in transition order. Only one goroutine
// delivers at a time; a concurrent or nested caller leaves its events to the
// one already delivering.
func (c *Controller) flush() {
	c.mu.Lock()
	if c.flushing {
		c.mu.Unlock()
		return
	}
	c.flushing = true
	for len(c.outbox) > 0 {
		ev := c.outbox[0]
		c.outbox = c.outbox[1:]
		c.mu.Unlock()

		if c.listener != nil {
			c.listener.OnTransition(ev)
		}

		c.mu.Lock()
	}
	c.flushing = false
	c.mu.Unlock()
}
