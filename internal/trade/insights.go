package trade

import (
	"sync"
	"time"

	"github.com/swaptoon/swap-engine/internal/clock"
	"github.com/swaptoon/swap-engine/internal/insight"
	"github.com/swaptoon/swap-engine/internal/swap"
)

// InsightSink receives insight text pushed after a session's pair changes.
type InsightSink interface {
	PushInsight(userID, from, to, text string)
}

// insightPush keeps one debouncer per user so rapid pair edits produce a
// single lookup for the final pair.
type insightPush struct {
	provider insight.Provider
	sched    clock.Scheduler
	delay    time.Duration
	sink     InsightSink

	mu         sync.Mutex
	debouncers map[string]*insight.Debouncer
}

func newInsightPush(p insight.Provider, sched clock.Scheduler, delay time.Duration, sink InsightSink) *insightPush {
	return &insightPush{
		provider:   p,
		sched:      sched,
		delay:      delay,
		sink:       sink,
		debouncers: make(map[string]*insight.Debouncer),
	}
}

// refresh requests an insight for snap's pair. No-op without a sink.
func (p *insightPush) refresh(snap swap.Snapshot) {
	if p == nil || p.sink == nil {
		return
	}
	userID, from, to := snap.UserID, snap.Source.Symbol, snap.Target.Symbol

	p.mu.Lock()
	d, ok := p.debouncers[userID]
	if !ok {
		d = insight.NewDebouncer(p.provider, p.sched, p.delay)
		p.debouncers[userID] = d
	}
	p.mu.Unlock()

	d.Request(from, to, func(text string) {
		p.sink.PushInsight(userID, from, to, text)
	})
}

func (p *insightPush) drop(userID string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	d, ok := p.debouncers[userID]
	delete(p.debouncers, userID)
	p.mu.Unlock()
	if ok {
		d.Close()
	}
}

func (p *insightPush) closeAll() {
	if p == nil {
		return
	}
	p.mu.Lock()
	all := p.debouncers
	p.debouncers = make(map[string]*insight.Debouncer)
	p.mu.Unlock()
	for _, d := range all {
		d.Close()
	}
}
