package insight

import (
	"context"
	"sync"
	"time"

	"github.com/swaptoon/swap-engine/internal/clock"
)

// DefaultDebounce is the quiet period after a pair change before a lookup.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer coalesces rapid pair changes into one lookup. Each Request
// cancels the previous one; only the latest request's result is delivered.
type Debouncer struct {
	provider Provider
	sched    clock.Scheduler
	delay    time.Duration

	mu     sync.Mutex
	seq    uint64
	timer  clock.Timer
	cancel context.CancelFunc
	closed bool
}

// NewDebouncer creates a debouncer. delay ≤ 0 means DefaultDebounce.
func NewDebouncer(p Provider, sched clock.Scheduler, delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{provider: p, sched: sched, delay: delay}
}

// Request schedules a lookup for the pair. deliver runs on the scheduler's
// goroutine with the insight text, unless a newer Request or Close
// superseded it first.
func (d *Debouncer) Request(from, to string, deliver func(string)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	d.seq++
	seq := d.seq
	d.cancel = cancel

	d.timer = d.sched.AfterFunc(d.delay, func() {
		if ctx.Err() != nil {
			return
		}
		text := d.provider.Insight(ctx, from, to)

		d.mu.Lock()
		current := !d.closed && seq == d.seq && ctx.Err() == nil
		d.mu.Unlock()
		if current {
			deliver(text)
		}
	})
}

// Close cancels any pending or in-flight lookup. Later Requests are ignored.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.stopLocked()
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
