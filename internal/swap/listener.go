package swap

import (
	"time"

	"github.com/swaptoon/swap-engine/internal/model"
)

// Event describes one lifecycle transition.
type Event struct {
	UserID   string
	From, To Status
	Snapshot Snapshot

	// Trade is set on the transition into SUCCESS.
	Trade *model.Trade
	// Elapsed is the time since submission, set on SUCCESS and FAILED.
	Elapsed time.Duration
}

// Terminal reports whether the event ends a submitted swap.
func (e Event) Terminal() bool {
	return e.To == StatusSuccess || e.To == StatusFailed
}

// Listener is notified after every transition, outside the session lock and
// in transition order. Implementations must not block.
type Listener interface {
	OnTransition(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) OnTransition(ev Event) { f(ev) }

// Listeners fans an event out to each listener in order.
type Listeners []Listener

func (ls Listeners) OnTransition(ev Event) {
	for _, l := range ls {
		if l != nil {
			l.OnTransition(ev)
		}
	}
}
