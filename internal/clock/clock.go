// Package clock provides the delay queue behind every timer-driven
// transition. Production code uses the wall clock; tests use Manual and
// advance virtual time explicitly.
package clock

import "time"

// Timer is a pending delayed task.
type Timer interface {
	// Stop cancels the task. It reports whether the task was still pending.
	Stop() bool
}

// Scheduler runs functions after a delay.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real schedules on the wall clock. Callbacks run on their own goroutine.
type Real struct{}

// NewReal returns the wall-clock scheduler.
func NewReal() Real { return Real{} }

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
