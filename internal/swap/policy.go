package swap

import (
	"math/rand"
	"sync"
)

// Stage identifies the lifecycle step a FailurePolicy is consulted for.
type Stage string

const (
	// StageExecute is checked when the confirmation delay elapses, before
	// the session enters EXECUTING.
	StageExecute Stage = "execute"
	// StageSettle is checked when the execution delay elapses, before the
	// trade is recorded.
	StageSettle Stage = "settle"
)

// FailurePolicy decides whether a simulated swap step fails.
type FailurePolicy interface {
	Fail(stage Stage) (reason string, failed bool)
}

// NeverFail is the default policy.
type NeverFail struct{}

func (NeverFail) Fail(Stage) (string, bool) { return "", false }

// FailurePolicyFunc adapts a function to FailurePolicy.
type FailurePolicyFunc func(stage Stage) (string, bool)

func (f FailurePolicyFunc) Fail(stage Stage) (string, bool) { return f(stage) }

type randomFailures struct {
	mu  sync.Mutex
	p   float64
	rnd *rand.Rand
}

// RandomFailures fails each stage independently with probability p, drawing
// from rnd. The returned policy may be shared between sessions.
func RandomFailures(p float64, rnd *rand.Rand) FailurePolicy {
	if p <= 0 {
		return NeverFail{}
	}
	return &randomFailures{p: p, rnd: rnd}
}

func (r *randomFailures) Fail(stage Stage) (string, bool) {
	r.mu.Lock()
	roll := r.rnd.Float64()
	r.mu.Unlock()

	if roll >= r.p {
		return "", false
	}
	switch stage {
	case StageExecute:
		return "quote expired before execution", true
	default:
		return "transaction reverted", true
	}
}
