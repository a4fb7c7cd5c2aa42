// internal/input/throttle.go
package input

import (
	"sync/atomic"

	"golang.org/x/time/rate"
)

// Throttle drops commands arriving faster than a configured rate, the way a
// held-down remote key should not queue up dozens of moves.
type Throttle struct {
	limiter *rate.Limiter
	dropped atomic.Int64
}

// NewThrottle allows perSecond commands with bursts of up to burst. A
// non-positive rate disables throttling.
func NewThrottle(perSecond float64, burst int) *Throttle {
	if perSecond <= 0 {
		return &Throttle{}
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Allow reports whether one more command may pass now.
func (t *Throttle) Allow() bool {
	if t == nil || t.limiter == nil {
		return true
	}
	if t.limiter.Allow() {
		return true
	}
	t.dropped.Add(1)
	return false
}

// Dropped returns how many commands were rejected so far.
func (t *Throttle) Dropped() int64 {
	if t == nil {
		return 0
	}
	return t.dropped.Load()
}
