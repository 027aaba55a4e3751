package engine

import (
	"fmt"
	"sync"
)

// CallLimiter enforces a maximum number of allowed backend calls per run.
// A fresh limiter is created for each run; an exhausted limiter makes the
// remaining invocations fail, which the engine absorbs like any other
// backend failure.
type CallLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewCallLimiter creates a new limiter with a max number of calls.
// If max == 0, unlimited calls are allowed.
func NewCallLimiter(max int) *CallLimiter {
	return &CallLimiter{max: max}
}

// Acquire increases the call counter and returns an error if the limit is exceeded.
func (l *CallLimiter) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count++
	if l.max > 0 && l.count > l.max {
		return fmt.Errorf("exceeded max backend calls: %d", l.max)
	}

	return nil
}

// Count returns the current number of calls made.
func (l *CallLimiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.count
}

// Remaining returns how many calls are left before hitting the limit.
func (l *CallLimiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.max == 0 {
		return -1 // unlimited
	}

	return l.max - l.count
}
