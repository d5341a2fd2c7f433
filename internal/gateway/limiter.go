package gateway

import "time"

// State is a snapshot of the limiter
type State struct {
	LastRequestAt time.Time
	BackoffUntil  time.Time
}

// RateLimiter paces requests to the primary evaluator and holds the
// cool-down window after a throttling response. Time is always passed in.
type RateLimiter struct {
	minInterval time.Duration
	cooldown    time.Duration
	state       State
}

func NewRateLimiter(minInterval, cooldown time.Duration) *RateLimiter {
	return &RateLimiter{minInterval: minInterval, cooldown: cooldown}
}

// CanProceed is false inside the cool-down window, with the time remaining
func (l *RateLimiter) CanProceed(now time.Time) (bool, time.Duration) {
	if now.Before(l.state.BackoffUntil) {
		return false, l.state.BackoffUntil.Sub(now)
	}
	return true, 0
}

// Delay is how long to wait before the next request honors the minimum interval
func (l *RateLimiter) Delay(now time.Time) time.Duration {
	if l.state.LastRequestAt.IsZero() {
		return 0
	}
	next := l.state.LastRequestAt.Add(l.minInterval)
	if now.Before(next) {
		return next.Sub(now)
	}
	return 0
}

func (l *RateLimiter) RecordRequest(now time.Time) {
	l.state.LastRequestAt = now
}

func (l *RateLimiter) RecordThrottled(now time.Time) {
	l.state.BackoffUntil = now.Add(l.cooldown)
}

func (l *RateLimiter) Cooldown() time.Duration {
	return l.cooldown
}

func (l *RateLimiter) State() State {
	return l.state
}
