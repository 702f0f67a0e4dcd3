// Package ratelimit provides in-memory sliding-window rate limiting keyed by
// user ID. Each rule keeps its own window per user so that, for example,
// media sends are capped independently of general actions.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Rule defines a rate limiting policy: a namespace key, the maximum number
// of actions allowed in the trailing window, and the window duration.
type Rule struct {
	Key    string        // namespace, e.g. "action", "media"
	Limit  int           // max count in the window
	Window time.Duration // trailing window
}

var (
	// RuleAction allows 30 gated actions per minute per user.
	RuleAction = Rule{Key: "action", Limit: 30, Window: time.Minute}

	// RuleStrict allows 5 actions per minute, for STRICT_RATE_LIMIT.
	RuleStrict = Rule{Key: "strict", Limit: 5, Window: time.Minute}

	// RuleMedia allows 25 media sends per minute per user.
	RuleMedia = Rule{Key: "media", Limit: 25, Window: time.Minute}
)

const sweepInterval = time.Minute

// Limiter tracks recent action timestamps per rule and user.
type Limiter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]map[int64][]time.Time
}

// NewLimiter creates an empty Limiter. A nil now uses time.Now.
func NewLimiter(now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		now:     now,
		windows: make(map[string]map[int64][]time.Time),
	}
}

// Allow prunes expired entries and, unless the user already reached the
// rule's limit, records the action. The check and the record happen under
// one lock so concurrent callers cannot both take the last slot.
func (l *Limiter) Allow(id int64, rule Rule) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	byUser, ok := l.windows[rule.Key]
	if !ok {
		byUser = make(map[int64][]time.Time)
		l.windows[rule.Key] = byUser
	}

	recent := prune(byUser[id], now.Add(-rule.Window))
	if len(recent) >= rule.Limit {
		byUser[id] = recent
		return false
	}
	byUser[id] = append(recent, now)
	return true
}

// Remaining returns how many actions the user has left in the current
// window for rule.
func (l *Limiter) Remaining(id int64, rule Rule) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	recent := prune(l.windows[rule.Key][id], l.now().Add(-rule.Window))
	return max(rule.Limit-len(recent), 0)
}

// Reset clears the user's window for rule.
func (l *Limiter) Reset(id int64, rule Rule) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if byUser, ok := l.windows[rule.Key]; ok {
		delete(byUser, id)
	}
}

// Sweep drops windows whose entries are all older than maxAge and returns
// how many were removed.
func (l *Limiter) Sweep(maxAge time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-maxAge)
	removed := 0
	for _, byUser := range l.windows {
		for id, stamps := range byUser {
			if len(prune(stamps, cutoff)) == 0 {
				delete(byUser, id)
				removed++
			}
		}
	}
	return removed
}

// StartCleanup runs Sweep on a ticker until ctx is cancelled.
func (l *Limiter) StartCleanup(ctx context.Context, maxAge time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("rate limiter cleanup stopped")
			return
		case <-ticker.C:
			if n := l.Sweep(maxAge); n > 0 {
				logger.Debug("rate limiter cleanup", zap.Int("removed", n))
			}
		}
	}
}

// prune drops timestamps at or before cutoff. stamps is in ascending order.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append(stamps[:0:0], stamps[i:]...)
}
