package testutil

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/whisper/pairbot/internal/profile"
)

// NewTestLogger creates a no-op logger for tests
func NewTestLogger() *zap.Logger {
	return zap.NewNop()
}

// NewTestProfile creates a completed profile
func NewTestProfile(userID int64, gender profile.Gender, pref profile.Preference) *profile.Profile {
	return &profile.Profile{
		UserID:     userID,
		Username:   "",
		Gender:     gender,
		Preference: pref,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

// Clock is a manually advanced time source for injecting as now.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
