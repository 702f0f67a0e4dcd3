package ban

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CaptchaBan is the ban applied after three failed captcha attempts.
const CaptchaBan = 4 * time.Hour

// negativeTTL bounds how long a "not banned" lookup is trusted locally.
const negativeTTL = 30 * time.Second

// Persister is the durable side of the ledger.
type Persister interface {
	BanExpiry(ctx context.Context, userID int64) (time.Time, error)
	SetBanExpiry(ctx context.Context, userID int64, expiry time.Time) error
}

// Cache is a shared fast lookup for running bans.
type Cache interface {
	Get(ctx context.Context, userID int64) (time.Time, bool, error)
	Set(ctx context.Context, userID int64, expiry time.Time) error
	Delete(ctx context.Context, userID int64) error
}

type entry struct {
	expiry    time.Time // zero when not banned
	checkedAt time.Time
}

// Ledger answers "is this user banned" for every inbound event. Bans are
// written to the persister and the cache, and kept in process so they hold
// even while both are unreachable.
type Ledger struct {
	store  Persister
	cache  Cache // optional
	now    func() time.Time
	logger *zap.Logger

	mu    sync.Mutex
	local map[int64]entry
}

// NewLedger creates a ledger. cache may be nil; a nil now uses time.Now.
func NewLedger(store Persister, cache Cache, now func() time.Time, logger *zap.Logger) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{
		store:  store,
		cache:  cache,
		now:    now,
		logger: logger,
		local:  make(map[int64]entry),
	}
}

// Ban records a ban until expiry. The ban takes effect in process even if
// persisting it fails; the persistence error is still returned.
func (l *Ledger) Ban(ctx context.Context, userID int64, expiry time.Time) error {
	l.remember(userID, expiry)

	var errs []error
	if err := l.store.SetBanExpiry(ctx, userID, expiry); err != nil {
		errs = append(errs, err)
	}
	if l.cache != nil {
		if err := l.cache.Set(ctx, userID, expiry); err != nil {
			l.logger.Warn("ban cache write failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return errors.Join(errs...)
}

// Unban lifts a ban everywhere.
func (l *Ledger) Unban(ctx context.Context, userID int64) error {
	l.remember(userID, time.Time{})

	if l.cache != nil {
		if err := l.cache.Delete(ctx, userID); err != nil {
			l.logger.Warn("ban cache delete failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return l.store.SetBanExpiry(ctx, userID, time.Time{})
}

// Remaining returns the time left on a running ban. It fails open when no
// source can answer.
func (l *Ledger) Remaining(ctx context.Context, userID int64) (time.Duration, bool) {
	now := l.now()

	l.mu.Lock()
	e, ok := l.local[userID]
	l.mu.Unlock()
	if ok {
		if e.expiry.After(now) {
			return e.expiry.Sub(now), true
		}
		if now.Sub(e.checkedAt) < negativeTTL {
			return 0, false
		}
	}

	if l.cache != nil {
		expiry, found, err := l.cache.Get(ctx, userID)
		if err != nil {
			l.logger.Warn("ban cache read failed", zap.Int64("user_id", userID), zap.Error(err))
		} else if found && expiry.After(now) {
			l.remember(userID, expiry)
			return expiry.Sub(now), true
		}
	}

	expiry, err := l.store.BanExpiry(ctx, userID)
	if err != nil {
		l.logger.Error("ban lookup failed, allowing", zap.Int64("user_id", userID), zap.Error(err))
		return 0, false
	}
	l.remember(userID, expiry)
	if !expiry.After(now) {
		return 0, false
	}
	if l.cache != nil {
		if err := l.cache.Set(ctx, userID, expiry); err != nil {
			l.logger.Warn("ban cache write failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return expiry.Sub(now), true
}

func (l *Ledger) remember(userID int64, expiry time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.local[userID] = entry{expiry: expiry, checkedAt: l.now()}
}
