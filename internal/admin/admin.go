// Package admin implements the operator surface: manual bans and a
// snapshot of registration, ban and pairing counts.
package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/whisper/pairbot/internal/chat"
	"github.com/whisper/pairbot/internal/metrics"
	"github.com/whisper/pairbot/internal/rating"
	"github.com/whisper/pairbot/internal/session"
)

// MaxBanHours caps an operator ban at ten years.
const MaxBanHours = 10 * 365 * 24

// ErrInvalidDuration is returned for a ban outside 1..MaxBanHours hours.
var ErrInvalidDuration = errors.New("admin: ban duration out of range")

// BanLedger applies and lifts bans.
type BanLedger interface {
	Ban(ctx context.Context, userID int64, expiry time.Time) error
	Unban(ctx context.Context, userID int64) error
}

// Counter reports persisted totals.
type Counter interface {
	CountRegistered(ctx context.Context) (int, error)
	CountBanned(ctx context.Context, now time.Time) (int, error)
}

// Reputation reads the ratings a user received.
type Reputation interface {
	SummaryFor(ctx context.Context, ratedID int64) (rating.Summary, error)
}

// Resetter drops a user's abuse record.
type Resetter interface {
	Forget(userID int64)
}

// Stats is the snapshot returned by Service.Stats.
type Stats struct {
	Registered     int
	Banned         int
	Waiting        int
	ActiveSessions int
}

// BanResult describes an applied ban.
type BanResult struct {
	Expiry time.Time
	Ended  *chat.Chat // chat torn down by the ban, if any
}

// Service executes operator commands.
type Service struct {
	bans     BanLedger
	counts   Counter
	ratings  Reputation
	sessions *session.Store
	guard    Resetter
	now      func() time.Time
	logger   *zap.Logger
}

// NewService creates the operator service. A nil now uses time.Now.
func NewService(bans BanLedger, counts Counter, ratings Reputation, sessions *session.Store, guard Resetter, now func() time.Time, logger *zap.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		bans:     bans,
		counts:   counts,
		ratings:  ratings,
		sessions: sessions,
		guard:    guard,
		now:      now,
		logger:   logger,
	}
}

// Ban bans userID for hours and tears down any search or chat they are in.
// The ban holds in process even when persisting it fails.
func (s *Service) Ban(ctx context.Context, userID int64, hours int) (BanResult, error) {
	if hours <= 0 || hours > MaxBanHours {
		return BanResult{}, ErrInvalidDuration
	}
	expiry := s.now().Add(time.Duration(hours) * time.Hour)

	err := s.bans.Ban(ctx, userID, expiry)
	ended := s.sessions.Evict(userID)
	s.guard.Forget(userID)
	metrics.BansTotal.WithLabelValues("admin").Inc()

	s.logger.Info("user banned by operator",
		zap.Int64("user_id", userID),
		zap.Time("expiry", expiry),
		zap.Bool("chat_ended", ended != nil),
	)
	if err != nil {
		return BanResult{Expiry: expiry, Ended: ended}, fmt.Errorf("admin: ban %d: %w", userID, err)
	}
	return BanResult{Expiry: expiry, Ended: ended}, nil
}

// Unban lifts a ban and clears the user's abuse record.
func (s *Service) Unban(ctx context.Context, userID int64) error {
	s.guard.Forget(userID)
	if err := s.bans.Unban(ctx, userID); err != nil {
		return fmt.Errorf("admin: unban %d: %w", userID, err)
	}
	s.logger.Info("user unbanned by operator", zap.Int64("user_id", userID))
	return nil
}

// Stats returns persisted counts together with the live pool and chat sizes.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	registered, err := s.counts.CountRegistered(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("admin: stats: %w", err)
	}
	banned, err := s.counts.CountBanned(ctx, s.now())
	if err != nil {
		return Stats{}, fmt.Errorf("admin: stats: %w", err)
	}
	live := s.sessions.Stats()
	return Stats{
		Registered:     registered,
		Banned:         banned,
		Waiting:        live.Waiting,
		ActiveSessions: live.ActiveChats,
	}, nil
}

// Reputation returns the rating totals userID received from past partners.
func (s *Service) Reputation(ctx context.Context, userID int64) (rating.Summary, error) {
	sum, err := s.ratings.SummaryFor(ctx, userID)
	if err != nil {
		return rating.Summary{}, fmt.Errorf("admin: reputation %d: %w", userID, err)
	}
	return sum, nil
}
