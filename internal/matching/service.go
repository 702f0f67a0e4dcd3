// Package matching pairs waiting users. A single scheduler evaluates the
// whole pool every TickInterval, pairs compatible users through
// session.Store and applies the per-user nudge and timeout deadlines.
package matching

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/whisper/pairbot/internal/messaging"
	"github.com/whisper/pairbot/internal/metrics"
	"github.com/whisper/pairbot/internal/session"
)

const (
	TickInterval  = 500 * time.Millisecond
	NudgeAfter    = 120 * time.Second // one suggestion to widen a specific preference
	SearchTimeout = 300 * time.Second
	RatingTimeout = 2 * time.Minute
)

// Notifier tells users about matcher outcomes. Errors are logged and never
// stop the tick.
type Notifier interface {
	PartnerFound(userID int64) error
	SuggestAny(userID int64) error
	SearchFailed(userID int64) error
}

// Service is the background matcher.
type Service struct {
	store  *session.Store
	notify Notifier
	events messaging.Publisher
	now    func() time.Time
	logger *zap.Logger
}

// NewService creates a matcher over store. A nil events uses
// messaging.Discard; a nil now uses time.Now.
func NewService(store *session.Store, notify Notifier, events messaging.Publisher, now func() time.Time, logger *zap.Logger) *Service {
	if events == nil {
		events = messaging.Discard
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:  store,
		notify: notify,
		events: events,
		now:    now,
		logger: logger,
	}
}

// Start runs Tick every TickInterval until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	s.logger.Info("matcher started", zap.Duration("interval", TickInterval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("matcher stopped")
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick runs one matching pass: timeouts, pairing, nudges, then rating expiry.
func (s *Service) Tick() {
	pool := s.expireSearches(s.store.Waiting())

	matched := make(map[int64]bool)
	for _, c := range FindCandidates(pool) {
		if s.pair(c) {
			matched[c.A.UserID], matched[c.B.UserID] = true, true
		}
	}

	s.nudge(pool, matched)
	s.expireRatings()

	stats := s.store.Stats()
	metrics.WaitingUsers.Set(float64(stats.Waiting))
	metrics.ActiveChats.Set(float64(stats.ActiveChats))
}

// pair forms the chat for c. It reports false when either user left the
// pool or got gated after the snapshot was taken.
func (s *Service) pair(c Candidate) bool {
	ch, err := s.store.Pair(c.A.UserID, c.B.UserID)
	switch {
	case errors.Is(err, session.ErrNotQueued), errors.Is(err, session.ErrGated):
		return false
	case err != nil:
		s.logger.Error("pairing rejected",
			zap.Int64("user_a", c.A.UserID),
			zap.Int64("user_b", c.B.UserID),
			zap.Error(err),
		)
		return false
	}

	now := s.now()
	waitA, waitB := now.Sub(c.A.JoinedAt), now.Sub(c.B.JoinedAt)
	metrics.MatchDuration.Observe(waitA.Seconds())
	metrics.MatchDuration.Observe(waitB.Seconds())
	metrics.SearchOutcomes.WithLabelValues("matched").Add(2)

	s.logger.Info("match found",
		zap.String("chat_id", ch.ID),
		zap.Int64("user_a", ch.UserA),
		zap.Int64("user_b", ch.UserB),
		zap.Duration("wait_a", waitA),
		zap.Duration("wait_b", waitB),
	)

	// Both notices are attempted even if the first one fails.
	for _, id := range []int64{ch.UserA, ch.UserB} {
		if err := s.notify.PartnerFound(id); err != nil {
			s.logger.Warn("partner found notice failed", zap.Int64("user_id", id), zap.Error(err))
		}
	}
	s.publishMatch(ch.ID, c, waitA, waitB, now)
	return true
}
