package matching

import (
	"go.uber.org/zap"

	"github.com/whisper/pairbot/internal/messaging"
	"github.com/whisper/pairbot/internal/metrics"
	"github.com/whisper/pairbot/internal/session"
)

// expireSearches removes waiters past SearchTimeout and returns the rest.
func (s *Service) expireSearches(pool []session.Waiter) []session.Waiter {
	now := s.now()
	live := pool[:0:0]
	for _, w := range pool {
		if now.Sub(w.JoinedAt) < SearchTimeout {
			live = append(live, w)
			continue
		}
		if !s.store.Expire(w.UserID) {
			continue // left the pool since the snapshot
		}
		metrics.SearchOutcomes.WithLabelValues("timeout").Inc()
		s.logger.Info("search timed out", zap.Int64("user_id", w.UserID))

		if err := s.notify.SearchFailed(w.UserID); err != nil {
			s.logger.Warn("timeout notice failed", zap.Int64("user_id", w.UserID), zap.Error(err))
		}
		if err := messaging.PublishEvent(s.events, messaging.SubjectMatchTimeout, messaging.MatchTimeout{
			UserID: w.UserID,
			At:     now,
		}); err != nil {
			s.logger.Warn("publish timeout event failed", zap.Error(err))
		}
	}
	return live
}

// nudge suggests "any" once to users with a specific preference that have
// waited past NudgeAfter. Preference and state stay as they are.
func (s *Service) nudge(pool []session.Waiter, matched map[int64]bool) {
	now := s.now()
	for _, w := range pool {
		if matched[w.UserID] || w.Nudged || w.Gated || !w.Preference.Specific() {
			continue
		}
		if now.Sub(w.JoinedAt) < NudgeAfter {
			continue
		}
		if !s.store.MarkNudged(w.UserID) {
			continue
		}
		if err := s.notify.SuggestAny(w.UserID); err != nil {
			s.logger.Warn("nudge failed", zap.Int64("user_id", w.UserID), zap.Error(err))
		}
	}
}

// expireRatings frees users that ignored the rating prompt.
func (s *Service) expireRatings() {
	for _, id := range s.store.ExpireRatings(RatingTimeout) {
		s.logger.Debug("rating prompt expired", zap.Int64("user_id", id))
	}
}
