package bot

import (
	"context"

	"go.uber.org/zap"

	"github.com/whisper/pairbot/internal/rating"
	"github.com/whisper/pairbot/internal/session"
)

// handleRating closes the rating step. A failed write is logged and the
// user is thanked anyway; rating is best-effort.
func (h *Handler) handleRating(ctx context.Context, u Update) {
	event := session.EventRatingSubmitted
	if u.Callback.Data == rateSkip {
		event = session.EventRatingSkipped
	}

	ratee, err := h.sessions.FinishRating(u.UserID, event)
	if err != nil || ratee == 0 {
		h.send(u.UserID, msgButtonExpired)
		return
	}
	if event == session.EventRatingSkipped {
		h.send(u.UserID, msgRatingSkipped)
		return
	}

	r := rating.Rating{RaterID: u.UserID, RatedID: ratee, Positive: u.Callback.Data == rateUp}
	if _, err := h.ratings.Record(ctx, r); err != nil {
		h.logger.Error("failed to record rating",
			zap.Int64("rater", r.RaterID),
			zap.Int64("rated", r.RatedID),
			zap.Error(err),
		)
	}
	h.send(u.UserID, msgRatingThanks)
}
