package bot

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/whisper/pairbot/internal/chat"
	"github.com/whisper/pairbot/internal/messaging"
	"github.com/whisper/pairbot/internal/metrics"
	"github.com/whisper/pairbot/internal/profile"
	"github.com/whisper/pairbot/internal/session"
)

// handleSearch enqueues the user. A pending rating is skipped first.
func (h *Handler) handleSearch(ctx context.Context, u Update) {
	switch h.sessions.State(u.UserID) {
	case session.StateInChat, session.StateConfirmingLinkShare:
		h.send(u.UserID, msgAlreadyInChat)
		return
	case session.StateSearching:
		h.send(u.UserID, msgAlreadySearch)
		return
	case session.StateRatingPartner:
		if _, err := h.sessions.FinishRating(u.UserID, session.EventRatingSkipped); err != nil {
			h.logger.Warn("skip rating failed", zap.Int64("user_id", u.UserID), zap.Error(err))
		}
	}

	p, err := h.profiles.Get(ctx, u.UserID)
	switch {
	case errors.Is(err, profile.ErrNotFound):
		h.send(u.UserID, msgNeedProfile)
		return
	case err != nil:
		h.logger.Error("profile lookup failed", zap.Int64("user_id", u.UserID), zap.Error(err))
		h.send(u.UserID, msgSearchDown)
		return
	case !p.Complete():
		h.send(u.UserID, msgNeedProfile)
		return
	}

	err = h.sessions.Enqueue(u.UserID, p.Gender, p.Preference)
	switch {
	case errors.Is(err, session.ErrAlreadyInSession):
		h.send(u.UserID, msgAlreadyInChat)
	case errors.Is(err, session.ErrAlreadyQueued):
		h.send(u.UserID, msgAlreadySearch)
	case err != nil:
		h.send(u.UserID, msgFinishOnboarding)
	default:
		h.logger.Info("search started",
			zap.Int64("user_id", u.UserID),
			zap.String("gender", string(p.Gender)),
			zap.String("preference", string(p.Preference)),
		)
		h.sendChoices(u.UserID, msgSearching, searchKeyboard)
	}
}

// handleStop cancels a search or leaves the chat.
// A search matched between the state check and Cancel ends like a chat.
func (h *Handler) handleStop(u Update) {
	if h.sessions.State(u.UserID) == session.StateSearching {
		if err := h.sessions.Cancel(u.UserID); err == nil {
			metrics.SearchOutcomes.WithLabelValues("cancelled").Inc()
			h.sendChoices(u.UserID, msgSearchStopped, noKeyboard)
			return
		}
	}
	h.leave(u)
}

// handleNext leaves the chat. It does not start a new search on its own.
func (h *Handler) handleNext(u Update) {
	if h.sessions.State(u.UserID) == session.StateSearching {
		h.send(u.UserID, msgAlreadySearch)
		return
	}
	h.leave(u)
}

// leave tears down the sender's chat. The partner is freed to Idle and the
// sender is offered a rating.
func (h *Handler) leave(u Update) {
	c, err := h.sessions.Teardown(u.UserID)
	if err != nil {
		if errors.Is(err, session.ErrInvariant) {
			h.logger.Error("teardown rejected", zap.Int64("user_id", u.UserID), zap.Error(err))
		}
		h.send(u.UserID, msgNotInChat)
		return
	}

	partner := c.Partner(u.UserID)
	h.logger.Info("chat ended",
		zap.String("chat_id", c.ID),
		zap.Int64("ended_by", u.UserID),
		zap.Int64("partner", partner),
	)
	h.notice(partner, msgPartnerLeft, noKeyboard)
	h.sendChoices(u.UserID, msgChatEnded, noKeyboard)
	h.sendButtons(u.UserID, msgRatePartner, ratingButtons)
	h.publishChatEnded(c, u.UserID, "left")
}

func (h *Handler) publishChatEnded(c *chat.Chat, endedBy int64, reason string) {
	h.publish(messaging.SubjectChatEnded, messaging.ChatEnded{
		ChatID:   c.ID,
		EndedBy:  endedBy,
		Reason:   reason,
		Duration: c.Age(h.now()).Seconds(),
	})
}

// PartnerFound implements matching.Notifier.
func (h *Handler) PartnerFound(userID int64) error {
	return h.transport.SendChoices(userID, msgPartnerFound, chatKeyboard)
}

// SuggestAny implements matching.Notifier.
func (h *Handler) SuggestAny(userID int64) error {
	return h.transport.SendText(userID, msgSuggestAny)
}

// SearchFailed implements matching.Notifier.
func (h *Handler) SearchFailed(userID int64) error {
	return h.noticeErr(userID, msgSearchFailed, noKeyboard)
}
