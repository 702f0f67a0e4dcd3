package bot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/whisper/pairbot/internal/abuse"
	"github.com/whisper/pairbot/internal/chat"
	"github.com/whisper/pairbot/internal/messaging"
	"github.com/whisper/pairbot/internal/session"
	"github.com/whisper/pairbot/internal/transport"
)

func (h *Handler) presentCaptcha(userID int64, c *abuse.Challenge, prefix string) {
	text := fmt.Sprintf(msgCaptchaPrompt, c.Answer, c.Attempt, abuse.MaxAttempts)
	if prefix != "" {
		text = prefix + "\n" + text
	}
	h.sendChoices(userID, text, captchaKeyboard(c))
}

// answerCaptcha handles input from a gated user. Only plain text counts as
// an answer; commands, buttons and media show the pending challenge again.
func (h *Handler) answerCaptcha(ctx context.Context, u Update) {
	if cmd, _ := parseCommand(u.Text); u.Callback != nil || u.Media != nil || cmd != "" {
		if c, ok := h.guard.Active(u.UserID); ok {
			h.presentCaptcha(u.UserID, c, "")
			return
		}
	}

	res, err := h.guard.Solve(ctx, u.UserID, u.Text)
	switch res.Outcome {
	case abuse.OutcomeRetry:
		h.presentCaptcha(u.UserID, res.Challenge, msgCaptchaWrong)
	case abuse.OutcomeBanned:
		if err != nil {
			h.logger.Error("failed to persist captcha ban", zap.Int64("user_id", u.UserID), zap.Error(err))
		}
		h.announceBan(u.UserID, res.BanExpiry, "captcha", h.sessions.Evict(u.UserID))
	default:
		// Solved, or the challenge is gone: lift the overlay either way.
		st, err := h.sessions.LeaveCaptcha(u.UserID)
		if err != nil {
			h.logger.Warn("leave captcha rejected", zap.Int64("user_id", u.UserID), zap.Error(err))
		}
		h.sendChoices(u.UserID, msgCaptchaSolved, keyboardFor(st))
	}
}

// announceBan tells the partner of a chat ended by the ban that they are
// free, and tells the banned user how long the ban lasts.
func (h *Handler) announceBan(userID int64, expiry time.Time, reason string, ended *chat.Chat) {
	if ended != nil {
		h.notice(ended.Partner(userID), msgPartnerLeft, noKeyboard)
		h.publishChatEnded(ended, userID, "banned")
	}
	h.logger.Warn("user banned",
		zap.Int64("user_id", userID),
		zap.Time("expiry", expiry),
		zap.String("reason", reason),
	)
	h.sendChoices(userID, banNotice(expiry.Sub(h.now())), noKeyboard)
	h.publish(messaging.SubjectUserBanned, messaging.UserBanned{
		UserID: userID,
		Until:  expiry,
		Reason: reason,
	})
}

// noticeErr sends a lifecycle notice with kb. A user behind the captcha
// keeps the challenge keyboard instead so the symbols stay tappable.
func (h *Handler) noticeErr(userID int64, text string, kb transport.Keyboard) error {
	if h.sessions.State(userID) == session.StateAwaitingCaptcha {
		if c, ok := h.guard.Active(userID); ok {
			kb = captchaKeyboard(c)
		}
	}
	return h.transport.SendChoices(userID, text, kb)
}

func (h *Handler) notice(userID int64, text string, kb transport.Keyboard) {
	if err := h.noticeErr(userID, text, kb); err != nil {
		h.logger.Warn("send failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// keyboardFor restores the reply keyboard that belongs to a state.
func keyboardFor(st session.State) transport.Keyboard {
	switch {
	case st.Chatting():
		return chatKeyboard
	case st == session.StateSearching:
		return searchKeyboard
	case st == session.StateChoosingGender:
		return genderKeyboard
	case st == session.StateChoosingPreference:
		return preferenceKeyboard
	}
	return noKeyboard
}
