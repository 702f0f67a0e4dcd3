package bot

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/whisper/pairbot/internal/chat"
	"github.com/whisper/pairbot/internal/messaging"
	"github.com/whisper/pairbot/internal/session"
)

// mediaWarnAt is the remaining media quota at which senders are warned.
const mediaWarnAt = 3

func (h *Handler) relayMessage(u Update) {
	c, ok := h.sessions.ChatOf(u.UserID)
	if !ok {
		h.send(u.UserID, msgUseSearch)
		return
	}

	msg := chat.Message{ID: u.MessageID, Text: u.Text, Media: u.Media}
	err := h.relay.Relay(c, u.UserID, msg)
	switch {
	case err == nil:
		if msg.Media != nil {
			h.publish(messaging.SubjectMediaRelayed, messaging.MediaRelayed{
				ChatID: c.ID,
				From:   u.UserID,
				Kind:   string(msg.Media.Kind),
			})
			if left := h.relay.MediaLeft(u.UserID); left <= mediaWarnAt {
				h.send(u.UserID, fmt.Sprintf(msgMediaLeft, left))
			}
		}
	case errors.Is(err, chat.ErrMediaTooEarly):
		h.send(u.UserID, msgMediaTooEarly)
	case errors.Is(err, chat.ErrMediaRateLimited):
		h.send(u.UserID, msgMediaLimited)
	case errors.Is(err, chat.ErrUnsupportedContent):
		h.send(u.UserID, msgUnsupported)
	case errors.Is(err, chat.ErrDeliveryFailed):
		h.send(u.UserID, msgNotDelivered)
	default:
		h.logger.Warn("relay failed", zap.Int64("user_id", u.UserID), zap.Error(err))
		h.send(u.UserID, msgNotInChat)
	}
}

// handleLink asks for confirmation before sharing the sender's username.
func (h *Handler) handleLink(u Update) {
	if !h.sessions.State(u.UserID).Chatting() {
		h.send(u.UserID, msgNotInChat)
		return
	}
	if u.Username == "" {
		h.send(u.UserID, msgNoUsername)
		return
	}
	if _, err := h.sessions.Apply(u.UserID, session.EventShareLink); err != nil {
		// already confirming; show the buttons again
		h.logger.Debug("share link transition rejected", zap.Int64("user_id", u.UserID), zap.Error(err))
	}
	h.sendButtons(u.UserID, msgConfirmLink, linkButtons)
}

func (h *Handler) handleLinkAnswer(u Update) {
	if u.Callback.Data != linkYes {
		if _, err := h.sessions.Apply(u.UserID, session.EventLinkDeclined); err != nil {
			h.send(u.UserID, msgButtonExpired)
			return
		}
		h.send(u.UserID, msgLinkNotShared)
		return
	}

	if _, err := h.sessions.Apply(u.UserID, session.EventLinkConfirmed); err != nil {
		h.send(u.UserID, msgButtonExpired)
		return
	}
	c, ok := h.sessions.ChatOf(u.UserID)
	if !ok || u.Username == "" {
		h.send(u.UserID, msgButtonExpired)
		return
	}
	partner := c.Partner(u.UserID)
	if err := h.transport.SendText(partner, fmt.Sprintf(msgPartnerLink, u.Username)); err != nil {
		h.logger.Warn("link delivery failed", zap.Int64("user_id", u.UserID), zap.Error(err))
		h.send(u.UserID, msgNotDelivered)
		return
	}
	h.send(u.UserID, msgLinkSent)
}
