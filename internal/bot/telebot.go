package bot

import (
	"context"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/whisper/pairbot/internal/transport"
)

// updateTimeout bounds storage calls made while handling one update.
const updateTimeout = 10 * time.Second

// RegisterHandlers registers all bot handlers
func (h *Handler) RegisterHandlers(b *tele.Bot) {
	// Commands arrive through OnText as well; routing happens in Handle.
	for _, endpoint := range []string{
		tele.OnText,
		tele.OnPhoto,
		tele.OnVideo,
		tele.OnVoice,
		tele.OnAnimation,
		tele.OnSticker,
		tele.OnDocument,
		tele.OnAudio,
		tele.OnVideoNote,
		tele.OnLocation,
		tele.OnContact,
	} {
		b.Handle(endpoint, h.onMessage)
	}

	// Callback queries (inline buttons)
	b.Handle(&tele.Btn{Unique: uniqueRate}, h.onCallback)
	b.Handle(&tele.Btn{Unique: uniqueLink}, h.onCallback)
	b.Handle(tele.OnCallback, func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: msgButtonExpired})
	})
}

func (h *Handler) onMessage(c tele.Context) error {
	sender, msg := c.Sender(), c.Message()
	if sender == nil || msg == nil || !msg.Private() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), updateTimeout)
	defer cancel()

	h.Handle(ctx, Update{
		UserID:    sender.ID,
		Username:  sender.Username,
		MessageID: msg.ID,
		Text:      msg.Text,
		Media:     mediaOf(msg),
	})
	return nil
}

func (h *Handler) onCallback(c tele.Context) error {
	sender, cb := c.Sender(), c.Callback()
	if sender == nil || cb == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), updateTimeout)
	defer cancel()

	u := Update{
		UserID:   sender.ID,
		Username: sender.Username,
		Callback: &Callback{Unique: cb.Unique, Data: cb.Data},
	}
	if cb.Message != nil {
		u.MessageID = cb.Message.ID
	}
	h.Handle(ctx, u)
	return c.Respond()
}

// mediaOf classifies non-text content. It returns nil for plain text.
// Short-form video means animations. Video notes cannot carry a spoiler,
// so they are rejected with the other unsupported kinds.
func mediaOf(msg *tele.Message) *transport.Media {
	switch {
	case msg.Photo != nil:
		return &transport.Media{Kind: transport.KindPhoto, FileID: msg.Photo.FileID, Caption: msg.Caption}
	case msg.Video != nil:
		return &transport.Media{Kind: transport.KindVideo, FileID: msg.Video.FileID, Caption: msg.Caption}
	case msg.Voice != nil:
		return &transport.Media{Kind: transport.KindVoice, FileID: msg.Voice.FileID, Caption: msg.Caption}
	case msg.Animation != nil:
		return &transport.Media{Kind: transport.KindAnimation, FileID: msg.Animation.FileID, Caption: msg.Caption}
	case msg.Text != "":
		return nil
	}
	return &transport.Media{Kind: transport.KindOther}
}
