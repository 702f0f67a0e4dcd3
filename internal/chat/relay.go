package chat

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/whisper/pairbot/internal/metrics"
	"github.com/whisper/pairbot/internal/ratelimit"
	"github.com/whisper/pairbot/internal/transport"
)

// MediaDelay is how long a chat must run before media may be exchanged.
const MediaDelay = 15 * time.Second

var (
	ErrMediaTooEarly      = errors.New("chat: media sent too early")
	ErrMediaRateLimited   = errors.New("chat: media rate limited")
	ErrUnsupportedContent = errors.New("chat: unsupported content")
	ErrDeliveryFailed     = errors.New("chat: delivery to partner failed")
	ErrNotParticipant     = errors.New("chat: sender is not a participant")
)

// Message is one inbound item from a chat member. Media is nil for text.
type Message struct {
	ID    int
	Text  string
	Media *transport.Media
}

// Kind reports what the message carries.
func (m Message) Kind() transport.Kind {
	if m.Media == nil {
		return transport.KindText
	}
	return m.Media.Kind
}

// Sender is the part of the transport the gate delivers through.
type Sender interface {
	SendText(userID int64, text string) error
	SendMedia(userID int64, m transport.Media, blurred bool) error
	Forward(channelID, fromUserID int64, messageID int) error
}

// Gate decides what may cross a chat and delivers it.
type Gate struct {
	sender     Sender
	limiter    *ratelimit.Limiter
	moderation int64
	now        func() time.Time
	logger     *zap.Logger
}

// NewGate creates a gate forwarding media copies to the moderation channel.
// A nil now uses time.Now.
func NewGate(sender Sender, limiter *ratelimit.Limiter, moderation int64, now func() time.Time, logger *zap.Logger) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{
		sender:     sender,
		limiter:    limiter,
		moderation: moderation,
		now:        now,
		logger:     logger,
	}
}

// Relay delivers msg from a chat member to the other one. Text goes over
// verbatim. Media is held back for MediaDelay after the chat starts and
// capped by ratelimit.RuleMedia; permitted media reaches the partner as a
// fresh blurred item and a true forward goes to the moderation channel.
func (g *Gate) Relay(c *Chat, from int64, msg Message) error {
	if !c.IsParticipant(from) {
		return ErrNotParticipant
	}
	partner := c.Partner(from)

	switch kind := msg.Kind(); kind {
	case transport.KindText:
		return g.relayText(c, from, partner, msg.Text)
	case transport.KindPhoto, transport.KindVideo, transport.KindVoice, transport.KindAnimation:
		return g.relayMedia(c, from, partner, msg)
	default:
		metrics.MessagesTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%w: %s", ErrUnsupportedContent, kind)
	}
}

// MediaLeft returns how many media sends userID has left in the current
// ratelimit.RuleMedia window.
func (g *Gate) MediaLeft(userID int64) int {
	return g.limiter.Remaining(userID, ratelimit.RuleMedia)
}

func (g *Gate) relayText(c *Chat, from, partner int64, text string) error {
	if err := ValidateText(text); err != nil {
		metrics.MessagesTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%w: %v", ErrUnsupportedContent, err)
	}
	if err := g.sender.SendText(partner, text); err != nil {
		g.logger.Warn("text delivery failed",
			zap.String("chat_id", c.ID),
			zap.Int64("from", from),
			zap.Error(err),
		)
		metrics.DeliveryFailures.Inc()
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	metrics.MessagesTotal.WithLabelValues("text").Inc()
	return nil
}

func (g *Gate) relayMedia(c *Chat, from, partner int64, msg Message) error {
	if c.Age(g.now()) < MediaDelay {
		metrics.MessagesTotal.WithLabelValues("too_early").Inc()
		return ErrMediaTooEarly
	}
	if !g.limiter.Allow(from, ratelimit.RuleMedia) {
		metrics.MessagesTotal.WithLabelValues("media_limited").Inc()
		return ErrMediaRateLimited
	}

	media := *msg.Media
	media.Caption = TrimCaption(media.Caption)
	if err := g.sender.SendMedia(partner, media, true); err != nil {
		g.logger.Warn("media delivery failed",
			zap.String("chat_id", c.ID),
			zap.Int64("from", from),
			zap.String("kind", string(media.Kind)),
			zap.Error(err),
		)
		metrics.DeliveryFailures.Inc()
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	metrics.MessagesTotal.WithLabelValues("media").Inc()

	if err := g.sender.Forward(g.moderation, from, msg.ID); err != nil {
		g.logger.Error("moderation forward failed",
			zap.String("chat_id", c.ID),
			zap.Int64("from", from),
			zap.Int("message_id", msg.ID),
			zap.Error(err),
		)
	}
	return nil
}
