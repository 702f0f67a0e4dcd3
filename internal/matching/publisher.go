package matching

import (
	"time"

	"go.uber.org/zap"

	"github.com/whisper/pairbot/internal/messaging"
)

// publishMatch announces a new chat on the event bus.
func (s *Service) publishMatch(chatID string, c Candidate, waitA, waitB time.Duration, at time.Time) {
	ev := messaging.MatchFound{
		ChatID:  chatID,
		UserA:   c.A.UserID,
		UserB:   c.B.UserID,
		WaitA:   waitA.Seconds(),
		WaitB:   waitB.Seconds(),
		Matched: at,
	}
	if err := messaging.PublishEvent(s.events, messaging.SubjectMatchFound, ev); err != nil {
		s.logger.Warn("publish match event failed", zap.String("chat_id", chatID), zap.Error(err))
	}
}
