// Package chat models an active pairing between two users and gates what
// they may exchange through it.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// Chat is an active conversation between exactly two users. It is created
// and destroyed as a unit by session.Store; both members reference it.
type Chat struct {
	ID        string
	UserA     int64
	UserB     int64
	StartedAt time.Time
}

// New creates a chat between a and b started at now.
func New(a, b int64, now time.Time) *Chat {
	return &Chat{
		ID:        uuid.New().String(),
		UserA:     a,
		UserB:     b,
		StartedAt: now,
	}
}

// Partner returns the other member, or 0 if userID is not a member.
func (c *Chat) Partner(userID int64) int64 {
	switch userID {
	case c.UserA:
		return c.UserB
	case c.UserB:
		return c.UserA
	}
	return 0
}

// IsParticipant checks if userID is part of this chat.
func (c *Chat) IsParticipant(userID int64) bool {
	return userID == c.UserA || userID == c.UserB
}

// Age returns how long the chat has been running at now.
func (c *Chat) Age(now time.Time) time.Duration {
	return now.Sub(c.StartedAt)
}
