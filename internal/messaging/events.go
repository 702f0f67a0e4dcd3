package messaging

import (
	"encoding/json"
	"fmt"
	"time"
)

// MatchFound is published on SubjectMatchFound when two users are paired.
type MatchFound struct {
	ChatID  string    `json:"chat_id"`
	UserA   int64     `json:"user_a"`
	UserB   int64     `json:"user_b"`
	WaitA   float64   `json:"wait_a_seconds"`
	WaitB   float64   `json:"wait_b_seconds"`
	Matched time.Time `json:"matched_at"`
}

// MatchTimeout is published on SubjectMatchTimeout when a search expires.
type MatchTimeout struct {
	UserID int64     `json:"user_id"`
	At     time.Time `json:"at"`
}

// ChatEnded is published on SubjectChatEnded when a chat is torn down.
type ChatEnded struct {
	ChatID   string  `json:"chat_id"`
	EndedBy  int64   `json:"ended_by"`
	Reason   string  `json:"reason"` // "left" or "banned"
	Duration float64 `json:"duration_seconds"`
}

// UserBanned is published on SubjectUserBanned.
type UserBanned struct {
	UserID int64     `json:"user_id"`
	Until  time.Time `json:"until"`
	Reason string    `json:"reason"` // "captcha" or "admin"
}

// MediaRelayed is published on SubjectMediaRelayed for every permitted media item.
type MediaRelayed struct {
	ChatID string `json:"chat_id"`
	From   int64  `json:"from"`
	Kind   string `json:"kind"`
}

// PublishEvent marshals v as JSON and publishes it on subject.
func PublishEvent(p Publisher, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("messaging: marshal %s: %w", subject, err)
	}
	return p.Publish(subject, data)
}
