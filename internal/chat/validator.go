package chat

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxTextChars    = 4096 // Telegram message limit
	MaxCaptionChars = 1024
)

var (
	errMessageEmpty = errors.New("message text is empty")
	errInvalidUTF8  = errors.New("message contains invalid UTF-8")
)

// ValidateText checks that a relayed text message is deliverable.
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errMessageEmpty
	}
	if !utf8.ValidString(text) {
		return errInvalidUTF8
	}
	if utf8.RuneCountInString(text) > MaxTextChars {
		return fmt.Errorf("message exceeds %d character limit", MaxTextChars)
	}
	return nil
}

// TrimCaption cuts a media caption to the platform limit.
func TrimCaption(caption string) string {
	if utf8.RuneCountInString(caption) <= MaxCaptionChars {
		return caption
	}
	runes := []rune(caption)
	return string(runes[:MaxCaptionChars])
}
