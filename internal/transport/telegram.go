package transport

import (
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v3"
)

// Telegram implements Transport on top of a telebot Bot.
type Telegram struct {
	bot *tele.Bot
}

// NewTelegram wraps bot.
func NewTelegram(bot *tele.Bot) *Telegram {
	return &Telegram{bot: bot}
}

// SendText sends a plain message.
func (t *Telegram) SendText(userID int64, text string) error {
	if _, err := t.bot.Send(tele.ChatID(userID), text); err != nil {
		return fmt.Errorf("transport: send text to %d: %w", userID, err)
	}
	return nil
}

// SendChoices sends text with a reply keyboard, or removes the keyboard
// when kb has no rows.
func (t *Telegram) SendChoices(userID int64, text string, kb Keyboard) error {
	if _, err := t.bot.Send(tele.ChatID(userID), text, replyMarkup(kb)); err != nil {
		return fmt.Errorf("transport: send choices to %d: %w", userID, err)
	}
	return nil
}

// SendButtons sends text with inline buttons.
func (t *Telegram) SendButtons(userID int64, text string, rows [][]Button) error {
	if _, err := t.bot.Send(tele.ChatID(userID), text, inlineMarkup(rows)); err != nil {
		return fmt.Errorf("transport: send buttons to %d: %w", userID, err)
	}
	return nil
}

// SendMedia sends m as a new message, optionally hidden behind a spoiler.
// The recipient sees the bot as the sender.
func (t *Telegram) SendMedia(userID int64, m Media, blurred bool) error {
	file := tele.File{FileID: m.FileID}

	var what interface{}
	switch m.Kind {
	case KindPhoto:
		what = &tele.Photo{File: file, Caption: m.Caption}
	case KindVideo:
		what = &tele.Video{File: file, Caption: m.Caption}
	case KindVoice:
		what = &tele.Voice{File: file, Caption: m.Caption}
	case KindAnimation:
		what = &tele.Animation{File: file, Caption: m.Caption}
	default:
		return fmt.Errorf("transport: unsupported media kind %q", m.Kind)
	}

	opts := &tele.SendOptions{HasSpoiler: blurred}
	if _, err := t.bot.Send(tele.ChatID(userID), what, opts); err != nil {
		return fmt.Errorf("transport: send %s to %d: %w", m.Kind, userID, err)
	}
	return nil
}

// Forward forwards a user's message verbatim, keeping its origin.
func (t *Telegram) Forward(channelID, fromUserID int64, messageID int) error {
	msg := &tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: fromUserID}
	if _, err := t.bot.Forward(tele.ChatID(channelID), msg); err != nil {
		return fmt.Errorf("transport: forward %d/%d to %d: %w", fromUserID, messageID, channelID, err)
	}
	return nil
}

func replyMarkup(kb Keyboard) *tele.ReplyMarkup {
	if len(kb.Rows) == 0 {
		return &tele.ReplyMarkup{RemoveKeyboard: true}
	}
	markup := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: kb.OneTime}
	rows := make([]tele.Row, 0, len(kb.Rows))
	for _, labels := range kb.Rows {
		btns := make([]tele.Btn, 0, len(labels))
		for _, label := range labels {
			btns = append(btns, markup.Text(label))
		}
		rows = append(rows, markup.Row(btns...))
	}
	markup.Reply(rows...)
	return markup
}

func inlineMarkup(buttons [][]Button) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(buttons))
	for _, line := range buttons {
		btns := make([]tele.Btn, 0, len(line))
		for _, b := range line {
			btns = append(btns, markup.Data(b.Text, b.Unique, b.Data))
		}
		rows = append(rows, markup.Row(btns...))
	}
	markup.Inline(rows...)
	return markup
}
