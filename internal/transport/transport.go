// Package transport is the messaging-platform boundary. The core sends
// through the Transport interface; Telegram implements it with telebot.
package transport

// Kind classifies inbound and relayed content.
type Kind string

const (
	KindText      Kind = "text"
	KindPhoto     Kind = "photo"
	KindVideo     Kind = "video"
	KindVoice     Kind = "voice"
	KindAnimation Kind = "animation"
	KindOther     Kind = "other" // stickers, documents, locations...
)

// Media references content already uploaded to the platform.
type Media struct {
	Kind    Kind
	FileID  string
	Caption string
}

// Keyboard is a reply keyboard. An empty Rows removes the current one.
type Keyboard struct {
	Rows    [][]string
	OneTime bool
}

// Button is an inline button. Pressing it delivers a callback carrying
// Unique and Data back to the bot.
type Button struct {
	Text   string
	Unique string
	Data   string
}

// Transport delivers bot output. Errors are delivery failures, usually a
// recipient that blocked the bot; callers log them and carry on.
type Transport interface {
	SendText(userID int64, text string) error
	SendChoices(userID int64, text string, kb Keyboard) error
	SendButtons(userID int64, text string, rows [][]Button) error
	SendMedia(userID int64, m Media, blurred bool) error
	Forward(channelID, fromUserID int64, messageID int) error
}
