package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/whisper/pairbot/internal/abuse"
	"github.com/whisper/pairbot/internal/profile"
	"github.com/whisper/pairbot/internal/transport"
)

// User-facing messages.
const (
	msgWelcome          = "Welcome! Choose your gender:"
	msgChooseGender     = "Please choose your gender with the buttons."
	msgChoosePreference = "Who would you like to talk to?"
	msgPickPreference   = "Please choose a preference with the buttons."
	msgProfileSaved     = "Profile saved. Use /search to find a partner."
	msgProfileFailed    = "We could not save your profile. Please try again."
	msgNeedProfile      = "Set up your profile with /start first."
	msgFinishOnboarding = "Finish setting up your profile first."
	msgPreferenceBusy   = "You can change your preference only when you are not searching or chatting."
	msgStartBusy        = "You are already searching or chatting. Use /stop first."

	msgSearching      = "🔍 Searching for a partner... (up to 5 minutes)"
	msgAlreadyInChat  = "You are already in a chat! Use /next or /stop."
	msgAlreadySearch  = "You are already searching..."
	msgSearchDown     = "Search is unavailable right now. Please try again later."
	msgSearchStopped  = "Search stopped."
	msgPartnerFound   = "✅ Partner found! Say hi."
	msgSearchFailed   = "❌ Could not find a partner. Please try again later."
	msgSuggestAny     = "No match yet. Use /stop and then /preference to choose \"Anyone\" for a faster match."
	msgNotInChat      = "You are not in a chat."
	msgUseSearch      = "Use /search to start a chat."
	msgStillSearching = "Still looking for a partner. Use /stop to cancel."
	msgPressStart     = "Press /start to set up your profile."
	msgUnknownCommand = "Unknown command. Use /help to see what I can do."
	msgPartnerLeft    = "Your partner left the chat. Use /search to find a new one."
	msgChatEnded      = "Chat ended. Use /search for a new partner."
	msgRatePartner    = "How was your partner?"
	msgRatingThanks   = "Thanks for your feedback!"
	msgRatingSkipped  = "Rating skipped."
	msgRatePending    = "Rate your last partner with the buttons, or use /search."
	msgButtonExpired  = "This button has expired."
	msgMediaTooEarly  = "❌ Media can be sent only 15 seconds after the chat starts."
	msgMediaLimited   = "You are sending too much media. Please wait a minute."
	msgMediaLeft      = "You can send %d more media this minute."
	msgUnsupported    = "This type of message cannot be sent."
	msgNotDelivered   = "Your message could not be delivered."
	msgNoUsername     = "You don't have a Telegram username. Set one in your profile settings."
	msgConfirmLink    = "Share your profile link with your partner?"
	msgLinkSent       = "✅ Link sent to your partner."
	msgLinkNotShared  = "Link not shared."
	msgPartnerLink    = "Your partner shared their profile: https://t.me/%s"
	msgCaptchaSolved  = "✅ Thanks! You can continue."
	msgCaptchaWrong   = "❌ Wrong symbol."
	msgCaptchaPrompt  = "⚠️ Too many actions. Tap %s to continue (attempt %d of %d)."
	msgBanned         = "⛔ You are banned. Time remaining: %s."
	msgHelp           = "/search find a partner\n/stop stop searching or leave the chat\n/next leave the chat\n/link share your profile with your partner\n/preference change who you want to talk to\n/start set up your profile again"
	msgAdminUsage     = "Usage: /ban <user_id> <hours>, /unban <user_id>, /rating <user_id>, /stats"
	msgAdminFailed    = "Operation failed: %v"
	msgAdminBanned    = "User %d banned until %s."
	msgAdminUnbanned  = "User %d unbanned."
	msgAdminStats     = "Registered: %d\nBanned: %d\nWaiting: %d\nActive chats: %d"
	msgAdminRating    = "User %d: 👍 %d, 👎 %d"
)

// Reply keyboard labels.
const (
	labelMale   = "Male"
	labelFemale = "Female"
	labelAny    = "Anyone"
)

// Inline button identifiers.
const (
	uniqueRate = "rate"
	uniqueLink = "link"

	rateUp   = "up"
	rateDown = "down"
	rateSkip = "skip"
	linkYes  = "yes"
	linkNo   = "no"
)

var (
	genderKeyboard = transport.Keyboard{
		Rows:    [][]string{{labelMale, labelFemale}},
		OneTime: true,
	}
	preferenceKeyboard = transport.Keyboard{
		Rows:    [][]string{{labelMale, labelFemale}, {labelAny}},
		OneTime: true,
	}
	chatKeyboard   = transport.Keyboard{Rows: [][]string{{"/next", "/stop", "/link"}}}
	searchKeyboard = transport.Keyboard{Rows: [][]string{{"/stop"}}}
	noKeyboard     = transport.Keyboard{}

	ratingButtons = [][]transport.Button{{
		{Text: "👍", Unique: uniqueRate, Data: rateUp},
		{Text: "👎", Unique: uniqueRate, Data: rateDown},
		{Text: "Skip", Unique: uniqueRate, Data: rateSkip},
	}}
	linkButtons = [][]transport.Button{{
		{Text: "Share", Unique: uniqueLink, Data: linkYes},
		{Text: "Cancel", Unique: uniqueLink, Data: linkNo},
	}}
)

var (
	genderLabels = map[string]profile.Gender{
		labelMale:   profile.GenderMale,
		labelFemale: profile.GenderFemale,
	}
	preferenceLabels = map[string]profile.Preference{
		labelMale:   profile.PreferMale,
		labelFemale: profile.PreferFemale,
		labelAny:    profile.PreferAny,
	}
)

// formatRemaining floors d to whole hours and minutes.
func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func banNotice(d time.Duration) string {
	return fmt.Sprintf(msgBanned, formatRemaining(d))
}

// captchaKeyboard lays the options out in rows of three.
func captchaKeyboard(c *abuse.Challenge) transport.Keyboard {
	var rows [][]string
	for i := 0; i < len(c.Options); i += 3 {
		rows = append(rows, c.Options[i:min(i+3, len(c.Options))])
	}
	return transport.Keyboard{Rows: rows, OneTime: true}
}

// parseCommand splits "/cmd@bot arg1 arg2" into "/cmd" and its arguments.
// It returns an empty command for ordinary text.
func parseCommand(text string) (string, []string) {
	if !strings.HasPrefix(text, "/") {
		return "", nil
	}
	fields := strings.Fields(text)
	cmd := fields[0]
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}
	return strings.ToLower(cmd), fields[1:]
}
