package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/whisper/pairbot/internal/matching"
	"github.com/whisper/pairbot/internal/messaging"
	"github.com/whisper/pairbot/internal/rating"
	"github.com/whisper/pairbot/internal/session"
)

func TestBanGate(t *testing.T) {
	f := newFixture(t, noLimit)
	f.onboard(1, labelMale, labelAny)
	expiry := f.clock.Now().Add(90*time.Minute + 40*time.Second)
	require.NoError(t, f.bans.Ban(context.Background(), 1, expiry))

	f.say(1, "/search")

	assert.Equal(t, "⛔ You are banned. Time remaining: 1h 30m.", f.lastText(1))
	assert.Empty(t, f.sessions.Waiting())

	f.clock.Advance(91 * time.Minute)
	f.say(1, "/search")
	assert.Equal(t, session.StateSearching, f.sessions.State(1))
}

func TestBanGate_BlocksEveryInput(t *testing.T) {
	f := newFixture(t, noLimit)
	f.pair(1, 2)
	require.NoError(t, f.bans.Ban(context.Background(), 1, f.clock.Now().Add(time.Hour)))
	f.clock.Advance(time.Minute)

	f.say(1, "still here")
	f.sendMedia(1, 8)
	f.press(1, uniqueRate, rateUp)

	for _, text := range f.tr.Texts(2) {
		assert.NotEqual(t, "still here", text)
	}
	assert.Empty(t, f.tr.To(moderationChannel))
	for _, text := range f.tr.Texts(1)[len(f.tr.Texts(1))-3:] {
		assert.True(t, strings.HasPrefix(text, "⛔"), text)
	}
}

// limited onboards id under a limit of three actions and takes one more,
// which raises the captcha.
func limited(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t, 3)
	f.onboard(1, labelMale, labelAny)
	f.say(1, "/help")
	require.Equal(t, session.StateAwaitingCaptcha, f.sessions.State(1))
	return f
}

func TestCaptcha_Raised(t *testing.T) {
	f := limited(t)

	last, _ := f.tr.Last(1)
	c, ok := f.guard.Active(1)
	require.True(t, ok)
	assert.Contains(t, last.Text, c.Answer)
	assert.Contains(t, last.Text, "attempt 1 of 3")
	require.NotNil(t, last.Keyboard)
	assert.Len(t, last.Keyboard.Rows, 2)
	assert.NotContains(t, f.tr.Texts(1), msgHelp)
}

func TestCaptcha_SolvedRestoresState(t *testing.T) {
	f := limited(t)

	f.say(1, "wrong")
	assert.True(t, strings.HasPrefix(f.lastText(1), msgCaptchaWrong))
	assert.Contains(t, f.lastText(1), "attempt 2 of 3")

	c, ok := f.guard.Active(1)
	require.True(t, ok)
	f.say(1, c.Answer)

	assert.Equal(t, msgCaptchaSolved, f.lastText(1))
	assert.Equal(t, session.StateIdle, f.sessions.State(1))

	f.say(1, "/help")
	assert.Equal(t, msgHelp, f.lastText(1))
}

func TestCaptcha_NonTextShowsChallengeAgain(t *testing.T) {
	f := limited(t)
	c, _ := f.guard.Active(1)

	f.press(1, uniqueRate, rateUp)
	f.sendMedia(1, 4)

	assert.Contains(t, f.lastText(1), "attempt 1 of 3")
	again, _ := f.guard.Active(1)
	assert.Same(t, c, again)
	assert.Equal(t, session.StateAwaitingCaptcha, f.sessions.State(1))
}

func TestCaptcha_ThirdFailureBansAndEndsChat(t *testing.T) {
	f := newFixture(t, 4)
	f.pair(1, 2)
	f.say(1, "too many")
	require.Equal(t, session.StateAwaitingCaptcha, f.sessions.State(1))
	assert.NotContains(t, f.tr.Texts(2), "too many")

	// The gated user's partner keeps the chat open meanwhile.
	assert.Equal(t, session.StateInChat, f.sessions.State(2))

	f.say(1, "no")
	f.say(1, "no")
	f.say(1, "no")

	assert.Equal(t, "⛔ You are banned. Time remaining: 4h 0m.", f.lastText(1))
	assert.Equal(t, session.StateIdle, f.sessions.State(1))
	assert.Equal(t, session.StateIdle, f.sessions.State(2))
	assert.Equal(t, msgPartnerLeft, f.lastText(2))
	_, ok := f.sessions.ChatOf(2)
	assert.False(t, ok)
	assert.Equal(t, 1, f.events.Count(messaging.SubjectUserBanned))
	assert.Equal(t, 1, f.events.Count(messaging.SubjectChatEnded))
	assert.NoError(t, f.sessions.Verify())

	expiry, err := f.profiles.BanExpiry(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now().Add(4*time.Hour), expiry)

	f.clock.Advance(time.Hour)
	f.say(1, "/search")
	assert.Equal(t, "⛔ You are banned. Time remaining: 3h 0m.", f.lastText(1))
}

func TestCaptcha_GatedSearcherIsNotMatched(t *testing.T) {
	f := newFixture(t, 4)
	f.onboard(1, labelMale, labelAny)
	f.say(1, "/search")
	f.say(1, "/help")
	require.Equal(t, session.StateAwaitingCaptcha, f.sessions.State(1))

	f.onboard(2, labelFemale, labelAny)
	f.say(2, "/search")
	f.matcher.Tick()
	assert.Equal(t, session.StateSearching, f.sessions.State(2))

	c, _ := f.guard.Active(1)
	f.say(1, c.Answer)
	last, _ := f.tr.Last(1)
	assert.Equal(t, &searchKeyboard, last.Keyboard)
	assert.Equal(t, session.StateSearching, f.sessions.State(1))

	f.matcher.Tick()
	assert.Equal(t, session.StateInChat, f.sessions.State(1))
	assert.Equal(t, session.StateInChat, f.sessions.State(2))
}

func TestCaptcha_PartnerLeavingKeepsChallengeKeyboard(t *testing.T) {
	f := newFixture(t, 5)
	f.pair(1, 2)
	f.say(1, "one")
	f.say(1, "two")
	require.Equal(t, session.StateAwaitingCaptcha, f.sessions.State(1))
	c, ok := f.guard.Active(1)
	require.True(t, ok)

	f.say(2, "/next")

	last, _ := f.tr.Last(1)
	assert.Equal(t, msgPartnerLeft, last.Text)
	require.NotNil(t, last.Keyboard)
	assert.Equal(t, captchaKeyboard(c), *last.Keyboard)
	assert.Equal(t, session.StateAwaitingCaptcha, f.sessions.State(1))

	f.say(1, c.Answer)
	assert.Equal(t, msgCaptchaSolved, f.lastText(1))
	assert.Equal(t, session.StateIdle, f.sessions.State(1))
}

func TestCaptcha_SearchTimeoutKeepsChallengeKeyboard(t *testing.T) {
	f := newFixture(t, 4)
	f.onboard(1, labelMale, labelAny)
	f.say(1, "/search")
	f.say(1, "/help")
	require.Equal(t, session.StateAwaitingCaptcha, f.sessions.State(1))
	c, ok := f.guard.Active(1)
	require.True(t, ok)

	f.clock.Advance(matching.SearchTimeout + time.Second)
	f.matcher.Tick()

	last, _ := f.tr.Last(1)
	assert.Equal(t, msgSearchFailed, last.Text)
	require.NotNil(t, last.Keyboard)
	assert.Equal(t, captchaKeyboard(c), *last.Keyboard)
	assert.Equal(t, session.StateAwaitingCaptcha, f.sessions.State(1))
	assert.Empty(t, f.sessions.Waiting())
}

func TestCaptcha_CommandShowsChallengeAgain(t *testing.T) {
	f := limited(t)
	c, _ := f.guard.Active(1)

	for _, cmd := range []string{"/stop", "/search", "/next"} {
		f.say(1, cmd)
		assert.Contains(t, f.lastText(1), "attempt 1 of 3", cmd)
	}

	again, _ := f.guard.Active(1)
	assert.Same(t, c, again)
	assert.Equal(t, session.StateAwaitingCaptcha, f.sessions.State(1))
	_, banned := f.bans.Remaining(context.Background(), 1)
	assert.False(t, banned)
}

func TestAdmin_BanEndsChat(t *testing.T) {
	f := newFixture(t, noLimit)
	f.pair(1, 2)

	f.say(operatorID, "/ban 1 2")

	assert.Equal(t, "User 1 banned until 2024-05-01T14:00:00Z.", f.lastText(operatorID))
	assert.Equal(t, "⛔ You are banned. Time remaining: 2h 0m.", f.lastText(1))
	assert.Equal(t, msgPartnerLeft, f.lastText(2))
	assert.Equal(t, session.StateIdle, f.sessions.State(2))
	assert.Equal(t, 1, f.events.Count(messaging.SubjectUserBanned))

	f.say(1, "/search")
	assert.True(t, strings.HasPrefix(f.lastText(1), "⛔"))

	f.say(operatorID, "/stats")
	assert.Equal(t, "Registered: 2\nBanned: 1\nWaiting: 0\nActive chats: 0", f.lastText(operatorID))

	f.say(operatorID, "/unban 1")
	assert.Equal(t, "User 1 unbanned.", f.lastText(operatorID))
	f.say(1, "/search")
	assert.Equal(t, msgSearching, f.lastText(1))
}

func TestAdmin_Usage(t *testing.T) {
	f := newFixture(t, noLimit)

	for _, cmd := range []string{"/ban", "/ban 1", "/ban one 2", "/unban", "/unban x", "/rating"} {
		f.say(operatorID, cmd)
		assert.Equal(t, msgAdminUsage, f.lastText(operatorID), cmd)
	}
	for _, cmd := range []string{"/ban 1 0", "/ban 1 3000000"} {
		f.say(operatorID, cmd)
		assert.True(t, strings.HasPrefix(f.lastText(operatorID), "Operation failed"), cmd)
	}
	assert.Empty(t, f.tr.To(1))
	_, banned := f.bans.Remaining(context.Background(), 1)
	assert.False(t, banned)
}

func TestAdmin_CommandsIgnoredForUsers(t *testing.T) {
	f := newFixture(t, noLimit)
	f.onboard(1, labelMale, labelAny)
	f.onboard(2, labelFemale, labelAny)

	f.say(2, "/ban 1 24")

	assert.Equal(t, msgUnknownCommand, f.lastText(2))
	_, banned := f.bans.Remaining(context.Background(), 1)
	assert.False(t, banned)
}

func TestAdmin_Rating(t *testing.T) {
	f := newFixture(t, noLimit)
	f.ratings.On("SummaryFor", mock.Anything, int64(2)).Return(rating.Summary{Positive: 3, Negative: 1}, nil)

	f.say(operatorID, "/rating 2")

	assert.Equal(t, "User 2: 👍 3, 👎 1", f.lastText(operatorID))
}
