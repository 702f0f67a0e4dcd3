package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/whisper/pairbot/internal/abuse"
	"github.com/whisper/pairbot/internal/session"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text     string
		wantCmd  string
		wantArgs []string
	}{
		{"/start", "/start", []string{}},
		{"/Search", "/search", []string{}},
		{"/next@pair_bot", "/next", []string{}},
		{"/ban 12 24", "/ban", []string{"12", "24"}},
		{"  /stop", "", nil},
		{"hello /stop", "", nil},
		{"", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd, args := parseCommand(tt.text)
			assert.Equal(t, tt.wantCmd, cmd)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{4 * time.Hour, "4h 0m"},
		{90*time.Minute + 59*time.Second, "1h 30m"},
		{59 * time.Second, "0h 0m"},
		{26*time.Hour + 5*time.Minute, "26h 5m"},
		{-time.Minute, "0h 0m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatRemaining(tt.d), tt.d.String())
	}
}

func TestCaptchaKeyboard(t *testing.T) {
	c := &abuse.Challenge{Options: []string{"a", "b", "c", "d", "e", "f", "g"}}

	kb := captchaKeyboard(c)
	assert.Equal(t, [][]string{{"a", "b", "c"}, {"d", "e", "f"}, {"g"}}, kb.Rows)
	assert.True(t, kb.OneTime)
}

func TestKeyboardFor(t *testing.T) {
	assert.Equal(t, chatKeyboard, keyboardFor(session.StateInChat))
	assert.Equal(t, chatKeyboard, keyboardFor(session.StateConfirmingLinkShare))
	assert.Equal(t, searchKeyboard, keyboardFor(session.StateSearching))
	assert.Equal(t, genderKeyboard, keyboardFor(session.StateChoosingGender))
	assert.Equal(t, preferenceKeyboard, keyboardFor(session.StateChoosingPreference))
	assert.Equal(t, noKeyboard, keyboardFor(session.StateIdle))
}
