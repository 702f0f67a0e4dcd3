package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"plain", "hello", false},
		{"padded", "  hi  ", false},
		{"unicode", "привет 👋", false},
		{"at limit", strings.Repeat("a", MaxTextChars), false},
		{"empty", "", true},
		{"whitespace", " \n\t ", true},
		{"too long", strings.Repeat("a", MaxTextChars+1), true},
		{"invalid utf8", "bad\xff", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateText(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateText_Reasons(t *testing.T) {
	assert.ErrorIs(t, ValidateText("   "), errMessageEmpty)
	assert.ErrorIs(t, ValidateText("bad\xff"), errInvalidUTF8)
	assert.ErrorContains(t, ValidateText(strings.Repeat("a", MaxTextChars+1)), "4096")
}

func TestTrimCaption(t *testing.T) {
	assert.Equal(t, "short", TrimCaption("short"))

	exact := strings.Repeat("ж", MaxCaptionChars)
	assert.Equal(t, exact, TrimCaption(exact))

	assert.Equal(t, exact, TrimCaption(exact+"tail"))
}

func TestChat_Partner(t *testing.T) {
	c := New(10, 20, time.Now())

	assert.Equal(t, int64(20), c.Partner(10))
	assert.Equal(t, int64(10), c.Partner(20))
	assert.Equal(t, int64(0), c.Partner(30))
	assert.True(t, c.IsParticipant(10))
	assert.False(t, c.IsParticipant(30))
	assert.NotEmpty(t, c.ID)
	assert.NotEqual(t, c.ID, New(10, 20, time.Now()).ID)
}

func TestChat_Age(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := New(1, 2, start)

	assert.Equal(t, 15*time.Second, c.Age(start.Add(15*time.Second)))
}
