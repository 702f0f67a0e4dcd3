package messaging

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	subject string
	data    []byte
	err     error
}

func (r *recorder) Publish(subject string, data []byte) error {
	r.subject, r.data = subject, data
	return r.err
}

func TestPublishEvent(t *testing.T) {
	r := &recorder{}
	until := time.Date(2024, 5, 1, 16, 0, 0, 0, time.UTC)

	err := PublishEvent(r, SubjectUserBanned, UserBanned{UserID: 42, Until: until, Reason: "captcha"})
	require.NoError(t, err)

	assert.Equal(t, SubjectUserBanned, r.subject)
	assert.JSONEq(t, `{"user_id":42,"until":"2024-05-01T16:00:00Z","reason":"captcha"}`, string(r.data))
}

func TestPublishEvent_Errors(t *testing.T) {
	r := &recorder{err: errors.New("no responders")}
	assert.Error(t, PublishEvent(r, SubjectChatEnded, ChatEnded{ChatID: "c"}))

	assert.Error(t, PublishEvent(&recorder{}, SubjectChatEnded, func() {}))
	assert.NoError(t, PublishEvent(Discard, SubjectChatEnded, ChatEnded{ChatID: "c"}))
}

// TestNATSClient_RoundTrip requires a NATS server on localhost:4222.
func TestNATSClient_RoundTrip(t *testing.T) {
	client, err := NewNATSClient(DefaultNATSConfig(nats.DefaultURL), zap.NewNop())
	if err != nil {
		t.Skipf("nats not available: %v", err)
	}
	defer client.Close()

	got := make(chan ChatEnded, 1)
	require.NoError(t, client.Subscribe(SubjectAll, func(msg *nats.Msg) {
		var ev ChatEnded
		if json.Unmarshal(msg.Data, &ev) == nil {
			got <- ev
		}
	}))

	require.NoError(t, PublishEvent(client, SubjectChatEnded, ChatEnded{ChatID: "abc", EndedBy: 7, Reason: "left"}))

	select {
	case ev := <-got:
		assert.Equal(t, "abc", ev.ChatID)
		assert.Equal(t, int64(7), ev.EndedBy)
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}

	require.NoError(t, client.Unsubscribe(SubjectAll))
	assert.Error(t, client.Unsubscribe(SubjectAll))
}
