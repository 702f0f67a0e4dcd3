package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/whisper/pairbot/internal/abuse"
	"github.com/whisper/pairbot/internal/admin"
	"github.com/whisper/pairbot/internal/ban"
	"github.com/whisper/pairbot/internal/chat"
	"github.com/whisper/pairbot/internal/matching"
	"github.com/whisper/pairbot/internal/profile"
	"github.com/whisper/pairbot/internal/ratelimit"
	"github.com/whisper/pairbot/internal/session"
	"github.com/whisper/pairbot/internal/testutil"
	"github.com/whisper/pairbot/internal/transport"
)

const (
	operatorID        = int64(99)
	moderationChannel = int64(-100777)
)

// memProfiles is an in-memory profile table that also serves the ban ledger
// and the operator counts.
type memProfiles struct {
	mu         sync.Mutex
	rows       map[int64]profile.Profile
	failUpsert error
}

func newMemProfiles() *memProfiles {
	return &memProfiles{rows: make(map[int64]profile.Profile)}
}

func (m *memProfiles) Get(_ context.Context, userID int64) (*profile.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[userID]
	if !ok {
		return nil, profile.ErrNotFound
	}
	return &p, nil
}

func (m *memProfiles) Upsert(_ context.Context, p *profile.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpsert != nil {
		return m.failUpsert
	}
	row := m.rows[p.UserID]
	row.UserID, row.Username, row.Gender, row.Preference = p.UserID, p.Username, p.Gender, p.Preference
	m.rows[p.UserID] = row
	return nil
}

func (m *memProfiles) BanExpiry(_ context.Context, userID int64) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[userID].BanExpiry, nil
}

func (m *memProfiles) SetBanExpiry(_ context.Context, userID int64, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row := m.rows[userID]
	row.UserID, row.BanExpiry = userID, expiry
	m.rows[userID] = row
	return nil
}

func (m *memProfiles) CountRegistered(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.rows {
		if p.Complete() {
			n++
		}
	}
	return n, nil
}

func (m *memProfiles) CountBanned(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.rows {
		if p.Banned(now) {
			n++
		}
	}
	return n, nil
}

type fixture struct {
	t        *testing.T
	clock    *testutil.Clock
	tr       *testutil.FakeTransport
	events   *testutil.FakePublisher
	profiles *memProfiles
	ratings  *testutil.MockRatingStore
	sessions *session.Store
	bans     *ban.Ledger
	guard    *abuse.Guard
	handler  *Handler
	matcher  *matching.Service
}

// newFixture wires a handler the way main does, with every store in memory.
// limit is the number of gated actions a user may take per minute.
func newFixture(t *testing.T, limit int) *fixture {
	t.Helper()
	logger := testutil.NewTestLogger()
	clock := testutil.NewClock()
	f := &fixture{
		t:        t,
		clock:    clock,
		tr:       testutil.NewFakeTransport(),
		events:   &testutil.FakePublisher{},
		profiles: newMemProfiles(),
		ratings:  new(testutil.MockRatingStore),
		sessions: session.NewStore(clock.Now),
	}
	limiter := ratelimit.NewLimiter(clock.Now)
	f.bans = ban.NewLedger(f.profiles, nil, clock.Now, logger)
	rule := ratelimit.Rule{Key: "test", Limit: limit, Window: time.Minute}
	f.guard = abuse.NewGuard(limiter, rule, f.bans, clock.Now, logger)

	f.handler = NewHandler(Deps{
		Transport: f.tr,
		Sessions:  f.sessions,
		Profiles:  f.profiles,
		Ratings:   f.ratings,
		Bans:      f.bans,
		Guard:     f.guard,
		Relay:     chat.NewGate(f.tr, limiter, moderationChannel, clock.Now, logger),
		Admin:     admin.NewService(f.bans, f.profiles, f.ratings, f.sessions, f.guard, clock.Now, logger),
		Events:    f.events,
		IsAdmin:   func(id int64) bool { return id == operatorID },
		Now:       clock.Now,
		Logger:    logger,
	})
	f.matcher = matching.NewService(f.sessions, f.handler, f.events, clock.Now, logger)
	return f
}

func username(id int64) string {
	return fmt.Sprintf("user%d", id)
}

// say delivers a text message or command from id.
func (f *fixture) say(id int64, text string) {
	f.handler.Handle(context.Background(), Update{UserID: id, Username: username(id), Text: text})
}

// press delivers an inline button press from id.
func (f *fixture) press(id int64, unique, data string) {
	f.handler.Handle(context.Background(), Update{
		UserID:   id,
		Username: username(id),
		Callback: &Callback{Unique: unique, Data: data},
	})
}

// sendMedia delivers a photo from id.
func (f *fixture) sendMedia(id int64, messageID int) {
	f.handler.Handle(context.Background(), Update{
		UserID:    id,
		Username:  username(id),
		MessageID: messageID,
		Media:     &transport.Media{Kind: transport.KindPhoto, FileID: "AgAD-file", Caption: "pic"},
	})
}

func (f *fixture) onboard(id int64, gender, preference string) {
	f.t.Helper()
	f.say(id, "/start")
	f.say(id, gender)
	f.say(id, preference)
	require.Equal(f.t, session.StateIdle, f.sessions.State(id))
}

// pair onboards a and b with mutually acceptable profiles and runs the
// matcher until they share a chat.
func (f *fixture) pair(a, b int64) {
	f.t.Helper()
	f.onboard(a, labelMale, labelFemale)
	f.onboard(b, labelFemale, labelAny)
	f.say(a, "/search")
	f.say(b, "/search")
	f.matcher.Tick()
	c, ok := f.sessions.ChatOf(a)
	require.True(f.t, ok)
	require.Equal(f.t, b, c.Partner(a))
}

// lastText returns the last text delivered to id.
func (f *fixture) lastText(id int64) string {
	f.t.Helper()
	s, ok := f.tr.Last(id)
	require.True(f.t, ok, "nothing delivered to %d", id)
	return s.Text
}

var errStore = errors.New("store unavailable")
