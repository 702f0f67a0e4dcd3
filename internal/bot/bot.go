// Package bot turns inbound platform events into session, matching and
// abuse operations. Every event passes the ban gate, then the rate-limit
// gate, and is then dispatched against the sender's session state.
package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/whisper/pairbot/internal/abuse"
	"github.com/whisper/pairbot/internal/admin"
	"github.com/whisper/pairbot/internal/chat"
	"github.com/whisper/pairbot/internal/messaging"
	"github.com/whisper/pairbot/internal/profile"
	"github.com/whisper/pairbot/internal/rating"
	"github.com/whisper/pairbot/internal/session"
	"github.com/whisper/pairbot/internal/transport"
)

// Update is one inbound event from a user.
type Update struct {
	UserID    int64
	Username  string
	MessageID int
	Text      string
	Media     *transport.Media // nil for text and callbacks
	Callback  *Callback
}

// Callback is an inline button press.
type Callback struct {
	Unique string
	Data   string
}

// Profiles is the profile storage the bot needs.
type Profiles interface {
	Get(ctx context.Context, userID int64) (*profile.Profile, error)
	Upsert(ctx context.Context, p *profile.Profile) error
}

// Ratings records post-chat ratings.
type Ratings interface {
	Record(ctx context.Context, r rating.Rating) (bool, error)
}

// BanChecker answers the ban gate.
type BanChecker interface {
	Remaining(ctx context.Context, userID int64) (time.Duration, bool)
}

// Deps wires a Handler.
type Deps struct {
	Transport transport.Transport
	Sessions  *session.Store
	Profiles  Profiles
	Ratings   Ratings
	Bans      BanChecker
	Guard     *abuse.Guard
	Relay     *chat.Gate
	Admin     *admin.Service // nil disables operator commands
	Events    messaging.Publisher
	IsAdmin   func(userID int64) bool // nil treats nobody as an operator
	Now       func() time.Time
	Logger    *zap.Logger
}

// Handler manages all bot interactions
type Handler struct {
	transport transport.Transport
	sessions  *session.Store
	profiles  Profiles
	ratings   Ratings
	bans      BanChecker
	guard     *abuse.Guard
	relay     *chat.Gate
	admin     *admin.Service
	events    messaging.Publisher
	isAdmin   func(userID int64) bool
	now       func() time.Time
	logger    *zap.Logger

	// Gender picked during onboarding, until the preference is saved.
	pending    map[int64]profile.Gender
	pendingMux sync.Mutex
}

// NewHandler creates a new handler instance
func NewHandler(d Deps) *Handler {
	if d.Events == nil {
		d.Events = messaging.Discard
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.IsAdmin == nil {
		d.IsAdmin = func(int64) bool { return false }
	}
	return &Handler{
		transport: d.Transport,
		sessions:  d.Sessions,
		profiles:  d.Profiles,
		ratings:   d.Ratings,
		bans:      d.Bans,
		guard:     d.Guard,
		relay:     d.Relay,
		admin:     d.Admin,
		events:    d.Events,
		isAdmin:   d.IsAdmin,
		now:       d.Now,
		logger:    d.Logger,
		pending:   make(map[int64]profile.Gender),
	}
}

// Handle processes one inbound event. Failures are reported to the user and
// logged; nothing is returned to the transport.
func (h *Handler) Handle(ctx context.Context, u Update) {
	if left, banned := h.bans.Remaining(ctx, u.UserID); banned {
		h.send(u.UserID, banNotice(left))
		return
	}

	var (
		cmd  string
		args []string
	)
	if u.Callback == nil && u.Media == nil {
		cmd, args = parseCommand(u.Text)
	}
	if h.admin != nil && adminCommands[cmd] && h.isAdmin(u.UserID) {
		h.handleAdmin(ctx, u, cmd, args)
		return
	}

	h.restore(ctx, u.UserID)

	if h.sessions.State(u.UserID) == session.StateAwaitingCaptcha {
		h.answerCaptcha(ctx, u)
		return
	}
	if ch, limited := h.guard.Check(u.UserID); limited {
		h.sessions.EnterCaptcha(u.UserID)
		h.presentCaptcha(u.UserID, ch, "")
		return
	}

	switch {
	case u.Callback != nil:
		h.handleCallback(ctx, u)
	case cmd != "":
		h.handleCommand(ctx, u, cmd)
	default:
		h.handleMessage(ctx, u)
	}
}

// restore brings users onboarded before a restart straight to Idle.
func (h *Handler) restore(ctx context.Context, userID int64) {
	if h.sessions.State(userID) != session.StateUnregistered {
		return
	}
	p, err := h.profiles.Get(ctx, userID)
	switch {
	case errors.Is(err, profile.ErrNotFound):
		return
	case err != nil:
		h.logger.Warn("profile lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	if p.Complete() {
		h.sessions.Restore(userID)
	}
}

func (h *Handler) handleCommand(ctx context.Context, u Update, cmd string) {
	switch cmd {
	case "/start":
		h.handleStart(u)
	case "/search":
		h.handleSearch(ctx, u)
	case "/stop":
		h.handleStop(u)
	case "/next":
		h.handleNext(u)
	case "/preference":
		h.handlePreferenceCommand(u)
	case "/link":
		h.handleLink(u)
	case "/help":
		h.send(u.UserID, msgHelp)
	default:
		h.send(u.UserID, msgUnknownCommand)
	}
}

func (h *Handler) handleMessage(ctx context.Context, u Update) {
	switch h.sessions.State(u.UserID) {
	case session.StateChoosingGender:
		h.handleGenderChoice(u)
	case session.StateChoosingPreference:
		h.handlePreferenceChoice(ctx, u)
	case session.StateInChat, session.StateConfirmingLinkShare:
		h.relayMessage(u)
	case session.StateSearching:
		h.send(u.UserID, msgStillSearching)
	case session.StateRatingPartner:
		h.send(u.UserID, msgRatePending)
	case session.StateIdle:
		h.send(u.UserID, msgUseSearch)
	default:
		h.send(u.UserID, msgPressStart)
	}
}

func (h *Handler) handleCallback(ctx context.Context, u Update) {
	switch u.Callback.Unique {
	case uniqueRate:
		h.handleRating(ctx, u)
	case uniqueLink:
		h.handleLinkAnswer(u)
	default:
		h.send(u.UserID, msgButtonExpired)
	}
}

func (h *Handler) send(userID int64, text string) {
	if err := h.transport.SendText(userID, text); err != nil {
		h.logger.Warn("send failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (h *Handler) sendChoices(userID int64, text string, kb transport.Keyboard) {
	if err := h.transport.SendChoices(userID, text, kb); err != nil {
		h.logger.Warn("send failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (h *Handler) sendButtons(userID int64, text string, rows [][]transport.Button) {
	if err := h.transport.SendButtons(userID, text, rows); err != nil {
		h.logger.Warn("send failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (h *Handler) publish(subject string, v any) {
	if err := messaging.PublishEvent(h.events, subject, v); err != nil {
		h.logger.Warn("publish event failed", zap.String("subject", subject), zap.Error(err))
	}
}
