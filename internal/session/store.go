package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/whisper/pairbot/internal/chat"
	"github.com/whisper/pairbot/internal/profile"
)

var (
	ErrAlreadyQueued    = errors.New("session: already queued")
	ErrAlreadyInSession = errors.New("session: already in a chat")
	ErrNotQueued        = errors.New("session: not queued")
	ErrNotInChat        = errors.New("session: not in a chat")
	ErrGated            = errors.New("session: awaiting captcha")
	ErrInvariant        = errors.New("session: invariant violation")
)

// Waiter is a user's entry in the waiting pool.
type Waiter struct {
	UserID     int64
	Gender     profile.Gender
	Preference profile.Preference
	JoinedAt   time.Time
	Nudged     bool
	Gated      bool // solving a captcha, skipped by the matcher
}

// Stats is a point-in-time count of pool and chat membership.
type Stats struct {
	Waiting     int
	ActiveChats int
}

type user struct {
	state  State
	resume State // lifecycle state hidden behind AwaitingCaptcha
	since  time.Time
	ratee  int64 // partner awaiting a rating while in RatingPartner
}

func (u *user) gated() bool { return u.state == StateAwaitingCaptcha }

// base returns the lifecycle state, looking through a captcha overlay.
func (u *user) base() State {
	if u.gated() {
		return u.resume
	}
	return u.state
}

func (u *user) setBase(s State, now time.Time) {
	if u.gated() {
		u.resume = s
	} else {
		u.state = s
	}
	u.since = now
}

// Store is the single owner of user states, the waiting pool and the chat
// relation. Every exported method is one atomic step under mu.
type Store struct {
	mu      sync.Mutex
	now     func() time.Time
	users   map[int64]*user
	waiting map[int64]*Waiter
	chats   map[int64]*chat.Chat // keyed by both members
}

// NewStore creates an empty store. A nil now uses time.Now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:     now,
		users:   make(map[int64]*user),
		waiting: make(map[int64]*Waiter),
		chats:   make(map[int64]*chat.Chat),
	}
}

func (s *Store) get(id int64) *user {
	u, ok := s.users[id]
	if !ok {
		u = &user{state: StateUnregistered, since: s.now()}
		s.users[id] = u
	}
	return u
}

// State returns the visible state of a user.
func (s *Store) State(id int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return u.state
	}
	return StateUnregistered
}

// Lifecycle returns the user's state ignoring any captcha overlay.
func (s *Store) Lifecycle(id int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return u.base()
	}
	return StateUnregistered
}

// Restore marks an unknown user with a stored profile as Idle, for users
// that onboarded before the process started.
func (s *Store) Restore(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.get(id)
	if u.state == StateUnregistered {
		u.state = StateIdle
		u.since = s.now()
	}
}

// plainEvents may be applied through Apply. The rest have dedicated methods
// because they also change pool or chat membership.
var plainEvents = map[Event]bool{
	EventRegister:         true,
	EventGenderChosen:     true,
	EventPreferenceChosen: true,
	EventChangePreference: true,
	EventShareLink:        true,
	EventLinkConfirmed:    true,
	EventLinkDeclined:     true,
}

// Apply runs a transition that touches neither the pool nor a chat.
func (s *Store) Apply(id int64, e Event) (State, error) {
	if !plainEvents[e] {
		return StateUnregistered, fmt.Errorf("%w: %s needs a membership change", ErrInvalidTransition, e)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.get(id)
	if u.gated() {
		return u.state, ErrGated
	}
	to, err := Next(u.state, e)
	if err != nil {
		return u.state, err
	}
	u.state = to
	u.since = s.now()
	return to, nil
}

// FinishRating leaves RatingPartner on submit or skip and returns the user
// that was to be rated.
func (s *Store) FinishRating(id int64, e Event) (int64, error) {
	if e != EventRatingSubmitted && e != EventRatingSkipped {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTransition, e)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.get(id)
	if u.gated() {
		return 0, ErrGated
	}
	to, err := Next(u.state, e)
	if err != nil {
		return 0, err
	}
	ratee := u.ratee
	u.state = to
	u.ratee = 0
	u.since = s.now()
	return ratee, nil
}

// Enqueue adds an Idle user to the waiting pool and moves them to Searching.
func (s *Store) Enqueue(id int64, gender profile.Gender, pref profile.Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[id]; ok {
		return ErrAlreadyInSession
	}
	if _, ok := s.waiting[id]; ok {
		return ErrAlreadyQueued
	}
	u := s.get(id)
	if u.gated() {
		return ErrGated
	}
	to, err := Next(u.state, EventSearch)
	if err != nil {
		return err
	}

	now := s.now()
	s.waiting[id] = &Waiter{
		UserID:     id,
		Gender:     gender,
		Preference: pref,
		JoinedAt:   now,
	}
	u.state = to
	u.since = now
	return nil
}

// Cancel removes a searching user from the pool on their own request.
func (s *Store) Cancel(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dequeueLocked(id, EventCancel)
}

// Expire removes a user whose search deadline passed. It reports false if
// the user already left the pool.
func (s *Store) Expire(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dequeueLocked(id, EventTimeout) == nil
}

func (s *Store) dequeueLocked(id int64, e Event) error {
	if _, ok := s.waiting[id]; !ok {
		return ErrNotQueued
	}
	u := s.get(id)
	to, err := Next(u.base(), e)
	if err != nil {
		return fmt.Errorf("%w: queued user in %s", ErrInvariant, u.base())
	}
	delete(s.waiting, id)
	u.setBase(to, s.now())
	return nil
}

// MarkNudged flags a waiter as nudged. It returns true only the first time,
// and false if the user is no longer queued.
func (s *Store) MarkNudged(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.waiting[id]
	if !ok || w.Nudged {
		return false
	}
	w.Nudged = true
	return true
}

// Waiting returns a snapshot of the pool ordered by join time, oldest first.
func (s *Store) Waiting() []Waiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Waiter, 0, len(s.waiting))
	for id, w := range s.waiting {
		entry := *w
		entry.Gated = s.get(id).gated()
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// Pair removes a and b from the pool and creates their chat in one step.
// Both must still be queued and ungated; otherwise nothing changes.
func (s *Store) Pair(a, b int64) (*chat.Chat, error) {
	if a == b {
		return nil, fmt.Errorf("%w: self pairing", ErrInvariant)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range []int64{a, b} {
		if _, ok := s.waiting[id]; !ok {
			return nil, ErrNotQueued
		}
		if _, ok := s.chats[id]; ok {
			return nil, fmt.Errorf("%w: %d queued while in a chat", ErrInvariant, id)
		}
		if s.get(id).gated() {
			return nil, ErrGated
		}
	}
	ua, ub := s.get(a), s.get(b)
	toA, err := Next(ua.state, EventMatchFound)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvariant, err)
	}
	toB, err := Next(ub.state, EventMatchFound)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvariant, err)
	}

	now := s.now()
	c := chat.New(a, b, now)
	delete(s.waiting, a)
	delete(s.waiting, b)
	s.chats[a] = c
	s.chats[b] = c
	ua.state, ua.since = toA, now
	ub.state, ub.since = toB, now
	return c, nil
}

// ChatOf returns the user's active chat.
func (s *Store) ChatOf(id int64) (*chat.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	return c, ok
}

// Teardown ends the chat of a user who left with /next or /stop. The leaver
// moves to RatingPartner and the partner to Idle in the same step.
func (s *Store) Teardown(id int64) (*chat.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[id]
	if !ok {
		return nil, ErrNotInChat
	}
	partner := c.Partner(id)
	if s.chats[partner] != c {
		return nil, fmt.Errorf("%w: chat %s is one-sided", ErrInvariant, c.ID)
	}
	leaver, other := s.get(id), s.get(partner)
	toLeaver, err := Next(leaver.base(), EventLeave)
	if err != nil {
		return nil, err
	}
	toOther, err := Next(other.base(), EventPartnerLeft)
	if err != nil {
		return nil, fmt.Errorf("%w: partner in %s", ErrInvariant, other.base())
	}

	now := s.now()
	delete(s.chats, id)
	delete(s.chats, partner)
	leaver.setBase(toLeaver, now)
	leaver.ratee = partner
	other.setBase(toOther, now)
	return c, nil
}

// Evict tears a user down to Idle regardless of state, for bans. It returns
// the chat that ended, if any; its other member is moved to Idle.
func (s *Store) Evict(id int64) *chat.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	delete(s.waiting, id)

	c, ok := s.chats[id]
	if ok {
		partner := c.Partner(id)
		delete(s.chats, id)
		if s.chats[partner] == c {
			delete(s.chats, partner)
			p := s.get(partner)
			if to, err := Next(p.base(), EventPartnerLeft); err == nil {
				p.setBase(to, now)
			} else {
				p.setBase(StateIdle, now)
			}
		}
	}

	u := s.get(id)
	switch st := u.base(); {
	case st == StateSearching, st == StateRatingPartner, st.Chatting():
		u.state = StateIdle
	default:
		u.state = st
	}
	u.resume = StateUnregistered
	u.ratee = 0
	u.since = now
	return c
}

// EnterCaptcha overlays AwaitingCaptcha on the user's current state.
func (s *Store) EnterCaptcha(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.get(id)
	if u.gated() {
		return
	}
	u.resume = u.state
	u.state = StateAwaitingCaptcha
}

// LeaveCaptcha restores the state remembered by EnterCaptcha.
func (s *Store) LeaveCaptcha(id int64) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.get(id)
	if !u.gated() {
		return u.state, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, EventSolved, u.state)
	}
	u.state = u.resume
	u.resume = StateUnregistered
	return u.state, nil
}

// ExpireRatings moves users that sat in RatingPartner longer than maxAge
// back to Idle and returns their IDs.
func (s *Store) ExpireRatings(maxAge time.Duration) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var expired []int64
	for id, u := range s.users {
		if u.state != StateRatingPartner || now.Sub(u.since) < maxAge {
			continue
		}
		u.state = StateIdle
		u.ratee = 0
		u.since = now
		expired = append(expired, id)
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i] < expired[j] })
	return expired
}

// Stats returns pool and chat counts.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Waiting: len(s.waiting), ActiveChats: len(s.chats) / 2}
}

// Verify checks every membership invariant and returns the first violation.
func (s *Store) Verify() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.waiting {
		if _, ok := s.chats[id]; ok {
			return fmt.Errorf("%w: %d queued and in a chat", ErrInvariant, id)
		}
		if st := s.get(id).base(); st != StateSearching {
			return fmt.Errorf("%w: %d queued in %s", ErrInvariant, id, st)
		}
	}
	for id, c := range s.chats {
		partner := c.Partner(id)
		if partner == 0 || s.chats[partner] != c {
			return fmt.Errorf("%w: chat %s is one-sided", ErrInvariant, c.ID)
		}
	}
	for id, u := range s.users {
		_, queued := s.waiting[id]
		_, chatting := s.chats[id]
		if (u.base() == StateSearching) != queued {
			return fmt.Errorf("%w: %d in %s, queued=%v", ErrInvariant, id, u.base(), queued)
		}
		if u.base().Chatting() != chatting {
			return fmt.Errorf("%w: %d in %s, chatting=%v", ErrInvariant, id, u.base(), chatting)
		}
	}
	return nil
}
