package session

import (
	"errors"
	"fmt"
)

// State is a user's position in the bot lifecycle.
type State int

const (
	StateUnregistered State = iota
	StateChoosingGender
	StateChoosingPreference
	StateIdle
	StateSearching
	StateInChat
	StateAwaitingCaptcha
	StateConfirmingLinkShare
	StateRatingPartner
)

var stateNames = [...]string{
	StateUnregistered:        "unregistered",
	StateChoosingGender:      "choosing_gender",
	StateChoosingPreference:  "choosing_preference",
	StateIdle:                "idle",
	StateSearching:           "searching",
	StateInChat:              "in_chat",
	StateAwaitingCaptcha:     "awaiting_captcha",
	StateConfirmingLinkShare: "confirming_link_share",
	StateRatingPartner:       "rating_partner",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Chatting reports whether the state implies an existing chat.
func (s State) Chatting() bool {
	return s == StateInChat || s == StateConfirmingLinkShare
}

// Event drives a transition.
type Event int

const (
	EventRegister Event = iota
	EventGenderChosen
	EventPreferenceChosen
	EventChangePreference
	EventSearch
	EventMatchFound
	EventTimeout
	EventCancel
	EventLeave
	EventPartnerLeft
	EventShareLink
	EventLinkConfirmed
	EventLinkDeclined
	EventRatingSubmitted
	EventRatingSkipped
	EventRateLimited
	EventSolved
	EventBanned
)

var eventNames = [...]string{
	EventRegister:         "register",
	EventGenderChosen:     "gender_chosen",
	EventPreferenceChosen: "preference_chosen",
	EventChangePreference: "change_preference",
	EventSearch:           "search",
	EventMatchFound:       "match_found",
	EventTimeout:          "timeout",
	EventCancel:           "cancel",
	EventLeave:            "leave",
	EventPartnerLeft:      "partner_left",
	EventShareLink:        "share_link",
	EventLinkConfirmed:    "link_confirmed",
	EventLinkDeclined:     "link_declined",
	EventRatingSubmitted:  "rating_submitted",
	EventRatingSkipped:    "rating_skipped",
	EventRateLimited:      "rate_limited",
	EventSolved:           "solved",
	EventBanned:           "banned",
}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return fmt.Sprintf("event(%d)", int(e))
	}
	return eventNames[e]
}

// ErrInvalidTransition is returned for (state, event) pairs missing from the
// transition table.
var ErrInvalidTransition = errors.New("session: invalid transition")

type edge struct {
	from State
	on   Event
}

// transitions is the complete lifecycle table. RateLimited, Solved and Banned
// are handled by Store because their targets depend on the remembered state.
var transitions = map[edge]State{
	{StateUnregistered, EventRegister}:               StateChoosingGender,
	{StateIdle, EventRegister}:                       StateChoosingGender,
	{StateChoosingGender, EventRegister}:             StateChoosingGender,
	{StateChoosingPreference, EventRegister}:         StateChoosingGender,
	{StateChoosingGender, EventGenderChosen}:         StateChoosingPreference,
	{StateChoosingPreference, EventPreferenceChosen}: StateIdle,
	{StateIdle, EventChangePreference}:               StateChoosingPreference,

	{StateIdle, EventSearch}:          StateSearching,
	{StateSearching, EventMatchFound}: StateInChat,
	{StateSearching, EventTimeout}:    StateIdle,
	{StateSearching, EventCancel}:     StateIdle,

	{StateInChat, EventLeave}:                      StateRatingPartner,
	{StateInChat, EventPartnerLeft}:                StateIdle,
	{StateInChat, EventShareLink}:                  StateConfirmingLinkShare,
	{StateConfirmingLinkShare, EventLinkConfirmed}: StateInChat,
	{StateConfirmingLinkShare, EventLinkDeclined}:  StateInChat,
	{StateConfirmingLinkShare, EventLeave}:         StateRatingPartner,
	{StateConfirmingLinkShare, EventPartnerLeft}:   StateIdle,

	{StateRatingPartner, EventRatingSubmitted}: StateIdle,
	{StateRatingPartner, EventRatingSkipped}:   StateIdle,
}

// Next returns the state reached from s on e.
func Next(s State, e Event) (State, error) {
	to, ok := transitions[edge{s, e}]
	if !ok {
		return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, s)
	}
	return to, nil
}
