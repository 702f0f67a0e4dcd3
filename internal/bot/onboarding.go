package bot

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/whisper/pairbot/internal/profile"
	"github.com/whisper/pairbot/internal/session"
)

// handleStart handles /start command
func (h *Handler) handleStart(u Update) {
	if h.sessions.State(u.UserID) == session.StateRatingPartner {
		if _, err := h.sessions.FinishRating(u.UserID, session.EventRatingSkipped); err != nil {
			h.logger.Warn("skip rating failed", zap.Int64("user_id", u.UserID), zap.Error(err))
		}
	}
	if _, err := h.sessions.Apply(u.UserID, session.EventRegister); err != nil {
		h.send(u.UserID, msgStartBusy)
		return
	}

	h.logger.Info("user started onboarding",
		zap.Int64("user_id", u.UserID),
		zap.String("username", u.Username),
	)
	h.sendChoices(u.UserID, msgWelcome, genderKeyboard)
}

func (h *Handler) handleGenderChoice(u Update) {
	gender, ok := genderLabels[u.Text]
	if !ok {
		h.sendChoices(u.UserID, msgChooseGender, genderKeyboard)
		return
	}
	if _, err := h.sessions.Apply(u.UserID, session.EventGenderChosen); err != nil {
		h.logger.Warn("gender transition rejected", zap.Int64("user_id", u.UserID), zap.Error(err))
		return
	}

	h.pendingMux.Lock()
	h.pending[u.UserID] = gender
	h.pendingMux.Unlock()

	h.sendChoices(u.UserID, msgChoosePreference, preferenceKeyboard)
}

// handlePreferenceCommand re-enters preference selection from Idle.
func (h *Handler) handlePreferenceCommand(u Update) {
	if _, err := h.sessions.Apply(u.UserID, session.EventChangePreference); err != nil {
		h.send(u.UserID, msgPreferenceBusy)
		return
	}
	h.sendChoices(u.UserID, msgChoosePreference, preferenceKeyboard)
}

// handlePreferenceChoice saves the profile. The state moves to Idle only
// once the profile is stored; on failure the user stays on this step.
func (h *Handler) handlePreferenceChoice(ctx context.Context, u Update) {
	pref, ok := preferenceLabels[u.Text]
	if !ok {
		h.sendChoices(u.UserID, msgPickPreference, preferenceKeyboard)
		return
	}

	gender, ok := h.pendingGender(ctx, u.UserID)
	if !ok {
		h.send(u.UserID, msgProfileFailed)
		return
	}

	p := &profile.Profile{
		UserID:     u.UserID,
		Username:   u.Username,
		Gender:     gender,
		Preference: pref,
	}
	if err := h.profiles.Upsert(ctx, p); err != nil {
		h.logger.Error("failed to save profile", zap.Int64("user_id", u.UserID), zap.Error(err))
		h.sendChoices(u.UserID, msgProfileFailed, preferenceKeyboard)
		return
	}
	if _, err := h.sessions.Apply(u.UserID, session.EventPreferenceChosen); err != nil {
		h.logger.Warn("preference transition rejected", zap.Int64("user_id", u.UserID), zap.Error(err))
		return
	}

	h.pendingMux.Lock()
	delete(h.pending, u.UserID)
	h.pendingMux.Unlock()

	h.logger.Info("profile saved",
		zap.Int64("user_id", u.UserID),
		zap.String("gender", string(gender)),
		zap.String("preference", string(pref)),
	)
	h.sendChoices(u.UserID, msgProfileSaved, noKeyboard)
}

// pendingGender returns the gender picked in this onboarding run, falling
// back to the stored profile when only the preference is being changed.
func (h *Handler) pendingGender(ctx context.Context, userID int64) (profile.Gender, bool) {
	h.pendingMux.Lock()
	gender, ok := h.pending[userID]
	h.pendingMux.Unlock()
	if ok {
		return gender, true
	}

	p, err := h.profiles.Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, profile.ErrNotFound) {
			h.logger.Error("profile lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		return "", false
	}
	return p.Gender, p.Gender != ""
}
