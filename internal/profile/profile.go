// Package profile holds onboarding data for each user and persists it in
// PostgreSQL together with the user's ban expiry.
package profile

import (
	"fmt"
	"time"
)

// Gender is a user's declared gender category.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Preference is the gender a user wants to be paired with.
type Preference string

const (
	PreferMale   Preference = "male"
	PreferFemale Preference = "female"
	PreferAny    Preference = "any"
)

// ParseGender validates a stored or chosen gender.
func ParseGender(s string) (Gender, error) {
	switch g := Gender(s); g {
	case GenderMale, GenderFemale:
		return g, nil
	}
	return "", fmt.Errorf("profile: unknown gender %q", s)
}

// ParsePreference validates a stored or chosen preference.
func ParsePreference(s string) (Preference, error) {
	switch p := Preference(s); p {
	case PreferMale, PreferFemale, PreferAny:
		return p, nil
	}
	return "", fmt.Errorf("profile: unknown preference %q", s)
}

// Accepts reports whether a user with this preference accepts gender g.
func (p Preference) Accepts(g Gender) bool {
	return p == PreferAny || string(p) == string(g)
}

// Specific reports whether the preference names a single gender.
func (p Preference) Specific() bool {
	return p == PreferMale || p == PreferFemale
}

// Profile is the persisted record for one platform user.
type Profile struct {
	UserID     int64
	Username   string
	Gender     Gender
	Preference Preference
	BanExpiry  time.Time // zero when not banned
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Complete reports whether onboarding finished. Rows created only to hold a
// ban have no gender.
func (p *Profile) Complete() bool {
	return p.Gender != "" && p.Preference != ""
}

// Banned reports whether the ban is still running at now.
func (p *Profile) Banned(now time.Time) bool {
	return !p.BanExpiry.IsZero() && now.Before(p.BanExpiry)
}
