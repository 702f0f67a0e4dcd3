package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no row exists for a user.
var ErrNotFound = errors.New("profile: not found")

// Store manages profiles in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a new profile store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get loads a user's profile.
func (s *Store) Get(ctx context.Context, userID int64) (*Profile, error) {
	const query = `
		SELECT user_id, username, gender, preference, ban_expires_at, created_at, updated_at
		FROM profiles
		WHERE user_id = $1`

	var (
		p          Profile
		gender     string
		preference string
		banExpiry  sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.Username, &gender, &preference, &banExpiry, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile: get: %w", err)
	}
	// Placeholder rows created for a ban carry no onboarding data.
	if gender != "" {
		if p.Gender, err = ParseGender(gender); err != nil {
			return nil, err
		}
	}
	if preference != "" {
		if p.Preference, err = ParsePreference(preference); err != nil {
			return nil, err
		}
	}
	if banExpiry.Valid {
		p.BanExpiry = banExpiry.Time
	}
	return &p, nil
}

// Upsert creates or updates the onboarding fields of a profile. The ban
// expiry is owned by SetBanExpiry and left untouched.
func (s *Store) Upsert(ctx context.Context, p *Profile) error {
	const query = `
		INSERT INTO profiles (user_id, username, gender, preference)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username,
		    gender = EXCLUDED.gender,
		    preference = EXCLUDED.preference,
		    updated_at = NOW()`

	_, err := s.db.ExecContext(ctx, query, p.UserID, p.Username, string(p.Gender), string(p.Preference))
	if err != nil {
		return fmt.Errorf("profile: upsert: %w", err)
	}
	return nil
}

// BanExpiry returns the stored ban expiry, or the zero time if none is set
// or the user is unknown.
func (s *Store) BanExpiry(ctx context.Context, userID int64) (time.Time, error) {
	const query = `SELECT ban_expires_at FROM profiles WHERE user_id = $1`

	var expiry sql.NullTime
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("profile: ban expiry: %w", err)
	}
	if !expiry.Valid {
		return time.Time{}, nil
	}
	return expiry.Time, nil
}

// SetBanExpiry stores a ban expiry. A zero time clears the ban. Unknown
// users get a placeholder row so operators can ban before onboarding.
func (s *Store) SetBanExpiry(ctx context.Context, userID int64, expiry time.Time) error {
	const query = `
		INSERT INTO profiles (user_id, ban_expires_at)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET ban_expires_at = EXCLUDED.ban_expires_at,
		    updated_at = NOW()`

	var value sql.NullTime
	if !expiry.IsZero() {
		value = sql.NullTime{Time: expiry, Valid: true}
	}
	if _, err := s.db.ExecContext(ctx, query, userID, value); err != nil {
		return fmt.Errorf("profile: set ban expiry: %w", err)
	}
	return nil
}

// CountRegistered returns the number of users that finished onboarding.
func (s *Store) CountRegistered(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM profiles WHERE gender <> ''`

	var count int
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("profile: count registered: %w", err)
	}
	return count, nil
}

// CountBanned returns the number of bans still running at now.
func (s *Store) CountBanned(ctx context.Context, now time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM profiles WHERE ban_expires_at > $1`

	var count int
	if err := s.db.QueryRowContext(ctx, query, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("profile: count banned: %w", err)
	}
	return count, nil
}
