// Package rating provides PostgreSQL-backed storage for post-chat ratings.
// Each user may rate a given partner once; repeated submissions are ignored.
package rating

import (
	"context"
	"database/sql"
	"fmt"
)

// Store manages ratings in PostgreSQL.
type Store struct {
	db *sql.DB
}

// Rating is one user's verdict on a past partner.
type Rating struct {
	RaterID  int64
	RatedID  int64
	Positive bool
}

// Summary aggregates the ratings a user received.
type Summary struct {
	Positive int
	Negative int
}

// NewStore creates a new rating store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record inserts a rating. It is idempotent on the (rater, rated) pair and
// reports whether a new row was written.
func (s *Store) Record(ctx context.Context, r Rating) (bool, error) {
	if r.RaterID == r.RatedID {
		return false, fmt.Errorf("rating: user %d cannot rate themselves", r.RaterID)
	}

	const query = `
		INSERT INTO ratings (rater_id, rated_id, positive)
		VALUES ($1, $2, $3)
		ON CONFLICT (rater_id, rated_id) DO NOTHING`

	res, err := s.db.ExecContext(ctx, query, r.RaterID, r.RatedID, r.Positive)
	if err != nil {
		return false, fmt.Errorf("rating: insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rating: rows affected: %w", err)
	}
	return n > 0, nil
}

// SummaryFor returns the positive and negative counts received by a user.
func (s *Store) SummaryFor(ctx context.Context, ratedID int64) (Summary, error) {
	const query = `
		SELECT
			COUNT(*) FILTER (WHERE positive),
			COUNT(*) FILTER (WHERE NOT positive)
		FROM ratings
		WHERE rated_id = $1`

	var sum Summary
	if err := s.db.QueryRowContext(ctx, query, ratedID).Scan(&sum.Positive, &sum.Negative); err != nil {
		return Summary{}, fmt.Errorf("rating: summary: %w", err)
	}
	return sum, nil
}
