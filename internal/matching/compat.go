package matching

import "github.com/whisper/pairbot/internal/session"

// Compatible reports whether two distinct waiters accept each other. Both
// directions are checked: each preference must be "any" or name the other
// user's gender.
func Compatible(a, b session.Waiter) bool {
	return a.UserID != b.UserID &&
		a.Preference.Accepts(b.Gender) &&
		b.Preference.Accepts(a.Gender)
}

// Candidate is a proposed pairing found in a pool snapshot.
type Candidate struct {
	A, B session.Waiter
}

// FindCandidates walks pool in order and proposes, for each waiter not yet
// taken, the first later waiter compatible with it. Gated waiters are
// skipped. pool must be ordered as returned by session.Store.Waiting.
func FindCandidates(pool []session.Waiter) []Candidate {
	taken := make(map[int64]bool, len(pool))
	var out []Candidate
	for i, a := range pool {
		if a.Gated || taken[a.UserID] {
			continue
		}
		for _, b := range pool[i+1:] {
			if b.Gated || taken[b.UserID] || !Compatible(a, b) {
				continue
			}
			taken[a.UserID], taken[b.UserID] = true, true
			out = append(out, Candidate{A: a, B: b})
			break
		}
	}
	return out
}
