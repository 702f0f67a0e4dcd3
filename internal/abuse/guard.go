// Package abuse gates user actions behind the rate limiter and escalates
// offenders through a symbol captcha to a temporary ban.
package abuse

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/whisper/pairbot/internal/ban"
	"github.com/whisper/pairbot/internal/metrics"
	"github.com/whisper/pairbot/internal/ratelimit"
)

const (
	// MaxAttempts is the number of captcha answers allowed before a ban.
	MaxAttempts = 3

	optionCount = 6 // correct symbol plus five decoys
)

// Symbols is the fixed set captcha options are drawn from.
var Symbols = []string{
	"🍎", "🍌", "🍇", "🍉", "🍒", "🍋",
	"🥝", "🍑", "🍍", "🥥", "🍓", "🫐",
}

// Challenge is one captcha presented to a user.
type Challenge struct {
	Answer   string
	Options  []string // shuffled, contains Answer exactly once
	Attempt  int      // 1-based
	IssuedAt time.Time
}

// Outcome classifies the result of a captcha answer.
type Outcome int

const (
	OutcomeNoChallenge Outcome = iota
	OutcomeSolved
	OutcomeRetry
	OutcomeBanned
)

// Result is returned by Solve.
type Result struct {
	Outcome   Outcome
	Challenge *Challenge // next challenge for OutcomeRetry
	BanExpiry time.Time  // for OutcomeBanned
}

// Banner applies bans.
type Banner interface {
	Ban(ctx context.Context, userID int64, expiry time.Time) error
}

type record struct {
	failures  int
	challenge *Challenge
}

// Guard holds the abuse record of every user that hit the rate limit.
type Guard struct {
	limiter *ratelimit.Limiter
	rule    ratelimit.Rule
	bans    Banner
	now     func() time.Time
	logger  *zap.Logger

	mu      sync.Mutex
	records map[int64]*record
}

// NewGuard creates a guard that limits with rule and bans through bans.
// A nil now uses time.Now.
func NewGuard(limiter *ratelimit.Limiter, rule ratelimit.Rule, bans Banner, now func() time.Time, logger *zap.Logger) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{
		limiter: limiter,
		rule:    rule,
		bans:    bans,
		now:     now,
		logger:  logger,
		records: make(map[int64]*record),
	}
}

// Check records a gated action. When the user is over the limit it returns
// the challenge they must solve, issuing the first one if needed.
func (g *Guard) Check(userID int64) (*Challenge, bool) {
	g.mu.Lock()
	if r, ok := g.records[userID]; ok && r.challenge != nil {
		c := r.challenge
		g.mu.Unlock()
		return c, true
	}
	g.mu.Unlock()

	if g.limiter.Allow(userID, g.rule) {
		return nil, false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.records[userID]
	if !ok {
		r = &record{}
		g.records[userID] = r
	}
	if r.challenge == nil {
		r.challenge = g.newChallenge(r.failures + 1)
		metrics.CaptchaTotal.WithLabelValues("issued").Inc()
		g.logger.Info("captcha issued", zap.Int64("user_id", userID), zap.Int("attempt", r.challenge.Attempt))
	}
	return r.challenge, true
}

// Active returns the user's pending challenge, if any.
func (g *Guard) Active(userID int64) (*Challenge, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.records[userID]; ok && r.challenge != nil {
		return r.challenge, true
	}
	return nil, false
}

// Solve checks an answer against the pending challenge. A correct answer
// clears the record and the rate-limit window. A wrong one issues a fresh
// challenge, and the third wrong one bans the user for ban.CaptchaBan.
func (g *Guard) Solve(ctx context.Context, userID int64, answer string) (Result, error) {
	g.mu.Lock()
	r, ok := g.records[userID]
	if !ok || r.challenge == nil {
		g.mu.Unlock()
		return Result{Outcome: OutcomeNoChallenge}, nil
	}

	if strings.TrimSpace(answer) == r.challenge.Answer {
		delete(g.records, userID)
		g.mu.Unlock()
		g.limiter.Reset(userID, g.rule)
		metrics.CaptchaTotal.WithLabelValues("solved").Inc()
		g.logger.Info("captcha solved", zap.Int64("user_id", userID))
		return Result{Outcome: OutcomeSolved}, nil
	}

	r.failures++
	if failures := r.failures; failures < MaxAttempts {
		r.challenge = g.newChallenge(failures + 1)
		next := r.challenge
		g.mu.Unlock()
		metrics.CaptchaTotal.WithLabelValues("failed").Inc()
		g.logger.Info("captcha failed", zap.Int64("user_id", userID), zap.Int("failures", failures))
		return Result{Outcome: OutcomeRetry, Challenge: next}, nil
	}

	delete(g.records, userID)
	g.mu.Unlock()

	expiry := g.now().Add(ban.CaptchaBan)
	metrics.CaptchaTotal.WithLabelValues("banned").Inc()
	metrics.BansTotal.WithLabelValues("captcha").Inc()
	g.logger.Warn("captcha attempts exhausted, banning",
		zap.Int64("user_id", userID),
		zap.Time("expiry", expiry),
	)
	err := g.bans.Ban(ctx, userID, expiry)
	return Result{Outcome: OutcomeBanned, BanExpiry: expiry}, err
}

// Forget drops the user's record, for unbans and resets.
func (g *Guard) Forget(userID int64) {
	g.mu.Lock()
	delete(g.records, userID)
	g.mu.Unlock()
	g.limiter.Reset(userID, g.rule)
}

// newChallenge draws a correct symbol and five decoys without replacement.
func (g *Guard) newChallenge(attempt int) *Challenge {
	picks := rand.Perm(len(Symbols))[:optionCount]
	options := make([]string, optionCount)
	for i, idx := range picks {
		options[i] = Symbols[idx]
	}
	answer := options[0]
	rand.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return &Challenge{
		Answer:   answer,
		Options:  options,
		Attempt:  attempt,
		IssuedAt: g.now(),
	}
}
