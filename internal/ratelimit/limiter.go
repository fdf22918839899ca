package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"repeater-directory/internal/config"
	"repeater-directory/internal/models"
)

// ErrRateLimited marks a submission rejected by the sliding window.
var ErrRateLimited = errors.New("too many submissions")

// Store is the hit-ledger collaborator. Reserve is the atomic
// check-and-record path; Prune/Count/RecordHit remain for bookkeeping
// and stats.
type Store interface {
	Prune(ctx context.Context, window time.Duration) error
	Count(ctx context.Context, contactHash, ip string, window time.Duration) (models.RateLimitCounts, error)
	RecordHit(ctx context.Context, contactHash, ip string, window time.Duration) error
	Reserve(ctx context.Context, contactHash, ip string, limit int, window time.Duration) (bool, models.RateLimitCounts, error)
}

// Limiter bounds anonymous submissions per contact hash and per IP
// inside a rolling window.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	logger *zap.Logger
}

func NewLimiter(store Store, cfg config.RateLimitConfig, logger *zap.Logger) *Limiter {
	limit := cfg.SubmissionLimit
	if limit <= 0 {
		limit = 5
	}
	windowMinutes := cfg.WindowMinutes
	if windowMinutes <= 0 {
		windowMinutes = 1440
	}
	return &Limiter{
		store:  store,
		limit:  limit,
		window: time.Duration(windowMinutes) * time.Minute,
		logger: logger,
	}
}

func (l *Limiter) Limit() int { return l.limit }

func (l *Limiter) WindowMinutes() int { return int(l.window / time.Minute) }

// Allow reserves one hit for the submission. The check and the record
// happen in a single store operation, so a concurrent burst cannot
// slip past the limit between counting and recording. On success the
// returned status carries the remaining allowance after this hit.
func (l *Limiter) Allow(ctx context.Context, contactHash, ip string) (*models.RateLimitStatus, error) {
	allowed, counts, err := l.store.Reserve(ctx, contactHash, ip, l.limit, l.window)
	if err != nil {
		return nil, fmt.Errorf("rate limit reserve: %w", err)
	}

	used := counts.ByContact
	if counts.ByIP > used {
		used = counts.ByIP
	}

	if !allowed {
		l.logger.Warn("Submission rate limited",
			zap.Int("by_contact", counts.ByContact),
			zap.Int("by_ip", counts.ByIP),
			zap.Int("limit", l.limit))
		return nil, ErrRateLimited
	}

	remaining := l.limit - used
	if remaining < 0 {
		remaining = 0
	}
	return &models.RateLimitStatus{
		Limit:         l.limit,
		Remaining:     remaining,
		WindowMinutes: l.WindowMinutes(),
	}, nil
}

// PruneStale drops ledger entries older than the window. Reserve
// prunes its own keys; this is for the periodic sweep.
func (l *Limiter) PruneStale(ctx context.Context) error {
	return l.store.Prune(ctx, l.window)
}
