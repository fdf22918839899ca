package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"repeater-directory/internal/config"
	"repeater-directory/internal/models"
)

// memStore is an in-memory Store with the same reserve semantics as
// the Redis script: count both keys, reject when either is at the
// limit, otherwise record on both.
type memStore struct {
	byContact  map[string]int
	byIP       map[string]int
	reserveErr error
	pruned     int
}

func newMemStore() *memStore {
	return &memStore{byContact: map[string]int{}, byIP: map[string]int{}}
}

func (m *memStore) Prune(ctx context.Context, window time.Duration) error {
	m.pruned++
	return nil
}

func (m *memStore) Count(ctx context.Context, contactHash, ip string, window time.Duration) (models.RateLimitCounts, error) {
	return models.RateLimitCounts{ByContact: m.byContact[contactHash], ByIP: m.byIP[ip]}, nil
}

func (m *memStore) RecordHit(ctx context.Context, contactHash, ip string, window time.Duration) error {
	m.byContact[contactHash]++
	m.byIP[ip]++
	return nil
}

func (m *memStore) Reserve(ctx context.Context, contactHash, ip string, limit int, window time.Duration) (bool, models.RateLimitCounts, error) {
	if m.reserveErr != nil {
		return false, models.RateLimitCounts{}, m.reserveErr
	}
	counts := models.RateLimitCounts{ByContact: m.byContact[contactHash], ByIP: m.byIP[ip]}
	if counts.ByContact >= limit || counts.ByIP >= limit {
		return false, counts, nil
	}
	m.byContact[contactHash]++
	m.byIP[ip]++
	counts.ByContact++
	counts.ByIP++
	return true, counts, nil
}

func testLimiter(store Store, limit, windowMinutes int) *Limiter {
	return NewLimiter(store, config.RateLimitConfig{
		SubmissionLimit: limit,
		WindowMinutes:   windowMinutes,
	}, zap.NewNop())
}

func TestLimiterAllowsUpToLimit(t *testing.T) {
	store := newMemStore()
	l := testLimiter(store, 5, 60)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		status, err := l.Allow(ctx, "hash-a", "1.2.3.4")
		require.NoError(t, err, "submission %d", i+1)
		assert.Equal(t, 5, status.Limit)
		assert.Equal(t, 5-(i+1), status.Remaining)
		assert.Equal(t, 60, status.WindowMinutes)
	}

	_, err := l.Allow(ctx, "hash-a", "1.2.3.4")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestLimiterCountsContactAndIPIndependently(t *testing.T) {
	store := newMemStore()
	l := testLimiter(store, 2, 60)
	ctx := context.Background()

	// Same contact from two addresses: the contact key still fills up.
	_, err := l.Allow(ctx, "hash-a", "1.1.1.1")
	require.NoError(t, err)
	_, err = l.Allow(ctx, "hash-a", "2.2.2.2")
	require.NoError(t, err)
	_, err = l.Allow(ctx, "hash-a", "3.3.3.3")
	assert.ErrorIs(t, err, ErrRateLimited)

	// Same address with fresh contacts: the IP key fills up.
	store = newMemStore()
	l = testLimiter(store, 2, 60)
	_, err = l.Allow(ctx, "hash-b", "9.9.9.9")
	require.NoError(t, err)
	_, err = l.Allow(ctx, "hash-c", "9.9.9.9")
	require.NoError(t, err)
	_, err = l.Allow(ctx, "hash-d", "9.9.9.9")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestLimiterRemainingUsesBusierKey(t *testing.T) {
	store := newMemStore()
	store.byIP["5.5.5.5"] = 3
	l := testLimiter(store, 5, 60)

	status, err := l.Allow(context.Background(), "fresh-hash", "5.5.5.5")
	require.NoError(t, err)
	// Contact used 1, IP used 4: remaining follows the busier key.
	assert.Equal(t, 1, status.Remaining)
}

func TestLimiterDefaults(t *testing.T) {
	l := testLimiter(newMemStore(), 0, 0)
	assert.Equal(t, 5, l.Limit())
	assert.Equal(t, 1440, l.WindowMinutes())
}

func TestLimiterStoreErrorBlocksSubmission(t *testing.T) {
	store := newMemStore()
	store.reserveErr = errors.New("redis down")
	l := testLimiter(store, 5, 60)

	_, err := l.Allow(context.Background(), "hash-a", "1.2.3.4")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimited)
}

func TestPruneStale(t *testing.T) {
	store := newMemStore()
	l := testLimiter(store, 5, 60)
	require.NoError(t, l.PruneStale(context.Background()))
	assert.Equal(t, 1, store.pruned)
}
