package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"repeater-directory/internal/client"
	"repeater-directory/internal/models"
	"repeater-directory/internal/util"
)

const (
	contactHitPrefix = "rl:contact:"
	ipHitPrefix      = "rl:ip:"
)

// reserveScript prunes both ledgers, counts them, and either rejects
// or records the hit, all inside one atomic script. Returns
// {allowed, contactCount, ipCount} with post-insert counts when
// allowed.
const reserveScript = `
local contact_key = KEYS[1]
local ip_key = KEYS[2]
local now = tonumber(ARGV[1])
local window_start = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', contact_key, '-inf', window_start)
local contact_count = redis.call('ZCARD', contact_key)

local ip_count = 0
if ip_key ~= '' then
    redis.call('ZREMRANGEBYSCORE', ip_key, '-inf', window_start)
    ip_count = redis.call('ZCARD', ip_key)
end

if contact_count >= limit or (ip_key ~= '' and ip_count >= limit) then
    return {0, contact_count, ip_count}
end

redis.call('ZADD', contact_key, now, member)
redis.call('EXPIRE', contact_key, ttl)
if ip_key ~= '' then
    redis.call('ZADD', ip_key, now, member)
    redis.call('EXPIRE', ip_key, ttl)
end
return {1, contact_count + 1, ip_count + 1}
`

// RateLimitStore keeps the submission hit ledger in Redis sorted sets,
// scored by hit time.
type RateLimitStore struct {
	client *client.RedisClient
	logger *zap.Logger
}

func NewRateLimitStore(client *client.RedisClient, logger *zap.Logger) *RateLimitStore {
	return &RateLimitStore{client: client, logger: logger}
}

func (s *RateLimitStore) Reserve(ctx context.Context, contactHash, ip string, limit int, window time.Duration) (bool, models.RateLimitCounts, error) {
	now := time.Now().UnixMilli()
	windowStart := now - window.Milliseconds()

	ipKey := ""
	if ip != "" {
		ipKey = ipHitPrefix + ip
	}

	result, err := s.client.Eval(ctx, reserveScript,
		[]string{contactHitPrefix + contactHash, ipKey},
		now, windowStart, limit, int(window.Seconds()), uuid.NewString(),
	)
	if err != nil {
		return false, models.RateLimitCounts{}, fmt.Errorf("reserve hit: %w", err)
	}

	vals, ok := result.([]interface{})
	if !ok || len(vals) != 3 {
		return false, models.RateLimitCounts{}, fmt.Errorf("reserve hit: unexpected script result")
	}

	counts := models.RateLimitCounts{
		ByContact: int(vals[1].(int64)),
		ByIP:      int(vals[2].(int64)),
	}
	return vals[0].(int64) == 1, counts, nil
}

func (s *RateLimitStore) Count(ctx context.Context, contactHash, ip string, window time.Duration) (models.RateLimitCounts, error) {
	min := strconv.FormatInt(time.Now().Add(-window).UnixMilli(), 10)

	var counts models.RateLimitCounts
	byContact, err := s.client.ZCount(ctx, contactHitPrefix+contactHash, min, "+inf")
	if err != nil {
		return counts, fmt.Errorf("count contact hits: %w", err)
	}
	counts.ByContact = int(byContact)

	if ip != "" {
		byIP, err := s.client.ZCount(ctx, ipHitPrefix+ip, min, "+inf")
		if err != nil {
			return counts, fmt.Errorf("count ip hits: %w", err)
		}
		counts.ByIP = int(byIP)
	}
	return counts, nil
}

func (s *RateLimitStore) RecordHit(ctx context.Context, contactHash, ip string, window time.Duration) error {
	now := time.Now()
	member := uuid.NewString()

	keys := []string{contactHitPrefix + contactHash}
	if ip != "" {
		keys = append(keys, ipHitPrefix+ip)
	}
	for _, key := range keys {
		if err := s.client.ZAdd(ctx, key, goredis.Z{
			Score:  float64(now.UnixMilli()),
			Member: member,
		}); err != nil {
			return fmt.Errorf("record hit: %w", err)
		}
		if err := s.client.Expire(ctx, key, window); err != nil {
			return fmt.Errorf("record hit: %w", err)
		}
	}
	return nil
}

// Prune sweeps stale entries out of every ledger key. Keys also carry
// a TTL, so this mostly matters for ledgers kept alive by fresh hits.
func (s *RateLimitStore) Prune(ctx context.Context, window time.Duration) error {
	max := strconv.FormatInt(time.Now().Add(-window).UnixMilli(), 10)

	for _, pattern := range []string{contactHitPrefix + "*", ipHitPrefix + "*"} {
		keys, err := s.client.Scan(ctx, 0, pattern, 500)
		if err != nil {
			return fmt.Errorf("prune scan: %w", err)
		}
		for _, key := range keys {
			if _, err := s.client.ZRemRangeByScore(ctx, key, "-inf", max); err != nil {
				util.Warn("Failed to prune rate limit key",
					zap.String("key", key), zap.Error(err))
			}
		}
	}
	return nil
}
