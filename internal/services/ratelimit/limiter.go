package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/phambaophuc/resizo/internal/models"
	"github.com/redis/go-redis/v9"
)

const KeyPrefix = "ratelimit:"

// Rule is the quota of one bucket.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Limiter is a sliding-window log kept in a Redis sorted set per
// (bucket, identifier). Scores are request timestamps in milliseconds.
type Limiter struct {
	client *redis.Client
	rules  map[string]Rule
	now    func() time.Time
}

func NewLimiter(client *redis.Client, rules map[string]Rule) *Limiter {
	return &Limiter{
		client: client,
		rules:  rules,
		now:    time.Now,
	}
}

// Allow records one request for identifier in bucket and reports whether it
// fits the quota. Denied requests are not counted against the window.
func (l *Limiter) Allow(ctx context.Context, bucket, identifier string) (models.RateLimitDecision, error) {
	rule, ok := l.rules[bucket]
	if !ok {
		return models.RateLimitDecision{}, fmt.Errorf("unknown rate limit bucket %q", bucket)
	}

	now := l.now()
	key := KeyPrefix + bucket + ":" + identifier
	windowStart := now.Add(-rule.Window).UnixMilli()
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()

	var card *redis.IntCmd
	var oldest *redis.ZSliceCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(windowStart, 10))
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: member})
		card = pipe.ZCard(ctx, key)
		oldest = pipe.ZRangeWithScores(ctx, key, 0, 0)
		pipe.PExpire(ctx, key, rule.Window)
		return nil
	})
	if err != nil {
		return models.RateLimitDecision{}, fmt.Errorf("rate limit store: %w", err)
	}

	count := int(card.Val())
	decision := models.RateLimitDecision{
		Allowed:   count <= rule.Limit,
		Limit:     rule.Limit,
		Remaining: max(0, rule.Limit-count),
		Reset:     now.Add(rule.Window),
	}
	if entries := oldest.Val(); len(entries) > 0 {
		decision.Reset = time.UnixMilli(int64(entries[0].Score)).Add(rule.Window)
	}

	if !decision.Allowed {
		if err := l.client.ZRem(ctx, key, member).Err(); err != nil {
			return models.RateLimitDecision{}, fmt.Errorf("rate limit store: %w", err)
		}
	}

	return decision, nil
}

