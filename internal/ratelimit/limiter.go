// Package ratelimit implements the per-user booking token bucket.
//
// Every user owns a bucket of Capacity tokens that refills continuously at
// RefillTokens per RefillInterval, capped at Capacity. A booking attempt
// consumes one token; an empty bucket rejects the attempt without blocking.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/event-ticket-booking/internal/config"
)

// Decision is the outcome of one TryConsume call.
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is the wait until the next token when Allowed is false.
	RetryAfter time.Duration
}

// Limiter takes one token from a user's bucket. Implementations are safe for
// concurrent use and never block waiting for tokens.
type Limiter interface {
	TryConsume(ctx context.Context, userID uint64) Decision
}

// Unlimited always allows. Used when RATE_LIMIT_ENABLED=false.
type Unlimited struct{}

func (Unlimited) TryConsume(context.Context, uint64) Decision { return Decision{Allowed: true} }

// New selects the limiter backend from cfg. A redis backend without a live
// client degrades to the local bucket.
func New(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) Limiter {
	if log == nil {
		log = zap.NewNop()
	}
	if !cfg.Enabled {
		return Unlimited{}
	}
	if cfg.Backend == "redis" {
		if rdb != nil {
			return NewRedis(cfg, rdb, log)
		}
		log.Warn("rate limit backend redis requested but redis is unavailable, using local buckets")
	}
	return NewLocal(cfg)
}
