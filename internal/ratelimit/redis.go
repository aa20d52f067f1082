package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/event-ticket-booking/internal/config"
)

// RedisScripter is the subset of a go-redis client needed to run the bucket
// script. *redis.Client satisfies it.
type RedisScripter = redis.Scripter

// bucketScript refills continuously by elapsed*refill/interval, capped at
// capacity, then takes one token if a whole token is present. It returns
// {allowed, floor(tokens), retry_after_ms}.
var bucketScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_ms')
	local tokens = tonumber(state[1])
	local last = tonumber(state[2])

	if tokens == nil or last == nil then
		tokens = capacity
		last = now_ms
	end

	local elapsed = math.max(0, now_ms - last)
	if elapsed > 0 then
		tokens = math.min(capacity, tokens + (elapsed * refill_tokens) / interval_ms)
		last = now_ms
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens >= 1 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.ceil(((1 - tokens) * interval_ms) / refill_tokens)
	end

	redis.call('HSET', key, 'tokens', tostring(tokens), 'last_ms', tostring(last))
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, math.floor(tokens), retry_after_ms }
`)

// Redis shares buckets between service instances. Each decision is a single
// script invocation, so refill and take are atomic per key. Redis errors
// fail open.
type Redis struct {
	cfg config.RateLimitConfig
	rdb RedisScripter
	log *zap.Logger
	now func() time.Time
}

// NewRedis builds a Redis-backed limiter.
func NewRedis(cfg config.RateLimitConfig, rdb RedisScripter, log *zap.Logger) *Redis {
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{cfg: cfg, rdb: rdb, log: log, now: time.Now}
}

// WithClock swaps the time source.
func (r *Redis) WithClock(now func() time.Time) *Redis {
	r.now = now
	return r
}

func (r *Redis) key(userID uint64) string {
	return strings.Join([]string{r.cfg.Prefix, "user", strconv.FormatUint(userID, 10)}, ":")
}

// TryConsume implements Limiter.
func (r *Redis) TryConsume(ctx context.Context, userID uint64) Decision {
	key := r.key(userID)
	args := []interface{}{
		r.now().UnixMilli(),
		r.cfg.Capacity,
		r.cfg.RefillTokens,
		r.cfg.RefillInterval.Milliseconds(),
		int64(r.cfg.TTL / time.Second),
	}
	vals, err := bucketScript.Run(ctx, r.rdb, []string{key}, args...).Result()
	if err != nil {
		r.log.Warn("rate limit script failed, allowing request", zap.String("key", key), zap.Error(err))
		return Decision{Allowed: true}
	}
	arr, ok := vals.([]interface{})
	if !ok || len(arr) != 3 {
		r.log.Warn("rate limit script returned unexpected result", zap.String("key", key), zap.String("result", fmt.Sprintf("%#v", vals)))
		return Decision{Allowed: true}
	}
	d := Decision{
		Allowed:    asInt64(arr[0]) == 1,
		Remaining:  int(asInt64(arr[1])),
		RetryAfter: time.Duration(asInt64(arr[2])) * time.Millisecond,
	}
	if r.cfg.Debug {
		r.log.Debug("rate limit decision", zap.String("key", key), zap.Bool("allowed", d.Allowed), zap.Int("remaining", d.Remaining))
	}
	return d
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
