package config

import "time"

// RateLimitConfig controls the per-user booking token bucket. Tokens refill
// continuously: RefillTokens are added evenly over each RefillInterval, never
// exceeding Capacity.
type RateLimitConfig struct {
	Enabled        bool
	Backend        string // "local" (process memory) or "redis"
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration // expiry of idle Redis buckets
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables. Defaults give each user
// five booking attempts per minute.
func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Backend:        envStr("RATE_LIMIT_BACKEND", "local"),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 5),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 5),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Minute),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl:booking"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Minute
	}
	// an idle bucket must outlive a full refill or users would get a fresh one early
	minTTL := 2 * def.RefillInterval
	if def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}

// TokensPerSecond is the continuous refill rate.
func (c RateLimitConfig) TokensPerSecond() float64 {
	return float64(c.RefillTokens) / c.RefillInterval.Seconds()
}
