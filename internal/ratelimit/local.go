package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/iliyamo/event-ticket-booking/internal/config"
)

// Local keeps one token bucket per user in process memory. Buckets are
// created lazily and live for the lifetime of the process.
type Local struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[uint64]*rate.Limiter

	now func() time.Time
}

// NewLocal builds a process-local limiter from cfg.
func NewLocal(cfg config.RateLimitConfig) *Local {
	return &Local{
		limit:   rate.Limit(cfg.TokensPerSecond()),
		burst:   cfg.Capacity,
		buckets: make(map[uint64]*rate.Limiter),
		now:     time.Now,
	}
}

// WithClock swaps the time source. Tests use it to step time manually.
func (l *Local) WithClock(now func() time.Time) *Local {
	l.now = now
	return l
}

func (l *Local) bucket(userID uint64) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[userID]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[userID] = b
	}
	return b
}

// TryConsume implements Limiter.
func (l *Local) TryConsume(_ context.Context, userID uint64) Decision {
	b := l.bucket(userID)
	now := l.now()
	if b.AllowN(now, 1) {
		return Decision{Allowed: true, Remaining: int(math.Floor(b.TokensAt(now)))}
	}
	tokens := b.TokensAt(now)
	wait := time.Duration((1 - tokens) / float64(l.limit) * float64(time.Second))
	return Decision{Allowed: false, Remaining: 0, RetryAfter: wait}
}
