package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/monocle-dev/crewboard/internal/apperr"
	"github.com/monocle-dev/crewboard/internal/auth"
	"github.com/monocle-dev/crewboard/internal/metrics"
	"github.com/monocle-dev/crewboard/internal/types"
)

// RateLimiter decides whether the client identified by key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryRateLimiter is a per-key token bucket held in process memory.
type MemoryRateLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryRateLimiter(requests int, window time.Duration) *MemoryRateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &MemoryRateLimiter{
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    requests,
		ttl:      3 * window,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

func (rl *MemoryRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > rl.ttl {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) > rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.lastSweep = now
	}

	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1), nil
}

// RedisRateLimiter counts requests per fixed window in Redis so the limit
// holds across replicas.
type RedisRateLimiter struct {
	client   *redis.Client
	requests int
	window   time.Duration
	prefix   string
	timeout  time.Duration
}

func NewRedisRateLimiter(client *redis.Client, requests int, window time.Duration) *RedisRateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RedisRateLimiter{
		client:   client,
		requests: requests,
		window:   window,
		prefix:   "crewboard:ratelimit:",
		timeout:  250 * time.Millisecond,
	}
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if rl.requests <= 0 {
		return true, nil
	}

	ctx, cancel := context.WithTimeout(ctx, rl.timeout)
	defer cancel()

	redisKey := rl.prefix + key

	counter, err := rl.client.Incr(ctx, redisKey).Result()

	if err != nil {
		return true, fmt.Errorf("rate limit incr: %w", err)
	}
	if counter == 1 {
		if err := rl.client.Expire(ctx, redisKey, rl.window).Err(); err != nil {
			return true, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	return counter <= int64(rl.requests), nil
}

// RateLimit rejects over-limit clients with 429. Authenticated requests are
// keyed by user, anonymous ones by client IP. Limiter errors fail open.
func RateLimit(limiter RateLimiter, m *metrics.Metrics, logger *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := "ip:" + ctx.ClientIP()
		if value, exists := ctx.Get(types.ContextUserKey); exists {
			if identity, ok := value.(auth.Identity); ok {
				key = "user:" + strconv.FormatUint(uint64(identity.UserID), 10)
			}
		}

		allowed, err := limiter.Allow(ctx.Request.Context(), key)

		if err != nil {
			logger.Warn("rate limiter unavailable", "error", err)
			ctx.Header("X-RateLimit-Error", "true")
			ctx.Next()
			return
		}

		if !allowed {
			m.RateLimitHit(ctx.FullPath())
			ctx.AbortWithStatusJSON(apperr.HTTPStatus(apperr.KindRateLimited), gin.H{
				"error": "Rate limit exceeded",
				"kind":  apperr.KindRateLimited,
			})
			return
		}

		ctx.Next()
	}
}
