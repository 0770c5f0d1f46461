// ratelimit_redis.go provides the Redis-backed rate limiter used when the
// backend runs as multiple replicas behind a load balancer. The in-process
// limiter in ratelimit.go keeps a per-replica token bucket, so a client
// hitting N replicas effectively gets N times the configured budget; backing
// the bucket with Redis (GCRA via redis_rate) makes the limit global.
//
// Failure mode: if Redis is unreachable the request is allowed through with a
// warning. Rate limiting is protective, not load-bearing, and a Redis outage
// must not take down order picking.
package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter enforces a shared per-client limit across all replicas.
type RedisRateLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
}

// NewRedisRateLimiter creates a limiter over an existing Redis client. The
// same RateLimitConfig shape as the in-memory limiter is accepted so the two
// are drop-in interchangeable at router construction time.
func NewRedisRateLimiter(rdb *redis.Client, config RateLimitConfig) *RedisRateLimiter {
	return &RedisRateLimiter{
		limiter: redis_rate.NewLimiter(rdb),
		limit: redis_rate.Limit{
			Rate:   config.RequestsPerMinute,
			Burst:  config.BurstSize,
			Period: time.Minute,
		},
	}
}

// RedisRateLimitMiddleware creates a Gin middleware backed by the shared
// Redis bucket. Key derivation matches the in-memory limiter: user_id when
// authenticated, client IP otherwise.
func RedisRateLimitMiddleware(limiter *RedisRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := getRateLimitKey(c)

		res, err := limiter.limiter.Allow(c.Request.Context(), key, limiter.limit)
		if err != nil {
			slog.Warn("redis rate limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit.Rate))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if res.Allowed == 0 {
			retryAfter := int(res.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}
