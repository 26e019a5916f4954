package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const limiterCacheSize = 10_000

// RateLimit limits each client IP to maxRequests per window. Redis is used
// when InitRedisRateLimiter succeeded so limits hold across instances;
// otherwise limits are per process. maxRequests <= 0 disables limiting.
func RateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	if maxRequests <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if redisClient != nil {
		return RedisRateLimit(maxRequests, window)
	}
	return MemoryRateLimit(maxRequests, window)
}

// MemoryRateLimit is a per-IP token bucket refilled at maxRequests per
// window, with idle clients evicted after two windows.
func MemoryRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	limiters := expirable.NewLRU[string, *rate.Limiter](limiterCacheSize, nil, 2*window)
	limit := refillRate(maxRequests, window)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter, ok := limiters.Get(ip)
		if !ok {
			limiter = rate.NewLimiter(limit, maxRequests)
			limiters.Add(ip, limiter)
		}

		reservation := limiter.Reserve()
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}

// refillRate is maxRequests per window in tokens per second. Dividing the
// duration instead would truncate to zero for sub-nanosecond intervals and
// rate.Every(0) means no limit at all.
func refillRate(maxRequests int, window time.Duration) rate.Limit {
	return rate.Limit(float64(maxRequests) / window.Seconds())
}
