package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// OperationRateLimit limits a single expensive operation per client IP on
// top of the API-wide limit. Counters are kept per op so one operation
// cannot use up another's budget. maxOps <= 0 disables the limit.
func OperationRateLimit(op string, maxOps int, window time.Duration) gin.HandlerFunc {
	if maxOps <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if redisClient == nil {
		return MemoryRateLimit(maxOps, window)
	}

	label := "op:" + op
	return func(c *gin.Context) {
		if redisClient == nil {
			c.Next()
			return
		}

		key := "op_rl:" + op + ":" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + c.ClientIP()
		ctx := c.Request.Context()

		val, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			// fail-open
			c.Header("X-OpRateLimit-Error", "redis-error")
			c.Next()
			return
		}
		if val == 1 {
			redisClient.Expire(ctx, key, window)
		}

		c.Header("X-OpRateLimit-Limit", strconv.Itoa(maxOps))
		c.Header("X-OpRateLimit-Remaining", strconv.FormatInt(max(0, int64(maxOps)-val), 10))

		if val > int64(maxOps) {
			RLBlocked.WithLabelValues(label).Inc()
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       op + " rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues(label).Inc()
		c.Next()
	}
}
