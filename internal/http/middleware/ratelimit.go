package middleware

import (
	"net/http"
	"strconv"
	"time"

	"diamond_tma/internal/logger"
	"diamond_tma/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimit blocks callers that exceed max requests per sliding window.
// Authenticated callers are keyed by telegram id, others by client IP.
// A guard error lets the request through.
func RateLimit(guard ratelimit.Guard, scope string, max int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := scope + ":" + clientKey(c)

		ok, err := guard.Allow(c.Request.Context(), key, max, window)
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("rate limiter unavailable", "error", err, "scope", scope)
			c.Header("X-RateLimit-Error", "guard-error")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		if !ok {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "too many requests, please try again later",
			})
			return
		}

		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}

func clientKey(c *gin.Context) string {
	if id, ok := TelegramID(c); ok {
		return "user:" + strconv.FormatInt(id, 10)
	}
	return "ip:" + c.ClientIP()
}
