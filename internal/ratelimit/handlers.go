package ratelimit

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HandleRateLimitStatus reports the limits applied to the requesting IP
func (rl *RateLimiter) HandleRateLimitStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ip": c.ClientIP(),
			"limits": gin.H{
				"ip_per_minute": gin.H{
					"limit":  rl.config.IPLimitPerMin,
					"burst":  rl.config.IPLimitPerMin * rl.config.BurstMultiplier,
					"period": "1 minute",
				},
			},
			"redis_enabled": rl.redisClient.IsEnabled(),
			"timestamp":     time.Now().UTC().Format(time.RFC3339),
		})
	}
}
