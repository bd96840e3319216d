package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lmartins/quizchain/internal/metrics"
	"github.com/lmartins/quizchain/internal/ratelimit"
	"github.com/lmartins/quizchain/pkg/config"
)

// RateLimitSolve throttles chain-run starts per client address. Solve runs
// hold a browser tab and a large time budget, so a single noisy client must
// not be able to queue them unboundedly.
func RateLimitSolve(lim ratelimit.Limiter, cfg *config.Config) gin.HandlerFunc {
	bcfg := cfg.RateLimit.Solve
	bucket := ratelimit.Bucket{RequestsPerMinute: bcfg.RequestsPerMinute, BurstSize: bcfg.BurstSize}
	return func(c *gin.Context) {
		if lim == nil || !bucket.Enabled() {
			c.Next()
			return
		}

		dec, err := lim.Allow(c.Request.Context(), "solve", c.ClientIP(), bucket)
		if err != nil {
			// Fail open to avoid turning Redis hiccups into outages.
			slog.Default().Warn("rate limit check failed", "scope", "solve", "err", err)
			c.Next()
			return
		}
		if dec.Allowed {
			c.Next()
			return
		}

		retryAfterSeconds := int(dec.RetryAfter.Seconds())
		if retryAfterSeconds <= 0 {
			retryAfterSeconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		metrics.RateLimitHitsTotal.WithLabelValues("solve", "start_run").Inc()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":             "rate limit exceeded",
			"retryAfterSeconds": retryAfterSeconds,
		})
	}
}
