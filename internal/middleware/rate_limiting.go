package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ArchaicDeity/badge-to-cert/internal/config"
)

// RateLimitMiddleware limits request rate per IP. It requires a
// RateLimitManager to be set in the context by the application.
func RateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if shouldBypassRateLimit(c.Request) {
			c.Next()
			return
		}

		managerVal, exists := c.Get("rateLimitManager")
		if !exists {
			c.Next()
			return
		}

		manager, ok := managerVal.(*RateLimitManager)
		if !ok || manager == nil {
			c.Next()
			return
		}

		limiter := manager.GetVisitor(
			c.ClientIP(),
			cfg.RateLimitRequests,
			cfg.RateLimitWindow,
			cfg.RateLimitBurst,
		)

		if limiter == nil {
			c.Next()
			return
		}

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, please try again later",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// OperationRateLimitMiddleware applies a tighter per-IP limit to a single
// expensive operation, independent of the general limiter.
func OperationRateLimitMiddleware(operation string, requestsPerWindow, windowSeconds int) gin.HandlerFunc {
	return func(c *gin.Context) {
		managerVal, exists := c.Get("rateLimitManager")
		if !exists {
			c.Next()
			return
		}

		manager, ok := managerVal.(*RateLimitManager)
		if !ok || manager == nil {
			c.Next()
			return
		}

		limiter := manager.GetOperationLimiter(c.ClientIP(), operation, requestsPerWindow, windowSeconds)
		if limiter == nil {
			c.Next()
			return
		}

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded for this operation, please slow down",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// shouldBypassRateLimit exempts cheap read traffic so kiosks polling course
// material are not throttled.
func shouldBypassRateLimit(r *http.Request) bool {
	if r == nil || r.URL == nil {
		return false
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}

	path := r.URL.Path
	if path == "" {
		return false
	}

	if strings.HasPrefix(path, "/uploads/") {
		return true
	}

	switch path {
	case "/health", "/metrics", "/favicon.ico":
		return true
	}

	return false
}
