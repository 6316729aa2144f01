package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Fixed-window per-IP limiter. Scraping plus AI enrichment makes every search
// expensive, so the default window is tight.

type rateLimiter struct {
	requests map[string]*clientRequest
	mu       sync.Mutex
	limit    int
	window   time.Duration
}

type clientRequest struct {
	count     int
	resetTime time.Time
}

// RateLimiter returns middleware allowing limit requests per window per
// client IP. Expired windows are swept in the background.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	rl := &rateLimiter{
		requests: make(map[string]*clientRequest),
		limit:    limit,
		window:   window,
	}

	go func() {
		ticker := time.NewTicker(window)
		defer ticker.Stop()
		for range ticker.C {
			rl.cleanup()
		}
	}()

	return func(c *gin.Context) {
		ip := c.ClientIP()

		// Searches run for tens of seconds, so the lock must not be held
		// past admission.
		rl.mu.Lock()
		client, exists := rl.requests[ip]
		now := time.Now()

		if !exists || now.After(client.resetTime) {
			rl.requests[ip] = &clientRequest{
				count:     1,
				resetTime: now.Add(rl.window),
			}
			rl.mu.Unlock()
			c.Next()
			return
		}

		if client.count >= rl.limit {
			retryAfter := client.resetTime.Sub(now).Seconds()
			rl.mu.Unlock()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": retryAfter,
			})
			c.Abort()
			return
		}

		client.count++
		rl.mu.Unlock()
		c.Next()
	}
}

func (rl *rateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for ip, client := range rl.requests {
		if now.After(client.resetTime) {
			delete(rl.requests, ip)
		}
	}
}
