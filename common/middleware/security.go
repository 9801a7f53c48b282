package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// SecurityHeaders adds security-related headers to all responses
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	ips       map[string]*limiterEntry
	mu        sync.Mutex
	rate      rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter creates a new rate limiter. Entries idle for longer than ttl are
// dropped on access, at most once per ttl.
func NewRateLimiter(r rate.Limit, b int, ttl time.Duration) *RateLimiter {
	return &RateLimiter{
		ips:       make(map[string]*limiterEntry),
		rate:      r,
		burst:     b,
		ttl:       ttl,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// GetLimiter returns the rate limiter for the given IP
func (rl *RateLimiter) GetLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.ttl {
		for key, e := range rl.ips {
			if now.Sub(e.lastSeen) > rl.ttl {
				delete(rl.ips, key)
			}
		}
		rl.lastSweep = now
	}

	entry, exists := rl.ips[ip]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.ips[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// Middleware rejects requests over the per-IP budget with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.GetLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			return
		}
		c.Next()
	}
}

// RateLimitMiddleware allows perMinute requests per client IP with the given burst.
func RateLimitMiddleware(perMinute, burst int) gin.HandlerFunc {
	limiter := NewRateLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst, 5*time.Minute)
	return limiter.Middleware()
}

// CORSMiddleware creates a CORS middleware. A single "*" entry allows any
// origin without credentials; entries without an http(s) scheme are ignored.
func CORSMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	for _, o := range origins {
		o = strings.TrimSpace(strings.TrimSuffix(o, "/"))
		if o == "*" {
			cfg.AllowAllOrigins = true
			cfg.AllowCredentials = false
			cfg.AllowOrigins = nil
			return cors.New(cfg)
		}
		if strings.HasPrefix(o, "http://") || strings.HasPrefix(o, "https://") {
			cfg.AllowOrigins = append(cfg.AllowOrigins, o)
		}
	}
	if len(cfg.AllowOrigins) == 0 {
		cfg.AllowOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	return cors.New(cfg)
}

// Timeout bounds the request context.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
