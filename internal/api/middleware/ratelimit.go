package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jstittsworth/bet-analytics/pkg/config"
	"github.com/jstittsworth/bet-analytics/pkg/utils"
)

const limiterIdleTTL = time.Hour

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-client token bucket for one route class
type RateLimiter struct {
	class    string
	rule     config.RateLimitRule
	mu       sync.Mutex
	visitors map[string]*visitor
	lastGC   time.Time
	now      func() time.Time
}

// NewRateLimiter allows rule.Requests per rule.Window per client, bursting up to rule.Requests
func NewRateLimiter(class string, rule config.RateLimitRule) *RateLimiter {
	return &RateLimiter{
		class:    class,
		rule:     rule,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastGC) > limiterIdleTTL {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) > limiterIdleTTL {
				delete(rl.visitors, k)
			}
		}
		rl.lastGC = now
	}

	v, ok := rl.visitors[key]
	if !ok {
		every := rl.rule.Window / time.Duration(rl.rule.Requests)
		v = &visitor{limiter: rate.NewLimiter(rate.Every(every), rl.rule.Requests)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Handler enforces the limit keyed by authenticated user or client IP
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID, ok := c.Get("user_id"); ok {
			if id, ok := userID.(string); ok && id != "" {
				key = "user:" + id
			}
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.rule.Requests))
		c.Header("X-RateLimit-Class", rl.class)
		if !rl.limiterFor(key).AllowN(rl.now(), 1) {
			c.Header("Retry-After", strconv.Itoa(int(rl.rule.Window/time.Duration(rl.rule.Requests)/time.Second)+1))
			utils.SendTooManyRequests(c, "rate limit exceeded for "+rl.class+" requests")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RateLimit builds the handler for a configured route class
func RateLimit(cfg *config.Config, class string) (gin.HandlerFunc, error) {
	rule, err := cfg.RateLimitRule(class)
	if err != nil {
		return nil, err
	}
	return NewRateLimiter(class, rule).Handler(), nil
}
