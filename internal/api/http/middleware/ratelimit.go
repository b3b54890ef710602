package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	rate     rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per client, with bursts up to perMinute.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &RateLimiter{
		limiters: make(map[string]*visitor),
		rate:     rate.Limit(float64(perMinute) / 60),
		burst:    perMinute,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	v, ok := l.limiters[key]
	if !ok {
		l.evict(now)
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// evict drops visitors that have been idle long enough for their bucket to be full again.
func (l *RateLimiter) evict(now time.Time) {
	for k, v := range l.limiters {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.limiters, k)
		}
	}
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
