package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/karlseguin/ccache/v3"
	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per client IP. Idle buckets expire
// from the cache.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	idle    time.Duration
	buckets *ccache.Cache[*rate.Limiter]
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idle:    10 * time.Minute,
		buckets: ccache.New(ccache.Configure[*rate.Limiter]().MaxSize(10000)),
	}
}

// Allow reports whether a request from key may proceed now.
func (l *RateLimiter) Allow(key string) bool {
	item, err := l.buckets.Fetch(key, l.idle, func() (*rate.Limiter, error) {
		return rate.NewLimiter(l.limit, l.burst), nil
	})
	if err != nil {
		return true
	}
	item.Extend(l.idle)
	return item.Value().Allow()
}

func (l *RateLimiter) Stop() {
	l.buckets.Stop()
}

// Middleware answers 429 once the client IP exhausts its bucket.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, try again shortly"})
			return
		}
		c.Next()
	}
}
