package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// AdmitRateLimit throttles admission attempts per (tenant, client IP) to
// damp reconnect storms from clients that keep getting rejected. Disabled
// when perMinute is zero.
func AdmitRateLimit(perMinute, burst int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst <= 0 {
		burst = 1
	}

	limiters := newLimiterPool(rate.Every(time.Minute/time.Duration(perMinute)), burst)

	return func(c *gin.Context) {
		key := c.GetString("tenant_id") + "/" + c.ClientIP()
		if !limiters.get(key).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many admission attempts"})
			c.Abort()
			return
		}
		c.Next()
	}
}

type limiterPool struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newLimiterPool(limit rate.Limit, burst int) *limiterPool {
	return &limiterPool{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.limiters[key]
	if !ok {
		l = rate.NewLimiter(p.limit, p.burst)
		p.limiters[key] = l
	}
	return l
}
