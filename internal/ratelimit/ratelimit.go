// Package ratelimit keeps a token bucket per key (client IP, dialed number).
package ratelimit

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"call-assistant/internal/metrics"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc picks the bucket for a request. An empty key is not limited.
type KeyFunc func(c *gin.Context) string

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is an in-process keyed limiter. Buckets idle longer than the
// idle window are dropped on the next sweep.
type Limiter struct {
	name  string
	limit rate.Limit
	burst int
	idle  time.Duration

	mu        sync.Mutex
	buckets   map[string]*entry
	lastSweep time.Time
	now       func() time.Time
}

func New(name string, rps float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		name:    name,
		limit:   rate.Limit(rps),
		burst:   burst,
		idle:    10 * time.Minute,
		buckets: make(map[string]*entry),
		now:     time.Now,
	}
}

// Allow takes one token from key's bucket.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.idle {
		for k, e := range l.buckets {
			if now.Sub(e.lastSeen) > l.idle {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}
	e, ok := l.buckets[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Middleware answers 429 with a JSON error once key's bucket is empty.
func (l *Limiter) Middleware(key KeyFunc) gin.HandlerFunc {
	return l.middleware(key, func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	})
}

// WebhookMiddleware answers 200 with a busy <Reject> so Twilio ends the
// call instead of retrying.
func (l *Limiter) WebhookMiddleware(key KeyFunc) gin.HandlerFunc {
	return l.middleware(key, func(c *gin.Context) {
		c.Data(http.StatusOK, "application/xml",
			[]byte(`<?xml version="1.0" encoding="UTF-8"?>`+"\n"+`<Response><Reject reason="busy"></Reject></Response>`))
		c.Abort()
	})
}

func (l *Limiter) middleware(key KeyFunc, reject func(c *gin.Context)) gin.HandlerFunc {
	return func(c *gin.Context) {
		k := key(c)
		if k == "" || l.Allow(k) {
			c.Next()
			return
		}
		metrics.RateLimitedTotal.WithLabelValues(l.name).Inc()
		reject(c)
	}
}

func ByClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// ByDialedNumber keys Twilio webhooks on the called number (To).
func ByDialedNumber(c *gin.Context) string {
	return strings.TrimSpace(c.PostForm("To"))
}
