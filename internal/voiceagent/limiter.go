package voiceagent

import (
	"context"
	"sync"
	"time"

	"call-assistant/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// Limiter caps simultaneous AI sessions per business.
type Limiter interface {
	Acquire(ctx context.Context, businessID string) (bool, error)
	Release(ctx context.Context, businessID string) error
}

// RedisLimiter shares the cap across API replicas. The TTL bounds how long
// a leaked slot (crash before release) stays held.
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int
	ttl    time.Duration
	prefix string
}

func NewRedisLimiter(rdb *redis.Client, limit int, ttl time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: limit, ttl: ttl, prefix: "callassistant:ai_sessions:"}
}

func (l *RedisLimiter) Acquire(ctx context.Context, businessID string) (bool, error) {
	return utils.AcquireConcurrencyCap(ctx, l.rdb, l.prefix+businessID, l.limit, l.ttl)
}

func (l *RedisLimiter) Release(ctx context.Context, businessID string) error {
	return utils.ReleaseConcurrencyCap(ctx, l.rdb, l.prefix+businessID)
}

// LocalLimiter is the single-process cap used when Redis is not configured.
type LocalLimiter struct {
	mu     sync.Mutex
	limit  int
	active map[string]int
}

func NewLocalLimiter(limit int) *LocalLimiter {
	return &LocalLimiter{limit: limit, active: map[string]int{}}
}

func (l *LocalLimiter) Acquire(ctx context.Context, businessID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.limit > 0 && l.active[businessID] >= l.limit {
		return false, nil
	}
	l.active[businessID]++
	return true, nil
}

func (l *LocalLimiter) Release(ctx context.Context, businessID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active[businessID] <= 1 {
		delete(l.active, businessID)
		return nil
	}
	l.active[businessID]--
	return nil
}

// Active reports the sessions currently held for businessID.
func (l *LocalLimiter) Active(businessID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active[businessID]
}
