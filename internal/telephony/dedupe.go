package telephony

import (
	"context"
	"time"

	"call-assistant/pkg/utils"

	"github.com/redis/go-redis/v9"
)

const (
	dedupeKeyPrefix  = "callassistant:webhook:status:"
	DefaultDedupeTTL = 10 * time.Minute
)

// Deduper reports whether a status callback is seen for the first time.
type Deduper interface {
	First(ctx context.Context, callSID, status string) (bool, error)
}

type RedisDeduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDeduper(rdb *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = DefaultDedupeTTL
	}
	return &RedisDeduper{rdb: rdb, ttl: ttl}
}

func (d *RedisDeduper) First(ctx context.Context, callSID, status string) (bool, error) {
	return utils.MarkOnce(ctx, d.rdb, dedupeKeyPrefix+callSID+":"+status, d.ttl)
}

// NoopDeduper treats every delivery as new and leaves idempotency to the
// database rules.
type NoopDeduper struct{}

func (NoopDeduper) First(ctx context.Context, callSID, status string) (bool, error) {
	return true, nil
}
