package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var errNilRedis = errors.New("redis client is nil")

// RedisConfig holds connection settings. Zero values take the defaults below.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	DialTimeout time.Duration
	IOTimeout   time.Duration
	PoolSize    int
	PingTimeout time.Duration
}

func (c RedisConfig) withDefaults() RedisConfig {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 3 * time.Second
	}
	// Webhook handlers sit on this path; a slow Redis must not stall Twilio.
	if c.IOTimeout <= 0 {
		c.IOTimeout = 500 * time.Millisecond
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 20
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = 2 * time.Second
	}
	return c
}

// OpenRedis connects and PINGs once so startup fails fast on a bad address.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	cfg = cfg.withDefaults()

	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		DialTimeout:     cfg.DialTimeout,
		ReadTimeout:     cfg.IOTimeout,
		WriteTimeout:    cfg.IOTimeout,
		PoolSize:        cfg.PoolSize,
		ConnMaxIdleTime: 5 * time.Minute,
	})
	if err := RedisHealth(ctx, rdb, cfg.PingTimeout); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// acquireSlot increments the counter unless it would pass the limit.
// The TTL is refreshed on every successful acquire so a crashed process
// leaks slots for at most one window.
var acquireSlot = redis.NewScript(`
local n = tonumber(redis.call('GET', KEYS[1]) or '0')
if n >= tonumber(ARGV[1]) then
  return 0
end
redis.call('INCR', KEYS[1])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

var releaseSlot = redis.NewScript(`
if redis.call('DECR', KEYS[1]) <= 0 then
  redis.call('DEL', KEYS[1])
end
return 1
`)

// AcquireConcurrencyCap takes one of limit slots under key.
// It reports false when every slot is held.
func AcquireConcurrencyCap(ctx context.Context, rdb *redis.Client, key string, limit int, ttl time.Duration) (bool, error) {
	switch {
	case rdb == nil:
		return false, errNilRedis
	case key == "":
		return false, errors.New("key is required")
	case limit <= 0 || ttl <= 0:
		return false, fmt.Errorf("invalid cap: limit=%d ttl=%s", limit, ttl)
	}
	ok, err := acquireSlot.Run(ctx, rdb, []string{key}, limit, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return ok == 1, nil
}

// ReleaseConcurrencyCap gives back a slot taken by AcquireConcurrencyCap.
func ReleaseConcurrencyCap(ctx context.Context, rdb *redis.Client, key string) error {
	if rdb == nil {
		return errNilRedis
	}
	if key == "" {
		return errors.New("key is required")
	}
	return releaseSlot.Run(ctx, rdb, []string{key}).Err()
}

// MarkOnce records key with a TTL and reports whether this caller was first.
// A false result means the key was already marked within the TTL window.
func MarkOnce(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (bool, error) {
	if rdb == nil {
		return false, errNilRedis
	}
	if key == "" || ttl <= 0 {
		return false, fmt.Errorf("invalid mark: key=%q ttl=%s", key, ttl)
	}
	return rdb.SetNX(ctx, key, 1, ttl).Result()
}

// RedisHealth pings redis with a timeout.
func RedisHealth(ctx context.Context, rdb *redis.Client, timeout time.Duration) error {
	if rdb == nil {
		return errNilRedis
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return rdb.Ping(pingCtx).Err()
}
