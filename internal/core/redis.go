// AngelaMos | 2026
// redis.go

package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/crm-backend/internal/config"
)

const (
	redisKeyPrefix   = "crm"
	redisPingTimeout = 3 * time.Second
)

// ErrRedisUnavailable is returned alongside a usable client when the first
// ping fails. The client keeps reconnecting in the background and rate
// limiting runs on the in-process fallback until it succeeds.
var ErrRedisUnavailable = errors.New("redis unavailable")

type Redis struct {
	Client *redis.Client
}

// Key namespaces a redis key, e.g. Key("ratelimit", "login") yields
// "crm:ratelimit:login".
func Key(parts ...string) string {
	return redisKeyPrefix + ":" + strings.Join(parts, ":")
}

// NewRedis builds the pool and pings once. A failed ping returns both the
// client and ErrRedisUnavailable; callers that require redis treat it as
// fatal, everyone else logs it and keeps going.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.PoolTimeout = 30 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute
	opts.ClientName = redisKeyPrefix

	r := &Redis{Client: redis.NewClient(opts)}

	if err := r.Ping(ctx); err != nil {
		return r, fmt.Errorf("%w: %w", ErrRedisUnavailable, err)
	}
	return r, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	return r.Client.Ping(ctx).Err()
}

func (r *Redis) PoolStats() *redis.PoolStats {
	return r.Client.PoolStats()
}

func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
