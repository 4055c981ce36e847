// Package dedupe is an optional redis fast path in front of the processed-event
// log. The database stays authoritative; every method is a no-op on a nil Cache.
package dedupe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/stripesync/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyProcessed = "stripesync:webhook:processed:%s"
	keyInFlight  = "stripesync:webhook:inflight:%s"

	inFlightTTL = 30 * time.Second
)

// releaseInFlight drops the in-flight key only while it still carries the
// token of the delivery that set it.
var releaseInFlight = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient returns nil when REDIS_ADDR is unset.
func NewClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.Redis.Addr == "" {
		log.Named("webhook.dedupe").Info("redis not configured; dedupe fast path disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

func New(client *redis.Client, cfg config.Config) *Cache {
	return newCache(client, cfg.Webhook.DedupeTTL)
}

func newCache(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.client != nil
}

// Seen reports whether the event id was recently processed.
func (c *Cache) Seen(ctx context.Context, eventID string) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}
	n, err := c.client.Exists(ctx, fmt.Sprintf(keyProcessed, eventID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Cache) Remember(ctx context.Context, eventID string) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Set(ctx, fmt.Sprintf(keyProcessed, eventID), 1, c.ttl).Err()
}

// Acquire takes the in-flight lock for an event. The returned release func
// is always safe to call. ok is false when another delivery holds the lock.
func (c *Cache) Acquire(ctx context.Context, eventID string) (release func(context.Context), ok bool, err error) {
	noop := func(context.Context) {}
	if !c.Enabled() {
		return noop, true, nil
	}
	key := fmt.Sprintf(keyInFlight, eventID)
	token := uuid.NewString()
	ok, err = c.client.SetNX(ctx, key, token, inFlightTTL).Result()
	if err != nil {
		return noop, false, err
	}
	if !ok {
		return noop, false, nil
	}
	return func(ctx context.Context) {
		_ = releaseInFlight.Run(ctx, c.client, []string{key}, token).Err()
	}, true, nil
}

var ErrCacheDisabled = errors.New("dedupe_cache_disabled")

// Ping checks connectivity for health reporting.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return ErrCacheDisabled
	}
	return c.client.Ping(ctx).Err()
}
