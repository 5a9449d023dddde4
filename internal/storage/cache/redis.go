package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"natgas-forecast/internal/observability"
	"natgas-forecast/internal/storage"
)

// RedisOptions configures the shared cache.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // 0 keeps entries until evicted
	Prefix   string
	Logger   *zap.Logger
}

// Redis caches objects in a shared Redis instance so several pipeline
// processes can reuse one another's reads. Redis failures degrade to the
// backing store and are only logged.
type Redis struct {
	next   storage.ObjectStore
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

var _ storage.ObjectStore = (*Redis)(nil)

// NewRedis connects to Redis and wraps next.
func NewRedis(ctx context.Context, next storage.ObjectStore, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "natgas:object:"
	}

	return &Redis{next: next, client: client, ttl: opts.TTL, prefix: prefix, logger: logger}, nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) key(folder, key string) string {
	return r.prefix + storage.ObjectPath(folder, key)
}

// Get serves folder/key from Redis, falling back to the backing store.
func (r *Redis) Get(ctx context.Context, folder, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(folder, key)).Bytes()
	switch {
	case err == nil:
		observability.RecordCacheLookup("redis", true)
		return data, nil
	case errors.Is(err, redis.Nil):
		observability.RecordCacheLookup("redis", false)
	default:
		r.logger.Warn("redis get failed", zap.String("key", r.key(folder, key)), zap.Error(err))
	}

	data, err = r.next.Get(ctx, folder, key)
	if err != nil {
		return nil, err
	}
	if err := r.client.Set(ctx, r.key(folder, key), data, r.ttl).Err(); err != nil {
		r.logger.Warn("redis set failed", zap.String("key", r.key(folder, key)), zap.Error(err))
	}
	return data, nil
}

// Put writes through and refreshes the cached copy. A copy that cannot be
// refreshed is evicted so later reads fall through to the backing store.
func (r *Redis) Put(ctx context.Context, folder, key string, data []byte) error {
	k := r.key(folder, key)
	if err := r.next.Put(ctx, folder, key, data); err != nil {
		r.client.Del(ctx, k)
		return err
	}
	if err := r.client.Set(ctx, k, data, r.ttl).Err(); err != nil {
		r.logger.Warn("redis set failed", zap.String("key", k), zap.Error(err))
		if err := r.client.Del(ctx, k).Err(); err != nil {
			r.logger.Error("redis evict failed, cached copy may be stale", zap.String("key", k), zap.Error(err))
		}
	}
	return nil
}
