package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const ConsultantsTTL = 5 * time.Minute

const (
	KeyConsultantList   = "consultants:all"
	keyConsultantPrefix = "consultant:"
)

func ConsultantKey(id string) string { return keyConsultantPrefix + id }

// Cache stores JSON encoded values under string keys.
type Cache interface {
	// Get decodes the value at key into dst, reporting whether it was present.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type Redis struct {
	client *redis.Client
}

// NewRedis connects to url (redis://...) and pings the server.
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		// stale shape after a deploy; treat as a miss
		return false, nil
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *Redis) Close() error { return r.client.Close() }

// Nop never stores anything; used when no Redis is configured.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, any, time.Duration) error { return nil }
func (Nop) Delete(context.Context, ...string) error { return nil }
