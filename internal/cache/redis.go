package cache

import (
	"fmt"
	"time"

	"github.com/go-redis/redis/v7"
)

const keyPrefix = "pesowise:advisory:"

// Redis is the AdvisoryCache used in production.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to the given address and pings it before returning.
func NewRedis(addr string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if _, err := client.Ping().Result(); err != nil {
		return nil, fmt.Errorf("NewRedis: ping %s: %w", addr, err)
	}
	return &Redis{client: client}, nil
}

func (r *Redis) Get(userID string) ([]byte, error) {
	val, err := r.client.Get(keyPrefix + userID).Result()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	return []byte(val), nil
}

func (r *Redis) Set(userID string, payload []byte, ttl time.Duration) error {
	if err := r.client.Set(keyPrefix+userID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (r *Redis) Invalidate(userID string) error {
	if _, err := r.client.Del(keyPrefix + userID).Result(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

// Close releases the redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

var _ AdvisoryCache = (*Redis)(nil)
