package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSlot stores the payload under a single redis key without expiry.
type RedisSlot struct {
	client *redis.Client
	key    string
}

// NewRedisSlot connects to addr; the key is "<service>:slot:<name>".
func NewRedisSlot(addr, service, name string) *RedisSlot {
	return &RedisSlot{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		key:    SlotKey(service, name),
	}
}

// SlotKey builds the namespaced redis key for a slot.
func SlotKey(service, name string) string {
	return fmt.Sprintf("%s:slot:%s", service, name)
}

func (r *RedisSlot) Read(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get %q: %w", r.key, err)
	}
	return data, nil
}

func (r *RedisSlot) Write(ctx context.Context, data []byte) error {
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: set %q: %w", r.key, err)
	}
	return nil
}

func (r *RedisSlot) Close() error {
	return r.client.Close()
}
