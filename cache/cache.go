package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "md2txt:"

type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // 0 表示永不过期
}

// Cache stores conversion results keyed by a hash of the input.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to redis and checks the connection with PING.
func New(ctx context.Context, opts Options) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis %s: %w", opts.Addr, err)
	}
	return &Cache{client: client, ttl: opts.TTL}, nil
}

// Key 根据输入内容计算缓存键
func Key(input string) string {
	sum := sha1.Sum([]byte(input))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached output for input. A miss is reported as ok == false with a nil error.
func (c *Cache) Get(ctx context.Context, input string) (string, bool, error) {
	val, err := c.client.Get(ctx, Key(input)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *Cache) Set(ctx context.Context, input string, output string) error {
	return c.client.Set(ctx, Key(input), output, c.ttl).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
