// Package cache opens the Redis/Dragonfly client that backs learner streaks.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrEmptyURL = errors.New("cache URL is empty")

// Cache holds the shared client. Client satisfies redis.Cmdable and is what
// streak.NewRedisRepository expects.
type Cache struct {
	Client *redis.Client
}

type settings struct {
	dialTimeout time.Duration
	ioTimeout   time.Duration
	poolSize    int
}

// Option tunes the client before the first ping.
type Option func(*settings)

// WithTimeouts sets the dial timeout and the per-command read/write timeout.
func WithTimeouts(dial, io time.Duration) Option {
	return func(s *settings) {
		if dial > 0 {
			s.dialTimeout = dial
		}
		if io > 0 {
			s.ioTimeout = io
		}
	}
}

// WithPoolSize caps the number of open connections. Zero keeps the driver default.
func WithPoolSize(n int) Option {
	return func(s *settings) { s.poolSize = n }
}

// ParseURL validates a redis:// or rediss:// URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, ErrEmptyURL
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// New connects and pings. A failed ping closes the client.
func New(ctx context.Context, url string, options ...Option) (*Cache, error) {
	redisOpts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	s := settings{dialTimeout: 5 * time.Second, ioTimeout: 3 * time.Second}
	for _, o := range options {
		o(&s)
	}
	redisOpts.DialTimeout = s.dialTimeout
	redisOpts.ReadTimeout = s.ioTimeout
	redisOpts.WriteTimeout = s.ioTimeout
	if s.poolSize > 0 {
		redisOpts.PoolSize = s.poolSize
	}

	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache at %s: %w", redisOpts.Addr, err)
	}

	return &Cache{Client: client}, nil
}

func (c *Cache) Close() error {
	return c.Client.Close()
}

// HealthCheck pings the server; it is registered with /readyz.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}
