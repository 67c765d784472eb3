package redissink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"

	"github.com/mohammed-shakir/grid-dicer/internal/core/observability"
)

type Option func(*redis.Options)

func WithDialTimeout(d time.Duration) Option {
	return func(o *redis.Options) { o.DialTimeout = d }
}

type Client struct {
	rdb *redis.Client
}

func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	ro := &redis.Options{
		Addr:         addr,
		PoolSize:     8,
		MinIdleConns: 1,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		MaintNotificationsConfig: &maintnotifications.Config{
			Mode: maintnotifications.ModeDisabled,
		},
	}
	for _, f := range opts {
		f(ro)
	}

	rdb := redis.NewClient(ro)
	err := rdb.Ping(ctx).Err()
	observability.ObserveSinkOp("redis", err)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}

// Batch is a set of values plus set members written in one pipeline.
type Batch struct {
	Values  map[string][]byte
	Members map[string][]string
}

func (b Batch) Len() int { return len(b.Values) }

// WriteBatch pipelines SETs for every value and SADDs for every member list,
// all expiring after ttl (0 keeps them forever).
func (c *Client) WriteBatch(ctx context.Context, b Batch, ttl time.Duration) error {
	if len(b.Values) == 0 && len(b.Members) == 0 {
		return nil
	}
	_, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for k, v := range b.Values {
			p.Set(ctx, k, v, ttl)
		}
		for k, ms := range b.Members {
			args := make([]any, len(ms))
			for i, m := range ms {
				args[i] = m
			}
			p.SAdd(ctx, k, args...)
			if ttl > 0 {
				p.Expire(ctx, k, ttl)
			}
		}
		return nil
	})
	observability.ObserveSinkOp("redis", err)
	if err != nil {
		return fmt.Errorf("redis pipeline %d values, %d sets: %w", len(b.Values), len(b.Members), err)
	}
	return nil
}
