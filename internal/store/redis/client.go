// Package redis is the engine's Redis boundary: sweep progress persistence
// (spec §6 key `strategy_progress:{inst}:{period}`), a dedup-map mirror so a
// restarted process doesn't reprocess a bar it already dispatched, and
// consumer-group stream replay for candle backfill after an outage.
// Structurally adapted from the teacher's internal/store/redis package,
// repointed at this engine's key shapes and wrapped in the shared
// internal/breaker circuit breaker rather than the teacher's Redis-local
// copy of the same type.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/rkvolt/perpswap-engine/internal/breaker"
	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Config configures the Redis client.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Client wraps a go-redis client behind the shared circuit breaker.
type Client struct {
	rdb *goredis.Client
	cb  *breaker.Breaker
	log *zap.Logger
}

// New dials Redis, pings it, and wraps it in a breaker (5 consecutive
// failures trips the circuit for 30s, matching the teacher's Redis default).
func New(cfg Config, log *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}

	log.Info("redis connected", zap.String("addr", cfg.Addr))
	return &Client{
		rdb: rdb,
		cb:  breaker.New(5, 30*time.Second),
		log: log,
	}, nil
}

// Raw returns the underlying go-redis client for health checks.
func (c *Client) Raw() *goredis.Client { return c.rdb }

// Breaker returns the client's circuit breaker so callers (e.g. a metrics
// gauge or the notification fanout) can observe its state transitions.
func (c *Client) Breaker() *breaker.Breaker { return c.cb }

// Close closes the underlying connection pool.
func (c *Client) Close() error { return c.rdb.Close() }
