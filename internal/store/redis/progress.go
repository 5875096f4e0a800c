package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rkvolt/perpswap-engine/internal/sweep"
	goredis "github.com/go-redis/redis/v8"
)

const progressTTL = 7 * 24 * time.Hour

func progressKey(inst, period string) string {
	return fmt.Sprintf("strategy_progress:%s:%s", inst, period)
}

// ProgressStore persists sweep.Progress records in Redis under
// strategy_progress:{inst}:{period}, satisfying sweep.Store. Behind the
// client's circuit breaker: a Redis outage surfaces as a plain error to the
// sweep driver rather than blocking it indefinitely.
type ProgressStore struct {
	client *Client
}

func NewProgressStore(client *Client) *ProgressStore {
	return &ProgressStore{client: client}
}

var _ sweep.Store = (*ProgressStore)(nil)

// Load reads the stored Progress for (inst, period), returning (nil, nil)
// if no record exists yet — a fresh sweep, not an error.
func (s *ProgressStore) Load(inst, period string) (*sweep.Progress, error) {
	var out *sweep.Progress
	err := s.client.cb.Execute(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		val, err := s.client.rdb.Get(ctx, progressKey(inst, period)).Result()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("redis: get progress: %w", err)
		}
		var p sweep.Progress
		if err := json.Unmarshal([]byte(val), &p); err != nil {
			return fmt.Errorf("redis: unmarshal progress: %w", err)
		}
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Save writes p with a 7-day TTL per spec §3.
func (s *ProgressStore) Save(p *sweep.Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("redis: marshal progress: %w", err)
	}
	return s.client.cb.Execute(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.client.rdb.Set(ctx, progressKey(p.Inst, p.Period), data, progressTTL).Err(); err != nil {
			return fmt.Errorf("redis: set progress: %w", err)
		}
		return nil
	})
}
