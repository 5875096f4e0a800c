package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/rkvolt/perpswap-engine/internal/cache"
)

const dedupMirrorTTL = 5 * time.Minute

func dedupKey(key cache.Key, ts int64) string {
	return fmt.Sprintf("dedup:%s:%s:%s:%d", key.Inst, string(key.Period), key.StrategyFamily, ts)
}

// DedupMirror mirrors internal/execution.Dedup into Redis via SET NX PX, so
// processes sharing one Redis do not dispatch the same (key, ts) at the
// same time. It is a mirror, not a replacement: cmd/engine claims every
// candle event here before handing it to the loop, whose in-process
// execution.Dedup still applies, and releases the claim once dispatch
// returns; a claim that is never released expires after 5 minutes.
type DedupMirror struct {
	client *Client
}

func NewDedupMirror(client *Client) *DedupMirror {
	return &DedupMirror{client: client}
}

// TryMarkProcessing attempts to claim (key, ts) in Redis. Returns true if
// this call won the claim (the pair was not already present).
func (m *DedupMirror) TryMarkProcessing(ctx context.Context, key cache.Key, ts int64) (bool, error) {
	var won bool
	err := m.client.cb.Execute(func() error {
		ok, err := m.client.rdb.SetNX(ctx, dedupKey(key, ts), 1, dedupMirrorTTL).Result()
		if err != nil {
			return fmt.Errorf("redis: setnx dedup: %w", err)
		}
		won = ok
		return nil
	})
	if err != nil {
		// Redis unavailable: fail open so dedup falls back entirely to the
		// in-process map rather than blocking candle dispatch.
		return true, err
	}
	return won, nil
}

// MarkCompleted releases the (key, ts) claim TryMarkProcessing made, so a
// later trigger for the same ts — notably a confirmed close following its
// own forming bar — is not blocked by a still-claimed slot across process
// restarts. Mirrors internal/execution.Dedup.MarkCompleted's release
// semantics; the TTL in TryMarkProcessing remains a crashed-processor
// safety net for claims that never reach this call.
func (m *DedupMirror) MarkCompleted(ctx context.Context, key cache.Key, ts int64) error {
	return m.client.cb.Execute(func() error {
		if err := m.client.rdb.Del(ctx, dedupKey(key, ts)).Err(); err != nil {
			return fmt.Errorf("redis: del dedup: %w", err)
		}
		return nil
	})
}
