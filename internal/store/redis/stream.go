package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rkvolt/perpswap-engine/internal/candle"
	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const candleStreamMaxLen = 20000

func candleStreamKey(inst string, period candle.Period) string {
	return fmt.Sprintf("candle:%s:%s", inst, string(period))
}

// StreamWriter appends confirmed candles to a per-(inst,period) Redis
// Stream, trimmed to an approximate max length, so a restarted consumer can
// replay recent history instead of cold-starting its cache. Adapted from
// the teacher's writeTFCandle XADD-with-approx-trim pattern.
type StreamWriter struct {
	client *Client
}

func NewStreamWriter(client *Client) *StreamWriter {
	return &StreamWriter{client: client}
}

func (w *StreamWriter) Append(ctx context.Context, inst string, period candle.Period, c candle.Candle) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("redis: marshal candle: %w", err)
	}
	return w.client.cb.Execute(func() error {
		return w.client.rdb.XAdd(ctx, &goredis.XAddArgs{
			Stream: candleStreamKey(inst, period),
			MaxLen: candleStreamMaxLen,
			Approx: true,
			Values: map[string]interface{}{"data": string(data)},
		}).Err()
	})
}

// StreamReader replays candle streams through a consumer group, at-least-once,
// ACKing each message only after the caller's handler returns successfully.
// Adapted from the teacher's internal/store/redis/reader.go ConsumeTFCandles.
type StreamReader struct {
	client   *Client
	group    string
	consumer string
	log      *zap.Logger
}

func NewStreamReader(client *Client, group, consumer string, log *zap.Logger) *StreamReader {
	if group == "" {
		group = "perpswap-engine"
	}
	if consumer == "" {
		consumer = "worker-1"
	}
	return &StreamReader{client: client, group: group, consumer: consumer, log: log}
}

// EnsureGroup creates the consumer group on stream if it doesn't exist,
// starting from the beginning ("0") so a fresh consumer replays full
// backfill rather than only new messages.
func (r *StreamReader) EnsureGroup(ctx context.Context, inst string, period candle.Period) error {
	stream := candleStreamKey(inst, period)
	err := r.client.rdb.XGroupCreateMkStream(ctx, stream, r.group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("redis: xgroup create %s: %w", stream, err)
	}
	return nil
}

// Consume blocks reading new candles for (inst, period) via XREADGROUP,
// invoking handle for each and ACKing on success. Returns when ctx is
// cancelled.
func (r *StreamReader) Consume(ctx context.Context, inst string, period candle.Period, handle func(candle.Candle) error) error {
	stream := candleStreamKey(inst, period)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		results, err := r.client.rdb.XReadGroup(ctx, &goredis.XReadGroupArgs{
			Group:    r.group,
			Consumer: r.consumer,
			Streams:  []string{stream, ">"},
			Count:    100,
			Block:    2 * time.Second,
		}).Result()
		if err != nil {
			if err == goredis.Nil || ctx.Err() != nil {
				continue
			}
			r.log.Warn("xreadgroup error", zap.Error(err), zap.String("stream", stream))
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, res := range results {
			for _, msg := range res.Messages {
				data, ok := msg.Values["data"].(string)
				if !ok {
					continue
				}
				var c candle.Candle
				if err := json.Unmarshal([]byte(data), &c); err != nil {
					r.log.Warn("unmarshal candle failed, acking to avoid poison pill", zap.Error(err))
					r.client.rdb.XAck(ctx, stream, r.group, msg.ID)
					continue
				}
				if err := handle(c); err != nil {
					r.log.Warn("handler failed, leaving unacked for redelivery", zap.Error(err))
					continue
				}
				r.client.rdb.XAck(ctx, stream, r.group, msg.ID)
			}
		}
	}
}
