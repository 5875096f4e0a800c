package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rkvolt/perpswap-engine/internal/candle"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const maxReconnectAttempts = 5

// wsSubscribeArg is one subscription channel argument.
type wsSubscribeArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type wsSubscribeMsg struct {
	Op   string           `json:"op"`
	Args []wsSubscribeArg `json:"args"`
}

// wsCandleFrame mirrors the exchange's candle push frame: arg identifies
// the channel, data is an array of 9-element string tuples
// [ts,o,h,l,c,vol,volCcy,volCcyQuote,confirm].
type wsCandleFrame struct {
	Arg  wsSubscribeArg `json:"arg"`
	Data [][9]string    `json:"data"`
}

func channelFor(period candle.Period) string {
	return "candle" + string(period)
}

// periodFromChannel recovers the period symbol from a "candle{period}"
// channel name, the inverse of channelFor.
func periodFromChannel(channel string) candle.Period {
	return candle.Period(strings.TrimPrefix(channel, "candle"))
}

// CandleEvent tags a pushed candle with the (instrument, period) its
// subscription channel identified it as, since the wire frame carries that
// context in arg, not in the OHLCV tuple itself.
type CandleEvent struct {
	Inst   string
	Period candle.Period
	Candle candle.Candle
}

func parseCandleTuple(row [9]string) (candle.Candle, error) {
	var c candle.Candle
	var err error
	if c.TS, err = strconv.ParseInt(row[0], 10, 64); err != nil {
		return c, fmt.Errorf("exchange: parse ts: %w", err)
	}
	if c.Open, err = strconv.ParseFloat(row[1], 64); err != nil {
		return c, fmt.Errorf("exchange: parse open: %w", err)
	}
	if c.High, err = strconv.ParseFloat(row[2], 64); err != nil {
		return c, fmt.Errorf("exchange: parse high: %w", err)
	}
	if c.Low, err = strconv.ParseFloat(row[3], 64); err != nil {
		return c, fmt.Errorf("exchange: parse low: %w", err)
	}
	if c.Close, err = strconv.ParseFloat(row[4], 64); err != nil {
		return c, fmt.Errorf("exchange: parse close: %w", err)
	}
	if c.Volume, err = strconv.ParseFloat(row[5], 64); err != nil {
		return c, fmt.Errorf("exchange: parse volume: %w", err)
	}
	confirm, err := strconv.Atoi(row[8])
	if err != nil {
		return c, fmt.Errorf("exchange: parse confirm: %w", err)
	}
	c.Confirm = int8(confirm)
	return c, nil
}

// WSClient is a reconnecting candle feed over the exchange's public
// WebSocket, grounded on the teacher's SmartWebSocketV3 readLoop/handleError
// reconnect-with-backoff shape, retargeted to OKX-style candle push frames
// (original_source/src/trading/okx/okx_websocket_client.rs's CandleMessage).
type WSClient struct {
	url  string
	log  *zap.Logger
	subs []wsSubscribeArg

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSClient builds a WS client targeting url (a public candle stream
// endpoint).
func NewWSClient(url string, log *zap.Logger) *WSClient {
	return &WSClient{url: url, log: log}
}

// Subscribe queues a (inst, period) candle channel to subscribe to on
// connect and on every reconnect.
func (w *WSClient) Subscribe(inst string, period candle.Period) {
	w.subs = append(w.subs, wsSubscribeArg{Channel: channelFor(period), InstID: inst})
}

// Run connects, subscribes, and streams confirmed and forming candles to
// out until ctx is cancelled. On a read error it reconnects with
// exponential backoff + jitter, capped at maxReconnectAttempts per cycle
// (spec §5), then gives up and returns an error.
func (w *WSClient) Run(ctx context.Context, out chan<- CandleEvent) error {
	for {
		if err := w.connectAndSubscribe(ctx); err != nil {
			return fmt.Errorf("exchange: ws connect: %w", err)
		}

		err := w.readLoop(ctx, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.log.Warn("ws read loop ended, reconnecting", zap.Error(err))

		if !w.reconnectWithBackoff(ctx) {
			return fmt.Errorf("exchange: ws reconnect: exhausted %d attempts", maxReconnectAttempts)
		}
	}
}

func (w *WSClient) connectAndSubscribe(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	if len(w.subs) == 0 {
		return nil
	}
	msg := wsSubscribeMsg{Op: "subscribe", Args: w.subs}
	return conn.WriteJSON(msg)
}

func (w *WSClient) readLoop(ctx context.Context, out chan<- CandleEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		w.mu.Lock()
		conn := w.conn
		w.mu.Unlock()
		if conn == nil {
			return fmt.Errorf("exchange: no active connection")
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var frame wsCandleFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			continue // control/event frames don't match the candle shape; skip
		}
		period := periodFromChannel(frame.Arg.Channel)
		for _, row := range frame.Data {
			c, err := parseCandleTuple(row)
			if err != nil {
				w.log.Warn("ws candle parse failed", zap.Error(err))
				continue
			}
			event := CandleEvent{Inst: frame.Arg.InstID, Period: period, Candle: c}
			select {
			case out <- event:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (w *WSClient) reconnectWithBackoff(ctx context.Context) bool {
	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		backoff := time.Duration(1<<uint(attempt-1)) * time.Second
		jitter := time.Duration(rand.Int63n(int64(500 * time.Millisecond)))
		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
			return false
		}

		if err := w.connectAndSubscribe(ctx); err == nil {
			return true
		}
		w.log.Warn("ws reconnect attempt failed", zap.Int("attempt", attempt))
	}
	return false
}

// Close closes the active connection, if any.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return nil
	}
	return w.conn.Close()
}
