package cache

import "github.com/rkvolt/perpswap-engine/internal/candle"

// AppendBounded appends c to history, evicting the oldest candles once the
// length exceeds max. max <= 0 means unbounded. This is a plain slice
// reslice, not the teacher's ringbuf cache-line-padded atomic counter —
// there is exactly one writer per key (the execution loop holds that key's
// update mutex for the whole advance-and-update sequence), so there is
// nothing here for an atomic index to protect.
func AppendBounded(history []candle.Candle, c candle.Candle, max int) []candle.Candle {
	history = append(history, c)
	if max > 0 && len(history) > max {
		history = history[len(history)-max:]
	}
	return history
}
