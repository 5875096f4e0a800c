// Package candle holds the canonical OHLCV record and the period clock that
// every other module in the engine is built on top of.
package candle

import "fmt"

// Candle is one OHLCV observation over a fixed time window. Confirm is 1 once
// the exchange has closed the bar and 0 while it is still forming.
type Candle struct {
	TS      int64
	Open    float64
	High    float64
	Low     float64
	Close   float64
	Volume  float64
	Confirm int8
}

// Confirmed reports whether the exchange has closed this bar.
func (c Candle) Confirmed() bool {
	return c.Confirm == 1
}

// Validate enforces the OHLCV invariants: l <= min(o,c) <= max(o,c) <= h and
// v >= 0. A confirmed bar's timestamp must additionally land on a period
// boundary, which callers check separately via IsConfirmedBoundary since
// Validate has no period context.
func (c Candle) Validate() error {
	lo := c.Open
	if c.Close < lo {
		lo = c.Close
	}
	hi := c.Open
	if c.Close > hi {
		hi = c.Close
	}
	if c.Low > lo || hi > c.High {
		return fmt.Errorf("candle: invalid ohlc at ts=%d: l=%v o=%v h=%v c=%v", c.TS, c.Low, c.Open, c.High, c.Close)
	}
	if c.Volume < 0 {
		return fmt.Errorf("candle: negative volume at ts=%d: v=%v", c.TS, c.Volume)
	}
	return nil
}

// Body returns the absolute open-to-close distance.
func (c Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range returns the high-to-low distance.
func (c Candle) Range() float64 {
	return c.High - c.Low
}

// Bullish reports whether the candle closed above its open.
func (c Candle) Bullish() bool {
	return c.Close > c.Open
}

// UpperShadow returns the wick length above the candle's body.
func (c Candle) UpperShadow() float64 {
	top := c.Open
	if c.Close > top {
		top = c.Close
	}
	return c.High - top
}

// LowerShadow returns the wick length below the candle's body.
func (c Candle) LowerShadow() float64 {
	bottom := c.Open
	if c.Close < bottom {
		bottom = c.Close
	}
	return bottom - c.Low
}

// Window is a strictly-ascending-by-ts ordered slice of candles, used as the
// recent-history argument to strategy evaluators.
type Window []Candle

// Last returns the most recent candle in the window and true, or the zero
// value and false if the window is empty.
func (w Window) Last() (Candle, bool) {
	if len(w) == 0 {
		return Candle{}, false
	}
	return w[len(w)-1], true
}

// Tail returns the last n candles of the window (or the whole window if it
// has fewer than n).
func (w Window) Tail(n int) Window {
	if n >= len(w) {
		return w
	}
	return w[len(w)-n:]
}
