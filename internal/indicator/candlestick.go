package indicator

import "github.com/rkvolt/perpswap-engine/internal/candle"

// CandlestickValue reports the pattern classification of the latest 1-2
// candles, with the body/shadow ratios the strategy conditions gate on.
type CandlestickValue struct {
	Engulfing       bool
	EngulfingBull   bool // true=bullish engulfing, false=bearish (only meaningful if Engulfing)
	BodyRatio       float64

	Hammer     bool
	HangingMan bool
	Amplitude  float64 // (range / body) proxy used by the hammer/hanging-man gate
}

// Candlestick classifies engulfing/hammer/hanging-man patterns from the last
// two candles. Configurable thresholds mirror spec §4.B.
type Candlestick struct {
	bodyRatioThreshold float64 // engulfing fires when engulfing body ratio >= this
	shadowRatio        float64 // hammer/hanging-man: opposite shadow must be <= this * body

	have1  bool
	prev   candle.Candle
	value  CandlestickValue
}

// NewCandlestick builds a pattern detector with the given thresholds.
func NewCandlestick(bodyRatioThreshold, shadowRatio float64) *Candlestick {
	return &Candlestick{bodyRatioThreshold: bodyRatioThreshold, shadowRatio: shadowRatio}
}

// Next feeds one candle and returns the updated classification.
func (d *Candlestick) Next(c candle.Candle) CandlestickValue {
	defer func() { d.prev = c; d.have1 = true }()

	if !d.have1 {
		d.value = CandlestickValue{}
		return d.value
	}

	v := CandlestickValue{}

	prevBody := d.prev.Body()
	curBody := c.Body()
	if prevBody > 0 && curBody >= prevBody {
		prevLo, prevHi := bodyRange(d.prev)
		curLo, curHi := bodyRange(c)
		if curLo <= prevLo && curHi >= prevHi {
			ratio := curBody / prevBody
			if ratio >= d.bodyRatioThreshold {
				v.Engulfing = true
				v.EngulfingBull = c.Bullish()
				v.BodyRatio = ratio
			}
		}
	}

	rng := c.Range()
	if rng > 0 && curBody > 0 {
		amp := rng / curBody
		v.Amplitude = amp
		lowerShadow := c.LowerShadow()
		upperShadow := c.UpperShadow()
		// Hammer: long lower shadow, small upper shadow, body near the top.
		if lowerShadow >= 2*curBody && upperShadow <= d.shadowRatio*curBody {
			v.Hammer = true
		}
		// HangingMan here is the inverted shape: long upper shadow, small
		// lower shadow. With a shadow ratio below 2 a candle cannot carry
		// both flags; the strategy layer reads HangingMan as the bearish
		// counterpart of Hammer.
		if upperShadow >= 2*curBody && lowerShadow <= d.shadowRatio*curBody {
			v.HangingMan = true
		}
	}

	d.value = v
	return v
}

func bodyRange(c candle.Candle) (lo, hi float64) {
	if c.Open < c.Close {
		return c.Open, c.Close
	}
	return c.Close, c.Open
}

func (d *Candlestick) Value() CandlestickValue { return d.value }
func (d *Candlestick) Ready() bool             { return d.have1 }

func (d *Candlestick) Reset() {
	d.have1 = false
	d.prev = candle.Candle{}
	d.value = CandlestickValue{}
}

type candlestickState struct {
	BodyRatioThreshold, ShadowRatio float64
	Have1                           bool
	Prev                            candle.Candle
	Value                           CandlestickValue
}

func (d *Candlestick) Snapshot() Snapshot {
	return Snapshot{Kind: KindCandlestick, Data: candlestickState{
		BodyRatioThreshold: d.bodyRatioThreshold, ShadowRatio: d.shadowRatio,
		Have1: d.have1, Prev: d.prev, Value: d.value,
	}}
}

func (d *Candlestick) Restore(s Snapshot) error {
	st, err := castSnapshot[candlestickState](s, KindCandlestick)
	if err != nil {
		return err
	}
	d.bodyRatioThreshold, d.shadowRatio = st.BodyRatioThreshold, st.ShadowRatio
	d.have1, d.prev, d.value = st.Have1, st.Prev, st.Value
	return nil
}
