package indicator

import (
	"math"

	"github.com/rkvolt/perpswap-engine/internal/candle"
)

// BollingerValue is the shape returned by Bollinger.Next/Value.
type BollingerValue struct {
	Mean          float64
	Upper         float64
	Lower         float64
	UpperTouches  int // consecutive bars closing at/above Upper
	LowerTouches  int // consecutive bars closing at/below Lower
}

// Bollinger tracks a rolling mean/stdev over Period closes with bands at
// mean +/- K*stdev, plus a consecutive-touch counter on each band.
type Bollinger struct {
	period int
	k      float64
	buf    []float64
	idx    int
	count  int
	sum    float64
	sumSq  float64
	value  BollingerValue
}

// NewBollinger builds a Bollinger indicator with period n and width k.
func NewBollinger(period int, k float64) *Bollinger {
	return &Bollinger{period: period, k: k, buf: make([]float64, period)}
}

// Next feeds one candle and returns the updated band values.
func (b *Bollinger) Next(c candle.Candle) BollingerValue {
	price := c.Close
	if b.count >= b.period {
		old := b.buf[b.idx]
		b.sum -= old
		b.sumSq -= old * old
	}
	b.buf[b.idx] = price
	b.sum += price
	b.sumSq += price * price
	b.idx = (b.idx + 1) % b.period
	if b.count < b.period {
		b.count++
	}

	if b.count < b.period {
		return b.value
	}

	n := float64(b.period)
	mean := b.sum / n
	variance := b.sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	stdev := math.Sqrt(variance)
	upper := mean + b.k*stdev
	lower := mean - b.k*stdev

	if price >= upper {
		b.value.UpperTouches++
	} else {
		b.value.UpperTouches = 0
	}
	if price <= lower {
		b.value.LowerTouches++
	} else {
		b.value.LowerTouches = 0
	}
	b.value.Mean, b.value.Upper, b.value.Lower = mean, upper, lower
	return b.value
}

func (b *Bollinger) Value() BollingerValue { return b.value }
func (b *Bollinger) Ready() bool           { return b.count >= b.period }

func (b *Bollinger) Reset() {
	b.idx, b.count = 0, 0
	b.sum, b.sumSq = 0, 0
	b.value = BollingerValue{}
	for i := range b.buf {
		b.buf[i] = 0
	}
}

type bollingerState struct {
	Period       int
	K            float64
	Buf          []float64
	Idx, Count   int
	Sum, SumSq   float64
	Value        BollingerValue
}

func (b *Bollinger) Snapshot() Snapshot {
	bufCopy := make([]float64, len(b.buf))
	copy(bufCopy, b.buf)
	return Snapshot{Kind: KindBollinger, Data: bollingerState{
		Period: b.period, K: b.k, Buf: bufCopy, Idx: b.idx, Count: b.count,
		Sum: b.sum, SumSq: b.sumSq, Value: b.value,
	}}
}

func (b *Bollinger) Restore(s Snapshot) error {
	st, err := castSnapshot[bollingerState](s, KindBollinger)
	if err != nil {
		return err
	}
	b.period, b.k, b.idx, b.count = st.Period, st.K, st.Idx, st.Count
	b.sum, b.sumSq, b.value = st.Sum, st.SumSq, st.Value
	b.buf = make([]float64, len(st.Buf))
	copy(b.buf, st.Buf)
	return nil
}
