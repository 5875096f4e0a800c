package indicator

import "github.com/rkvolt/perpswap-engine/internal/candle"

// EMA is the exponential moving average, seeded by a simple average over the
// first Period candles: ema_t = ema_{t-1} + alpha*(c_t - ema_{t-1}).
type EMA struct {
	period     int
	multiplier float64
	current    float64
	count      int
	seedSum    float64
}

// NewEMA builds an EMA with the given period. The Vegas bundle holds seven of
// these at periods 12/144/169/576/676/2304/2704.
func NewEMA(period int) *EMA {
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *EMA) Period() int { return e.period }

// Next feeds one candle and returns the updated EMA value.
func (e *EMA) Next(c candle.Candle) float64 {
	e.count++
	if e.count <= e.period {
		e.seedSum += c.Close
		if e.count == e.period {
			e.current = e.seedSum / float64(e.period)
		}
		return e.current
	}
	e.current = c.Close*e.multiplier + e.current*(1-e.multiplier)
	return e.current
}

func (e *EMA) Value() float64 { return e.current }
func (e *EMA) Ready() bool    { return e.count >= e.period }

func (e *EMA) Reset() {
	e.current = 0
	e.count = 0
	e.seedSum = 0
}

type emaState struct {
	Period     int
	Multiplier float64
	Current    float64
	Count      int
	SeedSum    float64
}

func (e *EMA) Snapshot() Snapshot {
	return Snapshot{Kind: KindEMA, Data: emaState{
		Period: e.period, Multiplier: e.multiplier, Current: e.current,
		Count: e.count, SeedSum: e.seedSum,
	}}
}

func (e *EMA) Restore(s Snapshot) error {
	st, err := castSnapshot[emaState](s, KindEMA)
	if err != nil {
		return err
	}
	e.period, e.multiplier, e.current, e.count, e.seedSum = st.Period, st.Multiplier, st.Current, st.Count, st.SeedSum
	return nil
}
