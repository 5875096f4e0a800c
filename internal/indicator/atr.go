package indicator

import "github.com/rkvolt/perpswap-engine/internal/candle"

// ATR is the Average True Range with Wilder smoothing, seeded by the mean of
// the first period true ranges.
type ATR struct {
	period     int
	count      int
	havePrev   bool
	prevClose  float64
	sumTR      float64
	current    float64
}

// NewATR builds an ATR with the given period (typically 14).
func NewATR(period int) *ATR {
	return &ATR{period: period}
}

func trueRange(prevClose float64, c candle.Candle) float64 {
	hl := c.High - c.Low
	hc := abs(c.High - prevClose)
	lc := abs(c.Low - prevClose)
	tr := hl
	if hc > tr {
		tr = hc
	}
	if lc > tr {
		tr = lc
	}
	return tr
}

// Next feeds one candle and returns the updated ATR value.
func (a *ATR) Next(c candle.Candle) float64 {
	if !a.havePrev {
		a.havePrev = true
		a.prevClose = c.Close
		a.count++
		return a.current
	}
	tr := trueRange(a.prevClose, c)
	a.prevClose = c.Close
	a.count++

	if a.count <= a.period+1 {
		a.sumTR += tr
		if a.count == a.period+1 {
			a.current = a.sumTR / float64(a.period)
		}
		return a.current
	}
	p := float64(a.period)
	a.current = (a.current*(p-1) + tr) / p
	return a.current
}

func (a *ATR) Value() float64 { return a.current }
func (a *ATR) Ready() bool    { return a.count > a.period }

func (a *ATR) Reset() {
	a.count = 0
	a.havePrev = false
	a.prevClose, a.sumTR, a.current = 0, 0, 0
}

// LongStop returns entry - k*ATR, the derived stop price for a long entry.
func (a *ATR) LongStop(entry, k float64) float64 { return entry - k*a.current }

// ShortStop returns entry + k*ATR, the derived stop price for a short entry.
func (a *ATR) ShortStop(entry, k float64) float64 { return entry + k*a.current }

// LongTakeProfit returns entry + ratio*ATR, used for the multi-level
// ATR take-profit ladder (L1/L2/L3 share this formula at different ratios).
func (a *ATR) LongTakeProfit(entry, ratio float64) float64 { return entry + ratio*a.current }

// ShortTakeProfit returns entry - ratio*ATR, the short-side mirror.
func (a *ATR) ShortTakeProfit(entry, ratio float64) float64 { return entry - ratio*a.current }

type atrState struct {
	Period                   int
	Count                    int
	HavePrev                 bool
	PrevClose, SumTR, Current float64
}

func (a *ATR) Snapshot() Snapshot {
	return Snapshot{Kind: KindATR, Data: atrState{
		Period: a.period, Count: a.count, HavePrev: a.havePrev,
		PrevClose: a.prevClose, SumTR: a.sumTR, Current: a.current,
	}}
}

func (a *ATR) Restore(s Snapshot) error {
	st, err := castSnapshot[atrState](s, KindATR)
	if err != nil {
		return err
	}
	a.period, a.count, a.havePrev = st.Period, st.Count, st.HavePrev
	a.prevClose, a.sumTR, a.current = st.PrevClose, st.SumTR, st.Current
	return nil
}
