package indicator

import "github.com/rkvolt/perpswap-engine/internal/candle"

// RSI is the Relative Strength Index with Wilder's smoothing, emitting 0-100.
type RSI struct {
	period    int
	count     int
	havePrev  bool
	prevClose float64
	avgGain   float64
	avgLoss   float64
	current   float64
}

// NewRSI builds an RSI with the given period (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

// Next feeds one candle and returns the updated RSI value.
func (r *RSI) Next(c candle.Candle) float64 {
	price := c.Close
	if !r.havePrev {
		r.havePrev = true
		r.prevClose = price
		r.count++
		return r.current
	}
	delta := price - r.prevClose
	r.prevClose = price
	r.count++

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}

	if r.count <= r.period+1 {
		r.avgGain += gain
		r.avgLoss += loss
		if r.count == r.period+1 {
			r.avgGain /= float64(r.period)
			r.avgLoss /= float64(r.period)
			r.current = rsiFromAverages(r.avgGain, r.avgLoss)
		}
		return r.current
	}

	p := float64(r.period)
	r.avgGain = (r.avgGain*(p-1) + gain) / p
	r.avgLoss = (r.avgLoss*(p-1) + loss) / p
	r.current = rsiFromAverages(r.avgGain, r.avgLoss)
	return r.current
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50.0
		}
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

func (r *RSI) Value() float64 { return r.current }
func (r *RSI) Ready() bool    { return r.count > r.period }

func (r *RSI) Reset() {
	r.count = 0
	r.havePrev = false
	r.prevClose, r.avgGain, r.avgLoss, r.current = 0, 0, 0, 0
}

type rsiState struct {
	Period                        int
	Count                         int
	HavePrev                      bool
	PrevClose, AvgGain, AvgLoss   float64
	Current                       float64
}

func (r *RSI) Snapshot() Snapshot {
	return Snapshot{Kind: KindRSI, Data: rsiState{
		Period: r.period, Count: r.count, HavePrev: r.havePrev,
		PrevClose: r.prevClose, AvgGain: r.avgGain, AvgLoss: r.avgLoss, Current: r.current,
	}}
}

func (r *RSI) Restore(s Snapshot) error {
	st, err := castSnapshot[rsiState](s, KindRSI)
	if err != nil {
		return err
	}
	r.period, r.count, r.havePrev = st.Period, st.Count, st.HavePrev
	r.prevClose, r.avgGain, r.avgLoss, r.current = st.PrevClose, st.AvgGain, st.AvgLoss, st.Current
	return nil
}

// IsNewsDriven flags a single-bar move the spec treats as "news-driven" and
// therefore unsafe for RSI-based entries: a body ratio above 0.8 combined
// with the prior bar having moved more than 5% in the same direction.
func IsNewsDriven(prior, current candle.Candle) bool {
	rng := current.Range()
	if rng <= 0 {
		return false
	}
	bodyRatio := current.Body() / rng
	if bodyRatio <= 0.8 {
		return false
	}
	if prior.Open == 0 {
		return false
	}
	priorMove := (prior.Close - prior.Open) / prior.Open
	sameDirection := (priorMove > 0) == current.Bullish()
	return sameDirection && abs(priorMove) > 0.05
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
