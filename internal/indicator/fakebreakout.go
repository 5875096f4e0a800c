package indicator

import "github.com/rkvolt/perpswap-engine/internal/candle"

// FakeBreakoutValue is the detector's output for the latest bar.
type FakeBreakoutValue struct {
	Bullish bool // pierced the N-bar low, rejected upward
	Bearish bool // pierced the N-bar high, rejected downward
}

// FakeBreakout fires when price pierces the N-bar high/low but closes back
// inside it with a long rejection shadow (>= 1.5x body) and volume >= 1.2x
// the trailing average.
type FakeBreakout struct {
	lookback        int
	shadowMultiple  float64
	volumeMultiple  float64

	highs, lows, vols []float64
	idx               int
	count             int
	volSum            float64

	value FakeBreakoutValue
}

// NewFakeBreakout builds a detector with the given lookback and multipliers.
func NewFakeBreakout(lookback int, shadowMultiple, volumeMultiple float64) *FakeBreakout {
	return &FakeBreakout{
		lookback: lookback, shadowMultiple: shadowMultiple, volumeMultiple: volumeMultiple,
		highs: make([]float64, lookback), lows: make([]float64, lookback), vols: make([]float64, lookback),
	}
}

// Next feeds one candle and returns the updated classification. The N-bar
// high/low/volume-average is computed over the bars preceding this one, not
// including it, so the detector never compares a bar against itself.
func (f *FakeBreakout) Next(c candle.Candle) FakeBreakoutValue {
	f.value = FakeBreakoutValue{}

	if f.count >= f.lookback {
		priorHigh, priorLow := f.highs[0], f.lows[0]
		avgVol := f.volSum / float64(f.lookback)
		for i := 1; i < f.lookback; i++ {
			if f.highs[i] > priorHigh {
				priorHigh = f.highs[i]
			}
			if f.lows[i] < priorLow {
				priorLow = f.lows[i]
			}
		}

		body := c.Body()
		upperShadow := c.UpperShadow()
		lowerShadow := c.LowerShadow()
		volOK := avgVol > 0 && c.Volume >= f.volumeMultiple*avgVol

		if c.Low < priorLow && c.Close > priorLow && body > 0 &&
			lowerShadow >= f.shadowMultiple*body && volOK {
			f.value.Bullish = true
		}
		if c.High > priorHigh && c.Close < priorHigh && body > 0 &&
			upperShadow >= f.shadowMultiple*body && volOK {
			f.value.Bearish = true
		}
	}

	if f.count >= f.lookback {
		f.volSum -= f.vols[f.idx]
	}
	f.highs[f.idx], f.lows[f.idx], f.vols[f.idx] = c.High, c.Low, c.Volume
	f.volSum += c.Volume
	f.idx = (f.idx + 1) % f.lookback
	if f.count < f.lookback {
		f.count++
	}

	return f.value
}

func (f *FakeBreakout) Value() FakeBreakoutValue { return f.value }
func (f *FakeBreakout) Ready() bool              { return f.count >= f.lookback }

func (f *FakeBreakout) Reset() {
	f.idx, f.count, f.volSum = 0, 0, 0
	f.value = FakeBreakoutValue{}
	for i := range f.highs {
		f.highs[i], f.lows[i], f.vols[i] = 0, 0, 0
	}
}

type fakeBreakoutState struct {
	Lookback                       int
	ShadowMultiple, VolumeMultiple float64
	Highs, Lows, Vols              []float64
	Idx, Count                     int
	VolSum                         float64
	Value                          FakeBreakoutValue
}

func (f *FakeBreakout) Snapshot() Snapshot {
	h := append([]float64(nil), f.highs...)
	l := append([]float64(nil), f.lows...)
	v := append([]float64(nil), f.vols...)
	return Snapshot{Kind: KindFakeBreakout, Data: fakeBreakoutState{
		Lookback: f.lookback, ShadowMultiple: f.shadowMultiple, VolumeMultiple: f.volumeMultiple,
		Highs: h, Lows: l, Vols: v, Idx: f.idx, Count: f.count, VolSum: f.volSum, Value: f.value,
	}}
}

func (f *FakeBreakout) Restore(s Snapshot) error {
	st, err := castSnapshot[fakeBreakoutState](s, KindFakeBreakout)
	if err != nil {
		return err
	}
	f.lookback, f.shadowMultiple, f.volumeMultiple = st.Lookback, st.ShadowMultiple, st.VolumeMultiple
	f.idx, f.count, f.volSum, f.value = st.Idx, st.Count, st.VolSum, st.Value
	f.highs = append([]float64(nil), st.Highs...)
	f.lows = append([]float64(nil), st.Lows...)
	f.vols = append([]float64(nil), st.Vols...)
	return nil
}
