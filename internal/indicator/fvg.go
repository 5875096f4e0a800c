package indicator

import "github.com/rkvolt/perpswap-engine/internal/candle"

// FVGDirection is the side of a fair value gap.
type FVGDirection int

const (
	FVGBullish FVGDirection = iota
	FVGBearish
)

// FairValueGap is an open 3-candle imbalance: candle[0].high < candle[2].low
// (bullish gap) or candle[0].low > candle[2].high (bearish gap), with
// candle[1] the middle bar that created the imbalance.
type FairValueGap struct {
	Direction FVGDirection
	Top       float64
	Bottom    float64
	FormedTS  int64
	Filled    bool
}

// FairValueGapDetector maintains the list of open/filled gaps formed over a
// 3-candle sliding window, with a minimum-size threshold.
type FairValueGapDetector struct {
	threshold float64
	window    [3]candle.Candle
	n         int
	gaps      []FairValueGap
}

// NewFairValueGapDetector builds a detector requiring gap size >= threshold
// (absolute price units).
func NewFairValueGapDetector(threshold float64) *FairValueGapDetector {
	return &FairValueGapDetector{threshold: threshold}
}

// Next feeds one candle, marks any open gaps it fills, and returns every gap
// formed so far, filled ones included with Filled set (most recent last).
// OpenGaps returns only the unfilled ones.
func (f *FairValueGapDetector) Next(c candle.Candle) []FairValueGap {
	for i := range f.gaps {
		g := &f.gaps[i]
		if g.Filled {
			continue
		}
		switch g.Direction {
		case FVGBullish:
			if c.Low <= g.Bottom {
				g.Filled = true
			}
		case FVGBearish:
			if c.High >= g.Top {
				g.Filled = true
			}
		}
	}

	if f.n < 3 {
		f.window[f.n] = c
		f.n++
	} else {
		f.window[0], f.window[1], f.window[2] = f.window[1], f.window[2], c
	}

	if f.n == 3 {
		a, b := f.window[0], f.window[2]
		if a.High < b.Low && b.Low-a.High >= f.threshold {
			f.gaps = append(f.gaps, FairValueGap{
				Direction: FVGBullish, Top: b.Low, Bottom: a.High, FormedTS: f.window[1].TS,
			})
		} else if a.Low > b.High && a.Low-b.High >= f.threshold {
			f.gaps = append(f.gaps, FairValueGap{
				Direction: FVGBearish, Top: a.Low, Bottom: b.High, FormedTS: f.window[1].TS,
			})
		}
	}

	return f.gaps
}

// OpenGaps returns only the unfilled gaps.
func (f *FairValueGapDetector) OpenGaps() []FairValueGap {
	open := make([]FairValueGap, 0, len(f.gaps))
	for _, g := range f.gaps {
		if !g.Filled {
			open = append(open, g)
		}
	}
	return open
}

func (f *FairValueGapDetector) Ready() bool { return f.n == 3 }

func (f *FairValueGapDetector) Reset() {
	f.n = 0
	f.window = [3]candle.Candle{}
	f.gaps = nil
}

type fvgState struct {
	Threshold float64
	Window    [3]candle.Candle
	N         int
	Gaps      []FairValueGap
}

func (f *FairValueGapDetector) Snapshot() Snapshot {
	cp := make([]FairValueGap, len(f.gaps))
	copy(cp, f.gaps)
	return Snapshot{Kind: KindFairValueGap, Data: fvgState{
		Threshold: f.threshold, Window: f.window, N: f.n, Gaps: cp,
	}}
}

func (f *FairValueGapDetector) Restore(s Snapshot) error {
	st, err := castSnapshot[fvgState](s, KindFairValueGap)
	if err != nil {
		return err
	}
	f.threshold, f.window, f.n = st.Threshold, st.Window, st.N
	f.gaps = make([]FairValueGap, len(st.Gaps))
	copy(f.gaps, st.Gaps)
	return nil
}
