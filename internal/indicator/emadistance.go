package indicator

// EmaStack describes the ordering of the tracked EMA triplet.
type EmaStack int

const (
	EmaStackFlat EmaStack = iota
	EmaStackBullish
	EmaStackBearish
)

// EmaDistanceValue is the filter's verdict for the latest bar.
type EmaDistanceValue struct {
	Distance   float64 // |ema2-ema4| / ema4
	TooFar     bool
	Stack      EmaStack
	VetoLong   bool
	VetoShort  bool
}

// EmaDistanceFilter is a higher-order detector consuming already-computed
// EMA values rather than a raw candle: it vetoes a signal direction when the
// EMA_2/EMA_4 spread has run too far from the close in the direction
// implied by the EMA stack (bearish stack + close above EMA_3 vetoes longs,
// bullish stack + close below EMA_3 vetoes shorts).
type EmaDistanceFilter struct {
	threshold float64 // e.g. 0.05 for 5%
	last      EmaDistanceValue
}

// NewEmaDistanceFilter builds a filter with the "too far" threshold as a
// fraction (0.05 == 5%).
func NewEmaDistanceFilter(threshold float64) *EmaDistanceFilter {
	return &EmaDistanceFilter{threshold: threshold}
}

// Next evaluates the filter against the current close and EMA_2/EMA_3/EMA_4.
func (e *EmaDistanceFilter) Next(close, ema2, ema3, ema4 float64) EmaDistanceValue {
	v := EmaDistanceValue{}
	if ema4 != 0 {
		v.Distance = abs(ema2-ema4) / abs(ema4)
	}
	v.TooFar = v.Distance > e.threshold

	switch {
	case ema2 > ema3 && ema3 > ema4:
		v.Stack = EmaStackBullish
	case ema2 < ema3 && ema3 < ema4:
		v.Stack = EmaStackBearish
	default:
		v.Stack = EmaStackFlat
	}

	if v.TooFar {
		if v.Stack == EmaStackBearish && close > ema3 {
			v.VetoLong = true
		}
		if v.Stack == EmaStackBullish && close < ema3 {
			v.VetoShort = true
		}
	}

	e.last = v
	return v
}

func (e *EmaDistanceFilter) Value() EmaDistanceValue { return e.last }
func (e *EmaDistanceFilter) Ready() bool             { return true }

func (e *EmaDistanceFilter) Reset() { e.last = EmaDistanceValue{} }

type emaDistanceState struct {
	Threshold float64
	Last      EmaDistanceValue
}

func (e *EmaDistanceFilter) Snapshot() Snapshot {
	return Snapshot{Kind: KindEmaDistFilter, Data: emaDistanceState{Threshold: e.threshold, Last: e.last}}
}

func (e *EmaDistanceFilter) Restore(s Snapshot) error {
	st, err := castSnapshot[emaDistanceState](s, KindEmaDistFilter)
	if err != nil {
		return err
	}
	e.threshold, e.last = st.Threshold, st.Last
	return nil
}
