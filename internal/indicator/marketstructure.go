package indicator

import "github.com/rkvolt/perpswap-engine/internal/candle"

// StructureEvent flags a break-of-structure (trend continuation) or a
// change-of-character (trend reversal) against the tracked swing points.
type StructureEvent int

const (
	StructureNone StructureEvent = iota
	StructureBreakOfStructure
	StructureChangeOfCharacter
)

// MarketStructureValue is the detector's output for the latest bar.
type MarketStructureValue struct {
	Event      StructureEvent
	SwingHigh  float64
	SwingLow   float64
	Confidence float64 // 0..1, scaled by how decisively the swing was broken
}

// MarketStructure tracks swing highs/lows over a lookback window and flags
// breaks of structure and character changes against them.
type MarketStructure struct {
	lookback int
	highs    []float64
	lows     []float64
	idx      int
	count    int

	swingHigh, swingLow float64
	trendUp             bool
	haveTrend           bool
	value               MarketStructureValue
}

// NewMarketStructure builds a detector using the given swing lookback.
func NewMarketStructure(lookback int) *MarketStructure {
	return &MarketStructure{lookback: lookback, highs: make([]float64, lookback), lows: make([]float64, lookback)}
}

// Next feeds one candle and returns the updated structure read.
func (m *MarketStructure) Next(c candle.Candle) MarketStructureValue {
	// The swing range covers the bars before c; c joins the window only
	// after it has been evaluated, so its own high/low never bound it.
	defer func() {
		m.highs[m.idx] = c.High
		m.lows[m.idx] = c.Low
		m.idx = (m.idx + 1) % m.lookback
		if m.count < m.lookback {
			m.count++
		}
	}()

	m.value = MarketStructureValue{}
	if m.count < m.lookback {
		return m.value
	}

	sh, sl := m.highs[0], m.lows[0]
	for i := 1; i < m.lookback; i++ {
		if m.highs[i] > sh {
			sh = m.highs[i]
		}
		if m.lows[i] < sl {
			sl = m.lows[i]
		}
	}
	m.swingHigh, m.swingLow = sh, sl
	m.value.SwingHigh, m.value.SwingLow = sh, sl

	switch {
	case c.Close > sh:
		if m.haveTrend && !m.trendUp {
			m.value.Event = StructureChangeOfCharacter
		} else {
			m.value.Event = StructureBreakOfStructure
		}
		m.trendUp, m.haveTrend = true, true
		m.value.Confidence = clamp01((c.Close - sh) / sh)
	case c.Close < sl:
		if m.haveTrend && m.trendUp {
			m.value.Event = StructureChangeOfCharacter
		} else {
			m.value.Event = StructureBreakOfStructure
		}
		m.trendUp, m.haveTrend = false, true
		m.value.Confidence = clamp01((sl - c.Close) / sl)
	}
	return m.value
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func (m *MarketStructure) Value() MarketStructureValue { return m.value }
func (m *MarketStructure) Ready() bool                 { return m.count >= m.lookback }

func (m *MarketStructure) Reset() {
	m.idx, m.count = 0, 0
	m.swingHigh, m.swingLow = 0, 0
	m.trendUp, m.haveTrend = false, false
	m.value = MarketStructureValue{}
	for i := range m.highs {
		m.highs[i], m.lows[i] = 0, 0
	}
}

type marketStructureState struct {
	Lookback            int
	Highs, Lows         []float64
	Idx, Count          int
	SwingHigh, SwingLow float64
	TrendUp, HaveTrend  bool
	Value               MarketStructureValue
}

func (m *MarketStructure) Snapshot() Snapshot {
	h := make([]float64, len(m.highs))
	l := make([]float64, len(m.lows))
	copy(h, m.highs)
	copy(l, m.lows)
	return Snapshot{Kind: KindMarketStruct, Data: marketStructureState{
		Lookback: m.lookback, Highs: h, Lows: l, Idx: m.idx, Count: m.count,
		SwingHigh: m.swingHigh, SwingLow: m.swingLow, TrendUp: m.trendUp, HaveTrend: m.haveTrend, Value: m.value,
	}}
}

func (m *MarketStructure) Restore(s Snapshot) error {
	st, err := castSnapshot[marketStructureState](s, KindMarketStruct)
	if err != nil {
		return err
	}
	m.lookback, m.idx, m.count = st.Lookback, st.Idx, st.Count
	m.swingHigh, m.swingLow = st.SwingHigh, st.SwingLow
	m.trendUp, m.haveTrend, m.value = st.TrendUp, st.HaveTrend, st.Value
	m.highs = make([]float64, len(st.Highs))
	m.lows = make([]float64, len(st.Lows))
	copy(m.highs, st.Highs)
	copy(m.lows, st.Lows)
	return nil
}
