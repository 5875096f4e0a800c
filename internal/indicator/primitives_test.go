package indicator

import (
	"testing"

	"github.com/rkvolt/perpswap-engine/internal/candle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closesToCandles(closes []float64) []candle.Candle {
	cs := make([]candle.Candle, len(closes))
	for i, c := range closes {
		cs[i] = candle.Candle{TS: int64(i), Open: c, High: c, Low: c, Close: c, Volume: 100}
	}
	return cs
}

func TestEMASeedsFromSMA(t *testing.T) {
	e := NewEMA(3)
	cs := closesToCandles([]float64{10, 20, 30, 40})
	var last float64
	for i, c := range cs {
		last = e.Next(c)
		if i < 2 {
			assert.False(t, e.Ready())
		}
	}
	assert.True(t, e.Ready())
	// seed = (10+20+30)/3 = 20; next = 40*0.5 + 20*0.5 = 30
	assert.InDelta(t, 30.0, last, 1e-9)
}

func TestEMAReset(t *testing.T) {
	e := NewEMA(2)
	for _, c := range closesToCandles([]float64{1, 2, 3}) {
		e.Next(c)
	}
	require.True(t, e.Ready())
	e.Reset()
	assert.False(t, e.Ready())
	assert.Equal(t, 0.0, e.Value())
}

func TestEMASnapshotRoundTrip(t *testing.T) {
	a := NewEMA(5)
	for _, c := range closesToCandles([]float64{1, 2, 3, 4, 5, 6, 7}) {
		a.Next(c)
	}
	snap := a.Snapshot()

	b := NewEMA(5)
	require.NoError(t, b.Restore(snap))
	assert.Equal(t, a.Value(), b.Value())
	assert.Equal(t, a.Ready(), b.Ready())

	next := candle.Candle{Close: 8}
	assert.Equal(t, a.Next(next), b.Next(next))
}

func TestRSIAllGainsIs100(t *testing.T) {
	r := NewRSI(14)
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(i) + 1
	}
	var last float64
	for _, c := range closesToCandles(closes) {
		last = r.Next(c)
	}
	assert.True(t, r.Ready())
	assert.InDelta(t, 100.0, last, 1e-9)
}

func TestRSIFlatIs50(t *testing.T) {
	r := NewRSI(14)
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	var last float64
	for _, c := range closesToCandles(closes) {
		last = r.Next(c)
	}
	assert.InDelta(t, 50.0, last, 1e-9)
}

func TestATRWarmup(t *testing.T) {
	a := NewATR(3)
	cs := []candle.Candle{
		{TS: 1, Open: 10, High: 12, Low: 9, Close: 11},
		{TS: 2, Open: 11, High: 13, Low: 10, Close: 12},
	}
	for _, c := range cs {
		a.Next(c)
	}
	assert.False(t, a.Ready())
}

func TestATRDerivedStops(t *testing.T) {
	a := NewATR(1)
	a.Next(candle.Candle{TS: 1, Open: 10, High: 11, Low: 9, Close: 10})
	a.Next(candle.Candle{TS: 2, Open: 10, High: 12, Low: 9, Close: 11})
	require.True(t, a.Ready())
	entry := 100.0
	assert.Less(t, a.LongStop(entry, 1.5), entry)
	assert.Greater(t, a.ShortStop(entry, 1.5), entry)
}

func TestBollingerBandsWiden(t *testing.T) {
	b := NewBollinger(5, 2)
	closes := []float64{10, 10, 10, 10, 10}
	for _, c := range closesToCandles(closes) {
		b.Next(c)
	}
	v := b.Value()
	assert.InDelta(t, 10.0, v.Mean, 1e-9)
	assert.InDelta(t, 10.0, v.Upper, 1e-9)
	assert.InDelta(t, 10.0, v.Lower, 1e-9)
}

func TestBollingerTouchCounter(t *testing.T) {
	b := NewBollinger(3, 1)
	// Build up stable data then spike above upper band repeatedly.
	for _, c := range closesToCandles([]float64{10, 10, 10}) {
		b.Next(c)
	}
	v1 := b.Next(candle.Candle{Close: 1000})
	assert.Equal(t, 1, v1.UpperTouches)
	v2 := b.Next(candle.Candle{Close: 1000})
	assert.Equal(t, 2, v2.UpperTouches)
}

func TestVolumeRatio(t *testing.T) {
	v := NewVolumeRatio(3)
	v.Next(candle.Candle{Volume: 100})
	v.Next(candle.Candle{Volume: 100})
	v.Next(candle.Candle{Volume: 100})
	require.True(t, v.Ready())
	ratio := v.Next(candle.Candle{Volume: 200})
	assert.InDelta(t, 2.0, ratio, 1e-9)
}

func TestIsNewsDriven(t *testing.T) {
	prior := candle.Candle{Open: 100, Close: 110} // +10% bullish
	current := candle.Candle{Open: 110, High: 125, Low: 109, Close: 124}
	assert.True(t, IsNewsDriven(prior, current))

	calm := candle.Candle{Open: 110, High: 112, Low: 108, Close: 111}
	assert.False(t, IsNewsDriven(prior, calm))
}

func TestFakeBreakoutDoesNotCompareBarAgainstItself(t *testing.T) {
	f := NewFakeBreakout(5, 1.5, 1.2)
	for i := 0; i < 5; i++ {
		f.Next(candle.Candle{High: 110, Low: 90, Close: 100, Volume: 100})
	}
	require.True(t, f.Ready())
	// A bar identical to the trailing range never pierces it.
	v := f.Next(candle.Candle{High: 110, Low: 90, Close: 100, Volume: 100})
	assert.False(t, v.Bullish)
	assert.False(t, v.Bearish)
}

func TestEmaDistanceFilterVetoesLongOnBearishStackTooFar(t *testing.T) {
	f := NewEmaDistanceFilter(0.05)
	// ema2 far below ema4, bearish stack (ema2<ema3<ema4), close above ema3.
	v := f.Next(105, 90, 95, 100)
	assert.True(t, v.TooFar)
	assert.Equal(t, EmaStackBearish, v.Stack)
	assert.True(t, v.VetoLong)
	assert.False(t, v.VetoShort)
}
