package backtest

import (
	"math"
	"testing"

	"github.com/rkvolt/perpswap-engine/internal/candle"
	"github.com/rkvolt/perpswap-engine/internal/indicator"
	"github.com/rkvolt/perpswap-engine/internal/risk"
	"github.com/rkvolt/perpswap-engine/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func syntheticCandles(n int) []candle.Candle {
	cs := make([]candle.Candle, n)
	price := 100.0
	ts := int64(0)
	for i := 0; i < n; i++ {
		// A gentle sine-like wiggle so RSI/Bollinger/NWE all see real motion.
		delta := math.Sin(float64(i)/17.0) * 2.0
		price += delta * 0.1
		o := price
		c := price + delta*0.05
		hi := math.Max(o, c) + 0.5
		lo := math.Min(o, c) - 0.5
		cs[i] = candle.Candle{TS: ts, Open: o, High: hi, Low: lo, Close: c, Volume: 100 + float64(i%13)*5, Confirm: 1}
		ts += 60_000
	}
	return cs
}

func newVegasEngine() *Engine[indicator.VegasBundleValues] {
	bundle := indicator.NewVegasBundle(indicator.DefaultVegasBundleConfig())
	evaluator := strategy.NewVegasEvaluator(strategy.DefaultVegasConfig(), 200)
	return &Engine[indicator.VegasBundleValues]{
		Advance:   bundle.Next,
		Evaluate:  evaluator.Evaluate,
		WindowMin: 200,
		Risk:      risk.DefaultConfig(),
	}
}

func TestBacktestDeterminism(t *testing.T) {
	candles := syntheticCandles(900)

	r1 := newVegasEngine().Run(candles)
	r2 := newVegasEngine().Run(candles)

	assert.Equal(t, r1.Funds, r2.Funds)
	assert.Equal(t, r1.TradeCount, r2.TradeCount)
	assert.Equal(t, r1.TradeRecords, r2.TradeRecords)
	assert.Equal(t, r1.FilteredSignals, r2.FilteredSignals)
}

func TestBacktestEmptyInput(t *testing.T) {
	r := newVegasEngine().Run(nil)
	assert.Equal(t, risk.DefaultConfig().InitialFunds, r.Funds)
	assert.Equal(t, 0, r.TradeCount)
	assert.Empty(t, r.TradeRecords)
}

func TestBacktestLongRunKeepsFundsFinite(t *testing.T) {
	candles := syntheticCandles(900)
	r := newVegasEngine().Run(candles)
	// Whatever happened mid-run, no position should remain open — every
	// trade record's reason accounts for either a live exit condition or
	// end-of-backtest closeout. We can't assert an exact count without
	// coupling to the synthetic series' exact shape, but the engine must
	// not error and funds must be finite.
	require.False(t, math.IsNaN(r.Funds))
	require.False(t, math.IsInf(r.Funds, 0))
}

func TestBacktestNeverEvaluatesBelowWarmupFloor(t *testing.T) {
	// Fewer candles than the warmup floor: the strategy is never called,
	// so no trade can possibly open.
	candles := syntheticCandles(300)
	r := newVegasEngine().Run(candles)
	assert.Equal(t, 0, r.TradeCount)
}
