package strategy

import (
	"testing"

	"github.com/rkvolt/perpswap-engine/internal/candle"
	"github.com/rkvolt/perpswap-engine/internal/indicator"
	"github.com/stretchr/testify/assert"
)

func TestNWEEvaluateLongCondition(t *testing.T) {
	e := NewNWEEvaluator(DefaultNWEConfig(), 1)
	win := candle.Window{
		{TS: 1, Open: 102, High: 103, Low: 94, Close: 94}, // bearish, closed below lower (95)
		{TS: 2, Open: 95, High: 97, Low: 94, Close: 96},   // crossed back above lower, still below mid
	}
	bv := indicator.NWEBundleValues{
		NWE:  indicator.NWEValue{Lower: 95, Mid: 100, Upper: 105},
		RSI:  20,
		ATR:  2,
		EMA12: 100, EMA144: 100, EMA169: 100,
	}
	sig := e.Evaluate(win, bv)
	assert.True(t, sig.ShouldBuy)
	assert.True(t, sig.HasMoveStopWhenTouch)
	assert.Equal(t, 100.0, sig.MoveStopWhenTouchPrice)
}

func TestNWETrendFilterBlocksLong(t *testing.T) {
	e := NewNWEEvaluator(DefaultNWEConfig(), 1)
	win := candle.Window{
		{TS: 1, Open: 102, High: 103, Low: 94, Close: 94},
		{TS: 2, Open: 95, High: 97, Low: 94, Close: 96},
	}
	bv := indicator.NWEBundleValues{
		NWE:  indicator.NWEValue{Lower: 95, Mid: 100, Upper: 105},
		RSI:  20,
		ATR:  2,
		EMA12: 90, EMA144: 100, EMA169: 110, // strictly bearish stack
	}
	sig := e.Evaluate(win, bv)
	assert.False(t, sig.ShouldBuy)
	assert.Contains(t, sig.FilterReasons, "vegas_ema_trend_filter_blocks_long")
}

func TestNWENoSignalWhenNotCrossing(t *testing.T) {
	e := NewNWEEvaluator(DefaultNWEConfig(), 1)
	win := candle.Window{
		{TS: 1, Open: 101, High: 102, Low: 100, Close: 101},
		{TS: 2, Open: 101, High: 102, Low: 100, Close: 101},
	}
	bv := indicator.NWEBundleValues{
		NWE: indicator.NWEValue{Lower: 95, Mid: 100, Upper: 105},
		RSI: 50,
	}
	sig := e.Evaluate(win, bv)
	assert.False(t, sig.Actionable())
}
