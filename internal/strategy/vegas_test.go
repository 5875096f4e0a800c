package strategy

import (
	"testing"
	"time"

	"github.com/rkvolt/perpswap-engine/internal/candle"
	"github.com/rkvolt/perpswap-engine/internal/indicator"
	"github.com/rkvolt/perpswap-engine/internal/markethours"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVegasEvaluateNoConditionsNoSignal(t *testing.T) {
	e := NewVegasEvaluator(DefaultVegasConfig(), 1)
	win := candle.Window{{TS: 1, Open: 100, High: 101, Low: 99, Close: 100}}
	bv := indicator.VegasBundleValues{RSI: 50, EMA: [7]float64{100, 100, 100, 100, 100, 100, 100}}
	sig := e.Evaluate(win, bv)
	assert.False(t, sig.Actionable())
}

func TestVegasEvaluateOversoldRsiPlusVolumeBuys(t *testing.T) {
	cfg := DefaultVegasConfig()
	cfg.MinTotalWeight = 1.0
	e := NewVegasEvaluator(cfg, 1)
	win := candle.Window{
		{TS: 1, Open: 100, High: 101, Low: 99, Close: 100, Volume: 100},
		{TS: 2, Open: 100, High: 102, Low: 98, Close: 101, Volume: 300},
	}
	bv := indicator.VegasBundleValues{
		RSI:         20, // oversold -> long
		VolumeRatio: 2.0, // > 1.2 -> confirms long via the candle's bullish close
		EMA:         [7]float64{100, 100, 100, 100, 100, 100, 100},
	}
	sig := e.Evaluate(win, bv)
	assert.True(t, sig.ShouldBuy)
	assert.False(t, sig.ShouldSell)
	assert.Equal(t, win[1].Low, sig.SignalKlineStop)
}

func TestVegasEngulfingOverridesSignalKlineStopWithOpen(t *testing.T) {
	cfg := DefaultVegasConfig()
	cfg.MinTotalWeight = 0.5
	cfg.EngulfingBodyRatioThreshold = 0.5
	e := NewVegasEvaluator(cfg, 1)
	win := candle.Window{{TS: 1, Open: 105, High: 106, Low: 94, Close: 95}}
	bv := indicator.VegasBundleValues{
		RSI: 50,
		EMA: [7]float64{100, 100, 100, 100, 100, 100, 100},
		Candlestick: indicator.CandlestickValue{Engulfing: true, EngulfingBull: false, BodyRatio: 2.0},
	}
	sig := e.Evaluate(win, bv)
	assert.True(t, sig.ShouldSell)
	assert.Equal(t, win[0].Open, sig.SignalKlineStop)
}

func TestVegasBusinessHoursGateSuppressesRsiOutsideWindow(t *testing.T) {
	cfg := DefaultVegasConfig()
	// SimpleBreakEma2through, VolumeTrend and EmaTrend fire long on this bar
	// for 2.5 in total, so only the Rsi condition can lift it to 3.0.
	cfg.MinTotalWeight = 3.0
	e := NewVegasEvaluator(cfg, 1)
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	win, err := markethours.NewWindow("America/New_York", 7, 22)
	require.NoError(t, err)
	e.SetBusinessHours(win)

	// 03:00 America/New_York, a Tuesday, falls outside the 07:00-22:00 window.
	ts := time.Date(2024, 1, 2, 3, 0, 0, 0, loc).UnixMilli()
	candles := candle.Window{
		{TS: ts - 60_000, Open: 100, High: 101, Low: 99, Close: 100, Volume: 100},
		{TS: ts, Open: 100, High: 102, Low: 98, Close: 101, Volume: 300},
	}
	bv := indicator.VegasBundleValues{
		RSI:         20,
		VolumeRatio: 2.0,
		EMA:         [7]float64{100, 100, 100, 100, 100, 100, 100},
	}
	sig := e.Evaluate(candles, bv)
	assert.False(t, sig.ShouldBuy)
}

func TestVegasEmaDistanceVetoesLong(t *testing.T) {
	cfg := DefaultVegasConfig()
	cfg.MinTotalWeight = 0.5
	e := NewVegasEvaluator(cfg, 1)
	win := candle.Window{{TS: 1, Open: 100, High: 101, Low: 99, Close: 100, Volume: 500}}
	bv := indicator.VegasBundleValues{
		RSI:         20,
		VolumeRatio: 2.0,
		EMA:         [7]float64{100, 100, 100, 100, 100, 100, 100},
		EmaDistance: indicator.EmaDistanceValue{VetoLong: true},
	}
	sig := e.Evaluate(win, bv)
	assert.False(t, sig.ShouldBuy)
	assert.Contains(t, sig.FilterReasons, "ema_distance_veto_long")
}
