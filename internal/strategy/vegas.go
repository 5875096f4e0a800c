package strategy

import (
	"fmt"
	"math"

	"github.com/rkvolt/perpswap-engine/internal/candle"
	"github.com/rkvolt/perpswap-engine/internal/indicator"
	"github.com/rkvolt/perpswap-engine/internal/markethours"
)

// condition is one fired-or-not test in the Vegas voting table.
type condition struct {
	name      string
	fired     bool
	direction Direction
	weight    float64
}

// VegasConfig carries every tunable the Vegas condition table and filter
// overlay reads. Field names mirror the condition names in spec §4.D so a
// sweep's parameter grid can address them directly.
type VegasConfig struct {
	EmaBreakthroughThreshold float64 // typ. 0.003 (0.3%)
	WeightSimpleBreakEma2    float64

	VolumeIncreaseRatio float64
	WeightVolumeTrend   float64

	EmaTrendBandRatio float64
	WeightEmaTrend    float64

	RsiOversold   float64
	RsiOverbought float64
	WeightRsi     float64

	WeightBolling float64

	EngulfingBodyRatioThreshold float64
	WeightEngulfing             float64

	HammerMinAmplitude float64
	HammerMinVolume    float64
	WeightKlineHammer  float64

	FakeBreakoutMinVolumeRatio float64
	WeightFakeBreakout         float64

	WeightLegDetection float64

	MinTotalWeight float64

	UseCounterTrendTP    bool
	AtrStopMultiplier    float64
	AtrTakeProfitRatios  [3]float64

	VolumeDecreasingFilterEnabled bool

	Period4H bool // Bolling's EMA_1-side filter is skipped on the 4H period
}

// DefaultVegasConfig returns the reference implementation's defaults.
func DefaultVegasConfig() VegasConfig {
	return VegasConfig{
		EmaBreakthroughThreshold: 0.003,
		WeightSimpleBreakEma2:    1.0,
		VolumeIncreaseRatio:      1.2,
		WeightVolumeTrend:        0.5,
		EmaTrendBandRatio:        0.01,
		WeightEmaTrend:           1.0,
		RsiOversold:              30,
		RsiOverbought:            70,
		WeightRsi:                1.0,
		WeightBolling:            1.0,
		EngulfingBodyRatioThreshold: 1.2,
		WeightEngulfing:             1.0,
		HammerMinAmplitude:          0.6,
		HammerMinVolume:             1.0,
		WeightKlineHammer:           1.0,
		FakeBreakoutMinVolumeRatio:  1.2,
		WeightFakeBreakout:          1.5,
		WeightLegDetection:          0.5,
		MinTotalWeight:              2.0,
		UseCounterTrendTP:           false,
		AtrStopMultiplier:           1.5,
		AtrTakeProfitRatios:         [3]float64{1.0, 2.0, 3.0},
	}
}

// VegasEvaluator implements the Vegas strategy family.
type VegasEvaluator struct {
	cfg           VegasConfig
	minCandles    int
	businessHours *markethours.Window
}

// NewVegasEvaluator builds an evaluator with the given config and warm-up
// floor (window length required before Evaluate is called).
func NewVegasEvaluator(cfg VegasConfig, minCandles int) *VegasEvaluator {
	return &VegasEvaluator{cfg: cfg, minCandles: minCandles}
}

// SetBusinessHours gates the Rsi condition to w, in addition to the
// per-bar news-driven suppression: a bar outside w is treated the same as
// a news-driven one. nil (the default) disables the gate, matching
// backtest/sweep replay where every historical bar must be evaluated.
func (v *VegasEvaluator) SetBusinessHours(w *markethours.Window) {
	v.businessHours = w
}

func (v *VegasEvaluator) Name() string     { return "vegas" }
func (v *VegasEvaluator) MinCandles() int  { return v.minCandles }

// Evaluate assembles the Vegas condition table against win (ending at the
// candle under evaluation) and bv, scores it, and returns the resulting
// signal with stop/take-profit hints attached.
func (v *VegasEvaluator) Evaluate(win candle.Window, bv indicator.VegasBundleValues) SignalResult {
	cfg := v.cfg
	cur, ok := win.Last()
	if !ok {
		return SignalResult{}
	}
	var prev candle.Candle
	havePrev := len(win) >= 2
	if havePrev {
		prev = win[len(win)-2]
	}

	conds := make([]condition, 0, 9)

	// SimpleBreakEma2through
	ema2 := bv.EMA[1]
	if havePrev && ema2 != 0 {
		curSide := (cur.Close - ema2) / ema2
		prevSide := (prev.Close - ema2) / ema2
		if math.Abs(curSide) >= cfg.EmaBreakthroughThreshold && (curSide > 0) != (prevSide > 0) {
			dir := DirectionLong
			if curSide < 0 {
				dir = DirectionShort
			}
			conds = append(conds, condition{"SimpleBreakEma2through", true, dir, cfg.WeightSimpleBreakEma2})
		}
	}

	// VolumeTrend
	if bv.VolumeRatio > cfg.VolumeIncreaseRatio {
		dir := DirectionLong
		if cur.Close < cur.Open {
			dir = DirectionShort
		}
		conds = append(conds, condition{"VolumeTrend", true, dir, cfg.WeightVolumeTrend})
	}

	// EmaTrend: touch-and-bounce against EMA_2/EMA_4/EMA_5/EMA_7.
	if dir, fired := emaTrendTouchBounce(cur, bv, cfg.EmaTrendBandRatio); fired {
		conds = append(conds, condition{"EmaTrend", true, dir, cfg.WeightEmaTrend})
	}

	// Rsi, suppressed on a news-driven bar or outside business hours.
	outsideHours := v.businessHours != nil && !v.businessHours.Contains(cur.TS)
	if !outsideHours && !(havePrev && indicator.IsNewsDriven(prev, cur)) {
		if bv.RSI < cfg.RsiOversold {
			conds = append(conds, condition{"Rsi", true, DirectionLong, cfg.WeightRsi})
		} else if bv.RSI > cfg.RsiOverbought {
			conds = append(conds, condition{"Rsi", true, DirectionShort, cfg.WeightRsi})
		}
	}

	// Bolling
	if dir, fired := vegasBolling(cur, bv, cfg); fired {
		conds = append(conds, condition{"Bolling", true, dir, cfg.WeightBolling})
	}

	// Engulfing
	engulfingFired := bv.Candlestick.Engulfing && bv.Candlestick.BodyRatio >= cfg.EngulfingBodyRatioThreshold
	if engulfingFired {
		dir := DirectionShort
		if bv.Candlestick.EngulfingBull {
			dir = DirectionLong
		}
		conds = append(conds, condition{"Engulfing", true, dir, cfg.WeightEngulfing})
	}

	// KlineHammer: fires unless the EMA stack already points the same way
	// as the hammer/hanging-man's implied reversal; a flat stack counts as
	// disagreement, so only trend confirmation is excluded.
	emaDir := emaStackDirection(bv.EmaDistance.Stack)
	if (bv.Candlestick.Hammer || bv.Candlestick.HangingMan) &&
		bv.Candlestick.Amplitude >= cfg.HammerMinAmplitude && bv.VolumeRatio >= cfg.HammerMinVolume {
		dir := DirectionLong
		if bv.Candlestick.HangingMan && !bv.Candlestick.Hammer {
			dir = DirectionShort
		}
		if emaDir == DirectionNone || emaDir != dir {
			conds = append(conds, condition{"KlineHammer", true, dir, cfg.WeightKlineHammer})
		}
	}

	// FakeBreakout
	if bv.FakeBreakout.Bullish {
		conds = append(conds, condition{"FakeBreakout", true, DirectionLong, cfg.WeightFakeBreakout})
	}
	if bv.FakeBreakout.Bearish {
		conds = append(conds, condition{"FakeBreakout", true, DirectionShort, cfg.WeightFakeBreakout})
	}

	// LegDetection
	if bv.Leg.IsNewLeg {
		dir := DirectionLong
		if bv.Leg.CurrentLeg == indicator.LegBearish {
			dir = DirectionShort
		}
		conds = append(conds, condition{"LegDetection", true, dir, cfg.WeightLegDetection})
	}

	var totalScore, longScore, shortScore float64
	for _, c := range conds {
		totalScore += c.weight
		switch c.direction {
		case DirectionLong:
			longScore += c.weight
		case DirectionShort:
			shortScore += c.weight
		}
	}

	sig := SignalResult{TS: cur.TS, EntryPrice: cur.Close}

	if totalScore >= cfg.MinTotalWeight && longScore > shortScore {
		sig.Direction = DirectionLong
		sig.ShouldBuy = true
	} else if totalScore >= cfg.MinTotalWeight && shortScore > longScore {
		sig.Direction = DirectionShort
		sig.ShouldSell = true
	} else {
		return sig
	}

	// Filter overlay.
	if bv.EmaDistance.VetoLong && sig.ShouldBuy {
		sig.FilterReasons = append(sig.FilterReasons, "ema_distance_veto_long")
		sig.ShouldBuy = false
	}
	if bv.EmaDistance.VetoShort && sig.ShouldSell {
		sig.FilterReasons = append(sig.FilterReasons, "ema_distance_veto_short")
		sig.ShouldSell = false
	}
	if cfg.VolumeDecreasingFilterEnabled && volumeStrictlyDecreasing(win) && !bv.FakeBreakout.Bullish && !bv.FakeBreakout.Bearish {
		sig.FilterReasons = append(sig.FilterReasons, "volume_decreasing_veto")
		sig.ShouldBuy, sig.ShouldSell = false, false
	}

	if !sig.ShouldBuy && !sig.ShouldSell {
		return sig
	}

	v.attachExits(&sig, cur, bv, emaDir, engulfingFired)
	return sig
}

func (v *VegasEvaluator) attachExits(sig *SignalResult, cur candle.Candle, bv indicator.VegasBundleValues, emaDir Direction, engulfing bool) {
	cfg := v.cfg

	if sig.ShouldBuy {
		sig.SignalKlineStop = cur.Low
	} else {
		sig.SignalKlineStop = cur.High
	}
	if engulfing {
		sig.SignalKlineStop = cur.Open
	}

	if sig.ShouldBuy {
		sig.AtrStop = cur.Close - cfg.AtrStopMultiplier*bv.ATR
		sig.AtrTP1 = cur.Close + cfg.AtrTakeProfitRatios[0]*bv.ATR
		sig.AtrTP2 = cur.Close + cfg.AtrTakeProfitRatios[1]*bv.ATR
		sig.AtrTP3 = cur.Close + cfg.AtrTakeProfitRatios[2]*bv.ATR
	} else {
		sig.AtrStop = cur.Close + cfg.AtrStopMultiplier*bv.ATR
		sig.AtrTP1 = cur.Close - cfg.AtrTakeProfitRatios[0]*bv.ATR
		sig.AtrTP2 = cur.Close - cfg.AtrTakeProfitRatios[1]*bv.ATR
		sig.AtrTP3 = cur.Close - cfg.AtrTakeProfitRatios[2]*bv.ATR
	}

	if cfg.UseCounterTrendTP {
		signalDir := DirectionLong
		if sig.ShouldSell {
			signalDir = DirectionShort
		}
		if emaDir != DirectionNone && emaDir != signalDir {
			sig.HasCounterTrendTP = true
			if sig.ShouldBuy {
				sig.CounterTrendTP = cur.Close + cfg.AtrTakeProfitRatios[0]*bv.ATR*0.5
			} else {
				sig.CounterTrendTP = cur.Close - cfg.AtrTakeProfitRatios[0]*bv.ATR*0.5
			}
		}
	}

	sig.DiagnosticSnapshot = fmt.Sprintf("vegas ts=%d close=%.6f rsi=%.2f atr=%.6f", cur.TS, cur.Close, bv.RSI, bv.ATR)
}

func emaStackDirection(stack indicator.EmaStack) Direction {
	switch stack {
	case indicator.EmaStackBullish:
		return DirectionLong
	case indicator.EmaStackBearish:
		return DirectionShort
	default:
		return DirectionNone
	}
}

// emaTrendTouchBounce tests whether the candle touched and bounced off one
// of the EMA_2/EMA_4/EMA_5/EMA_7 lines within bandRatio of the line.
func emaTrendTouchBounce(c candle.Candle, bv indicator.VegasBundleValues, bandRatio float64) (Direction, bool) {
	lines := []float64{bv.EMA[1], bv.EMA[3], bv.EMA[4], bv.EMA[6]}
	for _, ema := range lines {
		if ema == 0 {
			continue
		}
		band := ema * bandRatio
		touchedFromAbove := c.Low <= ema+band && c.Close > ema
		touchedFromBelow := c.High >= ema-band && c.Close < ema
		if touchedFromAbove {
			return DirectionLong, true
		}
		if touchedFromBelow {
			return DirectionShort, true
		}
	}
	return DirectionNone, false
}

func vegasBolling(c candle.Candle, bv indicator.VegasBundleValues, cfg VegasConfig) (Direction, bool) {
	if c.Low < bv.Bollinger.Lower {
		if wrongSideOfEma1(c, bv, cfg, DirectionLong) || smallBodyDualShadow(c) {
			return DirectionNone, false
		}
		return DirectionLong, true
	}
	if c.High > bv.Bollinger.Upper {
		if wrongSideOfEma1(c, bv, cfg, DirectionShort) || smallBodyDualShadow(c) {
			return DirectionNone, false
		}
		return DirectionShort, true
	}
	return DirectionNone, false
}

func wrongSideOfEma1(c candle.Candle, bv indicator.VegasBundleValues, cfg VegasConfig, dir Direction) bool {
	if cfg.Period4H {
		return false
	}
	ema1 := bv.EMA[0]
	if dir == DirectionLong {
		return c.Close < ema1
	}
	return c.Close > ema1
}

func smallBodyDualShadow(c candle.Candle) bool {
	rng := c.Range()
	if rng <= 0 {
		return false
	}
	bodyRatio := c.Body() / rng
	return bodyRatio < 0.2 && c.UpperShadow() > c.Body() && c.LowerShadow() > c.Body()
}

func volumeStrictlyDecreasing(win candle.Window) bool {
	if len(win) < 3 {
		return false
	}
	last3 := win.Tail(3)
	return last3[0].Volume > last3[1].Volume && last3[1].Volume > last3[2].Volume
}
