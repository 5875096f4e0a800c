package strategy

import (
	"fmt"

	"github.com/rkvolt/perpswap-engine/internal/candle"
	"github.com/rkvolt/perpswap-engine/internal/indicator"
)

// NWEConfig carries the NWE strategy's tunables.
type NWEConfig struct {
	RsiOversold       float64
	RsiOverbought     float64
	AtrStopMultiplier float64
}

// DefaultNWEConfig returns the reference implementation's defaults.
func DefaultNWEConfig() NWEConfig {
	return NWEConfig{RsiOversold: 30, RsiOverbought: 70, AtrStopMultiplier: 1.5}
}

// NWEEvaluator implements the Nadaraya-Watson-envelope strategy family.
type NWEEvaluator struct {
	cfg        NWEConfig
	minCandles int
}

// NewNWEEvaluator builds an evaluator with the given config and warm-up floor.
func NewNWEEvaluator(cfg NWEConfig, minCandles int) *NWEEvaluator {
	return &NWEEvaluator{cfg: cfg, minCandles: minCandles}
}

func (n *NWEEvaluator) Name() string    { return "nwe" }
func (n *NWEEvaluator) MinCandles() int { return n.minCandles }

// Evaluate implements the long/short entry conditions, Vegas-EMA trend
// filter, and stop/move-stop-trigger attachment described in spec §4.D.
func (n *NWEEvaluator) Evaluate(win candle.Window, bv indicator.NWEBundleValues) SignalResult {
	cur, ok := win.Last()
	if !ok || len(win) < 2 {
		return SignalResult{}
	}
	prev := win[len(win)-2]

	sig := SignalResult{TS: cur.TS, EntryPrice: cur.Close}

	longCond := prev.Close < bv.NWE.Lower && !prev.Bullish() &&
		cur.Close > bv.NWE.Lower && prev.Close <= bv.NWE.Lower &&
		cur.Close < bv.NWE.Mid && !bv.Candlestick.HangingMan && bv.RSI < n.cfg.RsiOversold

	shortCond := prev.Close > bv.NWE.Upper && prev.Bullish() &&
		cur.Close < bv.NWE.Upper && prev.Close >= bv.NWE.Upper &&
		cur.Close > bv.NWE.Mid && !bv.Candlestick.Hammer && bv.RSI > n.cfg.RsiOverbought

	trendFilter := DirectionNone
	if bv.EMA12 > bv.EMA144 && bv.EMA144 > bv.EMA169 {
		trendFilter = DirectionLong
	} else if bv.EMA12 < bv.EMA144 && bv.EMA144 < bv.EMA169 {
		trendFilter = DirectionShort
	}

	switch {
	case longCond:
		if trendFilter == DirectionShort {
			sig.FilterReasons = append(sig.FilterReasons, "vegas_ema_trend_filter_blocks_long")
			sig.Direction = DirectionLong
			return sig
		}
		sig.Direction = DirectionLong
		sig.ShouldBuy = true
	case shortCond:
		if trendFilter == DirectionLong {
			sig.FilterReasons = append(sig.FilterReasons, "vegas_ema_trend_filter_blocks_short")
			sig.Direction = DirectionShort
			return sig
		}
		sig.Direction = DirectionShort
		sig.ShouldSell = true
	default:
		return sig
	}

	if sig.ShouldBuy {
		sig.AtrStop = cur.Close - n.cfg.AtrStopMultiplier*bv.ATR
	} else {
		sig.AtrStop = cur.Close + n.cfg.AtrStopMultiplier*bv.ATR
	}
	sig.MoveStopWhenTouchPrice = bv.NWE.Mid
	sig.HasMoveStopWhenTouch = true
	sig.DiagnosticSnapshot = fmt.Sprintf("nwe ts=%d close=%.6f mid=%.6f rsi=%.2f", cur.TS, cur.Close, bv.NWE.Mid, bv.RSI)
	return sig
}
