package backtest

import (
	"github.com/rkvolt/perpswap-engine/internal/candle"
	"github.com/rkvolt/perpswap-engine/internal/strategy"
)

// shadowTrade is a hypothetical position opened for a filtered signal. It
// runs in parallel to the real position logic without affecting funds.
type shadowTrade struct {
	resultIdx  int // index into BackTestResult.FilteredSignals for this trade
	direction  strategy.Direction
	entryPrice float64
	stopPrice  float64
	takePrice  float64
	hasStop    bool
	hasTake    bool
}

// shadowStopTake derives the stop/take-profit a filtered signal would have
// used. The stop prefers the ATR-derived stop and falls back to the
// signal-kline stop; the take-profit prefers the signal's directional
// take-profit price and falls back to the first ATR take-profit level.
func shadowStopTake(sig strategy.SignalResult) (stop float64, hasStop bool, take float64, hasTake bool) {
	if sig.AtrStop != 0 {
		stop, hasStop = sig.AtrStop, true
	} else if sig.SignalKlineStop != 0 {
		stop, hasStop = sig.SignalKlineStop, true
	}
	switch {
	case sig.Direction == strategy.DirectionLong && sig.LongSignalTakeProfitPrice != 0:
		take, hasTake = sig.LongSignalTakeProfitPrice, true
	case sig.Direction == strategy.DirectionShort && sig.ShortSignalTakeProfitPrice != 0:
		take, hasTake = sig.ShortSignalTakeProfitPrice, true
	case sig.AtrTP1 != 0:
		take, hasTake = sig.AtrTP1, true
	}
	return
}

// unrealizedPnL returns the mark-to-market P&L of the shadow trade against
// c's close, in price units per unit size (size is not tracked for shadow
// trades — only the hypothetical per-unit outcome matters).
func (t shadowTrade) unrealizedPnL(c candle.Candle) float64 {
	if t.direction == strategy.DirectionShort {
		return t.entryPrice - c.Close
	}
	return c.Close - t.entryPrice
}

// checkClose reports whether c's range reaches the shadow trade's stop or
// take-profit this bar, and the outcome/exit price if so.
func (t shadowTrade) checkClose(c candle.Candle) (closed bool, outcome FilteredSignalOutcome, exitPrice float64) {
	if t.direction == strategy.DirectionLong {
		if t.hasStop && c.Low <= t.stopPrice {
			return true, OutcomeLoss, t.stopPrice
		}
		if t.hasTake && c.High >= t.takePrice {
			return true, OutcomeWin, t.takePrice
		}
		return false, OutcomePending, 0
	}
	if t.hasStop && c.High >= t.stopPrice {
		return true, OutcomeLoss, t.stopPrice
	}
	if t.hasTake && c.Low <= t.takePrice {
		return true, OutcomeWin, t.takePrice
	}
	return false, OutcomePending, 0
}
