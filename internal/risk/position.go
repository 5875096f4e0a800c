// Package risk implements the position/risk state machine: it turns a
// strategy signal into an entry, walks a strict ordered exit-condition
// ladder on every subsequent candle, and closes the position into a
// TradeRecord.
package risk

import "github.com/rkvolt/perpswap-engine/internal/strategy"

// Side is the direction of an open position.
type Side int

const (
	SideLong Side = iota
	SideShort
)

// AtrTakeProfitLevels is the multi-level ATR take-profit ladder. Only L1 is
// acted on by the current ladder (reached_take_profit_level exists for
// future partial-close extension, per spec §4.E) — L2/L3 are carried for
// that extension point and are not read by checkExit.
type AtrTakeProfitLevels [3]float64

// Position is the single open trade for one (instrument, period, strategy)
// key. At most one may exist per key at a time.
type Position struct {
	Side       Side
	EntryPrice float64
	Size       float64
	EntryTS    int64

	// SignalKlineStop is the stored pre-stop: for longs the entry candle's
	// low, for shorts its high (engulfing overrides with the open).
	SignalKlineStop float64

	AtrStop             float64
	AtrTakeProfitLevels AtrTakeProfitLevels
	ReachedTakeProfitLevel int

	// MoveStopOpenPrice is nil until the move-stop trigger arms it at the
	// entry price (break-even).
	MoveStopOpenPrice *float64
	// MoveStopTriggerPrice is the price that, once touched, arms
	// MoveStopOpenPrice. Nil if the signal did not request move-stop.
	MoveStopTriggerPrice *float64

	// AtrTakeRatioProfitPrice is the single-number ATR ratio take-profit
	// price (AtrTakeProfitLevels[0] copied in at open for ladder clarity).
	AtrTakeRatioProfitPrice *float64
	// FixedTakeProfitPrice is a fixed signal-kline-ratio take-profit, set
	// by configuration rather than by the signal itself.
	FixedTakeProfitPrice *float64

	LongSignalTakeProfitPrice  *float64
	ShortSignalTakeProfitPrice *float64

	CounterTrendPullbackTakeProfitPrice *float64

	ClosePrice *float64
}

// openFromSignal builds a new Position from a fired SignalResult.
func openFromSignal(side Side, sig strategy.SignalResult, size float64) *Position {
	p := &Position{
		Side:                side,
		EntryPrice:          sig.EntryPrice,
		Size:                size,
		EntryTS:             sig.TS,
		SignalKlineStop:     sig.SignalKlineStop,
		AtrStop:             sig.AtrStop,
		AtrTakeProfitLevels: AtrTakeProfitLevels{sig.AtrTP1, sig.AtrTP2, sig.AtrTP3},
	}
	if sig.AtrTP1 != 0 {
		p.AtrTakeRatioProfitPrice = ptr(sig.AtrTP1)
	}
	if sig.HasMoveStopWhenTouch {
		p.MoveStopTriggerPrice = ptr(sig.MoveStopWhenTouchPrice)
	}
	if side == SideLong && sig.LongSignalTakeProfitPrice != 0 {
		p.LongSignalTakeProfitPrice = ptr(sig.LongSignalTakeProfitPrice)
	}
	if side == SideShort && sig.ShortSignalTakeProfitPrice != 0 {
		p.ShortSignalTakeProfitPrice = ptr(sig.ShortSignalTakeProfitPrice)
	}
	if sig.HasCounterTrendTP {
		p.CounterTrendPullbackTakeProfitPrice = ptr(sig.CounterTrendTP)
	}
	return p
}

func ptr[T any](v T) *T { return &v }
