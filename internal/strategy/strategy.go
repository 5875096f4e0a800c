// Package strategy evaluates indicator bundle output plus recent candle
// history into actionable trading signals.
package strategy

import "github.com/rkvolt/perpswap-engine/internal/candle"

// Direction is the side a signal or condition is biased toward.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionLong
	DirectionShort
)

// SignalResult is the per-candle output of a strategy evaluator. At most one
// of ShouldBuy/ShouldSell is true in the actionable sense; both false means
// "no open signal this bar." FilterReasons is additive metadata explaining
// why a would-be signal was suppressed — a nonempty list with both should-*
// flags false still carries a Direction, for the backtest engine's
// shadow-trade bookkeeping.
type SignalResult struct {
	TS         int64
	Direction  Direction
	ShouldBuy  bool
	ShouldSell bool

	EntryPrice float64

	AtrStop    float64
	AtrTP1     float64
	AtrTP2     float64
	AtrTP3     float64

	SignalKlineStop float64 // long: candle low; short: candle high (engulfing overrides with open)

	LongSignalTakeProfitPrice  float64
	ShortSignalTakeProfitPrice float64

	CounterTrendTP          float64
	HasCounterTrendTP       bool
	MoveStopWhenTouchPrice  float64
	HasMoveStopWhenTouch    bool

	FilterReasons        []string
	DiagnosticSnapshot    string
}

// Actionable reports whether the signal should be handed to the risk state
// machine as a real entry.
func (s SignalResult) Actionable() bool {
	return s.ShouldBuy || s.ShouldSell
}

// Filtered reports whether a would-be signal was suppressed this bar.
func (s SignalResult) Filtered() bool {
	return len(s.FilterReasons) > 0
}

// Evaluator is a strategy family: a pure function of a candle window plus
// the matching indicator bundle's latest values into a SignalResult. This
// generalizes the teacher's stateful strategy.Strategy.OnCandle callback
// into a pure function, since the bundle (not the strategy) now owns all
// per-candle state — the evaluator only reads it.
type Evaluator interface {
	// Name identifies the strategy family ("vegas", "nwe") for logging and
	// the sweep driver's config-hash namespace.
	Name() string
	// MinCandles is the warm-up floor below which Evaluate is not called.
	MinCandles() int
}

// window is a small local alias so strategy files read naturally.
type window = candle.Window
