package backtest

import (
	"github.com/rkvolt/perpswap-engine/internal/candle"
	"github.com/rkvolt/perpswap-engine/internal/risk"
	"github.com/rkvolt/perpswap-engine/internal/strategy"
)

// warmupFloor is the bar-index warm-up floor below which the strategy
// evaluator is never called, regardless of window length (spec §4.F).
const warmupFloor = 500

// Engine replays a candle sequence through a bundle + strategy evaluator +
// risk state machine, generic over the bundle's value type V so the same
// engine serves both the Vegas and NWE strategy families without either one
// hardcoded in. Grounded on the teacher's cmd/backtest/main.go replay-loop
// shape, generalized from an indicator-only replay to full strategy+risk
// replay.
type Engine[V any] struct {
	// Advance feeds one candle to the bundle and returns its snapshot.
	Advance func(candle.Candle) V
	// Evaluate runs the strategy evaluator over the current window and the
	// latest bundle snapshot.
	Evaluate func(candle.Window, V) strategy.SignalResult
	// WindowMin is the minimum window length (W) before Evaluate is called.
	WindowMin int
	// Risk carries the initial-funds / max-loss-percent configuration.
	Risk risk.Config
	// HistoryCap bounds the rolling window kept in memory; 0 means
	// unbounded (the whole replayed sequence is kept).
	HistoryCap int
}

// Run replays candles in order and returns the accumulated result. Running
// Run twice on the same Engine configuration and candle slice yields
// bitwise-equal results, since every step is a pure function of the ordered
// candle prefix seen so far.
func (e *Engine[V]) Run(candles []candle.Candle) BackTestResult {
	state := risk.NewState(e.Risk)
	var window candle.Window
	var active []shadowTrade
	var result BackTestResult

	for i, c := range candles {
		bundleValue := e.Advance(c)

		window = append(window, c)
		if e.HistoryCap > 0 && len(window) > e.HistoryCap {
			window = window[len(window)-e.HistoryCap:]
		}

		active = e.updateShadowTrades(active, &result, c)

		if len(window) < e.WindowMin || i < warmupFloor {
			continue
		}

		sig := e.Evaluate(window, bundleValue)

		if sig.Filtered() {
			active = e.openShadowTrade(active, &result, sig)
		}

		if sig.Actionable() || state.Position != nil {
			state.OnCandle(c, sig)
		}
	}

	if len(candles) > 0 {
		last := candles[len(candles)-1]
		state.CloseAtEnd(last)
		e.closeRemainingShadowTrades(active, &result, last)
	}

	result.Funds = state.Ledger.Funds()
	result.WinRate = state.Ledger.WinRate()
	result.TradeRecords = state.TradeRecords
	result.TradeCount = len(state.TradeRecords)
	return result
}

func (e *Engine[V]) updateShadowTrades(active []shadowTrade, result *BackTestResult, c candle.Candle) []shadowTrade {
	kept := active[:0]
	for _, t := range active {
		fs := &result.FilteredSignals[t.resultIdx]
		pnl := t.unrealizedPnL(c)
		if pnl > fs.MaxPnL {
			fs.MaxPnL = pnl
		}
		if pnl < fs.MinPnL {
			fs.MinPnL = pnl
		}
		if closed, outcome, exitPrice := t.checkClose(c); closed {
			fs.Outcome = outcome
			fs.FinalPnL = t.unrealizedPnLAt(exitPrice)
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

func (t shadowTrade) unrealizedPnLAt(price float64) float64 {
	if t.direction == strategy.DirectionShort {
		return t.entryPrice - price
	}
	return price - t.entryPrice
}

func (e *Engine[V]) openShadowTrade(active []shadowTrade, result *BackTestResult, sig strategy.SignalResult) []shadowTrade {
	stop, hasStop, take, hasTake := shadowStopTake(sig)
	idx := len(result.FilteredSignals)
	result.FilteredSignals = append(result.FilteredSignals, FilteredSignal{
		TS: sig.TS, Direction: sig.Direction, FilterReasons: sig.FilterReasons,
	})
	return append(active, shadowTrade{
		resultIdx: idx, direction: sig.Direction, entryPrice: sig.EntryPrice,
		stopPrice: stop, hasStop: hasStop, takePrice: take, hasTake: hasTake,
	})
}

func (e *Engine[V]) closeRemainingShadowTrades(active []shadowTrade, result *BackTestResult, last candle.Candle) {
	for _, t := range active {
		fs := &result.FilteredSignals[t.resultIdx]
		fs.Outcome = OutcomeEnd
		fs.FinalPnL = t.unrealizedPnL(last)
	}
}
