// Package backtest replays a candle sequence through the same bundle,
// strategy, and risk-state-machine code paths the live execution loop uses,
// producing trade records and shadow-trade statistics for filtered signals.
package backtest

import (
	"github.com/rkvolt/perpswap-engine/internal/risk"
	"github.com/rkvolt/perpswap-engine/internal/strategy"
)

// FilteredSignalOutcome is how a shadow trade resolved.
type FilteredSignalOutcome string

const (
	OutcomePending FilteredSignalOutcome = ""
	OutcomeWin     FilteredSignalOutcome = "WIN"
	OutcomeLoss    FilteredSignalOutcome = "LOSS"
	OutcomeEnd     FilteredSignalOutcome = "END"
)

// FilteredSignal records a would-be signal that was suppressed by a filter,
// plus the hypothetical outcome if it had been traded.
type FilteredSignal struct {
	TS            int64
	Direction     strategy.Direction
	FilterReasons []string
	Outcome       FilteredSignalOutcome
	FinalPnL      float64
	MaxPnL        float64
	MinPnL        float64
}

// BackTestResult is the output of one engine run.
type BackTestResult struct {
	Funds           float64
	WinRate         float64
	TradeCount      int
	TradeRecords    []risk.TradeRecord
	FilteredSignals []FilteredSignal
}
