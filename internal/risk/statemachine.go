package risk

import (
	"github.com/rkvolt/perpswap-engine/internal/candle"
	"github.com/rkvolt/perpswap-engine/internal/strategy"
)

// Config is the risk parameterization that does not travel with any one
// signal: initial funds and the max-loss stop threshold.
type Config struct {
	InitialFunds   float64
	MaxLossPercent float64
}

// DefaultConfig returns the reference implementation's defaults.
func DefaultConfig() Config {
	return Config{InitialFunds: 100, MaxLossPercent: 0.05}
}

// State is the per-(instrument, period, strategy) trading state: at most one
// open position, a funds ledger, and the closed-trade log.
type State struct {
	Position     *Position
	Ledger       *Ledger
	TradeRecords []TradeRecord
	cfg          Config
}

// NewState builds a fresh state machine with the given config.
func NewState(cfg Config) *State {
	return &State{Ledger: NewLedger(cfg.InitialFunds), cfg: cfg}
}

// OnCandle advances the state machine by exactly one candle. If no position
// is open and sig is actionable, it opens one. If a position is open, it
// walks the exit ladder in spec order (first match wins) and may close the
// position, appending a TradeRecord.
func (s *State) OnCandle(c candle.Candle, sig strategy.SignalResult) {
	if s.Position == nil {
		switch {
		case sig.ShouldBuy:
			size := s.Ledger.Funds() / sig.EntryPrice
			s.Position = openFromSignal(SideLong, sig, size)
		case sig.ShouldSell:
			size := s.Ledger.Funds() / sig.EntryPrice
			s.Position = openFromSignal(SideShort, sig, size)
		}
		return
	}
	s.checkExit(c, sig)
}

// checkExit implements the ordered ladder from spec §4.E / original_source
// risk.rs check_risk_config, in the exact order given there: move-stop
// tripped, move-stop trigger arm, ATR-ratio TP, fixed-signal-kline TP,
// long/short indicator TP, counter-trend TP, signal-kline stop, max-loss
// stop. The first condition that matches closes the position and returns;
// everything after it is not evaluated this bar.
func (s *State) checkExit(c candle.Candle, sig strategy.SignalResult) {
	p := s.Position
	entry := p.EntryPrice

	// 1. Move-stop tripped.
	if p.MoveStopOpenPrice != nil {
		trip := *p.MoveStopOpenPrice
		if (p.Side == SideLong && c.Low <= trip) || (p.Side == SideShort && c.High >= trip) {
			s.close(c, trip, 0, ReasonMoveStopTripped)
			return
		}
	} else if p.MoveStopTriggerPrice != nil {
		// 2. Move-stop trigger hit: arm break-even, no close this bar.
		touch := *p.MoveStopTriggerPrice
		if (p.Side == SideLong && c.High >= touch) || (p.Side == SideShort && c.Low <= touch) {
			p.MoveStopOpenPrice = ptr(entry)
		}
	}

	// 3. ATR-ratio take-profit.
	if p.AtrTakeRatioProfitPrice != nil {
		touch := *p.AtrTakeRatioProfitPrice
		if p.Side == SideLong && c.High >= touch {
			s.close(c, touch, grossProfit(p.Side, entry, touch, p.Size), ReasonAtrRatioTakeProfit)
			return
		}
		if p.Side == SideShort && c.Low <= touch {
			s.close(c, touch, grossProfit(p.Side, entry, touch, p.Size), ReasonAtrRatioTakeProfit)
			return
		}
	}

	// 4. Fixed-signal-kline take-profit.
	if p.FixedTakeProfitPrice != nil {
		touch := *p.FixedTakeProfitPrice
		if p.Side == SideLong && c.High > touch {
			s.close(c, touch, grossProfit(p.Side, entry, touch, p.Size), ReasonFixedSignalTakeProfit)
			return
		}
		if p.Side == SideShort && c.Low < touch {
			s.close(c, touch, grossProfit(p.Side, entry, touch, p.Size), ReasonFixedSignalTakeProfit)
			return
		}
	}

	// 5. Long/short indicator take-profit.
	profit := grossProfit(p.Side, entry, c.Close, p.Size)
	if p.Side == SideLong && p.LongSignalTakeProfitPrice != nil && c.High > *p.LongSignalTakeProfitPrice {
		s.close(c, *p.LongSignalTakeProfitPrice, profit, ReasonLongIndicatorTP)
		return
	}
	if p.Side == SideShort && p.ShortSignalTakeProfitPrice != nil && c.Low < *p.ShortSignalTakeProfitPrice {
		s.close(c, *p.ShortSignalTakeProfitPrice, profit, ReasonShortIndicatorTP)
		return
	}

	// 6. Counter-trend pullback take-profit.
	if p.CounterTrendPullbackTakeProfitPrice != nil {
		touch := *p.CounterTrendPullbackTakeProfitPrice
		if p.Side == SideLong && c.High >= touch {
			s.close(c, touch, grossProfit(p.Side, entry, touch, p.Size), ReasonCounterTrendTP)
			return
		}
		if p.Side == SideShort && c.Low <= touch {
			s.close(c, touch, grossProfit(p.Side, entry, touch, p.Size), ReasonCounterTrendTP)
			return
		}
	}

	// 7. Signal-kline stop.
	if p.Side == SideLong && c.Close <= p.SignalKlineStop {
		s.close(c, p.SignalKlineStop, grossProfit(p.Side, entry, p.SignalKlineStop, p.Size), ReasonSignalKlineStop)
		return
	}
	if p.Side == SideShort && c.Close >= p.SignalKlineStop {
		s.close(c, p.SignalKlineStop, grossProfit(p.Side, entry, p.SignalKlineStop, p.Size), ReasonSignalKlineStop)
		return
	}

	// 8. Max-loss stop, evaluated against the worst excursion this bar.
	profitPct := longShortExcursionPct(p.Side, entry, c)
	if profitPct < -s.cfg.MaxLossPercent {
		s.close(c, c.Open, grossProfit(p.Side, entry, c.Open, p.Size), ReasonMaxLossStop)
	}
}

func longShortExcursionPct(side Side, entry float64, c candle.Candle) float64 {
	if side == SideLong {
		return (c.Low - entry) / entry
	}
	return (entry - c.High) / entry
}

// CloseAtEnd force-closes any open position at the final candle's close,
// the spec §4.E end-of-backtest rule.
func (s *State) CloseAtEnd(c candle.Candle) {
	if s.Position == nil {
		return
	}
	p := s.Position
	profit := grossProfit(p.Side, p.EntryPrice, c.Close, p.Size)
	s.close(c, c.Close, profit, ReasonEndOfBacktest)
}

func (s *State) close(c candle.Candle, exitPrice, gross float64, reason string) {
	p := s.Position
	fee := computeFee(p.Size, p.EntryPrice)
	net := gross - fee
	rec := TradeRecord{
		Side: p.Side, EntryPrice: p.EntryPrice, ExitPrice: exitPrice,
		EntryTS: p.EntryTS, ExitTS: c.TS, Size: p.Size,
		GrossProfit: gross, Fee: fee, NetProfit: net, Win: net >= 0, Reason: reason,
	}
	s.TradeRecords = append(s.TradeRecords, rec)
	s.Ledger.ApplyTrade(net)
	s.Position = nil
}
