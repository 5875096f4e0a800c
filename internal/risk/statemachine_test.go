package risk

import (
	"testing"

	"github.com/rkvolt/perpswap-engine/internal/candle"
	"github.com/rkvolt/perpswap-engine/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLong(s *State, entry, low, high, stop float64) {
	sig := strategy.SignalResult{
		TS: 1, EntryPrice: entry, ShouldBuy: true,
		SignalKlineStop: stop,
	}
	s.OnCandle(candle.Candle{TS: 1, Open: entry, High: high, Low: low, Close: entry}, sig)
}

func TestOpenLongFromSignal(t *testing.T) {
	s := NewState(DefaultConfig())
	openLong(s, 100, 99, 101, 95)
	require.NotNil(t, s.Position)
	assert.Equal(t, SideLong, s.Position.Side)
	assert.InDelta(t, s.cfg.InitialFunds/100, s.Position.Size, 1e-9)
}

func TestMoveStopTrippedTakesPriorityOverEverything(t *testing.T) {
	s := NewState(DefaultConfig())
	openLong(s, 100, 99, 101, 50) // far signal-kline stop so it never fires
	s.Position.MoveStopOpenPrice = ptr(100.0)
	// Also satisfies max-loss stop (profit_pct << -5%) if move-stop weren't checked first.
	s.OnCandle(candle.Candle{TS: 2, Open: 60, High: 101, Low: 60, Close: 60}, strategy.SignalResult{})
	require.Len(t, s.TradeRecords, 1)
	assert.Equal(t, ReasonMoveStopTripped, s.TradeRecords[0].Reason)
	assert.Equal(t, 0.0, s.TradeRecords[0].GrossProfit)
}

func TestMoveStopTriggerArmsBreakEvenWithoutClosing(t *testing.T) {
	s := NewState(DefaultConfig())
	openLong(s, 100, 99, 101, 50)
	s.Position.MoveStopTriggerPrice = ptr(110.0)
	s.OnCandle(candle.Candle{TS: 2, Open: 105, High: 111, Low: 104, Close: 108}, strategy.SignalResult{})
	require.NotNil(t, s.Position)
	require.NotNil(t, s.Position.MoveStopOpenPrice)
	assert.Equal(t, 100.0, *s.Position.MoveStopOpenPrice)
	assert.Empty(t, s.TradeRecords)
}

func TestAtrRatioTakeProfitCloses(t *testing.T) {
	s := NewState(DefaultConfig())
	openLong(s, 100, 99, 101, 50)
	s.Position.AtrTakeRatioProfitPrice = ptr(120.0)
	s.OnCandle(candle.Candle{TS: 2, Open: 115, High: 121, Low: 114, Close: 118}, strategy.SignalResult{})
	require.Len(t, s.TradeRecords, 1)
	assert.Equal(t, ReasonAtrRatioTakeProfit, s.TradeRecords[0].Reason)
	assert.Equal(t, 120.0, s.TradeRecords[0].ExitPrice)
}

func TestSignalKlineStopCloses(t *testing.T) {
	s := NewState(DefaultConfig())
	openLong(s, 100, 99, 101, 95)
	s.OnCandle(candle.Candle{TS: 2, Open: 96, High: 97, Low: 90, Close: 94}, strategy.SignalResult{})
	require.Len(t, s.TradeRecords, 1)
	assert.Equal(t, ReasonSignalKlineStop, s.TradeRecords[0].Reason)
}

func TestMaxLossStopClosesAtOpen(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLossPercent = 0.05
	s := NewState(cfg)
	openLong(s, 100, 99, 101, 1) // signal-kline stop unreachable so max-loss fires
	s.OnCandle(candle.Candle{TS: 2, Open: 95, High: 96, Low: 90, Close: 93}, strategy.SignalResult{})
	require.Len(t, s.TradeRecords, 1)
	assert.Equal(t, ReasonMaxLossStop, s.TradeRecords[0].Reason)
	assert.Equal(t, 95.0, s.TradeRecords[0].ExitPrice)
}

func TestCloseAtEndUsesEndOfBacktestReason(t *testing.T) {
	s := NewState(DefaultConfig())
	openLong(s, 100, 99, 101, 1)
	s.CloseAtEnd(candle.Candle{TS: 99, Close: 102})
	require.Len(t, s.TradeRecords, 1)
	assert.Equal(t, ReasonEndOfBacktest, s.TradeRecords[0].Reason)
	assert.Nil(t, s.Position)
}

func TestNoPositionNoSignalIsNoop(t *testing.T) {
	s := NewState(DefaultConfig())
	s.OnCandle(candle.Candle{TS: 1, Close: 100}, strategy.SignalResult{})
	assert.Nil(t, s.Position)
	assert.Empty(t, s.TradeRecords)
}

func TestShortPositionLadderMirrorsLong(t *testing.T) {
	s := NewState(DefaultConfig())
	sig := strategy.SignalResult{TS: 1, EntryPrice: 100, ShouldSell: true, SignalKlineStop: 105}
	s.OnCandle(candle.Candle{TS: 1, Open: 100, High: 101, Low: 99, Close: 100}, sig)
	require.NotNil(t, s.Position)
	assert.Equal(t, SideShort, s.Position.Side)

	s.OnCandle(candle.Candle{TS: 2, Open: 104, High: 106, Low: 103, Close: 106}, strategy.SignalResult{})
	require.Len(t, s.TradeRecords, 1)
	assert.Equal(t, ReasonSignalKlineStop, s.TradeRecords[0].Reason)
	// Shorting into a loss: exit (105) above entry (100) is a loss for a short.
	assert.Less(t, s.TradeRecords[0].NetProfit, 0.0)
}
