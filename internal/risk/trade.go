package risk

// Close reasons. The vocabulary (including the Chinese strings) is part of
// the observable contract per spec §3 — the reference implementation's
// reason vocabulary, carried through unchanged so trade records remain
// comparable across the two implementations.
const (
	ReasonMoveStopTripped       = "移动(开仓价格止损)"
	ReasonAtrRatioTakeProfit    = "atr按收益比例止盈"
	ReasonFixedSignalTakeProfit = "固定信号线比例止盈"
	ReasonLongIndicatorTP       = "做多触达指标动态止盈"
	ReasonShortIndicatorTP      = "做空触达指标动态止盈"
	ReasonCounterTrendTP        = "逆势回调止盈"
	ReasonSignalKlineStop       = "预止损-信号线失效"
	ReasonMaxLossStop           = "最大亏损止损"
	ReasonEndOfBacktest         = "结束平仓"
)

// TradeRecord captures one closed position.
type TradeRecord struct {
	Side        Side
	EntryPrice  float64
	ExitPrice   float64
	EntryTS     int64
	ExitTS      int64
	Size        float64
	GrossProfit float64
	Fee         float64
	NetProfit   float64
	Win         bool
	Reason      string
}

// feeRate is the combined entry+exit fee rate, charged once on the entry
// notional of a trade (spec §4.E: qty * entry_price * 0.0007).
const feeRate = 0.0007

func computeFee(size, entryPrice float64) float64 {
	return size * entryPrice * feeRate
}

func grossProfit(side Side, entry, exit, size float64) float64 {
	if side == SideLong {
		return (exit - entry) * size
	}
	return (entry - exit) * size
}
