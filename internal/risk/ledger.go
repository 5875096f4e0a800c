package risk

import "github.com/shopspring/decimal"

// Ledger accumulates realized P&L in decimal rather than raw float64, so a
// long trade history does not compound float rounding drift — the
// float64-domain equivalent of the teacher's own int64-paise ledger, which
// sidesteps the same problem by never touching floating point at all.
type Ledger struct {
	funds decimal.Decimal
	wins  int
	losses int
}

// NewLedger seeds the ledger with the given starting funds (100 in backtests
// per spec §4.E).
func NewLedger(initialFunds float64) *Ledger {
	return &Ledger{funds: decimal.NewFromFloat(initialFunds)}
}

// Funds returns current funds as float64, for sizing the next entry.
func (l *Ledger) Funds() float64 {
	f, _ := l.funds.Float64()
	return f
}

// ApplyTrade posts a closed trade's net P&L to the ledger and updates the
// win/loss counters.
func (l *Ledger) ApplyTrade(netProfit float64) {
	l.funds = l.funds.Add(decimal.NewFromFloat(netProfit))
	if netProfit >= 0 {
		l.wins++
	} else {
		l.losses++
	}
}

// WinRate returns wins / (wins+losses), or 0 if no trades have closed.
func (l *Ledger) WinRate() float64 {
	total := l.wins + l.losses
	if total == 0 {
		return 0
	}
	return float64(l.wins) / float64(total)
}

func (l *Ledger) Wins() int   { return l.wins }
func (l *Ledger) Losses() int { return l.losses }
