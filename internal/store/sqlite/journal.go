// Package sqlite is the engine's local trade-journal store: every closed
// position, written for audit and post-hoc analysis independent of the
// MySQL order log. Adapted field-for-field from the teacher's
// internal/execution/journal.go, retargeted from a raw fill record
// (order_id, qty, price, slippage) to a closed risk.TradeRecord
// (entry/exit price, gross/net profit, close reason).
package sqlite

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/rkvolt/perpswap-engine/internal/risk"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Journal persists closed trades to SQLite.
type Journal struct {
	mu  sync.Mutex
	db  *sql.DB
	log *zap.Logger
}

// NewJournal opens (or creates) a SQLite journal database in WAL mode,
// matching the teacher's connection string shape.
func NewJournal(dbPath string, log *zap.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS trades (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		inst_id      TEXT NOT NULL,
		period       TEXT NOT NULL,
		strategy     TEXT NOT NULL,
		side         INTEGER NOT NULL,
		entry_price  REAL NOT NULL,
		exit_price   REAL NOT NULL,
		entry_ts     INTEGER NOT NULL,
		exit_ts      INTEGER NOT NULL,
		size         REAL NOT NULL,
		gross_profit REAL NOT NULL,
		fee          REAL NOT NULL,
		net_profit   REAL NOT NULL,
		win          INTEGER NOT NULL,
		reason       TEXT NOT NULL,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_trades_inst_period ON trades(inst_id, period);
	CREATE INDEX IF NOT EXISTS idx_trades_exit_ts ON trades(exit_ts);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: schema: %w", err)
	}

	log.Info("sqlite journal opened", zap.String("path", dbPath))
	return &Journal{db: db, log: log}, nil
}

// RecordTrade persists one closed trade.
func (j *Journal) RecordTrade(instID, period, strategy string, t risk.TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	win := 0
	if t.Win {
		win = 1
	}
	_, err := j.db.Exec(
		`INSERT INTO trades (inst_id, period, strategy, side, entry_price, exit_price, entry_ts, exit_ts,
		                      size, gross_profit, fee, net_profit, win, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		instID, period, strategy, int(t.Side), t.EntryPrice, t.ExitPrice, t.EntryTS, t.ExitTS,
		t.Size, t.GrossProfit, t.Fee, t.NetProfit, win, t.Reason,
	)
	return err
}

// TradeRow is one row read back from the trades table.
type TradeRow struct {
	ID          int64   `json:"id"`
	InstID      string  `json:"inst_id"`
	Period      string  `json:"period"`
	Strategy    string  `json:"strategy"`
	Side        int     `json:"side"`
	EntryPrice  float64 `json:"entry_price"`
	ExitPrice   float64 `json:"exit_price"`
	EntryTS     int64   `json:"entry_ts"`
	ExitTS      int64   `json:"exit_ts"`
	Size        float64 `json:"size"`
	GrossProfit float64 `json:"gross_profit"`
	Fee         float64 `json:"fee"`
	NetProfit   float64 `json:"net_profit"`
	Win         bool    `json:"win"`
	Reason      string  `json:"reason"`
}

// RecentTrades returns the last limit trades for (instID, period), newest first.
func (j *Journal) RecentTrades(instID, period string, limit int) ([]TradeRow, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, inst_id, period, strategy, side, entry_price, exit_price, entry_ts, exit_ts,
		        size, gross_profit, fee, net_profit, win, reason
		 FROM trades WHERE inst_id = ? AND period = ? ORDER BY id DESC LIMIT ?`,
		instID, period, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query trades: %w", err)
	}
	defer rows.Close()

	var out []TradeRow
	for rows.Next() {
		var t TradeRow
		var win int
		if err := rows.Scan(&t.ID, &t.InstID, &t.Period, &t.Strategy, &t.Side, &t.EntryPrice, &t.ExitPrice,
			&t.EntryTS, &t.ExitTS, &t.Size, &t.GrossProfit, &t.Fee, &t.NetProfit, &win, &t.Reason); err != nil {
			continue
		}
		t.Win = win != 0
		out = append(out, t)
	}
	return out, nil
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
