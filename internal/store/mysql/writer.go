package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/rkvolt/perpswap-engine/internal/candle"
	"github.com/rkvolt/perpswap-engine/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond
)

// Writer writes to MySQL: confirmed candles (per-(inst,period) table,
// UPSERT on ts) and economic_events one row per call, and swap_orders in
// batches. The swap_orders path is structured like the teacher's
// internal/store/sqlite/writer.go batch-on-count-or-timer loop, issued
// through gorm.io/gorm instead of raw database/sql.
type Writer struct {
	db      *gorm.DB
	metrics *metrics.Metrics
	log     *zap.Logger
}

// New opens a GORM MySQL connection. dsn is a standard go-sql-driver/mysql
// DSN (e.g. "user:pass@tcp(host:3306)/perpswap?charset=utf8mb4&parseTime=True&loc=UTC").
func New(dsn string, m *metrics.Metrics, log *zap.Logger) (*Writer, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	if err := db.AutoMigrate(&SwapOrder{}, &EconomicEvent{}); err != nil {
		return nil, fmt.Errorf("mysql: automigrate: %w", err)
	}
	log.Info("mysql connected")
	return &Writer{db: db, metrics: m, log: log}, nil
}

// DB returns the underlying GORM handle for health checks and per-inst
// candle table migration.
func (w *Writer) DB() *gorm.DB { return w.db }

// candleTableName is spec §6's one-table-per-(inst,period) naming scheme.
func candleTableName(inst string, period candle.Period) string {
	return fmt.Sprintf("candles_%s_%s", sanitize(inst), string(period))
}

func sanitize(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			out[i] = c
		} else {
			out[i] = '_'
		}
	}
	return string(out)
}

// EnsureCandleTable auto-migrates the per-(inst,period) candle table.
func (w *Writer) EnsureCandleTable(inst string, period candle.Period) error {
	table := candleTableName(inst, period)
	return w.db.Table(table).AutoMigrate(&CandleRecord{})
}

// UpsertCandle writes one confirmed candle, replacing all fields and
// bumping updated_at on a ts collision, per spec §6's UPSERT-on-ts rule.
func (w *Writer) UpsertCandle(ctx context.Context, inst string, period candle.Period, c candle.Candle) error {
	start := time.Now()
	table := candleTableName(inst, period)
	rec := CandleRecord{
		TS: c.TS, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close,
		Volume: c.Volume, Confirm: c.Confirm, UpdatedAt: time.Now(),
	}
	err := w.db.WithContext(ctx).Table(table).
		Where("ts = ?", c.TS).
		Assign(rec).
		FirstOrCreate(&rec).Error
	w.metrics.DBWriteDur.WithLabelValues("mysql").Observe(time.Since(start).Seconds())
	if err != nil {
		w.metrics.DBWriteErrTotal.WithLabelValues("mysql").Inc()
		return fmt.Errorf("mysql: upsert candle %s: %w", table, err)
	}
	return nil
}

// RunSwapOrders batches SwapOrder inserts read off orderCh, flushing every
// defaultBatchSize rows or defaultFlushDelay, whichever comes first.
func (w *Writer) RunSwapOrders(ctx context.Context, orderCh <-chan SwapOrder) {
	batch := make([]SwapOrder, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		err := w.db.WithContext(ctx).Create(&batch).Error
		w.metrics.DBWriteDur.WithLabelValues("mysql").Observe(time.Since(start).Seconds())
		if err != nil {
			w.metrics.DBWriteErrTotal.WithLabelValues("mysql").Inc()
			w.log.Warn("swap_orders batch insert failed", zap.Error(err), zap.Int("count", len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case o, ok := <-orderCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, o)
			if len(batch) >= defaultBatchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}
		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

// UpsertEconomicEvent writes one calendar event, replacing on a
// calendar_id collision.
func (w *Writer) UpsertEconomicEvent(ctx context.Context, e EconomicEvent) error {
	start := time.Now()
	err := w.db.WithContext(ctx).
		Where("calendar_id = ?", e.CalendarID).
		Assign(e).
		FirstOrCreate(&e).Error
	w.metrics.DBWriteDur.WithLabelValues("mysql").Observe(time.Since(start).Seconds())
	if err != nil {
		w.metrics.DBWriteErrTotal.WithLabelValues("mysql").Inc()
		return fmt.Errorf("mysql: upsert economic event %s: %w", e.CalendarID, err)
	}
	return nil
}

// ReadCandles loads one (inst,period) table's confirmed candles in
// timestamp-ascending order, for backtest replay input. Grounded on the
// teacher's sqlite.Reader.ReadAllTFCandles (SELECT ... ORDER BY ts ASC),
// folded into Writer rather than a separate Reader type since this store's
// read and write paths share one connection pool.
func (w *Writer) ReadCandles(ctx context.Context, inst string, period candle.Period, fromTS int64) ([]candle.Candle, error) {
	table := candleTableName(inst, period)
	var recs []CandleRecord
	err := w.db.WithContext(ctx).Table(table).
		Where("ts > ? AND confirm = 1", fromTS).
		Order("ts asc").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("mysql: read candles %s: %w", table, err)
	}
	out := make([]candle.Candle, len(recs))
	for i, r := range recs {
		out[i] = candle.Candle{TS: r.TS, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume, Confirm: r.Confirm}
	}
	return out, nil
}

// Close closes the underlying connection pool.
func (w *Writer) Close() error {
	sqlDB, err := w.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
