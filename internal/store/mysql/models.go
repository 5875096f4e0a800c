// Package mysql is the engine's durable-storage boundary for confirmed
// candles, placed swap orders, and the economic-calendar feed, via GORM per
// spec §6. Table shapes are lifted from
// original_source/crates/infrastructure/src/repositories/{swap_order_repository,
// economic_event_repository}.rs; write-path structure (buffered batch
// commit + duration histogram) is adapted from the teacher's
// internal/store/sqlite/writer.go, issued through gorm.io/gorm instead of
// raw database/sql.
package mysql

import "time"

// CandleRecord is the per-(inst,period) candle table row. Table name is
// assigned per-instance by candleTableName since spec §6 requires one table
// per (inst, period), not a shared table distinguished by columns.
type CandleRecord struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	TS        int64     `gorm:"uniqueIndex:idx_ts_desc;not null"`
	Open      float64   `gorm:"column:o;not null"`
	High      float64   `gorm:"column:h;not null"`
	Low       float64   `gorm:"column:l;not null"`
	Close     float64   `gorm:"column:c;not null"`
	Volume    float64   `gorm:"column:vol;not null"`
	VolumeCcy float64   `gorm:"column:vol_ccy;not null"`
	Confirm   int8      `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// SwapOrder is one placed-or-closed contract order, spec §6's swap_orders
// table.
type SwapOrder struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	StrategyID   int32     `gorm:"column:strategy_id;not null"`
	InOrderID    string    `gorm:"column:in_order_id;type:varchar(64);not null"`
	OutOrderID   string    `gorm:"column:out_order_id;type:varchar(64)"`
	StrategyType string    `gorm:"column:strategy_type;type:varchar(32);not null"`
	Period       string    `gorm:"column:period;type:varchar(16);not null"`
	InstID       string    `gorm:"column:inst_id;type:varchar(32);not null;index"`
	Side         string    `gorm:"column:side;type:varchar(8);not null"`
	PosSize      string    `gorm:"column:pos_size;type:varchar(32);not null"`
	PosSide      string    `gorm:"column:pos_side;type:varchar(8);not null"`
	Tag          string    `gorm:"column:tag;type:varchar(64)"`
	PlatformType string    `gorm:"column:platform_type;type:varchar(16);not null"`
	DetailJSON   string    `gorm:"column:detail_json;type:text"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdateAt     time.Time `gorm:"column:update_at;autoUpdateTime"`
}

func (SwapOrder) TableName() string { return "swap_orders" }

// EconomicEvent is one row of the macro economic calendar, spec §6's
// economic_events table, uniqued on calendar_id (the upstream provider's
// own event identifier).
type EconomicEvent struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	CalendarID  string `gorm:"column:calendar_id;type:varchar(64);uniqueIndex;not null"`
	EventTime   int64  `gorm:"column:event_time;not null;index"`
	Region      string `gorm:"column:region;type:varchar(32)"`
	Category    string `gorm:"column:category;type:varchar(64)"`
	Event       string `gorm:"column:event;type:varchar(255);not null"`
	RefDate     string `gorm:"column:ref_date;type:varchar(16)"`
	Actual      string `gorm:"column:actual;type:varchar(32)"`
	Previous    string `gorm:"column:previous;type:varchar(32)"`
	Forecast    string `gorm:"column:forecast;type:varchar(32)"`
	Importance  int32  `gorm:"column:importance;not null"`
	UpdatedTime int64  `gorm:"column:updated_time;not null"`
	PrevInitial string `gorm:"column:prev_initial;type:varchar(32)"`
	Currency    string `gorm:"column:currency;type:varchar(8)"`
	Unit        string `gorm:"column:unit;type:varchar(16)"`
}

func (EconomicEvent) TableName() string { return "economic_events" }
