package mysql

import (
	"testing"

	"github.com/rkvolt/perpswap-engine/internal/candle"
	"github.com/stretchr/testify/assert"
)

func TestCandleTableNameSanitizesInstID(t *testing.T) {
	assert.Equal(t, "candles_BTC_USDT_SWAP_1H", candleTableName("BTC-USDT-SWAP", candle.Period1H))
}

func TestSanitizeReplacesNonAlphanumeric(t *testing.T) {
	assert.Equal(t, "a_b_c123", sanitize("a-b.c123"))
}

func TestSwapOrderTableName(t *testing.T) {
	assert.Equal(t, "swap_orders", SwapOrder{}.TableName())
}

func TestEconomicEventTableName(t *testing.T) {
	assert.Equal(t, "economic_events", EconomicEvent{}.TableName())
}
