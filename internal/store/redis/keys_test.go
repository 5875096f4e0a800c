package redis

import (
	"testing"

	"github.com/rkvolt/perpswap-engine/internal/cache"
	"github.com/rkvolt/perpswap-engine/internal/candle"
	"github.com/stretchr/testify/assert"
)

func TestProgressKeyMatchesSpecShape(t *testing.T) {
	assert.Equal(t, "strategy_progress:BTC-USDT-SWAP:1H", progressKey("BTC-USDT-SWAP", "1H"))
}

func TestDedupKeyIncludesStrategyFamilyAndTimestamp(t *testing.T) {
	key := cache.Key{Inst: "BTC-USDT-SWAP", Period: candle.Period1m, StrategyFamily: "vegas"}
	assert.Equal(t, "dedup:BTC-USDT-SWAP:1m:vegas:1700000000000", dedupKey(key, 1700000000000))
}

func TestCandleStreamKeyMatchesInstAndPeriod(t *testing.T) {
	assert.Equal(t, "candle:BTC-USDT-SWAP:5m", candleStreamKey("BTC-USDT-SWAP", candle.Period5m))
}
