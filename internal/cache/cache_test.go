package cache

import (
	"sync"
	"testing"

	"github.com/rkvolt/perpswap-engine/internal/candle"
	"github.com/rkvolt/perpswap-engine/internal/indicator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkCandle(i int) candle.Candle {
	price := 100 + float64(i%7)
	return candle.Candle{TS: int64(i) * 60_000, Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 10, Confirm: 1}
}

func TestCacheUpdateAtomicKeepsHistoryAndBundleInLockStep(t *testing.T) {
	mgr := NewManager[*indicator.VegasBundle, indicator.VegasBundleValues](100)
	key := Key{Inst: "BTC-USDT-SWAP", Period: candle.Period1m, StrategyFamily: "vegas"}
	bundle := indicator.NewVegasBundle(indicator.DefaultVegasBundleConfig())

	var history []candle.Candle
	for i := 0; i < 50; i++ {
		c := mkCandle(i)
		bundle.Next(c)
		history = AppendBounded(history, c, 100)
		mgr.UpdateAtomic(key, history, bundle.Clone(), c.TS)
	}

	h, _, lastTS, ok := mgr.SnapshotLastN(key, 0)
	require.True(t, ok)
	assert.Len(t, h, 50)
	assert.Equal(t, int64(49)*60_000, lastTS)
}

func TestCacheSnapshotLastNTruncates(t *testing.T) {
	mgr := NewManager[*indicator.VegasBundle, indicator.VegasBundleValues](1000)
	key := Key{Inst: "BTC-USDT-SWAP", Period: candle.Period1m, StrategyFamily: "vegas"}
	bundle := indicator.NewVegasBundle(indicator.DefaultVegasBundleConfig())

	var history []candle.Candle
	for i := 0; i < 30; i++ {
		c := mkCandle(i)
		bundle.Next(c)
		history = append(history, c)
	}
	mgr.UpdateAtomic(key, history, bundle, history[len(history)-1].TS)

	h, _, _, ok := mgr.SnapshotLastN(key, 10)
	require.True(t, ok)
	assert.Len(t, h, 10)
	assert.Equal(t, history[20].TS, h[0].TS)
}

func TestCacheHistoryBoundedByKMax(t *testing.T) {
	mgr := NewManager[*indicator.VegasBundle, indicator.VegasBundleValues](5)
	key := Key{Inst: "BTC-USDT-SWAP", Period: candle.Period1m, StrategyFamily: "vegas"}
	bundle := indicator.NewVegasBundle(indicator.DefaultVegasBundleConfig())

	var history []candle.Candle
	for i := 0; i < 20; i++ {
		c := mkCandle(i)
		bundle.Next(c)
		history = AppendBounded(history, c, 5)
		mgr.UpdateAtomic(key, history, bundle.Clone(), c.TS)
	}

	h, _, _, ok := mgr.SnapshotLastN(key, 0)
	require.True(t, ok)
	assert.Len(t, h, 5)
	assert.Equal(t, int64(19)*60_000, h[len(h)-1].TS)
}

func TestCacheKeyExists(t *testing.T) {
	mgr := NewManager[*indicator.VegasBundle, indicator.VegasBundleValues](100)
	key := Key{Inst: "ETH-USDT-SWAP", Period: candle.Period5m, StrategyFamily: "vegas"}

	assert.False(t, mgr.KeyExists(key))
	bundle := indicator.NewVegasBundle(indicator.DefaultVegasBundleConfig())
	mgr.UpdateAtomic(key, []candle.Candle{mkCandle(0)}, bundle, 0)
	assert.True(t, mgr.KeyExists(key))
}

func TestCacheDistinctKeysDoNotContend(t *testing.T) {
	mgr := NewManager[*indicator.VegasBundle, indicator.VegasBundleValues](1000)
	keys := []Key{
		{Inst: "BTC-USDT-SWAP", Period: candle.Period1m, StrategyFamily: "vegas"},
		{Inst: "ETH-USDT-SWAP", Period: candle.Period1m, StrategyFamily: "vegas"},
		{Inst: "SOL-USDT-SWAP", Period: candle.Period1m, StrategyFamily: "vegas"},
	}

	var wg sync.WaitGroup
	for _, k := range keys {
		k := k
		wg.Add(1)
		go func() {
			defer wg.Done()
			mu := mgr.AcquireKeyMutex(k)
			bundle := indicator.NewVegasBundle(indicator.DefaultVegasBundleConfig())
			var history []candle.Candle
			for i := 0; i < 40; i++ {
				mu.Lock()
				c := mkCandle(i)
				bundle.Next(c)
				history = AppendBounded(history, c, 1000)
				mgr.UpdateAtomic(k, history, bundle.Clone(), c.TS)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	for _, k := range keys {
		h, _, _, ok := mgr.SnapshotLastN(k, 0)
		require.True(t, ok)
		assert.Len(t, h, 40)
	}
}

func TestCacheSnapshotBeforeAnyUpdateIsEmpty(t *testing.T) {
	mgr := NewManager[*indicator.VegasBundle, indicator.VegasBundleValues](100)
	key := Key{Inst: "BTC-USDT-SWAP", Period: candle.Period1H, StrategyFamily: "nwe"}
	_, _, _, ok := mgr.SnapshotLastN(key, 10)
	assert.False(t, ok)
}
