package indicator

import (
	"testing"

	"github.com/rkvolt/perpswap-engine/internal/candle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedVegas(b *VegasBundle, n int) VegasBundleValues {
	var last VegasBundleValues
	ts := int64(0)
	price := 100.0
	for i := 0; i < n; i++ {
		c := candle.Candle{TS: ts, Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 100}
		last = b.Next(c)
		ts += 60_000
		price += 0.1
	}
	return last
}

func TestVegasBundleWarmsUpAndSnapshotRoundTrips(t *testing.T) {
	cfg := DefaultVegasBundleConfig()
	cfg.MarketStructureLookback = 5
	cfg.LegSize = 3
	cfg.FakeBreakoutLookback = 5
	cfg.BollingerPeriod = 5
	cfg.VolumeRatioPeriod = 5
	cfg.RSIPeriod = 5
	cfg.ATRPeriod = 5

	a := NewVegasBundle(cfg)
	feedVegas(a, 3000) // well past every primitive's warm-up, including EMA 2704

	require.True(t, a.Ready())
	snaps := a.Snapshot()
	require.Len(t, snaps, 16)

	b := NewVegasBundle(cfg)
	require.NoError(t, b.Restore(snaps))

	next := candle.Candle{TS: 999_999, Open: 200, High: 201, Low: 199, Close: 200, Volume: 500}
	av := a.Next(next)
	bv := b.Next(next)
	assert.Equal(t, av, bv)
}

func TestNWEBundleSnapshotRoundTrip(t *testing.T) {
	cfg := DefaultNWEBundleConfig()
	cfg.NWEWindow = 10
	cfg.RSIPeriod = 5
	cfg.ATRPeriod = 5
	cfg.VolumeRatioPeriod = 5

	a := NewNWEBundle(cfg)
	ts := int64(0)
	price := 50.0
	for i := 0; i < 200; i++ {
		c := candle.Candle{TS: ts, Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 10}
		a.Next(c)
		ts += 60_000
		price += 0.05
	}
	require.True(t, a.Ready())

	b := NewNWEBundle(cfg)
	require.NoError(t, b.Restore(a.Snapshot()))

	next := candle.Candle{TS: ts, Open: price, High: price + 1, Low: price - 1, Close: price, Volume: 10}
	assert.Equal(t, a.Next(next), b.Next(next))
}
