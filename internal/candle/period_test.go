package candle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodToMillis(t *testing.T) {
	cases := []struct {
		p    Period
		want int64
	}{
		{Period1m, 60_000},
		{Period5m, 300_000},
		{Period15m, 900_000},
		{Period1H, 3_600_000},
		{Period4H, 14_400_000},
		{Period1D, 86_400_000},
		{Period1Dutc, 86_400_000},
		{Period4D, 4 * 86_400_000},
	}
	for _, tc := range cases {
		got, err := PeriodToMillis(tc.p)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "period %s", tc.p)
	}
}

func TestPeriodToMillisUnknown(t *testing.T) {
	_, err := PeriodToMillis(Period("7x"))
	assert.Error(t, err)
}

func TestAlignToPeriod(t *testing.T) {
	// 1H bucket width is 3_600_000ms; 22:37:05 UTC truncates to 22:00:00 UTC.
	ts := int64(1700000000000 + 23*60*1000 + 45*1000) // 22:13:20 UTC + 23m45s
	ms, _ := PeriodToMillis(Period1H)
	base := ts - (ts % ms)

	aligned, err := AlignToPeriod(ts, Period1H)
	require.NoError(t, err)
	assert.Equal(t, base, aligned)

	// Already-aligned timestamps are idempotent.
	aligned2, err := AlignToPeriod(aligned, Period1H)
	require.NoError(t, err)
	assert.Equal(t, aligned, aligned2)
}

func TestAlignToPeriodNegativeTimestamp(t *testing.T) {
	// Defensive: a timestamp before the epoch should still land on a
	// boundary at or before itself, never after.
	aligned, err := AlignToPeriod(-61_000, Period1m)
	require.NoError(t, err)
	assert.LessOrEqual(t, aligned, int64(-61_000))
	assert.Equal(t, int64(0), aligned%60_000)
}

func TestIsConfirmedBoundary(t *testing.T) {
	ms, _ := PeriodToMillis(Period5m)
	ok, err := IsConfirmedBoundary(5*ms, Period5m)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = IsConfirmedBoundary(5*ms+1, Period5m)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCronExpr(t *testing.T) {
	expr, err := CronExpr(Period1m)
	require.NoError(t, err)
	assert.Equal(t, "0 */1 * * * *", expr)

	expr, err = CronExpr(Period1H)
	require.NoError(t, err)
	assert.Equal(t, "0 0 * * * *", expr)

	_, err = CronExpr(Period("bogus"))
	assert.Error(t, err)
}
