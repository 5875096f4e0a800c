package markethours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ny(y, mo, d, h, m int) int64 {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
	return time.Date(y, time.Month(mo), d, h, m, 0, 0, loc).UnixMilli()
}

func TestContainsWithinWindowOnWeekday(t *testing.T) {
	w := DefaultUSWindow()
	// Wednesday 2026-01-14, 10:00 EST.
	assert.True(t, w.Contains(ny(2026, 1, 14, 10, 0)))
}

func TestContainsOutsideWindowHours(t *testing.T) {
	w := DefaultUSWindow()
	assert.False(t, w.Contains(ny(2026, 1, 14, 6, 0)))
	assert.False(t, w.Contains(ny(2026, 1, 14, 22, 0)))
}

func TestContainsExcludesSaturday(t *testing.T) {
	w := DefaultUSWindow()
	// 2026-01-17 is a Saturday.
	assert.False(t, w.Contains(ny(2026, 1, 17, 10, 0)))
}

func TestContainsHandlesDSTTransitionCorrectly(t *testing.T) {
	w := DefaultUSWindow()
	// 2026-07-14 is in EDT (UTC-4); 10:00 local should still read as 10:00
	// local regardless of which offset is in effect that day.
	assert.True(t, w.Contains(ny(2026, 7, 14, 10, 0)))
	assert.False(t, w.Contains(ny(2026, 7, 14, 23, 0)))
}

func TestNewWindowRejectsUnknownZone(t *testing.T) {
	_, err := NewWindow("Not/AZone", 7, 22)
	require.Error(t, err)
}
