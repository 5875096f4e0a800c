package candle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandleValidate(t *testing.T) {
	ok := Candle{TS: 1, Open: 10, High: 12, Low: 9, Close: 11, Volume: 5}
	assert.NoError(t, ok.Validate())

	badHigh := ok
	badHigh.High = 10.5
	assert.Error(t, badHigh.Validate())

	badLow := ok
	badLow.Low = 9.5
	assert.Error(t, badLow.Validate())

	badVolume := ok
	badVolume.Volume = -1
	assert.Error(t, badVolume.Validate())
}

func TestCandleShapeHelpers(t *testing.T) {
	bull := Candle{Open: 10, High: 15, Low: 8, Close: 14}
	assert.True(t, bull.Bullish())
	assert.Equal(t, 4.0, bull.Body())
	assert.Equal(t, 7.0, bull.Range())
	assert.Equal(t, 1.0, bull.UpperShadow())
	assert.Equal(t, 2.0, bull.LowerShadow())
}

func TestWindowTail(t *testing.T) {
	w := Window{{TS: 1}, {TS: 2}, {TS: 3}}
	assert.Len(t, w.Tail(2), 2)
	assert.Equal(t, int64(3), w.Tail(2)[1].TS)
	assert.Len(t, w.Tail(10), 3)

	last, ok := w.Last()
	assert.True(t, ok)
	assert.Equal(t, int64(3), last.TS)

	empty := Window{}
	_, ok = empty.Last()
	assert.False(t, ok)
}
