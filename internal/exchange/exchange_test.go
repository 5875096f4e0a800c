package exchange

import (
	"testing"

	"github.com/rkvolt/perpswap-engine/internal/candle"
	"github.com/rkvolt/perpswap-engine/internal/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCandleTupleParsesAllFields(t *testing.T) {
	row := [9]string{"1700000000000", "100.5", "101", "99.5", "100.8", "12.3", "1230", "1230", "1"}
	c, err := parseCandleTuple(row)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), c.TS)
	assert.Equal(t, 100.5, c.Open)
	assert.Equal(t, 101.0, c.High)
	assert.Equal(t, 99.5, c.Low)
	assert.Equal(t, 100.8, c.Close)
	assert.Equal(t, 12.3, c.Volume)
	assert.EqualValues(t, 1, c.Confirm)
}

func TestParseCandleTupleRejectsMalformedTimestamp(t *testing.T) {
	row := [9]string{"not-a-number", "1", "1", "1", "1", "1", "1", "1", "0"}
	_, err := parseCandleTuple(row)
	assert.Error(t, err)
}

func TestSideWireMapsLongToBuyAndShortToSell(t *testing.T) {
	assert.Equal(t, "buy", sideWire(risk.SideLong))
	assert.Equal(t, "sell", sideWire(risk.SideShort))
}

func TestChannelForBuildsCandleChannelName(t *testing.T) {
	assert.Equal(t, "candle1m", channelFor(candle.Period1m))
	assert.Equal(t, "candle1H", channelFor(candle.Period1H))
}

func TestPeriodFromChannelInvertsChannelFor(t *testing.T) {
	assert.Equal(t, candle.Period1m, periodFromChannel(channelFor(candle.Period1m)))
	assert.Equal(t, candle.Period1H, periodFromChannel(channelFor(candle.Period1H)))
}

func TestClientSignIsDeterministicForSameInputs(t *testing.T) {
	c := New(Config{APISecret: "secret"}, 480, nil)
	sig1 := c.sign("100", "GET", "/api/v5/x", nil)
	sig2 := c.sign("100", "GET", "/api/v5/x", nil)
	assert.Equal(t, sig1, sig2)
}

func TestClientSignChangesWithPath(t *testing.T) {
	c := New(Config{APISecret: "secret"}, 480, nil)
	sig1 := c.sign("100", "GET", "/api/v5/x", nil)
	sig2 := c.sign("100", "GET", "/api/v5/y", nil)
	assert.NotEqual(t, sig1, sig2)
}
