package market

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecimal(t *testing.T, s string) *apd.Decimal {
	t.Helper()
	d, _, err := apd.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestParseTicker(t *testing.T) {
	payload := `{
		"contractId": "10000001",
		"contractName": "BTCUSDT",
		"open": "64000.5",
		"close": "65250.25",
		"high": "65800",
		"low": "63100.75",
		"size": "1432.88",
		"value": "92841002.11",
		"lastPrice": "65250.25",
		"indexPrice": "65248.9",
		"oraclePrice": "65249.1",
		"fundingRate": "0.000125",
		"trades": "84213",
		"time": "1700000000123"
	}`

	ticker, err := ParseTicker([]byte(payload))
	require.NoError(t, err)

	assert.Equal(t, "10000001", ticker.ContractID)
	assert.Equal(t, "BTCUSDT", ticker.ContractName)
	assert.Zero(t, ticker.LastPrice.Cmp(mustDecimal(t, "65250.25")))
	assert.Zero(t, ticker.FundingRate.Cmp(mustDecimal(t, "0.000125")))
	assert.Equal(t, int64(84213), ticker.Trades)
	assert.Equal(t, int64(1700000000123), ticker.Time.UnixMilli())
}

func TestParseTicker_EmptyFieldsAllowed(t *testing.T) {
	ticker, err := ParseTicker([]byte(`{"contractId":"1"}`))
	require.NoError(t, err)
	assert.True(t, ticker.LastPrice.IsZero())
	assert.True(t, ticker.Time.IsZero())
}

func TestParseTicker_BadDecimal(t *testing.T) {
	_, err := ParseTicker([]byte(`{"contractId":"1","lastPrice":"not-a-number"}`))
	assert.Error(t, err)
}

func TestParseKlines(t *testing.T) {
	payload := `[
		{"contractId":"1","klineType":"MINUTE_1","klineTime":"1700000000000",
		 "open":"100","high":"110","low":"95","close":"105","size":"12.5","value":"1300","trades":42},
		{"contractId":"1","klineType":"MINUTE_1","klineTime":"1700000060000",
		 "open":"105","high":"112","low":"104","close":"111","size":"8.25","value":"890","trades":17}
	]`

	klines, err := ParseKlines([]byte(payload))
	require.NoError(t, err)
	require.Len(t, klines, 2)

	assert.Equal(t, "MINUTE_1", klines[0].Interval)
	assert.Zero(t, klines[0].Close.Cmp(mustDecimal(t, "105")))
	assert.Equal(t, int64(42), klines[0].Trades)
	assert.Equal(t, int64(1700000060000), klines[1].OpenTime.UnixMilli())
}

func TestParseDepth(t *testing.T) {
	payload := `{
		"contractId": "1",
		"bids": [["65200.5","0.8"],["65199","1.2"]],
		"asks": [["65201.5","0.4"],["65203","2.0"]],
		"time": "1700000000500"
	}`

	depth, err := ParseDepth([]byte(payload))
	require.NoError(t, err)
	require.Len(t, depth.Bids, 2)
	require.Len(t, depth.Asks, 2)

	bid, ok := depth.BestBid()
	require.True(t, ok)
	assert.Zero(t, bid.Price.Cmp(mustDecimal(t, "65200.5")))

	ask, ok := depth.BestAsk()
	require.True(t, ok)
	assert.Zero(t, ask.Size.Cmp(mustDecimal(t, "0.4")))
}

func TestDepth_MidAndSpread(t *testing.T) {
	depth := &Depth{
		Bids: []DepthLevel{{Price: *mustDecimal(t, "100"), Size: *mustDecimal(t, "1")}},
		Asks: []DepthLevel{{Price: *mustDecimal(t, "101"), Size: *mustDecimal(t, "1")}},
	}

	mid, ok := depth.Mid()
	require.True(t, ok)
	assert.Zero(t, mid.Cmp(mustDecimal(t, "100.5")))

	spread, ok := depth.Spread()
	require.True(t, ok)
	assert.Zero(t, spread.Cmp(mustDecimal(t, "1")))
}

func TestDepth_MidEmptySide(t *testing.T) {
	depth := &Depth{
		Bids: []DepthLevel{{Price: *mustDecimal(t, "100")}},
	}
	_, ok := depth.Mid()
	assert.False(t, ok)
	_, ok = depth.Spread()
	assert.False(t, ok)
}

func TestParseTrades(t *testing.T) {
	payload := `[
		{"ticketId":"t-1","contractId":"1","price":"65210","size":"0.05","isBuyerMaker":true,"time":"1700000000700"},
		{"ticketId":"t-2","contractId":"1","price":"65211.5","size":"0.10","isBuyerMaker":false,"time":"1700000000800"}
	]`

	trades, err := ParseTrades([]byte(payload))
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, "t-1", trades[0].ID)
	assert.True(t, trades[0].IsBuyerMaker)
	assert.Zero(t, trades[1].Price.Cmp(mustDecimal(t, "65211.5")))
	assert.Equal(t, int64(1700000000800), trades[1].Time.UnixMilli())
}

func TestParseTrades_Malformed(t *testing.T) {
	_, err := ParseTrades([]byte(`{"not":"a list"}`))
	assert.Error(t, err)
}
