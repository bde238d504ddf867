package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type MarketTestSuite struct {
	suite.Suite
}

func TestMarketSuite(t *testing.T) {
	suite.Run(t, new(MarketTestSuite))
}

func (suite *MarketTestSuite) TestQuoteMergeKeepsMissingFields() {
	base := Quote{Symbol: "AAPL", Timestamp: time.Unix(100, 0)}
	base.Set(QuoteFieldBid, 189.5)
	base.Set(QuoteFieldAsk, 189.6)

	update := Quote{Timestamp: time.Unix(101, 0)}
	update.Set(QuoteFieldAsk, 189.7)
	update.Set(QuoteFieldLast, 189.65)

	merged := base.Merge(update)

	suite.Equal("AAPL", merged.Symbol)
	suite.Equal(189.5, merged.Bid)
	suite.Equal(189.7, merged.Ask)
	suite.Equal(189.65, merged.Last)
	suite.True(merged.Has(QuoteFieldBid))
	suite.True(merged.Has(QuoteFieldLast))
	suite.False(merged.Has(QuoteFieldVolume))
	suite.Equal(time.Unix(101, 0), merged.Timestamp)
}

func (suite *MarketTestSuite) TestQuoteMergeZeroValueIsPresent() {
	base := Quote{Symbol: "AAPL"}
	base.Set(QuoteFieldBidSize, 300)

	update := Quote{}
	update.Set(QuoteFieldBidSize, 0)

	merged := base.Merge(update)
	suite.Equal(0.0, merged.BidSize)
	suite.True(merged.Has(QuoteFieldBidSize))
}

func (suite *MarketTestSuite) TestQuoteMid() {
	q := Quote{}
	q.Set(QuoteFieldLast, 10)
	suite.Equal(10.0, q.Mid())

	q.Set(QuoteFieldBid, 9)
	q.Set(QuoteFieldAsk, 11)
	suite.Equal(10.0, q.Mid())
}

func (suite *MarketTestSuite) TestParseTimeframe() {
	for _, s := range []string{"1s", "5s", "1m", "5m", "15m", "30m", "1h", "1d", "1w"} {
		tf, err := ParseTimeframe(s)
		suite.NoError(err)
		suite.Equal(Timeframe(s), tf)
		suite.Positive(tf.Duration())
	}

	_, err := ParseTimeframe("2h")
	suite.Error(err)
	suite.Equal(5*time.Minute, Timeframe5m.Duration())
}

func (suite *MarketTestSuite) TestAlwaysOpen() {
	hours := AlwaysOpen(time.Date(2024, 3, 9, 13, 30, 0, 0, time.UTC))
	suite.True(hours.IsOpen)
	suite.Equal(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), hours.Open)
	suite.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), hours.Close)
}

func (suite *MarketTestSuite) TestCapabilitiesClone() {
	caps := BrokerCapabilities{OrderTypes: []OrderType{OrderTypeMarket}}
	clone := caps.Clone()
	clone.OrderTypes[0] = OrderTypeLimit

	suite.Equal(OrderTypeMarket, caps.OrderTypes[0])
	suite.True(caps.SupportsOrderType(OrderTypeMarket))
	suite.False(caps.SupportsOrderType(OrderTypeStop))
	suite.True(caps.SupportsTimeInForce(""))
}

func (suite *MarketTestSuite) TestPositionPnL() {
	long := Position{Side: PositionSideLong, Quantity: 10, EntryPrice: 100, CurrentPrice: 105}
	long.ComputeUnrealizedPnL()
	suite.InDelta(50.0, long.UnrealizedPnL, 1e-9)
	suite.InDelta(1050.0, long.MarketValue, 1e-9)

	short := Position{Side: PositionSideShort, Quantity: 10, EntryPrice: 100, CurrentPrice: 105}
	short.ComputeUnrealizedPnL()
	suite.InDelta(-50.0, short.UnrealizedPnL, 1e-9)

	side, qty := PositionSideFromQuantity(-3)
	suite.Equal(PositionSideShort, side)
	suite.Equal(3.0, qty)
}
