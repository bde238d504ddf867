package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"github.com/stretchr/testify/suite"
)

var epoch = time.Date(2026, 10, 16, 14, 30, 0, 0, time.UTC)

// mockPolygonAPIClient implements PolygonAPIClient for testing.
type mockPolygonAPIClient struct {
	aggs     []models.Agg
	aggsErr  error
	quote    models.LastQuote
	quoteErr error
	trade    models.LastTrade
	tradeErr error

	aggParams   []models.ListAggsParams
	quoteTicker string
}

func (m *mockPolygonAPIClient) ListAggs(_ context.Context, params *models.ListAggsParams, _ ...models.RequestOption) PolygonAggsIterator {
	m.aggParams = append(m.aggParams, *params)

	return &mockPolygonIterator{aggs: m.aggs, err: m.aggsErr}
}

func (m *mockPolygonAPIClient) GetLastQuote(_ context.Context, params *models.GetLastQuoteParams, _ ...models.RequestOption) (*models.GetLastQuoteResponse, error) {
	m.quoteTicker = params.Ticker
	if m.quoteErr != nil {
		return nil, m.quoteErr
	}

	return &models.GetLastQuoteResponse{Results: m.quote}, nil
}

func (m *mockPolygonAPIClient) GetLastTrade(_ context.Context, _ *models.GetLastTradeParams, _ ...models.RequestOption) (*models.GetLastTradeResponse, error) {
	if m.tradeErr != nil {
		return nil, m.tradeErr
	}

	return &models.GetLastTradeResponse{Results: m.trade}, nil
}

// mockPolygonIterator implements PolygonAggsIterator for testing.
type mockPolygonIterator struct {
	aggs  []models.Agg
	index int
	err   error
}

func (m *mockPolygonIterator) Next() bool {
	if m.err != nil || m.index >= len(m.aggs) {
		return false
	}

	m.index++

	return true
}

func (m *mockPolygonIterator) Item() models.Agg {
	return m.aggs[m.index-1]
}

func (m *mockPolygonIterator) Err() error {
	return m.err
}

type PolygonSourceTestSuite struct {
	suite.Suite
	api    *mockPolygonAPIClient
	source *PolygonSource
}

func TestPolygonSourceSuite(t *testing.T) {
	suite.Run(t, new(PolygonSourceTestSuite))
}

func (suite *PolygonSourceTestSuite) SetupTest() {
	suite.api = &mockPolygonAPIClient{}
	suite.source = NewPolygonSourceWithAPI(suite.api, logger.NewNopLogger())
	suite.source.now = func() time.Time { return epoch }
}

func agg(at time.Time, closePrice float64) models.Agg {
	return models.Agg{
		Timestamp: models.Millis(at),
		Open:      closePrice - 1,
		High:      closePrice + 1,
		Low:       closePrice - 2,
		Close:     closePrice,
		Volume:    1000,
	}
}

func (suite *PolygonSourceTestSuite) TestNewPolygonSource() {
	source, err := NewPolygonSource("key", nil)
	suite.Require().NoError(err)
	suite.Equal("polygon", source.Name())

	_, err = NewPolygonSource("", nil)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))
}

func (suite *PolygonSourceTestSuite) TestGetStockQuote() {
	suite.api.quote = models.LastQuote{
		Ticker:       "AAPL",
		BidPrice:     189.5,
		BidSize:      3,
		AskPrice:     189.6,
		AskSize:      2,
		SipTimestamp: models.Nanos(epoch),
	}
	suite.api.trade = models.LastTrade{
		Price:     189.55,
		Size:      100,
		Timestamp: models.Nanos(epoch.Add(time.Second)),
	}

	quote, err := suite.source.GetQuote(context.Background(), "aapl")
	suite.Require().NoError(err)
	suite.Equal("AAPL", suite.api.quoteTicker)
	suite.Equal("aapl", quote.Symbol)
	suite.Equal(189.5, quote.Bid)
	suite.Equal(189.6, quote.Ask)
	suite.Equal(189.55, quote.Last)
	suite.True(quote.Has(types.QuoteFieldLastSize))
	suite.True(quote.Timestamp.Equal(epoch.Add(time.Second)))
}

func (suite *PolygonSourceTestSuite) TestGetQuoteWithoutLastTrade() {
	suite.api.quote = models.LastQuote{BidPrice: 10, AskPrice: 12, SipTimestamp: models.Nanos(epoch)}
	suite.api.tradeErr = errors.New(errors.ErrCodeUnknown, "NOT_AUTHORIZED")

	quote, err := suite.source.GetQuote(context.Background(), "MSFT")
	suite.Require().NoError(err)
	suite.Equal(11.0, quote.Mid())
	suite.False(quote.Has(types.QuoteFieldLast))
}

func (suite *PolygonSourceTestSuite) TestGetQuoteFailure() {
	suite.api.quoteErr = errors.New(errors.ErrCodeUnknown, "bad gateway")

	_, err := suite.source.GetQuote(context.Background(), "MSFT")
	suite.True(errors.HasCode(err, errors.ErrCodeUpstream))

	suite.api.quoteErr = context.DeadlineExceeded

	_, err = suite.source.GetQuote(context.Background(), "MSFT")
	suite.True(errors.HasCode(err, errors.ErrCodeTimeout))
}

func (suite *PolygonSourceTestSuite) TestGetCryptoQuote() {
	suite.api.aggs = []models.Agg{
		agg(epoch.Add(-2*time.Minute), 67000),
		agg(epoch.Add(-time.Minute), 67100),
	}

	quote, err := suite.source.GetQuote(context.Background(), "btc/usd")
	suite.Require().NoError(err)
	suite.Equal("btc/usd", quote.Symbol)
	suite.Equal(67100.0, quote.Last)
	suite.True(quote.Timestamp.Equal(epoch.Add(-time.Minute)))
	suite.False(quote.Has(types.QuoteFieldBid))

	suite.Require().Len(suite.api.aggParams, 1)
	params := suite.api.aggParams[0]
	suite.Equal("X:BTCUSD", params.Ticker)
	suite.Equal(models.Minute, params.Timespan)
	suite.True(time.Time(params.From).Equal(epoch.Add(-time.Hour)))

	suite.api.aggs = nil

	_, err = suite.source.GetQuote(context.Background(), "ETH/USD")
	suite.True(errors.HasCode(err, errors.ErrCodeNotFound))
}

func (suite *PolygonSourceTestSuite) TestGetBars() {
	start := epoch.Add(-10 * time.Minute)
	suite.api.aggs = []models.Agg{
		agg(start.Add(-5*time.Minute), 99),
		agg(start, 100),
		agg(start.Add(5*time.Minute), 101),
	}

	bars, err := suite.source.GetBars(context.Background(), "SPY", types.Timeframe5m, start, epoch)
	suite.Require().NoError(err)
	suite.Require().Len(bars, 2)
	suite.Equal(100.0, bars[0].Close)
	suite.Equal(types.Timeframe5m, bars[1].Timeframe)
	suite.Equal("SPY", bars[1].Symbol)

	params := suite.api.aggParams[0]
	suite.Equal(5, params.Multiplier)
	suite.Equal(models.Minute, params.Timespan)
}

func (suite *PolygonSourceTestSuite) TestGetBarsErrors() {
	_, err := suite.source.GetBars(context.Background(), "SPY", types.Timeframe("3m"), epoch.Add(-time.Hour), epoch)
	suite.True(errors.HasCode(err, errors.ErrCodeUnsupported))

	_, err = suite.source.GetBars(context.Background(), "SPY", types.Timeframe1h, epoch, epoch.Add(-time.Hour))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	suite.api.aggsErr = errors.New(errors.ErrCodeUnknown, "rate limited")

	_, err = suite.source.GetBars(context.Background(), "SPY", types.Timeframe1d, epoch.Add(-time.Hour), epoch)
	suite.True(errors.HasCode(err, errors.ErrCodeUpstream))
}

func (suite *PolygonSourceTestSuite) TestNewSource() {
	source, err := NewSource(Config{Provider: ProviderPolygon, APIKey: "key"}, nil)
	suite.Require().NoError(err)
	suite.Equal("polygon", source.Name())

	_, err = NewSource(Config{Provider: "iex", APIKey: "key"}, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

	_, err = NewSource(Config{Provider: ProviderPolygon}, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}
