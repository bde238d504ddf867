package marketdata

import (
	"context"
	"strings"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-gateway/internal/logger"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"go.uber.org/zap"
)

// PolygonAggsIterator is the aggregate iterator returned by the Polygon client.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient is the part of the Polygon REST client the source uses.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
	GetLastQuote(ctx context.Context, params *models.GetLastQuoteParams, options ...models.RequestOption) (*models.GetLastQuoteResponse, error)
	GetLastTrade(ctx context.Context, params *models.GetLastTradeParams, options ...models.RequestOption) (*models.GetLastTradeResponse, error)
}

type polygonAPIClient struct {
	client *polygon.Client
}

func (c *polygonAPIClient) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return c.client.ListAggs(ctx, params, options...)
}

func (c *polygonAPIClient) GetLastQuote(ctx context.Context, params *models.GetLastQuoteParams, options ...models.RequestOption) (*models.GetLastQuoteResponse, error) {
	return c.client.GetLastQuote(ctx, params, options...)
}

func (c *polygonAPIClient) GetLastTrade(ctx context.Context, params *models.GetLastTradeParams, options ...models.RequestOption) (*models.GetLastTradeResponse, error) {
	return c.client.GetLastTrade(ctx, params, options...)
}

type timespan struct {
	multiplier int
	timespan   models.Timespan
}

var polygonTimespans = map[types.Timeframe]timespan{
	types.Timeframe1s:  {1, models.Second},
	types.Timeframe5s:  {5, models.Second},
	types.Timeframe1m:  {1, models.Minute},
	types.Timeframe5m:  {5, models.Minute},
	types.Timeframe15m: {15, models.Minute},
	types.Timeframe30m: {30, models.Minute},
	types.Timeframe1h:  {1, models.Hour},
	types.Timeframe1d:  {1, models.Day},
	types.Timeframe1w:  {1, models.Week},
}

// cryptoQuoteLookback bounds the minute aggregates read to price a crypto pair.
const cryptoQuoteLookback = time.Hour

// PolygonSource reads quotes and aggregates from Polygon.
type PolygonSource struct {
	apiClient PolygonAPIClient
	now       func() time.Time
	logger    *logger.Logger
}

func NewPolygonSource(apiKey string, log *logger.Logger) (*PolygonSource, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "polygon apiKey is required")
	}

	return NewPolygonSourceWithAPI(&polygonAPIClient{client: polygon.New(apiKey)}, log), nil
}

// NewPolygonSourceWithAPI creates a source over an existing client.
func NewPolygonSourceWithAPI(apiClient PolygonAPIClient, log *logger.Logger) *PolygonSource {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &PolygonSource{
		apiClient: apiClient,
		now:       time.Now,
		logger:    log.Named("polygon"),
	}
}

func (s *PolygonSource) Name() string { return string(ProviderPolygon) }

// ticker maps a gateway symbol onto a Polygon ticker. Pairs written as
// BASE/QUOTE are crypto.
func ticker(symbol string) (string, bool) {
	if base, quote, ok := strings.Cut(symbol, "/"); ok {
		return "X:" + strings.ToUpper(base+quote), true
	}

	return strings.ToUpper(symbol), false
}

// GetQuote returns the NBBO with the last trade for stocks. Crypto pairs are
// priced from the close of the latest minute aggregate.
func (s *PolygonSource) GetQuote(ctx context.Context, symbol string) (types.Quote, error) {
	polygonTicker, crypto := ticker(symbol)
	if crypto {
		return s.cryptoQuote(ctx, symbol, polygonTicker)
	}

	resp, err := s.apiClient.GetLastQuote(ctx, &models.GetLastQuoteParams{Ticker: polygonTicker})
	if err != nil {
		return types.Quote{}, wrapError(err, "failed to get polygon quote for "+symbol)
	}

	last := resp.Results
	quote := types.Quote{Symbol: symbol, Timestamp: time.Time(last.SipTimestamp)}
	quote.Set(types.QuoteFieldBid, last.BidPrice)
	quote.Set(types.QuoteFieldBidSize, float64(last.BidSize))
	quote.Set(types.QuoteFieldAsk, last.AskPrice)
	quote.Set(types.QuoteFieldAskSize, float64(last.AskSize))

	trade, err := s.apiClient.GetLastTrade(ctx, &models.GetLastTradeParams{Ticker: polygonTicker})
	if err != nil {
		s.logger.Debug("Quote without last trade", zap.String("symbol", symbol), zap.Error(err))

		return quote, nil
	}

	quote.Set(types.QuoteFieldLast, trade.Results.Price)
	quote.Set(types.QuoteFieldLastSize, float64(trade.Results.Size))

	if at := time.Time(trade.Results.Timestamp); at.After(quote.Timestamp) {
		quote.Timestamp = at
	}

	return quote, nil
}

func (s *PolygonSource) cryptoQuote(ctx context.Context, symbol, polygonTicker string) (types.Quote, error) {
	end := s.now()

	aggs, err := s.listAggs(ctx, polygonTicker, timespan{1, models.Minute}, end.Add(-cryptoQuoteLookback), end)
	if err != nil {
		return types.Quote{}, wrapError(err, "failed to get polygon aggregates for "+symbol)
	}

	if len(aggs) == 0 {
		return types.Quote{}, errors.Newf(errors.ErrCodeNotFound, "no recent trades for %s", symbol)
	}

	latest := aggs[len(aggs)-1]
	quote := types.Quote{Symbol: symbol, Timestamp: time.Time(latest.Timestamp)}
	quote.Set(types.QuoteFieldLast, latest.Close)
	quote.Set(types.QuoteFieldVolume, latest.Volume)

	return quote, nil
}

func (s *PolygonSource) GetBars(ctx context.Context, symbol string, timeframe types.Timeframe, start, end time.Time) ([]types.Bar, error) {
	span, ok := polygonTimespans[timeframe]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnsupported, "polygon does not support %s bars", timeframe)
	}

	if end.Before(start) {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "end must not be before start")
	}

	polygonTicker, _ := ticker(symbol)

	aggs, err := s.listAggs(ctx, polygonTicker, span, start, end)
	if err != nil {
		return nil, wrapError(err, "failed to get polygon aggregates for "+symbol)
	}

	bars := make([]types.Bar, 0, len(aggs))
	for _, agg := range aggs {
		at := time.Time(agg.Timestamp)
		if at.Before(start) || at.After(end) {
			continue
		}

		bars = append(bars, types.Bar{
			Symbol:    symbol,
			Timeframe: timeframe,
			Timestamp: at,
			Open:      agg.Open,
			High:      agg.High,
			Low:       agg.Low,
			Close:     agg.Close,
			Volume:    agg.Volume,
		})
	}

	return bars, nil
}

func (s *PolygonSource) listAggs(ctx context.Context, polygonTicker string, span timespan, start, end time.Time) ([]models.Agg, error) {
	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     polygonTicker,
		Multiplier: span.multiplier,
		Timespan:   span.timespan,
		From:       models.Millis(start),
		To:         models.Millis(end),
	}.WithLimit(50000)

	iter := s.apiClient.ListAggs(ctx, params)

	var aggs []models.Agg
	for iter.Next() {
		aggs = append(aggs, iter.Item())
	}

	if err := iter.Err(); err != nil {
		return nil, err
	}

	return aggs, nil
}

func wrapError(err error, message string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.Wrap(errors.ErrCodeTimeout, message, err)
	}

	return errors.Wrap(errors.ErrCodeUpstream, message, err)
}
