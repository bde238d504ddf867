package types

import (
	"time"

	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

type AssetClass string

const (
	AssetClassEquity AssetClass = "equity"
	AssetClassCrypto AssetClass = "crypto"
	AssetClassOption AssetClass = "option"
	AssetClassFuture AssetClass = "future"
	AssetClassForex  AssetClass = "forex"
)

// QuoteField marks which fields of a Quote carry a value.
type QuoteField uint16

const (
	QuoteFieldBid QuoteField = 1 << iota
	QuoteFieldAsk
	QuoteFieldBidSize
	QuoteFieldAskSize
	QuoteFieldLast
	QuoteFieldLastSize
	QuoteFieldVolume
)

// Quote is a point-in-time market snapshot. Streams deliver partial quotes;
// Present tells which fields a partial quote carries.
type Quote struct {
	Symbol    string     `json:"symbol"`
	Bid       float64    `json:"bid"`
	Ask       float64    `json:"ask"`
	BidSize   float64    `json:"bid_size"`
	AskSize   float64    `json:"ask_size"`
	Last      float64    `json:"last"`
	LastSize  float64    `json:"last_size"`
	Volume    float64    `json:"volume"`
	Timestamp time.Time  `json:"timestamp"`
	Present   QuoteField `json:"-"`
}

// Has reports whether the field carries a value.
func (q Quote) Has(field QuoteField) bool {
	return q.Present&field != 0
}

// Set stores a value for the field and marks it present.
func (q *Quote) Set(field QuoteField, value float64) {
	switch field {
	case QuoteFieldBid:
		q.Bid = value
	case QuoteFieldAsk:
		q.Ask = value
	case QuoteFieldBidSize:
		q.BidSize = value
	case QuoteFieldAskSize:
		q.AskSize = value
	case QuoteFieldLast:
		q.Last = value
	case QuoteFieldLastSize:
		q.LastSize = value
	case QuoteFieldVolume:
		q.Volume = value
	default:
		return
	}

	q.Present |= field
}

// Merge applies the fields present in update on top of q. Fields missing from
// update keep their previous value.
func (q Quote) Merge(update Quote) Quote {
	merged := q
	if update.Symbol != "" {
		merged.Symbol = update.Symbol
	}

	for _, field := range []QuoteField{
		QuoteFieldBid, QuoteFieldAsk, QuoteFieldBidSize, QuoteFieldAskSize,
		QuoteFieldLast, QuoteFieldLastSize, QuoteFieldVolume,
	} {
		if update.Has(field) {
			merged.Set(field, update.value(field))
		}
	}

	if update.Timestamp.After(merged.Timestamp) {
		merged.Timestamp = update.Timestamp
	}

	return merged
}

// Mid returns the midpoint of bid and ask, or the last price when either side
// is missing.
func (q Quote) Mid() float64 {
	if q.Has(QuoteFieldBid) && q.Has(QuoteFieldAsk) {
		return (q.Bid + q.Ask) / 2
	}

	return q.Last
}

func (q Quote) value(field QuoteField) float64 {
	switch field {
	case QuoteFieldBid:
		return q.Bid
	case QuoteFieldAsk:
		return q.Ask
	case QuoteFieldBidSize:
		return q.BidSize
	case QuoteFieldAskSize:
		return q.AskSize
	case QuoteFieldLast:
		return q.Last
	case QuoteFieldLastSize:
		return q.LastSize
	case QuoteFieldVolume:
		return q.Volume
	default:
		return 0
	}
}

type Timeframe string

const (
	Timeframe1s  Timeframe = "1s"
	Timeframe5s  Timeframe = "5s"
	Timeframe1m  Timeframe = "1m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
	Timeframe1d  Timeframe = "1d"
	Timeframe1w  Timeframe = "1w"
)

var timeframeDurations = map[Timeframe]time.Duration{
	Timeframe1s:  time.Second,
	Timeframe5s:  5 * time.Second,
	Timeframe1m:  time.Minute,
	Timeframe5m:  5 * time.Minute,
	Timeframe15m: 15 * time.Minute,
	Timeframe30m: 30 * time.Minute,
	Timeframe1h:  time.Hour,
	Timeframe1d:  24 * time.Hour,
	Timeframe1w:  7 * 24 * time.Hour,
}

// ParseTimeframe parses a timeframe string such as "5m".
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if _, ok := timeframeDurations[tf]; !ok {
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "unknown timeframe %q", s)
	}

	return tf, nil
}

// Duration returns the length of one bar, or zero for an unknown timeframe.
func (t Timeframe) Duration() time.Duration {
	return timeframeDurations[t]
}

// Bar is one OHLCV candle.
type Bar struct {
	Symbol    string    `json:"symbol" csv:"symbol"`
	Timeframe Timeframe `json:"timeframe" csv:"timeframe"`
	Timestamp time.Time `json:"timestamp" csv:"time"`
	Open      float64   `json:"open" csv:"open"`
	High      float64   `json:"high" csv:"high"`
	Low       float64   `json:"low" csv:"low"`
	Close     float64   `json:"close" csv:"close"`
	Volume    float64   `json:"volume" csv:"volume"`
}

// MarketHours describes one trading session.
type MarketHours struct {
	Date          time.Time `json:"date"`
	IsOpen        bool      `json:"is_open"`
	Open          time.Time `json:"open"`
	Close         time.Time `json:"close"`
	ExtendedOpen  time.Time `json:"extended_open"`
	ExtendedClose time.Time `json:"extended_close"`
	NextOpen      time.Time `json:"next_open"`
	NextClose     time.Time `json:"next_close"`
}

// AlwaysOpen returns the session of a venue that trades around the clock.
func AlwaysOpen(date time.Time) MarketHours {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	return MarketHours{
		Date:          start,
		IsOpen:        true,
		Open:          start,
		Close:         end,
		ExtendedOpen:  start,
		ExtendedClose: end,
		NextOpen:      end,
		NextClose:     end.Add(24 * time.Hour),
	}
}
