package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-gateway/internal/types"
)

// BarGenerator produces random-walk candles for broker and market data fakes.
type BarGenerator struct {
	rng *rand.Rand
}

// NewBarGenerator creates a generator. A fixed seed gives reproducible bars.
func NewBarGenerator(seed int64) *BarGenerator {
	return &BarGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// BarSeries describes the candles to generate.
type BarSeries struct {
	Symbol    string
	Timeframe types.Timeframe
	Start     time.Time
	Count     int
	// InitialPrice is the open of the first bar
	InitialPrice float64
	// Volatility is the standard deviation of the per-bar return
	Volatility float64
	// Trend is the drift spread across the whole series
	Trend          float64
	VolumeBase     float64
	VolumeVariance float64
}

func DefaultSeries() BarSeries {
	return BarSeries{
		Symbol:         "TEST",
		Timeframe:      types.Timeframe1m,
		Start:          time.Date(2026, 10, 16, 13, 30, 0, 0, time.UTC),
		Count:          390,
		InitialPrice:   100.0,
		Volatility:     0.002,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
	}
}

// Generate follows a geometric Brownian motion from the initial price.
func (g *BarGenerator) Generate(series BarSeries) []types.Bar {
	bars := make([]types.Bar, series.Count)
	price := series.InitialPrice
	at := series.Start
	interval := series.Timeframe.Duration()

	for i := range bars {
		open := price

		// Box-Muller
		u1 := 1 - g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		closePrice := open * (1 + series.Volatility*z + series.Trend/float64(series.Count))
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		high := math.Max(open, closePrice) + math.Abs(g.rng.Float64()*series.Volatility*open*0.5)
		low := math.Min(open, closePrice) - math.Abs(g.rng.Float64()*series.Volatility*open*0.5)
		if low <= 0 {
			low = math.Min(open, closePrice) * 0.99
		}

		volume := series.VolumeBase * (1.0 + (g.rng.Float64()*2-1)*series.VolumeVariance)

		bars[i] = types.Bar{
			Symbol:    series.Symbol,
			Timeframe: series.Timeframe,
			Timestamp: at,
			Open:      roundToDecimals(open, 4),
			High:      roundToDecimals(high, 4),
			Low:       roundToDecimals(low, 4),
			Close:     roundToDecimals(closePrice, 4),
			Volume:    roundToDecimals(math.Max(volume, 0), 2),
		}

		price = closePrice
		at = at.Add(interval)
	}

	return bars
}

// QuoteAt returns a quote around the close of bar with the given spread.
func QuoteAt(bar types.Bar, spread float64) types.Quote {
	quote := types.Quote{Symbol: bar.Symbol, Timestamp: bar.Timestamp.Add(bar.Timeframe.Duration())}
	quote.Set(types.QuoteFieldBid, roundToDecimals(bar.Close-spread/2, 4))
	quote.Set(types.QuoteFieldAsk, roundToDecimals(bar.Close+spread/2, 4))
	quote.Set(types.QuoteFieldLast, bar.Close)
	quote.Set(types.QuoteFieldVolume, bar.Volume)

	return quote
}

func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
