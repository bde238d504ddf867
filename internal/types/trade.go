package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a single execution reported by a broker.
type Trade struct {
	ID            string    `json:"id" csv:"id"`
	OrderID       string    `json:"order_id" csv:"order_id"`
	BrokerID      string    `json:"broker_id" csv:"broker_id"`
	Symbol        string    `json:"symbol" csv:"symbol"`
	Side          OrderSide `json:"side" csv:"side"`
	ExecutedAt    time.Time `json:"executed_at" csv:"executed_at"`
	ExecutedQty   float64   `json:"executed_qty" csv:"executed_qty"`
	ExecutedPrice float64   `json:"executed_price" csv:"executed_price"`
	// Fee is the commission charged for this execution
	Fee float64 `json:"fee" csv:"fee"`
}

// Position represents current holdings of an asset at one broker.
type Position struct {
	Symbol        string       `json:"symbol" csv:"symbol"`
	BrokerID      string       `json:"broker_id" csv:"broker_id"`
	Side          PositionSide `json:"side" csv:"side"`
	Quantity      float64      `json:"quantity" csv:"quantity"`
	EntryPrice    float64      `json:"entry_price" csv:"entry_price"`
	CurrentPrice  float64      `json:"current_price" csv:"current_price"`
	MarketValue   float64      `json:"market_value" csv:"market_value"`
	RealizedPnL   float64      `json:"realized_pnl" csv:"realized_pnl"`
	UnrealizedPnL float64      `json:"unrealized_pnl" csv:"unrealized_pnl"`
}

// ComputeUnrealizedPnL derives market value and unrealized P&L from the
// current price. Short positions gain when the price falls.
func (p *Position) ComputeUnrealizedPnL() {
	qty := decimal.NewFromFloat(p.Quantity)
	current := decimal.NewFromFloat(p.CurrentPrice)
	entry := decimal.NewFromFloat(p.EntryPrice)

	p.MarketValue = qty.Mul(current).InexactFloat64()

	diff := current.Sub(entry)
	if p.Side == PositionSideShort {
		diff = diff.Neg()
	}

	p.UnrealizedPnL = diff.Mul(qty).InexactFloat64()
}

// PositionSideFromQuantity returns the side implied by a signed quantity and
// the absolute quantity.
func PositionSideFromQuantity(qty float64) (PositionSide, float64) {
	if qty < 0 {
		return PositionSideShort, -qty
	}

	return PositionSideLong, qty
}
