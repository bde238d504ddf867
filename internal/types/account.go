package types

import "time"

type AccountType string

const (
	AccountTypeCash   AccountType = "CASH"
	AccountTypeMargin AccountType = "MARGIN"
)

// Account represents the current account state reported by a broker.
// It is refreshed on every request and never cached.
type Account struct {
	ID       string      `json:"id" yaml:"id"`
	BrokerID string      `json:"broker_id" yaml:"broker_id"`
	Type     AccountType `json:"type" yaml:"type"`
	Currency string      `json:"currency" yaml:"currency"`
	// Balance is the current cash balance (excluding unrealized P&L)
	Balance float64 `json:"balance" yaml:"balance"`
	// Equity is the total account value (balance + unrealized P&L)
	Equity float64 `json:"equity" yaml:"equity"`
	// BuyingPower is the available amount for new purchases
	BuyingPower float64 `json:"buying_power" yaml:"buying_power"`
	Cash        float64 `json:"cash" yaml:"cash"`
	// MarginUsed is the margin currently in use (for margin trading)
	MarginUsed      float64 `json:"margin_used" yaml:"margin_used"`
	MarginAvailable float64 `json:"margin_available" yaml:"margin_available"`
}

// TradeFilter is used to filter trades when querying trade history.
type TradeFilter struct {
	// Symbol filters trades by symbol (empty string means no filter)
	Symbol string `json:"symbol" yaml:"symbol"`
	// StartTime filters trades executed after this time (zero time means no filter)
	StartTime time.Time `json:"start_time" yaml:"start_time"`
	// EndTime filters trades executed before this time (zero time means no filter)
	EndTime time.Time `json:"end_time" yaml:"end_time"`
	// Limit limits the number of trades returned (0 means no limit)
	Limit int `json:"limit" yaml:"limit"`
}

// Matches reports whether the trade passes the filter.
func (f TradeFilter) Matches(t Trade) bool {
	if f.Symbol != "" && f.Symbol != t.Symbol {
		return false
	}

	if !f.StartTime.IsZero() && t.ExecutedAt.Before(f.StartTime) {
		return false
	}

	if !f.EndTime.IsZero() && t.ExecutedAt.After(f.EndTime) {
		return false
	}

	return true
}

// Apply filters trades and truncates the result to the limit.
func (f TradeFilter) Apply(trades []Trade) []Trade {
	result := make([]Trade, 0, len(trades))

	for _, t := range trades {
		if !f.Matches(t) {
			continue
		}

		result = append(result, t)
		if f.Limit > 0 && len(result) >= f.Limit {
			break
		}
	}

	return result
}
