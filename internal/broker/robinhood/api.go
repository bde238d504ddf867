package robinhood

import "time"

// Wire shapes of the Robinhood REST API. Decimal values arrive as strings.

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	MFARequired  bool   `json:"mfa_required"`
	MFAType      string `json:"mfa_type"`
	Detail       string `json:"detail"`
}

type apiError struct {
	Detail         string   `json:"detail"`
	NonFieldErrors []string `json:"non_field_errors"`
}

func (e *apiError) message() string {
	if e == nil {
		return ""
	}

	if e.Detail != "" {
		return e.Detail
	}

	if len(e.NonFieldErrors) > 0 {
		return e.NonFieldErrors[0]
	}

	return ""
}

type page[T any] struct {
	Results []T    `json:"results"`
	Next    string `json:"next"`
}

type accountResponse struct {
	URL           string `json:"url"`
	AccountNumber string `json:"account_number"`
	Type          string `json:"type"`
	Cash          string `json:"cash"`
	BuyingPower   string `json:"buying_power"`
	// MarginBalances is null on cash accounts.
	MarginBalances *marginBalances `json:"margin_balances"`
}

type marginBalances struct {
	MarginLimit     string `json:"margin_limit"`
	UnallocatedCash string `json:"unallocated_margin_cash"`
}

type portfolioResponse struct {
	Equity      string `json:"equity"`
	MarketValue string `json:"market_value"`
}

type positionResponse struct {
	Symbol          string `json:"symbol"`
	Instrument      string `json:"instrument"`
	Quantity        string `json:"quantity"`
	AverageBuyPrice string `json:"average_buy_price"`
}

type instrumentResponse struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Symbol    string `json:"symbol"`
	Tradeable bool   `json:"tradeable"`
}

type orderRequest struct {
	Account     string `json:"account"`
	Instrument  string `json:"instrument"`
	Symbol      string `json:"symbol"`
	Type        string `json:"type"`
	Trigger     string `json:"trigger"`
	TimeInForce string `json:"time_in_force"`
	Side        string `json:"side"`
	Quantity    string `json:"quantity"`
	Price       string `json:"price,omitempty"`
	StopPrice   string `json:"stop_price,omitempty"`
	RefID       string `json:"ref_id"`
	// ExtendedHours lets the order trade outside the regular session.
	ExtendedHours bool `json:"extended_hours"`
}

type execution struct {
	ID        string    `json:"id"`
	Price     string    `json:"price"`
	Quantity  string    `json:"quantity"`
	Timestamp time.Time `json:"timestamp"`
}

type orderResponse struct {
	ID                 string      `json:"id"`
	RefID              string      `json:"ref_id"`
	Instrument         string      `json:"instrument"`
	Symbol             string      `json:"symbol"`
	State              string      `json:"state"`
	Side               string      `json:"side"`
	Type               string      `json:"type"`
	Trigger            string      `json:"trigger"`
	TimeInForce        string      `json:"time_in_force"`
	Quantity           string      `json:"quantity"`
	CumulativeQuantity string      `json:"cumulative_quantity"`
	AveragePrice       string      `json:"average_price"`
	Price              string      `json:"price"`
	StopPrice          string      `json:"stop_price"`
	Fees               string      `json:"fees"`
	RejectReason       string      `json:"reject_reason"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
	Executions         []execution `json:"executions"`
}

type quoteResponse struct {
	Symbol         string    `json:"symbol"`
	BidPrice       string    `json:"bid_price"`
	BidSize        float64   `json:"bid_size"`
	AskPrice       string    `json:"ask_price"`
	AskSize        float64   `json:"ask_size"`
	LastTradePrice string    `json:"last_trade_price"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type historical struct {
	BeginsAt   time.Time `json:"begins_at"`
	OpenPrice  string    `json:"open_price"`
	HighPrice  string    `json:"high_price"`
	LowPrice   string    `json:"low_price"`
	ClosePrice string    `json:"close_price"`
	Volume     float64   `json:"volume"`
}

type historicalsResponse struct {
	Symbol      string       `json:"symbol"`
	Historicals []historical `json:"historicals"`
}

type marketHoursResponse struct {
	Date             string     `json:"date"`
	IsOpen           bool       `json:"is_open"`
	OpensAt          *time.Time `json:"opens_at"`
	ClosesAt         *time.Time `json:"closes_at"`
	ExtendedOpensAt  *time.Time `json:"extended_opens_at"`
	ExtendedClosesAt *time.Time `json:"extended_closes_at"`
	NextOpenHours    string     `json:"next_open_hours"`
}
