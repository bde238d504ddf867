package wire

import (
	"strings"
)

// Message is one typed protocol message.
type Message interface {
	Code() int
	walk(c fieldCodec, serverVersion int)
}

// Correlated is implemented by messages that answer a specific request id.
type Correlated interface {
	RequestID() int64
}

// Contract identifies an instrument on the gateway.
type Contract struct {
	ConID           int64
	Symbol          string
	SecType         string
	LastTradeDate   string
	Strike          float64
	Right           string
	Multiplier      string
	Exchange        string
	PrimaryExchange string
	Currency        string
	LocalSymbol     string
	TradingClass    string
}

func (ct *Contract) walk(c fieldCodec) {
	c.Int64(&ct.ConID)
	c.Str(&ct.Symbol)
	c.Str(&ct.SecType)
	c.Str(&ct.LastTradeDate)
	c.Float(&ct.Strike)
	c.Str(&ct.Right)
	c.Str(&ct.Multiplier)
	c.Str(&ct.Exchange)
	c.Str(&ct.PrimaryExchange)
	c.Str(&ct.Currency)
	c.Str(&ct.LocalSymbol)
	c.Str(&ct.TradingClass)
}

type TickPrice struct {
	ReqID    int64
	TickType int
	Price    float64
	Size     float64
	AttrMask int
}

func (*TickPrice) Code() int          { return CodeTickPrice }
func (m *TickPrice) RequestID() int64 { return m.ReqID }

func (m *TickPrice) walk(c fieldCodec, _ int) {
	c.Version(6)
	c.Int64(&m.ReqID)
	c.Int(&m.TickType)
	c.Float(&m.Price)
	c.Float(&m.Size)
	c.Int(&m.AttrMask)
}

type TickSize struct {
	ReqID    int64
	TickType int
	Size     float64
}

func (*TickSize) Code() int          { return CodeTickSize }
func (m *TickSize) RequestID() int64 { return m.ReqID }

func (m *TickSize) walk(c fieldCodec, _ int) {
	c.Version(6)
	c.Int64(&m.ReqID)
	c.Int(&m.TickType)
	c.Float(&m.Size)
}

type OrderStatus struct {
	OrderID       int64
	Status        string
	Filled        float64
	Remaining     float64
	AvgFillPrice  float64
	PermID        int64
	ParentID      int64
	LastFillPrice float64
	ClientID      int64
	WhyHeld       string
	MktCapPrice   float64
}

func (*OrderStatus) Code() int { return CodeOrderStatus }

func (m *OrderStatus) walk(c fieldCodec, serverVersion int) {
	if serverVersion < ServerVersionMarketCapPrice {
		c.Version(6)
	}

	c.Int64(&m.OrderID)
	c.Str(&m.Status)
	c.Float(&m.Filled)
	c.Float(&m.Remaining)
	c.Float(&m.AvgFillPrice)
	c.Int64(&m.PermID)
	c.Int64(&m.ParentID)
	c.Float(&m.LastFillPrice)
	c.Int64(&m.ClientID)
	c.Str(&m.WhyHeld)

	if serverVersion >= ServerVersionMarketCapPrice {
		c.Float(&m.MktCapPrice)
	}
}

// ErrMsg is an error or notice. ReqID is -1 for connection-level notices,
// otherwise a request id or an order id.
type ErrMsg struct {
	ReqID     int64
	ErrorCode int
	Message   string
}

func (*ErrMsg) Code() int          { return CodeErrMsg }
func (m *ErrMsg) RequestID() int64 { return m.ReqID }

func (m *ErrMsg) walk(c fieldCodec, _ int) {
	c.Version(2)
	c.Int64(&m.ReqID)
	c.Int(&m.ErrorCode)
	c.Str(&m.Message)
}

// OpenOrder describes a live order together with its current state.
type OpenOrder struct {
	Order      NativeOrder
	Status     string
	Commission float64
}

func (*OpenOrder) Code() int { return CodeOpenOrder }

func (m *OpenOrder) walk(c fieldCodec, _ int) {
	m.Order.walk(c)
	c.Str(&m.Status)
	c.Float(&m.Commission)
}

type AcctValue struct {
	Key      string
	Value    string
	Currency string
	Account  string
}

func (*AcctValue) Code() int { return CodeAcctValue }

func (m *AcctValue) walk(c fieldCodec, _ int) {
	c.Version(2)
	c.Str(&m.Key)
	c.Str(&m.Value)
	c.Str(&m.Currency)
	c.Str(&m.Account)
}

type PortfolioValue struct {
	Contract      Contract
	Position      float64
	MarketPrice   float64
	MarketValue   float64
	AverageCost   float64
	UnrealizedPnL float64
	RealizedPnL   float64
	Account       string
}

func (*PortfolioValue) Code() int { return CodePortfolioValue }

func (m *PortfolioValue) walk(c fieldCodec, _ int) {
	c.Version(8)
	m.Contract.walk(c)
	c.Float(&m.Position)
	c.Float(&m.MarketPrice)
	c.Float(&m.MarketValue)
	c.Float(&m.AverageCost)
	c.Float(&m.UnrealizedPnL)
	c.Float(&m.RealizedPnL)
	c.Str(&m.Account)
}

type AcctUpdateTime struct {
	Time string
}

func (*AcctUpdateTime) Code() int { return CodeAcctUpdateTime }

func (m *AcctUpdateTime) walk(c fieldCodec, _ int) {
	c.Version(1)
	c.Str(&m.Time)
}

// NextValidID carries the first order id the client may use.
type NextValidID struct {
	OrderID int64
}

func (*NextValidID) Code() int { return CodeNextValidID }

func (m *NextValidID) walk(c fieldCodec, _ int) {
	c.Version(1)
	c.Int64(&m.OrderID)
}

type ExecutionData struct {
	ReqID    int64
	OrderID  int64
	Contract Contract
	ExecID   string
	Time     string
	Account  string
	Exchange string
	Side     string
	Shares   float64
	Price    float64
	PermID   int64
	ClientID int64
	CumQty   float64
	AvgPrice float64
	OrderRef string
}

func (*ExecutionData) Code() int          { return CodeExecutionData }
func (m *ExecutionData) RequestID() int64 { return m.ReqID }

func (m *ExecutionData) walk(c fieldCodec, _ int) {
	c.Int64(&m.ReqID)
	c.Int64(&m.OrderID)
	m.Contract.walk(c)
	c.Str(&m.ExecID)
	c.Str(&m.Time)
	c.Str(&m.Account)
	c.Str(&m.Exchange)
	c.Str(&m.Side)
	c.Float(&m.Shares)
	c.Float(&m.Price)
	c.Int64(&m.PermID)
	c.Int64(&m.ClientID)
	c.Float(&m.CumQty)
	c.Float(&m.AvgPrice)
	c.Str(&m.OrderRef)
}

type ManagedAccts struct {
	AccountsList string
}

func (*ManagedAccts) Code() int { return CodeManagedAccts }

func (m *ManagedAccts) walk(c fieldCodec, _ int) {
	c.Version(1)
	c.Str(&m.AccountsList)
}

// Accounts splits the comma separated account list.
func (m *ManagedAccts) Accounts() []string {
	var accounts []string

	for _, a := range strings.Split(m.AccountsList, ",") {
		if a = strings.TrimSpace(a); a != "" {
			accounts = append(accounts, a)
		}
	}

	return accounts
}

type HistoricalBar struct {
	Date     string
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
	WAP      float64
	BarCount int
}

// HistoricalData is a variable-length message: a header followed by a counted
// list of bars.
type HistoricalData struct {
	ReqID int64
	Start string
	End   string
	Bars  []HistoricalBar
}

func (*HistoricalData) Code() int          { return CodeHistoricalData }
func (m *HistoricalData) RequestID() int64 { return m.ReqID }

func (m *HistoricalData) walk(c fieldCodec, serverVersion int) {
	if serverVersion < ServerVersionSyntRealtimeBars {
		c.Version(3)
	}

	c.Int64(&m.ReqID)
	c.Str(&m.Start)
	c.Str(&m.End)

	n := len(m.Bars)
	c.Count(&n)

	if c.Decoding() {
		m.Bars = make([]HistoricalBar, n)
	}

	for i := range m.Bars {
		bar := &m.Bars[i]
		c.Str(&bar.Date)
		c.Float(&bar.Open)
		c.Float(&bar.High)
		c.Float(&bar.Low)
		c.Float(&bar.Close)
		c.Float(&bar.Volume)
		c.Float(&bar.WAP)

		if serverVersion < ServerVersionSyntRealtimeBars {
			hasGaps := ""
			c.Str(&hasGaps)
		}

		c.Int(&bar.BarCount)
	}
}

type CurrentTime struct {
	Time int64
}

func (*CurrentTime) Code() int { return CodeCurrentTime }

func (m *CurrentTime) walk(c fieldCodec, _ int) {
	c.Version(1)
	c.Int64(&m.Time)
}

type RealTimeBar struct {
	ReqID  int64
	Time   int64
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	WAP    float64
	Count  int
}

func (*RealTimeBar) Code() int          { return CodeRealTimeBars }
func (m *RealTimeBar) RequestID() int64 { return m.ReqID }

func (m *RealTimeBar) walk(c fieldCodec, _ int) {
	c.Version(3)
	c.Int64(&m.ReqID)
	c.Int64(&m.Time)
	c.Float(&m.Open)
	c.Float(&m.High)
	c.Float(&m.Low)
	c.Float(&m.Close)
	c.Float(&m.Volume)
	c.Float(&m.WAP)
	c.Int(&m.Count)
}

type OpenOrderEnd struct{}

func (*OpenOrderEnd) Code() int { return CodeOpenOrderEnd }

func (*OpenOrderEnd) walk(c fieldCodec, _ int) {
	c.Version(1)
}

type AcctDownloadEnd struct {
	Account string
}

func (*AcctDownloadEnd) Code() int { return CodeAcctDownloadEnd }

func (m *AcctDownloadEnd) walk(c fieldCodec, _ int) {
	c.Version(1)
	c.Str(&m.Account)
}

type ExecutionDataEnd struct {
	ReqID int64
}

func (*ExecutionDataEnd) Code() int          { return CodeExecutionDataEnd }
func (m *ExecutionDataEnd) RequestID() int64 { return m.ReqID }

func (m *ExecutionDataEnd) walk(c fieldCodec, _ int) {
	c.Version(1)
	c.Int64(&m.ReqID)
}

type TickSnapshotEnd struct {
	ReqID int64
}

func (*TickSnapshotEnd) Code() int          { return CodeTickSnapshotEnd }
func (m *TickSnapshotEnd) RequestID() int64 { return m.ReqID }

func (m *TickSnapshotEnd) walk(c fieldCodec, _ int) {
	c.Version(1)
	c.Int64(&m.ReqID)
}

type PositionData struct {
	Account  string
	Contract Contract
	Position float64
	AvgCost  float64
}

func (*PositionData) Code() int { return CodePositionData }

func (m *PositionData) walk(c fieldCodec, _ int) {
	c.Version(3)
	c.Str(&m.Account)
	m.Contract.walk(c)
	c.Float(&m.Position)
	c.Float(&m.AvgCost)
}

type PositionEnd struct{}

func (*PositionEnd) Code() int { return CodePositionEnd }

func (*PositionEnd) walk(c fieldCodec, _ int) {
	c.Version(1)
}

type AccountSummary struct {
	ReqID    int64
	Account  string
	Tag      string
	Value    string
	Currency string
}

func (*AccountSummary) Code() int          { return CodeAccountSummary }
func (m *AccountSummary) RequestID() int64 { return m.ReqID }

func (m *AccountSummary) walk(c fieldCodec, _ int) {
	c.Version(1)
	c.Int64(&m.ReqID)
	c.Str(&m.Account)
	c.Str(&m.Tag)
	c.Str(&m.Value)
	c.Str(&m.Currency)
}

type AccountSummaryEnd struct {
	ReqID int64
}

func (*AccountSummaryEnd) Code() int          { return CodeAccountSummaryEnd }
func (m *AccountSummaryEnd) RequestID() int64 { return m.ReqID }

func (m *AccountSummaryEnd) walk(c fieldCodec, _ int) {
	c.Version(1)
	c.Int64(&m.ReqID)
}

type PositionMulti struct {
	ReqID     int64
	Account   string
	Contract  Contract
	Position  float64
	AvgCost   float64
	ModelCode string
}

func (*PositionMulti) Code() int          { return CodePositionMulti }
func (m *PositionMulti) RequestID() int64 { return m.ReqID }

func (m *PositionMulti) walk(c fieldCodec, _ int) {
	c.Version(1)
	c.Int64(&m.ReqID)
	c.Str(&m.Account)
	m.Contract.walk(c)
	c.Float(&m.Position)
	c.Float(&m.AvgCost)
	c.Str(&m.ModelCode)
}

type PositionMultiEnd struct {
	ReqID int64
}

func (*PositionMultiEnd) Code() int          { return CodePositionMultiEnd }
func (m *PositionMultiEnd) RequestID() int64 { return m.ReqID }

func (m *PositionMultiEnd) walk(c fieldCodec, _ int) {
	c.Version(1)
	c.Int64(&m.ReqID)
}
