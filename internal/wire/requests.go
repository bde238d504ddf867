package wire

// StartAPI completes the handshake and names the client id.
type StartAPI struct {
	ClientID             int64
	OptionalCapabilities string
}

func (*StartAPI) Code() int { return CodeStartAPI }

func (m *StartAPI) walk(c fieldCodec, _ int) {
	c.Version(2)
	c.Int64(&m.ClientID)
	c.Str(&m.OptionalCapabilities)
}

type ReqMktData struct {
	ReqID              int64
	Contract           Contract
	GenericTicks       string
	Snapshot           bool
	RegulatorySnapshot bool
}

func (*ReqMktData) Code() int          { return CodeReqMktData }
func (m *ReqMktData) RequestID() int64 { return m.ReqID }

func (m *ReqMktData) walk(c fieldCodec, _ int) {
	c.Version(11)
	c.Int64(&m.ReqID)
	m.Contract.walk(c)

	deltaNeutral := false
	c.Bool(&deltaNeutral)
	c.Str(&m.GenericTicks)
	c.Bool(&m.Snapshot)
	c.Bool(&m.RegulatorySnapshot)

	options := ""
	c.Str(&options)
}

type CancelMktData struct {
	ReqID int64
}

func (*CancelMktData) Code() int          { return CodeCancelMktData }
func (m *CancelMktData) RequestID() int64 { return m.ReqID }

func (m *CancelMktData) walk(c fieldCodec, _ int) {
	c.Version(2)
	c.Int64(&m.ReqID)
}

// PlaceOrder submits a new order, or amends a live one when the order id is
// reused.
type PlaceOrder struct {
	Order NativeOrder
}

func (*PlaceOrder) Code() int { return CodePlaceOrder }

func (m *PlaceOrder) walk(c fieldCodec, serverVersion int) {
	if serverVersion < ServerVersionOrderContainer {
		c.Version(45)
	}

	m.Order.walk(c)
}

type CancelOrder struct {
	OrderID               int64
	ManualOrderCancelTime string
}

func (*CancelOrder) Code() int { return CodeCancelOrder }

func (m *CancelOrder) walk(c fieldCodec, serverVersion int) {
	c.Version(1)
	c.Int64(&m.OrderID)

	if serverVersion >= ServerVersionManualOrderTime {
		c.Str(&m.ManualOrderCancelTime)
	}
}

// ReqAcctData starts or stops account and portfolio pushes.
type ReqAcctData struct {
	Subscribe bool
	Account   string
}

func (*ReqAcctData) Code() int { return CodeReqAcctData }

func (m *ReqAcctData) walk(c fieldCodec, _ int) {
	c.Version(2)
	c.Bool(&m.Subscribe)
	c.Str(&m.Account)
}

type ExecutionFilter struct {
	ClientID int64
	Account  string
	Time     string
	Symbol   string
	SecType  string
	Exchange string
	Side     string
}

type ReqExecutions struct {
	ReqID  int64
	Filter ExecutionFilter
}

func (*ReqExecutions) Code() int          { return CodeReqExecutions }
func (m *ReqExecutions) RequestID() int64 { return m.ReqID }

func (m *ReqExecutions) walk(c fieldCodec, _ int) {
	c.Version(3)
	c.Int64(&m.ReqID)
	c.Int64(&m.Filter.ClientID)
	c.Str(&m.Filter.Account)
	c.Str(&m.Filter.Time)
	c.Str(&m.Filter.Symbol)
	c.Str(&m.Filter.SecType)
	c.Str(&m.Filter.Exchange)
	c.Str(&m.Filter.Side)
}

type ReqAllOpenOrders struct{}

func (*ReqAllOpenOrders) Code() int { return CodeReqAllOpenOrders }

func (*ReqAllOpenOrders) walk(c fieldCodec, _ int) {
	c.Version(1)
}

type ReqHistoricalData struct {
	ReqID        int64
	Contract     Contract
	EndDateTime  string
	BarSize      string
	Duration     string
	UseRTH       bool
	WhatToShow   string
	FormatDate   int
	KeepUpToDate bool
}

func (*ReqHistoricalData) Code() int          { return CodeReqHistoricalData }
func (m *ReqHistoricalData) RequestID() int64 { return m.ReqID }

func (m *ReqHistoricalData) walk(c fieldCodec, serverVersion int) {
	if serverVersion < ServerVersionSyntRealtimeBars {
		c.Version(6)
	}

	c.Int64(&m.ReqID)
	m.Contract.walk(c)

	includeExpired := false
	c.Bool(&includeExpired)
	c.Str(&m.EndDateTime)
	c.Str(&m.BarSize)
	c.Str(&m.Duration)
	c.Bool(&m.UseRTH)
	c.Str(&m.WhatToShow)
	c.Int(&m.FormatDate)
	c.Bool(&m.KeepUpToDate)

	chartOptions := ""
	c.Str(&chartOptions)
}

type ReqCurrentTime struct{}

func (*ReqCurrentTime) Code() int { return CodeReqCurrentTime }

func (*ReqCurrentTime) walk(c fieldCodec, _ int) {
	c.Version(1)
}

type ReqRealTimeBars struct {
	ReqID      int64
	Contract   Contract
	BarSize    int
	WhatToShow string
	UseRTH     bool
}

func (*ReqRealTimeBars) Code() int          { return CodeReqRealTimeBars }
func (m *ReqRealTimeBars) RequestID() int64 { return m.ReqID }

func (m *ReqRealTimeBars) walk(c fieldCodec, _ int) {
	c.Version(3)
	c.Int64(&m.ReqID)
	m.Contract.walk(c)
	c.Int(&m.BarSize)
	c.Str(&m.WhatToShow)
	c.Bool(&m.UseRTH)

	options := ""
	c.Str(&options)
}

type CancelRealTimeBars struct {
	ReqID int64
}

func (*CancelRealTimeBars) Code() int          { return CodeCancelRealTimeBars }
func (m *CancelRealTimeBars) RequestID() int64 { return m.ReqID }

func (m *CancelRealTimeBars) walk(c fieldCodec, _ int) {
	c.Version(1)
	c.Int64(&m.ReqID)
}

type ReqAccountSummary struct {
	ReqID int64
	Group string
	Tags  string
}

func (*ReqAccountSummary) Code() int          { return CodeReqAccountSummary }
func (m *ReqAccountSummary) RequestID() int64 { return m.ReqID }

func (m *ReqAccountSummary) walk(c fieldCodec, _ int) {
	c.Version(1)
	c.Int64(&m.ReqID)
	c.Str(&m.Group)
	c.Str(&m.Tags)
}

type CancelAccountSummary struct {
	ReqID int64
}

func (*CancelAccountSummary) Code() int          { return CodeCancelAccountSummary }
func (m *CancelAccountSummary) RequestID() int64 { return m.ReqID }

func (m *CancelAccountSummary) walk(c fieldCodec, _ int) {
	c.Version(1)
	c.Int64(&m.ReqID)
}

type ReqPositionsMulti struct {
	ReqID     int64
	Account   string
	ModelCode string
}

func (*ReqPositionsMulti) Code() int          { return CodeReqPositionsMulti }
func (m *ReqPositionsMulti) RequestID() int64 { return m.ReqID }

func (m *ReqPositionsMulti) walk(c fieldCodec, _ int) {
	c.Version(1)
	c.Int64(&m.ReqID)
	c.Str(&m.Account)
	c.Str(&m.ModelCode)
}

type CancelPositionsMulti struct {
	ReqID int64
}

func (*CancelPositionsMulti) Code() int          { return CodeCancelPositionsMulti }
func (m *CancelPositionsMulti) RequestID() int64 { return m.ReqID }

func (m *CancelPositionsMulti) walk(c fieldCodec, _ int) {
	c.Version(1)
	c.Int64(&m.ReqID)
}
