// Package wire implements the socket gateway protocol: framing, NUL-delimited
// fields, typed inbound and outbound messages and their dispatch tables.
package wire

// Client version range announced during the handshake.
const (
	MinClientVersion = 100
	MaxClientVersion = 176
)

// Server versions at which message layouts change.
const (
	ServerVersionSyntRealtimeBars = 124
	ServerVersionMarketCapPrice   = 131
	ServerVersionOrderContainer   = 145
	ServerVersionManualOrderTime  = 169
)

// Inbound message codes (gateway to client).
const (
	CodeTickPrice         = 1
	CodeTickSize          = 2
	CodeOrderStatus       = 3
	CodeErrMsg            = 4
	CodeOpenOrder         = 5
	CodeAcctValue         = 6
	CodePortfolioValue    = 7
	CodeAcctUpdateTime    = 8
	CodeNextValidID       = 9
	CodeExecutionData     = 11
	CodeManagedAccts      = 15
	CodeHistoricalData    = 17
	CodeCurrentTime       = 49
	CodeRealTimeBars      = 50
	CodeOpenOrderEnd      = 53
	CodeAcctDownloadEnd   = 54
	CodeExecutionDataEnd  = 55
	CodeTickSnapshotEnd   = 57
	CodePositionData      = 61
	CodePositionEnd       = 62
	CodeAccountSummary    = 63
	CodeAccountSummaryEnd = 64
	CodePositionMulti     = 71
	CodePositionMultiEnd  = 72
)

// Outbound message codes (client to gateway).
const (
	CodeReqMktData           = 1
	CodeCancelMktData        = 2
	CodePlaceOrder           = 3
	CodeCancelOrder          = 4
	CodeReqAcctData          = 6
	CodeReqExecutions        = 7
	CodeReqAllOpenOrders     = 16
	CodeReqHistoricalData    = 20
	CodeReqCurrentTime       = 49
	CodeReqRealTimeBars      = 50
	CodeCancelRealTimeBars   = 51
	CodeReqAccountSummary    = 62
	CodeCancelAccountSummary = 63
	CodeStartAPI             = 71
	CodeReqPositionsMulti    = 74
	CodeCancelPositionsMulti = 75
)

// Tick types carried by TICK_PRICE and TICK_SIZE.
const (
	TickBidSize  = 0
	TickBid      = 1
	TickAsk      = 2
	TickAskSize  = 3
	TickLast     = 4
	TickLastSize = 5
	TickHigh     = 6
	TickLow      = 7
	TickVolume   = 8
	TickClose    = 9
)
