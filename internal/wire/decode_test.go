package wire

import (
	"testing"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeReportsConsumedFields(t *testing.T) {
	fields := []string{"1", "6", "7", "1", "189.5", "300", "0", "2", "6", "7", "0", "500"}

	msg, consumed, err := Decode(fields, MaxClientVersion)
	require.NoError(t, err)
	assert.Equal(t, 7, consumed)
	assert.Equal(t, &TickPrice{ReqID: 7, TickType: TickBid, Price: 189.5, Size: 300}, msg)

	msg, consumed, err = Decode(fields[consumed:], MaxClientVersion)
	require.NoError(t, err)
	assert.Equal(t, 5, consumed)
	assert.Equal(t, &TickSize{ReqID: 7, TickType: TickBidSize, Size: 500}, msg)
}

func TestDecodeIncomplete(t *testing.T) {
	full := Encode(&AccountSummary{ReqID: 1, Account: "DU1", Tag: "NetLiquidation", Value: "100000", Currency: "USD"}, MaxClientVersion)

	for i := 0; i < len(full); i++ {
		_, _, err := Decode(full[:i], MaxClientVersion)
		assert.ErrorIs(t, err, ErrIncomplete, "prefix of %d fields", i)
	}

	_, consumed, err := Decode(full, MaxClientVersion)
	require.NoError(t, err)
	assert.Equal(t, len(full), consumed)
}

func TestDecodeMalformedNumber(t *testing.T) {
	_, _, err := Decode([]string{"9", "1", "abc"}, MaxClientVersion)

	assert.True(t, errors.HasCode(err, errors.ErrCodeProtocolError))
	assert.NotErrorIs(t, err, ErrIncomplete)
}

func TestDecodeOrderStatusDependsOnServerVersion(t *testing.T) {
	old := []string{"3", "6", "42", "Filled", "10", "0", "99.95", "1001", "0", "99.95", "1", ""}

	msg, consumed, err := Decode(old, 100)
	require.NoError(t, err)
	assert.Equal(t, len(old), consumed)

	status := msg.(*OrderStatus)
	assert.Equal(t, int64(42), status.OrderID)
	assert.Equal(t, "Filled", status.Status)
	assert.Equal(t, 10.0, status.Filled)
	assert.Equal(t, 99.95, status.AvgFillPrice)
	assert.Equal(t, int64(1001), status.PermID)

	current := []string{"3", "42", "Submitted", "0", "10", "0", "1001", "0", "0", "1", "", "0"}

	msg, consumed, err = Decode(current, MaxClientVersion)
	require.NoError(t, err)
	assert.Equal(t, len(current), consumed)
	assert.Equal(t, "Submitted", msg.(*OrderStatus).Status)
	assert.Equal(t, 10.0, msg.(*OrderStatus).Remaining)
}

func TestDecodeHistoricalDataVariableLength(t *testing.T) {
	fields := []string{
		"17", "5", "20240101 09:30:00", "20240101 16:00:00", "2",
		"20240101 09:30:00", "100", "101", "99.5", "100.5", "1200", "100.2", "15",
		"20240101 09:31:00", "100.5", "102", "100", "101.5", "800", "101.1", "9",
		"9", "1", "77",
	}

	msg, consumed, err := Decode(fields, MaxClientVersion)
	require.NoError(t, err)
	assert.Equal(t, 21, consumed)

	data := msg.(*HistoricalData)
	assert.Equal(t, int64(5), data.RequestID())
	require.Len(t, data.Bars, 2)
	assert.Equal(t, 101.5, data.Bars[1].Close)
	assert.Equal(t, 9, data.Bars[1].BarCount)

	next, _, err := Decode(fields[consumed:], MaxClientVersion)
	require.NoError(t, err)
	assert.Equal(t, &NextValidID{OrderID: 77}, next)
}

func TestDecodeHistoricalDataRejectsHugeCount(t *testing.T) {
	_, _, err := Decode([]string{"17", "5", "a", "b", "99999999"}, MaxClientVersion)

	assert.True(t, errors.HasCode(err, errors.ErrCodeProtocolError))
	assert.NotErrorIs(t, err, ErrIncomplete)
}

func TestDecodeUnknownCode(t *testing.T) {
	_, _, err := Decode([]string{"999"}, MaxClientVersion)
	assert.ErrorIs(t, err, ErrUnknownMessage)

	_, _, err = Decode(nil, MaxClientVersion)
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestUnsetPriceDecodesAsNone(t *testing.T) {
	order := NativeOrder{OrderID: 1, Action: "BUY", TotalQuantity: 1, OrderType: OrderTypeMarket}
	fields := Encode(&PlaceOrder{Order: order}, MaxClientVersion)

	// limit price sits after code, order id, 12 contract fields, action, quantity and type
	assert.Equal(t, "", fields[17])
	fields[17] = unsetDouble

	msg, _, err := DecodeRequest(fields, MaxClientVersion)
	require.NoError(t, err)
	assert.Equal(t, optional.None[float64](), msg.(*PlaceOrder).Order.LimitPrice)
}

func TestRequestsRoundTrip(t *testing.T) {
	contract := ContractFor("AAPL", "equity")
	requests := []Message{
		&StartAPI{ClientID: 7},
		&ReqMktData{ReqID: 1, Contract: contract, Snapshot: true},
		&CancelMktData{ReqID: 1},
		&CancelOrder{OrderID: 12},
		&ReqAcctData{Subscribe: true, Account: "DU1"},
		&ReqExecutions{ReqID: 3, Filter: ExecutionFilter{Symbol: "AAPL"}},
		&ReqAllOpenOrders{},
		&ReqHistoricalData{ReqID: 4, Contract: contract, EndDateTime: "20240102 16:00:00", BarSize: "1 min", Duration: "1 D", UseRTH: true, WhatToShow: "TRADES", FormatDate: 2},
		&ReqCurrentTime{},
		&ReqRealTimeBars{ReqID: 5, Contract: contract, BarSize: 5, WhatToShow: "TRADES"},
		&CancelRealTimeBars{ReqID: 5},
		&ReqAccountSummary{ReqID: 6, Group: "All", Tags: "NetLiquidation"},
		&CancelAccountSummary{ReqID: 6},
		&ReqPositionsMulti{ReqID: 8, Account: "DU1"},
		&CancelPositionsMulti{ReqID: 8},
	}

	for _, serverVersion := range []int{MinClientVersion, MaxClientVersion} {
		for _, want := range requests {
			fields := Encode(want, serverVersion)

			got, consumed, err := DecodeRequest(fields, serverVersion)
			require.NoError(t, err)
			assert.Equal(t, len(fields), consumed)
			assert.Equal(t, want, got)
		}
	}
}

func TestManagedAccounts(t *testing.T) {
	msg := &ManagedAccts{AccountsList: "DU1, DU2,"}

	assert.Equal(t, []string{"DU1", "DU2"}, msg.Accounts())
}
