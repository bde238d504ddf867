package wire

import (
	"math/rand/v2"
	"testing"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomPrice(rng *rand.Rand) optional.Option[float64] {
	return optional.Some(float64(rng.IntN(10_000_000))/100 + 0.01)
}

func randomOrderRequest(rng *rand.Rand) types.OrderRequest {
	orderTypes := []types.OrderType{
		types.OrderTypeMarket, types.OrderTypeLimit, types.OrderTypeStop,
		types.OrderTypeStopLimit, types.OrderTypeTrailingStop,
	}
	tifs := []types.TimeInForce{types.TimeInForceDay, types.TimeInForceGTC, types.TimeInForceIOC, types.TimeInForceFOK}
	classes := []types.AssetClass{types.AssetClassEquity, types.AssetClassCrypto, types.AssetClassForex, types.AssetClassFuture, types.AssetClassOption}
	symbols := []string{"AAPL", "MSFT", "BTC", "EUR", "ES"}
	sides := []types.OrderSide{types.OrderSideBuy, types.OrderSideSell}

	req := types.OrderRequest{
		Symbol:        symbols[rng.IntN(len(symbols))],
		Side:          sides[rng.IntN(len(sides))],
		Type:          orderTypes[rng.IntN(len(orderTypes))],
		Quantity:      float64(rng.IntN(100_000)+1) / 10,
		TimeInForce:   tifs[rng.IntN(len(tifs))],
		ExtendedHours: rng.IntN(2) == 1,
		AssetClass:    classes[rng.IntN(len(classes))],
	}

	if rng.IntN(2) == 1 {
		req.ClientOrderID = "client-" + string(rune('a'+rng.IntN(26)))
	}

	switch req.Type {
	case types.OrderTypeLimit:
		req.LimitPrice = randomPrice(rng)
	case types.OrderTypeStop:
		req.StopPrice = randomPrice(rng)
	case types.OrderTypeStopLimit:
		req.LimitPrice = randomPrice(rng)
		req.StopPrice = randomPrice(rng)
	case types.OrderTypeTrailingStop:
		if rng.IntN(2) == 1 {
			req.TrailAmount = randomPrice(rng)
		} else {
			req.TrailPercent = optional.Some(float64(rng.IntN(1000)+1) / 100)
		}
	case types.OrderTypeMarket:
	}

	return req
}

func TestPlaceOrderRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(20240102, 1))

	for i := 0; i < 500; i++ {
		req := randomOrderRequest(rng)
		orderID := int64(rng.IntN(1_000_000) + 1)
		serverVersion := MinClientVersion + rng.IntN(MaxClientVersion-MinClientVersion+1)

		native, err := NativeOrderFromRequest(orderID, "DU123", req)
		require.NoError(t, err)

		fields := Encode(&PlaceOrder{Order: native}, serverVersion)

		msg, consumed, err := DecodeRequest(fields, serverVersion)
		require.NoError(t, err)
		require.Equal(t, len(fields), consumed)

		decoded := msg.(*PlaceOrder).Order
		require.Equal(t, native, decoded, "iteration %d", i)

		back, err := decoded.ToRequest()
		require.NoError(t, err)
		require.Equal(t, req, back, "iteration %d", i)
	}
}

func TestOpenOrderRoundTrip(t *testing.T) {
	native, err := NativeOrderFromRequest(9, "DU123", types.OrderRequest{
		Symbol:     "AAPL",
		Side:       types.OrderSideBuy,
		Type:       types.OrderTypeLimit,
		Quantity:   10,
		LimitPrice: optional.Some(100.0),
	})
	require.NoError(t, err)

	want := &OpenOrder{Order: native, Status: "Submitted", Commission: 1.25}
	fields := Encode(want, MaxClientVersion)

	got, consumed, err := Decode(fields, MaxClientVersion)
	require.NoError(t, err)
	assert.Equal(t, len(fields), consumed)
	assert.Equal(t, want, got)
}

func TestNativeOrderDefaults(t *testing.T) {
	native, err := NativeOrderFromRequest(3, "DU1", types.OrderRequest{
		Symbol:   "AAPL",
		Side:     types.OrderSideSell,
		Type:     types.OrderTypeMarket,
		Quantity: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, "DAY", native.TimeInForce)
	assert.Equal(t, "STK", native.Contract.SecType)
	assert.Equal(t, "SMART", native.Contract.Exchange)
	assert.True(t, native.Transmit)

	_, err = NativeOrderFromRequest(3, "DU1", types.OrderRequest{Type: "ICEBERG"})
	assert.Error(t, err)
}

func TestNativeOrderApply(t *testing.T) {
	native := NativeOrder{OrderID: 5, OrderType: OrderTypeStopLimit, TotalQuantity: 10, LimitPrice: optional.Some(100.0), AuxPrice: optional.Some(98.0), TimeInForce: "DAY"}

	amended := native.Apply(types.OrderModification{
		Quantity:    optional.Some(12.0),
		StopPrice:   optional.Some(97.5),
		TimeInForce: optional.Some(types.TimeInForceGTC),
	})

	assert.Equal(t, int64(5), amended.OrderID)
	assert.Equal(t, 12.0, amended.TotalQuantity)
	assert.Equal(t, optional.Some(100.0), amended.LimitPrice)
	assert.Equal(t, optional.Some(97.5), amended.AuxPrice)
	assert.Equal(t, "GTC", amended.TimeInForce)
	assert.Equal(t, 10.0, native.TotalQuantity)
}
