package wire

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-gateway/internal/types"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

// Gateway order type names.
const (
	OrderTypeMarket    = "MKT"
	OrderTypeLimit     = "LMT"
	OrderTypeStop      = "STP"
	OrderTypeStopLimit = "STP LMT"
	OrderTypeTrail     = "TRAIL"
)

// NativeOrder is the order record carried by PLACE_ORDER and OPEN_ORDER.
type NativeOrder struct {
	OrderID         int64
	Contract        Contract
	Action          string
	TotalQuantity   float64
	OrderType       string
	LimitPrice      optional.Option[float64]
	AuxPrice        optional.Option[float64]
	TimeInForce     string
	OcaGroup        string
	Account         string
	OrderRef        string
	Transmit        bool
	ParentID        int64
	OutsideRTH      bool
	TrailStopPrice  optional.Option[float64]
	TrailingPercent optional.Option[float64]
}

func (o *NativeOrder) walk(c fieldCodec) {
	c.Int64(&o.OrderID)
	o.Contract.walk(c)
	c.Str(&o.Action)
	c.Float(&o.TotalQuantity)
	c.Str(&o.OrderType)
	c.OptFloat(&o.LimitPrice)
	c.OptFloat(&o.AuxPrice)
	c.Str(&o.TimeInForce)
	c.Str(&o.OcaGroup)
	c.Str(&o.Account)
	c.Str(&o.OrderRef)
	c.Bool(&o.Transmit)
	c.Int64(&o.ParentID)
	c.Bool(&o.OutsideRTH)
	c.OptFloat(&o.TrailStopPrice)
	c.OptFloat(&o.TrailingPercent)
}

// ContractFor builds the gateway contract for a symbol of the given asset class.
func ContractFor(symbol string, assetClass types.AssetClass) Contract {
	switch assetClass {
	case types.AssetClassCrypto:
		return Contract{Symbol: symbol, SecType: "CRYPTO", Exchange: "PAXOS", Currency: "USD"}
	case types.AssetClassForex:
		return Contract{Symbol: symbol, SecType: "CASH", Exchange: "IDEALPRO", Currency: "USD"}
	case types.AssetClassFuture:
		return Contract{Symbol: symbol, SecType: "FUT", Exchange: "SMART", Currency: "USD"}
	case types.AssetClassOption:
		return Contract{Symbol: symbol, SecType: "OPT", Exchange: "SMART", Currency: "USD"}
	default:
		return Contract{Symbol: symbol, SecType: "STK", Exchange: "SMART", Currency: "USD"}
	}
}

// AssetClass maps the security type back to the canonical asset class.
func (ct Contract) AssetClass() types.AssetClass {
	switch ct.SecType {
	case "CRYPTO":
		return types.AssetClassCrypto
	case "CASH":
		return types.AssetClassForex
	case "FUT":
		return types.AssetClassFuture
	case "OPT":
		return types.AssetClassOption
	default:
		return types.AssetClassEquity
	}
}

// NativeOrderFromRequest converts a canonical order request into the gateway
// order record.
func NativeOrderFromRequest(orderID int64, account string, req types.OrderRequest) (NativeOrder, error) {
	order := NativeOrder{
		OrderID:       orderID,
		Contract:      ContractFor(req.Symbol, req.AssetClass),
		Action:        string(req.Side),
		TotalQuantity: req.Quantity,
		TimeInForce:   string(req.TimeInForce),
		Account:       account,
		OrderRef:      req.ClientOrderID,
		Transmit:      true,
		OutsideRTH:    req.ExtendedHours,
	}

	if order.TimeInForce == "" {
		order.TimeInForce = string(types.TimeInForceDay)
	}

	switch req.Type {
	case types.OrderTypeMarket:
		order.OrderType = OrderTypeMarket
	case types.OrderTypeLimit:
		order.OrderType = OrderTypeLimit
		order.LimitPrice = req.LimitPrice
	case types.OrderTypeStop:
		order.OrderType = OrderTypeStop
		order.AuxPrice = req.StopPrice
	case types.OrderTypeStopLimit:
		order.OrderType = OrderTypeStopLimit
		order.LimitPrice = req.LimitPrice
		order.AuxPrice = req.StopPrice
	case types.OrderTypeTrailingStop:
		order.OrderType = OrderTypeTrail
		order.AuxPrice = req.TrailAmount
		order.TrailingPercent = req.TrailPercent
		order.TrailStopPrice = req.StopPrice
	default:
		return NativeOrder{}, errors.Newf(errors.ErrCodeInvalidOrder, "unsupported order type %s", req.Type)
	}

	return order, nil
}

// ToRequest converts the gateway order record back into a canonical request.
func (o NativeOrder) ToRequest() (types.OrderRequest, error) {
	req := types.OrderRequest{
		Symbol:        o.Contract.Symbol,
		Side:          types.OrderSide(o.Action),
		Quantity:      o.TotalQuantity,
		TimeInForce:   types.TimeInForce(o.TimeInForce),
		ClientOrderID: o.OrderRef,
		ExtendedHours: o.OutsideRTH,
		AssetClass:    o.Contract.AssetClass(),
	}

	switch o.OrderType {
	case OrderTypeMarket:
		req.Type = types.OrderTypeMarket
	case OrderTypeLimit:
		req.Type = types.OrderTypeLimit
		req.LimitPrice = o.LimitPrice
	case OrderTypeStop:
		req.Type = types.OrderTypeStop
		req.StopPrice = o.AuxPrice
	case OrderTypeStopLimit:
		req.Type = types.OrderTypeStopLimit
		req.LimitPrice = o.LimitPrice
		req.StopPrice = o.AuxPrice
	case OrderTypeTrail:
		req.Type = types.OrderTypeTrailingStop
		req.TrailAmount = o.AuxPrice
		req.TrailPercent = o.TrailingPercent
		req.StopPrice = o.TrailStopPrice
	default:
		return types.OrderRequest{}, errors.Newf(errors.ErrCodeProtocolError, "unknown gateway order type %q", o.OrderType)
	}

	return req, nil
}

// Apply returns a copy of the order with the modification applied. The order
// id is kept so that re-sending it amends the live order.
func (o NativeOrder) Apply(mod types.OrderModification) NativeOrder {
	amended := o

	if mod.Quantity.IsSome() {
		amended.TotalQuantity = mod.Quantity.Unwrap()
	}

	if mod.LimitPrice.IsSome() {
		amended.LimitPrice = mod.LimitPrice
	}

	if mod.StopPrice.IsSome() {
		if amended.OrderType == OrderTypeTrail {
			amended.TrailStopPrice = mod.StopPrice
		} else {
			amended.AuxPrice = mod.StopPrice
		}
	}

	if mod.TimeInForce.IsSome() {
		amended.TimeInForce = string(mod.TimeInForce.Unwrap())
	}

	return amended
}
