package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-gateway/pkg/errors"
)

type OrderSide string

type OrderType string

type OrderStatus string

type TimeInForce string

type PositionSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

const (
	OrderTypeMarket       OrderType = "MARKET"
	OrderTypeLimit        OrderType = "LIMIT"
	OrderTypeStop         OrderType = "STOP"
	OrderTypeStopLimit    OrderType = "STOP_LIMIT"
	OrderTypeTrailingStop OrderType = "TRAILING_STOP"
)

// Canonical order states. Every adapter vocabulary maps onto this set.
const (
	OrderStatusPending             OrderStatus = "PENDING"
	OrderStatusOpen                OrderStatus = "OPEN"
	OrderStatusPartial             OrderStatus = "PARTIAL"
	OrderStatusFilled              OrderStatus = "FILLED"
	OrderStatusCancelled           OrderStatus = "CANCELLED"
	OrderStatusRejected            OrderStatus = "REJECTED"
	OrderStatusNeedsReconciliation OrderStatus = "NEEDS_RECONCILIATION"
)

const (
	TimeInForceDay TimeInForce = "DAY"
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
	TimeInForceOPG TimeInForce = "OPG"
)

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

// IsTerminal reports whether no further transition is accepted from the status.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	default:
		return false
	}
}

// IsActive reports whether the order may still trade.
func (s OrderStatus) IsActive() bool {
	switch s {
	case OrderStatusPending, OrderStatusOpen, OrderStatusPartial:
		return true
	default:
		return false
	}
}

// Opposite returns the side that closes a position opened with s.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}

	return OrderSideBuy
}

// OrderRequest is the caller's intent. It is never mutated after submission.
type OrderRequest struct {
	Symbol      string      `yaml:"symbol" json:"symbol" validate:"required"`
	Side        OrderSide   `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Type        OrderType   `yaml:"type" json:"type" validate:"required,oneof=MARKET LIMIT STOP STOP_LIMIT TRAILING_STOP"`
	Quantity    float64     `yaml:"quantity" json:"quantity" validate:"required,gt=0"`
	TimeInForce TimeInForce `yaml:"time_in_force" json:"time_in_force" validate:"omitempty,oneof=DAY GTC IOC FOK OPG"`
	// LimitPrice is required for LIMIT and STOP_LIMIT orders.
	LimitPrice optional.Option[float64] `yaml:"limit_price" json:"limit_price"`
	// StopPrice is required for STOP and STOP_LIMIT orders.
	StopPrice optional.Option[float64] `yaml:"stop_price" json:"stop_price"`
	// TrailAmount or TrailPercent is required for TRAILING_STOP orders.
	TrailAmount   optional.Option[float64] `yaml:"trail_amount" json:"trail_amount"`
	TrailPercent  optional.Option[float64] `yaml:"trail_percent" json:"trail_percent"`
	ClientOrderID string                   `yaml:"client_order_id" json:"client_order_id"`
	ExtendedHours bool                     `yaml:"extended_hours" json:"extended_hours"`
	AssetClass    AssetClass               `yaml:"asset_class" json:"asset_class"`
}

// OrderModification carries the fields a caller wants to amend on a live order.
type OrderModification struct {
	Quantity    optional.Option[float64]     `json:"quantity"`
	LimitPrice  optional.Option[float64]     `json:"limit_price"`
	StopPrice   optional.Option[float64]     `json:"stop_price"`
	TimeInForce optional.Option[TimeInForce] `json:"time_in_force"`
}

// IsEmpty reports whether the modification changes nothing.
func (m OrderModification) IsEmpty() bool {
	return m.Quantity.IsNone() && m.LimitPrice.IsNone() && m.StopPrice.IsNone() && m.TimeInForce.IsNone()
}

// Order is the canonical view of a submitted order. It is owned by the order
// tracker and only changes through broker status updates.
type Order struct {
	ID                 string                     `json:"id"`
	ClientOrderID      string                     `json:"client_order_id"`
	BrokerID           string                     `json:"broker_id"`
	Symbol             string                     `json:"symbol"`
	Side               OrderSide                  `json:"side"`
	Type               OrderType                  `json:"type"`
	Quantity           float64                    `json:"quantity"`
	FilledQuantity     float64                    `json:"filled_quantity"`
	LimitPrice         optional.Option[float64]   `json:"limit_price"`
	StopPrice          optional.Option[float64]   `json:"stop_price"`
	TrailAmount        optional.Option[float64]   `json:"trail_amount"`
	TrailPercent       optional.Option[float64]   `json:"trail_percent"`
	TimeInForce        TimeInForce                `json:"time_in_force"`
	Status             OrderStatus                `json:"status"`
	AverageFilledPrice float64                    `json:"average_filled_price"`
	Commission         float64                    `json:"commission"`
	SubmittedAt        time.Time                  `json:"submitted_at"`
	FilledAt           optional.Option[time.Time] `json:"filled_at"`
	CancelledAt        optional.Option[time.Time] `json:"cancelled_at"`
	UpdatedAt          time.Time                  `json:"updated_at"`
	// RejectReason is set when the broker refused the order.
	RejectReason string `json:"reject_reason"`
	// ReplacedBy holds the id of the order that superseded this one after a
	// cancel-then-resubmit modification.
	ReplacedBy string `json:"replaced_by"`
}

// RemainingQuantity returns the unfilled quantity.
func (o Order) RemainingQuantity() float64 {
	remaining := o.Quantity - o.FilledQuantity
	if remaining < 0 {
		return 0
	}

	return remaining
}

// OrderFromRequest builds the canonical pending order for a request that was
// assigned the broker id.
func OrderFromRequest(id string, brokerID string, req OrderRequest, now time.Time) Order {
	tif := req.TimeInForce
	if tif == "" {
		tif = TimeInForceDay
	}

	return Order{
		ID:            id,
		ClientOrderID: req.ClientOrderID,
		BrokerID:      brokerID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Quantity:      req.Quantity,
		LimitPrice:    req.LimitPrice,
		StopPrice:     req.StopPrice,
		TrailAmount:   req.TrailAmount,
		TrailPercent:  req.TrailPercent,
		TimeInForce:   tif,
		Status:        OrderStatusPending,
		SubmittedAt:   now,
		UpdatedAt:     now,
	}
}

// ToRequest rebuilds the request that would recreate the unfilled remainder
// of the order with the given modification applied.
func (o Order) ToRequest(mod OrderModification) OrderRequest {
	req := OrderRequest{
		Symbol:        o.Symbol,
		Side:          o.Side,
		Type:          o.Type,
		Quantity:      o.RemainingQuantity(),
		TimeInForce:   o.TimeInForce,
		LimitPrice:    o.LimitPrice,
		StopPrice:     o.StopPrice,
		TrailAmount:   o.TrailAmount,
		TrailPercent:  o.TrailPercent,
		ClientOrderID: "",
	}

	if mod.Quantity.IsSome() {
		req.Quantity = mod.Quantity.Unwrap()
	}

	if mod.LimitPrice.IsSome() {
		req.LimitPrice = mod.LimitPrice
	}

	if mod.StopPrice.IsSome() {
		req.StopPrice = mod.StopPrice
	}

	if mod.TimeInForce.IsSome() {
		req.TimeInForce = mod.TimeInForce.Unwrap()
	}

	return req
}

// OrderFilter selects orders by status and symbol. Empty fields do not filter.
type OrderFilter struct {
	Statuses []OrderStatus `json:"statuses"`
	Symbol   string        `json:"symbol"`
	// Limit caps the number of orders returned (0 means no limit)
	Limit int `json:"limit"`
}

// Matches reports whether the order passes the filter.
func (f OrderFilter) Matches(o Order) bool {
	if f.Symbol != "" && f.Symbol != o.Symbol {
		return false
	}

	if len(f.Statuses) == 0 {
		return true
	}

	for _, s := range f.Statuses {
		if s == o.Status {
			return true
		}
	}

	return false
}

// Validate validates the OrderRequest struct and the price fields each order
// type needs.
func (r *OrderRequest) Validate() error {
	validate := validator.New()

	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order request", err)
	}

	switch r.Type {
	case OrderTypeLimit:
		if r.LimitPrice.IsNone() {
			return errors.New(errors.ErrCodeInvalidOrder, "limit order requires a limit price")
		}
	case OrderTypeStop:
		if r.StopPrice.IsNone() {
			return errors.New(errors.ErrCodeInvalidOrder, "stop order requires a stop price")
		}
	case OrderTypeStopLimit:
		if r.LimitPrice.IsNone() || r.StopPrice.IsNone() {
			return errors.New(errors.ErrCodeInvalidOrder, "stop limit order requires limit and stop prices")
		}
	case OrderTypeTrailingStop:
		if r.TrailAmount.IsNone() && r.TrailPercent.IsNone() {
			return errors.New(errors.ErrCodeInvalidOrder, "trailing stop order requires a trail amount or percent")
		}
	case OrderTypeMarket:
	}

	for _, price := range []optional.Option[float64]{r.LimitPrice, r.StopPrice, r.TrailAmount, r.TrailPercent} {
		if price.IsSome() && price.Unwrap() <= 0 {
			return errors.New(errors.ErrCodeInvalidOrder, "prices must be greater than zero")
		}
	}

	return nil
}
