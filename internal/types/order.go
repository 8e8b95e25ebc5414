package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-router/pkg/errors"
	"github.com/shopspring/decimal"
)

type PurchaseType string

type OrderType string

type OrderStatus string

const (
	PurchaseTypeBuy  PurchaseType = "BUY"
	PurchaseTypeSell PurchaseType = "SELL"
)

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

const (
	OrderStatusSubmitted       OrderStatus = "SUBMITTED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusUnknown         OrderStatus = "UNKNOWN"
)

const (
	OrderReasonStrategy              string = "strategy"
	OrderReasonCloseAll              string = "close_all"
	OrderReasonInsufficientBuyPower  string = "insufficient_buying_power"
	OrderReasonInsufficientSellPower string = "insufficient_selling_power"
	OrderReasonVenueRejected         string = "venue_rejected"
	OrderReasonDisconnected          string = "disconnected"
	OrderReasonTimeout               string = "timeout"
	OrderReasonNotFound              string = "not_found"
)

// Opposite returns the other side of the book.
func (p PurchaseType) Opposite() PurchaseType {
	if p == PurchaseTypeBuy {
		return PurchaseTypeSell
	}

	return PurchaseTypeBuy
}

type Reason struct {
	Reason  string `yaml:"reason" json:"reason" csv:"reason"`
	Message string `yaml:"message" json:"message" csv:"message"`
}

// OrderRequest is the input to Broker.SendOrder.
type OrderRequest struct {
	Symbol    string          `yaml:"symbol" json:"symbol" validate:"required"`
	Side      PurchaseType    `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	OrderType OrderType       `yaml:"order_type" json:"order_type" validate:"required,oneof=MARKET LIMIT"`
	Quantity  decimal.Decimal `yaml:"quantity" json:"quantity"`
	// Price is required for limit orders. For market orders it is used as the
	// fill price hint by adapters that cannot observe the market.
	Price optional.Option[decimal.Decimal] `yaml:"price" json:"price"`
	// Tag is a free-form label carried onto the resulting order (e.g. "close_all").
	Tag string `yaml:"tag" json:"tag"`
}

// Validate checks the request shape. It does not check cash or holdings:
// those are business rejections reported on the order itself.
func (r *OrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidArgument, "invalid order request", err)
	}

	if !r.Quantity.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidArgument, "quantity must be positive, got %s", r.Quantity.String())
	}

	if r.OrderType == OrderTypeLimit {
		if r.Price.IsNone() {
			return errors.New(errors.ErrCodeInvalidArgument, "limit order requires a price")
		}

		if !r.Price.Unwrap().IsPositive() {
			return errors.Newf(errors.ErrCodeInvalidArgument, "limit price must be positive, got %s", r.Price.Unwrap().String())
		}
	}

	return nil
}

// Order is a broker-side order. It is created by SendOrder and mutated only by
// the adapter that owns it.
type Order struct {
	OrderID        string          `yaml:"order_id" json:"order_id" csv:"order_id"`
	Symbol         string          `yaml:"symbol" json:"symbol" csv:"symbol"`
	Side           PurchaseType    `yaml:"side" json:"side" csv:"side"`
	OrderType      OrderType       `yaml:"order_type" json:"order_type" csv:"order_type"`
	Quantity       decimal.Decimal `yaml:"quantity" json:"quantity" csv:"quantity"`
	FilledQuantity decimal.Decimal `yaml:"filled_quantity" json:"filled_quantity" csv:"filled_quantity"`
	// Price is the limit price. Zero for market orders.
	Price decimal.Decimal `yaml:"price" json:"price" csv:"price"`
	// AvgFillPrice is zero until something is filled.
	AvgFillPrice decimal.Decimal `yaml:"avg_fill_price" json:"avg_fill_price" csv:"avg_fill_price"`
	Status       OrderStatus     `yaml:"status" json:"status" csv:"status"`
	Tag          string          `yaml:"tag" json:"tag" csv:"tag"`
	// Reason explains rejections and cancellations. Empty for accepted orders.
	Reason    Reason    `yaml:"reason" json:"reason" csv:"reason"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp" csv:"timestamp"`
}

// IsOpen reports whether the order can still be cancelled.
func (o Order) IsOpen() bool {
	return o.Status == OrderStatusSubmitted || o.Status == OrderStatusPartiallyFilled
}

// IsRejected reports whether the broker refused the order.
func (o Order) IsRejected() bool {
	return o.Status == OrderStatusRejected
}

// NewRejectedOrder builds the order returned for a business rejection.
func NewRejectedOrder(id string, req OrderRequest, reason, message string, ts time.Time) Order {
	return Order{
		OrderID:        id,
		Symbol:         req.Symbol,
		Side:           req.Side,
		OrderType:      req.OrderType,
		Quantity:       req.Quantity,
		FilledQuantity: decimal.Zero,
		Price:          req.Price.TakeOr(decimal.Zero),
		AvgFillPrice:   decimal.Zero,
		Status:         OrderStatusRejected,
		Tag:            req.Tag,
		Reason:         Reason{Reason: reason, Message: message},
		Timestamp:      ts,
	}
}

// NewUnknownOrder is the synthetic result of a status query for an id the
// broker has no record of.
func NewUnknownOrder(id string) Order {
	return Order{
		OrderID: id,
		Status:  OrderStatusUnknown,
		Reason:  Reason{Reason: OrderReasonNotFound, Message: "order not found"},
	}
}
