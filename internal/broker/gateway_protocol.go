package broker

import (
	"encoding/json"
	"fmt"

	"github.com/rxtech-lab/argo-router/internal/types"
	"github.com/shopspring/decimal"
)

// Gateway wire protocol: JSON text frames. Requests carry an id that the
// gateway echoes on its reply. Frames with an event name and no id are
// unsolicited updates. The gateway pushes position_update for a fill before
// it replies to the place_order request that caused it.
const (
	gatewayMethodHello       = "hello"
	gatewayMethodPlaceOrder  = "place_order"
	gatewayMethodCancelOrder = "cancel_order"
	gatewayMethodCancelAll   = "cancel_all"
	gatewayMethodOpenOrders  = "open_orders"
	gatewayMethodOrderStatus = "order_status"
	gatewayMethodPositions   = "positions"
	gatewayMethodAccount     = "account"
	gatewayMethodLastPrice   = "last_price"
	gatewayMethodQuote       = "quote"
	gatewayMethodTrades      = "trades"

	gatewayEventOrderUpdate    = "order_update"
	gatewayEventPositionUpdate = "position_update"

	gatewayErrorNotFound = "not_found"
)

type gatewayRequest struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

type gatewayFrame struct {
	ID     string          `json:"id,omitempty"`
	Event  string          `json:"event,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *gatewayError   `json:"error,omitempty"`
}

// gatewayError is a refusal reported by the gateway itself. The session is
// still healthy when one is returned.
type gatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *gatewayError) Error() string {
	return fmt.Sprintf("gateway error %s: %s", e.Code, e.Message)
}

type gatewayHelloParams struct {
	ClientID        int    `json:"client_id"`
	Account         string `json:"account,omitempty"`
	ProtocolVersion string `json:"protocol_version"`
	ClientVersion   string `json:"client_version,omitempty"`
}

type gatewayHelloResult struct {
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

type gatewayOrderParams struct {
	Symbol    string             `json:"symbol"`
	Side      types.PurchaseType `json:"side"`
	OrderType types.OrderType    `json:"order_type"`
	Quantity  decimal.Decimal    `json:"quantity"`
	Price     *decimal.Decimal   `json:"price,omitempty"`
	Tag       string             `json:"tag,omitempty"`
}

type gatewayOrderIDParams struct {
	OrderID string `json:"order_id"`
}

type gatewaySymbolParams struct {
	Symbol string `json:"symbol,omitempty"`
}

type gatewayTradesParams struct {
	Symbol    string `json:"symbol,omitempty"`
	StartTime int64  `json:"start_time,omitempty"`
	EndTime   int64  `json:"end_time,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type gatewayCancelResult struct {
	Cancelled bool `json:"cancelled"`
}

type gatewayCancelAllResult struct {
	Cancelled int `json:"cancelled"`
}

type gatewayPriceResult struct {
	Price decimal.Decimal `json:"price"`
}
