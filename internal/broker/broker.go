package broker

import (
	"context"

	"github.com/rxtech-lab/argo-router/internal/types"
	"github.com/shopspring/decimal"
)

// Broker is the contract every venue adapter satisfies. The order manager and
// the runner depend only on this interface.
//
// Business rejections (insufficient cash, venue refusal, disconnected session)
// come back as orders with status REJECTED and a nil error. Errors are reserved
// for malformed input (ErrCodeInvalidArgument) and connectivity failures on
// queries.
type Broker interface {
	// SendOrder submits exactly one order attempt and returns its initial state.
	SendOrder(ctx context.Context, req types.OrderRequest) (types.Order, error)
	// CancelOrder returns true iff a matching open order existed and is now cancelled.
	// Filled, cancelled or unknown ids return false with a nil error.
	CancelOrder(ctx context.Context, orderID string) (bool, error)
	// CancelAllOrders cancels open orders for symbol, or for every symbol when symbol
	// is empty, and returns the number actually cancelled.
	CancelAllOrders(ctx context.Context, symbol string) (int, error)
	// GetOpenOrders returns a snapshot of open orders, optionally filtered by symbol.
	GetOpenOrders(ctx context.Context, symbol string) ([]types.Order, error)
	// GetOrderStatus returns the current state of an order. Unknown ids produce
	// a synthetic order with status UNKNOWN.
	GetOrderStatus(ctx context.Context, orderID string) (types.Order, error)
	// GetPosition returns a zero position for symbols that were never traded.
	GetPosition(ctx context.Context, symbol string) (types.Position, error)
	// GetAllPositions returns only non-zero positions.
	GetAllPositions(ctx context.Context) (map[string]types.Position, error)
	GetAccountInfo(ctx context.Context) (types.AccountInfo, error)
	GetLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	GetBidAsk(ctx context.Context, symbol string) (types.Quote, error)
	GetTradeHistory(ctx context.Context, filter types.TradeFilter) ([]types.Fill, error)
	IsConnected(ctx context.Context) bool
	// Reconnect is safe to call when already connected.
	Reconnect(ctx context.Context) error
}

// MarketDataReceiver is implemented by brokers that cannot observe the market on
// their own and need the runner to forward bars (the paper broker).
type MarketDataReceiver interface {
	UpdateMarketData(bar types.Bar)
}
