package broker

import (
	"context"

	"github.com/rxtech-lab/argo-router/internal/types"
	"github.com/shopspring/decimal"
)

// binanceOrderParams carries an order already formatted for the REST API.
type binanceOrderParams struct {
	Symbol    string
	Side      types.PurchaseType
	OrderType types.OrderType
	Quantity  string
	// Price is empty for market orders.
	Price string
}

// binanceVenue is the slice of the Binance REST API the broker needs. Spot and
// USD-M futures each implement it on top of their go-binance client, and tests
// substitute a fake.
type binanceVenue interface {
	CreateOrder(ctx context.Context, params binanceOrderParams) (types.Order, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) (types.Order, error)
	CancelOpenOrders(ctx context.Context, symbol string) error
	ListOpenOrders(ctx context.Context, symbol string) ([]types.Order, error)
	GetOrder(ctx context.Context, symbol string, orderID int64) (types.Order, error)
	// Positions returns non-zero positions keyed by trading symbol.
	Positions(ctx context.Context) (map[string]types.Position, error)
	Account(ctx context.Context) (types.AccountInfo, error)
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	BookTicker(ctx context.Context, symbol string) (types.Quote, error)
	Trades(ctx context.Context, symbol string, limit int) ([]types.Fill, error)
	Ping(ctx context.Context) error
}
