package broker

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/rxtech-lab/argo-router/internal/types"
	"github.com/rxtech-lab/argo-router/internal/utils"
	"github.com/rxtech-lab/argo-router/pkg/errors"
	"github.com/shopspring/decimal"
)

// futuresVenue implements binanceVenue on the USD-M futures API. Positions are
// signed (one-way mode) and carry the venue's entry price.
type futuresVenue struct {
	client     *futures.Client
	quoteAsset string
}

func newFuturesVenue(config BinanceConfig) *futuresVenue {
	if config.Testnet {
		futures.UseTestnet = true
	}

	client := futures.NewClient(config.ApiKey, config.SecretKey)

	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return &futuresVenue{client: client, quoteAsset: config.QuoteAsset}
}

func (v *futuresVenue) CreateOrder(ctx context.Context, params binanceOrderParams) (types.Order, error) {
	service := v.client.NewCreateOrderService().
		Symbol(params.Symbol).
		Side(toFuturesSide(params.Side)).
		Type(toFuturesOrderType(params.OrderType)).
		Quantity(params.Quantity)

	if params.OrderType == types.OrderTypeLimit {
		service = service.Price(params.Price).TimeInForce(futures.TimeInForceTypeGTC)
	}

	resp, err := service.Do(ctx)
	if err != nil {
		return types.Order{}, err
	}

	return types.Order{
		OrderID:        strconv.FormatInt(resp.OrderID, 10),
		Symbol:         resp.Symbol,
		Side:           fromFuturesSide(resp.Side),
		OrderType:      fromFuturesOrderType(resp.Type),
		Quantity:       utils.ParseDecimalOrZero(resp.OrigQuantity),
		FilledQuantity: utils.ParseDecimalOrZero(resp.ExecutedQuantity),
		Price:          utils.ParseDecimalOrZero(resp.Price),
		AvgFillPrice:   utils.ParseDecimalOrZero(resp.AvgPrice),
		Status:         mapFuturesOrderStatus(resp.Status),
		Timestamp:      time.UnixMilli(resp.UpdateTime),
	}, nil
}

func (v *futuresVenue) CancelOrder(ctx context.Context, symbol string, orderID int64) (types.Order, error) {
	resp, err := v.client.NewCancelOrderService().Symbol(symbol).OrderID(orderID).Do(ctx)
	if err != nil {
		return types.Order{}, err
	}

	return types.Order{
		OrderID:        strconv.FormatInt(resp.OrderID, 10),
		Symbol:         resp.Symbol,
		Side:           fromFuturesSide(resp.Side),
		OrderType:      fromFuturesOrderType(resp.Type),
		Quantity:       utils.ParseDecimalOrZero(resp.OrigQuantity),
		FilledQuantity: utils.ParseDecimalOrZero(resp.ExecutedQuantity),
		Price:          utils.ParseDecimalOrZero(resp.Price),
		Status:         mapFuturesOrderStatus(resp.Status),
		Timestamp:      time.UnixMilli(resp.UpdateTime),
	}, nil
}

func (v *futuresVenue) CancelOpenOrders(ctx context.Context, symbol string) error {
	return v.client.NewCancelAllOpenOrdersService().Symbol(symbol).Do(ctx)
}

func (v *futuresVenue) ListOpenOrders(ctx context.Context, symbol string) ([]types.Order, error) {
	service := v.client.NewListOpenOrdersService()
	if symbol != "" {
		service = service.Symbol(symbol)
	}

	orders, err := service.Do(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]types.Order, 0, len(orders))
	for _, order := range orders {
		out = append(out, convertFuturesOrder(order))
	}

	return out, nil
}

func (v *futuresVenue) GetOrder(ctx context.Context, symbol string, orderID int64) (types.Order, error) {
	order, err := v.client.NewGetOrderService().Symbol(symbol).OrderID(orderID).Do(ctx)
	if err != nil {
		return types.Order{}, err
	}

	return convertFuturesOrder(order), nil
}

func (v *futuresVenue) Positions(ctx context.Context) (map[string]types.Position, error) {
	risks, err := v.client.NewGetPositionRiskService().Do(ctx)
	if err != nil {
		return nil, err
	}

	return futuresPositions(risks), nil
}

func (v *futuresVenue) Account(ctx context.Context) (types.AccountInfo, error) {
	balances, err := v.client.NewGetBalanceService().Do(ctx)
	if err != nil {
		return types.AccountInfo{}, err
	}

	positions, err := v.Positions(ctx)
	if err != nil {
		return types.AccountInfo{}, err
	}

	cash, equity := futuresCashAndEquity(balances, v.quoteAsset)

	return types.AccountInfo{Cash: cash, Positions: positions, TotalEquity: equity}, nil
}

func (v *futuresVenue) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := v.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	for _, price := range prices {
		if price.Symbol == symbol {
			return utils.ParseDecimalOrZero(price.Price), nil
		}
	}

	return decimal.Zero, errors.Newf(errors.ErrCodeMarketDataMissing, "no price for %s", symbol)
}

func (v *futuresVenue) BookTicker(ctx context.Context, symbol string) (types.Quote, error) {
	tickers, err := v.client.NewListBookTickersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return types.Quote{}, err
	}

	for _, ticker := range tickers {
		if ticker.Symbol == symbol {
			return types.Quote{
				Symbol: symbol,
				Bid:    utils.ParseDecimalOrZero(ticker.BidPrice),
				Ask:    utils.ParseDecimalOrZero(ticker.AskPrice),
			}, nil
		}
	}

	return types.Quote{}, errors.Newf(errors.ErrCodeMarketDataMissing, "no book ticker for %s", symbol)
}

func (v *futuresVenue) Trades(ctx context.Context, symbol string, limit int) ([]types.Fill, error) {
	service := v.client.NewListAccountTradeService().Symbol(symbol)
	if limit > 0 {
		service = service.Limit(limit)
	}

	trades, err := service.Do(ctx)
	if err != nil {
		return nil, err
	}

	fills := make([]types.Fill, 0, len(trades))
	for _, trade := range trades {
		fills = append(fills, convertFuturesTrade(trade))
	}

	return fills, nil
}

func (v *futuresVenue) Ping(ctx context.Context) error {
	return v.client.NewPingService().Do(ctx)
}

// Helper functions

func toFuturesSide(side types.PurchaseType) futures.SideType {
	if side == types.PurchaseTypeSell {
		return futures.SideTypeSell
	}

	return futures.SideTypeBuy
}

func fromFuturesSide(side futures.SideType) types.PurchaseType {
	if side == futures.SideTypeSell {
		return types.PurchaseTypeSell
	}

	return types.PurchaseTypeBuy
}

func toFuturesOrderType(orderType types.OrderType) futures.OrderType {
	if orderType == types.OrderTypeLimit {
		return futures.OrderTypeLimit
	}

	return futures.OrderTypeMarket
}

func fromFuturesOrderType(orderType futures.OrderType) types.OrderType {
	if orderType == futures.OrderTypeMarket {
		return types.OrderTypeMarket
	}

	return types.OrderTypeLimit
}

func mapFuturesOrderStatus(status futures.OrderStatusType) types.OrderStatus {
	switch status {
	case futures.OrderStatusTypeNew:
		return types.OrderStatusSubmitted
	case futures.OrderStatusTypePartiallyFilled:
		return types.OrderStatusPartiallyFilled
	case futures.OrderStatusTypeFilled:
		return types.OrderStatusFilled
	case futures.OrderStatusTypeCanceled, futures.OrderStatusTypeExpired:
		return types.OrderStatusCancelled
	case futures.OrderStatusTypeRejected:
		return types.OrderStatusRejected
	default:
		return types.OrderStatusUnknown
	}
}

func convertFuturesOrder(order *futures.Order) types.Order {
	return types.Order{
		OrderID:        strconv.FormatInt(order.OrderID, 10),
		Symbol:         order.Symbol,
		Side:           fromFuturesSide(order.Side),
		OrderType:      fromFuturesOrderType(order.Type),
		Quantity:       utils.ParseDecimalOrZero(order.OrigQuantity),
		FilledQuantity: utils.ParseDecimalOrZero(order.ExecutedQuantity),
		Price:          utils.ParseDecimalOrZero(order.Price),
		AvgFillPrice:   utils.ParseDecimalOrZero(order.AvgPrice),
		Status:         mapFuturesOrderStatus(order.Status),
		Timestamp:      time.UnixMilli(order.Time),
	}
}

func convertFuturesTrade(trade *futures.AccountTrade) types.Fill {
	side := types.PurchaseTypeSell
	if trade.Buyer {
		side = types.PurchaseTypeBuy
	}

	return types.Fill{
		OrderID:   strconv.FormatInt(trade.OrderID, 10),
		TradeID:   strconv.FormatInt(trade.ID, 10),
		Symbol:    trade.Symbol,
		Side:      side,
		Quantity:  utils.ParseDecimalOrZero(trade.Quantity),
		Price:     utils.ParseDecimalOrZero(trade.Price),
		Fee:       utils.ParseDecimalOrZero(trade.Commission),
		Timestamp: time.UnixMilli(trade.Time),
	}
}

// futuresPositions keeps only non-zero position risk entries.
func futuresPositions(risks []*futures.PositionRisk) map[string]types.Position {
	positions := make(map[string]types.Position)

	for _, risk := range risks {
		size := utils.ParseDecimalOrZero(risk.PositionAmt)
		if size.IsZero() {
			continue
		}

		positions[risk.Symbol] = types.Position{
			Symbol:   risk.Symbol,
			Size:     size,
			AvgPrice: utils.ParseDecimalOrZero(risk.EntryPrice),
		}
	}

	return positions
}

// futuresCashAndEquity reads the quote asset wallet: cash is the wallet balance,
// equity adds the unrealized PnL of cross positions.
func futuresCashAndEquity(balances []*futures.Balance, quoteAsset string) (decimal.Decimal, decimal.Decimal) {
	for _, balance := range balances {
		if balance.Asset != quoteAsset {
			continue
		}

		cash := utils.ParseDecimalOrZero(balance.Balance)

		return cash, cash.Add(utils.ParseDecimalOrZero(balance.CrossUnPnl))
	}

	return decimal.Zero, decimal.Zero
}

var _ binanceVenue = (*futuresVenue)(nil)
