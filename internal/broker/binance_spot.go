package broker

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-router/internal/types"
	"github.com/rxtech-lab/argo-router/internal/utils"
	"github.com/rxtech-lab/argo-router/pkg/errors"
	"github.com/shopspring/decimal"
)

// spotVenue implements binanceVenue on the spot API. A spot "position" is the
// balance of the symbol's base asset, so it is never negative and has no
// average price.
type spotVenue struct {
	client     *binance.Client
	quoteAsset string
}

func newSpotVenue(config BinanceConfig) *spotVenue {
	if config.Testnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(config.ApiKey, config.SecretKey)

	// Set custom base URL if provided (takes precedence over testnet)
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return &spotVenue{client: client, quoteAsset: config.QuoteAsset}
}

func (v *spotVenue) CreateOrder(ctx context.Context, params binanceOrderParams) (types.Order, error) {
	service := v.client.NewCreateOrderService().
		Symbol(params.Symbol).
		Side(toSpotSide(params.Side)).
		Type(toSpotOrderType(params.OrderType)).
		Quantity(params.Quantity)

	if params.OrderType == types.OrderTypeLimit {
		service = service.Price(params.Price).TimeInForce(binance.TimeInForceTypeGTC)
	}

	resp, err := service.Do(ctx)
	if err != nil {
		return types.Order{}, err
	}

	return convertSpotCreateOrderResponse(resp), nil
}

func (v *spotVenue) CancelOrder(ctx context.Context, symbol string, orderID int64) (types.Order, error) {
	resp, err := v.client.NewCancelOrderService().Symbol(symbol).OrderID(orderID).Do(ctx)
	if err != nil {
		return types.Order{}, err
	}

	return types.Order{
		OrderID:        strconv.FormatInt(resp.OrderID, 10),
		Symbol:         resp.Symbol,
		Side:           fromSpotSide(resp.Side),
		OrderType:      fromSpotOrderType(resp.Type),
		Quantity:       utils.ParseDecimalOrZero(resp.OrigQuantity),
		FilledQuantity: utils.ParseDecimalOrZero(resp.ExecutedQuantity),
		Price:          utils.ParseDecimalOrZero(resp.Price),
		AvgFillPrice:   averagePrice(resp.CummulativeQuoteQuantity, resp.ExecutedQuantity),
		Status:         mapSpotOrderStatus(resp.Status),
		Timestamp:      time.UnixMilli(resp.TransactTime),
	}, nil
}

func (v *spotVenue) CancelOpenOrders(ctx context.Context, symbol string) error {
	_, err := v.client.NewCancelOpenOrdersService().Symbol(symbol).Do(ctx)

	return err
}

func (v *spotVenue) ListOpenOrders(ctx context.Context, symbol string) ([]types.Order, error) {
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
		out = append(out, convertSpotOrder(order))
	}

	return out, nil
}

func (v *spotVenue) GetOrder(ctx context.Context, symbol string, orderID int64) (types.Order, error) {
	order, err := v.client.NewGetOrderService().Symbol(symbol).OrderID(orderID).Do(ctx)
	if err != nil {
		return types.Order{}, err
	}

	return convertSpotOrder(order), nil
}

func (v *spotVenue) Positions(ctx context.Context) (map[string]types.Position, error) {
	account, err := v.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, err
	}

	return spotBalancesToPositions(account.Balances, v.quoteAsset), nil
}

func (v *spotVenue) Account(ctx context.Context) (types.AccountInfo, error) {
	account, err := v.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return types.AccountInfo{}, err
	}

	prices, err := v.client.NewListPricesService().Do(ctx)
	if err != nil {
		return types.AccountInfo{}, err
	}

	lastPrices := make(map[string]decimal.Decimal, len(prices))
	for _, price := range prices {
		lastPrices[price.Symbol] = utils.ParseDecimalOrZero(price.Price)
	}

	return spotAccountInfo(account.Balances, v.quoteAsset, lastPrices), nil
}

func (v *spotVenue) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
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

func (v *spotVenue) BookTicker(ctx context.Context, symbol string) (types.Quote, error) {
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

func (v *spotVenue) Trades(ctx context.Context, symbol string, limit int) ([]types.Fill, error) {
	service := v.client.NewListTradesService().Symbol(symbol)
	if limit > 0 {
		service = service.Limit(limit)
	}

	trades, err := service.Do(ctx)
	if err != nil {
		return nil, err
	}

	fills := make([]types.Fill, 0, len(trades))
	for _, trade := range trades {
		fills = append(fills, convertSpotTrade(trade, symbol))
	}

	return fills, nil
}

func (v *spotVenue) Ping(ctx context.Context) error {
	return v.client.NewPingService().Do(ctx)
}

// Helper functions

func toSpotSide(side types.PurchaseType) binance.SideType {
	if side == types.PurchaseTypeSell {
		return binance.SideTypeSell
	}

	return binance.SideTypeBuy
}

func fromSpotSide(side binance.SideType) types.PurchaseType {
	if side == binance.SideTypeSell {
		return types.PurchaseTypeSell
	}

	return types.PurchaseTypeBuy
}

func toSpotOrderType(orderType types.OrderType) binance.OrderType {
	if orderType == types.OrderTypeLimit {
		return binance.OrderTypeLimit
	}

	return binance.OrderTypeMarket
}

func fromSpotOrderType(orderType binance.OrderType) types.OrderType {
	if orderType == binance.OrderTypeMarket {
		return types.OrderTypeMarket
	}

	return types.OrderTypeLimit
}

// mapSpotOrderStatus maps Binance spot order status to our OrderStatus type.
func mapSpotOrderStatus(status binance.OrderStatusType) types.OrderStatus {
	switch status {
	case binance.OrderStatusTypeNew:
		return types.OrderStatusSubmitted
	case binance.OrderStatusTypePartiallyFilled:
		return types.OrderStatusPartiallyFilled
	case binance.OrderStatusTypeFilled:
		return types.OrderStatusFilled
	case binance.OrderStatusTypeCanceled, binance.OrderStatusTypePendingCancel, binance.OrderStatusTypeExpired:
		return types.OrderStatusCancelled
	case binance.OrderStatusTypeRejected:
		return types.OrderStatusRejected
	default:
		return types.OrderStatusUnknown
	}
}

// averagePrice derives the average fill price from cumulative quote and executed quantity.
func averagePrice(cumulativeQuote, executed string) decimal.Decimal {
	qty := utils.ParseDecimalOrZero(executed)
	if qty.IsZero() {
		return decimal.Zero
	}

	return utils.ParseDecimalOrZero(cumulativeQuote).Div(qty)
}

func convertSpotCreateOrderResponse(resp *binance.CreateOrderResponse) types.Order {
	return types.Order{
		OrderID:        strconv.FormatInt(resp.OrderID, 10),
		Symbol:         resp.Symbol,
		Side:           fromSpotSide(resp.Side),
		OrderType:      fromSpotOrderType(resp.Type),
		Quantity:       utils.ParseDecimalOrZero(resp.OrigQuantity),
		FilledQuantity: utils.ParseDecimalOrZero(resp.ExecutedQuantity),
		Price:          utils.ParseDecimalOrZero(resp.Price),
		AvgFillPrice:   averagePrice(resp.CummulativeQuoteQuantity, resp.ExecutedQuantity),
		Status:         mapSpotOrderStatus(resp.Status),
		Timestamp:      time.UnixMilli(resp.TransactTime),
	}
}

func convertSpotOrder(order *binance.Order) types.Order {
	return types.Order{
		OrderID:        strconv.FormatInt(order.OrderID, 10),
		Symbol:         order.Symbol,
		Side:           fromSpotSide(order.Side),
		OrderType:      fromSpotOrderType(order.Type),
		Quantity:       utils.ParseDecimalOrZero(order.OrigQuantity),
		FilledQuantity: utils.ParseDecimalOrZero(order.ExecutedQuantity),
		Price:          utils.ParseDecimalOrZero(order.Price),
		AvgFillPrice:   averagePrice(order.CummulativeQuoteQuantity, order.ExecutedQuantity),
		Status:         mapSpotOrderStatus(order.Status),
		Timestamp:      time.UnixMilli(order.Time),
	}
}

func convertSpotTrade(trade *binance.TradeV3, symbol string) types.Fill {
	side := types.PurchaseTypeSell
	if trade.IsBuyer {
		side = types.PurchaseTypeBuy
	}

	return types.Fill{
		OrderID:   strconv.FormatInt(trade.OrderID, 10),
		TradeID:   strconv.FormatInt(trade.ID, 10),
		Symbol:    symbol,
		Side:      side,
		Quantity:  utils.ParseDecimalOrZero(trade.Quantity),
		Price:     utils.ParseDecimalOrZero(trade.Price),
		Fee:       utils.ParseDecimalOrZero(trade.Commission),
		Timestamp: time.UnixMilli(trade.Time),
	}
}

// spotBalancesToPositions turns non-zero base asset balances into positions
// on the <asset><quote> symbol. The quote asset itself is cash.
func spotBalancesToPositions(balances []binance.Balance, quoteAsset string) map[string]types.Position {
	positions := make(map[string]types.Position)

	for _, balance := range balances {
		if balance.Asset == quoteAsset {
			continue
		}

		total := utils.ParseDecimalOrZero(balance.Free).Add(utils.ParseDecimalOrZero(balance.Locked))
		if !total.IsPositive() {
			continue
		}

		symbol := balance.Asset + quoteAsset
		positions[symbol] = types.Position{Symbol: symbol, Size: total, AvgPrice: decimal.Zero}
	}

	return positions
}

func spotAccountInfo(balances []binance.Balance, quoteAsset string, lastPrices map[string]decimal.Decimal) types.AccountInfo {
	cash := decimal.Zero

	for _, balance := range balances {
		if balance.Asset == quoteAsset {
			cash = utils.ParseDecimalOrZero(balance.Free).Add(utils.ParseDecimalOrZero(balance.Locked))
		}
	}

	positions := spotBalancesToPositions(balances, quoteAsset)
	equity := cash

	for symbol, pos := range positions {
		if price, ok := lastPrices[symbol]; ok {
			equity = equity.Add(pos.Size.Mul(price))
		}
	}

	return types.AccountInfo{Cash: cash, Positions: positions, TotalEquity: equity}
}

var _ binanceVenue = (*spotVenue)(nil)
