package broker

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-router/internal/logger"
	"github.com/rxtech-lab/argo-router/internal/types"
	"github.com/rxtech-lab/argo-router/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// fakeVenue is a hand-written binanceVenue for tests.
type fakeVenue struct {
	createFn    func(params binanceOrderParams) (types.Order, error)
	cancelFn    func(symbol string, orderID int64) (types.Order, error)
	getOrderFn  func(symbol string, orderID int64) (types.Order, error)
	openOrders  []types.Order
	positions   map[string]types.Position
	account     types.AccountInfo
	trades      []types.Fill
	pingErr     error
	queryErr    error
	lastParams  binanceOrderParams
	cancelledBy []string
}

func (f *fakeVenue) CreateOrder(_ context.Context, params binanceOrderParams) (types.Order, error) {
	f.lastParams = params

	return f.createFn(params)
}

func (f *fakeVenue) CancelOrder(_ context.Context, symbol string, orderID int64) (types.Order, error) {
	return f.cancelFn(symbol, orderID)
}

func (f *fakeVenue) CancelOpenOrders(_ context.Context, symbol string) error {
	f.cancelledBy = append(f.cancelledBy, symbol)

	return nil
}

func (f *fakeVenue) ListOpenOrders(_ context.Context, symbol string) ([]types.Order, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}

	out := make([]types.Order, 0)
	for _, order := range f.openOrders {
		if symbol == "" || order.Symbol == symbol {
			out = append(out, order)
		}
	}

	return out, nil
}

func (f *fakeVenue) GetOrder(_ context.Context, symbol string, orderID int64) (types.Order, error) {
	return f.getOrderFn(symbol, orderID)
}

func (f *fakeVenue) Positions(_ context.Context) (map[string]types.Position, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}

	return f.positions, nil
}

func (f *fakeVenue) Account(_ context.Context) (types.AccountInfo, error) {
	return f.account, f.queryErr
}

func (f *fakeVenue) LastPrice(_ context.Context, _ string) (decimal.Decimal, error) {
	return decimal.NewFromInt(42000), f.queryErr
}

func (f *fakeVenue) BookTicker(_ context.Context, symbol string) (types.Quote, error) {
	return types.Quote{Symbol: symbol, Bid: decimal.NewFromInt(41999), Ask: decimal.NewFromInt(42001)}, f.queryErr
}

func (f *fakeVenue) Trades(_ context.Context, _ string, _ int) ([]types.Fill, error) {
	return f.trades, f.queryErr
}

func (f *fakeVenue) Ping(_ context.Context) error {
	return f.pingErr
}

type BinanceBrokerTestSuite struct {
	suite.Suite
	ctx    context.Context
	venue  *fakeVenue
	broker *BinanceBroker
}

func TestBinanceBrokerSuite(t *testing.T) {
	suite.Run(t, new(BinanceBrokerTestSuite))
}

func (suite *BinanceBrokerTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.venue = &fakeVenue{
		createFn: func(params binanceOrderParams) (types.Order, error) {
			return types.Order{
				OrderID:        "12345",
				Symbol:         params.Symbol,
				Side:           params.Side,
				OrderType:      params.OrderType,
				Quantity:       decimal.RequireFromString(params.Quantity),
				FilledQuantity: decimal.RequireFromString(params.Quantity),
				AvgFillPrice:   decimal.NewFromInt(42000),
				Status:         types.OrderStatusFilled,
			}, nil
		},
		positions: map[string]types.Position{},
	}
	suite.broker = newBinanceBrokerWithVenue(suite.venue, false, BinanceDecimalPrecision, logger.NewNopLogger())
}

func (suite *BinanceBrokerTestSuite) request(side types.PurchaseType, quantity string) types.OrderRequest {
	return types.OrderRequest{
		Symbol:    "BTCUSDT",
		Side:      side,
		OrderType: types.OrderTypeMarket,
		Quantity:  decimal.RequireFromString(quantity),
		Price:     optional.None[decimal.Decimal](),
		Tag:       "strategy",
	}
}

func (suite *BinanceBrokerTestSuite) TestNewBinanceBroker_MissingCredentials() {
	_, err := NewBinanceBroker(BinanceConfig{ApiKey: "key"}, false, logger.NewNopLogger())
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingCredentials))

	_, err = NewBinanceBroker(BinanceConfig{SecretKey: "secret"}, true, logger.NewNopLogger())
	suite.True(errors.HasCode(err, errors.ErrCodeMissingCredentials))
}

func (suite *BinanceBrokerTestSuite) TestNewBinanceBroker_InvalidBaseURL() {
	_, err := NewBinanceBroker(BinanceConfig{ApiKey: "k", SecretKey: "s", BaseURL: "not a url"}, false, logger.NewNopLogger())
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *BinanceBrokerTestSuite) TestNewBinanceBroker_Valid() {
	b, err := NewBinanceBroker(BinanceConfig{ApiKey: "k", SecretKey: "s", BaseURL: "http://127.0.0.1:1"}, false, logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.IsType(&spotVenue{}, b.venue)
	suite.Equal(int32(BinanceDecimalPrecision), b.decimalPrecision)

	fb, err := NewBinanceBroker(BinanceConfig{ApiKey: "k", SecretKey: "s", BaseURL: "http://127.0.0.1:1"}, true, logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.IsType(&futuresVenue{}, fb.venue)
}

func (suite *BinanceBrokerTestSuite) TestSendOrder_MarketBuy_Success() {
	order, err := suite.broker.SendOrder(suite.ctx, suite.request(types.PurchaseTypeBuy, "0.5"))
	suite.Require().NoError(err)

	suite.Equal("12345", order.OrderID)
	suite.Equal(types.OrderStatusFilled, order.Status)
	suite.Equal("strategy", order.Tag)
	suite.Equal("0.50000000", suite.venue.lastParams.Quantity)
	suite.Empty(suite.venue.lastParams.Price)
}

func (suite *BinanceBrokerTestSuite) TestSendOrder_LimitPrice() {
	req := suite.request(types.PurchaseTypeSell, "1")
	req.OrderType = types.OrderTypeLimit
	req.Price = optional.Some(decimal.RequireFromString("43000.5"))

	_, err := suite.broker.SendOrder(suite.ctx, req)
	suite.Require().NoError(err)
	suite.Equal("43000.5", suite.venue.lastParams.Price)
	suite.Equal(types.OrderTypeLimit, suite.venue.lastParams.OrderType)
}

func (suite *BinanceBrokerTestSuite) TestSendOrder_QuantityTooSmall() {
	_, err := suite.broker.SendOrder(suite.ctx, suite.request(types.PurchaseTypeBuy, "0.000000001"))
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidArgument))
}

func (suite *BinanceBrokerTestSuite) TestSendOrder_VenueRejection() {
	suite.Run("api error", func() {
		suite.venue.createFn = func(binanceOrderParams) (types.Order, error) {
			return types.Order{}, &common.APIError{Code: -2010, Message: "Account has insufficient balance"}
		}

		order, err := suite.broker.SendOrder(suite.ctx, suite.request(types.PurchaseTypeBuy, "1"))
		suite.NoError(err)
		suite.Equal(types.OrderStatusRejected, order.Status)
		suite.Equal(types.OrderReasonVenueRejected, order.Reason.Reason)
		suite.Contains(order.Reason.Message, "insufficient balance")
		suite.NotEmpty(order.OrderID)
	})

	suite.Run("transport error", func() {
		suite.venue.createFn = func(binanceOrderParams) (types.Order, error) {
			return types.Order{}, stderrors.New("dial tcp: connection refused")
		}

		order, err := suite.broker.SendOrder(suite.ctx, suite.request(types.PurchaseTypeBuy, "1"))
		suite.NoError(err)
		suite.Equal(types.OrderStatusRejected, order.Status)
		suite.Equal(types.OrderReasonDisconnected, order.Reason.Reason)
	})
}

func (suite *BinanceBrokerTestSuite) TestCancelOrder() {
	suite.Run("unknown id", func() {
		ok, err := suite.broker.CancelOrder(suite.ctx, "nonexistent")
		suite.NoError(err)
		suite.False(ok)
	})

	_, err := suite.broker.SendOrder(suite.ctx, suite.request(types.PurchaseTypeBuy, "1"))
	suite.Require().NoError(err)

	suite.Run("open order cancelled", func() {
		suite.venue.cancelFn = func(symbol string, orderID int64) (types.Order, error) {
			suite.Equal("BTCUSDT", symbol)
			suite.Equal(int64(12345), orderID)

			return types.Order{OrderID: "12345", Status: types.OrderStatusCancelled}, nil
		}

		ok, err := suite.broker.CancelOrder(suite.ctx, "12345")
		suite.NoError(err)
		suite.True(ok)
	})

	suite.Run("already filled", func() {
		suite.venue.cancelFn = func(string, int64) (types.Order, error) {
			return types.Order{}, &common.APIError{Code: -2011, Message: "Unknown order sent."}
		}

		ok, err := suite.broker.CancelOrder(suite.ctx, "12345")
		suite.NoError(err)
		suite.False(ok)
	})

	suite.Run("transport failure", func() {
		suite.venue.cancelFn = func(string, int64) (types.Order, error) {
			return types.Order{}, stderrors.New("timeout")
		}

		ok, err := suite.broker.CancelOrder(suite.ctx, "12345")
		suite.False(ok)
		suite.True(errors.IsConnectivityError(err))
	})
}

func (suite *BinanceBrokerTestSuite) TestCancelAllOrders() {
	suite.venue.openOrders = []types.Order{
		{OrderID: "1", Symbol: "BTCUSDT", Status: types.OrderStatusSubmitted},
		{OrderID: "2", Symbol: "ETHUSDT", Status: types.OrderStatusSubmitted},
		{OrderID: "3", Symbol: "BTCUSDT", Status: types.OrderStatusPartiallyFilled},
	}

	count, err := suite.broker.CancelAllOrders(suite.ctx, "")
	suite.NoError(err)
	suite.Equal(3, count)
	suite.Equal([]string{"BTCUSDT", "ETHUSDT"}, suite.venue.cancelledBy)

	suite.venue.cancelledBy = nil
	count, err = suite.broker.CancelAllOrders(suite.ctx, "ETHUSDT")
	suite.NoError(err)
	suite.Equal(1, count)
	suite.Equal([]string{"ETHUSDT"}, suite.venue.cancelledBy)
}

func (suite *BinanceBrokerTestSuite) TestGetOrderStatus() {
	status, err := suite.broker.GetOrderStatus(suite.ctx, "nonexistent")
	suite.NoError(err)
	suite.Equal(types.OrderStatusUnknown, status.Status)

	// ids learned from open orders are addressable
	suite.venue.openOrders = []types.Order{{OrderID: "77", Symbol: "ETHUSDT", Status: types.OrderStatusSubmitted}}
	_, err = suite.broker.GetOpenOrders(suite.ctx, "")
	suite.Require().NoError(err)

	suite.venue.getOrderFn = func(symbol string, orderID int64) (types.Order, error) {
		suite.Equal("ETHUSDT", symbol)

		return types.Order{OrderID: "77", Symbol: symbol, Status: types.OrderStatusPartiallyFilled}, nil
	}

	status, err = suite.broker.GetOrderStatus(suite.ctx, "77")
	suite.NoError(err)
	suite.Equal(types.OrderStatusPartiallyFilled, status.Status)

	suite.venue.getOrderFn = func(string, int64) (types.Order, error) {
		return types.Order{}, &common.APIError{Code: -2013, Message: "Order does not exist."}
	}

	status, err = suite.broker.GetOrderStatus(suite.ctx, "77")
	suite.NoError(err)
	suite.Equal(types.OrderStatusUnknown, status.Status)
}

func (suite *BinanceBrokerTestSuite) TestGetPosition() {
	suite.venue.positions = map[string]types.Position{
		"BTCUSDT": {Symbol: "BTCUSDT", Size: decimal.RequireFromString("0.25")},
	}

	pos, err := suite.broker.GetPosition(suite.ctx, "BTCUSDT")
	suite.NoError(err)
	suite.True(pos.Size.Equal(decimal.RequireFromString("0.25")))

	pos, err = suite.broker.GetPosition(suite.ctx, "SOLUSDT")
	suite.NoError(err)
	suite.True(pos.IsFlat())
	suite.Equal("SOLUSDT", pos.Symbol)
}

func (suite *BinanceBrokerTestSuite) TestQueryFailuresAreConnectivityErrors() {
	suite.venue.queryErr = stderrors.New("connection reset")

	_, err := suite.broker.GetPosition(suite.ctx, "BTCUSDT")
	suite.True(errors.IsConnectivityError(err))

	_, err = suite.broker.GetAccountInfo(suite.ctx)
	suite.True(errors.IsConnectivityError(err))

	_, err = suite.broker.GetOpenOrders(suite.ctx, "")
	suite.True(errors.IsConnectivityError(err))

	_, err = suite.broker.GetLastPrice(suite.ctx, "BTCUSDT")
	suite.True(errors.IsConnectivityError(err))
}

func (suite *BinanceBrokerTestSuite) TestGetTradeHistory() {
	_, err := suite.broker.GetTradeHistory(suite.ctx, types.TradeFilter{})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidArgument))

	suite.venue.trades = []types.Fill{
		{OrderID: "1", Symbol: "BTCUSDT"},
		{OrderID: "2", Symbol: "BTCUSDT"},
		{OrderID: "3", Symbol: "BTCUSDT"},
	}

	fills, err := suite.broker.GetTradeHistory(suite.ctx, types.TradeFilter{Symbol: "BTCUSDT", Limit: 2})
	suite.NoError(err)
	suite.Len(fills, 2)
	suite.Equal("2", fills[0].OrderID)
}

func (suite *BinanceBrokerTestSuite) TestMarketData() {
	price, err := suite.broker.GetLastPrice(suite.ctx, "BTCUSDT")
	suite.NoError(err)
	suite.True(price.Equal(decimal.NewFromInt(42000)))

	quote, err := suite.broker.GetBidAsk(suite.ctx, "BTCUSDT")
	suite.NoError(err)
	suite.True(quote.Bid.LessThan(quote.Ask))
}

func (suite *BinanceBrokerTestSuite) TestConnectivity() {
	suite.True(suite.broker.IsConnected(suite.ctx))
	suite.NoError(suite.broker.Reconnect(suite.ctx))
	suite.NoError(suite.broker.Reconnect(suite.ctx))

	suite.venue.pingErr = stderrors.New("no route to host")
	suite.False(suite.broker.IsConnected(suite.ctx))
	suite.True(errors.HasCode(suite.broker.Reconnect(suite.ctx), errors.ErrCodeBrokerDisconnected))
}

// Conversion helpers

func (suite *BinanceBrokerTestSuite) TestMapSpotOrderStatus() {
	suite.Equal(types.OrderStatusSubmitted, mapSpotOrderStatus(binance.OrderStatusTypeNew))
	suite.Equal(types.OrderStatusPartiallyFilled, mapSpotOrderStatus(binance.OrderStatusTypePartiallyFilled))
	suite.Equal(types.OrderStatusFilled, mapSpotOrderStatus(binance.OrderStatusTypeFilled))
	suite.Equal(types.OrderStatusCancelled, mapSpotOrderStatus(binance.OrderStatusTypeCanceled))
	suite.Equal(types.OrderStatusCancelled, mapSpotOrderStatus(binance.OrderStatusTypeExpired))
	suite.Equal(types.OrderStatusRejected, mapSpotOrderStatus(binance.OrderStatusTypeRejected))
	suite.Equal(types.OrderStatusUnknown, mapSpotOrderStatus(binance.OrderStatusType("SOMETHING")))
}

func (suite *BinanceBrokerTestSuite) TestMapFuturesOrderStatus() {
	suite.Equal(types.OrderStatusSubmitted, mapFuturesOrderStatus(futures.OrderStatusTypeNew))
	suite.Equal(types.OrderStatusFilled, mapFuturesOrderStatus(futures.OrderStatusTypeFilled))
	suite.Equal(types.OrderStatusCancelled, mapFuturesOrderStatus(futures.OrderStatusTypeCanceled))
	suite.Equal(types.OrderStatusRejected, mapFuturesOrderStatus(futures.OrderStatusTypeRejected))
}

func (suite *BinanceBrokerTestSuite) TestConvertSpotCreateOrderResponse() {
	order := convertSpotCreateOrderResponse(&binance.CreateOrderResponse{
		Symbol:                   "BTCUSDT",
		OrderID:                  987,
		TransactTime:             1700000000000,
		OrigQuantity:             "0.20000000",
		ExecutedQuantity:         "0.20000000",
		CummulativeQuoteQuantity: "8400.00000000",
		Status:                   binance.OrderStatusTypeFilled,
		Type:                     binance.OrderTypeMarket,
		Side:                     binance.SideTypeBuy,
	})

	suite.Equal("987", order.OrderID)
	suite.Equal(types.PurchaseTypeBuy, order.Side)
	suite.Equal(types.OrderTypeMarket, order.OrderType)
	suite.True(order.AvgFillPrice.Equal(decimal.NewFromInt(42000)))
	suite.Equal(int64(1700000000000), order.Timestamp.UnixMilli())
}

func (suite *BinanceBrokerTestSuite) TestSpotBalancesToPositions() {
	balances := []binance.Balance{
		{Asset: "USDT", Free: "1000", Locked: "0"},
		{Asset: "BTC", Free: "0.1", Locked: "0.05"},
		{Asset: "ETH", Free: "0", Locked: "0"},
	}

	positions := spotBalancesToPositions(balances, "USDT")
	suite.Len(positions, 1)
	suite.True(positions["BTCUSDT"].Size.Equal(decimal.RequireFromString("0.15")))

	info := spotAccountInfo(balances, "USDT", map[string]decimal.Decimal{"BTCUSDT": decimal.NewFromInt(40000)})
	suite.True(info.Cash.Equal(decimal.NewFromInt(1000)))
	suite.True(info.TotalEquity.Equal(decimal.NewFromInt(7000)))
}

func (suite *BinanceBrokerTestSuite) TestFuturesPositions() {
	positions := futuresPositions([]*futures.PositionRisk{
		{Symbol: "BTCUSDT", PositionAmt: "-0.010", EntryPrice: "43000.5"},
		{Symbol: "ETHUSDT", PositionAmt: "0.000", EntryPrice: "0.0"},
	})

	suite.Len(positions, 1)
	suite.True(positions["BTCUSDT"].Size.Equal(decimal.RequireFromString("-0.01")))
	suite.True(positions["BTCUSDT"].AvgPrice.Equal(decimal.RequireFromString("43000.5")))

	cash, equity := futuresCashAndEquity([]*futures.Balance{
		{Asset: "BNB", Balance: "1"},
		{Asset: "USDT", Balance: "5000", CrossUnPnl: "-120.5"},
	}, "USDT")
	suite.True(cash.Equal(decimal.NewFromInt(5000)))
	suite.True(equity.Equal(decimal.RequireFromString("4879.5")))
}

func (suite *BinanceBrokerTestSuite) TestConvertFuturesTrade() {
	fill := convertFuturesTrade(&futures.AccountTrade{
		ID:         5,
		OrderID:    9,
		Symbol:     "BTCUSDT",
		Buyer:      false,
		Price:      "42000",
		Quantity:   "0.01",
		Commission: "0.168",
		Time:       1700000000000,
	})

	suite.Equal(types.PurchaseTypeSell, fill.Side)
	suite.Equal("9", fill.OrderID)
	suite.True(fill.Fee.Equal(decimal.RequireFromString("0.168")))
}

func (suite *BinanceBrokerTestSuite) TestParseBinanceConfig() {
	cfg, err := parseBinanceConfig(`{"apiKey":"k","secretKey":"s","testnet":true}`)
	suite.Require().NoError(err)
	suite.True(cfg.Testnet)
	suite.Equal("USDT", cfg.withDefaults().QuoteAsset)

	_, err = parseBinanceConfig(`{"apiKey":"k"}`)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingCredentials))

	_, err = parseBinanceConfig(`not json`)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}
