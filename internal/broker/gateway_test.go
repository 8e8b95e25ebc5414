package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-router/internal/logger"
	"github.com/rxtech-lab/argo-router/internal/types"
	"github.com/rxtech-lab/argo-router/internal/version"
	"github.com/rxtech-lab/argo-router/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// fakeGateway is a minimal desktop gateway speaking the JSON session protocol.
// Orders fill immediately at fillPrice except for the REJECTME symbol.
type fakeGateway struct {
	mu        sync.Mutex
	upgrader  websocket.Upgrader
	conns     []*websocket.Conn
	positions map[string]types.Position
	openOrder *types.Order
	fillPrice decimal.Decimal
	silent    bool
	hellos    int
	seq       int
	// protocol is advertised in the hello reply
	protocol      string
	helloProtocol string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		upgrader:  websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }},
		positions: map[string]types.Position{},
		fillPrice: decimal.NewFromInt(100),
		protocol:  "1.4.0",
	}
}

func (f *fakeGateway) router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws", f.handleWS)

	return r
}

func (f *fakeGateway) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	f.mu.Lock()
	f.conns = append(f.conns, conn)
	f.mu.Unlock()

	for {
		var req struct {
			ID     string          `json:"id"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		f.handle(conn, req.ID, req.Method, req.Params)
	}
}

func (f *fakeGateway) handle(conn *websocket.Conn, id, method string, params json.RawMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.silent {
		return
	}

	reply := func(result any) {
		raw, _ := json.Marshal(result)
		_ = conn.WriteJSON(gatewayFrame{ID: id, Result: raw})
	}
	refuse := func(code, message string) {
		_ = conn.WriteJSON(gatewayFrame{ID: id, Error: &gatewayError{Code: code, Message: message}})
	}

	switch method {
	case gatewayMethodHello:
		var p gatewayHelloParams
		_ = json.Unmarshal(params, &p)
		f.hellos++
		f.helloProtocol = p.ProtocolVersion
		reply(gatewayHelloResult{ProtocolVersion: f.protocol})
	case gatewayMethodPositions:
		list := make([]types.Position, 0, len(f.positions))
		for _, pos := range f.positions {
			list = append(list, pos)
		}
		reply(list)
	case gatewayMethodOpenOrders:
		list := make([]types.Order, 0)
		if f.openOrder != nil {
			list = append(list, *f.openOrder)
		}
		reply(list)
	case gatewayMethodPlaceOrder:
		var p gatewayOrderParams
		_ = json.Unmarshal(params, &p)

		if p.Symbol == "REJECTME" {
			refuse("rejected", "symbol not tradable")

			return
		}

		f.seq++
		next := f.positionLocked(p.Symbol).ApplyFill(p.Side, p.Quantity, f.fillPrice)
		f.positions[p.Symbol] = next

		rawPos, _ := json.Marshal(next)
		_ = conn.WriteJSON(gatewayFrame{Event: gatewayEventPositionUpdate, Result: rawPos})

		reply(types.Order{
			OrderID:        "gw-" + strconv.Itoa(f.seq),
			Symbol:         p.Symbol,
			Side:           p.Side,
			OrderType:      p.OrderType,
			Quantity:       p.Quantity,
			FilledQuantity: p.Quantity,
			AvgFillPrice:   f.fillPrice,
			Status:         types.OrderStatusFilled,
			Timestamp:      time.Now(),
		})
	case gatewayMethodCancelOrder:
		var p gatewayOrderIDParams
		_ = json.Unmarshal(params, &p)

		if f.openOrder == nil || f.openOrder.OrderID != p.OrderID {
			refuse(gatewayErrorNotFound, "no such open order")

			return
		}

		f.openOrder = nil
		reply(gatewayCancelResult{Cancelled: true})
	case gatewayMethodCancelAll:
		var p gatewaySymbolParams
		_ = json.Unmarshal(params, &p)

		count := 0
		if f.openOrder != nil && (p.Symbol == "" || p.Symbol == f.openOrder.Symbol) {
			count = 1
			f.openOrder = nil
		}
		reply(gatewayCancelAllResult{Cancelled: count})
	case gatewayMethodOrderStatus:
		refuse(gatewayErrorNotFound, "unknown order")
	case gatewayMethodAccount:
		reply(types.AccountInfo{Cash: decimal.NewFromInt(50000), Positions: f.positions, TotalEquity: decimal.NewFromInt(51000)})
	case gatewayMethodLastPrice:
		reply(gatewayPriceResult{Price: f.fillPrice})
	case gatewayMethodQuote:
		reply(types.Quote{Symbol: "AAPL", Bid: decimal.RequireFromString("99.9"), Ask: decimal.RequireFromString("100.1")})
	case gatewayMethodTrades:
		reply([]types.Fill{{OrderID: "gw-1", Symbol: "AAPL"}, {OrderID: "gw-2", Symbol: "MSFT"}})
	default:
		refuse("unknown_method", method)
	}
}

func (f *fakeGateway) positionLocked(symbol string) types.Position {
	if pos, ok := f.positions[symbol]; ok {
		return pos
	}

	return types.FlatPosition(symbol)
}

func (f *fakeGateway) dropConnections() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, conn := range f.conns {
		_ = conn.Close()
	}

	f.conns = nil
}

type GatewayBrokerTestSuite struct {
	suite.Suite
	ctx     context.Context
	gateway *fakeGateway
	server  *httptest.Server
	broker  *GatewayBroker
}

func TestGatewayBrokerSuite(t *testing.T) {
	suite.Run(t, new(GatewayBrokerTestSuite))
}

func (suite *GatewayBrokerTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.gateway = newFakeGateway()
	suite.server = httptest.NewServer(suite.gateway.router())

	url := "ws" + strings.TrimPrefix(suite.server.URL, "http") + "/ws"
	b, err := NewGatewayBroker(GatewayConfig{URL: url, ClientID: 7, RequestTimeoutMs: 300}, logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.broker = b
}

func (suite *GatewayBrokerTestSuite) TearDownTest() {
	suite.broker.Close()
	suite.gateway.dropConnections()
	suite.server.Close()
}

func (suite *GatewayBrokerTestSuite) buy(symbol string, quantity int64) types.OrderRequest {
	return types.OrderRequest{
		Symbol:    symbol,
		Side:      types.PurchaseTypeBuy,
		OrderType: types.OrderTypeMarket,
		Quantity:  decimal.NewFromInt(quantity),
		Price:     optional.None[decimal.Decimal](),
	}
}

func (suite *GatewayBrokerTestSuite) TestStartsDisconnected() {
	suite.False(suite.broker.IsConnected(suite.ctx))

	order, err := suite.broker.SendOrder(suite.ctx, suite.buy("AAPL", 1))
	suite.NoError(err)
	suite.Equal(types.OrderStatusRejected, order.Status)
	suite.Equal(types.OrderReasonDisconnected, order.Reason.Reason)

	_, err = suite.broker.GetPosition(suite.ctx, "AAPL")
	suite.True(errors.HasCode(err, errors.ErrCodeBrokerDisconnected))

	_, err = suite.broker.CancelOrder(suite.ctx, "x")
	suite.True(errors.HasCode(err, errors.ErrCodeBrokerDisconnected))
}

func (suite *GatewayBrokerTestSuite) TestReconnectSeedsState() {
	suite.gateway.positions["MSFT"] = types.Position{Symbol: "MSFT", Size: decimal.NewFromInt(-3), AvgPrice: decimal.NewFromInt(410)}
	suite.gateway.openOrder = &types.Order{OrderID: "gw-open", Symbol: "MSFT", Status: types.OrderStatusSubmitted}

	suite.Require().NoError(suite.broker.Reconnect(suite.ctx))
	suite.True(suite.broker.IsConnected(suite.ctx))

	pos, err := suite.broker.GetPosition(suite.ctx, "MSFT")
	suite.Require().NoError(err)
	suite.True(pos.Size.Equal(decimal.NewFromInt(-3)))

	open, err := suite.broker.GetOpenOrders(suite.ctx, "MSFT")
	suite.Require().NoError(err)
	suite.Len(open, 1)

	// reconnecting while connected is safe
	suite.Require().NoError(suite.broker.Reconnect(suite.ctx))
	suite.True(suite.broker.IsConnected(suite.ctx))

	suite.gateway.mu.Lock()
	defer suite.gateway.mu.Unlock()
	suite.Equal(2, suite.gateway.hellos)
}

func (suite *GatewayBrokerTestSuite) TestReconnectSettlesOrdersGatewayDropped() {
	suite.gateway.openOrder = &types.Order{OrderID: "gw-open", Symbol: "MSFT", Status: types.OrderStatusSubmitted}
	suite.Require().NoError(suite.broker.Reconnect(suite.ctx))

	open, err := suite.broker.GetOpenOrders(suite.ctx, "")
	suite.Require().NoError(err)
	suite.Len(open, 1)

	suite.gateway.mu.Lock()
	suite.gateway.openOrder = nil
	suite.gateway.mu.Unlock()

	suite.Require().NoError(suite.broker.Reconnect(suite.ctx))

	open, err = suite.broker.GetOpenOrders(suite.ctx, "")
	suite.Require().NoError(err)
	suite.Empty(open)

	status, err := suite.broker.GetOrderStatus(suite.ctx, "gw-open")
	suite.Require().NoError(err)
	suite.Equal(types.OrderStatusUnknown, status.Status)
}

func (suite *GatewayBrokerTestSuite) TestCancelAllMarksLocalOrdersCancelled() {
	suite.gateway.openOrder = &types.Order{OrderID: "gw-open", Symbol: "AAPL", Status: types.OrderStatusSubmitted}
	suite.Require().NoError(suite.broker.Reconnect(suite.ctx))

	count, err := suite.broker.CancelAllOrders(suite.ctx, "MSFT")
	suite.Require().NoError(err)
	suite.Equal(0, count)

	open, err := suite.broker.GetOpenOrders(suite.ctx, "AAPL")
	suite.Require().NoError(err)
	suite.Len(open, 1)

	count, err = suite.broker.CancelAllOrders(suite.ctx, "AAPL")
	suite.Require().NoError(err)
	suite.Equal(1, count)

	open, err = suite.broker.GetOpenOrders(suite.ctx, "")
	suite.Require().NoError(err)
	suite.Empty(open)

	status, err := suite.broker.GetOrderStatus(suite.ctx, "gw-open")
	suite.Require().NoError(err)
	suite.Equal(types.OrderStatusCancelled, status.Status)
}

func (suite *GatewayBrokerTestSuite) TestGetPositionIsStableBetweenOrders() {
	suite.Require().NoError(suite.broker.Reconnect(suite.ctx))

	_, err := suite.broker.SendOrder(suite.ctx, suite.buy("AAPL", 4))
	suite.Require().NoError(err)

	for _, symbol := range []string{"AAPL", "NVDA"} {
		first, err := suite.broker.GetPosition(suite.ctx, symbol)
		suite.Require().NoError(err)

		second, err := suite.broker.GetPosition(suite.ctx, symbol)
		suite.Require().NoError(err)

		suite.Equal(first.Symbol, second.Symbol, symbol)
		suite.True(first.Size.Equal(second.Size), symbol)
		suite.True(first.AvgPrice.Equal(second.AvgPrice), symbol)
	}

	traded, err := suite.broker.GetPosition(suite.ctx, "AAPL")
	suite.Require().NoError(err)
	suite.True(traded.Size.Equal(decimal.NewFromInt(4)))

	never, err := suite.broker.GetPosition(suite.ctx, "NVDA")
	suite.Require().NoError(err)
	suite.True(never.IsFlat())
}

func (suite *GatewayBrokerTestSuite) TestSendOrderUpdatesPositionFromEvent() {
	suite.Require().NoError(suite.broker.Reconnect(suite.ctx))

	order, err := suite.broker.SendOrder(suite.ctx, suite.buy("AAPL", 10))
	suite.Require().NoError(err)
	suite.Equal(types.OrderStatusFilled, order.Status)
	suite.Equal("gw-1", order.OrderID)

	pos, err := suite.broker.GetPosition(suite.ctx, "AAPL")
	suite.Require().NoError(err)
	suite.True(pos.Size.Equal(decimal.NewFromInt(10)))
	suite.True(pos.AvgPrice.Equal(decimal.NewFromInt(100)))

	status, err := suite.broker.GetOrderStatus(suite.ctx, "gw-1")
	suite.Require().NoError(err)
	suite.Equal(types.OrderStatusFilled, status.Status)

	sell := suite.buy("AAPL", 10)
	sell.Side = types.PurchaseTypeSell
	_, err = suite.broker.SendOrder(suite.ctx, sell)
	suite.Require().NoError(err)

	positions, err := suite.broker.GetAllPositions(suite.ctx)
	suite.Require().NoError(err)
	suite.Empty(positions)
}

func (suite *GatewayBrokerTestSuite) TestGatewayRefusalIsRejectedOrder() {
	suite.Require().NoError(suite.broker.Reconnect(suite.ctx))

	order, err := suite.broker.SendOrder(suite.ctx, suite.buy("REJECTME", 1))
	suite.NoError(err)
	suite.Equal(types.OrderStatusRejected, order.Status)
	suite.Equal(types.OrderReasonVenueRejected, order.Reason.Reason)
	suite.Equal("symbol not tradable", order.Reason.Message)
}

func (suite *GatewayBrokerTestSuite) TestCancelAndStatus() {
	suite.gateway.openOrder = &types.Order{OrderID: "gw-open", Symbol: "AAPL", Status: types.OrderStatusSubmitted}
	suite.Require().NoError(suite.broker.Reconnect(suite.ctx))

	ok, err := suite.broker.CancelOrder(suite.ctx, "nonexistent")
	suite.NoError(err)
	suite.False(ok)

	ok, err = suite.broker.CancelOrder(suite.ctx, "gw-open")
	suite.NoError(err)
	suite.True(ok)

	status, err := suite.broker.GetOrderStatus(suite.ctx, "gw-open")
	suite.NoError(err)
	suite.Equal(types.OrderStatusCancelled, status.Status)

	status, err = suite.broker.GetOrderStatus(suite.ctx, "never-seen")
	suite.NoError(err)
	suite.Equal(types.OrderStatusUnknown, status.Status)

	count, err := suite.broker.CancelAllOrders(suite.ctx, "")
	suite.NoError(err)
	suite.Equal(0, count)
}

func (suite *GatewayBrokerTestSuite) TestQueries() {
	suite.Require().NoError(suite.broker.Reconnect(suite.ctx))

	info, err := suite.broker.GetAccountInfo(suite.ctx)
	suite.Require().NoError(err)
	suite.True(info.Cash.Equal(decimal.NewFromInt(50000)))

	price, err := suite.broker.GetLastPrice(suite.ctx, "AAPL")
	suite.Require().NoError(err)
	suite.True(price.Equal(decimal.NewFromInt(100)))

	quote, err := suite.broker.GetBidAsk(suite.ctx, "AAPL")
	suite.Require().NoError(err)
	suite.True(quote.Bid.LessThan(quote.Ask))

	fills, err := suite.broker.GetTradeHistory(suite.ctx, types.TradeFilter{Symbol: "AAPL"})
	suite.Require().NoError(err)
	suite.Len(fills, 1)
}

func (suite *GatewayBrokerTestSuite) TestRequestTimeout() {
	suite.Require().NoError(suite.broker.Reconnect(suite.ctx))

	suite.gateway.mu.Lock()
	suite.gateway.silent = true
	suite.gateway.mu.Unlock()

	_, err := suite.broker.GetLastPrice(suite.ctx, "AAPL")
	suite.True(errors.HasCode(err, errors.ErrCodeBrokerTimeout))

	order, err := suite.broker.SendOrder(suite.ctx, suite.buy("AAPL", 1))
	suite.NoError(err)
	suite.Equal(types.OrderStatusRejected, order.Status)
	suite.Equal(types.OrderReasonTimeout, order.Reason.Reason)
}

func (suite *GatewayBrokerTestSuite) TestDroppedSessionThenReconnect() {
	suite.Require().NoError(suite.broker.Reconnect(suite.ctx))
	suite.gateway.dropConnections()

	suite.Eventually(func() bool {
		return !suite.broker.IsConnected(suite.ctx)
	}, 2*time.Second, 10*time.Millisecond)

	_, err := suite.broker.GetAllPositions(suite.ctx)
	suite.True(errors.IsConnectivityError(err))

	suite.Require().NoError(suite.broker.Reconnect(suite.ctx))
	suite.True(suite.broker.IsConnected(suite.ctx))
}

func (suite *GatewayBrokerTestSuite) TestReconnectFailsWhenGatewayDown() {
	suite.server.Close()

	err := suite.broker.Reconnect(suite.ctx)
	suite.True(errors.HasCode(err, errors.ErrCodeBrokerDisconnected))
	suite.False(suite.broker.IsConnected(suite.ctx))
}

func (suite *GatewayBrokerTestSuite) TestHandshakeAnnouncesProtocol() {
	suite.Require().NoError(suite.broker.Reconnect(suite.ctx))

	suite.gateway.mu.Lock()
	defer suite.gateway.mu.Unlock()
	suite.Equal(version.GatewayProtocolVersion, suite.gateway.helloProtocol)
}

func (suite *GatewayBrokerTestSuite) TestIncompatibleGatewayProtocol() {
	suite.gateway.mu.Lock()
	suite.gateway.protocol = "2.0.0"
	suite.gateway.mu.Unlock()

	err := suite.broker.Reconnect(suite.ctx)
	suite.Error(err)
	suite.Equal(errors.ErrCodeGatewayProtocolError, errors.GetCode(err))
	suite.True(errors.HasCodeInChain(err, errors.ErrCodeIncompatibleVersion))
	suite.False(suite.broker.IsConnected(suite.ctx))
}

func (suite *GatewayBrokerTestSuite) TestGatewayWithoutProtocolVersion() {
	suite.gateway.mu.Lock()
	suite.gateway.protocol = ""
	suite.gateway.mu.Unlock()

	suite.Require().NoError(suite.broker.Reconnect(suite.ctx))
	suite.True(suite.broker.IsConnected(suite.ctx))
}

func (suite *GatewayBrokerTestSuite) TestConfigValidation() {
	_, err := NewGatewayBroker(GatewayConfig{}, logger.NewNopLogger())
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

	cfg, err := parseGatewayConfig(`{"url":"ws://127.0.0.1:4002/ws","clientId":3}`)
	suite.Require().NoError(err)
	suite.Equal(3, cfg.ClientID)
	suite.Equal(DefaultGatewayRequestTimeout, cfg.requestTimeout())
}
