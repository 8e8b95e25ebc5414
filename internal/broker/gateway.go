package broker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-router/internal/logger"
	"github.com/rxtech-lab/argo-router/internal/types"
	"github.com/rxtech-lab/argo-router/internal/version"
	"github.com/rxtech-lab/argo-router/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GatewayBroker implements Broker over a stateful websocket session to a
// desktop trading gateway. Orders and positions are kept in a local store
// seeded on connect and updated by events the gateway pushes. Account,
// market data and trade history are requested on demand.
//
// The broker starts disconnected. Call Reconnect to open the session.
type GatewayBroker struct {
	config GatewayConfig
	log    *logger.Logger

	sessionMu sync.Mutex
	session   *gatewaySession

	stateMu   sync.RWMutex
	orders    map[string]types.Order
	positions map[string]types.Position
}

// NewGatewayBroker creates a gateway broker without connecting.
func NewGatewayBroker(config GatewayConfig, log *logger.Logger) (*GatewayBroker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &GatewayBroker{
		config:    config,
		log:       log.Named("gateway_broker"),
		sessionMu: sync.Mutex{},
		session:   nil,
		stateMu:   sync.RWMutex{},
		orders:    make(map[string]types.Order),
		positions: make(map[string]types.Position),
	}, nil
}

// Reconnect implements Broker. Any existing session is closed and a new one is
// dialed, announced and resynchronised. Safe to call while connected.
func (g *GatewayBroker) Reconnect(ctx context.Context) error {
	g.sessionMu.Lock()
	defer g.sessionMu.Unlock()

	if g.session != nil {
		g.session.close()
		g.session = nil
	}

	session, err := dialGatewaySession(ctx, g.config.URL, g.config.requestTimeout(), g.handleEvent)
	if err != nil {
		g.log.Warn("gateway connect failed", zap.String("url", g.config.URL), zap.Error(err))

		return err
	}

	hello := gatewayHelloParams{
		ClientID:        g.config.ClientID,
		Account:         g.config.Account,
		ProtocolVersion: version.GatewayProtocolVersion,
		ClientVersion:   version.GetVersion(),
	}

	var welcome gatewayHelloResult
	if err := session.call(ctx, gatewayMethodHello, hello, &welcome); err != nil {
		session.close()

		return errors.Wrap(errors.ErrCodeBrokerDisconnected, "gateway handshake failed", err)
	}

	if err := version.CheckCompatibility(version.GatewayProtocolVersion, welcome.ProtocolVersion); err != nil {
		session.close()

		return errors.Wrap(errors.ErrCodeGatewayProtocolError, "unsupported gateway protocol", err)
	}

	if err := g.resync(ctx, session); err != nil {
		session.close()

		return err
	}

	g.session = session
	g.log.Info("gateway connected", zap.String("url", g.config.URL), zap.Int("client_id", g.config.ClientID))

	return nil
}

// Close ends the session. The broker can be reconnected afterwards.
func (g *GatewayBroker) Close() {
	g.sessionMu.Lock()
	defer g.sessionMu.Unlock()

	if g.session != nil {
		g.session.close()
		g.session = nil
	}
}

// IsConnected implements Broker.
func (g *GatewayBroker) IsConnected(_ context.Context) bool {
	return g.activeSession() != nil
}

// SendOrder implements Broker.
func (g *GatewayBroker) SendOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	if err := req.Validate(); err != nil {
		return types.Order{}, err
	}

	session := g.activeSession()
	if session == nil {
		return g.rejected(req, types.OrderReasonDisconnected, "gateway is not connected"), nil
	}

	params := gatewayOrderParams{
		Symbol:    req.Symbol,
		Side:      req.Side,
		OrderType: req.OrderType,
		Quantity:  req.Quantity,
		Price:     nil,
		Tag:       req.Tag,
	}
	if req.Price.IsSome() {
		price := req.Price.Unwrap()
		params.Price = &price
	}

	var order types.Order
	if err := session.call(ctx, gatewayMethodPlaceOrder, params, &order); err != nil {
		var refusal *gatewayError

		switch {
		case stderrors.As(err, &refusal):
			return g.rejected(req, types.OrderReasonVenueRejected, refusal.Message), nil
		case errors.HasCode(err, errors.ErrCodeBrokerTimeout):
			return g.rejected(req, types.OrderReasonTimeout, err.Error()), nil
		default:
			return g.rejected(req, types.OrderReasonDisconnected, err.Error()), nil
		}
	}

	if order.Tag == "" {
		order.Tag = req.Tag
	}

	g.storeOrder(order)

	g.log.Info("gateway order accepted",
		zap.String("order_id", order.OrderID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.String("status", string(order.Status)),
	)

	return order, nil
}

// CancelOrder implements Broker.
func (g *GatewayBroker) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	session, err := g.requireSession()
	if err != nil {
		return false, err
	}

	var result gatewayCancelResult
	if err := session.call(ctx, gatewayMethodCancelOrder, gatewayOrderIDParams{OrderID: orderID}, &result); err != nil {
		var refusal *gatewayError
		if stderrors.As(err, &refusal) {
			return false, nil
		}

		return false, err
	}

	if result.Cancelled {
		g.stateMu.Lock()
		if order, ok := g.orders[orderID]; ok {
			order.Status = types.OrderStatusCancelled
			g.orders[orderID] = order
		}
		g.stateMu.Unlock()
	}

	return result.Cancelled, nil
}

// CancelAllOrders implements Broker.
func (g *GatewayBroker) CancelAllOrders(ctx context.Context, symbol string) (int, error) {
	session, err := g.requireSession()
	if err != nil {
		return 0, err
	}

	var result gatewayCancelAllResult
	if err := session.call(ctx, gatewayMethodCancelAll, gatewaySymbolParams{Symbol: symbol}, &result); err != nil {
		return 0, err
	}

	g.stateMu.Lock()
	for id, order := range g.orders {
		if order.IsOpen() && (symbol == "" || order.Symbol == symbol) {
			order.Status = types.OrderStatusCancelled
			g.orders[id] = order
		}
	}
	g.stateMu.Unlock()

	return result.Cancelled, nil
}

// GetOpenOrders implements Broker. Answered from the local order store.
func (g *GatewayBroker) GetOpenOrders(_ context.Context, symbol string) ([]types.Order, error) {
	if _, err := g.requireSession(); err != nil {
		return nil, err
	}

	g.stateMu.RLock()
	defer g.stateMu.RUnlock()

	open := make([]types.Order, 0)

	for _, order := range g.orders {
		if order.IsOpen() && (symbol == "" || order.Symbol == symbol) {
			open = append(open, order)
		}
	}

	sort.Slice(open, func(i, j int) bool { return open[i].Timestamp.Before(open[j].Timestamp) })

	return open, nil
}

// GetOrderStatus implements Broker. Orders missing from the local store are
// looked up on the gateway.
func (g *GatewayBroker) GetOrderStatus(ctx context.Context, orderID string) (types.Order, error) {
	g.stateMu.RLock()
	order, ok := g.orders[orderID]
	g.stateMu.RUnlock()

	if ok {
		return order, nil
	}

	session, err := g.requireSession()
	if err != nil {
		return types.Order{}, err
	}

	if err := session.call(ctx, gatewayMethodOrderStatus, gatewayOrderIDParams{OrderID: orderID}, &order); err != nil {
		var refusal *gatewayError
		if stderrors.As(err, &refusal) && refusal.Code == gatewayErrorNotFound {
			return types.NewUnknownOrder(orderID), nil
		}

		return types.Order{}, err
	}

	g.storeOrder(order)

	return order, nil
}

// GetPosition implements Broker. Answered from the local position store.
func (g *GatewayBroker) GetPosition(_ context.Context, symbol string) (types.Position, error) {
	if _, err := g.requireSession(); err != nil {
		return types.Position{}, err
	}

	g.stateMu.RLock()
	defer g.stateMu.RUnlock()

	if pos, ok := g.positions[symbol]; ok {
		return pos, nil
	}

	return types.FlatPosition(symbol), nil
}

// GetAllPositions implements Broker.
func (g *GatewayBroker) GetAllPositions(_ context.Context) (map[string]types.Position, error) {
	if _, err := g.requireSession(); err != nil {
		return nil, err
	}

	g.stateMu.RLock()
	defer g.stateMu.RUnlock()

	out := make(map[string]types.Position, len(g.positions))
	for symbol, pos := range g.positions {
		out[symbol] = pos
	}

	return out, nil
}

// GetAccountInfo implements Broker.
func (g *GatewayBroker) GetAccountInfo(ctx context.Context) (types.AccountInfo, error) {
	session, err := g.requireSession()
	if err != nil {
		return types.AccountInfo{}, err
	}

	var info types.AccountInfo
	if err := session.call(ctx, gatewayMethodAccount, nil, &info); err != nil {
		return types.AccountInfo{}, wrapGatewayError(err, "failed to get account info from gateway")
	}

	return info, nil
}

// GetLastPrice implements Broker.
func (g *GatewayBroker) GetLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	session, err := g.requireSession()
	if err != nil {
		return decimal.Zero, err
	}

	var result gatewayPriceResult
	if err := session.call(ctx, gatewayMethodLastPrice, gatewaySymbolParams{Symbol: symbol}, &result); err != nil {
		return decimal.Zero, wrapGatewayError(err, "failed to get last price from gateway")
	}

	return result.Price, nil
}

// GetBidAsk implements Broker.
func (g *GatewayBroker) GetBidAsk(ctx context.Context, symbol string) (types.Quote, error) {
	session, err := g.requireSession()
	if err != nil {
		return types.Quote{}, err
	}

	var quote types.Quote
	if err := session.call(ctx, gatewayMethodQuote, gatewaySymbolParams{Symbol: symbol}, &quote); err != nil {
		return types.Quote{}, wrapGatewayError(err, "failed to get quote from gateway")
	}

	return quote, nil
}

// GetTradeHistory implements Broker.
func (g *GatewayBroker) GetTradeHistory(ctx context.Context, filter types.TradeFilter) ([]types.Fill, error) {
	session, err := g.requireSession()
	if err != nil {
		return nil, err
	}

	params := gatewayTradesParams{Symbol: filter.Symbol, StartTime: 0, EndTime: 0, Limit: filter.Limit}
	if !filter.StartTime.IsZero() {
		params.StartTime = filter.StartTime.UnixMilli()
	}

	if !filter.EndTime.IsZero() {
		params.EndTime = filter.EndTime.UnixMilli()
	}

	var fills []types.Fill
	if err := session.call(ctx, gatewayMethodTrades, params, &fills); err != nil {
		return nil, wrapGatewayError(err, "failed to get trades from gateway")
	}

	return filter.Apply(fills), nil
}

func (g *GatewayBroker) resync(ctx context.Context, session *gatewaySession) error {
	var positions []types.Position
	if err := session.call(ctx, gatewayMethodPositions, nil, &positions); err != nil {
		return wrapGatewayError(err, "failed to load positions from gateway")
	}

	var orders []types.Order
	if err := session.call(ctx, gatewayMethodOpenOrders, gatewaySymbolParams{}, &orders); err != nil {
		return wrapGatewayError(err, "failed to load open orders from gateway")
	}

	g.stateMu.Lock()
	defer g.stateMu.Unlock()

	g.positions = make(map[string]types.Position, len(positions))
	for _, pos := range positions {
		if !pos.IsFlat() {
			g.positions[pos.Symbol] = pos
		}
	}

	listed := make(map[string]struct{}, len(orders))
	for _, order := range orders {
		listed[order.OrderID] = struct{}{}
		g.orders[order.OrderID] = order
	}

	// open orders the gateway no longer lists settled while we were away
	for id, order := range g.orders {
		if _, ok := listed[id]; ok || !order.IsOpen() {
			continue
		}

		order.Status = types.OrderStatusUnknown
		g.orders[id] = order
		g.log.Warn("open order missing after resync", zap.String("order_id", id), zap.String("symbol", order.Symbol))
	}

	return nil
}

// handleEvent applies an unsolicited gateway update to the local store.
func (g *GatewayBroker) handleEvent(frame gatewayFrame) {
	switch frame.Event {
	case gatewayEventOrderUpdate:
		var order types.Order
		if err := json.Unmarshal(frame.Result, &order); err != nil {
			g.log.Warn("malformed order update", zap.Error(err))

			return
		}

		g.storeOrder(order)
	case gatewayEventPositionUpdate:
		var pos types.Position
		if err := json.Unmarshal(frame.Result, &pos); err != nil {
			g.log.Warn("malformed position update", zap.Error(err))

			return
		}

		g.stateMu.Lock()
		if pos.IsFlat() {
			delete(g.positions, pos.Symbol)
		} else {
			g.positions[pos.Symbol] = pos
		}
		g.stateMu.Unlock()

		g.log.Debug("position update", zap.String("symbol", pos.Symbol), zap.String("size", pos.Size.String()))
	default:
		g.log.Debug("ignoring gateway event", zap.String("event", frame.Event))
	}
}

func (g *GatewayBroker) storeOrder(order types.Order) {
	if order.OrderID == "" {
		return
	}

	g.stateMu.Lock()
	defer g.stateMu.Unlock()

	g.orders[order.OrderID] = order
}

func (g *GatewayBroker) activeSession() *gatewaySession {
	g.sessionMu.Lock()
	defer g.sessionMu.Unlock()

	if g.session == nil || !g.session.alive() {
		return nil
	}

	return g.session
}

func (g *GatewayBroker) requireSession() (*gatewaySession, error) {
	session := g.activeSession()
	if session == nil {
		return nil, errors.New(errors.ErrCodeBrokerDisconnected, "gateway is not connected")
	}

	return session, nil
}

func (g *GatewayBroker) rejected(req types.OrderRequest, reason, message string) types.Order {
	g.log.Warn("gateway order rejected",
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.String("reason", reason),
		zap.String("message", message),
	)

	return types.NewRejectedOrder(uuid.New().String(), req, reason, message, time.Now())
}

// wrapGatewayError keeps connectivity errors as they are and wraps gateway
// refusals as failed requests.
func wrapGatewayError(err error, message string) error {
	if errors.IsConnectivityError(err) {
		return err
	}

	return errors.Wrap(errors.ErrCodeBrokerRequestFailed, message, err)
}

var _ Broker = (*GatewayBroker)(nil)
