package broker

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-router/internal/logger"
	"github.com/rxtech-lab/argo-router/internal/types"
	"github.com/rxtech-lab/argo-router/internal/utils"
	"github.com/rxtech-lab/argo-router/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BinanceBroker implements Broker on the Binance REST API, either spot or USD-M
// futures. Account state is never cached: every query hits the venue. The only
// local state is the registry of order ids placed in this session, because the
// venue needs a symbol to address an order.
type BinanceBroker struct {
	venue            binanceVenue
	log              *logger.Logger
	decimalPrecision int32
	futures          bool

	mu       sync.Mutex
	registry map[string]string
}

// NewBinanceBroker creates a Binance broker. Missing credentials fail here, not
// on the first order.
func NewBinanceBroker(config BinanceConfig, useFutures bool, log *logger.Logger) (*BinanceBroker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	config = config.withDefaults()

	var venue binanceVenue
	if useFutures {
		venue = newFuturesVenue(config)
	} else {
		venue = newSpotVenue(config)
	}

	return newBinanceBrokerWithVenue(venue, useFutures, config.DecimalPrecision, log), nil
}

// newBinanceBrokerWithVenue creates a broker on a custom venue.
// This is used for testing with fake venues.
func newBinanceBrokerWithVenue(venue binanceVenue, useFutures bool, decimalPrecision int32, log *logger.Logger) *BinanceBroker {
	name := "binance_spot"
	if useFutures {
		name = "binance_futures"
	}

	return &BinanceBroker{
		venue:            venue,
		log:              log.Named(name),
		decimalPrecision: decimalPrecision,
		futures:          useFutures,
		mu:               sync.Mutex{},
		registry:         make(map[string]string),
	}
}

// SendOrder implements Broker. Venue errors and transport failures become
// REJECTED orders carrying the venue message.
func (b *BinanceBroker) SendOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	if err := req.Validate(); err != nil {
		return types.Order{}, err
	}

	quantity := utils.RoundToDecimalPrecision(req.Quantity, b.decimalPrecision)
	if !quantity.IsPositive() {
		return types.Order{}, errors.Newf(errors.ErrCodeInvalidArgument,
			"order quantity %s is too small after rounding to %d decimal places", req.Quantity, b.decimalPrecision)
	}

	params := binanceOrderParams{
		Symbol:    req.Symbol,
		Side:      req.Side,
		OrderType: req.OrderType,
		Quantity:  utils.FormatDecimal(quantity, b.decimalPrecision),
		Price:     "",
	}
	if req.OrderType == types.OrderTypeLimit {
		params.Price = req.Price.Unwrap().String()
	}

	order, err := b.venue.CreateOrder(ctx, params)
	if err != nil {
		reason := types.OrderReasonDisconnected
		if common.IsAPIError(err) {
			reason = types.OrderReasonVenueRejected
		}

		b.log.Warn("binance rejected order",
			zap.String("symbol", req.Symbol),
			zap.String("side", string(req.Side)),
			zap.String("quantity", params.Quantity),
			zap.String("reason", reason),
			zap.Error(err),
		)

		return types.NewRejectedOrder(uuid.New().String(), req, reason, err.Error(), time.Now()), nil
	}

	order.Tag = req.Tag
	b.remember(order.OrderID, order.Symbol)

	b.log.Info("binance order placed",
		zap.String("order_id", order.OrderID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.String("status", string(order.Status)),
		zap.String("filled", order.FilledQuantity.String()),
	)

	return order, nil
}

// CancelOrder implements Broker.
func (b *BinanceBroker) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	symbol, venueID, ok := b.lookup(orderID)
	if !ok {
		return false, nil
	}

	order, err := b.venue.CancelOrder(ctx, symbol, venueID)
	if err != nil {
		// the venue answers unknown or already-final orders with an API error
		if common.IsAPIError(err) {
			b.log.Debug("binance cancel refused", zap.String("order_id", orderID), zap.Error(err))

			return false, nil
		}

		return false, errors.Wrap(errors.ErrCodeBrokerRequestFailed, "failed to cancel order on Binance", err)
	}

	return order.Status == types.OrderStatusCancelled, nil
}

// CancelAllOrders implements Broker.
func (b *BinanceBroker) CancelAllOrders(ctx context.Context, symbol string) (int, error) {
	open, err := b.GetOpenOrders(ctx, symbol)
	if err != nil {
		return 0, err
	}

	counts := make(map[string]int)
	for _, order := range open {
		counts[order.Symbol]++
	}

	symbols := make([]string, 0, len(counts))
	for s := range counts {
		symbols = append(symbols, s)
	}

	sort.Strings(symbols)

	cancelled := 0

	for _, s := range symbols {
		if err := b.venue.CancelOpenOrders(ctx, s); err != nil {
			b.log.Warn("failed to cancel open orders", zap.String("symbol", s), zap.Error(err))

			continue
		}

		cancelled += counts[s]
	}

	return cancelled, nil
}

// GetOpenOrders implements Broker.
func (b *BinanceBroker) GetOpenOrders(ctx context.Context, symbol string) ([]types.Order, error) {
	orders, err := b.venue.ListOpenOrders(ctx, symbol)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBrokerRequestFailed, "failed to get open orders from Binance", err)
	}

	for _, order := range orders {
		b.remember(order.OrderID, order.Symbol)
	}

	return orders, nil
}

// GetOrderStatus implements Broker.
func (b *BinanceBroker) GetOrderStatus(ctx context.Context, orderID string) (types.Order, error) {
	symbol, venueID, ok := b.lookup(orderID)
	if !ok {
		return types.NewUnknownOrder(orderID), nil
	}

	order, err := b.venue.GetOrder(ctx, symbol, venueID)
	if err != nil {
		if common.IsAPIError(err) {
			return types.NewUnknownOrder(orderID), nil
		}

		return types.Order{}, errors.Wrap(errors.ErrCodeBrokerRequestFailed, "failed to get order status from Binance", err)
	}

	return order, nil
}

// GetPosition implements Broker.
func (b *BinanceBroker) GetPosition(ctx context.Context, symbol string) (types.Position, error) {
	positions, err := b.GetAllPositions(ctx)
	if err != nil {
		return types.Position{}, err
	}

	if pos, ok := positions[symbol]; ok {
		return pos, nil
	}

	return types.FlatPosition(symbol), nil
}

// GetAllPositions implements Broker.
func (b *BinanceBroker) GetAllPositions(ctx context.Context) (map[string]types.Position, error) {
	positions, err := b.venue.Positions(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBrokerRequestFailed, "failed to get positions from Binance", err)
	}

	return positions, nil
}

// GetAccountInfo implements Broker.
func (b *BinanceBroker) GetAccountInfo(ctx context.Context) (types.AccountInfo, error) {
	info, err := b.venue.Account(ctx)
	if err != nil {
		return types.AccountInfo{}, errors.Wrap(errors.ErrCodeBrokerRequestFailed, "failed to get account info from Binance", err)
	}

	return info, nil
}

// GetLastPrice implements Broker.
func (b *BinanceBroker) GetLastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	price, err := b.venue.LastPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, wrapVenueError(err, "failed to get last price from Binance")
	}

	return price, nil
}

// GetBidAsk implements Broker.
func (b *BinanceBroker) GetBidAsk(ctx context.Context, symbol string) (types.Quote, error) {
	quote, err := b.venue.BookTicker(ctx, symbol)
	if err != nil {
		return types.Quote{}, wrapVenueError(err, "failed to get book ticker from Binance")
	}

	return quote, nil
}

// GetTradeHistory implements Broker. Binance lists trades per symbol, so the
// filter must name one.
func (b *BinanceBroker) GetTradeHistory(ctx context.Context, filter types.TradeFilter) ([]types.Fill, error) {
	if filter.Symbol == "" {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "symbol is required for trade history on Binance")
	}

	fills, err := b.venue.Trades(ctx, filter.Symbol, 0)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBrokerRequestFailed, "failed to get trades from Binance", err)
	}

	return filter.Apply(fills), nil
}

// IsConnected implements Broker.
func (b *BinanceBroker) IsConnected(ctx context.Context) bool {
	return b.venue.Ping(ctx) == nil
}

// Reconnect implements Broker. The REST client holds no session, so this only
// verifies the venue is reachable.
func (b *BinanceBroker) Reconnect(ctx context.Context) error {
	if err := b.venue.Ping(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeBrokerDisconnected, "failed to reach Binance", err)
	}

	return nil
}

func (b *BinanceBroker) remember(orderID, symbol string) {
	if orderID == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.registry[orderID] = symbol
}

func (b *BinanceBroker) lookup(orderID string) (string, int64, bool) {
	b.mu.Lock()
	symbol, ok := b.registry[orderID]
	b.mu.Unlock()

	if !ok {
		return "", 0, false
	}

	venueID, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return "", 0, false
	}

	return symbol, venueID, true
}

func wrapVenueError(err error, message string) error {
	if errors.GetCode(err) == errors.ErrCodeMarketDataMissing {
		return err
	}

	return errors.Wrap(errors.ErrCodeBrokerRequestFailed, message, err)
}

// Ensure BinanceBroker implements Broker.
var _ Broker = (*BinanceBroker)(nil)
