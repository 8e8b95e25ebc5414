package broker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-router/internal/logger"
	"github.com/rxtech-lab/argo-router/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaperBroker is an in-memory account that fills every accepted order
// immediately and in full. It never holds open orders.
//
// Fill price is the request price when given, else the last close forwarded
// through UpdateMarketData, else the configured default fill price.
type PaperBroker struct {
	mu sync.Mutex

	log              *logger.Logger
	cash             decimal.Decimal
	defaultFillPrice decimal.Decimal
	allowShort       bool

	positions  map[string]types.Position
	orders     map[string]types.Order
	fills      []types.Fill
	lastPrices map[string]decimal.Decimal
	// marketTimes holds the latest bar time seen per symbol
	marketTimes map[string]time.Time
	now         func() time.Time
}

// NewPaperBroker creates a paper broker from config.
func NewPaperBroker(config PaperConfig, log *logger.Logger) (*PaperBroker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	config = config.withDefaults()

	return &PaperBroker{
		mu:               sync.Mutex{},
		log:              log.Named("paper_broker"),
		cash:             decimal.NewFromFloat(config.InitialCash),
		defaultFillPrice: decimal.NewFromFloat(config.DefaultFillPrice),
		allowShort:       config.AllowShort,
		positions:        make(map[string]types.Position),
		orders:           make(map[string]types.Order),
		fills:            make([]types.Fill, 0),
		lastPrices:       make(map[string]decimal.Decimal),
		marketTimes:      make(map[string]time.Time),
		now:              time.Now,
	}, nil
}

// UpdateMarketData records the bar close as the symbol's last price and moves
// that symbol's paper clock to the bar time.
func (p *PaperBroker) UpdateMarketData(bar types.Bar) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastPrices[bar.Symbol] = bar.ClosePrice()
	if bar.Time.After(p.marketTimes[bar.Symbol]) {
		p.marketTimes[bar.Symbol] = bar.Time
	}
}

// SendOrder implements Broker.
func (p *PaperBroker) SendOrder(_ context.Context, req types.OrderRequest) (types.Order, error) {
	if err := req.Validate(); err != nil {
		return types.Order{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id := uuid.New().String()
	ts := p.timestamp(req.Symbol)
	fillPrice := req.Price.TakeOr(p.markPrice(req.Symbol))
	cost := req.Quantity.Mul(fillPrice)
	current := p.positionLocked(req.Symbol)

	switch req.Side {
	case types.PurchaseTypeBuy:
		if p.cash.LessThan(cost) {
			return p.reject(id, req, ts, types.OrderReasonInsufficientBuyPower,
				fmt.Sprintf("insufficient cash: need %s, have %s", cost, p.cash)), nil
		}

		p.cash = p.cash.Sub(cost)
	case types.PurchaseTypeSell:
		if !p.allowShort && current.Size.LessThan(req.Quantity) {
			return p.reject(id, req, ts, types.OrderReasonInsufficientSellPower,
				fmt.Sprintf("insufficient holdings: need %s, have %s", req.Quantity, current.Size)), nil
		}

		p.cash = p.cash.Add(cost)
	}

	next := current.ApplyFill(req.Side, req.Quantity, fillPrice)
	if next.IsFlat() {
		delete(p.positions, req.Symbol)
	} else {
		p.positions[req.Symbol] = next
	}

	order := types.Order{
		OrderID:        id,
		Symbol:         req.Symbol,
		Side:           req.Side,
		OrderType:      req.OrderType,
		Quantity:       req.Quantity,
		FilledQuantity: req.Quantity,
		Price:          req.Price.TakeOr(decimal.Zero),
		AvgFillPrice:   fillPrice,
		Status:         types.OrderStatusFilled,
		Tag:            req.Tag,
		Reason:         types.Reason{},
		Timestamp:      ts,
	}
	p.orders[id] = order
	p.fills = append(p.fills, types.Fill{
		OrderID:   id,
		TradeID:   id,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Quantity:  req.Quantity,
		Price:     fillPrice,
		Fee:       decimal.Zero,
		Timestamp: ts,
	})

	p.log.Info("paper order filled",
		zap.String("order_id", id),
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.String("quantity", req.Quantity.String()),
		zap.String("price", fillPrice.String()),
		zap.String("position", next.Size.String()),
	)

	return order, nil
}

// CancelOrder implements Broker. Paper orders fill on submission, so there is
// never anything to cancel.
func (p *PaperBroker) CancelOrder(_ context.Context, orderID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[orderID]
	if !ok || !order.IsOpen() {
		return false, nil
	}

	order.Status = types.OrderStatusCancelled
	p.orders[orderID] = order

	return true, nil
}

// CancelAllOrders implements Broker.
func (p *PaperBroker) CancelAllOrders(ctx context.Context, symbol string) (int, error) {
	open, err := p.GetOpenOrders(ctx, symbol)
	if err != nil {
		return 0, err
	}

	cancelled := 0

	for _, order := range open {
		ok, err := p.CancelOrder(ctx, order.OrderID)
		if err != nil {
			return cancelled, err
		}

		if ok {
			cancelled++
		}
	}

	return cancelled, nil
}

// GetOpenOrders implements Broker.
func (p *PaperBroker) GetOpenOrders(_ context.Context, symbol string) ([]types.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	open := make([]types.Order, 0)

	for _, order := range p.orders {
		if order.IsOpen() && (symbol == "" || order.Symbol == symbol) {
			open = append(open, order)
		}
	}

	sort.Slice(open, func(i, j int) bool { return open[i].Timestamp.Before(open[j].Timestamp) })

	return open, nil
}

// GetOrderStatus implements Broker.
func (p *PaperBroker) GetOrderStatus(_ context.Context, orderID string) (types.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[orderID]
	if !ok {
		return types.NewUnknownOrder(orderID), nil
	}

	return order, nil
}

// GetPosition implements Broker.
func (p *PaperBroker) GetPosition(_ context.Context, symbol string) (types.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.positionLocked(symbol), nil
}

// GetAllPositions implements Broker.
func (p *PaperBroker) GetAllPositions(_ context.Context) (map[string]types.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.copyPositionsLocked(), nil
}

// GetAccountInfo implements Broker. Positions are marked at the last known
// price, falling back to their average price.
func (p *PaperBroker) GetAccountInfo(_ context.Context) (types.AccountInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	equity := p.cash

	for symbol, pos := range p.positions {
		mark, ok := p.lastPrices[symbol]
		if !ok {
			mark = pos.AvgPrice
		}

		equity = equity.Add(pos.Size.Mul(mark))
	}

	return types.AccountInfo{
		Cash:        p.cash,
		Positions:   p.copyPositionsLocked(),
		TotalEquity: equity,
	}, nil
}

// GetLastPrice implements Broker.
func (p *PaperBroker) GetLastPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.markPrice(symbol), nil
}

// GetBidAsk implements Broker. The paper book has no spread.
func (p *PaperBroker) GetBidAsk(_ context.Context, symbol string) (types.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	price := p.markPrice(symbol)

	return types.Quote{Symbol: symbol, Bid: price, Ask: price}, nil
}

// GetTradeHistory implements Broker.
func (p *PaperBroker) GetTradeHistory(_ context.Context, filter types.TradeFilter) ([]types.Fill, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return filter.Apply(p.fills), nil
}

// IsConnected implements Broker. The paper broker is always connected.
func (p *PaperBroker) IsConnected(_ context.Context) bool {
	return true
}

// Reconnect implements Broker.
func (p *PaperBroker) Reconnect(_ context.Context) error {
	return nil
}

func (p *PaperBroker) reject(id string, req types.OrderRequest, ts time.Time, reason, message string) types.Order {
	order := types.NewRejectedOrder(id, req, reason, message, ts)
	p.orders[id] = order

	p.log.Warn("paper order rejected",
		zap.String("order_id", id),
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.String("reason", reason),
		zap.String("message", message),
	)

	return order
}

func (p *PaperBroker) positionLocked(symbol string) types.Position {
	if pos, ok := p.positions[symbol]; ok {
		return pos
	}

	return types.FlatPosition(symbol)
}

func (p *PaperBroker) copyPositionsLocked() map[string]types.Position {
	out := make(map[string]types.Position, len(p.positions))
	for symbol, pos := range p.positions {
		out[symbol] = pos
	}

	return out
}

func (p *PaperBroker) markPrice(symbol string) decimal.Decimal {
	if price, ok := p.lastPrices[symbol]; ok {
		return price
	}

	return p.defaultFillPrice
}

func (p *PaperBroker) timestamp(symbol string) time.Time {
	if ts, ok := p.marketTimes[symbol]; ok {
		return ts
	}

	return p.now()
}

var (
	_ Broker             = (*PaperBroker)(nil)
	_ MarketDataReceiver = (*PaperBroker)(nil)
)
