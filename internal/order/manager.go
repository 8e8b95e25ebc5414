// Package order turns strategy signals into broker orders and keeps a
// read-side cache of the positions the broker reports.
package order

import (
	"context"
	"sort"
	"sync"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-router/internal/broker"
	"github.com/rxtech-lab/argo-router/internal/logger"
	"github.com/rxtech-lab/argo-router/internal/types"
	"github.com/rxtech-lab/argo-router/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SignalRequest is one signal to route for a symbol.
type SignalRequest struct {
	Symbol   string
	Signal   types.SignalType
	Quantity decimal.Decimal
	// OrderType defaults to MARKET when empty.
	OrderType types.OrderType
	Price     optional.Option[decimal.Decimal]
	// Tag defaults to "strategy" when empty.
	Tag string
}

// Manager routes signals to a broker.
//
// The position used to size an order is always read from the broker right
// before the order is placed. The cache is only a mirror for callers that want
// a cheap read, and is never consulted when sizing.
type Manager struct {
	broker broker.Broker
	log    *logger.Logger

	locks *symbolLocks

	cacheMu   sync.RWMutex
	positions map[string]types.Position
}

// NewManager creates a manager bound to b.
func NewManager(b broker.Broker, log *logger.Logger) *Manager {
	return &Manager{
		broker:    b,
		log:       log.Named("order_manager"),
		locks:     newSymbolLocks(),
		cacheMu:   sync.RWMutex{},
		positions: make(map[string]types.Position),
	}
}

// HandleSignal places at most one order for the signal.
//
// A buy while long (or a sell while short) does nothing and returns None.
// A buy while short places a single buy of |short| + quantity, and a sell while
// long mirrors that. From flat the order is exactly quantity.
//
// Rejected orders are returned as Some with a nil error. Errors are returned for
// invalid requests (ErrCodeInvalidArgument) and for broker failures
// (ErrCodeOrderFailed wrapping the cause). Calls for the same symbol are
// serialized.
func (m *Manager) HandleSignal(ctx context.Context, req SignalRequest) (optional.Option[types.Order], error) {
	none := optional.None[types.Order]()

	req, err := normalizeSignalRequest(req)
	if err != nil {
		return none, err
	}

	unlock := m.locks.lock(req.Symbol)
	defer unlock()

	pos, err := m.broker.GetPosition(ctx, req.Symbol)
	if err != nil {
		return none, errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to read position for %s", req.Symbol)
	}

	m.storePosition(pos)

	quantity, ok := orderQuantity(req.Signal, pos.Size, req.Quantity)
	if !ok {
		m.log.Info("signal ignored, already positioned",
			zap.String("symbol", req.Symbol),
			zap.String("signal", string(req.Signal)),
			zap.String("position", pos.Size.String()),
		)

		return none, nil
	}

	orderReq := types.OrderRequest{
		Symbol:    req.Symbol,
		Side:      req.Signal.Side(),
		OrderType: req.OrderType,
		Quantity:  quantity,
		Price:     req.Price,
		Tag:       req.Tag,
	}

	order, sendErr := m.broker.SendOrder(ctx, orderReq)

	// refresh even on failure; the attempt may have reached the venue
	m.refreshPosition(ctx, req.Symbol)

	if sendErr != nil {
		if errors.IsValidationError(sendErr) {
			return none, sendErr
		}

		m.log.Error("order submission failed",
			zap.String("symbol", req.Symbol),
			zap.String("side", string(orderReq.Side)),
			zap.String("quantity", quantity.String()),
			zap.Error(sendErr),
		)

		return none, errors.Wrapf(errors.ErrCodeOrderFailed, sendErr, "failed to send %s order for %s", orderReq.Side, req.Symbol)
	}

	m.logOrder(order, pos.Size)

	return optional.Some(order), nil
}

// RefreshAllPositions rebuilds the cache from the broker. Symbols the broker no
// longer reports are dropped.
func (m *Manager) RefreshAllPositions(ctx context.Context) error {
	positions, err := m.broker.GetAllPositions(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBrokerRequestFailed, "failed to refresh positions", err)
	}

	fresh := make(map[string]types.Position, len(positions))

	for symbol, pos := range positions {
		if !pos.IsFlat() {
			fresh[symbol] = pos
		}
	}

	m.cacheMu.Lock()
	m.positions = fresh
	m.cacheMu.Unlock()

	m.log.Debug("positions refreshed", zap.Int("count", len(fresh)))

	return nil
}

// CloseAllPositions places one market order per non-zero cached position to
// bring it flat, tagged close_all. It works from the cache, so call
// RefreshAllPositions first when the cache may be stale. Orders that were
// placed are returned even when others failed; failures are joined.
func (m *Manager) CloseAllPositions(ctx context.Context) ([]types.Order, error) {
	cached := m.CachedPositions()

	symbols := make([]string, 0, len(cached))
	for symbol := range cached {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	orders := make([]types.Order, 0, len(symbols))

	var errs []error

	for _, symbol := range symbols {
		pos := cached[symbol]
		if pos.IsFlat() {
			continue
		}

		order, err := m.closePosition(ctx, pos)
		if err != nil {
			errs = append(errs, err)

			continue
		}

		orders = append(orders, order)
	}

	return orders, errors.Join(errs...)
}

// CachedPosition returns the cached position for symbol, or a flat position.
func (m *Manager) CachedPosition(symbol string) types.Position {
	m.cacheMu.RLock()
	defer m.cacheMu.RUnlock()

	if pos, ok := m.positions[symbol]; ok {
		return pos
	}

	return types.FlatPosition(symbol)
}

// CachedPositions returns a copy of the cache.
func (m *Manager) CachedPositions() map[string]types.Position {
	m.cacheMu.RLock()
	defer m.cacheMu.RUnlock()

	out := make(map[string]types.Position, len(m.positions))
	for symbol, pos := range m.positions {
		out[symbol] = pos
	}

	return out
}

func (m *Manager) closePosition(ctx context.Context, pos types.Position) (types.Order, error) {
	unlock := m.locks.lock(pos.Symbol)
	defer unlock()

	side := types.PurchaseTypeSell
	if pos.IsShort() {
		side = types.PurchaseTypeBuy
	}

	req := types.OrderRequest{
		Symbol:    pos.Symbol,
		Side:      side,
		OrderType: types.OrderTypeMarket,
		Quantity:  pos.Size.Abs(),
		Price:     optional.None[decimal.Decimal](),
		Tag:       types.OrderReasonCloseAll,
	}

	order, err := m.broker.SendOrder(ctx, req)

	m.refreshPosition(ctx, pos.Symbol)

	if err != nil {
		return types.Order{}, errors.Wrapf(errors.ErrCodeOrderFailed, err, "failed to close position for %s", pos.Symbol)
	}

	m.logOrder(order, pos.Size)

	return order, nil
}

// refreshPosition updates the cache for symbol from the broker. A failed query
// leaves the previous entry in place.
func (m *Manager) refreshPosition(ctx context.Context, symbol string) {
	pos, err := m.broker.GetPosition(ctx, symbol)
	if err != nil {
		m.log.Warn("failed to refresh position", zap.String("symbol", symbol), zap.Error(err))

		return
	}

	m.storePosition(pos)
}

func (m *Manager) storePosition(pos types.Position) {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()

	if pos.IsFlat() {
		delete(m.positions, pos.Symbol)

		return
	}

	m.positions[pos.Symbol] = pos
}

func (m *Manager) logOrder(order types.Order, before decimal.Decimal) {
	fields := []zap.Field{
		zap.String("order_id", order.OrderID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.String("quantity", order.Quantity.String()),
		zap.String("status", string(order.Status)),
		zap.String("tag", order.Tag),
		zap.String("position_before", before.String()),
	}

	if order.IsRejected() {
		m.log.Warn("order rejected", append(fields,
			zap.String("reason", order.Reason.Reason),
			zap.String("message", order.Reason.Message),
		)...)

		return
	}

	m.log.Info("order placed", fields...)
}

// orderQuantity sizes the order for signal given the current signed position.
// ok is false when the account is already positioned in the signal's direction.
func orderQuantity(signal types.SignalType, size, quantity decimal.Decimal) (decimal.Decimal, bool) {
	switch signal {
	case types.SignalTypeBuy:
		if size.IsPositive() {
			return decimal.Zero, false
		}
	case types.SignalTypeSell:
		if size.IsNegative() {
			return decimal.Zero, false
		}
	}

	return size.Abs().Add(quantity), true
}

func normalizeSignalRequest(req SignalRequest) (SignalRequest, error) {
	if req.Symbol == "" {
		return req, errors.New(errors.ErrCodeInvalidArgument, "symbol is required")
	}

	if !req.Signal.IsValid() {
		return req, errors.Newf(errors.ErrCodeInvalidArgument, "unknown signal %q", req.Signal)
	}

	if !req.Quantity.IsPositive() {
		return req, errors.Newf(errors.ErrCodeInvalidArgument, "quantity must be positive, got %s", req.Quantity.String())
	}

	if req.OrderType == "" {
		req.OrderType = types.OrderTypeMarket
	}

	if req.Tag == "" {
		req.Tag = types.OrderReasonStrategy
	}

	probe := types.OrderRequest{
		Symbol:    req.Symbol,
		Side:      req.Signal.Side(),
		OrderType: req.OrderType,
		Quantity:  req.Quantity,
		Price:     req.Price,
		Tag:       req.Tag,
	}

	if err := probe.Validate(); err != nil {
		return req, err
	}

	return req, nil
}
