// Package runner drives a feed bar by bar, reads the strategy signals at each
// bar and forwards them to the order manager.
package runner

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-router/internal/feed"
	"github.com/rxtech-lab/argo-router/internal/logger"
	"github.com/rxtech-lab/argo-router/internal/order"
	"github.com/rxtech-lab/argo-router/internal/signal"
	"github.com/rxtech-lab/argo-router/internal/strategy"
	"github.com/rxtech-lab/argo-router/internal/types"
	"github.com/rxtech-lab/argo-router/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SignalHandler receives the signals the runner extracts. *order.Manager
// implements it.
type SignalHandler interface {
	HandleSignal(ctx context.Context, req order.SignalRequest) (optional.Option[types.Order], error)
}

// OnBarCallback is called for every bar before its signals are read.
type OnBarCallback func(bar types.Bar) error

// OnOrderCallback is called for every order the handler placed, rejected ones included.
type OnOrderCallback func(order types.Order) error

// OnErrorCallback is called when handling a bar fails. The run continues.
type OnErrorCallback func(bar types.Bar, err error)

// OnRunEndCallback is called once when Run returns.
type OnRunEndCallback func(report Report, err error)

// Callbacks holds the optional hooks. A nil field is skipped.
type Callbacks struct {
	OnBar    *OnBarCallback
	OnOrder  *OnOrderCallback
	OnError  *OnErrorCallback
	OnRunEnd *OnRunEndCallback
}

// Config describes what a runner trades.
type Config struct {
	Symbol   string          `yaml:"symbol" json:"symbol" validate:"required"`
	Quantity decimal.Decimal `yaml:"quantity" json:"quantity"`
	// OrderType defaults to MARKET. LIMIT orders are priced at the bar close.
	OrderType types.OrderType `yaml:"order_type" json:"orderType" validate:"omitempty,oneof=MARKET LIMIT"`
	Tag       string          `yaml:"tag" json:"tag"`
}

// Report summarises one run.
type Report struct {
	Symbol string
	Bars   int
	// EntrySignals and ExitSignals count the signals acted on. A bar where
	// both fired counts as an entry and as a tie.
	EntrySignals  int
	ExitSignals   int
	TiedSignals   int
	Orders        []types.Order
	Rejected      int
	HandlerErrors int
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Runner consumes one feed for one symbol.
type Runner struct {
	config    Config
	feed      feed.Feed
	strategy  strategy.Strategy
	handler   SignalHandler
	callbacks Callbacks
	log       *logger.Logger
}

// NewRunner validates config and wires the collaborators.
func NewRunner(config Config, f feed.Feed, s strategy.Strategy, handler SignalHandler, callbacks Callbacks, log *logger.Logger) (*Runner, error) {
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRunnerConfigError, "invalid runner config", err)
	}

	if !config.Quantity.IsPositive() {
		return nil, errors.Newf(errors.ErrCodeRunnerConfigError, "runner quantity must be positive, got %s", config.Quantity.String())
	}

	if config.OrderType == "" {
		config.OrderType = types.OrderTypeMarket
	}

	if f == nil || s == nil || handler == nil {
		return nil, errors.New(errors.ErrCodeRunnerConfigError, "runner needs a feed, a strategy and a signal handler")
	}

	return &Runner{
		config:    config,
		feed:      f,
		strategy:  s,
		handler:   handler,
		callbacks: callbacks,
		log:       log.Named("runner").With(zap.String("symbol", config.Symbol)),
	}, nil
}

// Symbol returns the traded symbol.
func (r *Runner) Symbol() string {
	return r.config.Symbol
}

// Run loads the feed, computes the signals and walks every bar once.
//
// When entry and exit fire on the same bar only the buy is sent. Handler
// failures are logged, reported through OnError and counted; the loop moves
// on to the next bar. Cancelling ctx stops the loop between bars with
// ErrCodeRunnerInterrupted.
func (r *Runner) Run(ctx context.Context) (report Report, err error) {
	report = Report{Symbol: r.config.Symbol, StartedAt: time.Now(), Orders: make([]types.Order, 0)}

	defer func() {
		report.FinishedAt = time.Now()

		if r.callbacks.OnRunEnd != nil {
			(*r.callbacks.OnRunEnd)(report, err)
		}
	}()

	if err = r.feed.Load(ctx); err != nil {
		return report, err
	}

	entries, exits, err := r.strategy.GetSignals(ctx)
	if err != nil {
		return report, err
	}

	r.log.Info("run started",
		zap.String("strategy", r.strategy.Name()),
		zap.Int("bars", r.feed.Len()),
		zap.Int("entries", entries.Count()),
		zap.Int("exits", exits.Count()),
	)

	for r.feed.HasNext() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.log.Warn("run interrupted", zap.Int("bars", report.Bars), zap.Error(ctxErr))

			return report, errors.Wrap(errors.ErrCodeRunnerInterrupted, "run interrupted", ctxErr)
		}

		bar, nextErr := r.feed.Next()
		if nextErr != nil {
			if errors.Is(nextErr, feed.ErrEndOfFeed) {
				break
			}

			return report, nextErr
		}

		report.Bars++
		r.processBar(ctx, bar, entries, exits, &report)
	}

	r.log.Info("run finished",
		zap.Int("bars", report.Bars),
		zap.Int("orders", len(report.Orders)),
		zap.Int("rejected", report.Rejected),
		zap.Int("handler_errors", report.HandlerErrors),
	)

	return report, nil
}

func (r *Runner) processBar(ctx context.Context, bar types.Bar, entries, exits signal.Series, report *Report) {
	if r.callbacks.OnBar != nil {
		if err := (*r.callbacks.OnBar)(bar); err != nil {
			r.reportError(bar, errors.Wrap(errors.ErrCodeCallbackFailed, "bar callback failed", err))
		}
	}

	point := signal.ExtractPoint(bar.Time, entries, exits)

	switch {
	case point.Entry:
		report.EntrySignals++
		if point.Exit {
			report.TiedSignals++
		}

		r.handle(ctx, bar, types.SignalTypeBuy, report)
	case point.Exit:
		report.ExitSignals++
		r.handle(ctx, bar, types.SignalTypeSell, report)
	}
}

func (r *Runner) handle(ctx context.Context, bar types.Bar, signalType types.SignalType, report *Report) {
	req := order.SignalRequest{
		Symbol:    r.config.Symbol,
		Signal:    signalType,
		Quantity:  r.config.Quantity,
		OrderType: r.config.OrderType,
		Price:     optional.None[decimal.Decimal](),
		Tag:       r.config.Tag,
	}

	if r.config.OrderType == types.OrderTypeLimit {
		req.Price = optional.Some(bar.ClosePrice())
	}

	result, err := r.handler.HandleSignal(ctx, req)
	if err != nil {
		report.HandlerErrors++
		r.reportError(bar, err)

		return
	}

	if result.IsNone() {
		return
	}

	placed := result.Unwrap()
	report.Orders = append(report.Orders, placed)

	if placed.IsRejected() {
		report.Rejected++
	}

	if r.callbacks.OnOrder != nil {
		if err := (*r.callbacks.OnOrder)(placed); err != nil {
			r.reportError(bar, errors.Wrap(errors.ErrCodeCallbackFailed, "order callback failed", err))
		}
	}
}

func (r *Runner) reportError(bar types.Bar, err error) {
	r.log.Error("bar handling failed", zap.Time("bar_time", bar.Time), zap.Error(err))

	if r.callbacks.OnError != nil {
		(*r.callbacks.OnError)(bar, err)
	}
}
