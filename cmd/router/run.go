package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rxtech-lab/argo-router/internal/broker"
	"github.com/rxtech-lab/argo-router/internal/config"
	"github.com/rxtech-lab/argo-router/internal/feed"
	"github.com/rxtech-lab/argo-router/internal/logger"
	"github.com/rxtech-lab/argo-router/internal/order"
	"github.com/rxtech-lab/argo-router/internal/runner"
	"github.com/rxtech-lab/argo-router/internal/strategy"
	"github.com/rxtech-lab/argo-router/internal/types"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const closeAllTimeout = 30 * time.Second

func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	log, err := logger.NewLoggerWithLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	defer func() { _ = log.Sync() }()

	b, err := cfg.Broker.Build(log)
	if err != nil {
		return err
	}

	reports, err := route(ctx, cfg, b, log, progressWriter(cmd))
	printReports(cmd.Root().Writer, reports)

	if statsPath := cmd.String("stats"); statsPath != "" {
		if statsErr := writeStats(context.WithoutCancel(ctx), b, cfg, statsPath); statsErr != nil && err == nil {
			err = statsErr
		}
	}

	return err
}

// progressWriter is where progress bars render: stderr unless --quiet is set.
func progressWriter(cmd *cli.Command) io.Writer {
	if cmd.Bool("quiet") || cmd.Root().ErrWriter == nil {
		return io.Discard
	}

	return cmd.Root().ErrWriter
}

func writeStats(ctx context.Context, b broker.Broker, cfg *config.Config, path string) error {
	stats := make([]types.TradeStats, 0, len(cfg.Runners))

	for _, rc := range cfg.Runners {
		fills, err := b.GetTradeHistory(ctx, types.TradeFilter{Symbol: rc.Symbol})
		if err != nil {
			return err
		}

		stats = append(stats, types.ComputeTradeStats(rc.Symbol, fills))
	}

	return types.WriteTradeStats(path, stats)
}

// route connects the broker, runs one runner per configured symbol and
// optionally flattens the book afterwards.
func route(ctx context.Context, cfg *config.Config, b broker.Broker, log *logger.Logger, progressOut io.Writer) ([]runner.Report, error) {
	if !b.IsConnected(ctx) {
		if err := b.Reconnect(ctx); err != nil {
			return nil, err
		}
	}

	manager := order.NewManager(b, log)
	if err := manager.RefreshAllPositions(ctx); err != nil {
		return nil, err
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(progressOut),
		progressbar.OptionSetDescription("routing bars"),
		progressbar.OptionShowCount(),
	)
	defer func() { _ = bar.Finish() }()

	runners := make([]*runner.Runner, 0, len(cfg.Runners))
	feeds := make([]*feed.DuckDBFeed, 0, len(cfg.Runners))

	defer func() {
		for _, f := range feeds {
			_ = f.Close()
		}
	}()

	for _, rc := range cfg.Runners {
		f, err := feed.NewDuckDBFeed(cfg.FeedFor(rc), log)
		if err != nil {
			return nil, err
		}

		feeds = append(feeds, f)

		s, err := strategy.New(cfg.Strategy, f)
		if err != nil {
			return nil, err
		}

		r, err := runner.NewRunner(rc.Config, f, s, manager, newCallbacks(b, bar, log), log)
		if err != nil {
			return nil, err
		}

		runners = append(runners, r)
	}

	reports, runErr := runner.RunAll(ctx, runners)

	if cfg.CloseOnExit {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeAllTimeout)
		defer cancel()

		closed, err := manager.CloseAllPositions(closeCtx)
		for _, o := range closed {
			log.Info("position closed",
				zap.String("symbol", o.Symbol),
				zap.String("side", string(o.Side)),
				zap.String("quantity", o.Quantity.String()),
				zap.String("status", string(o.Status)),
			)
		}

		if err != nil {
			log.Error("failed to close all positions", zap.Error(err))

			if runErr == nil {
				runErr = err
			}
		}
	}

	return reports, runErr
}

func newCallbacks(b broker.Broker, bar *progressbar.ProgressBar, log *logger.Logger) runner.Callbacks {
	receiver, forwardsBars := b.(broker.MarketDataReceiver)

	onBar := runner.OnBarCallback(func(data types.Bar) error {
		if forwardsBars {
			receiver.UpdateMarketData(data)
		}

		return bar.Add(1)
	})

	onOrder := runner.OnOrderCallback(func(o types.Order) error {
		log.Debug("order routed",
			zap.String("order_id", o.OrderID),
			zap.String("symbol", o.Symbol),
			zap.String("status", string(o.Status)),
		)

		return nil
	})

	onError := runner.OnErrorCallback(func(data types.Bar, err error) {
		log.Warn("bar failed",
			zap.String("symbol", data.Symbol),
			zap.Time("time", data.Time),
			zap.Error(err),
		)
	})

	return runner.Callbacks{
		OnBar:   &onBar,
		OnOrder: &onOrder,
		OnError: &onError,
	}
}

func printReports(out io.Writer, reports []runner.Report) {
	if out == nil {
		return
	}

	for _, report := range reports {
		if report.Symbol == "" {
			continue
		}

		fmt.Fprintf(out, "%s: bars=%d entries=%d exits=%d ties=%d orders=%d rejected=%d errors=%d\n",
			report.Symbol,
			report.Bars,
			report.EntrySignals,
			report.ExitSignals,
			report.TiedSignals,
			len(report.Orders),
			report.Rejected,
			report.HandlerErrors,
		)
	}
}
