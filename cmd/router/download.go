package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-router/internal/logger"
	"github.com/rxtech-lab/argo-router/internal/marketdata"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

const envPolygonAPIKey = "POLYGON_API_KEY"

func downloadCommand() *cli.Command {
	intervals := make([]string, 0, len(marketdata.SupportedIntervals()))
	for _, interval := range marketdata.SupportedIntervals() {
		intervals = append(intervals, string(interval))
	}

	return &cli.Command{
		Name:  "download",
		Usage: "Download historical bars into a parquet or csv file for the feed",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "symbol",
				Aliases:  []string{"s"},
				Usage:    "Symbol to download (e.g. BTCUSDT or AAPL)",
				Required: true,
			},
			&cli.TimestampFlag{
				Name:     "start",
				Usage:    "Start date in `YYYY-MM-DD` format",
				Required: true,
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02", time.RFC3339},
				},
			},
			&cli.TimestampFlag{
				Name:  "end",
				Usage: "End date in `YYYY-MM-DD` format. Defaults to now.",
				Value: time.Now().UTC(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02", time.RFC3339},
				},
			},
			&cli.StringFlag{
				Name:  "interval",
				Usage: "Bar interval, one of " + strings.Join(intervals, ", "),
				Value: string(marketdata.IntervalOneMinute),
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   fmt.Sprintf("Market data provider (%s or %s)", marketdata.ProviderBinance, marketdata.ProviderPolygon),
				Value:   string(marketdata.ProviderBinance),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output .parquet or .csv file. Defaults to data/<SYMBOL>_<INTERVAL>.parquet",
			},
			&cli.StringFlag{
				Name:  "api-key",
				Usage: "Polygon API key. Defaults to $" + envPolygonAPIKey,
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Hide the progress bar",
			},
		},
		Action: downloadAction,
	}
}

func downloadAction(ctx context.Context, cmd *cli.Command) error {
	interval, err := marketdata.ParseInterval(cmd.String("interval"))
	if err != nil {
		return err
	}

	req := marketdata.Request{
		Symbol:   strings.ToUpper(cmd.String("symbol")),
		Start:    cmd.Timestamp("start").UTC(),
		End:      cmd.Timestamp("end").UTC(),
		Interval: interval,
	}

	apiKey := cmd.String("api-key")
	if apiKey == "" {
		apiKey = os.Getenv(envPolygonAPIKey)
	}

	provider, err := marketdata.NewProvider(marketdata.ProviderType(cmd.String("provider")), apiKey)
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if output == "" {
		output = filepath.Join("data", fmt.Sprintf("%s_%s.parquet", req.Symbol, req.Interval))
	}

	log, err := logger.NewLoggerWithLevel("warn")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	defer func() { _ = log.Sync() }()

	result, err := fetchBars(ctx, marketdata.NewDownloader(provider, log), req, output, progressWriter(cmd))
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.Root().Writer, "downloaded %d %s bars to %s\n", result.Bars, req.Symbol, result.Path)

	return nil
}

func fetchBars(ctx context.Context, downloader *marketdata.Downloader, req marketdata.Request, output string, progressOut io.Writer) (marketdata.Result, error) {
	bar := progressbar.NewOptions64(req.Interval.BarsBetween(req.Start, req.End),
		progressbar.OptionSetWriter(progressOut),
		progressbar.OptionSetDescription("downloading "+req.Symbol),
		progressbar.OptionShowCount(),
	)
	defer func() { _ = bar.Finish() }()

	return downloader.Download(ctx, req, output, func(written int) {
		_ = bar.Set(written)
	})
}
