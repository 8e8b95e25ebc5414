package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rxtech-lab/argo-router/internal/broker"
	"github.com/rxtech-lab/argo-router/internal/version"
	"github.com/urfave/cli/v3"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "router",
		Usage:   "Route strategy signals to a broker and keep positions reconciled",
		Version: version.GetVersion(),
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Replay the configured feed through the strategy and route its signals",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "config",
						Aliases:  []string{"c"},
						Usage:    "Path to the router YAML config",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "stats",
						Usage: "Write per-symbol trade statistics to this YAML file",
					},
					&cli.BoolFlag{
						Name:    "quiet",
						Aliases: []string{"q"},
						Usage:   "Hide the progress bar",
					},
				},
				Action: runAction,
			},
			{
				Name:   "providers",
				Usage:  "List the supported broker providers",
				Action: providersAction,
			},
			{
				Name:      "schema",
				Usage:     "Print the JSON schema of a provider config",
				ArgsUsage: "<provider>",
				Action:    schemaAction,
			},
			{
				Name:  "generate",
				Usage: "Write the router config schema and a sample config",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"d"},
						Usage:   "Output directory",
						Value:   "config",
					},
				},
				Action: generateAction,
			},
			downloadCommand(),
		},
	}
}

func providersAction(_ context.Context, cmd *cli.Command) error {
	out := cmd.Root().Writer

	for _, name := range broker.GetSupportedProviders() {
		info, err := broker.GetProviderInfo(name)
		if err != nil {
			return err
		}

		mode := "live"
		if info.IsPaperTrading {
			mode = "paper"
		}

		fmt.Fprintf(out, "%-16s %-6s %s\n", info.Name, mode, info.Description)
	}

	return nil
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	provider := cmd.Args().First()
	if provider == "" {
		return fmt.Errorf("provider is required, one of: %s", strings.Join(broker.GetSupportedProviders(), ", "))
	}

	schema, err := broker.GetProviderConfigSchema(provider)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.Root().Writer, schema)

	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
