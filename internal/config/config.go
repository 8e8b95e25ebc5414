// Package config loads the YAML application config that wires a broker, a bar
// feed, a strategy and one runner per symbol together.
package config

import (
	"encoding/json"
	"os"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-router/internal/broker"
	"github.com/rxtech-lab/argo-router/internal/feed"
	"github.com/rxtech-lab/argo-router/internal/logger"
	"github.com/rxtech-lab/argo-router/internal/runner"
	"github.com/rxtech-lab/argo-router/internal/strategy"
	"github.com/rxtech-lab/argo-router/internal/types"
	"github.com/rxtech-lab/argo-router/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	EnvBinanceAPIKey    = "BINANCE_API_KEY"
	EnvBinanceSecretKey = "BINANCE_SECRET_KEY"
)

// Config is the root of the router YAML file.
type Config struct {
	LogLevel string          `yaml:"log_level" json:"log_level" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error" validate:"omitempty,oneof=debug info warn error"`
	Broker   BrokerConfig    `yaml:"broker" json:"broker" jsonschema:"title=Broker"`
	Feed     FeedConfig      `yaml:"feed" json:"feed" jsonschema:"title=Feed"`
	Strategy strategy.Config `yaml:"strategy" json:"strategy" jsonschema:"title=Strategy"`
	Runners  []RunnerConfig  `yaml:"runners" json:"runners" jsonschema:"title=Runners,description=One runner per traded symbol" validate:"required,min=1,dive"`
	// CloseOnExit flattens every cached position once all runners finish.
	CloseOnExit bool `yaml:"close_on_exit" json:"close_on_exit" jsonschema:"title=Close On Exit,description=Close all positions after the runners finish"`
}

// BrokerConfig selects a provider. Only the section matching Provider is read
// and validated.
type BrokerConfig struct {
	Provider broker.ProviderType   `yaml:"provider" json:"provider" jsonschema:"title=Provider,enum=paper,enum=binance-spot,enum=binance-futures,enum=gateway" validate:"required"`
	Paper    *broker.PaperConfig   `yaml:"paper,omitempty" json:"paper,omitempty" validate:"-"`
	Binance  *broker.BinanceConfig `yaml:"binance,omitempty" json:"binance,omitempty" validate:"-"`
	Gateway  *broker.GatewayConfig `yaml:"gateway,omitempty" json:"gateway,omitempty" validate:"-"`
}

// FeedConfig points at the parquet or csv file holding the bars.
type FeedConfig struct {
	Path  string                     `yaml:"path" json:"path" jsonschema:"title=Path,description=Parquet or csv file with time/symbol/OHLCV columns" validate:"required"`
	Start optional.Option[time.Time] `yaml:"start" json:"start" jsonschema:"title=Start,description=Optional inclusive lower bound on bar time"`
	End   optional.Option[time.Time] `yaml:"end" json:"end" jsonschema:"title=End,description=Optional inclusive upper bound on bar time"`
}

type rawFeedConfig struct {
	Path  string     `yaml:"path"`
	Start *time.Time `yaml:"start,omitempty"`
	End   *time.Time `yaml:"end,omitempty"`
}

// UnmarshalYAML maps missing start/end keys to None.
func (f *FeedConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw rawFeedConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}

	f.Path = raw.Path
	f.Start = optional.None[time.Time]()
	f.End = optional.None[time.Time]()

	if raw.Start != nil {
		f.Start = optional.Some(*raw.Start)
	}

	if raw.End != nil {
		f.End = optional.Some(*raw.End)
	}

	return nil
}

// MarshalYAML writes None bounds as absent keys.
func (f FeedConfig) MarshalYAML() (any, error) {
	raw := rawFeedConfig{Path: f.Path}

	if f.Start.IsSome() {
		start := f.Start.Unwrap()
		raw.Start = &start
	}

	if f.End.IsSome() {
		end := f.End.Unwrap()
		raw.End = &end
	}

	return raw, nil
}

// ForSymbol returns the feed query for one runner.
func (f FeedConfig) ForSymbol(symbol string) feed.DuckDBConfig {
	return feed.DuckDBConfig{
		Path:   f.Path,
		Symbol: symbol,
		Start:  f.Start,
		End:    f.End,
	}
}

// RunnerConfig is a runner plus an optional feed file override.
type RunnerConfig struct {
	runner.Config `yaml:",inline"`
	DataPath      string `yaml:"data_path,omitempty" json:"data_path,omitempty" jsonschema:"title=Data Path,description=Overrides feed.path for this symbol"`
}

// FeedFor returns the feed query for a runner, honouring its data path override.
func (c *Config) FeedFor(rc RunnerConfig) feed.DuckDBConfig {
	fc := c.Feed.ForSymbol(rc.Symbol)
	if rc.DataPath != "" {
		fc.Path = rc.DataPath
	}

	return fc
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
	}

	return Parse(data, os.LookupEnv)
}

// Parse decodes YAML, applies credentials from lookupEnv and validates the result.
func Parse(data []byte, lookupEnv func(string) (string, bool)) (*Config, error) {
	config := EmptyConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	config.applyEnv(lookupEnv)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyEnv(lookupEnv func(string) (string, bool)) {
	if lookupEnv == nil {
		return
	}

	if c.Broker.Provider != broker.ProviderBinanceSpot && c.Broker.Provider != broker.ProviderBinanceFutures {
		return
	}

	if c.Broker.Binance == nil {
		c.Broker.Binance = &broker.BinanceConfig{}
	}

	if value, ok := lookupEnv(EnvBinanceAPIKey); ok && c.Broker.Binance.ApiKey == "" {
		c.Broker.Binance.ApiKey = value
	}

	if value, ok := lookupEnv(EnvBinanceSecretKey); ok && c.Broker.Binance.SecretKey == "" {
		c.Broker.Binance.SecretKey = value
	}
}

// Validate checks the struct tags, the provider section and the runner list.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid router config", err)
	}

	if err := c.Broker.Validate(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Runners))
	for _, rc := range c.Runners {
		if seen[rc.Symbol] {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "symbol %s is configured by more than one runner", rc.Symbol)
		}

		seen[rc.Symbol] = true

		if !rc.Quantity.IsPositive() {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "runner %s: quantity must be positive", rc.Symbol)
		}
	}

	return nil
}

// Validate checks that the section for the selected provider exists and is valid.
func (b *BrokerConfig) Validate() error {
	if _, err := broker.GetProviderInfo(string(b.Provider)); err != nil {
		return err
	}

	switch b.Provider {
	case broker.ProviderPaper:
		if b.Paper == nil {
			return nil
		}

		return b.Paper.Validate()
	case broker.ProviderBinanceSpot, broker.ProviderBinanceFutures:
		if b.Binance == nil {
			return errors.New(errors.ErrCodeMissingCredentials, "binance api key and secret key are required")
		}

		return b.Binance.Validate()
	case broker.ProviderGateway:
		if b.Gateway == nil {
			return errors.New(errors.ErrCodeMissingParameter, "gateway section is required for the gateway provider")
		}

		return b.Gateway.Validate()
	}

	return nil
}

// Build constructs the configured broker.
func (b *BrokerConfig) Build(log *logger.Logger) (broker.Broker, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	var providerConfig any

	switch b.Provider {
	case broker.ProviderPaper:
		paper := broker.PaperConfig{}
		if b.Paper != nil {
			paper = *b.Paper
		}

		providerConfig = &paper
	case broker.ProviderBinanceSpot, broker.ProviderBinanceFutures:
		providerConfig = b.Binance
	case broker.ProviderGateway:
		providerConfig = b.Gateway
	}

	return broker.NewBroker(b.Provider, providerConfig, log)
}

// EmptyConfig returns a Config with default values.
func EmptyConfig() Config {
	return Config{
		LogLevel: "info",
		Broker: BrokerConfig{
			Provider: broker.ProviderPaper,
		},
		Feed: FeedConfig{
			Start: optional.None[time.Time](),
			End:   optional.None[time.Time](),
		},
		Strategy: strategy.Config{Name: strategy.NameMACD},
	}
}

// SampleConfig returns a runnable paper-trading config for two symbols.
func SampleConfig() Config {
	config := EmptyConfig()
	config.Broker.Paper = &broker.PaperConfig{
		InitialCash: broker.DefaultPaperInitialCash,
		AllowShort:  true,
	}
	config.Feed.Path = "data/bars.parquet"
	config.Runners = []RunnerConfig{
		{Config: runner.Config{Symbol: "BTCUSDT", Quantity: decimal.RequireFromString("0.01"), OrderType: types.OrderTypeMarket}},
		{Config: runner.Config{Symbol: "ETHUSDT", Quantity: decimal.RequireFromString("0.1"), OrderType: types.OrderTypeMarket}},
	}
	config.CloseOnExit = true

	return config
}

// GenerateSchema generates a JSON schema for the router config.
func (c *Config) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch t {
			case reflect.TypeOf(optional.Option[time.Time]{}):
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			case reflect.TypeOf(decimal.Decimal{}):
				return &jsonschema.Schema{
					OneOf: []*jsonschema.Schema{{Type: "number"}, {Type: "string"}},
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "argo-router-config"
	schema.Description = "Configuration schema for the argo router"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates the indented JSON schema string.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(c.GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
