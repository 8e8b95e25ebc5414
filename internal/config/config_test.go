package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-router/internal/broker"
	"github.com/rxtech-lab/argo-router/internal/logger"
	"github.com/rxtech-lab/argo-router/internal/strategy"
	"github.com/rxtech-lab/argo-router/internal/types"
	"github.com/rxtech-lab/argo-router/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func noEnv(string) (string, bool) {
	return "", false
}

func envOf(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

const completeYAML = `
log_level: debug
broker:
  provider: paper
  paper:
    initial_cash: 5000
    allow_short: true
feed:
  path: data/bars.parquet
  start: 2024-01-01T00:00:00Z
  end: 2024-06-30T00:00:00Z
strategy:
  name: rsi_sma
  rsi_sma:
    rsi_period: 7
    sma_period: 10
runners:
  - symbol: BTCUSDT
    quantity: 0.01
  - symbol: ETHUSDT
    quantity: "0.5"
    order_type: LIMIT
    tag: eth
    data_path: data/eth.csv
close_on_exit: true
`

func (suite *ConfigTestSuite) TestEmptyConfig() {
	config := EmptyConfig()

	suite.Equal("info", config.LogLevel)
	suite.Equal(broker.ProviderPaper, config.Broker.Provider)
	suite.True(config.Feed.Start.IsNone())
	suite.True(config.Feed.End.IsNone())
	suite.Equal(strategy.NameMACD, config.Strategy.Name)
	suite.False(config.CloseOnExit)
}

func (suite *ConfigTestSuite) TestParseComplete() {
	config, err := Parse([]byte(completeYAML), noEnv)
	suite.Require().NoError(err)

	suite.Equal("debug", config.LogLevel)
	suite.Equal(broker.ProviderPaper, config.Broker.Provider)
	suite.Require().NotNil(config.Broker.Paper)
	suite.Equal(5000.0, config.Broker.Paper.InitialCash)
	suite.True(config.Broker.Paper.AllowShort)

	suite.Equal("data/bars.parquet", config.Feed.Path)
	suite.True(config.Feed.Start.IsSome())
	suite.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), config.Feed.Start.Unwrap())
	suite.Equal(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), config.Feed.End.Unwrap())

	suite.Equal(strategy.NameRSISMA, config.Strategy.Name)
	suite.Equal(7, config.Strategy.RSISMA.RSIPeriod)
	suite.Equal(10, config.Strategy.RSISMA.SMAPeriod)

	suite.Require().Len(config.Runners, 2)
	suite.Equal("BTCUSDT", config.Runners[0].Symbol)
	suite.True(decimal.RequireFromString("0.01").Equal(config.Runners[0].Quantity))
	suite.Equal("ETHUSDT", config.Runners[1].Symbol)
	suite.True(decimal.RequireFromString("0.5").Equal(config.Runners[1].Quantity))
	suite.Equal(types.OrderTypeLimit, config.Runners[1].OrderType)
	suite.Equal("eth", config.Runners[1].Tag)
	suite.True(config.CloseOnExit)
}

func (suite *ConfigTestSuite) TestFeedFor() {
	config, err := Parse([]byte(completeYAML), noEnv)
	suite.Require().NoError(err)

	btc := config.FeedFor(config.Runners[0])
	suite.Equal("data/bars.parquet", btc.Path)
	suite.Equal("BTCUSDT", btc.Symbol)
	suite.True(btc.Start.IsSome())

	eth := config.FeedFor(config.Runners[1])
	suite.Equal("data/eth.csv", eth.Path)
	suite.Equal("ETHUSDT", eth.Symbol)
}

func (suite *ConfigTestSuite) TestParseWithoutDateBounds() {
	config, err := Parse([]byte(`
broker:
  provider: paper
feed:
  path: bars.csv
strategy:
  name: macd
runners:
  - symbol: AAPL
    quantity: 10
`), noEnv)
	suite.Require().NoError(err)

	suite.True(config.Feed.Start.IsNone())
	suite.True(config.Feed.End.IsNone())
	suite.Nil(config.Broker.Paper)
}

func (suite *ConfigTestSuite) TestParseErrors() {
	tests := []struct {
		name string
		yaml string
		code errors.ErrorCode
	}{
		{
			name: "malformed yaml",
			yaml: "broker: [",
			code: errors.ErrCodeInvalidConfiguration,
		},
		{
			name: "no runners",
			yaml: "feed:\n  path: a.csv\n",
			code: errors.ErrCodeInvalidConfiguration,
		},
		{
			name: "missing feed path",
			yaml: "runners:\n  - symbol: AAPL\n    quantity: 1\n",
			code: errors.ErrCodeInvalidConfiguration,
		},
		{
			name: "runner without symbol",
			yaml: "feed:\n  path: a.csv\nrunners:\n  - quantity: 1\n",
			code: errors.ErrCodeInvalidConfiguration,
		},
		{
			name: "zero quantity",
			yaml: "feed:\n  path: a.csv\nrunners:\n  - symbol: AAPL\n    quantity: 0\n",
			code: errors.ErrCodeInvalidConfiguration,
		},
		{
			name: "duplicate symbol",
			yaml: "feed:\n  path: a.csv\nrunners:\n  - symbol: AAPL\n    quantity: 1\n  - symbol: AAPL\n    quantity: 2\n",
			code: errors.ErrCodeInvalidConfiguration,
		},
		{
			name: "bad log level",
			yaml: "log_level: loud\nfeed:\n  path: a.csv\nrunners:\n  - symbol: AAPL\n    quantity: 1\n",
			code: errors.ErrCodeInvalidConfiguration,
		},
		{
			name: "unknown provider",
			yaml: "broker:\n  provider: ibkr\nfeed:\n  path: a.csv\nrunners:\n  - symbol: AAPL\n    quantity: 1\n",
			code: errors.ErrCodeUnsupportedProvider,
		},
		{
			name: "binance without credentials",
			yaml: "broker:\n  provider: binance-spot\nfeed:\n  path: a.csv\nrunners:\n  - symbol: BTCUSDT\n    quantity: 1\n",
			code: errors.ErrCodeMissingCredentials,
		},
		{
			name: "gateway without section",
			yaml: "broker:\n  provider: gateway\nfeed:\n  path: a.csv\nrunners:\n  - symbol: AAPL\n    quantity: 1\n",
			code: errors.ErrCodeMissingParameter,
		},
		{
			name: "gateway with bad url",
			yaml: "broker:\n  provider: gateway\n  gateway:\n    url: not a url\nfeed:\n  path: a.csv\nrunners:\n  - symbol: AAPL\n    quantity: 1\n",
			code: errors.ErrCodeInvalidConfiguration,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			config, err := Parse([]byte(tc.yaml), noEnv)
			suite.Error(err)
			suite.Nil(config)
			suite.Equal(tc.code, errors.GetCode(err))
		})
	}
}

func (suite *ConfigTestSuite) TestBinanceCredentialsFromEnv() {
	data := []byte(`
broker:
  provider: binance-futures
  binance:
    testnet: true
feed:
  path: a.csv
runners:
  - symbol: BTCUSDT
    quantity: 0.001
`)

	config, err := Parse(data, envOf(map[string]string{
		EnvBinanceAPIKey:    "env-key",
		EnvBinanceSecretKey: "env-secret",
	}))
	suite.Require().NoError(err)
	suite.Equal("env-key", config.Broker.Binance.ApiKey)
	suite.Equal("env-secret", config.Broker.Binance.SecretKey)
	suite.True(config.Broker.Binance.Testnet)
}

func (suite *ConfigTestSuite) TestFileCredentialsWinOverEnv() {
	data := []byte(`
broker:
  provider: binance-spot
  binance:
    api_key: file-key
    secret_key: file-secret
feed:
  path: a.csv
runners:
  - symbol: BTCUSDT
    quantity: 0.001
`)

	config, err := Parse(data, envOf(map[string]string{EnvBinanceAPIKey: "env-key"}))
	suite.Require().NoError(err)
	suite.Equal("file-key", config.Broker.Binance.ApiKey)
	suite.Equal("file-secret", config.Broker.Binance.SecretKey)
}

func (suite *ConfigTestSuite) TestEnvIgnoredForOtherProviders() {
	config, err := Parse([]byte(completeYAML), envOf(map[string]string{EnvBinanceAPIKey: "env-key"}))
	suite.Require().NoError(err)
	suite.Nil(config.Broker.Binance)
}

func (suite *ConfigTestSuite) TestLoad() {
	path := filepath.Join(suite.T().TempDir(), "router.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte(completeYAML), 0o600))

	config, err := Load(path)
	suite.Require().NoError(err)
	suite.Len(config.Runners, 2)

	_, err = Load(filepath.Join(suite.T().TempDir(), "missing.yaml"))
	suite.Error(err)
	suite.Equal(errors.ErrCodeInvalidConfiguration, errors.GetCode(err))
}

func (suite *ConfigTestSuite) TestBuildPaperBroker() {
	config := SampleConfig()

	b, err := config.Broker.Build(logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.IsType(&broker.PaperBroker{}, b)

	// no paper section falls back to defaults
	config.Broker.Paper = nil
	b, err = config.Broker.Build(logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.IsType(&broker.PaperBroker{}, b)
}

func (suite *ConfigTestSuite) TestBuildValidatesFirst() {
	config := BrokerConfig{Provider: broker.ProviderGateway}

	b, err := config.Build(logger.NewNopLogger())
	suite.Error(err)
	suite.Nil(b)
	suite.Equal(errors.ErrCodeMissingParameter, errors.GetCode(err))
}

func (suite *ConfigTestSuite) TestSampleConfigRoundTrip() {
	sample := SampleConfig()
	suite.Require().NoError(sample.Validate())

	data, err := yaml.Marshal(sample)
	suite.Require().NoError(err)
	suite.NotContains(string(data), "start:")

	parsed, err := Parse(data, noEnv)
	suite.Require().NoError(err)
	suite.Equal(sample.Feed.Path, parsed.Feed.Path)
	suite.True(parsed.Feed.Start.IsNone())
	suite.Require().Len(parsed.Runners, 2)
	suite.True(sample.Runners[0].Quantity.Equal(parsed.Runners[0].Quantity))
	suite.Equal(sample.Runners[1].Symbol, parsed.Runners[1].Symbol)
	suite.True(parsed.CloseOnExit)
}

func (suite *ConfigTestSuite) TestGenerateSchemaJSON() {
	config := &Config{}
	schemaJSON, err := config.GenerateSchemaJSON()
	suite.Require().NoError(err)

	var result map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schemaJSON), &result))
	suite.Equal("argo-router-config", result["title"])

	properties, ok := result["properties"].(map[string]any)
	suite.Require().True(ok)
	suite.Contains(properties, "broker")
	suite.Contains(properties, "runners")
	suite.Contains(properties, "close_on_exit")

	feedSchema, ok := properties["feed"].(map[string]any)
	suite.Require().True(ok)
	feedProperties, ok := feedSchema["properties"].(map[string]any)
	suite.Require().True(ok)
	start, ok := feedProperties["start"].(map[string]any)
	suite.Require().True(ok)
	suite.Equal("date-time", start["format"])
}
