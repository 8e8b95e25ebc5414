package broker

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-router/pkg/errors"
)

const (
	// BinanceDecimalPrecision is the fallback precision for quantities and prices.
	// 8 decimals allows for satoshi-level precision (0.00000001 BTC).
	BinanceDecimalPrecision  = 8
	DefaultBinanceQuoteAsset = "USDT"
)

// BinanceConfig contains configuration for the Binance spot and futures providers.
type BinanceConfig struct {
	ApiKey           string `json:"apiKey" yaml:"api_key" jsonschema:"title=API Key,description=Binance API key" validate:"required"`
	SecretKey        string `json:"secretKey" yaml:"secret_key" jsonschema:"title=Secret Key,description=Binance API secret key" validate:"required"`
	BaseURL          string `json:"baseUrl,omitempty" yaml:"base_url" jsonschema:"title=Base URL,description=Overrides the REST endpoint (takes precedence over testnet)" validate:"omitempty,url"`
	Testnet          bool   `json:"testnet" yaml:"testnet" jsonschema:"title=Testnet,description=Use the Binance sandbox endpoints"`
	QuoteAsset       string `json:"quoteAsset,omitempty" yaml:"quote_asset" jsonschema:"title=Quote Asset,description=Asset holding cash (default USDT)"`
	DecimalPrecision int32  `json:"decimalPrecision,omitempty" yaml:"decimal_precision" jsonschema:"title=Decimal Precision,description=Decimal places sent for quantity and price (default 8),minimum=0,maximum=16" validate:"gte=0,lte=16"`
}

// Validate validates the BinanceConfig struct. Missing credentials are reported
// with ErrCodeMissingCredentials.
func (c *BinanceConfig) Validate() error {
	if c.ApiKey == "" || c.SecretKey == "" {
		return errors.New(errors.ErrCodeMissingCredentials, "binance api key and secret key are required")
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid binance provider config", err)
	}

	return nil
}

func (c BinanceConfig) withDefaults() BinanceConfig {
	if c.QuoteAsset == "" {
		c.QuoteAsset = DefaultBinanceQuoteAsset
	}

	if c.DecimalPrecision == 0 {
		c.DecimalPrecision = BinanceDecimalPrecision
	}

	return c
}

// parseBinanceConfig parses a JSON configuration string into a BinanceConfig.
func parseBinanceConfig(jsonConfig string) (*BinanceConfig, error) {
	var config BinanceConfig
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse binance config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
