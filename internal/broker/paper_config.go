package broker

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-router/pkg/errors"
)

const (
	DefaultPaperInitialCash = 1_000_000
	DefaultPaperFillPrice   = 100
)

// PaperConfig configures the in-memory paper broker.
type PaperConfig struct {
	InitialCash      float64 `json:"initialCash" yaml:"initial_cash" jsonschema:"title=Initial Cash,description=Starting cash balance (0 uses 1000000),minimum=0" validate:"gte=0"`
	DefaultFillPrice float64 `json:"defaultFillPrice" yaml:"default_fill_price" jsonschema:"title=Default Fill Price,description=Fill price used before any market data is seen (0 uses 100),minimum=0" validate:"gte=0"`
	AllowShort       bool    `json:"allowShort" yaml:"allow_short" jsonschema:"title=Allow Short,description=Let sells exceed the long position and open a short"`
}

// Validate validates the PaperConfig struct.
func (c *PaperConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid paper broker config", err)
	}

	return nil
}

func (c PaperConfig) withDefaults() PaperConfig {
	if c.InitialCash == 0 {
		c.InitialCash = DefaultPaperInitialCash
	}

	if c.DefaultFillPrice == 0 {
		c.DefaultFillPrice = DefaultPaperFillPrice
	}

	return c
}

func parsePaperConfig(jsonConfig string) (*PaperConfig, error) {
	var config PaperConfig
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse paper config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
