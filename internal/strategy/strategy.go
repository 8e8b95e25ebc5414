// Package strategy computes entry and exit signal series from bar history.
package strategy

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-router/internal/signal"
	"github.com/rxtech-lab/argo-router/internal/types"
	"github.com/rxtech-lab/argo-router/pkg/errors"
)

// Strategy produces two boolean series keyed by bar time. Bars inside the
// indicator warm-up window are absent from both series.
type Strategy interface {
	Name() string
	GetSignals(ctx context.Context) (entries signal.Series, exits signal.Series, err error)
}

// BarSource supplies the full bar history, usually a loaded feed.
type BarSource interface {
	Bars() []types.Bar
}

const (
	NameMACD   = "macd"
	NameRSISMA = "rsi_sma"
)

// Config selects a strategy and its parameters.
type Config struct {
	Name   string       `yaml:"name" json:"name" validate:"required"`
	MACD   MACDConfig   `yaml:"macd" json:"macd"`
	RSISMA RSISMAConfig `yaml:"rsi_sma" json:"rsiSma"`
}

// New builds the strategy named in config over source.
func New(config Config, source BarSource) (Strategy, error) {
	switch config.Name {
	case NameMACD:
		return NewMACDStrategy(config.MACD, source)
	case NameRSISMA:
		return NewRSISMAStrategy(config.RSISMA, source)
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "unsupported strategy %q", config.Name)
	}
}

func validateConfig(config any) error {
	if err := validator.New().Struct(config); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid strategy config", err)
	}

	return nil
}

func closes(bars []types.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, bar := range bars {
		out[i] = bar.Close
	}

	return out
}

func symbolOf(bars []types.Bar) string {
	if len(bars) == 0 {
		return ""
	}

	return bars[0].Symbol
}
