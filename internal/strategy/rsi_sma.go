package strategy

import (
	"context"

	talib "github.com/markcheno/go-talib"
	"github.com/rxtech-lab/argo-router/internal/signal"
	"github.com/rxtech-lab/argo-router/pkg/errors"
)

// RSISMAConfig holds the mean reversion thresholds. Zero values take RSI 14,
// SMA 20, oversold 30 and overbought 70.
type RSISMAConfig struct {
	RSIPeriod  int     `yaml:"rsi_period" json:"rsiPeriod" validate:"gte=0"`
	SMAPeriod  int     `yaml:"sma_period" json:"smaPeriod" validate:"gte=0"`
	Oversold   float64 `yaml:"oversold" json:"oversold" validate:"gte=0,lte=100"`
	Overbought float64 `yaml:"overbought" json:"overbought" validate:"gte=0,lte=100"`
}

func (c RSISMAConfig) withDefaults() RSISMAConfig {
	if c.RSIPeriod == 0 {
		c.RSIPeriod = 14
	}

	if c.SMAPeriod == 0 {
		c.SMAPeriod = 20
	}

	if c.Oversold == 0 {
		c.Oversold = 30
	}

	if c.Overbought == 0 {
		c.Overbought = 70
	}

	return c
}

// RSISMAStrategy buys oversold dips below the moving average and sells
// overbought rallies above it.
type RSISMAStrategy struct {
	config RSISMAConfig
	source BarSource
}

// NewRSISMAStrategy validates config and binds the strategy to source.
func NewRSISMAStrategy(config RSISMAConfig, source BarSource) (*RSISMAStrategy, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	config = config.withDefaults()
	if config.Oversold >= config.Overbought {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError,
			"oversold %.1f must be below overbought %.1f", config.Oversold, config.Overbought)
	}

	if config.SMAPeriod < 2 || config.RSIPeriod < 2 {
		return nil, errors.New(errors.ErrCodeStrategyConfigError, "rsi and sma periods must be at least 2")
	}

	return &RSISMAStrategy{config: config, source: source}, nil
}

func (r *RSISMAStrategy) Name() string {
	return NameRSISMA
}

func (r *RSISMAStrategy) warmup() int {
	return max(r.config.RSIPeriod, r.config.SMAPeriod-1)
}

// GetSignals implements Strategy.
func (r *RSISMAStrategy) GetSignals(ctx context.Context) (signal.Series, signal.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	bars := r.source.Bars()
	required := r.warmup() + 1

	if len(bars) < required {
		return nil, nil, errors.NewInsufficientDataErrorf(required, len(bars), symbolOf(bars),
			"rsi(%d)/sma(%d) needs %d bars, got %d", r.config.RSIPeriod, r.config.SMAPeriod, required, len(bars))
	}

	prices := closes(bars)
	rsi := talib.Rsi(prices, r.config.RSIPeriod)
	sma := talib.Sma(prices, r.config.SMAPeriod)

	entries := signal.NewSeries()
	exits := signal.NewSeries()

	for i := r.warmup(); i < len(bars); i++ {
		entries.Set(bars[i].Time, rsi[i] < r.config.Oversold && prices[i] < sma[i])
		exits.Set(bars[i].Time, rsi[i] > r.config.Overbought && prices[i] > sma[i])
	}

	return entries, exits, nil
}

var _ Strategy = (*RSISMAStrategy)(nil)
