package strategy

import (
	"context"

	talib "github.com/markcheno/go-talib"
	"github.com/rxtech-lab/argo-router/internal/signal"
	"github.com/rxtech-lab/argo-router/pkg/errors"
)

// MACDConfig holds the MACD periods. Zero values take the usual 12/26/9.
type MACDConfig struct {
	Fast   int `yaml:"fast" json:"fast" validate:"gte=0"`
	Slow   int `yaml:"slow" json:"slow" validate:"gte=0"`
	Signal int `yaml:"signal" json:"signal" validate:"gte=0"`
}

func (c MACDConfig) withDefaults() MACDConfig {
	if c.Fast == 0 {
		c.Fast = 12
	}

	if c.Slow == 0 {
		c.Slow = 26
	}

	if c.Signal == 0 {
		c.Signal = 9
	}

	return c
}

// MACDStrategy enters when the MACD line crosses above its signal line and
// exits when it crosses below.
type MACDStrategy struct {
	config MACDConfig
	source BarSource
}

// NewMACDStrategy validates config and binds the strategy to source.
func NewMACDStrategy(config MACDConfig, source BarSource) (*MACDStrategy, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	config = config.withDefaults()
	if config.Fast >= config.Slow {
		return nil, errors.Newf(errors.ErrCodeStrategyConfigError, "macd fast period %d must be below slow period %d", config.Fast, config.Slow)
	}

	return &MACDStrategy{config: config, source: source}, nil
}

func (m *MACDStrategy) Name() string {
	return NameMACD
}

// warmup is the index of the first bar with a defined histogram value.
func (m *MACDStrategy) warmup() int {
	return m.config.Slow - 1 + m.config.Signal - 1
}

// GetSignals implements Strategy. A crossing needs the previous histogram value
// too, so the first signal can appear one bar after warm-up.
func (m *MACDStrategy) GetSignals(ctx context.Context) (signal.Series, signal.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	bars := m.source.Bars()
	required := m.warmup() + 2

	if len(bars) < required {
		return nil, nil, errors.NewInsufficientDataErrorf(required, len(bars), symbolOf(bars),
			"macd(%d,%d,%d) needs %d bars, got %d", m.config.Fast, m.config.Slow, m.config.Signal, required, len(bars))
	}

	_, _, hist := talib.Macd(closes(bars), m.config.Fast, m.config.Slow, m.config.Signal)

	entries := signal.NewSeries()
	exits := signal.NewSeries()

	for i := m.warmup() + 1; i < len(bars); i++ {
		prev, cur := hist[i-1], hist[i]
		entries.Set(bars[i].Time, prev <= 0 && cur > 0)
		exits.Set(bars[i].Time, prev >= 0 && cur < 0)
	}

	return entries, exits, nil
}

var _ Strategy = (*MACDStrategy)(nil)
