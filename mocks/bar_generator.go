package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-router/internal/types"
)

// BarGenerator produces deterministic synthetic bars for tests.
type BarGenerator struct {
	rng *rand.Rand
}

// NewBarGenerator creates a generator. Use a fixed seed for reproducible results.
func NewBarGenerator(seed int64) *BarGenerator {
	return &BarGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how bars are generated.
type GeneratorConfig struct {
	Symbol    string
	StartTime time.Time
	// Interval is the duration between each bar
	Interval     time.Duration
	Count        int
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% per bar)
	Volatility float64
	// Trend is the total drift spread across the series
	Trend      float64
	VolumeBase float64
}

// DefaultConfig returns a one minute series of 1000 bars.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:       "TEST",
		StartTime:    time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC),
		Interval:     time.Minute,
		Count:        1000,
		InitialPrice: 100.0,
		Volatility:   0.004,
		Trend:        0.0,
		VolumeBase:   10000,
	}
}

// Generate creates bars following a geometric Brownian motion.
func (g *BarGenerator) Generate(config GeneratorConfig) []types.Bar {
	bars := make([]types.Bar, config.Count)
	price := config.InitialPrice
	ts := config.StartTime

	for i := 0; i < config.Count; i++ {
		open := price

		// Box-Muller
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		drift := config.Trend / float64(config.Count)

		closePrice := open * (1 + config.Volatility*z + drift)
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		high := math.Max(open, closePrice) + math.Abs(g.rng.Float64()*config.Volatility*open*0.5)
		low := math.Min(open, closePrice) - math.Abs(g.rng.Float64()*config.Volatility*open*0.5)
		if low <= 0 {
			low = math.Min(open, closePrice) * 0.99
		}

		volume := config.VolumeBase * (0.7 + g.rng.Float64()*0.6)

		bars[i] = types.Bar{
			Time:   ts,
			Symbol: config.Symbol,
			Open:   roundToDecimals(open, 4),
			High:   roundToDecimals(high, 4),
			Low:    roundToDecimals(low, 4),
			Close:  roundToDecimals(closePrice, 4),
			Volume: roundToDecimals(volume, 2),
		}

		price = closePrice
		ts = ts.Add(config.Interval)
	}

	return bars
}

// GenerateMultiSymbol generates one series per symbol with slightly varied
// starting prices.
func (g *BarGenerator) GenerateMultiSymbol(symbols []string, base GeneratorConfig) map[string][]types.Bar {
	series := make(map[string][]types.Bar, len(symbols))

	for _, symbol := range symbols {
		config := base
		config.Symbol = symbol
		config.InitialPrice = base.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		series[symbol] = g.Generate(config)
	}

	return series
}

func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
