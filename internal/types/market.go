package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one OHLCV record from a feed.
type Bar struct {
	Time   time.Time `csv:"time" json:"time" yaml:"time"`
	Symbol string    `csv:"symbol" json:"symbol" yaml:"symbol"`
	Open   float64   `csv:"open" json:"open" yaml:"open"`
	High   float64   `csv:"high" json:"high" yaml:"high"`
	Low    float64   `csv:"low" json:"low" yaml:"low"`
	Close  float64   `csv:"close" json:"close" yaml:"close"`
	Volume float64   `csv:"volume" json:"volume" yaml:"volume"`
}

// ClosePrice returns the close as a decimal for order pricing.
func (b Bar) ClosePrice() decimal.Decimal {
	return decimal.NewFromFloat(b.Close)
}

// Quote is the top of book for a symbol.
type Quote struct {
	Symbol string          `json:"symbol" yaml:"symbol"`
	Bid    decimal.Decimal `json:"bid" yaml:"bid"`
	Ask    decimal.Decimal `json:"ask" yaml:"ask"`
}
