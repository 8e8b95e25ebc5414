package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the signed holding of one symbol. Size > 0 is long, Size < 0 is
// short. AvgPrice is meaningless when Size is zero.
type Position struct {
	Symbol   string          `yaml:"symbol" json:"symbol" csv:"symbol"`
	Size     decimal.Decimal `yaml:"size" json:"size" csv:"size"`
	AvgPrice decimal.Decimal `yaml:"avg_price" json:"avg_price" csv:"avg_price"`
}

// FlatPosition is the position reported for a symbol that was never traded.
func FlatPosition(symbol string) Position {
	return Position{
		Symbol:   symbol,
		Size:     decimal.Zero,
		AvgPrice: decimal.Zero,
	}
}

func (p Position) IsFlat() bool  { return p.Size.IsZero() }
func (p Position) IsLong() bool  { return p.Size.IsPositive() }
func (p Position) IsShort() bool { return p.Size.IsNegative() }

// ApplyFill returns the position after a fill of quantity at price.
//
// Opening from flat sets AvgPrice to the fill price. Adding in the same
// direction recomputes a size-weighted average. Reducing keeps AvgPrice.
// Crossing through zero starts the new side at the fill price.
func (p Position) ApplyFill(side PurchaseType, quantity, price decimal.Decimal) Position {
	delta := quantity
	if side == PurchaseTypeSell {
		delta = quantity.Neg()
	}

	newSize := p.Size.Add(delta)
	next := Position{Symbol: p.Symbol, Size: newSize, AvgPrice: p.AvgPrice}

	switch {
	case newSize.IsZero():
		next.AvgPrice = decimal.Zero
	case p.Size.IsZero():
		next.AvgPrice = price
	case p.Size.Sign() == delta.Sign():
		held := p.Size.Abs()
		next.AvgPrice = held.Mul(p.AvgPrice).Add(quantity.Mul(price)).Div(held.Add(quantity))
	case p.Size.Sign() != newSize.Sign():
		next.AvgPrice = price
	}

	return next
}

// Fill is one execution reported in the trade history.
type Fill struct {
	OrderID   string          `yaml:"order_id" json:"order_id" csv:"order_id"`
	TradeID   string          `yaml:"trade_id" json:"trade_id" csv:"trade_id"`
	Symbol    string          `yaml:"symbol" json:"symbol" csv:"symbol"`
	Side      PurchaseType    `yaml:"side" json:"side" csv:"side"`
	Quantity  decimal.Decimal `yaml:"quantity" json:"quantity" csv:"quantity"`
	Price     decimal.Decimal `yaml:"price" json:"price" csv:"price"`
	Fee       decimal.Decimal `yaml:"fee" json:"fee" csv:"fee"`
	Timestamp time.Time       `yaml:"timestamp" json:"timestamp" csv:"timestamp"`
}

// TradeFilter is used to filter fills when querying trade history.
type TradeFilter struct {
	// Symbol filters trades by symbol (empty string means no filter)
	Symbol string `json:"symbol" yaml:"symbol"`
	// StartTime filters trades executed after this time (zero time means no filter)
	StartTime time.Time `json:"start_time" yaml:"start_time"`
	// EndTime filters trades executed before this time (zero time means no filter)
	EndTime time.Time `json:"end_time" yaml:"end_time"`
	// Limit keeps the most recent N trades (0 means no limit)
	Limit int `json:"limit" yaml:"limit"`
}

// Match reports whether the fill passes the filter's symbol and time bounds.
func (f TradeFilter) Match(fill Fill) bool {
	if f.Symbol != "" && fill.Symbol != f.Symbol {
		return false
	}

	if !f.StartTime.IsZero() && fill.Timestamp.Before(f.StartTime) {
		return false
	}

	if !f.EndTime.IsZero() && fill.Timestamp.After(f.EndTime) {
		return false
	}

	return true
}

// Apply filters fills (assumed oldest first) and applies the limit.
func (f TradeFilter) Apply(fills []Fill) []Fill {
	out := make([]Fill, 0, len(fills))
	for _, fill := range fills {
		if f.Match(fill) {
			out = append(out, fill)
		}
	}

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}

	return out
}
