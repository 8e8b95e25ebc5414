package types

import (
	"fmt"
	"os"
	"sort"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// TradeStats summarises the fills of one symbol over a routing session.
type TradeStats struct {
	Symbol string `yaml:"symbol" json:"symbol"`
	// Count of fills.
	NumberOfFills int `yaml:"number_of_fills" json:"number_of_fills"`
	// Fills that reduced or closed a position.
	NumberOfClosingFills int             `yaml:"number_of_closing_fills" json:"number_of_closing_fills"`
	BuyQuantity          decimal.Decimal `yaml:"buy_quantity" json:"buy_quantity"`
	SellQuantity         decimal.Decimal `yaml:"sell_quantity" json:"sell_quantity"`
	TotalFees            decimal.Decimal `yaml:"total_fees" json:"total_fees"`
	// Realized PnL against the average entry price, before fees.
	RealizedPnL decimal.Decimal `yaml:"realized_pnl" json:"realized_pnl"`
	// NetPnL is RealizedPnL minus TotalFees.
	NetPnL        decimal.Decimal `yaml:"net_pnl" json:"net_pnl"`
	FinalPosition Position        `yaml:"final_position" json:"final_position"`
}

// ComputeTradeStats replays fills in time order. Fills for other symbols are ignored.
func ComputeTradeStats(symbol string, fills []Fill) TradeStats {
	ordered := make([]Fill, 0, len(fills))
	for _, fill := range fills {
		if fill.Symbol == symbol {
			ordered = append(ordered, fill)
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	stats := TradeStats{
		Symbol:        symbol,
		BuyQuantity:   decimal.Zero,
		SellQuantity:  decimal.Zero,
		TotalFees:     decimal.Zero,
		RealizedPnL:   decimal.Zero,
		NetPnL:        decimal.Zero,
		FinalPosition: FlatPosition(symbol),
	}

	pos := FlatPosition(symbol)

	for _, fill := range ordered {
		stats.NumberOfFills++
		stats.TotalFees = stats.TotalFees.Add(fill.Fee)

		if fill.Side == PurchaseTypeBuy {
			stats.BuyQuantity = stats.BuyQuantity.Add(fill.Quantity)
		} else {
			stats.SellQuantity = stats.SellQuantity.Add(fill.Quantity)
		}

		reducing := (pos.IsLong() && fill.Side == PurchaseTypeSell) || (pos.IsShort() && fill.Side == PurchaseTypeBuy)
		if reducing {
			closed := decimal.Min(pos.Size.Abs(), fill.Quantity)
			pnl := closed.Mul(fill.Price.Sub(pos.AvgPrice))

			if pos.IsShort() {
				pnl = pnl.Neg()
			}

			stats.RealizedPnL = stats.RealizedPnL.Add(pnl)
			stats.NumberOfClosingFills++
		}

		pos = pos.ApplyFill(fill.Side, fill.Quantity, fill.Price)
	}

	stats.NetPnL = stats.RealizedPnL.Sub(stats.TotalFees)
	stats.FinalPosition = pos

	return stats
}

// WriteTradeStats writes stats to path as YAML.
func WriteTradeStats(path string, stats []TradeStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal trade stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write trade stats to file: %w", err)
	}

	return nil
}
