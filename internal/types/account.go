package types

import "github.com/shopspring/decimal"

// AccountInfo is a snapshot of the account. It is recomputed on every query.
type AccountInfo struct {
	// Cash is the free cash balance (quote asset for crypto venues)
	Cash decimal.Decimal `json:"cash" yaml:"cash"`
	// Positions holds only non-zero positions keyed by symbol
	Positions map[string]Position `json:"positions" yaml:"positions"`
	// TotalEquity is cash plus the marked value of all positions
	TotalEquity decimal.Decimal `json:"total_equity" yaml:"total_equity"`
}
