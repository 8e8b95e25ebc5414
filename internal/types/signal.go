package types

type SignalType string

const (
	// SignalTypeBuy asks the order manager to be long.
	SignalTypeBuy SignalType = "buy"
	// SignalTypeSell asks the order manager to be short or flat-to-short.
	SignalTypeSell SignalType = "sell"
)

// Side maps the signal to the order side it produces.
func (s SignalType) Side() PurchaseType {
	if s == SignalTypeSell {
		return PurchaseTypeSell
	}

	return PurchaseTypeBuy
}

// IsValid reports whether s is one of the known signal types.
func (s SignalType) IsValid() bool {
	return s == SignalTypeBuy || s == SignalTypeSell
}

// SignalPoint is the entry/exit pair read from the strategy series at one bar.
type SignalPoint struct {
	Entry bool `json:"entry" yaml:"entry"`
	Exit  bool `json:"exit" yaml:"exit"`
}
