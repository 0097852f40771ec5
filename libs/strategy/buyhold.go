package strategy

import "backtestsim/libs/event"

// BuyAndHold enters every configured symbol in one fixed direction on the
// first bar it can
// and never exits voluntarily — it only exits via a hard stop. Used
// primarily as a smoke test for the Strategy machinery and as a baseline
// to compare other strategies against.
type BuyAndHold struct {
	NoopCallbacks
	direction   event.SignalType
	hardStopped map[string]bool
}

// NewBuyAndHold creates a BuyAndHold callback set for symbols that holds
// in direction (event.Long to hold long, event.Short to hold short).
func NewBuyAndHold(symbols []string, direction event.SignalType) *BuyAndHold {
	hardStopped := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		hardStopped[s] = false
	}
	return &BuyAndHold{direction: direction, hardStopped: hardStopped}
}

// CalculateSignals opens a position in every symbol that isn't already
// open and hasn't been hard-stopped out.
func (b *BuyAndHold) CalculateSignals(s *Strategy) {
	for symbol := range b.hardStopped {
		if b.hardStopped[symbol] {
			continue
		}
		if s.HasPosition(symbol) {
			continue
		}
		s.GenerateSignal(symbol, b.direction, nil)
	}
}

// OnHardStop latches symbol closed so CalculateSignals never reopens it.
func (b *BuyAndHold) OnHardStop(symbol string) {
	b.hardStopped[symbol] = true
}
