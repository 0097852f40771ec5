package event

import (
	"encoding/json"
	"math"

	"github.com/google/uuid"
)

// SignalType is the directional intent of a signal: Long opens/holds a
// long position, Short a short position, Exit flattens it. Values double
// as the sign multiplier applied to target quantity, per
// original_source/conf.py's LONG/SHORT/EXIT.sign.
type SignalType int8

const (
	Short SignalType = -1
	Exit  SignalType = 0
	Long  SignalType = 1
)

// Sign returns the signed multiplier used when computing target quantity.
func (s SignalType) Sign() float64 { return float64(s) }

func (s SignalType) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "EXIT"
	}
}

// SignalMode selects how SignalEvent.TargetQty interprets Strength,
// mirroring original_source/event/signal.py's SignalEventFixed vs
// SignalEventPct subclasses.
type SignalMode int8

const (
	// ModeFixed: Strength counts round lots of 100 shares.
	ModeFixed SignalMode = iota
	// ModePct: Strength is a fraction of equity to allocate.
	ModePct
)

// SignalEvent expresses a strategy's desired directional exposure in a
// symbol, generated by Position.CalculateSignals / Position.GenerateSignal
// and consumed by Position.GenerateOrders.
type SignalEvent struct {
	ID       uuid.UUID
	Symbol   string
	Type     SignalType
	Strength float64
	Mode     SignalMode
}

// NewSignal constructs a SignalEvent with a fresh id.
func NewSignal(symbol string, signalType SignalType, strength float64, mode SignalMode) SignalEvent {
	return SignalEvent{ID: uuid.New(), Symbol: symbol, Type: signalType, Strength: strength, Mode: mode}
}

// TargetQty computes the desired signed share count for this signal,
// mirroring original_source/event/signal.py's target_qty: Fixed counts
// round lots of 100 shares (strength/price*100), Pct allocates a fraction
// of equity (strength/price*equity). Exit always zeroes out because
// Strength is set to 0 by Position._generate_signal and Sign() is 0.
func (s SignalEvent) TargetQty(price, equity float64) int {
	if price <= 0 {
		return 0
	}
	var raw float64
	switch s.Mode {
	case ModePct:
		raw = s.Strength / price * equity
	default:
		raw = s.Strength / price * 100
	}
	return int(s.Type.Sign() * math.Floor(raw))
}

type signalDTO struct {
	ID       string  `json:"id"`
	Symbol   string  `json:"symbol"`
	Type     string  `json:"signal_type"`
	Strength float64 `json:"strength"`
}

// AsDict implements Codec for SignalEvent.
func (s SignalEvent) AsDict() (Envelope, error) {
	eventType := "signal_fixed"
	if s.Mode == ModePct {
		eventType = "signal_pct"
	}
	raw, err := json.Marshal(signalDTO{ID: s.ID.String(), Symbol: s.Symbol, Type: s.Type.String(), Strength: s.Strength})
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{EventType: eventType, Data: raw}, nil
}

func signalEventFromDict(raw json.RawMessage, mode SignalMode) (SignalEvent, error) {
	var d signalDTO
	if err := json.Unmarshal(raw, &d); err != nil {
		return SignalEvent{}, err
	}
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return SignalEvent{}, err
	}
	var signalType SignalType
	switch d.Type {
	case "LONG":
		signalType = Long
	case "SHORT":
		signalType = Short
	default:
		signalType = Exit
	}
	return SignalEvent{ID: id, Symbol: d.Symbol, Type: signalType, Strength: d.Strength, Mode: mode}, nil
}
