package event

import (
	"encoding/json"
	"math"

	"github.com/google/uuid"
)

// Exchange is the venue an order was routed to. SMART is the only routing
// the simulator models (original_source/conf.py's SMART/EXCHANGE_DICT).
type Exchange string

const SMART Exchange = "SMART"

// FillEvent reports a (possibly partial) execution against an order.
type FillEvent struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	Symbol     string
	Exchange   Exchange
	Quantity   int
	FillType   Direction
	FillCost   float64
	Commission float64
}

// IBCommission computes Interactive Brokers' "US API Directed Orders"
// per-share commission: $0.005/share, capped at 0.5% of notional,
// mirroring original_source/event/fill.py's FillEventIB.calculate_commission.
func IBCommission(quantity int, fillCost float64) float64 {
	full := 0.005 * float64(quantity)
	capped := 0.005 * fillCost * float64(quantity)
	return math.Min(full, capped)
}

// NewIBFill constructs a FillEvent whose commission is computed via
// IBCommission.
func NewIBFill(orderID uuid.UUID, symbol string, exchange Exchange, quantity int, fillType Direction, fillCost float64) FillEvent {
	return FillEvent{
		ID: uuid.New(), OrderID: orderID, Symbol: symbol, Exchange: exchange,
		Quantity: quantity, FillType: fillType, FillCost: fillCost,
		Commission: IBCommission(quantity, fillCost),
	}
}

type fillDTO struct {
	ID         string  `json:"id"`
	OrderID    string  `json:"order_id"`
	Symbol     string  `json:"symbol"`
	Exchange   string  `json:"exchange"`
	Quantity   int     `json:"quantity"`
	FillType   int8    `json:"fill_type"`
	FillCost   float64 `json:"fill_cost"`
	Commission float64 `json:"commission"`
}

// AsDict implements Codec for FillEvent.
func (f FillEvent) AsDict() (Envelope, error) {
	raw, err := json.Marshal(fillDTO{
		ID: f.ID.String(), OrderID: f.OrderID.String(), Symbol: f.Symbol,
		Exchange: string(f.Exchange), Quantity: f.Quantity, FillType: int8(f.FillType),
		FillCost: f.FillCost, Commission: f.Commission,
	})
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{EventType: "fill_ib", Data: raw}, nil
}

func fillEventFromDict(raw json.RawMessage) (FillEvent, error) {
	var d fillDTO
	if err := json.Unmarshal(raw, &d); err != nil {
		return FillEvent{}, err
	}
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return FillEvent{}, err
	}
	orderID, err := uuid.Parse(d.OrderID)
	if err != nil {
		return FillEvent{}, err
	}
	return FillEvent{
		ID: id, OrderID: orderID, Symbol: d.Symbol, Exchange: Exchange(d.Exchange),
		Quantity: d.Quantity, FillType: Direction(d.FillType), FillCost: d.FillCost,
		Commission: d.Commission,
	}, nil
}
