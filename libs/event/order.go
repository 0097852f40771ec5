package event

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Direction is the signed side of an order or fill: Buy adds shares,
// Sell removes them. Values double as the cash-flow sign multiplier.
type Direction int8

const (
	Sell Direction = -1
	Buy  Direction = 1
)

func (d Direction) String() string {
	if d == Buy {
		return "BUY"
	}
	return "SELL"
}

// OrderType is the routing style of an order. The simulator only ever
// fills market orders; limit orders are accepted for wire compatibility
// with original_source/conf.py's MKT/LMT but are not given special
// handling since spec.md's execution model prices every fill off the
// current bar regardless of order type.
type OrderType string

const (
	MKT OrderType = "MKT"
	LMT OrderType = "LMT"
)

// OrderEvent requests that a quantity of a symbol be bought or sold.
//
// Design note: the original Python sorts orders by a reversed comparison
// of a Mongo ObjectId (newer orders compare "less than" older ones) so a
// heap of pending orders drains newest-first. That trick only works
// because ObjectIds embed a wall-clock timestamp. Here Seq is an explicit
// bar-monotone sequence number stamped by Strategy when the order is
// confirmed; nothing in this engine needs to re-sort orders because
// SimuBook fills them in submission (FIFO) order, but Seq preserves the
// same total ordering information for callers that do.
type OrderEvent struct {
	ID        uuid.UUID
	Seq       uint64
	Symbol    string
	OrderType OrderType
	Quantity  int
	Direction Direction
}

// NewOrder constructs an OrderEvent with a fresh id.
func NewOrder(symbol string, orderType OrderType, quantity int, direction Direction, seq uint64) OrderEvent {
	return OrderEvent{ID: uuid.New(), Seq: seq, Symbol: symbol, OrderType: orderType, Quantity: quantity, Direction: direction}
}

type orderDTO struct {
	ID        string `json:"id"`
	Seq       uint64 `json:"seq"`
	Symbol    string `json:"symbol"`
	OrderType string `json:"order_type"`
	Quantity  int    `json:"quantity"`
	Direction int8   `json:"direction"`
}

// AsDict implements Codec for OrderEvent.
func (o OrderEvent) AsDict() (Envelope, error) {
	raw, err := json.Marshal(orderDTO{
		ID: o.ID.String(), Seq: o.Seq, Symbol: o.Symbol,
		OrderType: string(o.OrderType), Quantity: o.Quantity, Direction: int8(o.Direction),
	})
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{EventType: "order", Data: raw}, nil
}

func orderEventFromDict(raw json.RawMessage) (OrderEvent, error) {
	var d orderDTO
	if err := json.Unmarshal(raw, &d); err != nil {
		return OrderEvent{}, err
	}
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return OrderEvent{}, err
	}
	return OrderEvent{
		ID: id, Seq: d.Seq, Symbol: d.Symbol,
		OrderType: OrderType(d.OrderType), Quantity: d.Quantity, Direction: Direction(d.Direction),
	}, nil
}
