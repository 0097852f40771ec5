// Package execution simulates order filling: one SimuBook per strategy
// holds that strategy's outstanding orders and matches them against each
// new bar using a volume-share slippage model, isolating one strategy's
// market impact from another's.
package execution

import (
	"github.com/google/uuid"

	"backtestsim/libs/event"
)

type fillStatus int

const (
	statusSubmitted fillStatus = iota
	statusFilling
	statusFilled
)

type fillRecord struct {
	Order        event.OrderEvent
	Fills        []event.FillEvent
	OpenQuantity int
	Status       fillStatus
}

// SimuBook is one strategy's simulated order book. Orders arrive via
// OnOrder and are matched against the newest bar on every OnMarket call;
// whatever doesn't fully fill this bar carries over, FIFO, to the next.
type SimuBook struct {
	cfg Config

	orderQueue []uuid.UUID
	insertion  []uuid.UUID // first-seen order, used to requeue deterministically
	fillings   map[uuid.UUID]*fillRecord

	ticks         map[string]event.Tick
	filledCounter map[string]int
}

// NewSimuBook creates an empty order book using cfg's slippage model.
func NewSimuBook(cfg Config) *SimuBook {
	return &SimuBook{
		cfg:           cfg,
		fillings:      make(map[uuid.UUID]*fillRecord),
		filledCounter: make(map[string]int),
	}
}

// OnOrder enqueues a new order for filling on the next OnMarket call.
func (b *SimuBook) OnOrder(order event.OrderEvent) {
	if _, ok := b.fillings[order.ID]; !ok {
		b.fillings[order.ID] = &fillRecord{Order: order, OpenQuantity: order.Quantity, Status: statusSubmitted}
		b.insertion = append(b.insertion, order.ID)
	}
	b.orderQueue = append(b.orderQueue, order.ID)
}

// OnMarket attempts to fill every queued order against ticks, a bar keyed
// by symbol. Orders left with open quantity are requeued for the next
// call; fully filled orders drop off the book. Returns every fill
// produced this bar, in fill order.
func (b *SimuBook) OnMarket(ticks map[string]event.Tick) []event.FillEvent {
	b.ticks = ticks

	queue := b.orderQueue
	b.orderQueue = nil

	var fills []event.FillEvent
	for _, oid := range queue {
		rec, ok := b.fillings[oid]
		if !ok {
			continue
		}
		rec.Status = statusFilling
		if fill, filled := b.placeOrder(rec); filled {
			fills = append(fills, fill)
		}
	}

	var kept []uuid.UUID
	for _, oid := range b.insertion {
		rec, ok := b.fillings[oid]
		if !ok {
			continue
		}
		if rec.Status != statusFilled {
			b.orderQueue = append(b.orderQueue, oid)
			kept = append(kept, oid)
		} else {
			delete(b.fillings, oid)
		}
	}
	b.insertion = kept
	b.filledCounter = make(map[string]int)

	return fills
}

func (b *SimuBook) placeOrder(rec *fillRecord) (event.FillEvent, bool) {
	symbol := rec.Order.Symbol
	tick, ok := b.ticks[symbol]
	if !ok {
		return event.FillEvent{}, false
	}

	wap := (tick.High + tick.Low + tick.Close) / 3
	filled, impactedPrice := Slippage(b.cfg, wap, tick.Volume, rec.OpenQuantity, rec.Order.Direction, b.filledCounter[symbol])
	b.filledCounter[symbol] += filled
	if filled == 0 {
		return event.FillEvent{}, false
	}

	rec.OpenQuantity -= filled
	if rec.OpenQuantity == 0 {
		rec.Status = statusFilled
	}

	fill := event.NewIBFill(rec.Order.ID, symbol, event.SMART, filled, rec.Order.Direction, impactedPrice)
	rec.Fills = append(rec.Fills, fill)
	return fill, true
}

// HasOpenOrders reports whether this book still has unfilled orders
// outstanding.
func (b *SimuBook) HasOpenOrders() bool { return len(b.fillings) != 0 }
