// Package trade implements per-position FIFO lot accounting: realized and
// unrealized P&L, cost basis, and the max-cost/max-profit watermarks used
// for hard-stop drawdown checks. A Trade is opened by the first order on
// one side of a symbol and stays open until every share bought into it has
// been sold back out (or vice versa for a short).
package trade

import (
	"math"

	"github.com/google/uuid"

	"backtestsim/libs/event"
)

// Lot is one FIFO parcel of shares bought (or sold short) at a specific
// cost-per-share including amortized commission.
type Lot struct {
	Quantity     int
	CostPerShare float64
}

// pendingOrder tracks an order's outstanding (unfilled) quantity while it
// works.
type pendingOrder struct {
	Quantity  int
	Direction event.Direction
}

// Trade is one continuous position in a single symbol, opened by the
// first order on its side (Position) and closed when Quantity and
// OpenQuantity both return to zero with no orders outstanding.
type Trade struct {
	ID           uuid.UUID
	Position     event.Direction // the side this trade was opened on: Buy (long) or Sell (short)
	T            int             // bars elapsed since open, starts at 1
	OpenQuantity int             // signed quantity on outstanding orders
	Quantity     int             // filled quantity held, always >= 0
	Realized     float64
	Cost         float64
	MaxCost      float64
	MaxProfit    float64

	orders     map[uuid.UUID]pendingOrder
	shareQueue []Lot
	tick       event.Tick
}

// New opens a Trade with its first order. The trade's Position is fixed
// to that order's direction for its entire life.
func New(orderID uuid.UUID, quantity int, direction event.Direction, tick event.Tick) *Trade {
	tr := &Trade{
		ID:       uuid.New(),
		Position: direction,
		T:        1,
		tick:     tick,
		orders:   make(map[uuid.UUID]pendingOrder),
	}
	tr.OnOrder(orderID, quantity, direction)
	return tr
}

// HasOpenOrders reports whether any order on this trade is still working.
func (t *Trade) HasOpenOrders() bool { return len(t.orders) != 0 }

// CostBasis is the average cost per held share, 0 when flat.
func (t *Trade) CostBasis() float64 {
	if t.Quantity == 0 {
		return 0
	}
	return t.Cost / float64(t.Quantity)
}

// R is the trade's return on max capital committed, -Inf when nothing has
// ever been committed (MaxCost == 0), matching original_source/trade.py's
// ZeroDivisionError -> -np.inf behavior.
func (t *Trade) R() float64 {
	if t.MaxCost == 0 {
		return math.Inf(-1)
	}
	return t.Profit() / t.MaxCost
}

// Profit is total (realized + unrealized) P&L.
func (t *Trade) Profit() float64 { return t.Unrealized() + t.Realized }

// Drawdown is the retracement from the trade's peak profit, 0 when profit
// has never moved off zero.
func (t *Trade) Drawdown() float64 {
	profit := t.Profit()
	if profit == 0 {
		return 0
	}
	return t.MaxProfit/profit - 1
}

// TotalQuantity is held plus outstanding signed quantity.
func (t *Trade) TotalQuantity() int { return t.Quantity + t.OpenQuantity }

// IsClosed reports whether the trade has no held shares, no outstanding
// orders, and no pending open quantity — it opened and has since fully
// unwound.
func (t *Trade) IsClosed() bool {
	return t.Quantity == 0 && t.OpenQuantity == 0 && len(t.orders) == 0
}

// IsClosing reports whether the trade's total signed exposure has reached
// zero but an order is still working (the close fill hasn't landed yet).
func (t *Trade) IsClosing() bool {
	return t.TotalQuantity() == 0 && len(t.orders) != 0
}

// MV is the trade's signed current market value.
func (t *Trade) MV() float64 {
	return float64(t.Position) * t.tick.Close * float64(t.Quantity)
}

// Unrealized is mark-to-market P&L on held shares only.
func (t *Trade) Unrealized() float64 {
	return float64(t.Position) * float64(t.Quantity) * (t.tick.Close - t.CostBasis())
}

// Snapshot is a read-only view of a trade's current state, used for
// per-bar strategy history and monitoring — mirrors
// original_source/trade.py's as_dict.
type Snapshot struct {
	T            int
	Position     event.Direction
	MV           float64
	OpenQuantity int
	Quantity     int
	Realized     float64
	Unrealized   float64
	Cost         float64
	MaxCost      float64
	CostBasis    float64
	R            float64
	Profit       float64
	MaxProfit    float64
	Drawdown     float64
	IsClosed     bool
}

// Snapshot captures the trade's current state.
func (t *Trade) Snapshot() Snapshot {
	return Snapshot{
		T: t.T, Position: t.Position, MV: t.MV(),
		OpenQuantity: t.OpenQuantity, Quantity: t.Quantity,
		Realized: t.Realized, Unrealized: t.Unrealized(),
		Cost: t.Cost, MaxCost: t.MaxCost, CostBasis: t.CostBasis(),
		R: t.R(), Profit: t.Profit(), MaxProfit: t.MaxProfit,
		Drawdown: t.Drawdown(), IsClosed: t.IsClosed(),
	}
}

// OnMarket advances the trade's bar clock and updates the max-profit
// watermark against the newest close.
func (t *Trade) OnMarket(tick event.Tick) {
	t.tick = tick
	t.T++
	if profit := t.Profit(); profit > t.MaxProfit {
		t.MaxProfit = profit
	}
}

// OnOrder records a newly submitted order against this trade's pending
// book, adjusting OpenQuantity by the order's signed exposure relative to
// the trade's side.
func (t *Trade) OnOrder(orderID uuid.UUID, quantity int, direction event.Direction) {
	t.OpenQuantity += int(t.Position) * int(direction) * quantity
	t.orders[orderID] = pendingOrder{Quantity: quantity, Direction: direction}
}

// OnFill applies a fill against this trade's FIFO books: opening fills
// (direction matches Position) amortize commission into a new Lot;
// closing fills (direction opposes Position) consume Lots FIFO and
// realize P&L against their cost basis. Returns ErrOverFilling if the
// fill quantity exceeds what the order (opening) or the share queue
// (closing) can account for — always a caller programming error.
func (t *Trade) OnFill(orderID uuid.UUID, quantity int, direction event.Direction, cost, commission float64) error {
	needFill := quantity

	if direction == t.Position {
		costPerShare := cost + float64(t.Position)*commission/float64(quantity)
		lot := Lot{Quantity: quantity, CostPerShare: costPerShare}

		var filled int
		for needFill > 0 {
			order, ok := t.orders[orderID]
			if !ok {
				return ErrOverFilling
			}

			q := order.Quantity
			if needFill < q {
				q = needFill
			}
			order.Quantity -= q
			needFill -= q
			t.OpenQuantity -= q
			t.Quantity += q
			filled = q

			if order.Quantity != 0 {
				t.orders[orderID] = order
			} else {
				delete(t.orders, orderID)
			}
		}

		t.Cost += lot.CostPerShare * float64(filled)
		if t.Cost > t.MaxCost {
			t.MaxCost = t.Cost
		}
		t.shareQueue = append(t.shareQueue, lot)
		return nil
	}

	costPerShare := cost - float64(t.Position)*commission/float64(quantity)
	for needFill > 0 {
		order, ok := t.orders[orderID]
		if !ok {
			return ErrOverFilling
		}
		if len(t.shareQueue) == 0 {
			return ErrOverFilling
		}

		lot := t.shareQueue[0]
		q := lot.Quantity
		if needFill < q {
			q = needFill
		}
		lot.Quantity -= q
		order.Quantity -= q
		needFill -= q

		t.Cost -= float64(q) * lot.CostPerShare
		t.Realized += float64(t.Position) * float64(q) * (costPerShare - lot.CostPerShare)
		t.OpenQuantity += q
		t.Quantity -= q

		if lot.Quantity != 0 {
			t.shareQueue[0] = lot
		} else {
			t.shareQueue = t.shareQueue[1:]
		}

		if order.Quantity != 0 {
			t.orders[orderID] = order
		} else {
			delete(t.orders, orderID)
		}
	}
	return nil
}
