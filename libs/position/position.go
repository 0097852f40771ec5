// Package position tracks one security's aggregate exposure across its
// (usually single) open trade: signal buffering by urgency, signal-to-order
// translation including position reversal, and order/fill routing into the
// trade ledger.
package position

import (
	"math"

	"github.com/google/uuid"

	"backtestsim/libs/event"
	"backtestsim/libs/trade"
)

// UrgencyLevel ranks which buffered signal wins when more than one fires
// in the same bar. Hard stops always preempt a normal entry/exit signal,
// which in turn preempts a scheduled rebalance.
type UrgencyLevel int

const (
	LevelHardStop UrgencyLevel = iota
	LevelNormal
	LevelRebalance
)

// urgencyPriority is the order GenerateOrders scans the signal buffer in —
// mirrors original_source/pos.py's signal_lvl tuple.
var urgencyPriority = [3]UrgencyLevel{LevelHardStop, LevelNormal, LevelRebalance}

// OrderRequest is one order GenerateOrders produced, tagged with the
// urgency level of the signal that generated it so Strategy.onOrder can
// fire the matching OnHardStop/OnRebalance callback.
type OrderRequest struct {
	Order event.OrderEvent
	Level UrgencyLevel
}

// Position aggregates one symbol's exposure: at most one open Trade at a
// time, plus any already-closed trades still pending fill cleanup.
type Position struct {
	Symbol       string
	PctPortfolio float64
	Rebalance    int // bars between rebalances, 0 disables
	HardStop     float64

	tick         event.Tick
	openTradeID  uuid.UUID
	hasOpenTrade bool
	trades       map[uuid.UUID]*trade.Trade
	tradeMapper  map[uuid.UUID]uuid.UUID // order id -> trade id
	signals      [3]*event.SignalEvent
}

// New creates a flat Position for symbol. rebalance is already expressed
// in bars (the caller converts from trading days); hardStop of 0 disables
// the drawdown gate.
func New(symbol string, pctPortfolio float64, rebalance int, hardStop float64) *Position {
	return &Position{
		Symbol: symbol, PctPortfolio: pctPortfolio, Rebalance: rebalance, HardStop: hardStop,
		trades:      make(map[uuid.UUID]*trade.Trade),
		tradeMapper: make(map[uuid.UUID]uuid.UUID),
	}
}

func (p *Position) openTrade() (*trade.Trade, bool) {
	if !p.hasOpenTrade {
		return nil, false
	}
	return p.trades[p.openTradeID], true
}

// Side reports the position's current directional exposure.
func (p *Position) Side() event.SignalType {
	switch q := p.Quantity(); {
	case q > 0:
		return event.Long
	case q < 0:
		return event.Short
	default:
		return event.Exit
	}
}

// HasPosition reports whether this symbol has any trade (open or pending
// fill cleanup) on the books.
func (p *Position) HasPosition() bool { return len(p.trades) != 0 }

// HasOpenOrders reports whether any trade has quantity still working.
func (p *Position) HasOpenOrders() bool { return p.OpenQuantity() != 0 }

// T is the open trade's bar age, 0 when flat.
func (p *Position) T() int {
	if tr, ok := p.openTrade(); ok {
		return tr.T
	}
	return 0
}

// TotalQuantity is the open trade's signed total (held + pending)
// quantity, 0 when flat.
func (p *Position) TotalQuantity() int {
	if tr, ok := p.openTrade(); ok {
		return int(tr.Position) * tr.TotalQuantity()
	}
	return 0
}

// OpenQuantity sums the absolute pending quantity across every trade.
func (p *Position) OpenQuantity() int {
	total := 0
	for _, tr := range p.trades {
		if tr.OpenQuantity < 0 {
			total += -tr.OpenQuantity
		} else {
			total += tr.OpenQuantity
		}
	}
	return total
}

// Quantity is signed held quantity summed across every trade.
func (p *Position) Quantity() int {
	total := 0
	for _, tr := range p.trades {
		total += int(tr.Position) * tr.Quantity
	}
	return total
}

// Cost sums cost basis dollars across every trade.
func (p *Position) Cost() float64 {
	var total float64
	for _, tr := range p.trades {
		total += tr.Cost
	}
	return total
}

// MaxCost sums each trade's max-cost watermark.
func (p *Position) MaxCost() float64 {
	var total float64
	for _, tr := range p.trades {
		total += tr.MaxCost
	}
	return total
}

// Profit sums realized+unrealized P&L across every trade.
func (p *Position) Profit() float64 {
	var total float64
	for _, tr := range p.trades {
		total += tr.Profit()
	}
	return total
}

// MaxProfit sums each trade's max-profit watermark.
func (p *Position) MaxProfit() float64 {
	var total float64
	for _, tr := range p.trades {
		total += tr.MaxProfit
	}
	return total
}

// MV sums signed current market value across every trade.
func (p *Position) MV() float64 {
	var total float64
	for _, tr := range p.trades {
		total += tr.MV()
	}
	return total
}

// CostBasis is average cost per held share, 0 when flat.
func (p *Position) CostBasis() float64 {
	if q := p.Quantity(); q != 0 {
		return p.Cost() / float64(q)
	}
	return 0
}

// R is position return on max capital committed, -Inf when nothing has
// ever been committed.
func (p *Position) R() float64 {
	if maxCost := p.MaxCost(); maxCost != 0 {
		return p.Profit() / maxCost
	}
	return math.Inf(-1)
}

// Drawdown is retracement from peak profit, 0 when profit has never moved
// off zero.
func (p *Position) Drawdown() float64 {
	if profit := p.Profit(); profit != 0 {
		return p.MaxProfit()/profit - 1
	}
	return 0
}

// UpdateData stamps the newest bar and advances every trade's clock
// before any signal calculation happens this bar.
func (p *Position) UpdateData(tick event.Tick) {
	p.tick = tick
	for _, tr := range p.trades {
		tr.OnMarket(tick)
	}
}

// resetSignals clears the urgency buffer after GenerateOrders consumes it.
func (p *Position) resetSignals() {
	p.signals = [3]*event.SignalEvent{}
}

// GenerateSignal buffers a signal at the given urgency level, overwriting
// whatever was buffered there this bar. strength defaults to
// PctPortfolio unless the caller supplies one; EXIT always zeroes
// strength regardless of what's passed, matching
// original_source/pos.py's _generate_signal.
func (p *Position) GenerateSignal(signalType event.SignalType, level UrgencyLevel, strength *float64) {
	s := p.PctPortfolio
	if strength != nil {
		s = *strength
	}
	if signalType == event.Exit {
		s = 0
	}
	sig := event.NewSignal(p.Symbol, signalType, s, event.ModePct)
	p.signals[level] = &sig
}

// CalculateSignals runs this position's own hard-stop and rebalance
// checks. Does nothing when the position has no trade on the books.
func (p *Position) CalculateSignals() {
	if !p.HasPosition() {
		return
	}
	p.checkHardStop()
	p.checkRebalance()
}

func (p *Position) checkHardStop() {
	if p.HardStop == 0 {
		return
	}
	if p.Drawdown() >= p.HardStop {
		p.GenerateSignal(event.Exit, LevelHardStop, nil)
	}
}

func (p *Position) checkRebalance() {
	if p.Rebalance == 0 {
		return
	}
	if p.T()%p.Rebalance == 0 {
		p.GenerateSignal(p.Side(), LevelRebalance, nil)
	}
}

// GenerateOrders consumes the buffered signal (highest urgency wins),
// converts it to a target quantity against current equity, and emits the
// order(s) needed to reach that target: one order for a same-direction
// adjustment, or two (close then reopen) for a full reversal. Resets the
// signal buffer before returning.
func (p *Position) GenerateOrders(equity float64) []OrderRequest {
	defer p.resetSignals()

	var signal *event.SignalEvent
	var level UrgencyLevel
	for _, lvl := range urgencyPriority {
		if p.signals[lvl] != nil {
			signal = p.signals[lvl]
			level = lvl
			break
		}
	}
	if signal == nil {
		return nil
	}

	target := signal.TargetQty(p.tick.Close, equity)
	q := p.TotalQuantity()

	var tradeQty []int
	switch {
	case q == 0:
		tradeQty = append(tradeQty, target)
	case sameSign(target, q):
		tradeQty = append(tradeQty, target-q)
	default:
		tradeQty = append(tradeQty, -q, target)
	}

	var orders []OrderRequest
	for _, tq := range tradeQty {
		if tq == 0 {
			continue
		}
		direction := event.Buy
		if tq < 0 {
			direction = event.Sell
		}
		qty := tq
		if qty < 0 {
			qty = -qty
		}
		order := event.NewOrder(p.Symbol, event.MKT, qty, direction, 0)
		orders = append(orders, OrderRequest{Order: order, Level: level})
	}
	return orders
}

func sameSign(a, b int) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

// ConfirmOrder is called once an order clears the buying-power gate:
// routes it onto the currently open trade, or opens a new one if this
// symbol is flat.
func (p *Position) ConfirmOrder(order event.OrderEvent) {
	if tr, ok := p.openTrade(); ok {
		tr.OnOrder(order.ID, order.Quantity, order.Direction)
		if tr.IsClosing() {
			p.hasOpenTrade = false
		}
		p.tradeMapper[order.ID] = tr.ID
		return
	}

	tr := trade.New(order.ID, order.Quantity, order.Direction, p.tick)
	p.openTradeID = tr.ID
	p.hasOpenTrade = true
	p.trades[tr.ID] = tr
	p.tradeMapper[order.ID] = tr.ID
}

// OnFill routes an inbound fill to the trade its order belongs to,
// dropping the trade from the book once it fully closes.
func (p *Position) OnFill(fill event.FillEvent) error {
	tradeID, ok := p.tradeMapper[fill.OrderID]
	if !ok {
		return nil
	}
	tr, ok := p.trades[tradeID]
	if !ok {
		return nil
	}

	if err := tr.OnFill(fill.OrderID, fill.Quantity, fill.FillType, fill.FillCost, fill.Commission); err != nil {
		return err
	}
	if tr.IsClosed() {
		delete(p.trades, tr.ID)
	}
	return nil
}

// Snapshot is a read-only view of position-level state for strategy
// history, summing over every trade on the books.
type Snapshot struct {
	Symbol    string
	Quantity  int
	MV        float64
	Cost      float64
	Profit    float64
	Drawdown  float64
	R         float64
	CostBasis float64
}

// Snapshot captures the position's current aggregate state.
func (p *Position) Snapshot() Snapshot {
	return Snapshot{
		Symbol: p.Symbol, Quantity: p.Quantity(), MV: p.MV(), Cost: p.Cost(),
		Profit: p.Profit(), Drawdown: p.Drawdown(), R: p.R(), CostBasis: p.CostBasis(),
	}
}
