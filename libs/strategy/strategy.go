package strategy

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"backtestsim/libs/event"
	"backtestsim/libs/execution"
	"backtestsim/libs/feed"
	"backtestsim/libs/observability"
	"backtestsim/libs/position"
)

// State is a strategy instance's lifecycle stage.
type State int

const (
	StateInit State = iota
	StateSetup
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateSetup:
		return "SETUP"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Callbacks lets a concrete strategy (BuyAndHold, or any other) hook into
// the per-bar loop without Strategy needing to know its type.
type Callbacks interface {
	// CalculateSignals is called once per bar, after every position's own
	// hard-stop/rebalance checks, to generate any additional signals.
	CalculateSignals(s *Strategy)
	// OnHardStop fires when an order confirmed this bar was generated by
	// a hard-stop signal.
	OnHardStop(symbol string)
	// OnRebalance fires when an order confirmed this bar was generated by
	// a scheduled rebalance signal.
	OnRebalance(symbol string)
	// UpdateData fires every bar, warm-up or not, right after positions
	// absorb the new ticks.
	UpdateData(ticks map[string]event.Tick)
}

// NoopCallbacks gives a concrete strategy a zero-cost base to embed and
// override only the hooks it cares about.
type NoopCallbacks struct{}

func (NoopCallbacks) CalculateSignals(*Strategy)       {}
func (NoopCallbacks) OnHardStop(string)                {}
func (NoopCallbacks) OnRebalance(string)                {}
func (NoopCallbacks) UpdateData(map[string]event.Tick)  {}

// Snapshot is one bar's worth of strategy-level history, recorded once
// warm-up has passed — mirrors original_source/strategy.py's _save_positions.
type Snapshot struct {
	T          int
	Cash       float64
	Commission float64
	NAV        float64
	Positions  map[string]position.Snapshot
}

// Strategy drives one strategy instance's entire lifecycle: buying-power
// accounting, the per-bar signal/order/fill loop, and position bookkeeping
// across every symbol it trades.
type Strategy struct {
	ID  uuid.UUID
	cfg Config

	state     State
	positions map[string]*position.Position
	order     []string // deterministic symbol iteration order

	cash       float64
	commission float64
	t          int
	ticks      map[string]event.Tick
	seq        uint64

	history []Snapshot

	exe       *execution.Executor
	callbacks Callbacks
}

// New creates a Strategy in state SETUP: one Position per configured
// symbol, registered with exe's order book, cash seeded at the
// allocation.
func New(cfg Config, exe *execution.Executor, callbacks Callbacks) *Strategy {
	symbols := symbolList(cfg.Positions)
	numPos := len(cfg.Positions)

	positions := make(map[string]*position.Position, numPos)
	for _, p := range cfg.Positions {
		pctPortfolio := p.PctPortfolio
		if pctPortfolio == 0 && numPos > 0 {
			pctPortfolio = 1.0 / float64(numPos)
		}
		positions[p.Symbol] = position.New(p.Symbol, pctPortfolio, p.Rebalance*int(cfg.Freq().OneDay), p.HardStop)
	}

	s := &Strategy{
		ID: uuid.New(), cfg: cfg, state: StateSetup,
		positions: positions, order: symbols,
		cash: cfg.Allocation, exe: exe, callbacks: callbacks,
	}
	exe.Register(s.ID)
	return s
}

// NAV is net account value: market value of every position plus cash.
func (s *Strategy) NAV() float64 {
	total := s.cash
	for _, pos := range s.positions {
		total += pos.MV()
	}
	return total
}

// TotalCost sums cost basis dollars across every position.
func (s *Strategy) TotalCost() float64 {
	var total float64
	for _, pos := range s.positions {
		total += pos.Cost()
	}
	return total
}

// TotalBP is total buying power: the fixed allocation, or current NAV if
// the strategy resizes with performance.
func (s *Strategy) TotalBP() float64 {
	if s.cfg.FixedAllocation {
		return s.cfg.Allocation
	}
	return s.NAV()
}

// AvailableBP is buying power not already committed to open positions.
func (s *Strategy) AvailableBP() float64 {
	return s.TotalBP() - s.TotalCost()
}

// HasPosition reports whether symbol has any trade on the books, including
// one opened by a confirmed order that has not filled yet.
func (s *Strategy) HasPosition(symbol string) bool { return s.positions[symbol].HasPosition() }

// HasOpenOrders reports whether symbol has unfilled orders outstanding.
func (s *Strategy) HasOpenOrders(symbol string) bool { return s.positions[symbol].HasOpenOrders() }

// Side reports symbol's current directional exposure.
func (s *Strategy) Side(symbol string) event.SignalType { return s.positions[symbol].Side() }

// GenerateSignal buffers a normal-urgency signal for symbol. strength
// defaults to that position's configured pct_portfolio when nil.
func (s *Strategy) GenerateSignal(symbol string, signalType event.SignalType, strength *float64) {
	s.positions[symbol].GenerateSignal(signalType, position.LevelNormal, strength)
}

// History returns every bar snapshot recorded since warm-up ended.
func (s *Strategy) History() []Snapshot { return s.history }

// State reports the strategy's current lifecycle stage.
func (s *Strategy) State() State { return s.state }

// OnMarket advances the strategy by one bar at its own frequency: update
// position data, run signal calculation once warm-up has passed, route
// generated orders through the buying-power gate, and record history.
func (s *Strategy) OnMarket(ctx context.Context, market event.MarketEvent) error {
	s.updateData(market)

	if s.t < s.cfg.WarmupBars() {
		return nil
	}

	s.calculateSignals()

	equity := s.TotalBP()
	bp := s.AvailableBP()
	for _, symbol := range s.order {
		pos := s.positions[symbol]
		for _, req := range pos.GenerateOrders(equity) {
			used, err := s.onOrder(ctx, req, bp)
			if err != nil {
				return err
			}
			bp -= used
		}
	}

	s.history = append(s.history, s.snapshot())
	return nil
}

func (s *Strategy) updateData(market event.MarketEvent) {
	s.ticks = market.Data
	s.t++
	for symbol, tick := range market.Data {
		if pos, ok := s.positions[symbol]; ok {
			pos.UpdateData(tick)
		}
	}
	s.callbacks.UpdateData(market.Data)
}

func (s *Strategy) calculateSignals() {
	for _, symbol := range s.order {
		s.positions[symbol].CalculateSignals()
	}
	s.callbacks.CalculateSignals(s)
}

// onOrder gates a generated order against available buying power,
// fires the hard-stop/rebalance callback the order's urgency implies,
// confirms it against the position ledger, and submits it to the
// executor. Returns the buying power consumed (0 if the order was
// silently dropped for insufficient buying power — never an error).
func (s *Strategy) onOrder(ctx context.Context, req position.OrderRequest, bp float64) (float64, error) {
	symbol := req.Order.Symbol
	tick, ok := s.ticks[symbol]
	if !ok {
		return 0, nil
	}

	needBP := float64(req.Order.Quantity) * tick.Close
	if needBP > bp {
		observability.LogOrderRejected(ctx, symbol, req.Order.Quantity, needBP, bp)
		return 0, nil
	}

	switch req.Level {
	case position.LevelHardStop:
		s.callbacks.OnHardStop(symbol)
	case position.LevelRebalance:
		s.callbacks.OnRebalance(symbol)
	}

	order := req.Order
	s.seq++
	order.Seq = s.seq

	s.positions[symbol].ConfirmOrder(order)
	if err := s.exe.OnOrder(s.ID, order); err != nil {
		return 0, fmt.Errorf("strategy: submit order: %w", err)
	}
	return needBP, nil
}

// OnFill applies an inbound fill to its position and updates cash:
// buying reduces cash by cost plus commission, selling increases it by
// proceeds less commission.
func (s *Strategy) OnFill(fill event.FillEvent) error {
	pos, ok := s.positions[fill.Symbol]
	if !ok {
		return fmt.Errorf("strategy: fill for unknown symbol %q", fill.Symbol)
	}
	if err := pos.OnFill(fill); err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	cost := float64(fill.FillType) * fill.FillCost * float64(fill.Quantity)
	s.commission += fill.Commission
	s.cash -= cost + fill.Commission
	return nil
}

func (s *Strategy) snapshot() Snapshot {
	positions := make(map[string]position.Snapshot, len(s.positions))
	for symbol, pos := range s.positions {
		positions[symbol] = pos.Snapshot()
	}
	return Snapshot{T: s.t, Cash: s.cash, Commission: s.commission, NAV: s.NAV(), Positions: positions}
}

// Run drives the strategy end to end against book: warm-up history
// first (bars below the warm-up threshold only update position data),
// then the live loop. Every bar, the executor sees the base-frequency
// bar and fills before the strategy acts on its own (possibly coarser)
// bar, guaranteeing an order submitted at bar t fills no earlier than
// bar t+1.
func (s *Strategy) Run(ctx context.Context, book *feed.DataBook) error {
	s.state = StateRunning

	warmup, err := book.Warmup(ctx, s.cfg.WarmupBars())
	if err != nil {
		return fmt.Errorf("strategy: warmup: %w", err)
	}
	for _, bar := range warmup {
		if err := s.OnMarket(ctx, bar); err != nil {
			return err
		}
	}

	for {
		base, stgyBar, eod, err := book.Next()
		if err != nil {
			return fmt.Errorf("strategy: next bar: %w", err)
		}
		if eod {
			s.onEOD(ctx)
			return nil
		}

		fills, err := s.exe.OnMarket(s.ID, base.Data)
		if err != nil {
			return fmt.Errorf("strategy: executor on_market: %w", err)
		}
		for _, fill := range fills {
			if err := s.OnFill(fill); err != nil {
				return err
			}
		}

		if stgyBar != nil {
			if err := s.OnMarket(ctx, *stgyBar); err != nil {
				return err
			}
		}
	}
}

func (s *Strategy) onEOD(ctx context.Context) {
	observability.LogEOD(ctx, s.NAV(), s.t)
	s.exe.Deregister(s.ID)
	s.state = StateStopped
}
