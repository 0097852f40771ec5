package execution

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"backtestsim/libs/event"
)

// Executor owns one SimuBook per registered strategy, routing orders and
// bars to the right book so that strategies never see each other's fills
// or market impact.
type Executor struct {
	cfg Config

	mu    sync.RWMutex
	books map[uuid.UUID]*SimuBook
}

// NewExecutor creates an Executor that opens every strategy's book with
// cfg.
func NewExecutor(cfg Config) *Executor {
	return &Executor{cfg: cfg, books: make(map[uuid.UUID]*SimuBook)}
}

// Register opens a new order book for stgyID, a no-op if one already
// exists.
func (e *Executor) Register(stgyID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.books[stgyID]; !ok {
		e.books[stgyID] = NewSimuBook(e.cfg)
	}
}

// Deregister drops stgyID's order book.
func (e *Executor) Deregister(stgyID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.books, stgyID)
}

// OnOrder routes an order into stgyID's book.
func (e *Executor) OnOrder(stgyID uuid.UUID, order event.OrderEvent) error {
	e.mu.RLock()
	book, ok := e.books[stgyID]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("execution: strategy %s not registered", stgyID)
	}
	book.OnOrder(order)
	return nil
}

// OnMarket advances stgyID's book with the newest bar, returning every
// fill it produced.
func (e *Executor) OnMarket(stgyID uuid.UUID, ticks map[string]event.Tick) ([]event.FillEvent, error) {
	e.mu.RLock()
	book, ok := e.books[stgyID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("execution: strategy %s not registered", stgyID)
	}
	return book.OnMarket(ticks), nil
}
