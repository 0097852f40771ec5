package trade

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"backtestsim/libs/event"
)

func tick(close float64) event.Tick {
	return event.Tick{Timestamp: time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC), Open: close, High: close, Low: close, Close: close, Volume: 1000}
}

func TestTradeOpenAndFill(t *testing.T) {
	orderID := uuid.New()
	tr := New(orderID, 30, event.Buy, tick(10))

	if tr.TotalQuantity() != 30 {
		t.Fatalf("expected TotalQuantity 30 before fill, got %d", tr.TotalQuantity())
	}

	if err := tr.OnFill(orderID, 30, event.Buy, 10, event.IBCommission(30, 10)); err != nil {
		t.Fatalf("OnFill: %v", err)
	}

	if tr.Quantity != 30 || tr.OpenQuantity != 0 {
		t.Fatalf("after fill: Quantity=%d OpenQuantity=%d", tr.Quantity, tr.OpenQuantity)
	}
	if tr.HasOpenOrders() {
		t.Fatal("expected no open orders after full fill")
	}

	wantCost := 10*30 + event.IBCommission(30, 10)
	if math.Abs(tr.Cost-wantCost) > 1e-9 {
		t.Fatalf("cost = %v, want %v", tr.Cost, wantCost)
	}
}

func TestTradeUnrealizedAndDrawdown(t *testing.T) {
	orderID := uuid.New()
	tr := New(orderID, 100, event.Buy, tick(10))
	if err := tr.OnFill(orderID, 100, event.Buy, 10, 0); err != nil {
		t.Fatalf("OnFill: %v", err)
	}

	tr.OnMarket(tick(12))
	if got := tr.Unrealized(); got != 200 {
		t.Fatalf("unrealized = %v, want 200", got)
	}
	if tr.MaxProfit != 200 {
		t.Fatalf("max profit = %v, want 200", tr.MaxProfit)
	}

	tr.OnMarket(tick(11))
	if got := tr.Drawdown(); math.Abs(got-(200.0/100.0-1)) > 1e-9 {
		t.Fatalf("drawdown = %v", got)
	}
}

func TestTradeCloseRealizesPnL(t *testing.T) {
	openID := uuid.New()
	tr := New(openID, 50, event.Buy, tick(10))
	if err := tr.OnFill(openID, 50, event.Buy, 10, 0); err != nil {
		t.Fatalf("open fill: %v", err)
	}

	closeID := uuid.New()
	tr.OnOrder(closeID, 50, event.Sell)
	if err := tr.OnFill(closeID, 50, event.Sell, 12, 0); err != nil {
		t.Fatalf("close fill: %v", err)
	}

	if tr.Realized != 100 {
		t.Fatalf("realized = %v, want 100", tr.Realized)
	}
	if !tr.IsClosed() {
		t.Fatal("expected trade to be fully closed")
	}
}

func TestTradePartialCloseKeepsLotRemainder(t *testing.T) {
	openID := uuid.New()
	tr := New(openID, 100, event.Buy, tick(10))
	if err := tr.OnFill(openID, 100, event.Buy, 10, 0); err != nil {
		t.Fatalf("open fill: %v", err)
	}

	closeID := uuid.New()
	tr.OnOrder(closeID, 100, event.Sell)
	if err := tr.OnFill(closeID, 40, event.Sell, 12, 0); err != nil {
		t.Fatalf("partial close fill: %v", err)
	}

	if tr.Quantity != 60 {
		t.Fatalf("quantity after partial close = %d, want 60", tr.Quantity)
	}
	if tr.Realized != 80 {
		t.Fatalf("realized = %v, want 80", tr.Realized)
	}
	if tr.IsClosed() {
		t.Fatal("trade should not be closed with shares remaining")
	}
}

func TestTradeOverFillingOnUnknownOrder(t *testing.T) {
	openID := uuid.New()
	tr := New(openID, 10, event.Buy, tick(10))
	if err := tr.OnFill(openID, 10, event.Buy, 10, 0); err != nil {
		t.Fatalf("open fill: %v", err)
	}

	if err := tr.OnFill(uuid.New(), 5, event.Sell, 10, 0); !errors.Is(err, ErrOverFilling) {
		t.Fatalf("expected ErrOverFilling, got %v", err)
	}
}

func TestTradeReversalFillClosesOriginalTrade(t *testing.T) {
	longID := uuid.New()
	tr := New(longID, 10, event.Buy, tick(10))
	if err := tr.OnFill(longID, 10, event.Buy, 10, 0); err != nil {
		t.Fatalf("open fill: %v", err)
	}

	reverseID := uuid.New()
	tr.OnOrder(reverseID, 10, event.Sell)
	if err := tr.OnFill(reverseID, 10, event.Sell, 9, 0); err != nil {
		t.Fatalf("reversal fill: %v", err)
	}

	if !tr.IsClosing() && !tr.IsClosed() {
		t.Fatal("expected trade to be closing or closed after full reversal fill")
	}
	if tr.Quantity != 0 {
		t.Fatalf("expected 0 quantity after reversal fill, got %d", tr.Quantity)
	}
}
