package position

import (
	"testing"
	"time"

	"backtestsim/libs/event"
)

func tick(close float64) event.Tick {
	return event.Tick{Timestamp: time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC), Open: close, High: close, Low: close, Close: close, Volume: 10000}
}

func TestGenerateOrdersOpensFromFlat(t *testing.T) {
	p := New("AAPL", 0.1, 0, 0)
	p.UpdateData(tick(10))
	p.GenerateSignal(event.Long, LevelNormal, nil)

	orders := p.GenerateOrders(100000)
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	// 0.1/10*100000 = 1000
	if orders[0].Order.Quantity != 1000 || orders[0].Order.Direction != event.Buy {
		t.Fatalf("unexpected order: %+v", orders[0].Order)
	}
}

func TestGenerateOrdersResetsSignalBuffer(t *testing.T) {
	p := New("AAPL", 0.1, 0, 0)
	p.UpdateData(tick(10))
	p.GenerateSignal(event.Long, LevelNormal, nil)
	p.GenerateOrders(100000)

	if orders := p.GenerateOrders(100000); orders != nil {
		t.Fatalf("expected no orders on second call, got %+v", orders)
	}
}

func TestGenerateOrdersReversalProducesTwoOrders(t *testing.T) {
	p := New("AAPL", 0.1, 0, 0)
	p.UpdateData(tick(10))

	p.GenerateSignal(event.Long, LevelNormal, nil)
	opens := p.GenerateOrders(100000)
	if len(opens) != 1 {
		t.Fatalf("expected 1 opening order, got %d", len(opens))
	}
	p.ConfirmOrder(opens[0].Order)
	if err := p.OnFill(event.NewIBFill(opens[0].Order.ID, "AAPL", event.SMART, opens[0].Order.Quantity, event.Buy, 10)); err != nil {
		t.Fatalf("OnFill: %v", err)
	}

	p.GenerateSignal(event.Short, LevelNormal, nil)
	reversal := p.GenerateOrders(100000)
	if len(reversal) != 2 {
		t.Fatalf("expected 2 orders for reversal, got %d", len(reversal))
	}
	if reversal[0].Order.Direction != event.Sell || reversal[0].Order.Quantity != 1000 {
		t.Fatalf("expected close order selling 1000 first, got %+v", reversal[0].Order)
	}
	if reversal[1].Order.Direction != event.Sell || reversal[1].Order.Quantity != 1000 {
		t.Fatalf("expected reopen order shorting 1000 second, got %+v", reversal[1].Order)
	}
}

func TestHardStopPreemptsRebalance(t *testing.T) {
	p := New("AAPL", 0.1, 5, 0.5)
	p.UpdateData(tick(10))
	p.GenerateSignal(event.Long, LevelNormal, nil)
	opens := p.GenerateOrders(100000)
	p.ConfirmOrder(opens[0].Order)
	if err := p.OnFill(event.NewIBFill(opens[0].Order.ID, "AAPL", event.SMART, opens[0].Order.Quantity, event.Buy, 10)); err != nil {
		t.Fatalf("OnFill: %v", err)
	}

	p.UpdateData(tick(12)) // profit peaks near 1995
	p.UpdateData(tick(11)) // profit near 995: drawdown = 1995/995 - 1, about 1.0
	p.GenerateSignal(event.Long, LevelRebalance, nil)
	p.checkHardStop()

	orders := p.GenerateOrders(100000)
	if len(orders) != 1 || orders[0].Level != LevelHardStop {
		t.Fatalf("expected hard-stop order to win, got %+v", orders)
	}
	if orders[0].Order.Direction != event.Sell {
		t.Fatalf("expected hard-stop to sell out a long, got %+v", orders[0].Order)
	}
}

func TestOnFillClosesTradeAndClearsBooks(t *testing.T) {
	p := New("AAPL", 0.1, 0, 0)
	p.UpdateData(tick(10))
	p.GenerateSignal(event.Long, LevelNormal, nil)
	opens := p.GenerateOrders(100000)
	p.ConfirmOrder(opens[0].Order)
	if err := p.OnFill(event.NewIBFill(opens[0].Order.ID, "AAPL", event.SMART, opens[0].Order.Quantity, event.Buy, 10)); err != nil {
		t.Fatalf("open fill: %v", err)
	}
	if !p.HasPosition() {
		t.Fatal("expected position open after fill")
	}

	p.GenerateSignal(event.Exit, LevelNormal, nil)
	closes := p.GenerateOrders(100000)
	if len(closes) != 1 || closes[0].Order.Direction != event.Sell {
		t.Fatalf("unexpected close orders: %+v", closes)
	}
	p.ConfirmOrder(closes[0].Order)
	if err := p.OnFill(event.NewIBFill(closes[0].Order.ID, "AAPL", event.SMART, closes[0].Order.Quantity, event.Sell, 10)); err != nil {
		t.Fatalf("close fill: %v", err)
	}

	if p.HasPosition() {
		t.Fatal("expected position flat after full close fill")
	}
	if p.Quantity() != 0 {
		t.Fatalf("expected 0 quantity, got %d", p.Quantity())
	}
}
