package event

import (
	"testing"
	"time"
)

func TestIBCommission(t *testing.T) {
	cases := []struct {
		name     string
		qty      int
		fillCost float64
		want     float64
	}{
		{"below cap uses per-share", 100, 50, 0.5},
		{"above cap uses notional cap", 100, 0.5, 0.25},
		{"equal at boundary", 100, 1, 0.5},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := IBCommission(c.qty, c.fillCost)
			if got != c.want {
				t.Fatalf("IBCommission(%d, %v) = %v, want %v", c.qty, c.fillCost, got, c.want)
			}
		})
	}
}

func TestSignalTargetQtyFixed(t *testing.T) {
	sig := NewSignal("AAPL", Long, 2, ModeFixed)
	// 2/10*100 = 20
	if got := sig.TargetQty(10, 100000); got != 20 {
		t.Fatalf("got %d, want 20", got)
	}
}

func TestSignalTargetQtyPct(t *testing.T) {
	sig := NewSignal("AAPL", Long, 0.1, ModePct)
	// 0.1/10*100000 = 1000
	if got := sig.TargetQty(10, 100000); got != 1000 {
		t.Fatalf("got %d, want 1000", got)
	}
}

func TestSignalTargetQtyExitIsZero(t *testing.T) {
	sig := NewSignal("AAPL", Exit, 0, ModePct)
	if got := sig.TargetQty(10, 100000); got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
}

func TestAggBars(t *testing.T) {
	base := time.Date(2011, 1, 1, 9, 30, 0, 0, time.UTC)
	bars := []Tick{
		{Timestamp: base, Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100},
		{Timestamp: base.Add(time.Minute), Open: 10.5, High: 12, Low: 10, Close: 11, Volume: 200},
		{Timestamp: base.Add(2 * time.Minute), Open: 11, High: 11.5, Low: 8, Close: 9, Volume: 50},
	}
	agg := AggBars(bars)
	if agg.Open != 10 || agg.Close != 9 || agg.High != 12 || agg.Low != 8 || agg.Volume != 350 {
		t.Fatalf("unexpected aggregation: %+v", agg)
	}
	if !agg.Timestamp.Equal(bars[2].Timestamp) {
		t.Fatalf("expected aggregated timestamp to be last bar's timestamp")
	}
}

func TestEventRoundTrip(t *testing.T) {
	tick := Tick{Timestamp: time.Date(2011, 1, 1, 9, 30, 0, 0, time.UTC), Open: 10, High: 10, Low: 10, Close: 10, Volume: 1000}
	market := NewMarketEvent(map[string]Tick{"AAPL": tick})
	order := NewOrder("AAPL", MKT, 30, Buy, 7)
	fill := NewIBFill(order.ID, "AAPL", SMART, 30, Buy, 10.01)
	fixedSignal := NewSignal("AAPL", Long, 1, ModeFixed)
	pctSignal := NewSignal("AAPL", Short, 0.5, ModePct)

	for _, codec := range []Codec{market, order, fill, fixedSignal, pctSignal} {
		env, err := codec.AsDict()
		if err != nil {
			t.Fatalf("AsDict: %v", err)
		}
		got, err := FromDict(env)
		if err != nil {
			t.Fatalf("FromDict(%s): %v", env.EventType, err)
		}
		switch want := codec.(type) {
		case MarketEvent:
			gotMarket := got.(MarketEvent)
			if gotMarket.Data["AAPL"].Close != want.Data["AAPL"].Close {
				t.Fatalf("market round trip mismatch")
			}
		case OrderEvent:
			gotOrder := got.(OrderEvent)
			if gotOrder.ID != want.ID || gotOrder.Seq != want.Seq || gotOrder.Quantity != want.Quantity {
				t.Fatalf("order round trip mismatch: got %+v want %+v", gotOrder, want)
			}
		case FillEvent:
			gotFill := got.(FillEvent)
			if gotFill.ID != want.ID || gotFill.Commission != want.Commission {
				t.Fatalf("fill round trip mismatch: got %+v want %+v", gotFill, want)
			}
		case SignalEvent:
			gotSignal := got.(SignalEvent)
			if gotSignal.ID != want.ID || gotSignal.Type != want.Type || gotSignal.Strength != want.Strength {
				t.Fatalf("signal round trip mismatch: got %+v want %+v", gotSignal, want)
			}
		}
	}
}

func TestFromDictUnknownType(t *testing.T) {
	if _, err := FromDict(Envelope{EventType: "bogus"}); err == nil {
		t.Fatal("expected error for unknown event type")
	}
}

func TestTickValidate(t *testing.T) {
	bad := Tick{High: 1, Low: 2}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error when high < low")
	}
	badVolume := Tick{High: 2, Low: 1, Volume: -1}
	if err := badVolume.Validate(); err == nil {
		t.Fatal("expected error for negative volume")
	}
	badOpen := Tick{Open: 11, High: 10, Low: 9, Close: 9.5}
	if err := badOpen.Validate(); err == nil {
		t.Fatal("expected error when open > high")
	}
	badClose := Tick{Open: 9.5, High: 10, Low: 9, Close: 8}
	if err := badClose.Validate(); err == nil {
		t.Fatal("expected error when close < low")
	}
	good := Tick{Open: 9.5, High: 10, Low: 9, Close: 9.8, Volume: 100}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected valid tick to pass, got %v", err)
	}
}
