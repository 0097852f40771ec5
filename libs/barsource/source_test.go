package barsource

import (
	"context"
	"testing"
	"time"

	"backtestsim/libs/event"
)

func mkTick(day int, close float64) event.Tick {
	return event.Tick{Timestamp: time.Date(2011, 1, day, 0, 0, 0, 0, time.UTC), Open: close, High: close, Low: close, Close: close, Volume: 100}
}

func TestMemorySourceBarsFiltersRange(t *testing.T) {
	src := NewMemorySource(map[string][]event.Tick{
		"AAPL": {mkTick(1, 10), mkTick(2, 11), mkTick(3, 12)},
	})

	it, err := src.Bars(context.Background(), "AAPL", time.Date(2011, 1, 2, 0, 0, 0, 0, time.UTC), time.Date(2011, 1, 3, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Bars: %v", err)
	}
	defer it.Close()

	var got []event.Tick
	for {
		tick, ok, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, tick)
	}
	if len(got) != 2 || got[0].Close != 11 || got[1].Close != 12 {
		t.Fatalf("unexpected window: %+v", got)
	}
}

func TestMemorySourceAvailablePeriodIntersects(t *testing.T) {
	src := NewMemorySource(map[string][]event.Tick{
		"AAPL": {mkTick(1, 10), mkTick(5, 11)},
		"MSFT": {mkTick(2, 20), mkTick(4, 21)},
	})

	start, end, err := src.AvailablePeriod(context.Background(), []string{"AAPL", "MSFT"},
		time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2011, 1, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("AvailablePeriod: %v", err)
	}
	if !start.Equal(mkTick(2, 0).Timestamp) || !end.Equal(mkTick(4, 0).Timestamp) {
		t.Fatalf("expected intersection [day2, day4], got [%v, %v]", start, end)
	}
}

func TestMemorySourceMissingSymbol(t *testing.T) {
	src := NewMemorySource(map[string][]event.Tick{"AAPL": {mkTick(1, 10)}})
	if _, err := src.Bars(context.Background(), "MSFT", time.Time{}, time.Time{}); err != ErrNoData {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}
