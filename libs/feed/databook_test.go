package feed

import (
	"context"
	"math"
	"testing"
	"time"

	"backtestsim/libs/barsource"
	"backtestsim/libs/event"
)

func minuteBar(ts time.Time, close float64) event.Tick {
	return event.Tick{Timestamp: ts, Open: close, High: close, Low: close, Close: close, Volume: 100}
}

func buildMinuteBars(start time.Time, n int) []event.Tick {
	bars := make([]event.Tick, n)
	for i := 0; i < n; i++ {
		bars[i] = minuteBar(start.Add(time.Duration(i)*time.Minute), float64(10+i))
	}
	return bars
}

func TestDataBookBaseFrequencyEmitsEveryBar(t *testing.T) {
	start := time.Date(2011, 1, 1, 9, 30, 0, 0, time.UTC)
	src := barsource.NewMemorySource(map[string][]event.Tick{
		"AAPL": buildMinuteBars(start, 5),
	})

	book, err := NewDataBook(context.Background(), src, []string{"AAPL"}, event.M1, start, start.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("NewDataBook: %v", err)
	}

	count := 0
	for {
		_, stgyBar, eod, err := book.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if eod {
			break
		}
		if stgyBar == nil {
			t.Fatal("expected a strategy bar on every call at base frequency")
		}
		count++
	}
	if count != 5 {
		t.Fatalf("expected 5 bars, got %d", count)
	}
}

func TestDataBookAggregatesToStrategyFrequency(t *testing.T) {
	start := time.Date(2011, 1, 1, 9, 30, 0, 0, time.UTC)
	src := barsource.NewMemorySource(map[string][]event.Tick{
		"AAPL": buildMinuteBars(start, 30),
	})

	book, err := NewDataBook(context.Background(), src, []string{"AAPL"}, event.M10, start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("NewDataBook: %v", err)
	}

	var stgyBars int
	var baseBars int
	for {
		_, stgyBar, eod, err := book.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if eod {
			break
		}
		baseBars++
		if stgyBar != nil {
			stgyBars++
		}
	}
	if baseBars != 30 {
		t.Fatalf("expected 30 base bars, got %d", baseBars)
	}
	if stgyBars != 3 {
		t.Fatalf("expected 3 aggregated M10 bars from 30 M1 bars, got %d", stgyBars)
	}
}

// TestWarmupTrimsBeforeAggregationAtCoarseFrequency exercises Warmup at a
// strategy frequency coarser than the M1 base: NeedBars is expressed in
// base-frequency bars, so the trim has to happen against the raw
// per-minute timestamps, before they are folded into M10 bars, not
// against the (much smaller) aggregated-bar count afterward. The start is
// chosen so the trimmed window runs 00:00-12:49 New York time and never
// reaches the 16:00 end-of-day flush.
func TestWarmupTrimsBeforeAggregationAtCoarseFrequency(t *testing.T) {
	start := time.Date(2011, 1, 10, 17, 50, 0, 0, time.UTC)
	history := buildMinuteBars(start.Add(-800*time.Minute), 800)
	src := barsource.NewMemorySource(map[string][]event.Tick{"AAPL": history})

	book, err := NewDataBook(context.Background(), src, []string{"AAPL"}, event.M10, start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("NewDataBook: %v", err)
	}

	warmupBars := 2 * int(math.Ceil(event.M10.OneDay)) // 2 warm-up days at M10 granularity
	got, err := book.Warmup(context.Background(), warmupBars)
	if err != nil {
		t.Fatalf("Warmup: %v", err)
	}

	needBars := NeedBars(warmupBars, event.M10)
	want := needBars / 10
	if len(got) != want {
		t.Fatalf("Warmup returned %d bars, want %d (trimmed to %d base bars before aggregating)", len(got), want, needBars)
	}
}

func TestNeedBarsFormula(t *testing.T) {
	// warmup=20 daily bars aggregated to Daily freq: 20/1*390 - 390/1... using real formula units.
	got := NeedBars(20, event.Daily)
	want := int(float64(20)/1*390 - 390/1)
	if got != want {
		t.Fatalf("NeedBars = %d, want %d", got, want)
	}
}
