// Package feed turns a barsource.Source into the two-speed bar stream a
// backtest run needs: every base-frequency bar (for the executor to fill
// orders against) and, once enough base bars have accumulated, one
// aggregated bar at the strategy's own frequency.
package feed

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"backtestsim/libs/barsource"
	"backtestsim/libs/event"
)

// NeedBars computes how many base-frequency warm-up bars to keep once
// aggregated to freq, leaving the last partial window for live data
// rather than replaying it twice.
func NeedBars(warmupBars int, freq event.Frequency) int {
	return int(float64(warmupBars)/math.Ceil(freq.OneDay)*event.DefaultFreq.OneDay - event.DefaultFreq.OneDay/freq.OneDay)
}

// DataBook drives one strategy's bar stream: base-frequency bars flow out
// of Next on every call, aggregated strategy-frequency bars flow out
// alongside them once a full window accumulates.
type DataBook struct {
	source  barsource.Source
	symbols []string
	freq    event.Frequency
	numAgg  int

	start, end time.Time

	iterators map[string]barsource.BarIterator
	bars      map[string][]event.Tick
	startTime *time.Time
}

// NewDataBook opens one bar iterator per symbol over [start, end]
// (narrowed to what every symbol actually has data for) at the base
// frequency, to be aggregated up to freq.
func NewDataBook(ctx context.Context, source barsource.Source, symbols []string, freq event.Frequency, start, end time.Time) (*DataBook, error) {
	actualStart, actualEnd, err := source.AvailablePeriod(ctx, symbols, start, end)
	if err != nil {
		return nil, err
	}

	iterators := make(map[string]barsource.BarIterator, len(symbols))
	for _, symbol := range symbols {
		it, err := source.Bars(ctx, symbol, actualStart, actualEnd)
		if err != nil {
			return nil, err
		}
		iterators[symbol] = it
	}

	return &DataBook{
		source: source, symbols: symbols, freq: freq,
		numAgg:    int(event.DefaultFreq.OneDay / freq.OneDay),
		start:     actualStart, end: actualEnd,
		iterators: iterators,
		bars:      make(map[string][]event.Tick),
	}, nil
}

// Close releases every open iterator.
func (d *DataBook) Close() error {
	var first error
	for _, it := range d.iterators {
		if err := it.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (d *DataBook) nextBaseBar() (event.MarketEvent, bool, error) {
	data := make(map[string]event.Tick, len(d.symbols))
	for _, symbol := range d.symbols {
		tick, ok, err := d.iterators[symbol].Next()
		if err != nil {
			return event.MarketEvent{}, false, err
		}
		if !ok {
			return event.MarketEvent{}, false, nil
		}
		if err := tick.Validate(); err != nil {
			return event.MarketEvent{}, false, fmt.Errorf("feed: %s at %s: %w", symbol, tick.Timestamp, err)
		}
		data[symbol] = tick
		d.bars[symbol] = append(d.bars[symbol], tick)
	}
	return event.NewMarketEvent(data), true, nil
}

// Next advances the base-frequency stream by one bar. base is always
// populated unless eod is true; stgyBar is non-nil only on bars where a
// full aggregation window closes or the session reaches end of day (which
// flushes a partial window), and on every bar if the strategy already
// trades at the base frequency.
func (d *DataBook) Next() (base event.MarketEvent, stgyBar *event.MarketEvent, eod bool, err error) {
	market, ok, err := d.nextBaseBar()
	if err != nil {
		return event.MarketEvent{}, nil, false, err
	}
	if !ok {
		return event.MarketEvent{}, nil, true, nil
	}

	if d.numAgg == 1 {
		agg := market
		return market, &agg, false, nil
	}
	return market, d.stgyMarket(market), false, nil
}

func (d *DataBook) stgyMarket(market event.MarketEvent) *event.MarketEvent {
	if d.startTime == nil {
		t := market.Timestamp
		d.startTime = &t
	}

	needAgg := market.Timestamp.Sub(*d.startTime) >= d.freq.Offset-event.DefaultFreq.Offset
	if !needAgg && !market.EndOfDay() {
		return nil
	}

	aggregated := make(map[string]event.Tick, len(d.bars))
	for symbol, ticks := range d.bars {
		aggregated[symbol] = event.AggBars(ticks)
	}

	d.bars = make(map[string][]event.Tick)
	d.startTime = nil

	agg := event.NewMarketEvent(aggregated)
	return &agg
}

// Warmup pulls warmupBars (in strategy-frequency units) of history
// preceding the run's start date, aggregated the same way Next would,
// and trimmed to NeedBars so the last partial window is left for live
// data. Returns nil, nil if no warm-up history exists for these symbols
// (silently skipped, matching a strategy that simply starts cold).
func (d *DataBook) Warmup(ctx context.Context, warmupBars int) ([]event.MarketEvent, error) {
	if warmupBars == 0 {
		return nil, nil
	}

	lookbackDays := int(math.Ceil(float64(warmupBars) / d.freq.OneDay * 2))
	start := d.start.AddDate(0, 0, -lookbackDays)
	end := d.start.Add(-time.Second)

	perSymbol := make(map[string]map[int64]event.Tick, len(d.symbols))
	for _, symbol := range d.symbols {
		it, err := d.source.Bars(ctx, symbol, start, end)
		if err != nil {
			return nil, nil
		}
		byTS := make(map[int64]event.Tick)
		for {
			tick, ok, err := it.Next()
			if err != nil {
				it.Close()
				return nil, err
			}
			if !ok {
				break
			}
			if err := tick.Validate(); err != nil {
				it.Close()
				return nil, fmt.Errorf("feed: %s at %s: %w", symbol, tick.Timestamp, err)
			}
			byTS[tick.Timestamp.Unix()] = tick
		}
		it.Close()
		if len(byTS) == 0 {
			return nil, nil
		}
		perSymbol[symbol] = byTS
	}

	seen := make(map[int64]int)
	for _, byTS := range perSymbol {
		for ts := range byTS {
			seen[ts]++
		}
	}
	var common []int64
	for ts, count := range seen {
		if count == len(d.symbols) {
			common = append(common, ts)
		}
	}
	sort.Slice(common, func(i, j int) bool { return common[i] < common[j] })

	// needBars is in base-frequency units (NeedBars mirrors feeder.py's
	// need_bars formula against the raw per-minute series), so the trim
	// happens here, before aggregation, not against the aggregated count.
	needBars := NeedBars(warmupBars, d.freq)
	if needBars > 0 && len(common) > needBars {
		common = common[len(common)-needBars:]
	}

	var aggregated []event.MarketEvent
	for _, ts := range common {
		data := make(map[string]event.Tick, len(d.symbols))
		for _, symbol := range d.symbols {
			tick := perSymbol[symbol][ts]
			data[symbol] = tick
			d.bars[symbol] = append(d.bars[symbol], tick)
		}
		market := event.NewMarketEvent(data)
		if agg := d.stgyMarket(market); agg != nil {
			aggregated = append(aggregated, *agg)
		}
	}
	d.bars = make(map[string][]event.Tick)
	d.startTime = nil

	return aggregated, nil
}
