// Package barsource supplies historical OHLCV bars to the data feed. The
// Source interface lets the feed stay agnostic to where bars actually
// live: an in-memory fixture for tests, Postgres for the real warehouse,
// wrapped with a read-through Redis cache and a circuit breaker for
// production use.
package barsource

import (
	"context"
	"errors"
	"sort"
	"time"

	"backtestsim/libs/event"
)

// ErrNoData is returned when a requested symbol has no bars at all. A
// symbol that has bars, none of them inside the requested range, yields an
// empty iterator instead.
var ErrNoData = errors.New("barsource: no data available")

// BarIterator yields bars in ascending timestamp order. Next returns
// ok=false once exhausted; callers must call Close when done.
type BarIterator interface {
	Next() (tick event.Tick, ok bool, err error)
	Close() error
}

// Source supplies bars for a set of symbols over a date range.
type Source interface {
	// AvailablePeriod narrows [start, end] to the overlap actually
	// covered by every symbol's data.
	AvailablePeriod(ctx context.Context, symbols []string, start, end time.Time) (time.Time, time.Time, error)
	// Bars opens an iterator over one symbol's bars in [start, end].
	Bars(ctx context.Context, symbol string, start, end time.Time) (BarIterator, error)
}

// MemorySource is an in-process Source backed by a fixed symbol -> bars
// map, used by tests and the sample runner.
type MemorySource struct {
	bars map[string][]event.Tick
}

// NewMemorySource copies bars (sorted ascending by timestamp per symbol)
// into a new MemorySource.
func NewMemorySource(bars map[string][]event.Tick) *MemorySource {
	m := &MemorySource{bars: make(map[string][]event.Tick, len(bars))}
	for symbol, ticks := range bars {
		cp := make([]event.Tick, len(ticks))
		copy(cp, ticks)
		sort.Slice(cp, func(i, j int) bool { return cp[i].Timestamp.Before(cp[j].Timestamp) })
		m.bars[symbol] = cp
	}
	return m
}

func (m *MemorySource) AvailablePeriod(_ context.Context, symbols []string, start, end time.Time) (time.Time, time.Time, error) {
	for _, symbol := range symbols {
		ticks, ok := m.bars[symbol]
		if !ok || len(ticks) == 0 {
			return time.Time{}, time.Time{}, ErrNoData
		}
		if ticks[0].Timestamp.After(start) {
			start = ticks[0].Timestamp
		}
		if last := ticks[len(ticks)-1].Timestamp; last.Before(end) {
			end = last
		}
	}
	return start, end, nil
}

func (m *MemorySource) Bars(_ context.Context, symbol string, start, end time.Time) (BarIterator, error) {
	ticks, ok := m.bars[symbol]
	if !ok {
		return nil, ErrNoData
	}

	var window []event.Tick
	for _, t := range ticks {
		if t.Timestamp.Before(start) || t.Timestamp.After(end) {
			continue
		}
		window = append(window, t)
	}
	return &sliceIterator{ticks: window}, nil
}

type sliceIterator struct {
	ticks []event.Tick
	pos   int
}

func (s *sliceIterator) Next() (event.Tick, bool, error) {
	if s.pos >= len(s.ticks) {
		return event.Tick{}, false, nil
	}
	t := s.ticks[s.pos]
	s.pos++
	return t, true, nil
}

func (s *sliceIterator) Close() error { return nil }
