package barsource

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ResilientConfig configures the circuit breaker guarding a Source.
type ResilientConfig struct {
	Name        string
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
	MaxFailures uint32
}

// DefaultResilientConfig mirrors the breaker tuning used elsewhere in the
// stack for outbound dependencies.
func DefaultResilientConfig(name string) ResilientConfig {
	return ResilientConfig{Name: name, MaxRequests: 3, Interval: 10 * time.Second, Timeout: 30 * time.Second, MaxFailures: 5}
}

// ResilientSource wraps a Source with a circuit breaker so a flaky
// upstream (Postgres, Redis) trips open instead of stalling every bar of
// a backtest run one timeout at a time.
type ResilientSource struct {
	next Source
	cb   *gobreaker.CircuitBreaker[any]
}

// NewResilientSource wraps next with a circuit breaker configured by cfg.
func NewResilientSource(next Source, cfg ResilientConfig) *ResilientSource {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && (counts.ConsecutiveFailures >= cfg.MaxFailures || failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[barsource:%s] circuit breaker %s -> %s", name, from, to)
		},
	}
	return &ResilientSource{next: next, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

func (r *ResilientSource) AvailablePeriod(ctx context.Context, symbols []string, start, end time.Time) (time.Time, time.Time, error) {
	type period struct{ start, end time.Time }
	result, err := r.cb.Execute(func() (any, error) {
		s, e, err := r.next.AvailablePeriod(ctx, symbols, start, end)
		if err != nil {
			return nil, err
		}
		return period{s, e}, nil
	})
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("barsource: circuit breaker: %w", err)
	}
	p := result.(period)
	return p.start, p.end, nil
}

func (r *ResilientSource) Bars(ctx context.Context, symbol string, start, end time.Time) (BarIterator, error) {
	result, err := r.cb.Execute(func() (any, error) {
		return r.next.Bars(ctx, symbol, start, end)
	})
	if err != nil {
		return nil, fmt.Errorf("barsource: circuit breaker: %w", err)
	}
	return result.(BarIterator), nil
}
