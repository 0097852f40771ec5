package barsource

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"backtestsim/libs/event"
)

// Config holds the connection settings for a Postgres-backed Source.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	Table           string // bars table, default "bars"
}

// DefaultConfig returns sensible production pool defaults.
func DefaultConfig(dsn string) Config {
	return Config{
		DSN:             dsn,
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 1 * time.Minute,
		Table:           "bars",
	}
}

func (c Config) poolConfig() (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(c.DSN)
	if err != nil {
		return nil, fmt.Errorf("barsource: parse dsn: %w", err)
	}
	cfg.MaxConns = c.MaxConns
	cfg.MinConns = c.MinConns
	cfg.MaxConnLifetime = c.MaxConnLifetime
	cfg.MaxConnIdleTime = c.MaxConnIdleTime
	return cfg, nil
}

// PostgresSource reads bars from a `bars(symbol, ts, open, high, low,
// close, volume)` table via a pgx connection pool.
type PostgresSource struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresSource opens a connection pool against cfg.DSN and verifies
// it with a ping.
func NewPostgresSource(ctx context.Context, cfg Config) (*PostgresSource, error) {
	poolCfg, err := cfg.poolConfig()
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("barsource: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("barsource: ping: %w", err)
	}

	table := cfg.Table
	if table == "" {
		table = "bars"
	}
	return &PostgresSource{pool: pool, table: table}, nil
}

// Close releases the underlying connection pool.
func (p *PostgresSource) Close() { p.pool.Close() }

func (p *PostgresSource) AvailablePeriod(ctx context.Context, symbols []string, start, end time.Time) (time.Time, time.Time, error) {
	query := fmt.Sprintf(`
		SELECT max(min_ts), min(max_ts) FROM (
			SELECT symbol, min(ts) AS min_ts, max(ts) AS max_ts
			FROM %s WHERE symbol = ANY($1) GROUP BY symbol
		) per_symbol`, p.table)

	var minStart, maxEnd *time.Time
	if err := p.pool.QueryRow(ctx, query, symbols).Scan(&minStart, &maxEnd); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("barsource: available period: %w", err)
	}
	if minStart == nil || maxEnd == nil {
		return time.Time{}, time.Time{}, ErrNoData
	}
	if minStart.After(start) {
		start = *minStart
	}
	if maxEnd.Before(end) {
		end = *maxEnd
	}
	return start, end, nil
}

func (p *PostgresSource) Bars(ctx context.Context, symbol string, start, end time.Time) (BarIterator, error) {
	query := fmt.Sprintf(`
		SELECT ts, open, high, low, close, volume FROM %s
		WHERE symbol = $1 AND ts BETWEEN $2 AND $3
		ORDER BY ts ASC`, p.table)

	rows, err := p.pool.Query(ctx, query, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("barsource: query bars: %w", err)
	}
	return &pgxIterator{rows: rows}, nil
}

type pgxIterator struct {
	rows pgx.Rows
}

func (it *pgxIterator) Next() (event.Tick, bool, error) {
	if !it.rows.Next() {
		return event.Tick{}, false, it.rows.Err()
	}

	var tick event.Tick
	var volume int64
	if err := it.rows.Scan(&tick.Timestamp, &tick.Open, &tick.High, &tick.Low, &tick.Close, &volume); err != nil {
		return event.Tick{}, false, fmt.Errorf("barsource: scan bar: %w", err)
	}
	tick.Volume = volume
	return tick, true, nil
}

func (it *pgxIterator) Close() error {
	it.rows.Close()
	return it.rows.Err()
}
