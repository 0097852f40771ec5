package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backtestsim/libs/barsource"
	"backtestsim/libs/event"
	"backtestsim/libs/execution"
	"backtestsim/libs/feed"
	"backtestsim/libs/observability"
	"backtestsim/libs/strategy"
)

var (
	version   = "0.1.0"
	buildTime = "unknown"
)

type runConfig struct {
	ConfigPath string
	DatabaseURL string
	RedisURL    string
	UseDatabase bool
}

func main() {
	configFlag := flag.String("config", "", "path to strategy config JSON (optional, defaults to a single-symbol buy-and-hold)")
	flag.Parse()

	cfg := loadRunConfig(*configFlag)

	log.Printf("starting backtestsim v%s (built: %s)", version, buildTime)

	stgyCfg, err := strategy.LoadConfig(cfg.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load strategy config: %v", err)
	}
	log.Printf("strategy config version %s (%d symbol(s), freq %s)", stgyCfg.Version, len(stgyCfg.Symbols), stgyCfg.FreqName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := buildSource(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to build bar source: %v", err)
	}

	book, err := feed.NewDataBook(ctx, source, stgyCfg.Symbols, stgyCfg.Freq(), stgyCfg.Start, stgyCfg.End)
	if err != nil {
		log.Fatalf("failed to open data book: %v", err)
	}
	defer book.Close()

	exe := execution.NewExecutor(execution.DefaultConfig())
	callbacks := strategy.NewBuyAndHold(stgyCfg.Symbols, event.Long)
	s := strategy.New(*stgyCfg, exe, callbacks)

	runInfo := observability.RunInfo{RunID: observability.NewRunID(), StrategyID: s.ID.String()}
	ctx = observability.WithRunInfo(ctx, runInfo)

	start := time.Now()
	if err := s.Run(ctx, book); err != nil {
		log.Fatalf("run %s failed: %v", runInfo.RunID, err)
	}
	elapsed := time.Since(start)

	log.Printf("run %s complete in %s: %d bars, final NAV %s", runInfo.RunID, elapsed,
		len(s.History()), observability.FormatDollars(s.NAV(), 2, true))
}

func loadRunConfig(configPath string) runConfig {
	cfg := runConfig{
		ConfigPath:  configPath,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),
	}
	cfg.UseDatabase = cfg.DatabaseURL != ""
	return cfg
}

// buildSource composes the bar source chain used for this run. With a
// DATABASE_URL set it wires Postgres behind a Redis read-through cache
// and a circuit breaker, matching how the strategy trades in production;
// otherwise it falls back to an in-memory source with no sample data,
// left for callers that wire their own bars in tests.
func buildSource(ctx context.Context, cfg runConfig) (barsource.Source, error) {
	if !cfg.UseDatabase {
		log.Println("DATABASE_URL not set, using an empty in-memory bar source")
		return barsource.NewMemorySource(nil), nil
	}

	pgCfg := barsource.DefaultConfig(cfg.DatabaseURL)
	pg, err := barsource.NewPostgresSource(ctx, pgCfg)
	if err != nil {
		return nil, err
	}
	log.Println("connected to postgres bar source")

	var src barsource.Source = pg
	if cfg.RedisURL != "" {
		cached, err := barsource.NewCachedSource(src, barsource.DefaultCacheConfig(cfg.RedisURL))
		if err != nil {
			return nil, err
		}
		src = cached
		log.Println("wrapped bar source with redis cache")
	}

	src = barsource.NewResilientSource(src, barsource.DefaultResilientConfig("backtest-barsource"))
	return src, nil
}
