// Package strategy orchestrates one strategy instance: config loading,
// the INIT→SETUP→RUNNING→STOPPED lifecycle, the per-bar signal/order/fill
// loop, and buying-power accounting. Strategy calls directly into its
// Position, Executor, and DataBook rather than through a message bus.
package strategy

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"backtestsim/libs/event"
	"backtestsim/libs/riskpolicy"
)

// PositionConfig mirrors one entry of original_source/strategy.py's
// `positions` dict: pct_portfolio/rebalance/hard_stop per symbol.
type PositionConfig struct {
	Symbol       string  `json:"symbol"`
	PctPortfolio float64 `json:"pct_portfolio"`
	Rebalance    int     `json:"rebalance"` // trading days between rebalances, 0 disables
	HardStop     float64 `json:"hard_stop"` // drawdown fraction gate, 0 disables
}

// Config is a strategy's full run configuration, loadable from JSON the
// same way the risk policy config loads.
type Config struct {
	Symbols         []string         `json:"symbols"`
	Allocation      float64          `json:"allocation"`
	FixedAllocation bool             `json:"fixed_allocation"`
	FreqName        string           `json:"freq"`
	Positions       []PositionConfig `json:"positions"`
	WarmupDays      int              `json:"warmup_days"`
	Start           time.Time        `json:"start"`
	End             time.Time        `json:"end"`

	LoadedFrom string    `json:"-"`
	LoadedAt   time.Time `json:"-"`
	Version    string    `json:"-"`
}

var frequencies = map[string]event.Frequency{
	event.Daily.Name: event.Daily,
	event.H1.Name:    event.H1,
	event.M30.Name:   event.M30,
	event.M10.Name:   event.M10,
	event.M1.Name:    event.M1,
}

// Freq resolves FreqName to its Frequency value, defaulting to Daily for
// an unrecognized or empty name.
func (c Config) Freq() event.Frequency {
	if f, ok := frequencies[c.FreqName]; ok {
		return f
	}
	return event.Daily
}

// WarmupBars converts WarmupDays into strategy-frequency bars, ceil(freq)
// per day — matches original_source/strategy.py's `warmup * n`.
func (c Config) WarmupBars() int {
	return c.WarmupDays * int(math.Ceil(c.Freq().OneDay))
}

// LoadConfig reads a JSON strategy config from path. An empty path or a
// missing file returns DefaultConfig rather than failing, so a run can
// start without a config file present.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("strategy: read config %q: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("strategy: parse config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("strategy: invalid config %q: %w", path, err)
	}

	cfg.LoadedFrom = path
	cfg.LoadedAt = time.Now().UTC()
	cfg.Version = configVersion(data)
	return &cfg, nil
}

// DefaultConfig returns a single-symbol buy-and-hold config at 100%
// allocation, daily frequency, no warm-up.
func DefaultConfig() *Config {
	cfg := &Config{
		Symbols:         []string{"SPY"},
		Allocation:      100000,
		FixedAllocation: true,
		FreqName:        event.Daily.Name,
		Positions:       []PositionConfig{{Symbol: "SPY", PctPortfolio: 1.0}},
		LoadedAt:        time.Now().UTC(),
	}
	b, _ := json.Marshal(cfg)
	cfg.Version = configVersion(b)
	return cfg
}

// Validate checks every position's sizing config and the overall
// allocation, aggregating every breach into one riskpolicy.Violations
// error instead of failing on the first one found.
func (c *Config) Validate() error {
	var violations riskpolicy.Violations
	violations = append(violations, riskpolicy.CheckAllocation(c.Allocation)...)
	for _, p := range c.Positions {
		violations = append(violations, riskpolicy.CheckPosition(p.Symbol, p.PctPortfolio, p.Rebalance, p.HardStop)...)
	}
	if !violations.IsEmpty() {
		return violations
	}
	return nil
}

// configVersion returns a short deterministic identifier for the config
// JSON, used for audit labelling — not a security hash.
func configVersion(data []byte) string {
	h := uint64(14695981039346656037)
	for _, b := range data {
		h ^= uint64(b)
		h *= 1099511628211
	}
	return fmt.Sprintf("v%x", h&0xffffffffffff)
}

func symbolList(positions []PositionConfig) []string {
	seen := make(map[string]bool, len(positions))
	var out []string
	for _, p := range positions {
		if !seen[p.Symbol] {
			seen[p.Symbol] = true
			out = append(out, p.Symbol)
		}
	}
	return out
}
