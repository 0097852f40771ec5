package execution

import (
	"math"

	"backtestsim/libs/event"
)

// Config tunes the volume-share slippage model.
type Config struct {
	SlippageLimit float64 // max fraction of bar volume tradable
	MinImpact     float64 // minimum price impact per share
	ImpactCoef    float64 // coefficient in the quadratic impact term
}

// DefaultConfig mirrors the values the backtester has always shipped with.
func DefaultConfig() Config {
	return Config{SlippageLimit: 0.025, MinImpact: 0.003, ImpactCoef: 0.1}
}

// Slippage estimates fill quantity and impacted price using a volume-share
// model: the fillable quantity is capped at a fixed fraction of the bar's
// traded volume (less whatever this bar already filled for the symbol),
// and the price impact grows quadratically with the fraction of the bar
// actually consumed, floored at minImpact.
//
// price should be a WAP estimate for the bar (callers use (H+L+C)/3).
// direction is +1 to buy (impact pushes price up) or -1 to sell.
func Slippage(cfg Config, price float64, barVolume int64, openQuantity int, direction event.Direction, filledVolume int) (filled int, impactedPrice float64) {
	if barVolume <= 0 {
		return 0, 0
	}

	remaining := cfg.SlippageLimit*float64(barVolume) - float64(filledVolume)
	if remaining < 0 {
		remaining = 0
	}
	filled = int(math.Floor(math.Min(float64(openQuantity), remaining)))

	share := math.Min(float64(filled)/float64(barVolume), cfg.SlippageLimit)
	impact := float64(direction) * math.Max(cfg.MinImpact, share*share*cfg.ImpactCoef*price)
	impactedPrice = round3(impact + price)
	return filled, impactedPrice
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
