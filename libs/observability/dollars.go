package observability

import "fmt"

// FormatDollars renders x as a truncated human-readable dollar amount:
// "-" for exactly zero, otherwise suffixed K/M/B by magnitude, matching
// original_source/util.py's dollar_trunc (including its below-1e2 branch,
// which the reference implementation's own K-suffix check always
// overrides before it can apply).
func FormatDollars(x float64, decimals int, dollarSign bool) string {
	absX := x
	if absX < 0 {
		absX = -absX
	}

	var output string
	switch {
	case absX == 0:
		output = "-"
	case absX < 1e6:
		output = fmt.Sprintf("%.*fK", decimals, x/1e3)
	case absX < 1e9:
		output = fmt.Sprintf("%.*fM", decimals, x/1e6)
	default:
		output = fmt.Sprintf("%.*fB", decimals, x/1e9)
	}

	if dollarSign && output != "-" {
		return "$" + output
	}
	return output
}
