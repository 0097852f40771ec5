// Package observability provides structured JSON logging, context-carried
// run identifiers, and field redaction for the backtest engine.
package observability

import "context"

type contextKey string

const (
	runIDKey      contextKey = "run_id"
	strategyIDKey contextKey = "strategy_id"
	symbolKey     contextKey = "symbol"
	barSeqKey     contextKey = "bar_seq"
)

// RunInfo carries trace identifiers through a request context: RunID
// spans one backtest invocation, StrategyID identifies which strategy
// instance logged the event, Symbol narrows it to one security, and
// BarSeq pins it to a specific bar index for reproducing a run from logs
// alone.
type RunInfo struct {
	RunID      string
	StrategyID string
	Symbol     string
	BarSeq     int
}

// WithRunInfo attaches info's non-zero fields to ctx.
func WithRunInfo(ctx context.Context, info RunInfo) context.Context {
	if info.RunID != "" {
		ctx = context.WithValue(ctx, runIDKey, info.RunID)
	}
	if info.StrategyID != "" {
		ctx = context.WithValue(ctx, strategyIDKey, info.StrategyID)
	}
	if info.Symbol != "" {
		ctx = context.WithValue(ctx, symbolKey, info.Symbol)
	}
	if info.BarSeq != 0 {
		ctx = context.WithValue(ctx, barSeqKey, info.BarSeq)
	}
	return ctx
}

// RunInfoFromContext retrieves whatever RunInfo fields were attached to
// ctx via WithRunInfo.
func RunInfoFromContext(ctx context.Context) RunInfo {
	info := RunInfo{}
	if v, ok := ctx.Value(runIDKey).(string); ok {
		info.RunID = v
	}
	if v, ok := ctx.Value(strategyIDKey).(string); ok {
		info.StrategyID = v
	}
	if v, ok := ctx.Value(symbolKey).(string); ok {
		info.Symbol = v
	}
	if v, ok := ctx.Value(barSeqKey).(int); ok {
		info.BarSeq = v
	}
	return info
}

// logFields flattens info's non-zero fields into a log payload, keyed the
// same way WithRunInfo's context keys are named. BarSeq 0 is indistinguishable
// from "unset" here, same tradeoff WithRunInfo already makes.
func (info RunInfo) logFields() map[string]any {
	named := []struct {
		key   string
		value any
	}{
		{string(runIDKey), info.RunID},
		{string(strategyIDKey), info.StrategyID},
		{string(symbolKey), info.Symbol},
		{string(barSeqKey), info.BarSeq},
	}

	out := make(map[string]any, len(named))
	for _, f := range named {
		switch v := f.value.(type) {
		case string:
			if v != "" {
				out[f.key] = v
			}
		case int:
			if v != 0 {
				out[f.key] = v
			}
		}
	}
	return out
}
