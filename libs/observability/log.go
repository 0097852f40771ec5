package observability

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"
)

var logger = log.New(os.Stdout, "", 0)

// LogEvent emits one structured JSON log line, enriching it with whatever
// RunInfo is attached to ctx.
func LogEvent(ctx context.Context, level, event string, fields map[string]any) {
	payload := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339),
		"level": level,
		"event": event,
	}

	for key, value := range RunInfoFromContext(ctx).logFields() {
		payload[key] = value
	}

	for key, value := range normalizeFields(fields) {
		payload[key] = value
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Printf("{\"level\":\"error\",\"event\":\"log_marshal_failed\",\"error\":%q}", err.Error())
		return
	}
	logger.Print(string(raw))
}

// LogFill logs a fill landing against a strategy's book.
func LogFill(ctx context.Context, symbol string, quantity int, fillCost, commission float64) {
	LogEvent(ctx, "info", "fill", map[string]any{
		"symbol": symbol, "quantity": quantity, "fill_cost": fillCost, "commission": commission,
	})
}

// LogOrderRejected logs an order the buying-power gate dropped.
func LogOrderRejected(ctx context.Context, symbol string, quantity int, needBP, availableBP float64) {
	LogEvent(ctx, "warn", "order_rejected_insufficient_bp", map[string]any{
		"symbol": symbol, "quantity": quantity, "need_bp": needBP, "available_bp": availableBP,
	})
}

// LogEOD logs run completion.
func LogEOD(ctx context.Context, nav float64, bars int) {
	LogEvent(ctx, "info", "end_of_data", map[string]any{"nav": nav, "bars": bars})
}

func normalizeFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		if isSensitiveKey(key) {
			out[key] = RedactValue(value)
			continue
		}
		if err, ok := value.(error); ok {
			out[key] = err.Error()
			continue
		}
		out[key] = value
	}
	return out
}
