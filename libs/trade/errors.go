package trade

import "errors"

// ErrOverFilling is raised when a fill reports more quantity than the
// trade's outstanding orders (opening branch) or FIFO share queue
// (closing branch) can account for. This is always a programming error
// in the caller (SimuBook reporting a fill larger than the order's
// remaining open quantity) — never a condition the trade can recover
// from internally — mirroring original_source/trade.py's OverFilling.
var ErrOverFilling = errors.New("trade: overfilling")
