package event

import "time"

// Frequency describes a bar interval: how many bars make up one trading
// day, the wall-clock span of one bar, and a human label. Values mirror
// original_source/conf.py's DAILY/H1/M30/M10/M1 classes.
type Frequency struct {
	Name    string
	OneDay  float64
	Offset  time.Duration
	BarSize string
}

var (
	Daily = Frequency{Name: "DAILY", OneDay: 1, Offset: 24 * time.Hour, BarSize: "1 day"}
	H1    = Frequency{Name: "1H", OneDay: 6.5, Offset: time.Hour, BarSize: "1 hour"}
	M30   = Frequency{Name: "30M", OneDay: 13, Offset: 30 * time.Minute, BarSize: "30 mins"}
	M10   = Frequency{Name: "10M", OneDay: 39, Offset: 10 * time.Minute, BarSize: "10 mins"}
	M1    = Frequency{Name: "1M", OneDay: 390, Offset: time.Minute, BarSize: "1 min"}
)

// DefaultFreq is the base frequency the feed always reads raw bars at,
// regardless of the strategy's own aggregation frequency.
var DefaultFreq = M1
