// Package marketcalendar provides regular-trading-hours and end-of-day/
// end-of-week helpers for the backtest simulation clock. Bar timestamps are
// converted to America/New_York wall-clock time before being compared with
// US equities trading hours.
package marketcalendar

import "time"

// NY is the trading-hours timezone used throughout the simulation.
var NY = mustLoadLocation("America/New_York")

// RTHClose is the regular-trading-hours close time, 16:00 local.
const RTHClose = 16 * time.Hour

// fridayWeekday is the weekday EndOfWeek compares local time against.
const fridayWeekday = time.Friday

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// America/New_York ships with every Go toolchain's tzdata fallback;
		// a missing zoneinfo database is a deployment defect, not a
		// recoverable condition.
		panic("marketcalendar: " + err.Error())
	}
	return loc
}

// Local converts a bar timestamp (assumed UTC if it carries no zone info)
// to America/New_York wall-clock time, offset by one second the way
// original_source/event/market.py's local_ts property does — bars are
// timestamped at the open of their interval, and the one-second nudge
// pushes a bar landing exactly on the close boundary past it.
func Local(ts time.Time) time.Time {
	return ts.In(NY).Add(time.Second)
}

// EndOfDay reports whether ts's local time has reached the regular session
// close (16:00 America/New_York).
func EndOfDay(ts time.Time) bool {
	local := Local(ts)
	sinceMidnight := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second
	return sinceMidnight >= RTHClose
}

// EndOfWeek reports whether ts is both end-of-day and falls on Friday or
// later in local time (guards against a short trading week ending early).
func EndOfWeek(ts time.Time) bool {
	if !EndOfDay(ts) {
		return false
	}
	return Local(ts).Weekday() >= fridayWeekday
}
