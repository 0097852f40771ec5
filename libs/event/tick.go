package event

import (
	"encoding/json"
	"errors"
	"time"

	"backtestsim/libs/marketcalendar"
)

// Tick is one OHLCV bar for a single symbol at a single base-frequency
// interval, mirroring original_source/event/market.py's Tick namedtuple.
type Tick struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// ErrInvalidTick is returned when a bar's prices or volume are structurally
// impossible (negative volume, high below low).
var ErrInvalidTick = errors.New("event: invalid tick")

// Validate checks the structural invariants every bar must satisfy before
// it can be published: non-negative volume and low <= open,close <= high.
func (t Tick) Validate() error {
	if t.Volume < 0 {
		return ErrInvalidTick
	}
	if t.High < t.Low {
		return ErrInvalidTick
	}
	if t.Open < t.Low || t.Open > t.High {
		return ErrInvalidTick
	}
	if t.Close < t.Low || t.Close > t.High {
		return ErrInvalidTick
	}
	return nil
}

// AggBars combines consecutive base-frequency bars into one bar at a
// coarser frequency: open of the first, close of the last, max high, min
// low, summed volume, timestamped at the last bar — mirroring
// original_source/feeder.py's agg_bars.
func AggBars(bars []Tick) Tick {
	agg := Tick{
		Timestamp: bars[len(bars)-1].Timestamp,
		Open:      bars[0].Open,
		Close:     bars[len(bars)-1].Close,
		High:      bars[0].High,
		Low:       bars[0].Low,
	}
	for _, b := range bars {
		if b.High > agg.High {
			agg.High = b.High
		}
		if b.Low < agg.Low {
			agg.Low = b.Low
		}
		agg.Volume += b.Volume
	}
	return agg
}

// MarketEvent carries the newest bar for every symbol a strategy follows,
// all sharing the same logical timestamp.
type MarketEvent struct {
	Data      map[string]Tick
	Timestamp time.Time
}

// NewMarketEvent builds a MarketEvent, deriving its Timestamp from the
// bars themselves (every bar in data is expected to share one timestamp).
func NewMarketEvent(data map[string]Tick) MarketEvent {
	m := MarketEvent{Data: data}
	for _, t := range data {
		m.Timestamp = t.Timestamp
		break
	}
	return m
}

// LocalTime returns the bar timestamp converted to America/New_York wall
// clock, per original_source/event/market.py's local_ts property.
func (m MarketEvent) LocalTime() time.Time { return marketcalendar.Local(m.Timestamp) }

// EndOfDay reports whether this bar lands at or after the regular session
// close.
func (m MarketEvent) EndOfDay() bool { return marketcalendar.EndOfDay(m.Timestamp) }

// EndOfWeek reports whether this bar is the last session of the trading
// week.
func (m MarketEvent) EndOfWeek() bool { return marketcalendar.EndOfWeek(m.Timestamp) }

type tickDTO struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

func (t Tick) dto() tickDTO {
	return tickDTO{t.Timestamp, t.Open, t.High, t.Low, t.Close, t.Volume}
}

func (d tickDTO) tick() Tick {
	return Tick{d.Timestamp, d.Open, d.High, d.Low, d.Close, d.Volume}
}

// AsDict implements Codec for MarketEvent.
func (m MarketEvent) AsDict() (Envelope, error) {
	data := make(map[string]tickDTO, len(m.Data))
	for symbol, t := range m.Data {
		data[symbol] = t.dto()
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{EventType: "market", Data: raw}, nil
}

func marketEventFromDict(raw json.RawMessage) (MarketEvent, error) {
	var data map[string]tickDTO
	if err := json.Unmarshal(raw, &data); err != nil {
		return MarketEvent{}, err
	}
	out := make(map[string]Tick, len(data))
	for symbol, d := range data {
		out[symbol] = d.tick()
	}
	return NewMarketEvent(out), nil
}
