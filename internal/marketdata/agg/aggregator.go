// Package agg builds fixed-duration OHLC candles from a stream of ticks.
//
// Period boundaries are computed by integer-dividing the exchange timestamp
// by the unit duration, so aggregation is deterministic and independent of
// tick arrival jitter — no wall-clock polling. A candle closes when a tick
// for a later period arrives; periods skipped entirely by the tick stream
// are emitted as zero-volume candles carrying the last known close, keeping
// the 1-unit stream strictly contiguous for the downstream rollup.
package agg

import (
	"log"
	"time"

	"algocore/internal/model"
)

// Aggregator builds unit candles for a single symbol.
// Designed for single-goroutine usage (the ingestion task) — no locks needed.
type Aggregator struct {
	symbol string
	unit   int64 // unit duration in seconds

	bucket  int64 // current bucket = tick unix seconds / unit
	candle  model.Candle
	started bool

	// Metrics hooks (optional, set externally)
	OnLateTick func()
	OnGapFill  func()
}

// New creates an Aggregator for symbol with the given unit duration.
func New(symbol string, unit time.Duration) *Aggregator {
	return &Aggregator{
		symbol: symbol,
		unit:   int64(unit / time.Second),
	}
}

// AddTick folds a tick into the open candle. When the tick belongs to a later
// period it returns the newly closed candle(s), oldest first: the rolled-over
// candle plus one synthetic zero-volume candle per skipped period. Returns nil
// while the open candle is still accumulating.
//
// Ticks for other symbols and ticks behind the open period (a transport
// ordering violation) are dropped and counted.
func (a *Aggregator) AddTick(tick model.Tick) []model.Candle {
	if tick.Symbol != a.symbol {
		return nil
	}

	bucket := tick.TickTS.Unix() / a.unit

	if !a.started {
		a.openCandle(bucket, tick)
		return nil
	}

	if bucket < a.bucket {
		// Late tick — belongs to an already-closed period, drop it
		if a.OnLateTick != nil {
			a.OnLateTick()
		}
		log.Printf("[agg] dropping late tick %s ts=%v (open period starts %v)",
			tick.Symbol, tick.TickTS, a.candle.Start)
		return nil
	}

	if bucket == a.bucket {
		a.fold(tick)
		return nil
	}

	// Period rollover: close the stale candle with its last known price,
	// synthesize one flat candle per fully skipped period, then reopen.
	closed := make([]model.Candle, 0, bucket-a.bucket)
	a.candle.Closed = true
	closed = append(closed, a.candle)

	lastClose := a.candle.Close
	for b := a.bucket + 1; b < bucket; b++ {
		closed = append(closed, a.syntheticCandle(b, lastClose))
		if a.OnGapFill != nil {
			a.OnGapFill()
		}
	}

	a.openCandle(bucket, tick)
	return closed
}

// Flush closes and returns the in-progress candle, if any. Called on shutdown
// so the last partial period is not lost.
func (a *Aggregator) Flush() (model.Candle, bool) {
	if !a.started {
		return model.Candle{}, false
	}
	a.candle.Closed = true
	a.started = false
	return a.candle, true
}

func (a *Aggregator) openCandle(bucket int64, tick model.Tick) {
	start := time.Unix(bucket*a.unit, 0).UTC()
	a.bucket = bucket
	a.started = true
	a.candle = model.Candle{
		Symbol: a.symbol,
		TF:     int(a.unit),
		Start:  start,
		End:    start.Add(time.Duration(a.unit) * time.Second),
		Open:   tick.Price,
		High:   tick.Price,
		Low:    tick.Price,
		Close:  tick.Price,
		Volume: tick.Qty,
		Ticks:  1,
	}
}

func (a *Aggregator) fold(tick model.Tick) {
	c := &a.candle
	if tick.Price > c.High {
		c.High = tick.Price
	}
	if tick.Price < c.Low {
		c.Low = tick.Price
	}
	c.Close = tick.Price
	c.Volume += tick.Qty
	c.Ticks++
}

func (a *Aggregator) syntheticCandle(bucket, price int64) model.Candle {
	start := time.Unix(bucket*a.unit, 0).UTC()
	return model.Candle{
		Symbol: a.symbol,
		TF:     int(a.unit),
		Start:  start,
		End:    start.Add(time.Duration(a.unit) * time.Second),
		Open:   price,
		High:   price,
		Low:    price,
		Close:  price,
		Closed: true,
	}
}
