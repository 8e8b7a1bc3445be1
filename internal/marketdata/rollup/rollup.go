// Package rollup resamples closed unit candles into N-unit candles.
//
// Unlike the tick aggregator, the rollup is count-based: it folds exactly N
// consecutive unit candles with contiguous periods before closing. A gap in
// the input (a sub-candle whose period does not start where the previous one
// ended) invalidates the in-progress rollup and restarts accumulation at the
// gapped candle — failing safe rather than silently emitting a candle that
// spans missing data.
package rollup

import (
	"log"

	"algocore/internal/model"
)

// Builder accumulates closed unit candles into one rollup candle at a time.
// Designed for single-goroutine usage (the ingestion task).
type Builder struct {
	n int // sub-candles per rollup

	acc     model.Candle
	count   int
	started bool

	// OnGap is called when a non-contiguous sub-candle discards the
	// in-progress rollup (optional metrics hook).
	OnGap func()
}

// New creates a Builder that closes a rollup after n contiguous sub-candles.
func New(n int) *Builder {
	return &Builder{n: n}
}

// Add folds a closed unit candle into the accumulating rollup. It returns the
// finished rollup candle and true when the n-th contiguous sub-candle lands.
// Open candles are ignored.
func (b *Builder) Add(c model.Candle) (model.Candle, bool) {
	if !c.Closed {
		return model.Candle{}, false
	}

	if b.started && !c.Start.Equal(b.acc.End) {
		// Gap — the rollup would span missing periods. Restart here.
		log.Printf("[rollup] gap after %v (next sub-candle starts %v), discarding partial rollup of %d",
			b.acc.End, c.Start, b.count)
		if b.OnGap != nil {
			b.OnGap()
		}
		b.started = false
	}

	if !b.started {
		b.acc = model.Candle{
			Symbol: c.Symbol,
			TF:     c.TF * b.n,
			Start:  c.Start,
			End:    c.End,
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
			Ticks:  c.Ticks,
		}
		b.count = 1
		b.started = true
	} else {
		if c.High > b.acc.High {
			b.acc.High = c.High
		}
		if c.Low < b.acc.Low {
			b.acc.Low = c.Low
		}
		b.acc.Close = c.Close
		b.acc.Volume += c.Volume
		b.acc.Ticks += c.Ticks
		b.acc.End = c.End
		b.count++
	}

	if b.count < b.n {
		return model.Candle{}, false
	}

	b.acc.Closed = true
	out := b.acc
	b.started = false
	return out, true
}

// Pending returns how many sub-candles the in-progress rollup holds.
func (b *Builder) Pending() int {
	if !b.started {
		return 0
	}
	return b.count
}
