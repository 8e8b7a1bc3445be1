// Package window provides a fixed-capacity, insertion-ordered buffer of
// closed rollup candles feeding the indicator computations. Storage is a
// power-of-two ring with bitwise-modulo indexing; the oldest candle is
// evicted FIFO when the logical capacity is exceeded.
package window

import (
	"errors"

	"algocore/internal/model"
)

// ErrOutOfOrder is returned when a pushed candle does not strictly follow the
// previous one in time. Indicator correctness depends on strictly increasing
// period order, so the producer/consumer contract is broken — callers must
// treat this as fatal for the symbol's pipeline, not retry.
var ErrOutOfOrder = errors.New("window: out-of-order candle push")

// Window is a bounded FIFO of the most recent closed candles.
// Designed for single-goroutine usage (the decision worker) — no locks needed.
type Window struct {
	buf  []model.Candle
	mask uint64
	head uint64 // next write slot
	tail uint64 // oldest retained slot

	capacity  int
	lastStart int64 // unix seconds of the newest candle's period start
}

// New creates a Window holding at most capacity candles.
// The backing ring is rounded up to the next power of two.
func New(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	size := nextPow2(capacity)
	return &Window{
		buf:       make([]model.Candle, size),
		mask:      uint64(size - 1),
		capacity:  capacity,
		lastStart: -1,
	}
}

// Push appends a closed candle in close order, evicting the oldest candle
// once the window is full. A candle whose period start does not strictly
// exceed the previous push returns ErrOutOfOrder and leaves the window
// unchanged.
func (w *Window) Push(c model.Candle) error {
	start := c.Start.Unix()
	if start <= w.lastStart {
		return ErrOutOfOrder
	}

	if w.Len() == w.capacity {
		w.tail++
	}
	w.buf[w.head&w.mask] = c
	w.head++
	w.lastStart = start
	return nil
}

// Len returns the number of candles currently held.
func (w *Window) Len() int {
	return int(w.head - w.tail)
}

// Cap returns the logical capacity.
func (w *Window) Cap() int {
	return w.capacity
}

// Snapshot returns the retained candles oldest-first. The slice is a copy;
// the caller may hold it across subsequent pushes.
func (w *Window) Snapshot() []model.Candle {
	n := w.Len()
	out := make([]model.Candle, n)
	for i := 0; i < n; i++ {
		out[i] = w.buf[(w.tail+uint64(i))&w.mask]
	}
	return out
}

// Latest returns the newest candle and whether the window is non-empty.
func (w *Window) Latest() (model.Candle, bool) {
	if w.Len() == 0 {
		return model.Candle{}, false
	}
	return w.buf[(w.head-1)&w.mask], true
}

// nextPow2 returns the smallest power of 2 >= n.
func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
